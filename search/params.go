package search

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/erikbos/filmbrowser/database/model"
)

// Search request parameters.
const (
	ParamSearch        = "search"
	ParamYearMin       = "year_min"
	ParamYearMax       = "year_max"
	ParamRuntimeMin    = "runtime_min"
	ParamRuntimeMax    = "runtime_max"
	ParamColour        = "colour"
	ParamBlackAndWhite = "black_and_white"
	ParamDigital       = "digital"
	ParamPhysical      = "physical"
	ParamKeyword       = "keyword"
	// ParamGenrePrefix is followed by the genre name, e.g. genre-drama=1.
	ParamGenrePrefix = "genre-"
	genreDataSuffix  = "-data"
)

// GenreState is the tri-state selection of a single genre.
type GenreState int

const (
	GenreNeutral GenreState = iota
	// GenreAnd means every genre in this state must be present.
	GenreAnd
	// GenreOr means at least one genre in this state must be present.
	GenreOr
	// GenreNot means none of the genres in this state may be present.
	GenreNot
)

// Params is a parsed search request.
type Params struct {
	// Query is the free text query.
	Query string
	// Filter is passed down to the record store.
	Filter model.Filter
	// Genres is applied to each candidate.
	Genres GenreFilter
	// SearchKeywords enables the keyword pass.
	SearchKeywords bool
}

// ParamError describes a search parameter that could not be parsed and was
// ignored.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("ignoring %s=%q: %s", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// ParseParams parses a search request. Malformed values do not stop
// parsing, the clause is left out and an error is returned for it.
func ParseParams(values url.Values) (Params, []error) {
	var p Params
	var errs []error

	p.Query = strings.TrimSpace(values.Get(ParamSearch))

	parseInt := func(name string) *int {
		v := strings.TrimSpace(values.Get(name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, &ParamError{Param: name, Value: v, Err: err})
			return nil
		}
		return &n
	}
	parseBool := func(name string) bool {
		v := values.Get(name)
		b, err := parseBoolValue(v)
		if err != nil {
			errs = append(errs, &ParamError{Param: name, Value: v, Err: err})
		}
		return b
	}

	p.Filter.YearMin = parseInt(ParamYearMin)
	p.Filter.YearMax = parseInt(ParamYearMax)
	p.Filter.RuntimeMin = parseInt(ParamRuntimeMin)
	p.Filter.RuntimeMax = parseInt(ParamRuntimeMax)

	// Selecting both toggles of a pair means don't care.
	colour, bw := parseBool(ParamColour), parseBool(ParamBlackAndWhite)
	if colour != bw {
		p.Filter.Colour = &colour
	}
	digital, physical := parseBool(ParamDigital), parseBool(ParamPhysical)
	if digital != physical {
		if digital {
			p.Filter.Digital = &digital
		} else {
			p.Filter.Physical = &physical
		}
	}

	p.SearchKeywords = parseBool(ParamKeyword)

	// Sorted so errors come out in a stable order. A genre sent both as
	// genre-x and genre-x-data takes the state of the later key.
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.HasPrefix(k, ParamGenrePrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(k, ParamGenrePrefix), genreDataSuffix)
		if name == "" {
			continue
		}
		v := strings.TrimSpace(values.Get(k))
		n, err := strconv.Atoi(v)
		if err != nil {
			if v != "" {
				errs = append(errs, &ParamError{Param: k, Value: v, Err: err})
			}
			continue
		}
		p.Genres.Set(name, GenreState(n))
	}
	return p, errs
}

// parseBoolValue accepts the values browsers and people send for a
// checkbox. Absent means false.
func parseBoolValue(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true, nil
	case "", "false", "0", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// GenreFilter holds the tri-state genre selection. Genre names are
// compared case-insensitively.
type GenreFilter struct {
	And map[string]struct{}
	Or  map[string]struct{}
	Not map[string]struct{}
}

// Set puts a genre in the set for state and takes it out of the others,
// so a genre has one state. Neutral and unknown states clear it.
func (g *GenreFilter) Set(genre string, state GenreState) {
	genre = strings.ToLower(genre)
	delete(g.And, genre)
	delete(g.Or, genre)
	delete(g.Not, genre)

	var set *map[string]struct{}
	switch state {
	case GenreAnd:
		set = &g.And
	case GenreOr:
		set = &g.Or
	case GenreNot:
		set = &g.Not
	default:
		return
	}
	if *set == nil {
		*set = make(map[string]struct{})
	}
	(*set)[genre] = struct{}{}
}

// State returns the state of genre.
func (g GenreFilter) State(genre string) GenreState {
	genre = strings.ToLower(genre)
	switch {
	case has(g.And, genre):
		return GenreAnd
	case has(g.Or, genre):
		return GenreOr
	case has(g.Not, genre):
		return GenreNot
	}
	return GenreNeutral
}

// IsEmpty returns true if no genre is selected.
func (g GenreFilter) IsEmpty() bool {
	return len(g.And) == 0 && len(g.Or) == 0 && len(g.Not) == 0
}

// Allows tests a set of genres against the filter. With both AND and OR
// genres selected passing either test includes the candidate. An excluded
// genre always rejects it.
func (g GenreFilter) Allows(genres []string) bool {
	tags := make(map[string]struct{}, len(genres))
	for _, genre := range genres {
		tags[strings.ToLower(genre)] = struct{}{}
	}

	for genre := range g.Not {
		if has(tags, genre) {
			return false
		}
	}

	if len(g.And) == 0 && len(g.Or) == 0 {
		return true
	}
	if len(g.And) > 0 && containsAll(tags, g.And) {
		return true
	}
	for genre := range g.Or {
		if has(tags, genre) {
			return true
		}
	}
	return false
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func containsAll(set, subset map[string]struct{}) bool {
	for k := range subset {
		if !has(set, k) {
			return false
		}
	}
	return true
}
