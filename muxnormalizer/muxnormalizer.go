// middleware for normalizing request paths and query parameters, so links
// and forms from older pages keep working.
//
// E.g. /API//Search/?Search=heat&Year_Min=1990 will be normalized to
// /api/search?search=heat&year_min=1990
package muxnormalizer

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/erikbos/filmbrowser/search"
)

type Normalizer struct {
	bySegmentCount map[int][]routeTemplate
}

type routeTemplate struct {
	staticPos map[int]string
}

// New builds a request normalizer for the routes registered on r.
func New(r *mux.Router) (*Normalizer, error) {
	n := &Normalizer{
		bySegmentCount: make(map[int][]routeTemplate),
	}

	// Build route casing index from all registered routes
	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		template, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}

		staticPos := make(map[int]string)
		segIndex := 0
		for _, part := range strings.Split(template, "/") {
			if part == "" {
				continue
			}
			// Skip path parameters
			if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
				staticPos[segIndex] = part
			}
			segIndex++
		}
		n.bySegmentCount[segIndex] = append(n.bySegmentCount[segIndex], routeTemplate{staticPos: staticPos})
		return nil
	})

	return n, err
}

// Middleware returns an HTTP middleware that normalizes request paths and query parameters
func (n *Normalizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Remove duplicate slashes
		for strings.Contains(path, "//") {
			path = strings.ReplaceAll(path, "//", "/")
		}

		// Remove trailing slash (except for root path)
		if path != "/" && strings.HasSuffix(path, "/") {
			path = path[:len(path)-1]
		}

		// Canonicalize casing using route index
		r.URL.Path = n.normalizePath(path)
		r.URL.RawPath = ""

		// Tidy up query parameters
		if len(r.URL.RawQuery) > 0 {
			r.URL.RawQuery = normalizeQueryParameters(r.URL.RawQuery)
		}
		next.ServeHTTP(w, r)
	})
}

// normalizePath normalizes the given path using the route templates
func (n *Normalizer) normalizePath(path string) string {
	segments := make([]string, 0)
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			segments = append(segments, p)
		}
	}

	for _, tpl := range n.bySegmentCount[len(segments)] {
		match := true
		modified := false
		newSegments := make([]string, len(segments))
		copy(newSegments, segments)

		for i, seg := range segments {
			canonical, ok := tpl.staticPos[i]
			if !ok {
				continue
			}
			if !strings.EqualFold(seg, canonical) {
				match = false
				break
			}
			if seg != canonical {
				newSegments[i] = canonical
				modified = true
			}
		}
		if !match {
			continue
		}
		if modified {
			path = "/" + strings.Join(newSegments, "/")
		}
		break
	}
	return path
}

// normalizeQueryParameters lower-cases the names of search parameters and
// removes parameters that only the old form pages sent.
func normalizeQueryParameters(rawQuery string) string {
	queryparameters, _ := url.ParseQuery(rawQuery)
	newValues := url.Values{}

	for queryParamName, values := range queryparameters {
		k := strings.ToLower(queryParamName)
		if _, remove := removeParams[k]; remove {
			continue
		}
		if _, ok := queryParameters[k]; ok || strings.HasPrefix(k, search.ParamGenrePrefix) {
			queryParamName = k
		}
		for _, v := range values {
			newValues.Add(queryParamName, v)
		}
	}
	return newValues.Encode()
}

// These are the query parameters we lower-case
var queryParameters = map[string]struct{}{
	search.ParamSearch:        {},
	search.ParamYearMin:       {},
	search.ParamYearMax:       {},
	search.ParamRuntimeMin:    {},
	search.ParamRuntimeMax:    {},
	search.ParamColour:        {},
	search.ParamBlackAndWhite: {},
	search.ParamDigital:       {},
	search.ParamPhysical:      {},
	search.ParamKeyword:       {},
	"q":                       {},
	"kind":                    {},
	"w":                       {},
	"h":                       {},
}

// These are the query parameters we remove
var removeParams = map[string]struct{}{
	// django form token
	"csrfmiddlewaretoken": {},
	// jquery cache buster
	"_": {},
	// select-all control of the genre panel, not a genre
	"all-genre-box-data": {},
}
