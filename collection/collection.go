package collection

import (
	"context"
	"slices"
	"strings"
)

// CollectionDetails contains the values the filter panel is built from.
type CollectionDetails struct {
	Genres     []string
	YearMin    int
	YearMax    int
	RuntimeMin int
	RuntimeMax int
	// GenreCount is the number of films per lower-cased genre.
	GenreCount map[string]int
}

// Details returns collection details such as genres, year and runtime
// ranges. Alternate versions are not counted.
func (cr *CollectionRepo) Details(ctx context.Context) (CollectionDetails, error) {
	details := CollectionDetails{
		Genres:     make([]string, 0),
		GenreCount: make(map[string]int),
	}

	genres, err := cr.repo.ListGenres(ctx)
	if err != nil {
		return details, err
	}
	for _, g := range genres {
		if g.Name != "" && !slices.Contains(details.Genres, g.Name) {
			details.Genres = append(details.Genres, g.Name)
		}
	}
	slices.SortFunc(details.Genres, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	films, err := cr.repo.ListFilms(ctx)
	if err != nil {
		return details, err
	}
	for _, f := range films {
		if f.Alternate {
			continue
		}
		if f.Year != 0 {
			details.YearMin = minNonZero(details.YearMin, f.Year)
			details.YearMax = max(details.YearMax, f.Year)
		}
		if f.Runtime != 0 {
			details.RuntimeMin = minNonZero(details.RuntimeMin, f.Runtime)
			details.RuntimeMax = max(details.RuntimeMax, f.Runtime)
		}
		for _, g := range f.Genres {
			if g == "" {
				continue
			}
			details.GenreCount[strings.ToLower(g)]++
		}
	}
	return details, nil
}

// minNonZero returns the smaller of a and b, treating 0 as unset.
func minNonZero(a, b int) int {
	if a == 0 || b < a {
		return b
	}
	return a
}
