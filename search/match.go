package search

import (
	"strings"
)

// Score is the similarity of a query to a set of candidate strings.
type Score struct {
	// Exact is true if the query occurs verbatim in a candidate.
	Exact bool `json:"exact"`
	// Ratio is the word overlap in [0,1].
	Ratio float64 `json:"ratio"`
}

// IsZero returns true for a score that means no match.
func (s Score) IsZero() bool {
	return !s.Exact && s.Ratio == 0
}

// Less orders scores on exact match first, then on ratio.
func (s Score) Less(o Score) bool {
	if s.Exact != o.Exact {
		return !s.Exact
	}
	return s.Ratio < o.Ratio
}

// Match scores query against candidates. The ratio is the largest number of
// query words found in a single candidate, divided by the number of distinct
// words over the query and all candidates. An empty query matches everything
// with ratio 1.
func Match(query string, candidates []string, stopwords StopWords) Score {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Score{Exact: false, Ratio: 1}
	}

	var score Score
	queryWords := wordSet(q, stopwords)
	union := make(map[string]struct{}, len(queryWords))
	for w := range queryWords {
		union[w] = struct{}{}
	}

	best := 0
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if strings.Contains(strings.ToLower(c), q) {
			score.Exact = true
		}
		common := 0
		for w := range wordSet(c, stopwords) {
			union[w] = struct{}{}
			if _, ok := queryWords[w]; ok {
				common++
			}
		}
		best = max(best, common)
	}
	if len(union) > 0 {
		score.Ratio = float64(best) / float64(len(union))
	}
	return score
}

func wordSet(s string, stopwords StopWords) map[string]struct{} {
	words := Words(s, stopwords)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
