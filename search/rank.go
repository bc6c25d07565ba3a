package search

import (
	"sort"
)

// Rank sorts items descending on exact match, match ratio, user rating and
// external rating. Items with equal keys keep their order.
func Rank(items []Scored) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return b.Score.Less(a.Score)
		}
		if a.Media.UserRating() != b.Media.UserRating() {
			return a.Media.UserRating() > b.Media.UserRating()
		}
		return a.Media.ExternalRating() > b.Media.ExternalRating()
	})
}
