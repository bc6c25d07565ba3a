// Package metrics holds the prometheus instrumentation of filmbrowser.
//
// All collectors are registered with the default registry at init, the
// http handler serving them is mounted by the api package on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchDuration tracks the latency of a complete search, from
	// candidate collection to ranking.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filmbrowser_search_duration_seconds",
			Help:    "Duration of searches in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// SearchResults tracks the number of ranked items returned per search.
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filmbrowser_search_results",
			Help:    "Number of items returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// IgnoredParameters counts search parameters that could not be parsed.
	IgnoredParameters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmbrowser_search_ignored_parameters_total",
			Help: "Total number of malformed search parameters that were ignored",
		},
		[]string{"param"},
	)

	// RatingPropagations counts rating propagations by outcome.
	RatingPropagations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmbrowser_rating_propagations_total",
			Help: "Total number of user rating propagations",
		},
		[]string{"outcome"},
	)

	// StoreQueryDuration tracks the latency of record store operations.
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmbrowser_store_query_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"backend", "operation"},
	)
)

// RecordSearch records the duration and result count of one search.
func RecordSearch(duration time.Duration, results int) {
	SearchDuration.Observe(duration.Seconds())
	SearchResults.Observe(float64(results))
}

// RecordIgnoredParameter records a search parameter that was dropped.
func RecordIgnoredParameter(param string) {
	IgnoredParameters.WithLabelValues(param).Inc()
}

// RecordRatingPropagation records the outcome of a rating change: "ok",
// "invalid", "not_found" or "error".
func RecordRatingPropagation(outcome string) {
	RatingPropagations.WithLabelValues(outcome).Inc()
}

// ObserveStore starts timing a store operation, the returned function
// records the elapsed time. Use as:
//
//	defer metrics.ObserveStore("sqlite", "find_films")()
func ObserveStore(backend, operation string) func() {
	start := time.Now()
	return func() {
		StoreQueryDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	}
}
