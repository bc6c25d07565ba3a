// Package search finds films and series matching a free text query and
// filters, collapses series members into their series and ranks the result.
package search

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/metrics"
)

type Options struct {
	// Store to search
	Store Store
	// StopWords ignored when scoring, DefaultStopWords if nil.
	StopWords StopWords
	// Limit truncates ranked results, 0 means no limit.
	Limit int
}

type Engine struct {
	store     Store
	stopwords StopWords
	limit     int
}

// Result is the ranked outcome of a search.
type Result struct {
	Query string
	Items []Scored
}

func New(o *Options) *Engine {
	stopwords := o.StopWords
	if stopwords == nil {
		stopwords = DefaultStopWords
	}
	return &Engine{
		store:     o.Store,
		stopwords: stopwords,
		limit:     o.Limit,
	}
}

// Search collects, collapses and ranks the items matching params.
func (e *Engine) Search(ctx context.Context, params Params) (*Result, error) {
	start := time.Now()

	items, err := Collect(ctx, e.store, params, e.stopwords)
	if err != nil {
		return nil, err
	}
	candidates := len(items)

	items, err = Collapse(ctx, e.store, items)
	if err != nil {
		log.Error().Err(err).Str("query", params.Query).Msg("search: collapsing series")
		return nil, err
	}
	Rank(items)
	if e.limit > 0 && len(items) > e.limit {
		items = items[:e.limit]
	}

	elapsed := time.Since(start)
	metrics.RecordSearch(elapsed, len(items))
	log.Debug().
		Str("query", params.Query).
		Int("candidates", candidates).
		Int("results", len(items)).
		Dur("elapsed", elapsed).
		Msg("search")

	return &Result{Query: params.Query, Items: items}, nil
}
