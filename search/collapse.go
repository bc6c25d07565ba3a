package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/erikbos/filmbrowser/database/model"
)

// SeriesGetter loads a series by ID.
type SeriesGetter interface {
	GetSeries(ctx context.Context, seriesID string) (*model.Series, error)
}

// Ancestors returns the parent chain starting at parentID, up to the
// top-level series. A cycle or a parent that does not exist returns an
// error wrapping model.ErrInvariant.
func Ancestors(ctx context.Context, store SeriesGetter, parentID string) ([]*model.Series, error) {
	var chain []*model.Series
	visited := make(map[string]struct{})
	for parentID != "" {
		if _, ok := visited[parentID]; ok {
			return nil, fmt.Errorf("%w: cycle at series %s", model.ErrInvariant, parentID)
		}
		visited[parentID] = struct{}{}

		series, err := store.GetSeries(ctx, parentID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("%w: dangling parent %s", model.ErrInvariant, parentID)
			}
			return nil, err
		}
		chain = append(chain, series)
		parentID = series.ParentID
	}
	return chain, nil
}

// Collapse replaces films that are part of a multi-member series by the
// highest proper series above them. Each series is added once, after the
// films that pass through, in the order it was first reached and scored at
// the best score of its collapsed members. Pass-through collections are
// never a collapse target.
func Collapse(ctx context.Context, store SeriesGetter, items []Scored) ([]Scored, error) {
	cache := make(map[string]*model.Series)
	cached := cachedSeries{store: store, cache: cache}

	result := make([]Scored, 0, len(items))
	var targets []Scored
	targetIndex := make(map[string]int)

	for _, item := range items {
		if item.Media.ParentID() == "" {
			result = append(result, item)
			continue
		}
		chain, err := Ancestors(ctx, cached, item.Media.ParentID())
		if err != nil {
			return nil, fmt.Errorf("collapsing %s: %w", item.Media.ID(), err)
		}
		target := collapseTarget(chain)
		if target == nil {
			result = append(result, item)
			continue
		}
		if i, ok := targetIndex[target.ID]; ok {
			if targets[i].Score.Less(item.Score) {
				targets[i].Score = item.Score
			}
			continue
		}
		targetIndex[target.ID] = len(targets)
		targets = append(targets, Scored{Score: item.Score, Media: model.SeriesMedia(target)})
	}
	return append(result, targets...), nil
}

// collapseTarget returns nil when the item is the sole member of every
// ancestor, or when no ancestor is a proper series.
func collapseTarget(chain []*model.Series) *model.Series {
	sole := true
	for _, s := range chain {
		if len(s.Members) != 1 {
			sole = false
			break
		}
	}
	if sole {
		return nil
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Proper() {
			return chain[i]
		}
	}
	return nil
}

// cachedSeries memoizes series lookups for the duration of one collapse.
type cachedSeries struct {
	store SeriesGetter
	cache map[string]*model.Series
}

func (c cachedSeries) GetSeries(ctx context.Context, seriesID string) (*model.Series, error) {
	if s, ok := c.cache[seriesID]; ok {
		return s, nil
	}
	s, err := c.store.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	c.cache[seriesID] = s
	return s, nil
}
