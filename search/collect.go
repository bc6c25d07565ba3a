package search

import (
	"context"

	"github.com/erikbos/filmbrowser/database/model"
)

// Store is the part of the record store a search reads from.
type Store interface {
	FindFilms(ctx context.Context, pattern string, filter model.Filter) ([]*model.Film, error)
	FindPeople(ctx context.Context, pattern string) ([]*model.Person, error)
	FindKeywords(ctx context.Context, pattern string) ([]model.Keyword, error)
	FilmsForPerson(ctx context.Context, personID string, filter model.Filter) ([]*model.Film, error)
	FilmsForKeyword(ctx context.Context, keyword string, filter model.Filter) ([]*model.Film, error)
	GetSeries(ctx context.Context, seriesID string) (*model.Series, error)
}

// Scored is a search result with its match score.
type Scored struct {
	Score Score
	Media model.Media
}

// collector accumulates candidate films from the title, people and keyword
// passes. Each film is taken once, at the score of the first pass that
// accepted it.
type collector struct {
	store     Store
	params    Params
	stopwords StopWords
	seen      map[string]struct{}
	items     []Scored
}

// Collect runs the candidate passes for params and returns the matching
// films in the order they were found.
func Collect(ctx context.Context, store Store, params Params, stopwords StopWords) ([]Scored, error) {
	c := &collector{
		store:     store,
		params:    params,
		stopwords: stopwords,
		seen:      make(map[string]struct{}),
	}
	pattern := NewPattern(params.Query).String()

	if err := c.titles(ctx, pattern); err != nil {
		return nil, err
	}
	if params.Query == "" {
		return c.items, nil
	}
	if err := c.people(ctx, pattern); err != nil {
		return nil, err
	}
	if params.SearchKeywords {
		if err := c.keywords(ctx, pattern); err != nil {
			return nil, err
		}
	}
	return c.items, nil
}

func (c *collector) titles(ctx context.Context, pattern string) error {
	films, err := c.store.FindFilms(ctx, pattern, c.params.Filter)
	if err != nil {
		return err
	}
	for _, f := range films {
		c.add(f, Match(c.params.Query, []string{f.Title, f.AltTitle}, c.stopwords))
	}
	return nil
}

func (c *collector) people(ctx context.Context, pattern string) error {
	people, err := c.store.FindPeople(ctx, pattern)
	if err != nil {
		return err
	}
	for _, p := range people {
		score := Match(c.params.Query, []string{p.Name, p.Alias}, c.stopwords)
		if score.IsZero() {
			continue
		}
		films, err := c.store.FilmsForPerson(ctx, p.ID, c.params.Filter)
		if err != nil {
			return err
		}
		for _, f := range films {
			c.add(f, score)
		}
	}
	return nil
}

func (c *collector) keywords(ctx context.Context, pattern string) error {
	keywords, err := c.store.FindKeywords(ctx, pattern)
	if err != nil {
		return err
	}
	for _, k := range keywords {
		score := Match(c.params.Query, []string{k.Name}, c.stopwords)
		if score.IsZero() {
			continue
		}
		films, err := c.store.FilmsForKeyword(ctx, k.Name, c.params.Filter)
		if err != nil {
			return err
		}
		for _, f := range films {
			c.add(f, score)
		}
	}
	return nil
}

func (c *collector) add(f *model.Film, score Score) {
	if _, ok := c.seen[f.ID]; ok {
		return
	}
	if score.IsZero() || !c.params.Genres.Allows(f.Genres) {
		return
	}
	c.seen[f.ID] = struct{}{}
	c.items = append(c.items, Scored{Score: score, Media: model.FilmMedia(f)})
}
