// CollectionRepo is the library service in front of the record store. It
// edits ratings, builds series from existing films, answers the lookups the
// browser pages need and keeps the quick-search index up to date.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/collection/index"
	"github.com/erikbos/filmbrowser/database"
	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/rating"
	"github.com/erikbos/filmbrowser/search"
)

// CollectionRepo is the library service.
type CollectionRepo struct {
	repo   database.Repository
	engine *search.Engine
	rating *rating.Aggregator
	// quick-search index, swapped as a whole when rebuilt
	bleveIndex atomic.Pointer[index.Index]
}

type Options struct {
	Repo database.Repository
	// StopWords used by ranked search, search.DefaultStopWords if nil.
	StopWords search.StopWords
	// SearchLimit truncates ranked search results, 0 means no limit.
	SearchLimit int
}

var (
	ErrSearchIndexNotInitialized = errors.New("search index not initialized")
	// default number of suggestions to return.
	searchResultCount = 15
)

// New creates a new CollectionRepo with the provided options.
func New(options *Options) *CollectionRepo {
	c := &CollectionRepo{
		repo: options.Repo,
		engine: search.New(&search.Options{
			Store:     options.Repo,
			StopWords: options.StopWords,
			Limit:     options.SearchLimit,
		}),
		rating: rating.New(&rating.Options{Store: options.Repo}),
	}
	return c
}

// Init builds the quick-search index for the first time.
func (cr *CollectionRepo) Init(ctx context.Context) error {
	log.Info().Msg("initializing collection")
	return cr.BuildSearchIndex(ctx)
}

// Search runs a ranked search.
func (cr *CollectionRepo) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	return cr.engine.Search(ctx, params)
}

// GetFilm returns a film by ID.
func (cr *CollectionRepo) GetFilm(ctx context.Context, filmID string) (*model.Film, error) {
	return cr.repo.GetFilm(ctx, filmID)
}

// GetSeries returns a series by ID.
func (cr *CollectionRepo) GetSeries(ctx context.Context, seriesID string) (*model.Series, error) {
	series, err := cr.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if series.UserRating, err = cr.rating.Rating(ctx, series); err != nil {
		return nil, err
	}
	return series, nil
}

// GetPerson returns a person by ID.
func (cr *CollectionRepo) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	return cr.repo.GetPerson(ctx, personID)
}

// SetUserRating sets the rating of a film, recomputes the series above it
// and refreshes the film in the quick-search index.
func (cr *CollectionRepo) SetUserRating(ctx context.Context, filmID string, userRating int) (*model.Film, error) {
	film, err := cr.rating.SetUserRating(ctx, filmID, userRating)
	if err != nil {
		return nil, err
	}
	log.Info().Str("film", film.ID).Int("rating", userRating).Msg("user rating set")

	if idx := cr.bleveIndex.Load(); idx != nil {
		doc, err := cr.filmDocument(ctx, film, newPersonNames(cr.repo))
		if err == nil {
			err = idx.Index(ctx, doc)
		}
		if err != nil {
			log.Warn().Err(err).Str("film", film.ID).Msg("refreshing search index entry")
		}
	}
	return film, nil
}

// PersonFilms returns the films a person starred in or directed, highest
// rated first.
func (cr *CollectionRepo) PersonFilms(ctx context.Context, personID string) (*model.Person, []*model.Film, error) {
	person, err := cr.repo.GetPerson(ctx, personID)
	if err != nil {
		return nil, nil, err
	}
	films, err := cr.repo.FilmsForPerson(ctx, personID, model.Filter{})
	if err != nil {
		return nil, nil, fmt.Errorf("films for person %s: %w", personID, err)
	}

	seen := make(map[string]struct{}, len(films))
	unique := films[:0]
	for _, f := range films {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		unique = append(unique, f)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].UserRating != unique[j].UserRating {
			return unique[i].UserRating > unique[j].UserRating
		}
		return unique[i].ExternalRating > unique[j].ExternalRating
	})
	return person, unique, nil
}
