package database

import (
	"context"
	"fmt"

	"github.com/erikbos/filmbrowser/database/memory"
	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/database/sqlite"
)

type (
	Options struct {
		// Type is the backend to use, "sqlite" (default) or "memory".
		Type string
		// Filename of the sqlite database.
		Filename string
	}

	// Repository is the record store the search engine, rating aggregator
	// and library service read from and write to.
	Repository interface {
		FilmRepo
		SeriesRepo
		PersonRepo
		KeywordRepo
		GenreRepo
	}

	// FilmRepo defines the film operations. Patterns are regular
	// expressions, an empty pattern matches everything. All lists are in
	// insertion order.
	FilmRepo interface {
		// FindFilms returns films whose title or alternate title match pattern.
		FindFilms(ctx context.Context, pattern string, filter model.Filter) ([]*model.Film, error)
		// FilmsForPerson returns the films a person starred in, followed by
		// the films they directed.
		FilmsForPerson(ctx context.Context, personID string, filter model.Filter) ([]*model.Film, error)
		// FilmsForKeyword returns the films tagged with keyword.
		FilmsForKeyword(ctx context.Context, keyword string, filter model.Filter) ([]*model.Film, error)
		// GetFilm returns a film by ID.
		GetFilm(ctx context.Context, filmID string) (*model.Film, error)
		// SaveFilm inserts or updates a film.
		SaveFilm(ctx context.Context, film *model.Film) error
		// ListFilms returns all films.
		ListFilms(ctx context.Context) ([]*model.Film, error)
	}

	SeriesRepo interface {
		// GetSeries returns a series by ID, with its members.
		GetSeries(ctx context.Context, seriesID string) (*model.Series, error)
		// SaveSeries inserts or updates a series and its member list.
		SaveSeries(ctx context.Context, series *model.Series) error
		// DeleteSeries removes a series and releases its members. The
		// members themselves are not changed.
		DeleteSeries(ctx context.Context, seriesID string) error
		// ListSeries returns all series.
		ListSeries(ctx context.Context) ([]*model.Series, error)
	}

	PersonRepo interface {
		// FindPeople returns persons whose name or alias match pattern.
		FindPeople(ctx context.Context, pattern string) ([]*model.Person, error)
		GetPerson(ctx context.Context, personID string) (*model.Person, error)
		SavePerson(ctx context.Context, person *model.Person) error
	}

	KeywordRepo interface {
		// FindKeywords returns keywords matching pattern.
		FindKeywords(ctx context.Context, pattern string) ([]model.Keyword, error)
	}

	GenreRepo interface {
		// ListGenres returns all genres in use.
		ListGenres(ctx context.Context) ([]model.Genre, error)
	}
)

// New returns the repository backend selected by the options.
func New(o *Options) (Repository, error) {
	if o == nil {
		return nil, model.ErrNoConfiguration
	}
	switch o.Type {
	case "", "sqlite":
		return sqlite.New(&sqlite.ConfigFile{Filename: o.Filename})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", o.Type)
	}
}
