package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/collection/index"
	"github.com/erikbos/filmbrowser/database/model"
)

// BuildSearchIndex builds the quick-search index from all films and series
// in the store and swaps it in.
func (cr *CollectionRepo) BuildSearchIndex(ctx context.Context) error {
	log.Debug().Msg("search compiling dataset")

	films, err := cr.repo.ListFilms(ctx)
	if err != nil {
		return err
	}
	series, err := cr.repo.ListSeries(ctx)
	if err != nil {
		return err
	}

	names := newPersonNames(cr.repo)
	docs := make([]index.Document, 0, len(films)+len(series))
	for _, f := range films {
		doc, err := cr.filmDocument(ctx, f, names)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	for _, s := range series {
		if !s.Proper() {
			continue
		}
		docs = append(docs, cr.seriesDocument(s))
	}

	idx, err := index.New()
	if err != nil {
		return err
	}
	if err = idx.IndexBatch(ctx, docs); err != nil {
		idx.Close()
		return err
	}

	if old := cr.bleveIndex.Swap(idx); old != nil {
		old.Close()
	}
	log.Info().Int("items", len(docs)).Msg("search index built")
	return nil
}

// Suggest returns typeahead suggestions for term.
func (cr *CollectionRepo) Suggest(ctx context.Context, term string) ([]index.Hit, error) {
	idx := cr.bleveIndex.Load()
	if idx == nil {
		return nil, ErrSearchIndexNotInitialized
	}
	return idx.Suggest(ctx, term, searchResultCount)
}

// SuggestPerson returns names of directors and stars matching name.
func (cr *CollectionRepo) SuggestPerson(ctx context.Context, name string) ([]string, error) {
	idx := cr.bleveIndex.Load()
	if idx == nil {
		return nil, ErrSearchIndexNotInitialized
	}
	return idx.SuggestPerson(ctx, name, searchResultCount)
}

// Similar returns films and series that resemble the referenced item.
func (cr *CollectionRepo) Similar(ctx context.Context, ref model.MemberRef) ([]index.Hit, error) {
	idx := cr.bleveIndex.Load()
	if idx == nil {
		return nil, ErrSearchIndexNotInitialized
	}

	var doc index.Document
	switch ref.Kind {
	case model.MemberKindFilm:
		f, err := cr.repo.GetFilm(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if doc, err = cr.filmDocument(ctx, f, newPersonNames(cr.repo)); err != nil {
			return nil, err
		}
	case model.MemberKindSeries:
		s, err := cr.repo.GetSeries(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		doc = cr.seriesDocument(s)
	default:
		return nil, fmt.Errorf("unknown kind %q", ref.Kind)
	}
	return idx.Similar(ctx, doc, searchResultCount)
}

func (cr *CollectionRepo) filmDocument(ctx context.Context, f *model.Film, names *personNames) (index.Document, error) {
	people, err := names.lookup(ctx, append(append([]string{}, f.Directors...), f.Stars...))
	if err != nil {
		return index.Document{}, err
	}
	return index.Document{
		ID:          f.ID,
		Kind:        string(model.MemberKindFilm),
		ParentID:    f.ParentID,
		Name:        f.Title,
		AltName:     f.AltTitle,
		Description: f.Description,
		Genres:      f.Genres,
		Keywords:    f.Keywords,
		People:      people,
		Year:        f.Year,
	}, nil
}

// seriesDocument does not carry people, their films do.
func (cr *CollectionRepo) seriesDocument(s *model.Series) index.Document {
	return index.Document{
		ID:          s.ID,
		Kind:        string(model.MemberKindSeries),
		ParentID:    s.ParentID,
		Name:        s.Title,
		AltName:     s.AltTitle,
		Description: s.Description,
		Genres:      s.Genres,
		Keywords:    s.Keywords,
		Year:        s.Year,
	}
}

type personGetter interface {
	GetPerson(ctx context.Context, personID string) (*model.Person, error)
}

// personNames resolves person IDs to names, caching lookups.
type personNames struct {
	store personGetter
	names map[string]string
}

func newPersonNames(store personGetter) *personNames {
	return &personNames{store: store, names: make(map[string]string)}
}

// lookup returns the distinct names of ids. Unknown persons are skipped.
func (p *personNames) lookup(ctx context.Context, ids []string) ([]string, error) {
	var result []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		name, ok := p.names[id]
		if !ok {
			person, err := p.store.GetPerson(ctx, id)
			switch {
			case errors.Is(err, model.ErrNotFound):
			case err != nil:
				return nil, err
			default:
				name = person.Name
			}
			p.names[id] = name
		}
		if _, dup := seen[name]; name == "" || dup {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result, nil
}
