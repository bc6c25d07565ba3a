// Package memory implements the record store with in-memory maps. It is used
// as fixture store in tests and for `database.type: memory`.
package memory

import (
	"context"
	"regexp"
	"slices"
	"sync"

	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/metrics"
)

const backend = "memory"

type MemoryRepo struct {
	mu sync.RWMutex
	// films by id, filmOrder holds insertion order
	films     map[string]*model.Film
	filmOrder []string
	// series by id, seriesOrder holds insertion order
	series      map[string]*model.Series
	seriesOrder []string
	// persons by id, personOrder holds insertion order
	persons     map[string]*model.Person
	personOrder []string
	// owner of each series member, to enforce single ownership
	owners   map[model.MemberRef]string
	keywords orderedSet
	genres   orderedSet
}

// New returns an empty in-memory store.
func New() *MemoryRepo {
	return &MemoryRepo{
		films:    make(map[string]*model.Film),
		series:   make(map[string]*model.Series),
		persons:  make(map[string]*model.Person),
		owners:   make(map[model.MemberRef]string),
		keywords: newOrderedSet(),
		genres:   newOrderedSet(),
	}
}

func (m *MemoryRepo) FindFilms(ctx context.Context, pattern string, filter model.Filter) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "find_films")()

	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Film
	for _, id := range m.filmOrder {
		f := m.films[id]
		if !filter.Match(f) {
			continue
		}
		if re == nil || re.MatchString(f.Title) || re.MatchString(f.AltTitle) {
			result = append(result, cloneFilm(f))
		}
	}
	return result, nil
}

func (m *MemoryRepo) FilmsForPerson(ctx context.Context, personID string, filter model.Filter) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "films_for_person")()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var stars, directors []*model.Film
	for _, id := range m.filmOrder {
		f := m.films[id]
		if !filter.Match(f) {
			continue
		}
		if slices.Contains(f.Stars, personID) {
			stars = append(stars, cloneFilm(f))
		} else if slices.Contains(f.Directors, personID) {
			directors = append(directors, cloneFilm(f))
		}
	}
	return append(stars, directors...), nil
}

func (m *MemoryRepo) FilmsForKeyword(ctx context.Context, keyword string, filter model.Filter) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "films_for_keyword")()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Film
	for _, id := range m.filmOrder {
		f := m.films[id]
		if filter.Match(f) && slices.Contains(f.Keywords, keyword) {
			result = append(result, cloneFilm(f))
		}
	}
	return result, nil
}

func (m *MemoryRepo) GetFilm(ctx context.Context, filmID string) (*model.Film, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.films[filmID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneFilm(f), nil
}

func (m *MemoryRepo) SaveFilm(ctx context.Context, film *model.Film) error {
	defer metrics.ObserveStore(backend, "save_film")()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.films[film.ID]; !ok {
		m.filmOrder = append(m.filmOrder, film.ID)
	}
	m.films[film.ID] = cloneFilm(film)
	for _, k := range film.Keywords {
		m.keywords.add(k)
	}
	for _, g := range film.Genres {
		m.genres.add(g)
	}
	return nil
}

func (m *MemoryRepo) ListFilms(ctx context.Context) ([]*model.Film, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Film, 0, len(m.filmOrder))
	for _, id := range m.filmOrder {
		result = append(result, cloneFilm(m.films[id]))
	}
	return result, nil
}

func (m *MemoryRepo) GetSeries(ctx context.Context, seriesID string) (*model.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.series[seriesID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneSeries(s), nil
}

// SaveSeries stores a series. A member can belong to one series only,
// adding it to a second one returns model.ErrAlreadyMember.
func (m *MemoryRepo) SaveSeries(ctx context.Context, series *model.Series) error {
	defer metrics.ObserveStore(backend, "save_series")()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, member := range series.Members {
		if owner, ok := m.owners[member]; ok && owner != series.ID {
			return model.ErrAlreadyMember
		}
	}
	if old, ok := m.series[series.ID]; ok {
		for _, member := range old.Members {
			delete(m.owners, member)
		}
	} else {
		m.seriesOrder = append(m.seriesOrder, series.ID)
	}
	for _, member := range series.Members {
		m.owners[member] = series.ID
	}
	m.series[series.ID] = cloneSeries(series)
	for _, g := range series.Genres {
		m.genres.add(g)
	}
	return nil
}

func (m *MemoryRepo) DeleteSeries(ctx context.Context, seriesID string) error {
	defer metrics.ObserveStore(backend, "delete_series")()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.series[seriesID]
	if !ok {
		return model.ErrNotFound
	}
	for _, member := range s.Members {
		if m.owners[member] == seriesID {
			delete(m.owners, member)
		}
	}
	delete(m.series, seriesID)
	m.seriesOrder = slices.DeleteFunc(m.seriesOrder, func(id string) bool { return id == seriesID })
	return nil
}

func (m *MemoryRepo) ListSeries(ctx context.Context) ([]*model.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Series, 0, len(m.seriesOrder))
	for _, id := range m.seriesOrder {
		result = append(result, cloneSeries(m.series[id]))
	}
	return result, nil
}

func (m *MemoryRepo) FindPeople(ctx context.Context, pattern string) ([]*model.Person, error) {
	defer metrics.ObserveStore(backend, "find_people")()

	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Person
	for _, id := range m.personOrder {
		p := m.persons[id]
		if re == nil || re.MatchString(p.Name) || (p.Alias != "" && re.MatchString(p.Alias)) {
			person := *p
			result = append(result, &person)
		}
	}
	return result, nil
}

func (m *MemoryRepo) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.persons[personID]
	if !ok {
		return nil, model.ErrNotFound
	}
	person := *p
	return &person, nil
}

func (m *MemoryRepo) SavePerson(ctx context.Context, person *model.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.persons[person.ID]; !ok {
		m.personOrder = append(m.personOrder, person.ID)
	}
	p := *person
	m.persons[person.ID] = &p
	return nil
}

func (m *MemoryRepo) FindKeywords(ctx context.Context, pattern string) ([]model.Keyword, error) {
	defer metrics.ObserveStore(backend, "find_keywords")()

	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []model.Keyword
	for _, k := range m.keywords.order {
		if re == nil || re.MatchString(k) {
			result = append(result, model.Keyword{Name: k})
		}
	}
	return result, nil
}

func (m *MemoryRepo) ListGenres(ctx context.Context) ([]model.Genre, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]model.Genre, 0, len(m.genres.order))
	for _, g := range m.genres.order {
		result = append(result, model.Genre{Name: g})
	}
	return result, nil
}

// compile returns nil for the empty, match-all, pattern.
func compile(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() orderedSet {
	return orderedSet{seen: make(map[string]struct{})}
}

func (o *orderedSet) add(s string) {
	if _, ok := o.seen[s]; ok {
		return
	}
	o.seen[s] = struct{}{}
	o.order = append(o.order, s)
}

func cloneFilm(f *model.Film) *model.Film {
	c := *f
	c.Genres = slices.Clone(f.Genres)
	c.Keywords = slices.Clone(f.Keywords)
	c.Directors = slices.Clone(f.Directors)
	c.Stars = slices.Clone(f.Stars)
	return &c
}

func cloneSeries(s *model.Series) *model.Series {
	c := *s
	c.Genres = slices.Clone(s.Genres)
	c.Keywords = slices.Clone(s.Keywords)
	c.Directors = slices.Clone(s.Directors)
	c.Stars = slices.Clone(s.Stars)
	c.Members = slices.Clone(s.Members)
	return &c
}
