package collection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/filmbrowser/collection/index"
	"github.com/erikbos/filmbrowser/database/memory"
	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/search"
)

const testLibrary = `{
  "persons": [
    {"id": "p1", "name": "Richard Linklater"},
    {"id": "p2", "name": "Ethan Hawke"},
    {"id": "p3", "name": "Julie Delpy"},
    {"id": "p4", "name": "Uma Thurman"}
  ],
  "films": [
    {"id": "f1", "title": "Before Sunrise", "year": 1995, "runtime": 101, "colour": true, "digital": true,
     "genres": ["Drama", "Romance"], "keywords": ["vienna", "train"], "directors": ["p1"], "stars": ["p2", "p3"],
     "external_rating": 8.1, "user_rating": 4},
    {"id": "f2", "title": "Before Sunset", "year": 2004, "runtime": 80, "colour": true, "physical": true,
     "genres": ["Drama", "Romance"], "keywords": ["paris"], "directors": ["p1"], "stars": ["p2", "p3"],
     "external_rating": 8.0, "user_rating": 5},
    {"id": "f3", "title": "Before Midnight", "year": 2013, "runtime": 109, "colour": true,
     "genres": ["Drama", "Romance"], "keywords": ["greece"], "directors": ["p1"], "stars": ["p2", "p3"],
     "external_rating": 7.9, "user_rating": 3},
    {"id": "f4", "title": "Gattaca", "year": 1997, "runtime": 106, "colour": true,
     "genres": ["Drama", "Sci-Fi"], "keywords": ["genetics"], "stars": ["p2", "p4"],
     "external_rating": 7.8, "user_rating": 4},
    {"id": "f5", "title": "Boyhood", "year": 2014, "runtime": 165, "colour": true,
     "genres": ["Drama"], "directors": ["p1"], "external_rating": 7.9}
  ],
  "series": [
    {"id": "bt", "title": "Before Trilogy", "members": [
      {"kind": "film", "id": "f1"}, {"kind": "film", "id": "f2"}, {"kind": "film", "id": "f3"}]}
  ]
}`

func newTestCollection(t *testing.T) (*CollectionRepo, *memory.MemoryRepo) {
	t.Helper()
	repo := memory.New()
	cr := New(&Options{Repo: repo})
	require.NoError(t, cr.Import(context.Background(), strings.NewReader(testLibrary)))
	return cr, repo
}

func hitIDs(hits []index.Hit) []string {
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestCollection(t)

	bt, err := repo.GetSeries(ctx, "bt")
	require.NoError(t, err)
	assert.Equal(t, model.MediaTypeSeries, bt.MediaType)
	assert.Equal(t, 5, bt.UserRating)
	assert.Equal(t, 1995, bt.Year)
	assert.Equal(t, 2013, bt.YearMax)
	assert.Equal(t, []string{"Drama", "Romance"}, bt.Genres)
	assert.Equal(t, "Before Trilogy", bt.Description)

	f1, err := repo.GetFilm(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "bt", f1.ParentID)
	f4, err := repo.GetFilm(ctx, "f4")
	require.NoError(t, err)
	assert.Empty(t, f4.ParentID)
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "unknown field",
			input: `{"films": [{"id": "x", "title": "X", "director": "someone"}]}`,
			check: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name:  "rating out of range",
			input: `{"films": [{"id": "x", "title": "X", "user_rating": 7}]}`,
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Contains(t, ve.Error(), "UserRating")
			},
		},
		{
			name:  "missing title",
			input: `{"films": [{"id": "x"}]}`,
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "member in two series",
			input: `{"films": [{"id": "x", "title": "X"}], "series": [
				{"id": "s1", "title": "S1", "members": [{"kind": "film", "id": "x"}]},
				{"id": "s2", "title": "S2", "members": [{"kind": "film", "id": "x"}]}]}`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, model.ErrAlreadyMember) },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cr := New(&Options{Repo: memory.New()})
			tc.check(t, cr.Import(ctx, strings.NewReader(tc.input)))
		})
	}
}

func TestMakeSeries(t *testing.T) {
	ctx := context.Background()
	cr, repo := newTestCollection(t)

	series, err := cr.MakeSeries(ctx, SeriesDefinition{
		Title: "Linklater",
		Members: []model.MemberRef{
			{Kind: model.MemberKindSeries, ID: "bt"},
			{Kind: model.MemberKindFilm, ID: "f5"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, series.ID)
	assert.Equal(t, model.MediaTypeSeries, series.MediaType)
	assert.Equal(t, 1995, series.Year)
	assert.Equal(t, 2014, series.YearMax)
	assert.Equal(t, 80, series.Runtime)
	assert.Equal(t, 165, series.RuntimeMax)
	assert.Equal(t, 5, series.UserRating)
	assert.InDelta(t, 7.95, series.ExternalRating, 0.001)
	assert.Equal(t, []string{"Drama", "Romance"}, series.Genres)
	assert.Equal(t, []string{"p1"}, series.Directors)
	assert.True(t, series.Colour)
	assert.True(t, series.Digital)
	assert.True(t, series.Physical)

	bt, err := repo.GetSeries(ctx, "bt")
	require.NoError(t, err)
	assert.Equal(t, series.ID, bt.ParentID)
	f5, err := repo.GetFilm(ctx, "f5")
	require.NoError(t, err)
	assert.Equal(t, series.ID, f5.ParentID)

	// rating changes now reach the new series
	_, err = cr.SetUserRating(ctx, "f2", 1)
	require.NoError(t, err)
	top, err := repo.GetSeries(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, top.UserRating)
}

func TestMakeSeriesErrors(t *testing.T) {
	ctx := context.Background()
	cr, _ := newTestCollection(t)

	_, err := cr.MakeSeries(ctx, SeriesDefinition{Title: "Empty"})
	assert.ErrorIs(t, err, ErrNoMembers)

	_, err = cr.MakeSeries(ctx, SeriesDefinition{Title: "Hawke", Members: []model.MemberRef{
		{Kind: model.MemberKindFilm, ID: "f4"},
		{Kind: model.MemberKindFilm, ID: "f1"},
	}})
	assert.ErrorIs(t, err, model.ErrAlreadyMember)

	_, err = cr.MakeSeries(ctx, SeriesDefinition{Title: "Twice", Members: []model.MemberRef{
		{Kind: model.MemberKindFilm, ID: "f4"},
		{Kind: model.MemberKindFilm, ID: "f4"},
	}})
	assert.ErrorIs(t, err, model.ErrAlreadyMember)

	_, err = cr.MakeSeries(ctx, SeriesDefinition{Title: "Ghost", Members: []model.MemberRef{
		{Kind: model.MemberKindFilm, ID: "nope"},
	}})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMakeCollectionRating(t *testing.T) {
	ctx := context.Background()
	cr, repo := newTestCollection(t)

	box, err := cr.MakeSeries(ctx, SeriesDefinition{
		Title:     "Hawke box",
		MediaType: model.MediaTypeCollection,
		Members: []model.MemberRef{
			{Kind: model.MemberKindFilm, ID: "f4"},
			{Kind: model.MemberKindFilm, ID: "f5"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, box.UserRating)

	// not stored, a stored value would go stale
	stored, err := repo.GetSeries(ctx, box.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UserRating)

	_, err = cr.SetUserRating(ctx, "f4", 1)
	require.NoError(t, err)
	served, err := cr.GetSeries(ctx, box.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, served.UserRating)

	_, err = cr.SetUserRating(ctx, "f5", 3)
	require.NoError(t, err)
	served, err = cr.GetSeries(ctx, box.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, served.UserRating)
}

// failingRepo fails saving one film.
type failingRepo struct {
	*memory.MemoryRepo
	failFilm string
}

func (r *failingRepo) SaveFilm(ctx context.Context, film *model.Film) error {
	if film.ID == r.failFilm {
		return errors.New("disk full")
	}
	return r.MemoryRepo.SaveFilm(ctx, film)
}

func TestMakeSeriesRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepo: memory.New()}
	cr := New(&Options{Repo: repo})
	require.NoError(t, cr.Import(ctx, strings.NewReader(testLibrary)))

	def := SeriesDefinition{
		Title: "Hawke",
		Members: []model.MemberRef{
			{Kind: model.MemberKindFilm, ID: "f4"},
			{Kind: model.MemberKindFilm, ID: "f5"},
		},
	}
	repo.failFilm = "f5"
	_, err := cr.MakeSeries(ctx, def)
	require.Error(t, err)

	all, err := repo.ListSeries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bt", all[0].ID)
	f4, err := repo.GetFilm(ctx, "f4")
	require.NoError(t, err)
	assert.Empty(t, f4.ParentID)

	// the members are free again
	repo.failFilm = ""
	series, err := cr.MakeSeries(ctx, def)
	require.NoError(t, err)
	f5, err := repo.GetFilm(ctx, "f5")
	require.NoError(t, err)
	assert.Equal(t, series.ID, f5.ParentID)
}

func TestByFrequency(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, byFrequency([]string{"a", "b", "c", "b"}))
	assert.Equal(t, []string{"x", "y"}, byFrequency([]string{"x", "y"}))
	assert.Empty(t, byFrequency(nil))
}

func TestNormalizeGenres(t *testing.T) {
	assert.Equal(t, []string{"Sci-Fi", "Film Noir", "Coming-of-age"},
		normalizeGenres([]string{"science fiction", "Sci-Fi", "film-noir", "Coming-of-age", "x"}))
	assert.Empty(t, normalizeGenres(nil))
}

func TestPersonFilms(t *testing.T) {
	ctx := context.Background()
	cr, _ := newTestCollection(t)

	person, films, err := cr.PersonFilms(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Ethan Hawke", person.Name)
	var ids []string
	for _, f := range films {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"f2", "f1", "f4", "f3"}, ids)

	_, _, err = cr.PersonFilms(ctx, "p99")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDetails(t *testing.T) {
	cr, _ := newTestCollection(t)

	details, err := cr.Details(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Drama", "Romance", "Sci-Fi"}, details.Genres)
	assert.Equal(t, 1995, details.YearMin)
	assert.Equal(t, 2014, details.YearMax)
	assert.Equal(t, 80, details.RuntimeMin)
	assert.Equal(t, 165, details.RuntimeMax)
	assert.Equal(t, map[string]int{"drama": 5, "romance": 3, "sci-fi": 1}, details.GenreCount)
}

func TestSearchCollapsesSeries(t *testing.T) {
	cr, _ := newTestCollection(t)

	result, err := cr.Search(context.Background(), search.Params{Query: "before"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, model.MemberKindSeries, result.Items[0].Media.Kind)
	assert.Equal(t, "bt", result.Items[0].Media.ID())
}

func TestSuggestAndSimilar(t *testing.T) {
	ctx := context.Background()

	empty := New(&Options{Repo: memory.New()})
	_, err := empty.Suggest(ctx, "gattaca")
	assert.ErrorIs(t, err, ErrSearchIndexNotInitialized)

	cr, _ := newTestCollection(t)
	hits, err := cr.Suggest(ctx, "gattaca")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "f4", hits[0].ID)

	names, err := cr.SuggestPerson(ctx, "uma")
	require.NoError(t, err)
	assert.Equal(t, []string{"Uma Thurman"}, names)

	hits, err = cr.Similar(ctx, model.MemberRef{Kind: model.MemberKindFilm, ID: "f1"})
	require.NoError(t, err)
	ids := hitIDs(hits)
	assert.NotContains(t, ids, "f1")
	assert.NotContains(t, ids, "f2")
	assert.Contains(t, ids, "f4")

	_, err = cr.Similar(ctx, model.MemberRef{Kind: model.MemberKindFilm, ID: "nope"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetUserRating(t *testing.T) {
	ctx := context.Background()
	cr, repo := newTestCollection(t)

	film, err := cr.SetUserRating(ctx, "f3", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, film.UserRating)

	_, err = cr.SetUserRating(ctx, "f2", 0)
	require.NoError(t, err)
	bt, err := repo.GetSeries(ctx, "bt")
	require.NoError(t, err)
	assert.Equal(t, 5, bt.UserRating)

	_, err = cr.SetUserRating(ctx, "f3", 9)
	assert.ErrorIs(t, err, model.ErrInvalidRating)
}
