package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/filmbrowser/database/model"
)

func newTestRepo(t *testing.T) *SqliteRepo {
	t.Helper()
	repo, err := New(&ConfigFile{Filename: filepath.Join(t.TempDir(), "films.db")})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, repo *SqliteRepo) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.SavePerson(ctx, &model.Person{ID: "p1", Name: "Ethan Hawke"}))
	require.NoError(t, repo.SavePerson(ctx, &model.Person{ID: "p2", Name: "Richard Linklater", Alias: "Rick"}))
	films := []*model.Film{
		{ID: "f1", Title: "Before Sunrise", Year: 1995, Runtime: 101, Colour: true, Digital: true,
			Genres: []string{"Drama", "Romance"}, Keywords: []string{"vienna", "train"},
			Directors: []string{"p2"}, Stars: []string{"p1", "p3"}},
		{ID: "f2", Title: "Boyhood", Year: 2014, Runtime: 165, Colour: true, Physical: true,
			Genres: []string{"Drama"}, Directors: []string{"p2"}, Stars: []string{"p1"}},
		{ID: "f3", Title: "Paper Moon", AltTitle: "Addie Pray", Year: 1973, Runtime: 102,
			Genres: []string{"Comedy"}, Keywords: []string{"con artist"}},
		{ID: "f4", Title: "Before Sunrise (Director's Cut)", Year: 1995, Colour: true, Alternate: true},
	}
	for _, f := range films {
		require.NoError(t, repo.SaveFilm(ctx, f))
	}
}

func ids(films []*model.Film) []string {
	var result []string
	for _, f := range films {
		result = append(result, f.ID)
	}
	return result
}

func TestNewNoFilename(t *testing.T) {
	_, err := New(&ConfigFile{})
	assert.ErrorIs(t, err, model.ErrNoConfiguration)
}

func TestSaveAndGetFilm(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	f, err := repo.GetFilm(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Before Sunrise", f.Title)
	assert.Equal(t, []string{"Drama", "Romance"}, f.Genres)
	assert.Equal(t, []string{"vienna", "train"}, f.Keywords)
	assert.Equal(t, []string{"p1", "p3"}, f.Stars)
	assert.Equal(t, []string{"p2"}, f.Directors)
	assert.True(t, f.Colour)
	assert.True(t, f.Digital)
	assert.False(t, f.Physical)

	_, err = repo.GetFilm(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSaveFilmKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	f, err := repo.GetFilm(ctx, "f1")
	require.NoError(t, err)
	f.UserRating = 4
	require.NoError(t, repo.SaveFilm(ctx, f))

	films, err := repo.ListFilms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, ids(films))
	assert.Equal(t, 4, films[0].UserRating)
	assert.Equal(t, []string{"p1", "p3"}, films[0].Stars)
}

func TestFindFilms(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	films, err := repo.FindFilms(ctx, `(?i)(^|\W)(before)($|\W)`, model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, ids(films))

	films, err = repo.FindFilms(ctx, `(?i)(^|\W)(before)($|\W)`, model.Filter{IncludeAlternates: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f4"}, ids(films))

	films, err = repo.FindFilms(ctx, `(?i)addie`, model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f3"}, ids(films))

	yearMin, runtimeMax := 1990, 120
	films, err = repo.FindFilms(ctx, "", model.Filter{YearMin: &yearMin, RuntimeMax: &runtimeMax})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, ids(films))

	physical := true
	films, err = repo.FindFilms(ctx, "", model.Filter{Physical: &physical})
	require.NoError(t, err)
	assert.Equal(t, []string{"f2"}, ids(films))

	colour := false
	films, err = repo.FindFilms(ctx, "", model.Filter{Colour: &colour})
	require.NoError(t, err)
	assert.Equal(t, []string{"f3"}, ids(films))
}

func TestFilmsForPersonAndKeyword(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	films, err := repo.FilmsForPerson(ctx, "p1", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, ids(films))

	films, err = repo.FilmsForPerson(ctx, "p2", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, ids(films))

	films, err = repo.FilmsForKeyword(ctx, "vienna", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, ids(films))

	keywords, err := repo.FindKeywords(ctx, `(?i)art`)
	require.NoError(t, err)
	assert.Equal(t, []model.Keyword{{Name: "con artist"}}, keywords)

	keywords, err = repo.FindKeywords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keywords, 3)
}

func TestPeople(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	people, err := repo.FindPeople(ctx, `(?i)rick`)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Richard Linklater", people[0].Name)

	p, err := repo.GetPerson(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ethan Hawke", p.Name)

	_, err = repo.GetPerson(ctx, "p9")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSeries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	series := &model.Series{
		ID: "s1", Title: "Linklater", MediaType: model.MediaTypeSeries,
		Year: 1995, YearMax: 2014, Genres: []string{"Drama", "Family"},
		Directors: []string{"p2"},
		Members: []model.MemberRef{
			{Kind: model.MemberKindFilm, ID: "f2"},
			{Kind: model.MemberKindFilm, ID: "f1"},
		},
	}
	require.NoError(t, repo.SaveSeries(ctx, series))

	got, err := repo.GetSeries(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, series.Members, got.Members)
	assert.Equal(t, model.MediaTypeSeries, got.MediaType)
	assert.Equal(t, []string{"Drama", "Family"}, got.Genres)
	assert.Equal(t, 2014, got.YearMax)

	other := &model.Series{ID: "s2", Title: "Other", MediaType: model.MediaTypeCollection,
		Members: []model.MemberRef{{Kind: model.MemberKindFilm, ID: "f1"}}}
	assert.ErrorIs(t, repo.SaveSeries(ctx, other), model.ErrAlreadyMember)

	got.UserRating = 3
	require.NoError(t, repo.SaveSeries(ctx, got))

	all, err := repo.ListSeries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 3, all[0].UserRating)
	assert.Equal(t, series.Members, all[0].Members)

	_, err = repo.GetSeries(ctx, "s9")
	assert.ErrorIs(t, err, model.ErrNotFound)

	genres, err := repo.ListGenres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Genre{{Name: "Drama"}, {Name: "Romance"}, {Name: "Comedy"}, {Name: "Family"}}, genres)
}

func TestRegexpMatch(t *testing.T) {
	ok, err := regexpMatch(`(?i)sun`, "Before Sunrise")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = regexpMatch(`(?i)sun`, "Boyhood")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = regexpMatch(`(`, "x")
	assert.Error(t, err)
}

func TestDeleteSeries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	s1 := &model.Series{ID: "s1", Title: "Linklater", MediaType: model.MediaTypeSeries,
		Members: []model.MemberRef{{Kind: model.MemberKindFilm, ID: "f1"}, {Kind: model.MemberKindFilm, ID: "f2"}}}
	require.NoError(t, repo.SaveSeries(ctx, s1))
	require.NoError(t, repo.DeleteSeries(ctx, "s1"))

	_, err := repo.GetSeries(ctx, "s1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	all, err := repo.ListSeries(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// the members can join another series
	s2 := &model.Series{ID: "s2", Title: "Other", MediaType: model.MediaTypeSeries,
		Members: []model.MemberRef{{Kind: model.MemberKindFilm, ID: "f2"}}}
	require.NoError(t, repo.SaveSeries(ctx, s2))

	assert.ErrorIs(t, repo.DeleteSeries(ctx, "s1"), model.ErrNotFound)
}

func TestListFilmsLargeLibrary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	const count = 3*maxInVariables + 7
	for i := range count {
		require.NoError(t, repo.SaveFilm(ctx, &model.Film{
			ID:        fmt.Sprintf("f%04d", i),
			Title:     fmt.Sprintf("Film %d", i),
			Year:      1950 + i%70,
			Stars:     []string{fmt.Sprintf("p%d", i)},
			Directors: []string{"d1"},
			Keywords:  []string{"kw", fmt.Sprintf("k%d", i)},
		}))
	}

	films, err := repo.ListFilms(ctx)
	require.NoError(t, err)
	require.Len(t, films, count)
	for i, f := range films {
		assert.Equal(t, []string{fmt.Sprintf("p%d", i)}, f.Stars, f.ID)
		assert.Equal(t, []string{"d1"}, f.Directors, f.ID)
		assert.Equal(t, []string{"kw", fmt.Sprintf("k%d", i)}, f.Keywords, f.ID)
	}

	found, err := repo.FindFilms(ctx, "", model.Filter{})
	require.NoError(t, err)
	assert.Len(t, found, count)
}
