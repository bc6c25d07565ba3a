package rating

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/filmbrowser/database/memory"
	"github.com/erikbos/filmbrowser/database/model"
)

func filmRef(id string) model.MemberRef {
	return model.MemberRef{Kind: model.MemberKindFilm, ID: id}
}

func seriesRef(id string) model.MemberRef {
	return model.MemberRef{Kind: model.MemberKindSeries, ID: id}
}

// newChain builds film f -> series A -> series B, with sibling g in A and
// film h in B.
func newChain(t *testing.T) *memory.MemoryRepo {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()
	for _, f := range []*model.Film{
		{ID: "f", Title: "Before Sunrise", UserRating: 2, ParentID: "A"},
		{ID: "g", Title: "Before Sunset", UserRating: 3, ParentID: "A"},
		{ID: "h", Title: "Boyhood", UserRating: 4, ParentID: "B"},
	} {
		require.NoError(t, repo.SaveFilm(ctx, f))
	}
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "A", MediaType: model.MediaTypeSeries,
		UserRating: 3, ParentID: "B", Members: []model.MemberRef{filmRef("f"), filmRef("g")}}))
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "B", MediaType: model.MediaTypeSeries,
		UserRating: 4, Members: []model.MemberRef{seriesRef("A"), filmRef("h")}}))
	return repo
}

func seriesRating(t *testing.T, repo *memory.MemoryRepo, id string) int {
	t.Helper()
	s, err := repo.GetSeries(context.Background(), id)
	require.NoError(t, err)
	return s.UserRating
}

func TestSetUserRatingPropagates(t *testing.T) {
	ctx := context.Background()
	repo := newChain(t)
	a := New(&Options{Store: repo})

	film, err := a.SetUserRating(ctx, "f", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, film.UserRating)
	assert.Equal(t, 5, seriesRating(t, repo, "A"))
	assert.Equal(t, 5, seriesRating(t, repo, "B"))

	stored, err := repo.GetFilm(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.UserRating)

	// lowering falls back to the siblings
	_, err = a.SetUserRating(ctx, "f", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, seriesRating(t, repo, "A"))
	assert.Equal(t, 4, seriesRating(t, repo, "B"))
}

func TestPropagationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newChain(t)
	a := New(&Options{Store: repo})

	_, err := a.SetUserRating(ctx, "f", 5)
	require.NoError(t, err)
	before, err := repo.ListSeries(ctx)
	require.NoError(t, err)

	_, err = a.SetUserRating(ctx, "f", 5)
	require.NoError(t, err)
	require.NoError(t, a.Recompute(ctx, "A"))
	require.NoError(t, a.Recompute(ctx, "A"))

	after, err := repo.ListSeries(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetUserRatingErrors(t *testing.T) {
	ctx := context.Background()
	repo := newChain(t)
	a := New(&Options{Store: repo})

	_, err := a.SetUserRating(ctx, "f", 6)
	assert.ErrorIs(t, err, model.ErrInvalidRating)
	_, err = a.SetUserRating(ctx, "f", -1)
	assert.ErrorIs(t, err, model.ErrInvalidRating)

	_, err = a.SetUserRating(ctx, "nope", 3)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// nothing changed
	assert.Equal(t, 3, seriesRating(t, repo, "A"))
}

func TestStandaloneFilm(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	require.NoError(t, repo.SaveFilm(ctx, &model.Film{ID: "x", Title: "Gattaca"}))
	a := New(&Options{Store: repo})

	film, err := a.SetUserRating(ctx, "x", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, film.UserRating)
}

func TestCollectionRatingIsNotStored(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	for _, f := range []*model.Film{
		{ID: "d1", Title: "Disc 1", ParentID: "box"},
		{ID: "d2", Title: "Disc 2", ParentID: "box"},
		{ID: "e", Title: "Extra", UserRating: 2, ParentID: "S"},
	} {
		require.NoError(t, repo.SaveFilm(ctx, f))
	}
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "box", MediaType: model.MediaTypeCollection,
		ParentID: "S", Members: []model.MemberRef{filmRef("d1"), filmRef("d2")}}))
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "S", MediaType: model.MediaTypeSeries,
		UserRating: 2, Members: []model.MemberRef{seriesRef("box"), filmRef("e")}}))

	a := New(&Options{Store: repo})
	_, err := a.SetUserRating(ctx, "d1", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, seriesRating(t, repo, "box"))
	assert.Equal(t, 5, seriesRating(t, repo, "S"))

	// recomputing S expands the collection again
	require.NoError(t, a.Recompute(ctx, "S"))
	assert.Equal(t, 5, seriesRating(t, repo, "S"))

	// the rating of the collection itself is computed on read
	box, err := repo.GetSeries(ctx, "box")
	require.NoError(t, err)
	rating, err := a.Rating(ctx, box)
	require.NoError(t, err)
	assert.Equal(t, 5, rating)

	_, err = a.SetUserRating(ctx, "d1", 1)
	require.NoError(t, err)
	rating, err = a.Rating(ctx, box)
	require.NoError(t, err)
	assert.Equal(t, 1, rating)

	s, err := repo.GetSeries(ctx, "S")
	require.NoError(t, err)
	rating, err = a.Rating(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, rating)
}

func TestSetUserRatingFollowsMovedFilm(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	require.NoError(t, repo.SaveFilm(ctx, &model.Film{ID: "x", Title: "Boyhood", UserRating: 1}))
	a := New(&Options{Store: repo})

	unlock := a.LockRoots("x", "x")
	done := make(chan error)
	go func() {
		_, err := a.SetUserRating(ctx, "x", 5)
		done <- err
	}()

	// move x into a new series while the rating change waits
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "N", MediaType: model.MediaTypeSeries,
		UserRating: 1, Members: []model.MemberRef{filmRef("x")}}))
	x, err := repo.GetFilm(ctx, "x")
	require.NoError(t, err)
	x.ParentID = "N"
	require.NoError(t, repo.SaveFilm(ctx, x))
	unlock()

	require.NoError(t, <-done)
	assert.Equal(t, 5, seriesRating(t, repo, "N"))
}

func TestInvariantViolations(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	require.NoError(t, repo.SaveFilm(ctx, &model.Film{ID: "q", ParentID: "c1"}))
	require.NoError(t, repo.SaveFilm(ctx, &model.Film{ID: "d", ParentID: "missing"}))
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "c1", MediaType: model.MediaTypeSeries,
		ParentID: "c2", Members: []model.MemberRef{filmRef("q"), seriesRef("c2")}}))
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "c2", MediaType: model.MediaTypeSeries,
		ParentID: "c1", Members: []model.MemberRef{seriesRef("c1")}}))
	require.NoError(t, repo.SaveSeries(ctx, &model.Series{ID: "dm", MediaType: model.MediaTypeSeries,
		Members: []model.MemberRef{filmRef("gone")}}))

	a := New(&Options{Store: repo})
	_, err := a.SetUserRating(ctx, "q", 3)
	assert.ErrorIs(t, err, model.ErrInvariant)

	_, err = a.SetUserRating(ctx, "d", 3)
	assert.ErrorIs(t, err, model.ErrInvariant)

	assert.ErrorIs(t, a.Recompute(ctx, "dm"), model.ErrInvariant)
}

func TestConcurrentSiblingRatings(t *testing.T) {
	ctx := context.Background()
	repo := newChain(t)
	a := New(&Options{Store: repo})

	var wg sync.WaitGroup
	for _, change := range []struct {
		id     string
		rating int
	}{{"f", 5}, {"g", 1}, {"h", 2}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.SetUserRating(ctx, change.id, change.rating)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, seriesRating(t, repo, "A"))
	assert.Equal(t, 5, seriesRating(t, repo, "B"))
}
