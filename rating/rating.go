// Package rating keeps the derived user rating of series in sync with
// the ratings of their members.
package rating

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/metrics"
	"github.com/erikbos/filmbrowser/search"
)

// Store is the part of the record store the aggregator reads and writes.
type Store interface {
	GetFilm(ctx context.Context, filmID string) (*model.Film, error)
	SaveFilm(ctx context.Context, film *model.Film) error
	GetSeries(ctx context.Context, seriesID string) (*model.Series, error)
	SaveSeries(ctx context.Context, series *model.Series) error
}

type Options struct {
	Store Store
}

type Aggregator struct {
	store Store
	// serializes rating changes per top-level series
	rootMutexMap     map[string]*sync.Mutex
	rootMutexMapLock sync.Mutex
}

func New(o *Options) *Aggregator {
	return &Aggregator{
		store:        o.Store,
		rootMutexMap: make(map[string]*sync.Mutex),
	}
}

// SetUserRating sets the user rating of a film and recomputes the rating of
// every series above it.
func (a *Aggregator) SetUserRating(ctx context.Context, filmID string, rating int) (*model.Film, error) {
	if rating < 0 || rating > model.MaxUserRating {
		metrics.RecordRatingPropagation("invalid")
		return nil, fmt.Errorf("%w: %d not in 0..%d", model.ErrInvalidRating, rating, model.MaxUserRating)
	}

	film, err := a.store.GetFilm(ctx, filmID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.RecordRatingPropagation("not_found")
		}
		return nil, err
	}

	unlock, err := a.lockRoot(ctx, film.ID, func() (string, error) {
		f, err := a.store.GetFilm(ctx, filmID)
		if err != nil {
			return "", err
		}
		return f.ParentID, nil
	})
	if err != nil {
		metrics.RecordRatingPropagation("error")
		return nil, err
	}
	defer unlock()

	// reload under the lock
	if film, err = a.store.GetFilm(ctx, filmID); err != nil {
		return nil, err
	}
	film.UserRating = rating
	if err = a.store.SaveFilm(ctx, film); err != nil {
		metrics.RecordRatingPropagation("error")
		return nil, err
	}

	if err = a.propagate(ctx, model.FilmMedia(film)); err != nil {
		log.Error().Err(err).Str("film", filmID).Msg("rating propagation failed")
		metrics.RecordRatingPropagation("error")
		return nil, err
	}
	metrics.RecordRatingPropagation("ok")
	log.Debug().Str("film", filmID).Int("rating", rating).Msg("user rating set")
	return film, nil
}

// Recompute recomputes the rating of a series and of every series above it.
func (a *Aggregator) Recompute(ctx context.Context, seriesID string) error {
	unlock, err := a.lockRoot(ctx, seriesID, func() (string, error) {
		return seriesID, nil
	})
	if err != nil {
		return err
	}
	defer unlock()

	return a.propagateFrom(ctx, seriesID, nil)
}

// Rating returns the user rating of series. Collections do not store
// theirs, it is computed from their members.
func (a *Aggregator) Rating(ctx context.Context, series *model.Series) (int, error) {
	if series.Proper() {
		return series.UserRating, nil
	}
	return a.maxMemberRating(ctx, series, make(map[model.MemberRef]int), nil)
}

// propagate walks up from item and recomputes the rating of each ancestor.
func (a *Aggregator) propagate(ctx context.Context, item model.Media) error {
	// The item itself was just saved, its new rating is authoritative.
	computed := map[model.MemberRef]int{item.Ref(): item.UserRating()}
	return a.propagateFrom(ctx, item.ParentID(), computed)
}

// propagateFrom recomputes parentID and its ancestors. computed holds
// ratings already known in this walk, which is needed because pass-through
// collections are not saved.
func (a *Aggregator) propagateFrom(ctx context.Context, parentID string, computed map[model.MemberRef]int) error {
	if computed == nil {
		computed = make(map[model.MemberRef]int)
	}
	chain, err := search.Ancestors(ctx, a.store, parentID)
	if err != nil {
		return err
	}
	for _, series := range chain {
		rating, err := a.maxMemberRating(ctx, series, computed, nil)
		if err != nil {
			return err
		}
		computed[model.MemberRef{Kind: model.MemberKindSeries, ID: series.ID}] = rating

		if !series.Proper() || series.UserRating == rating {
			continue
		}
		series.UserRating = rating
		if err := a.store.SaveSeries(ctx, series); err != nil {
			return err
		}
	}
	return nil
}

// maxMemberRating returns the highest rating of the direct members of
// series. Members that are collections are expanded into their members.
func (a *Aggregator) maxMemberRating(ctx context.Context, series *model.Series, computed map[model.MemberRef]int, visiting map[string]struct{}) (int, error) {
	if visiting == nil {
		visiting = make(map[string]struct{})
	}
	if _, ok := visiting[series.ID]; ok {
		return 0, fmt.Errorf("%w: series %s contains itself", model.ErrInvariant, series.ID)
	}
	visiting[series.ID] = struct{}{}

	rating := 0
	for _, member := range series.Members {
		if r, ok := computed[member]; ok {
			rating = max(rating, r)
			continue
		}
		switch member.Kind {
		case model.MemberKindFilm:
			f, err := a.store.GetFilm(ctx, member.ID)
			if err != nil {
				return 0, a.memberError(series, member, err)
			}
			rating = max(rating, f.UserRating)
		case model.MemberKindSeries:
			s, err := a.store.GetSeries(ctx, member.ID)
			if err != nil {
				return 0, a.memberError(series, member, err)
			}
			if !s.Proper() {
				// collections do not store their rating
				r, err := a.maxMemberRating(ctx, s, computed, visiting)
				if err != nil {
					return 0, err
				}
				computed[member] = r
				rating = max(rating, r)
				continue
			}
			rating = max(rating, s.UserRating)
		default:
			return 0, fmt.Errorf("%w: series %s has member %s of unknown kind", model.ErrInvariant, series.ID, member)
		}
	}
	return rating, nil
}

func (a *Aggregator) memberError(series *model.Series, member model.MemberRef, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: series %s has dangling member %s", model.ErrInvariant, series.ID, member)
	}
	return err
}

// lockRoot locks the mutex of the top-level series above the item key, or
// the mutex of key itself when the item has no parent. parentOf returns the
// current parent of the item, it is called again once the lock is held and
// the lock is retried when the item was moved to another root meanwhile.
// The returned function unlocks the mutex.
func (a *Aggregator) lockRoot(ctx context.Context, key string, parentOf func() (string, error)) (func(), error) {
	for {
		root, err := a.rootOf(ctx, key, parentOf)
		if err != nil {
			return nil, err
		}
		m := a.rootMutex(root)
		m.Lock()

		current, err := a.rootOf(ctx, key, parentOf)
		if err == nil && current == root {
			return m.Unlock, nil
		}
		m.Unlock()
		if err != nil {
			return nil, err
		}
	}
}

func (a *Aggregator) rootOf(ctx context.Context, key string, parentOf func() (string, error)) (string, error) {
	parentID, err := parentOf()
	if err != nil || parentID == "" {
		return key, err
	}
	chain, err := search.Ancestors(ctx, a.store, parentID)
	if err != nil {
		return "", err
	}
	return chain[len(chain)-1].ID, nil
}

func (a *Aggregator) rootMutex(root string) *sync.Mutex {
	a.rootMutexMapLock.Lock()
	defer a.rootMutexMapLock.Unlock()

	m, ok := a.rootMutexMap[root]
	if !ok {
		m = &sync.Mutex{}
		a.rootMutexMap[root] = m
	}
	return m
}

// LockRoots locks the rating changes of top-level items, for moving them
// into a new series. Mutexes are taken in sorted order. The returned
// function unlocks them.
func (a *Aggregator) LockRoots(ids ...string) func() {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	locked := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := a.rootMutex(id)
		m.Lock()
		locked = append(locked, m)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
