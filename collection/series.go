package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/idhash"
)

// SeriesDefinition describes a series to build out of existing films and series.
type SeriesDefinition struct {
	// ID of the new series, derived from title and members if empty.
	ID          string            `json:"id"`
	Title       string            `json:"title" validate:"required"`
	AltTitle    string            `json:"alt_title"`
	Description string            `json:"description"`
	MediaType   model.MediaType   `json:"media_type" validate:"omitempty,oneof=series collection"`
	Members     []model.MemberRef `json:"members" validate:"required,min=1,dive"`
}

var ErrNoMembers = errors.New("series needs at least one member")

// MakeSeries creates a series out of members, in the given order. Ranges,
// credits and flags are derived from the members. The members are moved
// into the series and the ratings of the new series are computed.
func (cr *CollectionRepo) MakeSeries(ctx context.Context, def SeriesDefinition) (*model.Series, error) {
	if len(def.Members) == 0 {
		return nil, ErrNoMembers
	}
	ids := make([]string, 0, len(def.Members))
	seen := make(map[model.MemberRef]struct{}, len(def.Members))
	for _, ref := range def.Members {
		if _, ok := seen[ref]; ok {
			return nil, fmt.Errorf("%w: %s listed twice", model.ErrAlreadyMember, ref)
		}
		seen[ref] = struct{}{}
		ids = append(ids, ref.ID)
	}

	series, err := cr.moveIntoSeries(ctx, def, ids)
	if err != nil {
		return nil, err
	}
	if err := cr.rating.Recompute(ctx, series.ID); err != nil {
		return nil, err
	}
	log.Info().Str("series", series.ID).Str("title", series.Title).
		Int("members", len(def.Members)).Msg("series created")

	// reload, the rating was recomputed
	if series, err = cr.GetSeries(ctx, series.ID); err != nil {
		return nil, err
	}
	if idx := cr.bleveIndex.Load(); idx != nil && series.Proper() {
		if err := idx.Index(ctx, cr.seriesDocument(series)); err != nil {
			log.Warn().Err(err).Str("series", series.ID).Msg("adding series to search index")
		}
	}
	return series, nil
}

// moveIntoSeries saves the new series and sets it as parent of its members.
// The members are top-level items, their rating changes are locked while
// they are moved. On failure the series is removed again.
func (cr *CollectionRepo) moveIntoSeries(ctx context.Context, def SeriesDefinition, ids []string) (*model.Series, error) {
	unlock := cr.rating.LockRoots(ids...)
	defer unlock()

	members := make([]model.Media, 0, len(def.Members))
	for _, ref := range def.Members {
		m, err := cr.loadMember(ctx, ref)
		if err != nil {
			return nil, err
		}
		if m.ParentID() != "" {
			return nil, fmt.Errorf("%w: %s is part of %s", model.ErrAlreadyMember, ref, m.ParentID())
		}
		members = append(members, m)
	}

	series := deriveSeries(def, members)
	if series.ID == "" {
		refs := make([]string, 0, len(def.Members))
		for _, ref := range def.Members {
			refs = append(refs, ref.String())
		}
		series.ID = idhash.Hash(series.Title + "|" + strings.Join(refs, ","))
	}
	if _, err := cr.repo.GetSeries(ctx, series.ID); err == nil {
		return nil, fmt.Errorf("series %s: %w", series.ID, model.ErrAlreadyMember)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	if err := cr.repo.SaveSeries(ctx, series); err != nil {
		return nil, err
	}
	for i, m := range members {
		if err := cr.setParent(ctx, m, series.ID); err != nil {
			cr.undoSeries(ctx, series.ID, members[:i])
			return nil, err
		}
	}
	return series, nil
}

// undoSeries releases the members moved so far and removes the series.
func (cr *CollectionRepo) undoSeries(ctx context.Context, seriesID string, moved []model.Media) {
	for _, m := range moved {
		if err := cr.setParent(ctx, m, ""); err != nil {
			log.Error().Err(err).Str("series", seriesID).Str("member", m.Ref().String()).
				Msg("releasing member of failed series")
		}
	}
	if err := cr.repo.DeleteSeries(ctx, seriesID); err != nil {
		log.Error().Err(err).Str("series", seriesID).Msg("removing failed series")
	}
}

func (cr *CollectionRepo) loadMember(ctx context.Context, ref model.MemberRef) (model.Media, error) {
	switch ref.Kind {
	case model.MemberKindFilm:
		f, err := cr.repo.GetFilm(ctx, ref.ID)
		if err != nil {
			return model.Media{}, fmt.Errorf("member %s: %w", ref, err)
		}
		return model.FilmMedia(f), nil
	case model.MemberKindSeries:
		s, err := cr.repo.GetSeries(ctx, ref.ID)
		if err != nil {
			return model.Media{}, fmt.Errorf("member %s: %w", ref, err)
		}
		return model.SeriesMedia(s), nil
	}
	return model.Media{}, fmt.Errorf("member %s: unknown kind %q", ref.ID, ref.Kind)
}

func (cr *CollectionRepo) setParent(ctx context.Context, m model.Media, parentID string) error {
	if m.Kind == model.MemberKindSeries {
		m.Series.ParentID = parentID
		return cr.repo.SaveSeries(ctx, m.Series)
	}
	m.Film.ParentID = parentID
	return cr.repo.SaveFilm(ctx, m.Film)
}

// deriveSeries builds the series record from its members.
func deriveSeries(def SeriesDefinition, members []model.Media) *model.Series {
	s := &model.Series{
		ID:          def.ID,
		Title:       def.Title,
		AltTitle:    def.AltTitle,
		MediaType:   def.MediaType,
		Description: def.Description,
		Members:     def.Members,
	}
	if s.MediaType == "" {
		s.MediaType = model.MediaTypeSeries
	}
	if s.Description == "" {
		s.Description = s.Title
	}

	var directors, stars, genres, keywords []string
	var externalRating float64
	var userRating int
	for i, m := range members {
		var year, yearMax, runtime, runtimeMax int
		var colour, digital, physical bool
		var image string
		switch m.Kind {
		case model.MemberKindSeries:
			ms := m.Series
			year, yearMax, runtime, runtimeMax = ms.Year, ms.YearMax, ms.Runtime, ms.RuntimeMax
			colour, digital, physical, image = ms.Colour, ms.Digital, ms.Physical, ms.Image
			directors = append(directors, ms.Directors...)
			stars = append(stars, ms.Stars...)
			keywords = append(keywords, ms.Keywords...)
		default:
			mf := m.Film
			year, yearMax, runtime, runtimeMax = mf.Year, mf.Year, mf.Runtime, mf.Runtime
			colour, digital, physical, image = mf.Colour, mf.Digital, mf.Physical, mf.Image
			directors = append(directors, mf.Directors...)
			stars = append(stars, mf.Stars...)
			keywords = append(keywords, mf.Keywords...)
		}
		genres = append(genres, m.Genres()...)

		if i == 0 {
			s.Year, s.YearMax, s.Runtime, s.RuntimeMax = year, yearMax, runtime, runtimeMax
			s.Image = image
		} else {
			s.Year = min(s.Year, year)
			s.YearMax = max(s.YearMax, yearMax)
			s.Runtime = min(s.Runtime, runtime)
			s.RuntimeMax = max(s.RuntimeMax, runtimeMax)
		}
		s.Colour = s.Colour || colour
		s.Digital = s.Digital || digital
		s.Physical = s.Physical || physical
		userRating = max(userRating, m.UserRating())
		externalRating += m.ExternalRating()
	}
	// a collection's rating is computed when it is read
	if s.Proper() {
		s.UserRating = userRating
	}
	s.ExternalRating = externalRating / float64(len(members))
	s.Directors = byFrequency(directors)
	s.Stars = byFrequency(stars)
	s.Genres = byFrequency(genres)
	s.Keywords = byFrequency(keywords)
	return s
}

// byFrequency returns the distinct values of l, most frequent first. Ties
// keep the order of first occurrence.
func byFrequency(l []string) []string {
	count := make(map[string]int, len(l))
	var unique []string
	for _, v := range l {
		if count[v] == 0 {
			unique = append(unique, v)
		}
		count[v]++
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return count[unique[i]] > count[unique[j]]
	})
	return unique
}
