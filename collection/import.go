package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/database/model"
)

// Library is a dump of already resolved records, as read by Import.
type Library struct {
	Persons []ImportPerson `json:"persons" validate:"dive"`
	Films   []ImportFilm   `json:"films" validate:"dive"`
	Series  []ImportSeries `json:"series" validate:"dive"`
}

type ImportPerson struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Alias string `json:"alias"`
}

type ImportFilm struct {
	ID             string   `json:"id" validate:"required"`
	Title          string   `json:"title" validate:"required"`
	AltTitle       string   `json:"alt_title"`
	Year           int      `json:"year" validate:"gte=0"`
	Runtime        int      `json:"runtime" validate:"gte=0"`
	Colour         bool     `json:"colour"`
	Digital        bool     `json:"digital"`
	Physical       bool     `json:"physical"`
	Genres         []string `json:"genres"`
	Keywords       []string `json:"keywords"`
	Directors      []string `json:"directors"`
	Stars          []string `json:"stars"`
	ExternalRating float64  `json:"external_rating" validate:"gte=0,lte=10"`
	UserRating     int      `json:"user_rating" validate:"gte=0,lte=5"`
	Alternate      bool     `json:"alternate"`
	Description    string   `json:"description"`
	Image          string   `json:"image"`
}

type ImportSeries struct {
	ID             string            `json:"id" validate:"required"`
	Title          string            `json:"title" validate:"required"`
	AltTitle       string            `json:"alt_title"`
	MediaType      model.MediaType   `json:"media_type" validate:"omitempty,oneof=series collection"`
	ExternalRating float64           `json:"external_rating" validate:"gte=0,lte=10"`
	Description    string            `json:"description"`
	Image          string            `json:"image"`
	Members        []model.MemberRef `json:"members" validate:"required,min=1,dive"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks a request or import record against its validate tags.
func Validate(s any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(s)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		if fe.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			messages = append(messages, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return &ValidationError{Fields: messages}
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Import loads a JSON library dump into the store. Parent references are
// taken from the series member lists, series ratings are derived from
// their members. The quick-search index is rebuilt afterwards.
func (cr *CollectionRepo) Import(ctx context.Context, r io.Reader) error {
	var lib Library
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.DecodeContext(ctx, &lib); err != nil {
		return fmt.Errorf("decoding library: %w", err)
	}
	if err := Validate(&lib); err != nil {
		return err
	}

	parents := make(map[model.MemberRef]string)
	for _, s := range lib.Series {
		for _, m := range s.Members {
			if owner, ok := parents[m]; ok {
				return fmt.Errorf("%w: %s in %s and %s", model.ErrAlreadyMember, m, owner, s.ID)
			}
			parents[m] = s.ID
		}
	}

	for _, p := range lib.Persons {
		if err := cr.repo.SavePerson(ctx, &model.Person{ID: p.ID, Name: p.Name, Alias: p.Alias}); err != nil {
			return err
		}
	}
	for _, f := range lib.Films {
		film := &model.Film{
			ID:             f.ID,
			Title:          f.Title,
			AltTitle:       f.AltTitle,
			Year:           f.Year,
			Runtime:        f.Runtime,
			Colour:         f.Colour,
			Digital:        f.Digital,
			Physical:       f.Physical,
			Genres:         normalizeGenres(f.Genres),
			Keywords:       f.Keywords,
			Directors:      f.Directors,
			Stars:          f.Stars,
			ExternalRating: f.ExternalRating,
			UserRating:     f.UserRating,
			ParentID:       parents[model.MemberRef{Kind: model.MemberKindFilm, ID: f.ID}],
			Alternate:      f.Alternate,
			Description:    f.Description,
			Image:          f.Image,
		}
		if err := cr.repo.SaveFilm(ctx, film); err != nil {
			return err
		}
	}

	for _, s := range lib.Series {
		series, err := cr.importSeries(ctx, s, parents)
		if err != nil {
			return err
		}
		if err = cr.repo.SaveSeries(ctx, series); err != nil {
			return fmt.Errorf("series %s: %w", s.ID, err)
		}
	}
	for _, s := range lib.Series {
		if err := cr.rating.Recompute(ctx, s.ID); err != nil {
			return err
		}
	}
	log.Info().Int("persons", len(lib.Persons)).Int("films", len(lib.Films)).
		Int("series", len(lib.Series)).Msg("library imported")

	return cr.BuildSearchIndex(ctx)
}

// importSeries derives ranges and credits of an imported series from its
// film members. Nested series contribute once they are stored.
func (cr *CollectionRepo) importSeries(ctx context.Context, s ImportSeries, parents map[model.MemberRef]string) (*model.Series, error) {
	members := make([]model.Media, 0, len(s.Members))
	for _, ref := range s.Members {
		m, err := cr.loadMember(ctx, ref)
		if errors.Is(err, model.ErrNotFound) && ref.Kind == model.MemberKindSeries {
			// nested series listed later in the dump
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.ID, err)
		}
		members = append(members, m)
	}

	def := SeriesDefinition{
		ID:          s.ID,
		Title:       s.Title,
		AltTitle:    s.AltTitle,
		Description: s.Description,
		MediaType:   s.MediaType,
		Members:     s.Members,
	}
	series := &model.Series{ID: s.ID, Title: s.Title, MediaType: model.MediaTypeSeries, Members: s.Members}
	if len(members) > 0 {
		series = deriveSeries(def, members)
	} else if s.MediaType != "" {
		series.MediaType = s.MediaType
	}
	series.ParentID = parents[model.MemberRef{Kind: model.MemberKindSeries, ID: s.ID}]
	if s.ExternalRating != 0 {
		series.ExternalRating = s.ExternalRating
	}
	if s.Image != "" {
		series.Image = s.Image
	}
	return series, nil
}
