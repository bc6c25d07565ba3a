package api

import (
	"github.com/erikbos/filmbrowser/collection/index"
	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/search"
)

// SearchResponse is the result of a ranked search.
type SearchResponse struct {
	Query string `json:"query"`
	// Ignored lists the parameters that could not be parsed.
	Ignored []string     `json:"ignored,omitempty"`
	Items   []SearchItem `json:"items"`
}

type SearchItem struct {
	Kind           model.MemberKind `json:"kind"`
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	AltTitle       string           `json:"alt_title,omitempty"`
	Year           int              `json:"year,omitempty"`
	YearMax        int              `json:"year_max,omitempty"`
	UserRating     int              `json:"user_rating"`
	ExternalRating float64          `json:"external_rating"`
	Image          string           `json:"image,omitempty"`
	Score          search.Score     `json:"score"`
}

// FiltersResponse holds the values of the filter panel.
type FiltersResponse struct {
	Genres     []GenreFilter `json:"genres"`
	YearMin    int           `json:"year_min"`
	YearMax    int           `json:"year_max"`
	RuntimeMin int           `json:"runtime_min"`
	RuntimeMax int           `json:"runtime_max"`
}

type GenreFilter struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	// State is the tri-state echoed from the request: 0 neutral, 1 and,
	// 2 or, 3 not.
	State search.GenreState `json:"state"`
}

type Film struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	AltTitle       string   `json:"alt_title,omitempty"`
	Year           int      `json:"year,omitempty"`
	Runtime        int      `json:"runtime,omitempty"`
	Colour         bool     `json:"colour"`
	Digital        bool     `json:"digital"`
	Physical       bool     `json:"physical"`
	Genres         []string `json:"genres"`
	Keywords       []string `json:"keywords"`
	Directors      []string `json:"directors"`
	Stars          []string `json:"stars"`
	ExternalRating float64  `json:"external_rating"`
	UserRating     int      `json:"user_rating"`
	ParentID       string   `json:"parent_id,omitempty"`
	Alternate      bool     `json:"alternate,omitempty"`
	Description    string   `json:"description,omitempty"`
	Image          string   `json:"image,omitempty"`
}

type Series struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	AltTitle       string            `json:"alt_title,omitempty"`
	MediaType      model.MediaType   `json:"media_type"`
	Year           int               `json:"year,omitempty"`
	YearMax        int               `json:"year_max,omitempty"`
	Runtime        int               `json:"runtime,omitempty"`
	RuntimeMax     int               `json:"runtime_max,omitempty"`
	Genres         []string          `json:"genres"`
	Keywords       []string          `json:"keywords"`
	Directors      []string          `json:"directors"`
	Stars          []string          `json:"stars"`
	ExternalRating float64           `json:"external_rating"`
	UserRating     int               `json:"user_rating"`
	ParentID       string            `json:"parent_id,omitempty"`
	Members        []model.MemberRef `json:"members"`
	Description    string            `json:"description,omitempty"`
	Image          string            `json:"image,omitempty"`
}

type PersonFilms struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Films []Film `json:"films"`
}

// RatingRequest is the body of a rating change.
type RatingRequest struct {
	Rating *int `json:"rating" validate:"required"`
}

func copyFilm(f *model.Film) Film {
	return Film{
		ID:             f.ID,
		Title:          f.Title,
		AltTitle:       f.AltTitle,
		Year:           f.Year,
		Runtime:        f.Runtime,
		Colour:         f.Colour,
		Digital:        f.Digital,
		Physical:       f.Physical,
		Genres:         nonNil(f.Genres),
		Keywords:       nonNil(f.Keywords),
		Directors:      nonNil(f.Directors),
		Stars:          nonNil(f.Stars),
		ExternalRating: f.ExternalRating,
		UserRating:     f.UserRating,
		ParentID:       f.ParentID,
		Alternate:      f.Alternate,
		Description:    f.Description,
		Image:          f.Image,
	}
}

func copySeries(s *model.Series) Series {
	members := s.Members
	if members == nil {
		members = []model.MemberRef{}
	}
	return Series{
		ID:             s.ID,
		Title:          s.Title,
		AltTitle:       s.AltTitle,
		MediaType:      s.MediaType,
		Year:           s.Year,
		YearMax:        s.YearMax,
		Runtime:        s.Runtime,
		RuntimeMax:     s.RuntimeMax,
		Genres:         nonNil(s.Genres),
		Keywords:       nonNil(s.Keywords),
		Directors:      nonNil(s.Directors),
		Stars:          nonNil(s.Stars),
		ExternalRating: s.ExternalRating,
		UserRating:     s.UserRating,
		ParentID:       s.ParentID,
		Members:        members,
		Description:    s.Description,
		Image:          s.Image,
	}
}

func copySearchItem(item search.Scored) SearchItem {
	si := SearchItem{
		Kind:           item.Media.Kind,
		ID:             item.Media.ID(),
		Title:          item.Media.Title(),
		UserRating:     item.Media.UserRating(),
		ExternalRating: item.Media.ExternalRating(),
		Score:          item.Score,
	}
	if s := item.Media.Series; s != nil {
		si.AltTitle, si.Year, si.YearMax, si.Image = s.AltTitle, s.Year, s.YearMax, s.Image
	} else if f := item.Media.Film; f != nil {
		si.AltTitle, si.Year, si.Image = f.AltTitle, f.Year, f.Image
	}
	return si
}

func nonNil(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}

func nonNilHits(l []index.Hit) []index.Hit {
	if l == nil {
		return []index.Hit{}
	}
	return l
}
