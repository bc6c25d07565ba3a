package model

import (
	"errors"
)

var (
	ErrNoConfiguration = errors.New("database filename not set")
	ErrNoDbHandle      = errors.New("db connection not available")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrAlreadyMember   = errors.New("item already belongs to a series")
	// ErrInvariant reports a corrupted parent chain: a cycle or a parent
	// reference that does not resolve.
	ErrInvariant = errors.New("parent chain invariant violated")
)

// MaxUserRating is the highest user rating (in stars) a film can have.
const MaxUserRating = 5

// MediaType indicates what kind of record an item is.
type MediaType string

const (
	MediaTypeFilm   MediaType = "film"
	MediaTypeSeries MediaType = "series"
	// MediaTypeCollection is a pass-through grouping such as a box set or a
	// multi-disc wrapper. It never shows up as a search result and its
	// derived rating is not stored.
	MediaTypeCollection MediaType = "collection"
)

// IsGrouping returns true for series-like media types.
func (t MediaType) IsGrouping() bool {
	return t == MediaTypeSeries || t == MediaTypeCollection
}

// MemberKind discriminates between the two record types a series member
// can refer to.
type MemberKind string

const (
	MemberKindFilm   MemberKind = "film"
	MemberKindSeries MemberKind = "series"
)

// MemberRef is a reference to a member of a series, either a film or a
// nested series.
type MemberRef struct {
	Kind MemberKind `json:"kind" validate:"oneof=film series"`
	ID   string     `json:"id" validate:"required"`
}

func (m MemberRef) String() string {
	return string(m.Kind) + ":" + m.ID
}

// Film represents a single playable media item.
type Film struct {
	// ID is the unique identifier of the film.
	ID string
	// Title is the title of the film, e.g. "Before Sunrise"
	Title string
	// AltTitle is an optional alternate title, e.g. the original language title.
	AltTitle string
	// Year is the release year.
	Year int
	// Runtime in minutes.
	Runtime int
	// Colour is false for black and white films.
	Colour bool
	// Digital indicates the film is available as a file.
	Digital bool
	// Physical indicates the film is available on disc.
	Physical bool
	// Genres in order of relevance.
	Genres []string
	// Keywords attached to the film.
	Keywords []string
	// Directors holds person IDs in credit order.
	Directors []string
	// Stars holds person IDs in credit order.
	Stars []string
	// ExternalRating is the rating from a third-party catalog (0.0 - 10.0).
	ExternalRating float64
	// UserRating is the user's own rating (0 - MaxUserRating).
	UserRating int
	// ParentID is the ID of the series this film belongs to, if any.
	ParentID string
	// Alternate is true if this film is an alternate version of another film.
	Alternate   bool
	Description string
	Image       string
}

// Series is an ordered grouping of films and nested series.
type Series struct {
	ID        string
	Title     string
	AltTitle  string
	MediaType MediaType
	// Year and YearMax are the earliest and latest release years of the members.
	Year    int
	YearMax int
	// Runtime and RuntimeMax are the shortest and longest member runtimes.
	Runtime        int
	RuntimeMax     int
	Colour         bool
	Digital        bool
	Physical       bool
	Genres         []string
	Keywords       []string
	Directors      []string
	Stars          []string
	ExternalRating float64
	// UserRating is derived: max of the direct members' ratings.
	UserRating int
	// ParentID is the ID of the enclosing series, if any.
	ParentID string
	// Members in the order they were added.
	Members     []MemberRef
	Description string
	Image       string
}

// Proper returns true if the series is a real series, and not a
// pass-through grouping.
func (s *Series) Proper() bool {
	return s.MediaType != MediaTypeCollection
}

// Person is a director or star.
type Person struct {
	ID    string
	Name  string
	Alias string
}

// Keyword is a plot keyword tag.
type Keyword struct {
	Name string
}

// Genre is a genre tag.
type Genre struct {
	Name string
}

// Media holds either a film or a series.
type Media struct {
	Kind   MemberKind
	Film   *Film
	Series *Series
}

// FilmMedia wraps a film.
func FilmMedia(f *Film) Media {
	return Media{Kind: MemberKindFilm, Film: f}
}

// SeriesMedia wraps a series.
func SeriesMedia(s *Series) Media {
	return Media{Kind: MemberKindSeries, Series: s}
}

// Ref returns the member reference pointing at this media item.
func (m Media) Ref() MemberRef {
	return MemberRef{Kind: m.Kind, ID: m.ID()}
}

func (m Media) ID() string {
	if m.Kind == MemberKindSeries {
		return m.Series.ID
	}
	return m.Film.ID
}

func (m Media) Title() string {
	if m.Kind == MemberKindSeries {
		return m.Series.Title
	}
	return m.Film.Title
}

func (m Media) UserRating() int {
	if m.Kind == MemberKindSeries {
		return m.Series.UserRating
	}
	return m.Film.UserRating
}

func (m Media) ExternalRating() float64 {
	if m.Kind == MemberKindSeries {
		return m.Series.ExternalRating
	}
	return m.Film.ExternalRating
}

func (m Media) ParentID() string {
	if m.Kind == MemberKindSeries {
		return m.Series.ParentID
	}
	return m.Film.ParentID
}

func (m Media) Genres() []string {
	if m.Kind == MemberKindSeries {
		return m.Series.Genres
	}
	return m.Film.Genres
}

// Filter holds the clauses a store applies when listing films. Nil
// pointers mean the clause is not applied.
type Filter struct {
	YearMin    *int
	YearMax    *int
	RuntimeMin *int
	RuntimeMax *int
	Colour     *bool
	Digital    *bool
	Physical   *bool
	// IncludeAlternates includes alternate versions of films.
	IncludeAlternates bool
}

// Match applies the filter to a film. Stores that cannot push the filter
// down into their query language use this.
func (f Filter) Match(film *Film) bool {
	if f.YearMin != nil && film.Year < *f.YearMin {
		return false
	}
	if f.YearMax != nil && film.Year > *f.YearMax {
		return false
	}
	if f.RuntimeMin != nil && film.Runtime < *f.RuntimeMin {
		return false
	}
	if f.RuntimeMax != nil && film.Runtime > *f.RuntimeMax {
		return false
	}
	if f.Colour != nil && film.Colour != *f.Colour {
		return false
	}
	if f.Digital != nil && film.Digital != *f.Digital {
		return false
	}
	if f.Physical != nil && film.Physical != *f.Physical {
		return false
	}
	if film.Alternate && !f.IncludeAlternates {
		return false
	}
	return true
}
