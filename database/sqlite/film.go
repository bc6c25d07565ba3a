package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/metrics"
)

const (
	roleStar     = "star"
	roleDirector = "director"

	// stays below SQLITE_MAX_VARIABLE_NUMBER of older SQLite builds (999)
	maxInVariables = 500

	filmColumns = `f.id, f.title, f.alt_title, f.year, f.runtime, f.colour, f.digital, f.physical,
		f.genres, f.external_rating, f.user_rating, f.parent_id, f.alternate, f.description, f.image`
)

type filmRow struct {
	ID             string  `db:"id"`
	Title          string  `db:"title"`
	AltTitle       string  `db:"alt_title"`
	Year           int     `db:"year"`
	Runtime        int     `db:"runtime"`
	Colour         bool    `db:"colour"`
	Digital        bool    `db:"digital"`
	Physical       bool    `db:"physical"`
	Genres         string  `db:"genres"`
	ExternalRating float64 `db:"external_rating"`
	UserRating     int     `db:"user_rating"`
	ParentID       string  `db:"parent_id"`
	Alternate      bool    `db:"alternate"`
	Description    string  `db:"description"`
	Image          string  `db:"image"`
}

func (r *filmRow) film() *model.Film {
	return &model.Film{
		ID:             r.ID,
		Title:          r.Title,
		AltTitle:       r.AltTitle,
		Year:           r.Year,
		Runtime:        r.Runtime,
		Colour:         r.Colour,
		Digital:        r.Digital,
		Physical:       r.Physical,
		Genres:         splitList(r.Genres),
		ExternalRating: r.ExternalRating,
		UserRating:     r.UserRating,
		ParentID:       r.ParentID,
		Alternate:      r.Alternate,
		Description:    r.Description,
		Image:          r.Image,
	}
}

// filterClause translates a filter into a where clause on the films table
// aliased as f.
func filterClause(filter model.Filter) (string, []any) {
	var clauses []string
	var args []any

	addInt := func(clause string, v *int) {
		if v != nil {
			clauses = append(clauses, clause)
			args = append(args, *v)
		}
	}
	addBool := func(clause string, v *bool) {
		if v != nil {
			clauses = append(clauses, clause)
			args = append(args, *v)
		}
	}
	addInt("f.year >= ?", filter.YearMin)
	addInt("f.year <= ?", filter.YearMax)
	addInt("f.runtime >= ?", filter.RuntimeMin)
	addInt("f.runtime <= ?", filter.RuntimeMax)
	addBool("f.colour = ?", filter.Colour)
	addBool("f.digital = ?", filter.Digital)
	addBool("f.physical = ?", filter.Physical)
	if !filter.IncludeAlternates {
		clauses = append(clauses, "f.alternate = 0")
	}
	if len(clauses) == 0 {
		return "1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// FindFilms returns films whose title or alternate title match the pattern.
func (s *SqliteRepo) FindFilms(ctx context.Context, pattern string, filter model.Filter) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "find_films")()

	where, args := filterClause(filter)
	query := `SELECT ` + filmColumns + ` FROM films f WHERE ` + where
	if pattern != "" {
		query += ` AND (f.title REGEXP ? OR f.alt_title REGEXP ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY f.rowid`

	return s.selectFilms(ctx, query, args...)
}

// FilmsForPerson returns star films followed by director films.
func (s *SqliteRepo) FilmsForPerson(ctx context.Context, personID string, filter model.Filter) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "films_for_person")()

	where, args := filterClause(filter)
	query := `SELECT ` + filmColumns + ` FROM films f
		JOIN film_people p ON p.film_id = f.id
		WHERE p.person_id = ? AND p.role = ? AND ` + where + ` ORDER BY f.rowid`

	stars, err := s.selectFilms(ctx, query, append([]any{personID, roleStar}, args...)...)
	if err != nil {
		return nil, err
	}
	directors, err := s.selectFilms(ctx, query, append([]any{personID, roleDirector}, args...)...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stars))
	for _, f := range stars {
		seen[f.ID] = true
	}
	for _, f := range directors {
		if !seen[f.ID] {
			seen[f.ID] = true
			stars = append(stars, f)
		}
	}
	return stars, nil
}

// FilmsForKeyword returns the films tagged with keyword.
func (s *SqliteRepo) FilmsForKeyword(ctx context.Context, keyword string, filter model.Filter) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "films_for_keyword")()

	where, args := filterClause(filter)
	query := `SELECT ` + filmColumns + ` FROM films f
		JOIN film_keywords k ON k.film_id = f.id
		WHERE k.keyword = ? AND ` + where + ` ORDER BY f.rowid`
	return s.selectFilms(ctx, query, append([]any{keyword}, args...)...)
}

func (s *SqliteRepo) GetFilm(ctx context.Context, filmID string) (*model.Film, error) {
	defer metrics.ObserveStore(backend, "get_film")()

	films, err := s.selectFilms(ctx, `SELECT `+filmColumns+` FROM films f WHERE f.id = ? LIMIT 1`, filmID)
	if err != nil {
		return nil, err
	}
	if len(films) == 0 {
		return nil, model.ErrNotFound
	}
	return films[0], nil
}

func (s *SqliteRepo) ListFilms(ctx context.Context) ([]*model.Film, error) {
	defer metrics.ObserveStore(backend, "list_films")()

	return s.selectFilms(ctx, `SELECT `+filmColumns+` FROM films f ORDER BY f.rowid`)
}

// SaveFilm upserts a film together with its people and keywords. Existing
// rows are updated in place so their insertion order is kept.
func (s *SqliteRepo) SaveFilm(ctx context.Context, film *model.Film) error {
	defer metrics.ObserveStore(backend, "save_film")()

	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO films (id, title, alt_title, year, runtime,
		colour, digital, physical, genres, external_rating, user_rating, parent_id, alternate,
		description, image)
		VALUES (:id, :title, :alt_title, :year, :runtime, :colour, :digital, :physical, :genres,
		:external_rating, :user_rating, :parent_id, :alternate, :description, :image)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, alt_title=excluded.alt_title,
		year=excluded.year, runtime=excluded.runtime, colour=excluded.colour,
		digital=excluded.digital, physical=excluded.physical, genres=excluded.genres,
		external_rating=excluded.external_rating, user_rating=excluded.user_rating,
		parent_id=excluded.parent_id, alternate=excluded.alternate,
		description=excluded.description, image=excluded.image`,
		filmRow{
			ID:             film.ID,
			Title:          film.Title,
			AltTitle:       film.AltTitle,
			Year:           film.Year,
			Runtime:        film.Runtime,
			Colour:         film.Colour,
			Digital:        film.Digital,
			Physical:       film.Physical,
			Genres:         joinList(film.Genres),
			ExternalRating: film.ExternalRating,
			UserRating:     film.UserRating,
			ParentID:       film.ParentID,
			Alternate:      film.Alternate,
			Description:    film.Description,
			Image:          film.Image,
		}); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM film_people WHERE film_id = ?`, film.ID); err != nil {
		return err
	}
	for role, people := range map[string][]string{roleStar: film.Stars, roleDirector: film.Directors} {
		for i, personID := range people {
			if _, err = tx.ExecContext(ctx, `INSERT INTO film_people (film_id, person_id, role, position)
				VALUES (?, ?, ?, ?)`, film.ID, personID, role, i); err != nil {
				return err
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM film_keywords WHERE film_id = ?`, film.ID); err != nil {
		return err
	}
	for i, keyword := range film.Keywords {
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO keywords (name) VALUES (?)`, keyword); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO film_keywords (film_id, keyword, position)
			VALUES (?, ?, ?)`, film.ID, keyword, i); err != nil {
			return err
		}
	}
	if err = insertGenres(ctx, tx, film.Genres); err != nil {
		return err
	}
	return tx.Commit()
}

func insertGenres(ctx context.Context, tx *sqlx.Tx, genres []string) error {
	for _, genre := range genres {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO genres (name) VALUES (?)`, genre); err != nil {
			return err
		}
	}
	return nil
}

// selectFilms runs a film query and attaches people and keywords.
func (s *SqliteRepo) selectFilms(ctx context.Context, query string, args ...any) ([]*model.Film, error) {
	var rows []filmRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	films := make([]*model.Film, 0, len(rows))
	byID := make(map[string]*model.Film, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		f := rows[i].film()
		films = append(films, f)
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	for chunk := range slices.Chunk(ids, maxInVariables) {
		if err := s.attachPeople(ctx, byID, chunk); err != nil {
			return nil, err
		}
		if err := s.attachKeywords(ctx, byID, chunk); err != nil {
			return nil, err
		}
	}
	return films, nil
}

// attachPeople adds stars and directors to the films with the given ids.
func (s *SqliteRepo) attachPeople(ctx context.Context, byID map[string]*model.Film, ids []string) error {
	var people []struct {
		FilmID   string `db:"film_id"`
		PersonID string `db:"person_id"`
		Role     string `db:"role"`
	}
	q, args, err := sqlx.In(`SELECT film_id, person_id, role FROM film_people
		WHERE film_id IN (?) ORDER BY film_id, role, position`, ids)
	if err != nil {
		return err
	}
	if err = s.dbReadHandle.SelectContext(ctx, &people, s.dbReadHandle.Rebind(q), args...); err != nil {
		return err
	}
	for _, p := range people {
		f := byID[p.FilmID]
		switch p.Role {
		case roleStar:
			f.Stars = append(f.Stars, p.PersonID)
		case roleDirector:
			f.Directors = append(f.Directors, p.PersonID)
		}
	}
	return nil
}

func (s *SqliteRepo) attachKeywords(ctx context.Context, byID map[string]*model.Film, ids []string) error {
	var keywords []struct {
		FilmID  string `db:"film_id"`
		Keyword string `db:"keyword"`
	}
	q, args, err := sqlx.In(`SELECT film_id, keyword FROM film_keywords
		WHERE film_id IN (?) ORDER BY film_id, position`, ids)
	if err != nil {
		return err
	}
	if err = s.dbReadHandle.SelectContext(ctx, &keywords, s.dbReadHandle.Rebind(q), args...); err != nil {
		return err
	}
	for _, k := range keywords {
		f := byID[k.FilmID]
		f.Keywords = append(f.Keywords, k.Keyword)
	}
	return nil
}
