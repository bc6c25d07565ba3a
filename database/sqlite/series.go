package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/metrics"
)

const seriesColumns = `id, title, alt_title, media_type, year, year_max, runtime, runtime_max,
	colour, digital, physical, genres, keywords, directors, stars, external_rating, user_rating,
	parent_id, description, image`

type seriesRow struct {
	ID             string  `db:"id"`
	Title          string  `db:"title"`
	AltTitle       string  `db:"alt_title"`
	MediaType      string  `db:"media_type"`
	Year           int     `db:"year"`
	YearMax        int     `db:"year_max"`
	Runtime        int     `db:"runtime"`
	RuntimeMax     int     `db:"runtime_max"`
	Colour         bool    `db:"colour"`
	Digital        bool    `db:"digital"`
	Physical       bool    `db:"physical"`
	Genres         string  `db:"genres"`
	Keywords       string  `db:"keywords"`
	Directors      string  `db:"directors"`
	Stars          string  `db:"stars"`
	ExternalRating float64 `db:"external_rating"`
	UserRating     int     `db:"user_rating"`
	ParentID       string  `db:"parent_id"`
	Description    string  `db:"description"`
	Image          string  `db:"image"`
}

type memberRow struct {
	SeriesID   string `db:"series_id"`
	MemberKind string `db:"member_kind"`
	MemberID   string `db:"member_id"`
}

func (r *seriesRow) series() *model.Series {
	return &model.Series{
		ID:             r.ID,
		Title:          r.Title,
		AltTitle:       r.AltTitle,
		MediaType:      model.MediaType(r.MediaType),
		Year:           r.Year,
		YearMax:        r.YearMax,
		Runtime:        r.Runtime,
		RuntimeMax:     r.RuntimeMax,
		Colour:         r.Colour,
		Digital:        r.Digital,
		Physical:       r.Physical,
		Genres:         splitList(r.Genres),
		Keywords:       splitList(r.Keywords),
		Directors:      splitList(r.Directors),
		Stars:          splitList(r.Stars),
		ExternalRating: r.ExternalRating,
		UserRating:     r.UserRating,
		ParentID:       r.ParentID,
		Description:    r.Description,
		Image:          r.Image,
	}
}

func (s *SqliteRepo) GetSeries(ctx context.Context, seriesID string) (*model.Series, error) {
	defer metrics.ObserveStore(backend, "get_series")()

	var row seriesRow
	if err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT `+seriesColumns+` FROM series WHERE id = ? LIMIT 1`, seriesID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	series := row.series()

	var members []memberRow
	if err := s.dbReadHandle.SelectContext(ctx, &members,
		`SELECT series_id, member_kind, member_id FROM series_members
		WHERE series_id = ? ORDER BY position`, seriesID); err != nil {
		return nil, err
	}
	for _, m := range members {
		series.Members = append(series.Members, model.MemberRef{Kind: model.MemberKind(m.MemberKind), ID: m.MemberID})
	}
	return series, nil
}

func (s *SqliteRepo) ListSeries(ctx context.Context) ([]*model.Series, error) {
	defer metrics.ObserveStore(backend, "list_series")()

	var rows []seriesRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT `+seriesColumns+` FROM series ORDER BY rowid`); err != nil {
		return nil, err
	}
	var members []memberRow
	if err := s.dbReadHandle.SelectContext(ctx, &members,
		`SELECT series_id, member_kind, member_id FROM series_members ORDER BY series_id, position`); err != nil {
		return nil, err
	}

	result := make([]*model.Series, 0, len(rows))
	byID := make(map[string]*model.Series, len(rows))
	for i := range rows {
		series := rows[i].series()
		result = append(result, series)
		byID[series.ID] = series
	}
	for _, m := range members {
		if series, ok := byID[m.SeriesID]; ok {
			series.Members = append(series.Members, model.MemberRef{Kind: model.MemberKind(m.MemberKind), ID: m.MemberID})
		}
	}
	return result, nil
}

// SaveSeries upserts a series and replaces its member list. A member
// already owned by another series returns model.ErrAlreadyMember.
func (s *SqliteRepo) SaveSeries(ctx context.Context, series *model.Series) error {
	defer metrics.ObserveStore(backend, "save_series")()

	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO series (`+seriesColumns+`)
		VALUES (:id, :title, :alt_title, :media_type, :year, :year_max, :runtime, :runtime_max,
		:colour, :digital, :physical, :genres, :keywords, :directors, :stars, :external_rating,
		:user_rating, :parent_id, :description, :image)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, alt_title=excluded.alt_title,
		media_type=excluded.media_type, year=excluded.year, year_max=excluded.year_max,
		runtime=excluded.runtime, runtime_max=excluded.runtime_max, colour=excluded.colour,
		digital=excluded.digital, physical=excluded.physical, genres=excluded.genres,
		keywords=excluded.keywords, directors=excluded.directors, stars=excluded.stars,
		external_rating=excluded.external_rating, user_rating=excluded.user_rating,
		parent_id=excluded.parent_id, description=excluded.description, image=excluded.image`,
		seriesRow{
			ID:             series.ID,
			Title:          series.Title,
			AltTitle:       series.AltTitle,
			MediaType:      string(series.MediaType),
			Year:           series.Year,
			YearMax:        series.YearMax,
			Runtime:        series.Runtime,
			RuntimeMax:     series.RuntimeMax,
			Colour:         series.Colour,
			Digital:        series.Digital,
			Physical:       series.Physical,
			Genres:         joinList(series.Genres),
			Keywords:       joinList(series.Keywords),
			Directors:      joinList(series.Directors),
			Stars:          joinList(series.Stars),
			ExternalRating: series.ExternalRating,
			UserRating:     series.UserRating,
			ParentID:       series.ParentID,
			Description:    series.Description,
			Image:          series.Image,
		}); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM series_members WHERE series_id = ?`, series.ID); err != nil {
		return err
	}
	for i, member := range series.Members {
		if _, err = tx.ExecContext(ctx, `INSERT INTO series_members (series_id, position, member_kind, member_id)
			VALUES (?, ?, ?, ?)`, series.ID, i, string(member.Kind), member.ID); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return model.ErrAlreadyMember
			}
			return err
		}
	}
	if err = insertGenres(ctx, tx, series.Genres); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteRepo) DeleteSeries(ctx context.Context, seriesID string) error {
	defer metrics.ObserveStore(backend, "delete_series")()

	tx, err := s.dbWriteHandle.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM series_members WHERE series_id = ?`, seriesID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, seriesID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}
