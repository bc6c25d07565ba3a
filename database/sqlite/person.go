package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/metrics"
)

// FindPeople returns persons whose name or alias match the pattern.
func (s *SqliteRepo) FindPeople(ctx context.Context, pattern string) ([]*model.Person, error) {
	defer metrics.ObserveStore(backend, "find_people")()

	query := `SELECT id, name, alias FROM persons`
	var args []any
	if pattern != "" {
		query += ` WHERE name REGEXP ? OR (alias != '' AND alias REGEXP ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY rowid`

	var people []*model.Person
	if err := s.dbReadHandle.SelectContext(ctx, &people, query, args...); err != nil {
		return nil, err
	}
	return people, nil
}

// GetPerson retrieves a person by id.
func (s *SqliteRepo) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	var person model.Person
	if err := s.dbReadHandle.GetContext(ctx, &person,
		`SELECT id, name, alias FROM persons WHERE id = ? LIMIT 1`, personID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &person, nil
}

func (s *SqliteRepo) SavePerson(ctx context.Context, person *model.Person) error {
	_, err := s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO persons (id, name, alias)
		VALUES (:id, :name, :alias)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, alias=excluded.alias`, person)
	return err
}

// FindKeywords returns the keywords matching the pattern.
func (s *SqliteRepo) FindKeywords(ctx context.Context, pattern string) ([]model.Keyword, error) {
	defer metrics.ObserveStore(backend, "find_keywords")()

	query := `SELECT name FROM keywords`
	var args []any
	if pattern != "" {
		query += ` WHERE name REGEXP ?`
		args = append(args, pattern)
	}
	query += ` ORDER BY rowid`

	var keywords []model.Keyword
	if err := s.dbReadHandle.SelectContext(ctx, &keywords, query, args...); err != nil {
		return nil, err
	}
	return keywords, nil
}

func (s *SqliteRepo) ListGenres(ctx context.Context) ([]model.Genre, error) {
	var genres []model.Genre
	if err := s.dbReadHandle.SelectContext(ctx, &genres, `SELECT name FROM genres ORDER BY rowid`); err != nil {
		return nil, err
	}
	return genres, nil
}
