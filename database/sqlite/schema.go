package sqlite

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

func dbInitSchema(d *sqlx.DB) error {
	schema := []string{
		// This is needed to improve concurrent reads and writes.
		`PRAGMA journal_mode = WAL;`,
		// Without this foreign key constraints won't be enforced and cascade deletes won't happen.
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS films (
id TEXT NOT NULL PRIMARY KEY,
title TEXT NOT NULL,
alt_title TEXT NOT NULL DEFAULT '',
year INTEGER NOT NULL DEFAULT 0,
runtime INTEGER NOT NULL DEFAULT 0,
colour BOOLEAN NOT NULL DEFAULT 1,
digital BOOLEAN NOT NULL DEFAULT 0,
physical BOOLEAN NOT NULL DEFAULT 0,
genres TEXT NOT NULL DEFAULT '',
external_rating REAL NOT NULL DEFAULT 0,
user_rating INTEGER NOT NULL DEFAULT 0,
parent_id TEXT NOT NULL DEFAULT '',
alternate BOOLEAN NOT NULL DEFAULT 0,
description TEXT NOT NULL DEFAULT '',
image TEXT NOT NULL DEFAULT '');`,

		`CREATE INDEX IF NOT EXISTS films_title_idx ON films (title);`,
		`CREATE INDEX IF NOT EXISTS films_parent_idx ON films (parent_id);`,

		`CREATE TABLE IF NOT EXISTS persons (
id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL,
alias TEXT NOT NULL DEFAULT '');`,

		`CREATE TABLE IF NOT EXISTS film_people (
film_id TEXT NOT NULL,
person_id TEXT NOT NULL,
role TEXT NOT NULL,
position INTEGER NOT NULL,
PRIMARY KEY (film_id, role, position),
FOREIGN KEY (film_id) REFERENCES films(id) ON DELETE CASCADE);`,

		`CREATE INDEX IF NOT EXISTS film_people_person_idx ON film_people (person_id, role);`,

		`CREATE TABLE IF NOT EXISTS keywords (
name TEXT NOT NULL PRIMARY KEY);`,

		`CREATE TABLE IF NOT EXISTS film_keywords (
film_id TEXT NOT NULL,
keyword TEXT NOT NULL,
position INTEGER NOT NULL,
PRIMARY KEY (film_id, keyword),
FOREIGN KEY (film_id) REFERENCES films(id) ON DELETE CASCADE);`,

		`CREATE INDEX IF NOT EXISTS film_keywords_keyword_idx ON film_keywords (keyword);`,

		`CREATE TABLE IF NOT EXISTS genres (
name TEXT NOT NULL PRIMARY KEY);`,

		`CREATE TABLE IF NOT EXISTS series (
id TEXT NOT NULL PRIMARY KEY,
title TEXT NOT NULL,
alt_title TEXT NOT NULL DEFAULT '',
media_type TEXT NOT NULL,
year INTEGER NOT NULL DEFAULT 0,
year_max INTEGER NOT NULL DEFAULT 0,
runtime INTEGER NOT NULL DEFAULT 0,
runtime_max INTEGER NOT NULL DEFAULT 0,
colour BOOLEAN NOT NULL DEFAULT 1,
digital BOOLEAN NOT NULL DEFAULT 0,
physical BOOLEAN NOT NULL DEFAULT 0,
genres TEXT NOT NULL DEFAULT '',
keywords TEXT NOT NULL DEFAULT '',
directors TEXT NOT NULL DEFAULT '',
stars TEXT NOT NULL DEFAULT '',
external_rating REAL NOT NULL DEFAULT 0,
user_rating INTEGER NOT NULL DEFAULT 0,
parent_id TEXT NOT NULL DEFAULT '',
description TEXT NOT NULL DEFAULT '',
image TEXT NOT NULL DEFAULT '');`,

		// A film or series can be member of one series only.
		`CREATE TABLE IF NOT EXISTS series_members (
series_id TEXT NOT NULL,
position INTEGER NOT NULL,
member_kind TEXT NOT NULL,
member_id TEXT NOT NULL,
PRIMARY KEY (series_id, position),
UNIQUE (member_kind, member_id),
FOREIGN KEY (series_id) REFERENCES series(id) ON DELETE CASCADE);`,
	}

	for _, query := range schema {
		if _, err := d.Exec(query); err != nil {
			log.Error().Err(err).Str("query", query).Msg("dbInitSchema")
			return err
		}
	}
	return nil
}
