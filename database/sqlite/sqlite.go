package sqlite

import (
	"runtime"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erikbos/filmbrowser/database/model"
)

const backend = "sqlite"

type SqliteRepo struct {
	// Read db handle
	dbReadHandle *sqlx.DB
	// Handle specfically for writes
	dbWriteHandle *sqlx.DB
}

// ConfigFile holds configuration options
type ConfigFile struct {
	Filename string `yaml:"filename"`
}

// New initializes a sqlite database and creates schema if necessary.
func New(o *ConfigFile) (*SqliteRepo, error) {
	if o == nil || o.Filename == "" {
		return nil, model.ErrNoConfiguration
	}

	dbHandle, err := sqlx.Connect(driverName, o.Filename)
	if err != nil {
		return nil, err
	}
	dbHandle.SetMaxOpenConns(max(4, runtime.NumCPU()))

	writeDB, err := sqlx.Connect(driverName, o.Filename)
	if err != nil {
		return nil, err
	}
	// sqlite needs to have a single writer
	writeDB.SetMaxOpenConns(1)

	if err := dbInitSchema(writeDB); err != nil {
		return nil, err
	}

	return &SqliteRepo{
		dbReadHandle:  dbHandle,
		dbWriteHandle: writeDB,
	}, nil
}

// Close closes both database handles.
func (s *SqliteRepo) Close() error {
	if err := s.dbReadHandle.Close(); err != nil {
		return err
	}
	return s.dbWriteHandle.Close()
}

// List columns are stored comma separated.
func joinList(l []string) string {
	return strings.Join(l, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
