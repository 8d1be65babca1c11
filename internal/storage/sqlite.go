package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore keeps blobs as rows of a single key/value table.
type SQLiteStore struct {
	db  *sqlx.DB
	log logr.Logger
}

type blobRow struct {
	Path string `db:"path"`
	Data []byte `db:"data"`
}

func NewSQLiteStore(log logr.Logger, dbName string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dbName)
	if err != nil {
		log.Error(err, "Failed to connect to database", "dbType", "sqlite3", "dbName", dbName)
		return nil, err
	}

	s := &SQLiteStore{
		db:  db,
		log: log.WithName("SQLiteStore"),
	}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTable() error {
	schema := `
    CREATE TABLE IF NOT EXISTS blobs (
        path TEXT PRIMARY KEY,
        data BLOB NOT NULL
    );`
	_, err := s.db.Exec(schema)
	if err != nil {
		s.log.Error(err, "Failed to execute create table query")
		return err
	}
	s.log.V(1).Info("Created table")
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, path string) ([]byte, error) {
	var row blobRow
	err := s.db.GetContext(ctx, &row, `SELECT path, data FROM blobs WHERE path = $1`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return row.Data, nil
}

func (s *SQLiteStore) Write(ctx context.Context, path string, data []byte) error {
	query := `
    INSERT INTO blobs (path, data) VALUES (:path, :data)
    ON CONFLICT(path) DO UPDATE SET data = excluded.data`
	_, err := s.db.NamedExecContext(ctx, query, blobRow{Path: path, Data: data})
	if err != nil {
		s.log.Error(err, "Failed to upsert blob", "path", path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Close closes the database connection & syncs it to persistent storage.
func (s *SQLiteStore) Close() error {
	s.log.V(1).Info("Closing database connection")
	return s.db.Close()
}
