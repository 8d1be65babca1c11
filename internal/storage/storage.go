// Package storage is the durable byte-blob substrate the host list is kept in.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

// ErrNotFound is returned by Read when nothing was ever written at path.
var ErrNotFound = errors.New("blob not found")

// Blob reads and writes whole blobs addressed by path. Write replaces any
// prior content.
type Blob interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the backend named by kind, rooted at location (a directory for
// the file backend, a database file for SQLite).
func Open(log logr.Logger, kind string, location string) (Blob, error) {
	switch kind {
	case "", BackendFile:
		return NewFileStore(log, location)
	case BackendSQLite:
		return NewSQLiteStore(log, location)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
