package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
)

// FileStore keeps each blob in its own file below a root directory.
type FileStore struct {
	root string
	log  logr.Logger
}

func NewFileStore(log logr.Logger, root string) (*FileStore, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		log.Error(err, "Failed to create storage directory", "root", root)
		return nil, err
	}
	return &FileStore{
		root: root,
		log:  log.WithName("FileStore"),
	}, nil
}

func (s *FileStore) file(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

func (s *FileStore) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.file(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write stages data in a temporary file next to the target and renames it in
// place, so readers see either the old or the new blob.
func (s *FileStore) Write(ctx context.Context, path string, data []byte) error {
	name := s.file(path)
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.log.V(1).Info("Wrote blob", "path", path, "bytes", len(data))
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
