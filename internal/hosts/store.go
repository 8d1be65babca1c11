package hosts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/k1sta/wakebot/internal/storage"
)

// DefaultPath is where the host list blob lives in the storage backend.
const DefaultPath = "/hosts.json"

// Store serializes the whole host list to one JSON array blob.
type Store struct {
	log  logr.Logger
	blob storage.Blob
	path string
}

func NewStore(log logr.Logger, blob storage.Blob, path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{
		log:  log.WithName("Store"),
		blob: blob,
		path: path,
	}
}

// Save overwrites the persisted blob with hosts, in order.
func (s *Store) Save(ctx context.Context, hosts []Host) error {
	if hosts == nil {
		hosts = []Host{}
	}
	out, err := json.Marshal(hosts)
	if err != nil {
		return fmt.Errorf("marshal hosts: %w", err)
	}
	if err := s.blob.Write(ctx, s.path, out); err != nil {
		s.log.Error(err, "Failed to save hosts", "path", s.path)
		return err
	}
	s.log.V(1).Info("Saved hosts", "path", s.path, "count", len(hosts))
	return nil
}

// Load reads the persisted host list. A missing or malformed blob yields an
// empty list and no error; only backend I/O failures are returned, together
// with an empty list.
func (s *Store) Load(ctx context.Context) ([]Host, error) {
	data, err := s.blob.Read(ctx, s.path)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Info("No saved hosts, starting empty", "path", s.path)
		return []Host{}, nil
	}
	if err != nil {
		return []Host{}, err
	}

	var hosts []Host
	if err := json.Unmarshal(data, &hosts); err != nil {
		s.log.Error(err, "Failed to parse saved hosts, starting empty", "path", s.path)
		return []Host{}, nil
	}
	if hosts == nil {
		hosts = []Host{}
	}
	if len(hosts) > MaxHosts {
		hosts = hosts[:MaxHosts]
	}
	s.log.Info("Loaded hosts", "path", s.path, "count", len(hosts))
	return hosts, nil
}

// LoadInto fills r from the store. It never fails: any problem leaves r empty
// and is only logged.
func (s *Store) LoadInto(ctx context.Context, r *Registry) {
	hosts, err := s.Load(ctx)
	if err != nil {
		s.log.Error(err, "Failed to read saved hosts, starting empty", "path", s.path)
	}
	r.Reset(hosts)
}
