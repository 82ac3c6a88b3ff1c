// Package file implements a snapshot store backed by JSON files in a local directory
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage"
)

// Storage persists each snapshot as <dir>/<key>.json
type Storage struct {
	dir string

	mu sync.Mutex
}

// NewStorage creates a new file snapshot store, creating the directory if needed
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("unable to create snapshot directory: %w", err)
	}

	return &Storage{
		dir: dir,
	}, nil
}

func (s *Storage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Storage) LoadSnapshot(_ context.Context, key string) (*rates.Snapshot, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("unable to read snapshot: %w", err)
	}

	var snap rates.Snapshot
	if err = json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unable to decode snapshot: %w", err)
	}

	return &snap, nil
}

// SaveSnapshot writes the snapshot to a temporary file and renames it into place,
// so readers never observe a partially written snapshot
func (s *Storage) SaveSnapshot(_ context.Context, key string, snap rates.Snapshot) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary snapshot: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err = tmp.Write(raw); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("unable to write snapshot: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("unable to close snapshot: %w", err)
	}

	if err = os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("unable to replace snapshot: %w", err)
	}

	return nil
}
