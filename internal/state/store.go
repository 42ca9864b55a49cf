// Package state persists the reflective ecosystem between runs: the
// snapshot aggregate as a JSON document, and evicted question history as
// an append-only SQLite archive.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/normanking/socratic/internal/ecosystem"
)

// DefaultFileName is the snapshot file created inside the state directory.
const DefaultFileName = "ecosystem_state.json"

// Common errors for state operations.
var (
	ErrStateNotFound = errors.New("state not found")
	ErrNilState      = errors.New("state cannot be nil")
)

// Store defines the interface for snapshot persistence.
type Store interface {
	// Save persists a snapshot to storage.
	Save(state *ecosystem.EcosystemState) error

	// Load retrieves the most recent snapshot.
	Load() (*ecosystem.EcosystemState, error)

	// Close releases any resources held by the store.
	Close() error
}

// FileStore implements Store using a single JSON file.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a FileStore writing to the given path. The parent
// directory is created if it doesn't exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the snapshot file location.
func (fs *FileStore) Path() string {
	return fs.path
}

// Save persists the snapshot as indented JSON.
func (fs *FileStore) Save(state *ecosystem.EcosystemState) error {
	if state == nil {
		return ErrNilState
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	snapshot := *state
	snapshot.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// Load reads the snapshot back. A missing file returns ErrStateNotFound so
// callers can distinguish first-run from corruption.
func (fs *FileStore) Load() (*ecosystem.EcosystemState, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state ecosystem.EcosystemState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}

	return &state, nil
}

// Close releases resources. For FileStore, this is a no-op.
func (fs *FileStore) Close() error {
	return nil
}
