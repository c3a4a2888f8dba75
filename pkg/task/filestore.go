package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the snapshot as a single JSON document.
type FileStore struct {
	mu       sync.Mutex
	path     string
	defaults Settings
}

// NewFileStore creates a FileStore writing to path, creating its
// directory if needed.
func NewFileStore(path string, defaults Settings) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: path, defaults: defaults}, nil
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string { return s.path }

// Load reads the snapshot, or returns a fresh state if the file does not
// exist yet.
func (s *FileStore) Load(_ context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(s.defaults), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	st := NewState(s.defaults)
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	if st.Tasks == nil {
		st.Tasks = []*Task{}
	}
	if st.Blockers == nil {
		st.Blockers = []*Blocker{}
	}
	return st, nil
}

// Save writes the snapshot through a temp file and rename so a crash
// never leaves a half-written document.
func (s *FileStore) Save(_ context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
