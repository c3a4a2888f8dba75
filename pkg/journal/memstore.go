package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-process Store. It backs the file and SQLite
// deployments, where the journal only needs to live as long as the
// process, and tests.
type MemStore struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{now: time.Now}
}

// Append records a new entry at the end of the chain.
func (s *MemStore) Append(_ context.Context, entryType string, taskID int64, content map[string]any) (*Entry, error) {
	if content == nil {
		content = map[string]any{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevHash := ""
	if n := len(s.entries); n > 0 {
		prevHash = s.entries[n-1].Hash
	}
	e := Entry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      entryType,
		Timestamp: s.now().Truncate(time.Microsecond),
		TaskID:    taskID,
		Content:   content,
		PrevHash:  prevHash,
	}
	e.Hash = computeHash(prevHash, e.ID, e.Type, e.TaskID, e.Timestamp, contentJSON)
	s.entries = append(s.entries, e)
	return &e, nil
}

// Recent returns up to limit entries, newest first.
func (s *MemStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(limit, func(Entry) bool { return true }), nil
}

// ByTask returns up to limit entries about taskID, newest first.
func (s *MemStore) ByTask(_ context.Context, taskID int64, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(limit, func(e Entry) bool { return e.TaskID == taskID }), nil
}

// Since returns up to limit entries appended after afterID, oldest first.
func (s *MemStore) Since(_ context.Context, afterID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := -1
	for i := range s.entries {
		if s.entries[i].ID == afterID {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("since %s: entry not found", afterID)
	}
	var out []Entry
	for i := start; i < len(s.entries) && len(out) < limit; i++ {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Count returns the number of entries.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// VerifyChain recomputes every hash in order.
func (s *MemStore) VerifyChain(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prevHash := ""
	for i, e := range s.entries {
		if e.PrevHash != prevHash {
			return fmt.Errorf("entry %d (%s): prev_hash mismatch: got %s, want %s", i, e.ID, e.PrevHash, prevHash)
		}
		contentJSON, err := json.Marshal(e.Content)
		if err != nil {
			return fmt.Errorf("entry %d (%s): marshal content: %w", i, e.ID, err)
		}
		if want := computeHash(prevHash, e.ID, e.Type, e.TaskID, e.Timestamp, contentJSON); e.Hash != want {
			return fmt.Errorf("entry %d (%s): hash mismatch: got %s, want %s", i, e.ID, e.Hash, want)
		}
		prevHash = e.Hash
	}
	return nil
}

func (s *MemStore) newestFirst(limit int, keep func(Entry) bool) []Entry {
	var out []Entry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out
}
