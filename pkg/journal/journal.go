// Package journal keeps an append-only, hash-chained record of every
// change made to the tracker.
package journal

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// Entry is a single record in the journal.
type Entry struct {
	ID        string         `json:"id"`        // UUID v7 (time-ordered)
	Type      string         `json:"type"`      // e.g. "task.completed", "blocker.added"
	Timestamp time.Time      `json:"timestamp"` // when the change was saved
	TaskID    int64          `json:"taskId"`    // 0 when the change is not about one task
	Content   map[string]any `json:"content"`
	Hash      string         `json:"hash"`      // SHA-256 of canonical form
	PrevHash  string         `json:"prevHash"`  // hash chain link
}

// Store is the contract for journal persistence.
type Store interface {
	Append(ctx context.Context, entryType string, taskID int64, content map[string]any) (*Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ByTask(ctx context.Context, taskID int64, limit int) ([]Entry, error)
	Since(ctx context.Context, afterID string, limit int) ([]Entry, error)
	Count(ctx context.Context) (int, error)
	VerifyChain(ctx context.Context) error
}

// computeHash computes a SHA-256 hash for chain integrity.
func computeHash(prevHash, id, entryType string, taskID int64, timestamp time.Time, contentJSON []byte) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%s", prevHash, id, entryType, taskID, timestamp.UnixNano(), string(contentJSON))
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h)
}
