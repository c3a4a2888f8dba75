package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed Store with hash-chained integrity.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const entryColumns = `id, type, timestamp, task_id, content, hash, prev_hash`

// EnsureTable creates the journal table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS journal (
			id        TEXT PRIMARY KEY,
			type      TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			task_id   BIGINT NOT NULL DEFAULT 0,
			content   JSONB NOT NULL DEFAULT '{}',
			hash      TEXT NOT NULL,
			prev_hash TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_journal_timestamp_id ON journal(timestamp, id)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_journal_task ON journal(task_id) WHERE task_id != 0`)
	return err
}

// Append creates and stores a new entry, computing the hash chain.
func (s *PgStore) Append(ctx context.Context, entryType string, taskID int64, content map[string]any) (*Entry, error) {
	if content == nil {
		content = map[string]any{}
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	now := time.Now().Truncate(time.Microsecond)
	id := uuid.Must(uuid.NewV7()).String()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var prevHash string
	err = tx.QueryRow(ctx, `SELECT hash FROM journal ORDER BY timestamp DESC, id DESC LIMIT 1 FOR UPDATE`).Scan(&prevHash)
	if err != nil {
		prevHash = ""
	}

	e := &Entry{
		ID:        id,
		Type:      entryType,
		Timestamp: now,
		TaskID:    taskID,
		Content:   content,
		Hash:      computeHash(prevHash, id, entryType, taskID, now, contentJSON),
		PrevHash:  prevHash,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO journal (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		e.ID, e.Type, e.Timestamp, e.TaskID, string(contentJSON), e.Hash, e.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit journal entry: %w", err)
	}
	return e, nil
}

// Recent returns the most recent entries in reverse chronological order.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.scanMany(ctx, `
		SELECT `+entryColumns+`
		FROM journal ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
}

// ByTask returns the entries about one task, newest first.
func (s *PgStore) ByTask(ctx context.Context, taskID int64, limit int) ([]Entry, error) {
	return s.scanMany(ctx, `
		SELECT `+entryColumns+`
		FROM journal WHERE task_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`, taskID, limit)
}

// Since returns entries created after the given ID, for polling/SSE.
func (s *PgStore) Since(ctx context.Context, afterID string, limit int) ([]Entry, error) {
	return s.scanMany(ctx, `
		SELECT `+entryColumns+`
		FROM journal WHERE (timestamp, id) > (SELECT timestamp, id FROM journal WHERE id = $1)
		ORDER BY timestamp ASC, id ASC LIMIT $2`, afterID, limit)
}

// Count returns the total number of entries.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

// VerifyChain walks the entire chain chronologically and verifies hash integrity.
func (s *PgStore) VerifyChain(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM journal ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("verify chain query: %w", err)
	}
	defer rows.Close()

	prevHash := ""
	i := 0
	for rows.Next() {
		var e Entry
		var contentJSON []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.Timestamp, &e.TaskID, &contentJSON, &e.Hash, &e.PrevHash); err != nil {
			return fmt.Errorf("verify chain scan row %d: %w", i, err)
		}
		if e.PrevHash != prevHash {
			return fmt.Errorf("entry %d (%s): prev_hash mismatch: got %s, want %s", i, e.ID, e.PrevHash, prevHash)
		}
		// JSONB reorders keys, so compare against the re-marshalled form as well as the raw one.
		var content map[string]any
		if err := json.Unmarshal(contentJSON, &content); err != nil {
			return fmt.Errorf("entry %d (%s): unmarshal content: %w", i, e.ID, err)
		}
		remarshalled, _ := json.Marshal(content)
		expected := computeHash(prevHash, e.ID, e.Type, e.TaskID, e.Timestamp, remarshalled)
		if e.Hash != expected {
			raw := computeHash(prevHash, e.ID, e.Type, e.TaskID, e.Timestamp, contentJSON)
			if e.Hash != raw {
				return fmt.Errorf("entry %d (%s): hash mismatch: got %s, want remarshal=%s or raw=%s", i, e.ID, e.Hash, expected, raw)
			}
		}
		prevHash = e.Hash
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("verify chain rows: %w", err)
	}
	return nil
}

func (s *PgStore) scanMany(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var contentJSON []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.Timestamp, &e.TaskID, &contentJSON, &e.Hash, &e.PrevHash); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(contentJSON, &e.Content); err != nil {
			return nil, fmt.Errorf("unmarshal content: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return entries, nil
}
