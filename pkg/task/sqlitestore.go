package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file SQL snapshot store.
type SQLiteStore struct {
	db       *sql.DB
	defaults Settings
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// migrates its schema.
func NewSQLiteStore(dbPath string, defaults Settings) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; the service already serializes access.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, defaults: defaults}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT,
			is_archived INTEGER NOT NULL DEFAULT 0,
			hidden_until_at TEXT
		);

		CREATE TABLE IF NOT EXISTS blockers (
			id INTEGER PRIMARY KEY,
			task_id INTEGER NOT NULL,
			blocked_by_task_id INTEGER,
			blocked_until_date TEXT,
			resolved INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS tracker_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			stale_threshold_hours REAL NOT NULL,
			top_n INTEGER NOT NULL,
			one_time_offset_hours REAL NOT NULL DEFAULT 0,
			one_time_offset_expires_at TEXT,
			vacation_prompt_last_shown_for_updated_at TEXT,
			focused_task_id INTEGER,
			next_task_id INTEGER NOT NULL DEFAULT 1,
			next_blocker_id INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_blockers_task ON blockers(task_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the whole snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	st := NewState(s.defaults)
	set := &st.Settings
	var expires, prompted sql.NullString
	var focused sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT stale_threshold_hours, top_n, one_time_offset_hours, one_time_offset_expires_at,
		       vacation_prompt_last_shown_for_updated_at, focused_task_id, next_task_id, next_blocker_id
		FROM tracker_settings WHERE id = 1`).
		Scan(&set.StaleThresholdHours, &set.TopN, &set.OneTimeOffsetHours, &expires, &prompted, &focused, &st.NextTaskID, &st.NextBlockerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewState(s.defaults), nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if set.OneTimeOffsetExpiresAt, err = parseNullTime(expires); err != nil {
		return nil, err
	}
	if set.VacationPromptLastShownForUpdatedAt, err = parseNullTime(prompted); err != nil {
		return nil, err
	}
	set.FocusedTaskID = nullInt(focused)

	if err := s.loadTasks(ctx, st); err != nil {
		return nil, err
	}
	if err := s.loadBlockers(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) loadTasks(ctx context.Context, st *State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, priority, created_at, updated_at, completed_at, is_archived, hidden_until_at
		FROM tasks ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Task
		var prio, created, updated string
		var completed, hidden sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &prio, &created, &updated, &completed, &t.IsArchived, &hidden); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		t.Priority = Priority(prio)
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return fmt.Errorf("task %d created_at: %w", t.ID, err)
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return fmt.Errorf("task %d updated_at: %w", t.ID, err)
		}
		if t.CompletedAt, err = parseNullTime(completed); err != nil {
			return err
		}
		if t.HiddenUntilAt, err = parseNullTime(hidden); err != nil {
			return err
		}
		st.Tasks = append(st.Tasks, &t)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadBlockers(ctx context.Context, st *State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, blocked_by_task_id, blocked_until_date, resolved
		FROM blockers ORDER BY id`)
	if err != nil {
		return fmt.Errorf("load blockers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b Blocker
		var by sql.NullInt64
		var until sql.NullString
		if err := rows.Scan(&b.ID, &b.TaskID, &by, &until, &b.Resolved); err != nil {
			return fmt.Errorf("scan blocker: %w", err)
		}
		b.BlockedByTaskID = nullInt(by)
		if b.BlockedUntilDate, err = parseNullTime(until); err != nil {
			return err
		}
		st.Blockers = append(st.Blockers, &b)
	}
	return rows.Err()
}

// Save replaces every stored row with the contents of st in one
// transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM tasks`, `DELETE FROM blockers`, `DELETE FROM tracker_settings`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear state: %w", err)
		}
	}

	set := st.Settings
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracker_settings (id, stale_threshold_hours, top_n, one_time_offset_hours, one_time_offset_expires_at,
			vacation_prompt_last_shown_for_updated_at, focused_task_id, next_task_id, next_blocker_id)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		set.StaleThresholdHours, set.TopN, set.OneTimeOffsetHours, formatNullTime(set.OneTimeOffsetExpiresAt),
		formatNullTime(set.VacationPromptLastShownForUpdatedAt), set.FocusedTaskID, st.NextTaskID, st.NextBlockerID)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	for _, t := range st.Tasks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, title, status, priority, created_at, updated_at, completed_at, is_archived, hidden_until_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Status, string(t.Priority), t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano),
			formatNullTime(t.CompletedAt), t.IsArchived, formatNullTime(t.HiddenUntilAt))
		if err != nil {
			return fmt.Errorf("save task %d: %w", t.ID, err)
		}
	}
	for _, b := range st.Blockers {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO blockers (id, task_id, blocked_by_task_id, blocked_until_date, resolved)
			VALUES (?, ?, ?, ?, ?)`,
			b.ID, b.TaskID, b.BlockedByTaskID, formatNullTime(b.BlockedUntilDate), b.Resolved)
		if err != nil {
			return fmt.Errorf("save blocker %d: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", v.String, err)
	}
	return &t, nil
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
