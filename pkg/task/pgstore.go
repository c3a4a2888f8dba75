package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed snapshot store.
type PgStore struct {
	pool     *pgxpool.Pool
	defaults Settings
}

// NewPgStore creates a PgStore. defaults seed the settings row the first
// time a state is loaded.
func NewPgStore(pool *pgxpool.Pool, defaults Settings) *PgStore {
	return &PgStore{pool: pool, defaults: defaults}
}

// EnsureTable creates the tracker tables if they don't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id              BIGINT PRIMARY KEY,
			title           TEXT NOT NULL,
			status          TEXT NOT NULL DEFAULT '',
			priority        TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL,
			completed_at    TIMESTAMPTZ,
			is_archived     BOOLEAN NOT NULL DEFAULT FALSE,
			hidden_until_at TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS blockers (
			id                 BIGINT PRIMARY KEY,
			task_id            BIGINT NOT NULL,
			blocked_by_task_id BIGINT,
			blocked_until_date TIMESTAMPTZ,
			resolved           BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_blockers_task ON blockers(task_id)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tracker_settings (
			id                                         INTEGER PRIMARY KEY CHECK (id = 1),
			stale_threshold_hours                      DOUBLE PRECISION NOT NULL,
			top_n                                      INTEGER NOT NULL,
			one_time_offset_hours                      DOUBLE PRECISION NOT NULL DEFAULT 0,
			one_time_offset_expires_at                 TIMESTAMPTZ,
			vacation_prompt_last_shown_for_updated_at  TIMESTAMPTZ,
			focused_task_id                            BIGINT,
			next_task_id                               BIGINT NOT NULL DEFAULT 1,
			next_blocker_id                            BIGINT NOT NULL DEFAULT 1
		)`)
	return err
}

// Load reads the whole snapshot.
func (s *PgStore) Load(ctx context.Context) (*State, error) {
	st := NewState(s.defaults)
	set := &st.Settings
	err := s.pool.QueryRow(ctx, `
		SELECT stale_threshold_hours, top_n, one_time_offset_hours, one_time_offset_expires_at,
		       vacation_prompt_last_shown_for_updated_at, focused_task_id, next_task_id, next_blocker_id
		FROM tracker_settings WHERE id = 1`).
		Scan(&set.StaleThresholdHours, &set.TopN, &set.OneTimeOffsetHours, &set.OneTimeOffsetExpiresAt,
			&set.VacationPromptLastShownForUpdatedAt, &set.FocusedTaskID, &st.NextTaskID, &st.NextBlockerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NewState(s.defaults), nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, status, priority, created_at, updated_at, completed_at, is_archived, hidden_until_at
		FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.IsArchived, &t.HiddenUntilAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		st.Tasks = append(st.Tasks, &t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, task_id, blocked_by_task_id, blocked_until_date, resolved
		FROM blockers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load blockers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b Blocker
		if err := rows.Scan(&b.ID, &b.TaskID, &b.BlockedByTaskID, &b.BlockedUntilDate, &b.Resolved); err != nil {
			return nil, fmt.Errorf("scan blocker: %w", err)
		}
		st.Blockers = append(st.Blockers, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blocker rows: %w", err)
	}
	return st, nil
}

// Save writes the whole snapshot in one transaction. Rows absent from st
// are deleted.
func (s *PgStore) Save(ctx context.Context, st *State) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	set := st.Settings
	_, err = tx.Exec(ctx, `
		INSERT INTO tracker_settings (id, stale_threshold_hours, top_n, one_time_offset_hours, one_time_offset_expires_at,
			vacation_prompt_last_shown_for_updated_at, focused_task_id, next_task_id, next_blocker_id)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			stale_threshold_hours = EXCLUDED.stale_threshold_hours,
			top_n = EXCLUDED.top_n,
			one_time_offset_hours = EXCLUDED.one_time_offset_hours,
			one_time_offset_expires_at = EXCLUDED.one_time_offset_expires_at,
			vacation_prompt_last_shown_for_updated_at = EXCLUDED.vacation_prompt_last_shown_for_updated_at,
			focused_task_id = EXCLUDED.focused_task_id,
			next_task_id = EXCLUDED.next_task_id,
			next_blocker_id = EXCLUDED.next_blocker_id`,
		set.StaleThresholdHours, set.TopN, set.OneTimeOffsetHours, set.OneTimeOffsetExpiresAt,
		set.VacationPromptLastShownForUpdatedAt, set.FocusedTaskID, st.NextTaskID, st.NextBlockerID)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	taskIDs := make([]int64, 0, len(st.Tasks))
	for _, t := range st.Tasks {
		taskIDs = append(taskIDs, t.ID)
		_, err = tx.Exec(ctx, `
			INSERT INTO tasks (id, title, status, priority, created_at, updated_at, completed_at, is_archived, hidden_until_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				status = EXCLUDED.status,
				priority = EXCLUDED.priority,
				updated_at = EXCLUDED.updated_at,
				completed_at = EXCLUDED.completed_at,
				is_archived = EXCLUDED.is_archived,
				hidden_until_at = EXCLUDED.hidden_until_at`,
			t.ID, t.Title, t.Status, string(t.Priority), t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.IsArchived, t.HiddenUntilAt)
		if err != nil {
			return fmt.Errorf("save task %d: %w", t.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id <> ALL($1)`, taskIDs); err != nil {
		return fmt.Errorf("prune tasks: %w", err)
	}

	blockerIDs := make([]int64, 0, len(st.Blockers))
	for _, b := range st.Blockers {
		blockerIDs = append(blockerIDs, b.ID)
		_, err = tx.Exec(ctx, `
			INSERT INTO blockers (id, task_id, blocked_by_task_id, blocked_until_date, resolved)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET resolved = EXCLUDED.resolved`,
			b.ID, b.TaskID, b.BlockedByTaskID, b.BlockedUntilDate, b.Resolved)
		if err != nil {
			return fmt.Errorf("save blocker %d: %w", b.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM blockers WHERE id <> ALL($1)`, blockerIDs); err != nil {
		return fmt.Errorf("prune blockers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}
