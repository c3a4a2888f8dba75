package task

import (
	"context"
	"strings"
	"time"
)

// Priority is a task's tier. The empty Priority marks an idea.
type Priority string

const (
	P0   Priority = "P0"
	P1   Priority = "P1"
	P2   Priority = "P2"
	None Priority = ""
)

// ParsePriority accepts "P0".."P2" in any case, and "" / "none" for ideas.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P0":
		return P0, nil
	case "P1":
		return P1, nil
	case "P2":
		return P2, nil
	case "", "NONE", "NULL":
		return None, nil
	}
	return None, validationf("invalid priority %q", s)
}

// tier orders priorities for ranking. Unknown values sort after P2.
func (p Priority) tier() int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	case P2:
		return 2
	}
	return 3
}

// Task is a single tracked item.
type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`   // free text, may span lines
	Priority      Priority   `json:"priority"` // "" = idea
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	IsArchived    bool       `json:"isArchived"`
	HiddenUntilAt *time.Time `json:"hiddenUntilAt"`
}

// IsIdea reports whether the task has no priority tier.
func (t *Task) IsIdea() bool { return t.Priority == None }

// IsOpen reports whether the task is neither completed nor archived.
func (t *Task) IsOpen() bool { return t.CompletedAt == nil && !t.IsArchived }

// IsHidden reports whether the task is deferred past now.
func (t *Task) IsHidden(now time.Time) bool {
	return t.HiddenUntilAt != nil && t.HiddenUntilAt.After(now)
}

func (t *Task) touch(now time.Time) { t.UpdatedAt = now }

// Blocker records that a task cannot be worked until a date passes or
// another task is done. Resolved never goes back to false.
type Blocker struct {
	ID               int64      `json:"id"`
	TaskID           int64      `json:"taskId"`
	BlockedByTaskID  *int64     `json:"blockedByTaskId"`
	BlockedUntilDate *time.Time `json:"blockedUntilDate"`
	Resolved         bool       `json:"resolved"`
}

// Settings is the single global settings record.
type Settings struct {
	StaleThresholdHours                 float64    `json:"staleThresholdHours"`
	TopN                                int        `json:"topN"`
	OneTimeOffsetHours                  float64    `json:"oneTimeOffsetHours"`
	OneTimeOffsetExpiresAt              *time.Time `json:"oneTimeOffsetExpiresAt"`
	VacationPromptLastShownForUpdatedAt *time.Time `json:"vacationPromptLastShownForUpdatedAt"`
	FocusedTaskID                       *int64     `json:"focusedTaskId"`
}

// DefaultSettings returns the settings a fresh tracker starts with.
func DefaultSettings() Settings {
	return Settings{
		StaleThresholdHours: 24,
		TopN:                20,
	}
}

// State is the complete snapshot the engine operates on. Tasks and
// Blockers are kept in id order; every component mutates them in place.
type State struct {
	Tasks         []*Task    `json:"tasks"`
	Blockers      []*Blocker `json:"blockers"`
	Settings      Settings   `json:"settings"`
	NextTaskID    int64      `json:"nextTaskId"`
	NextBlockerID int64      `json:"nextBlockerId"`
}

// NewState returns an empty state using the given settings.
func NewState(settings Settings) *State {
	return &State{
		Tasks:         []*Task{},
		Blockers:      []*Blocker{},
		Settings:      settings,
		NextTaskID:    1,
		NextBlockerID: 1,
	}
}

// Task returns the task with the given id, or nil.
func (s *State) Task(id int64) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Blocker returns the blocker with the given id, or nil.
func (s *State) Blocker(id int64) *Blocker {
	for _, b := range s.Blockers {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// BlockersFor returns every blocker attached to taskID, resolved or not.
func (s *State) BlockersFor(taskID int64) []*Blocker {
	var out []*Blocker
	for _, b := range s.Blockers {
		if b.TaskID == taskID {
			out = append(out, b)
		}
	}
	return out
}

// Store is the contract for snapshot persistence. Load returns a fresh
// state (with default settings) when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
}

func ptr[T any](v T) *T { return &v }
