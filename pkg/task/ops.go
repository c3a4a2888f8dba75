package task

import (
	"slices"
	"strings"
	"time"
)

// HideDurations are the only deferral lengths Hide accepts, in minutes.
var HideDurations = []int{15, 30, 60, 120, 240}

// Patch holds the fields an Update may change. Nil fields are left alone.
type Patch struct {
	Title      *string   `json:"title,omitempty"`
	Status     *string   `json:"status,omitempty"`
	Priority   *Priority `json:"priority,omitempty"`
	IsArchived *bool     `json:"isArchived,omitempty"`
}

// BlockerSpec describes the condition of a new blocker. Both fields may
// be nil; such a blocker blocks until removed.
type BlockerSpec struct {
	BlockedByTaskID  *int64     `json:"blockedByTaskId"`
	BlockedUntilDate *time.Time `json:"blockedUntilDate"`
}

func cleanTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", validationf("title is required")
	}
	return t, nil
}

func checkPriority(p Priority) (Priority, error) {
	return ParsePriority(string(p))
}

// Create adds a new open task.
func (s *State) Create(title, status string, priority Priority, now time.Time) (*Task, error) {
	clean, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}
	p, err := checkPriority(priority)
	if err != nil {
		return nil, err
	}
	t := &Task{
		ID:        s.NextTaskID,
		Title:     clean,
		Status:    status,
		Priority:  p,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.NextTaskID++
	s.Tasks = append(s.Tasks, t)
	return t, nil
}

// Update applies the non-nil fields of p and always bumps UpdatedAt, so
// an empty patch works as a touch. Archiving clears the hide deferral and
// focus and resolves every blocker waiting on the task; the ids of those
// blockers are returned.
func (s *State) Update(id int64, p Patch, now time.Time) (*Task, []int64, error) {
	t := s.Task(id)
	if t == nil {
		return nil, nil, taskNotFound(id)
	}

	var title string
	if p.Title != nil {
		clean, err := cleanTitle(*p.Title)
		if err != nil {
			return nil, nil, err
		}
		title = clean
	}
	var prio Priority
	if p.Priority != nil {
		parsed, err := checkPriority(*p.Priority)
		if err != nil {
			return nil, nil, err
		}
		prio = parsed
	}

	if p.Title != nil {
		t.Title = title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = prio
	}
	var resolved []int64
	if p.IsArchived != nil {
		t.IsArchived = *p.IsArchived
		if t.IsArchived {
			t.HiddenUntilAt = nil
			s.unfocus(id)
			resolved = resolveDependents(s.Blockers, id)
		}
	}
	t.touch(now)
	return t, resolved, nil
}

// Complete marks the task done, resolves blockers waiting on it and drops
// its focus. It returns the ids of the blockers it resolved.
func (s *State) Complete(id int64, now time.Time) (*Task, []int64, error) {
	t := s.Task(id)
	if t == nil {
		return nil, nil, taskNotFound(id)
	}
	t.CompletedAt = &now
	t.touch(now)
	resolved := resolveDependents(s.Blockers, id)
	s.unfocus(id)
	return t, resolved, nil
}

// Uncomplete reopens the task. Blockers resolved by its completion stay
// resolved.
func (s *State) Uncomplete(id int64, now time.Time) (*Task, error) {
	t := s.Task(id)
	if t == nil {
		return nil, taskNotFound(id)
	}
	t.CompletedAt = nil
	t.touch(now)
	return t, nil
}

// Hide defers an eligible prioritized task for one of HideDurations.
func (s *State) Hide(id int64, minutes int, now time.Time) (*Task, error) {
	if !slices.Contains(HideDurations, minutes) {
		return nil, validationf("hide duration must be one of %v minutes, got %d", HideDurations, minutes)
	}
	t := s.Task(id)
	if t == nil {
		return nil, taskNotFound(id)
	}
	if !eligible(t, s.Blockers, now) {
		return nil, validationf("task %d cannot be hidden: only active prioritized tasks can be hidden", id)
	}
	until := now.Add(time.Duration(minutes) * time.Minute)
	t.HiddenUntilAt = &until
	t.touch(now)
	s.unfocus(id)
	return t, nil
}

// Unhide clears any deferral on the task.
func (s *State) Unhide(id int64, now time.Time) (*Task, error) {
	t := s.Task(id)
	if t == nil {
		return nil, taskNotFound(id)
	}
	t.HiddenUntilAt = nil
	t.touch(now)
	return t, nil
}

// Focus makes id the single focused task, replacing any previous focus.
func (s *State) Focus(id int64, now time.Time) (*Task, error) {
	t := s.Task(id)
	if t == nil {
		return nil, taskNotFound(id)
	}
	if !focusable(t, s.Blockers, now) {
		return nil, validationf("task %d cannot be focused: it is archived, completed, blocked or hidden", id)
	}
	s.Settings.FocusedTaskID = ptr(t.ID)
	return t, nil
}

// ClearFocus drops the focus unconditionally.
func (s *State) ClearFocus() {
	s.Settings.FocusedTaskID = nil
}

// Delete removes the task and every blocker on either side of it. It
// returns the ids of the removed blockers.
func (s *State) Delete(id int64) ([]int64, error) {
	if s.Task(id) == nil {
		return nil, taskNotFound(id)
	}
	s.Tasks = slices.DeleteFunc(s.Tasks, func(t *Task) bool { return t.ID == id })

	var removed []int64
	s.Blockers = slices.DeleteFunc(s.Blockers, func(b *Blocker) bool {
		hit := b.TaskID == id || (b.BlockedByTaskID != nil && *b.BlockedByTaskID == id)
		if hit {
			removed = append(removed, b.ID)
		}
		return hit
	})
	s.unfocus(id)
	return removed, nil
}

// AddBlocker attaches a new unresolved blocker to taskID. Neither
// self-reference nor cycles are rejected.
func (s *State) AddBlocker(taskID int64, spec BlockerSpec) (*Blocker, error) {
	if s.Task(taskID) == nil {
		return nil, taskNotFound(taskID)
	}
	b := &Blocker{
		ID:               s.NextBlockerID,
		TaskID:           taskID,
		BlockedByTaskID:  spec.BlockedByTaskID,
		BlockedUntilDate: spec.BlockedUntilDate,
	}
	s.NextBlockerID++
	s.Blockers = append(s.Blockers, b)
	s.unfocus(taskID)
	return b, nil
}

// RemoveBlocker deletes a blocker whether or not it is resolved.
func (s *State) RemoveBlocker(id int64) (*Blocker, error) {
	b := s.Blocker(id)
	if b == nil {
		return nil, blockerNotFound(id)
	}
	s.Blockers = slices.DeleteFunc(s.Blockers, func(x *Blocker) bool { return x.ID == id })
	return b, nil
}

func (s *State) unfocus(id int64) {
	if f := s.Settings.FocusedTaskID; f != nil && *f == id {
		s.Settings.FocusedTaskID = nil
	}
}
