package task

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tiertrack/pkg/clock"
	"tiertrack/pkg/journal"
)

// DefaultVacationGrace is how long an applied vacation offset lasts.
const DefaultVacationGrace = 24 * time.Hour

// Item is a task decorated with the derived flags clients display.
type Item struct {
	*Task
	Stale    bool       `json:"stale"`
	Blocked  bool       `json:"blocked"`
	Focused  bool       `json:"focused"`
	Blockers []*Blocker `json:"blockers"`
}

// Status summarizes the tracker.
type Status struct {
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
	FocusedTaskID *int64         `json:"focusedTaskId"`
	Nudge         *Nudge         `json:"nudge"`
}

// SweepResult reports what a background sweep did.
type SweepResult struct {
	Changed  bool   `json:"changed"`
	Resolved int    `json:"resolved"`
	Nudge    *Nudge `json:"nudge"`
}

// Service serializes every read and command over a Store. Each call
// loads the snapshot, refreshes blockers and focus, applies the
// operation and saves only when something changed.
type Service struct {
	mu      sync.Mutex
	store   Store
	journal journal.Store
	clock   clock.Clock
	grace   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithVacationGrace sets how long ApplyVacation's offset lasts.
func WithVacationGrace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.grace = d
		}
	}
}

// NewService creates a Service. j may be nil to disable journaling.
func NewService(store Store, j journal.Store, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		store:   store,
		journal: j,
		clock:   clk,
		grace:   DefaultVacationGrace,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type change struct {
	kind    string
	taskID  int64
	content map[string]any
}

func (s *Service) now() time.Time {
	return s.clock.Now().Truncate(time.Microsecond)
}

// read runs fn over a refreshed snapshot, persisting the refresh if it
// changed anything.
func (s *Service) read(ctx context.Context, fn func(st *State, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if changes := refreshChanges(st, now); len(changes) > 0 {
		if err := s.store.Save(ctx, st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		s.record(ctx, changes)
	}
	return fn(st, now)
}

// mutate runs a command. A failed command saves nothing.
func (s *Service) mutate(ctx context.Context, fn func(st *State, now time.Time) ([]change, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	changes := refreshChanges(st, now)
	own, err := fn(st, now)
	if err != nil {
		return err
	}
	changes = append(changes, own...)
	if err := s.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.record(ctx, changes)
	return nil
}

func (s *Service) record(ctx context.Context, changes []change) {
	if s.journal == nil {
		return
	}
	for _, c := range changes {
		if _, err := s.journal.Append(ctx, c.kind, c.taskID, c.content); err != nil {
			log.Printf("service: journal %s: %v", c.kind, err)
		}
	}
}

// refreshChanges runs Refresh and describes what it did.
func refreshChanges(st *State, now time.Time) []change {
	var pending []*Blocker
	for _, b := range st.Blockers {
		if !b.Resolved {
			pending = append(pending, b)
		}
	}
	focused := st.Settings.FocusedTaskID

	if !Refresh(st, now) {
		return nil
	}

	var changes []change
	var resolved []int64
	for _, b := range pending {
		if b.Resolved {
			resolved = append(resolved, b.ID)
		}
	}
	if len(resolved) > 0 {
		changes = append(changes, change{"blockers.resolved", 0, map[string]any{"blockerIds": resolved}})
	}
	if focused != nil && st.Settings.FocusedTaskID == nil {
		changes = append(changes, change{"focus.cleared", *focused, map[string]any{"reason": "ineligible"}})
	}
	return changes
}

func annotate(st *State, t *Task, now time.Time, allBlockers bool) Item {
	it := Item{
		Task:     t,
		Stale:    t.IsOpen() && IsStale(t.UpdatedAt, st.Settings, now),
		Blocked:  IsBlocked(t.ID, st.Blockers),
		Focused:  st.Settings.FocusedTaskID != nil && *st.Settings.FocusedTaskID == t.ID,
		Blockers: []*Blocker{},
	}
	for _, b := range st.BlockersFor(t.ID) {
		if allBlockers || !b.Resolved {
			it.Blockers = append(it.Blockers, b)
		}
	}
	return it
}

// List returns the annotated tasks of one view.
func (s *Service) List(ctx context.Context, view View) ([]Item, error) {
	var items []Item
	err := s.read(ctx, func(st *State, now time.Time) error {
		tasks := Classify(st, view, now)
		items = make([]Item, 0, len(tasks))
		for _, t := range tasks {
			items = append(items, annotate(st, t, now, false))
		}
		return nil
	})
	return items, err
}

// Get returns one task with all of its blockers.
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	var item *Item
	err := s.read(ctx, func(st *State, now time.Time) error {
		t := st.Task(id)
		if t == nil {
			return taskNotFound(id)
		}
		it := annotate(st, t, now, true)
		item = &it
		return nil
	})
	return item, err
}

// Blockers returns every blocker attached to taskID.
func (s *Service) Blockers(ctx context.Context, taskID int64) ([]*Blocker, error) {
	var out []*Blocker
	err := s.read(ctx, func(st *State, _ time.Time) error {
		if st.Task(taskID) == nil {
			return taskNotFound(taskID)
		}
		out = st.BlockersFor(taskID)
		if out == nil {
			out = []*Blocker{}
		}
		return nil
	})
	return out, err
}

// Status returns per-view counts and the current vacation nudge.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	var status *Status
	err := s.read(ctx, func(st *State, now time.Time) error {
		status = &Status{
			Counts:        make(map[string]int, len(Views)),
			Total:         len(st.Tasks),
			FocusedTaskID: st.Settings.FocusedTaskID,
			Nudge:         VacationNudge(st.Tasks, st.Settings, now),
		}
		for _, v := range Views {
			status.Counts[v.String()] = len(Classify(st, v, now))
		}
		return nil
	})
	return status, err
}

// Settings returns the current settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.read(ctx, func(st *State, _ time.Time) error {
		out = st.Settings
		return nil
	})
	return out, err
}

// Nudge returns the current vacation recommendation, or nil.
func (s *Service) Nudge(ctx context.Context) (*Nudge, error) {
	var n *Nudge
	err := s.read(ctx, func(st *State, now time.Time) error {
		n = VacationNudge(st.Tasks, st.Settings, now)
		return nil
	})
	return n, err
}

// UpdateSettings validates and applies p.
func (s *Service) UpdateSettings(ctx context.Context, p SettingsPatch) (Settings, error) {
	var out Settings
	err := s.mutate(ctx, func(st *State, _ time.Time) ([]change, error) {
		set, err := st.UpdateSettings(p)
		if err != nil {
			return nil, err
		}
		out = set
		return []change{{"settings.updated", 0, map[string]any{"settings": set}}}, nil
	})
	return out, err
}

// ApplyVacation applies a one-time staleness offset of days. With days
// 0 it applies the current suggestion, failing when there is none.
func (s *Service) ApplyVacation(ctx context.Context, days int) (Settings, error) {
	var out Settings
	err := s.mutate(ctx, func(st *State, now time.Time) ([]change, error) {
		if days == 0 {
			n := VacationNudge(st.Tasks, st.Settings, now)
			if n == nil {
				return nil, validationf("no vacation suggestion; pass days")
			}
			days = n.SuggestedDays
		}
		set, err := st.ApplyVacation(days, s.grace, now)
		if err != nil {
			return nil, err
		}
		out = set
		return []change{{"vacation.applied", 0, map[string]any{"days": days, "expiresAt": set.OneTimeOffsetExpiresAt}}}, nil
	})
	return out, err
}

// DismissVacation silences the nudge for the current inactivity streak.
func (s *Service) DismissVacation(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.mutate(ctx, func(st *State, _ time.Time) ([]change, error) {
		if !st.DismissVacation() {
			return nil, validationf("no open tasks: nothing to dismiss")
		}
		out = st.Settings
		return []change{{"vacation.dismissed", 0, map[string]any{"anchor": st.Settings.VacationPromptLastShownForUpdatedAt}}}, nil
	})
	return out, err
}

// Create adds a task.
func (s *Service) Create(ctx context.Context, title, status string, priority Priority) (*Task, error) {
	var out *Task
	err := s.mutate(ctx, func(st *State, now time.Time) ([]change, error) {
		t, err := st.Create(title, status, priority, now)
		if err != nil {
			return nil, err
		}
		out = t
		return []change{{"task.created", t.ID, map[string]any{"title": t.Title, "priority": string(t.Priority)}}}, nil
	})
	return out, err
}

// Update applies a partial edit; an empty patch only touches the task.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Task, error) {
	var out *Task
	err := s.mutate(ctx, func(st *State, now time.Time) ([]change, error) {
		t, resolved, err := st.Update(id, p, now)
		if err != nil {
			return nil, err
		}
		out = t
		content := patchContent(p)
		if len(resolved) > 0 {
			content["resolvedBlockerIds"] = resolved
		}
		return []change{{"task.updated", id, content}}, nil
	})
	return out, err
}

func patchContent(p Patch) map[string]any {
	c := map[string]any{}
	if p.Title != nil {
		c["title"] = *p.Title
	}
	if p.Status != nil {
		c["status"] = *p.Status
	}
	if p.Priority != nil {
		c["priority"] = string(*p.Priority)
	}
	if p.IsArchived != nil {
		c["isArchived"] = *p.IsArchived
	}
	return c
}

// Complete marks a task done. The journal entry lists the blockers the
// completion resolved.
func (s *Service) Complete(ctx context.Context, id int64) (*Task, error) {
	var out *Task
	err := s.mutate(ctx, func(st *State, now time.Time) ([]change, error) {
		t, resolved, err := st.Complete(id, now)
		if err != nil {
			return nil, err
		}
		out = t
		var content map[string]any
		if len(resolved) > 0 {
			content = map[string]any{"resolvedBlockerIds": resolved}
		}
		return []change{{"task.completed", id, content}}, nil
	})
	return out, err
}

// Uncomplete reopens a task.
func (s *Service) Uncomplete(ctx context.Context, id int64) (*Task, error) {
	return s.taskCommand(ctx, "task.uncompleted", id, func(st *State, now time.Time) (*Task, error) {
		return st.Uncomplete(id, now)
	})
}

// Hide defers a task for minutes.
func (s *Service) Hide(ctx context.Context, id int64, minutes int) (*Task, error) {
	return s.taskCommand(ctx, "task.hidden", id, func(st *State, now time.Time) (*Task, error) {
		return st.Hide(id, minutes, now)
	})
}

// Unhide clears a deferral.
func (s *Service) Unhide(ctx context.Context, id int64) (*Task, error) {
	return s.taskCommand(ctx, "task.unhidden", id, func(st *State, now time.Time) (*Task, error) {
		return st.Unhide(id, now)
	})
}

// Focus makes id the focused task.
func (s *Service) Focus(ctx context.Context, id int64) (*Task, error) {
	return s.taskCommand(ctx, "task.focused", id, func(st *State, now time.Time) (*Task, error) {
		return st.Focus(id, now)
	})
}

func (s *Service) taskCommand(ctx context.Context, kind string, id int64, op func(*State, time.Time) (*Task, error)) (*Task, error) {
	var out *Task
	err := s.mutate(ctx, func(st *State, now time.Time) ([]change, error) {
		t, err := op(st, now)
		if err != nil {
			return nil, err
		}
		out = t
		return []change{{kind, id, nil}}, nil
	})
	return out, err
}

// ClearFocus drops the focus.
func (s *Service) ClearFocus(ctx context.Context) error {
	return s.mutate(ctx, func(st *State, _ time.Time) ([]change, error) {
		prev := st.Settings.FocusedTaskID
		st.ClearFocus()
		var id int64
		if prev != nil {
			id = *prev
		}
		return []change{{"focus.cleared", id, nil}}, nil
	})
}

// Delete removes a task and its blockers.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(st *State, _ time.Time) ([]change, error) {
		removed, err := st.Delete(id)
		if err != nil {
			return nil, err
		}
		return []change{{"task.deleted", id, map[string]any{"removedBlockerIds": removed}}}, nil
	})
}

// AddBlocker attaches a blocker to taskID.
func (s *Service) AddBlocker(ctx context.Context, taskID int64, spec BlockerSpec) (*Blocker, error) {
	var out *Blocker
	err := s.mutate(ctx, func(st *State, _ time.Time) ([]change, error) {
		b, err := st.AddBlocker(taskID, spec)
		if err != nil {
			return nil, err
		}
		out = b
		return []change{{"blocker.added", taskID, map[string]any{
			"blockerId":        b.ID,
			"blockedByTaskId":  b.BlockedByTaskID,
			"blockedUntilDate": b.BlockedUntilDate,
		}}}, nil
	})
	return out, err
}

// RemoveBlocker deletes a blocker.
func (s *Service) RemoveBlocker(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(st *State, _ time.Time) ([]change, error) {
		b, err := st.RemoveBlocker(id)
		if err != nil {
			return nil, err
		}
		return []change{{"blocker.removed", b.TaskID, map[string]any{"blockerId": id, "resolved": b.Resolved}}}, nil
	})
}

// Sweep refreshes the stored state outside of any request and reports
// the vacation nudge.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	res := &SweepResult{}
	changes := refreshChanges(st, now)
	if len(changes) > 0 {
		if err := s.store.Save(ctx, st); err != nil {
			return nil, fmt.Errorf("save state: %w", err)
		}
		s.record(ctx, changes)
		res.Changed = true
		for _, c := range changes {
			if ids, ok := c.content["blockerIds"].([]int64); ok {
				res.Resolved += len(ids)
			}
		}
	}
	res.Nudge = VacationNudge(st.Tasks, st.Settings, now)
	return res, nil
}
