package task

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// View names one of the fixed task listings.
type View int

const (
	ViewActive View = iota
	ViewBacklog
	ViewIdeas
	ViewBlocked
	ViewHidden
	ViewCompleted
	ViewArchive
)

// Views lists every view in display order.
var Views = []View{ViewActive, ViewBacklog, ViewIdeas, ViewBlocked, ViewHidden, ViewCompleted, ViewArchive}

var viewNames = map[View]string{
	ViewActive:    "active",
	ViewBacklog:   "backlog",
	ViewIdeas:     "ideas",
	ViewBlocked:   "blocked",
	ViewHidden:    "hidden",
	ViewCompleted: "completed",
	ViewArchive:   "archive",
}

func (v View) String() string {
	if n, ok := viewNames[v]; ok {
		return n
	}
	return "unknown"
}

// ParseView maps a view name to a View. "tasks" is accepted as an alias
// for the active view.
func ParseView(s string) (View, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "tasks":
		return ViewActive, nil
	case "archived":
		return ViewArchive, nil
	}
	for v, n := range viewNames {
		if n == name {
			return v, nil
		}
	}
	return 0, validationf("unknown view %q", s)
}

// eligible reports whether t takes part in the active/backlog ranking.
func eligible(t *Task, blockers []*Blocker, now time.Time) bool {
	return !t.IsIdea() && t.IsOpen() && !IsBlocked(t.ID, blockers) && !t.IsHidden(now)
}

// focusable reports whether t may hold focus. Ideas can be focused.
func focusable(t *Task, blockers []*Blocker, now time.Time) bool {
	return t.IsOpen() && !IsBlocked(t.ID, blockers) && !t.IsHidden(now)
}

// Rank orders tasks by priority tier, then by creation time. UpdatedAt
// is deliberately ignored so edits never move a task between the active
// and backlog views. Equal keys keep input order.
func Rank(tasks []*Task) []*Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b *Task) int {
		if c := cmp.Compare(a.Priority.tier(), b.Priority.tier()); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Classify returns the tasks belonging to view, in that view's order.
// It does not mutate st; run Refresh first.
func Classify(st *State, view View, now time.Time) []*Task {
	switch view {
	case ViewActive, ViewBacklog:
		var pool []*Task
		for _, t := range st.Tasks {
			if eligible(t, st.Blockers, now) {
				pool = append(pool, t)
			}
		}
		ranked := Rank(pool)
		n := min(max(st.Settings.TopN, 0), len(ranked))
		if view == ViewActive {
			return ranked[:n]
		}
		return ranked[n:]

	case ViewIdeas:
		out := filter(st.Tasks, func(t *Task) bool {
			return t.IsIdea() && t.IsOpen() && !t.IsHidden(now)
		})
		sortByUpdated(out, false)
		return out

	case ViewBlocked:
		out := filter(st.Tasks, func(t *Task) bool {
			return t.IsOpen() && IsBlocked(t.ID, st.Blockers)
		})
		sortByUpdated(out, false)
		return out

	case ViewHidden:
		out := filter(st.Tasks, func(t *Task) bool {
			return t.IsOpen() && !IsBlocked(t.ID, st.Blockers) && t.IsHidden(now)
		})
		slices.SortStableFunc(out, func(a, b *Task) int {
			switch {
			case a.HiddenUntilAt == nil && b.HiddenUntilAt != nil:
				return 1
			case a.HiddenUntilAt != nil && b.HiddenUntilAt == nil:
				return -1
			case a.HiddenUntilAt != nil && b.HiddenUntilAt != nil:
				if c := a.HiddenUntilAt.Compare(*b.HiddenUntilAt); c != 0 {
					return c
				}
			}
			return a.UpdatedAt.Compare(b.UpdatedAt)
		})
		return out

	case ViewCompleted:
		out := filter(st.Tasks, func(t *Task) bool {
			return t.CompletedAt != nil && !t.IsArchived
		})
		slices.SortStableFunc(out, func(a, b *Task) int {
			return b.CompletedAt.Compare(*a.CompletedAt)
		})
		return out

	case ViewArchive:
		out := filter(st.Tasks, func(t *Task) bool { return t.IsArchived })
		sortByUpdated(out, true)
		return out
	}
	return nil
}

// Refresh runs blocker auto-resolution and then drops focus from a task
// that can no longer hold it. It reports whether st changed.
func Refresh(st *State, now time.Time) bool {
	changed := AutoResolve(st.Blockers, st.Tasks, now)
	if normalizeFocus(st, now) {
		changed = true
	}
	return changed
}

func normalizeFocus(st *State, now time.Time) bool {
	id := st.Settings.FocusedTaskID
	if id == nil {
		return false
	}
	if t := st.Task(*id); t != nil && focusable(t, st.Blockers, now) {
		return false
	}
	st.Settings.FocusedTaskID = nil
	return true
}

func filter(tasks []*Task, keep func(*Task) bool) []*Task {
	out := []*Task{}
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func sortByUpdated(tasks []*Task, newestFirst bool) {
	slices.SortStableFunc(tasks, func(a, b *Task) int {
		if newestFirst {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		}
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
}
