package task

import "time"

// AutoResolve marks unresolved blockers resolved when their date has
// arrived or the task they wait on is completed. It mutates blockers in
// place and reports whether anything changed, so callers know whether
// to persist. A blocker whose dependency does not exist never resolves.
func AutoResolve(blockers []*Blocker, tasks []*Task, now time.Time) bool {
	completed := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if t.CompletedAt != nil {
			completed[t.ID] = true
		}
	}

	changed := false
	for _, b := range blockers {
		if b.Resolved {
			continue
		}
		if b.BlockedUntilDate != nil && !b.BlockedUntilDate.After(now) {
			b.Resolved = true
		}
		if b.BlockedByTaskID != nil && completed[*b.BlockedByTaskID] {
			b.Resolved = true
		}
		if b.Resolved {
			changed = true
		}
	}
	return changed
}

// IsBlocked reports whether taskID has at least one unresolved blocker.
func IsBlocked(taskID int64, blockers []*Blocker) bool {
	for _, b := range blockers {
		if b.TaskID == taskID && !b.Resolved {
			return true
		}
	}
	return false
}

// resolveDependents resolves every blocker waiting on taskID. Used when
// a task is completed or archived.
func resolveDependents(blockers []*Blocker, taskID int64) []int64 {
	var resolved []int64
	for _, b := range blockers {
		if !b.Resolved && b.BlockedByTaskID != nil && *b.BlockedByTaskID == taskID {
			b.Resolved = true
			resolved = append(resolved, b.ID)
		}
	}
	return resolved
}
