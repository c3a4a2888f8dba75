package task

import (
	"testing"
	"time"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// addTasks creates n tasks of priority p, one minute apart starting at
// start.
func addTasks(t *testing.T, st *State, n int, p Priority, start time.Time) []*Task {
	t.Helper()
	var out []*Task
	for i := 0; i < n; i++ {
		tk, err := st.Create("task", "", p, start.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		out = append(out, tk)
	}
	return out
}

func ids(tasks []*Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestActiveBacklogSplit(t *testing.T) {
	st := NewState(DefaultSettings())
	p1 := addTasks(t, st, 25, P1, base)
	now := base.Add(time.Hour)

	active := Classify(st, ViewActive, now)
	backlog := Classify(st, ViewBacklog, now)

	if len(active) != 20 {
		t.Fatalf("active = %d tasks, want 20", len(active))
	}
	if !equalIDs(ids(active), ids(p1[:20])) {
		t.Errorf("active order = %v, want %v", ids(active), ids(p1[:20]))
	}
	if !equalIDs(ids(backlog), ids(p1[20:])) {
		t.Errorf("backlog order = %v, want %v", ids(backlog), ids(p1[20:]))
	}
}

func TestActiveMixesTiers(t *testing.T) {
	st := NewState(DefaultSettings())
	// P1s are created first so creation order alone would put them ahead.
	p1 := addTasks(t, st, 20, P1, base)
	p0 := addTasks(t, st, 5, P0, base.Add(time.Hour))
	now := base.Add(2 * time.Hour)

	active := Classify(st, ViewActive, now)
	backlog := Classify(st, ViewBacklog, now)

	want := append(ids(p0), ids(p1[:15])...)
	if !equalIDs(ids(active), want) {
		t.Errorf("active = %v, want %v", ids(active), want)
	}
	if !equalIDs(ids(backlog), ids(p1[15:])) {
		t.Errorf("backlog = %v, want %v", ids(backlog), ids(p1[15:]))
	}
}

func TestRankIgnoresUpdatedAt(t *testing.T) {
	a := &Task{ID: 1, Priority: P1, CreatedAt: base, UpdatedAt: base}
	b := &Task{ID: 2, Priority: P1, CreatedAt: base.Add(time.Minute), UpdatedAt: base}

	before := ids(Rank([]*Task{b, a}))
	a.UpdatedAt = base.Add(72 * time.Hour)
	b.UpdatedAt = base.Add(-72 * time.Hour)
	after := ids(Rank([]*Task{b, a}))

	if !equalIDs(before, after) || before[0] != 1 {
		t.Fatalf("rank changed with updatedAt: before %v after %v", before, after)
	}
}

func TestRankStableOnTies(t *testing.T) {
	a := &Task{ID: 1, Priority: P2, CreatedAt: base}
	b := &Task{ID: 2, Priority: P2, CreatedAt: base}
	if got := ids(Rank([]*Task{b, a})); !equalIDs(got, []int64{2, 1}) {
		t.Fatalf("ties should keep input order, got %v", got)
	}
}

func TestClassifyViews(t *testing.T) {
	now := base.Add(48 * time.Hour)
	st := NewState(DefaultSettings())

	active, _ := st.Create("active", "", P1, base)
	idea, _ := st.Create("idea", "", None, base)
	blocked, _ := st.Create("blocked", "", P0, base)
	hidden, _ := st.Create("hidden", "", P2, base)
	done, _ := st.Create("done", "", P1, base)
	archived, _ := st.Create("archived", "", P1, base)

	st.AddBlocker(blocked.ID, BlockerSpec{BlockedByTaskID: ptr(active.ID)})
	if _, err := st.Hide(hidden.ID, 60, now); err != nil {
		t.Fatalf("hide: %v", err)
	}
	st.Complete(done.ID, now)
	st.Update(archived.ID, Patch{IsArchived: ptr(true)}, now)

	tests := []struct {
		view View
		want []int64
	}{
		{ViewActive, []int64{active.ID}},
		{ViewBacklog, nil},
		{ViewIdeas, []int64{idea.ID}},
		{ViewBlocked, []int64{blocked.ID}},
		{ViewHidden, []int64{hidden.ID}},
		{ViewCompleted, []int64{done.ID}},
		{ViewArchive, []int64{archived.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.view.String(), func(t *testing.T) {
			got := ids(Classify(st, tt.view, now))
			if !equalIDs(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.view, got, tt.want)
			}
		})
	}
}

func TestHiddenExpires(t *testing.T) {
	st := NewState(DefaultSettings())
	tk, _ := st.Create("defer me", "", P1, base)
	st.Hide(tk.ID, 15, base)

	if n := len(Classify(st, ViewActive, base.Add(10*time.Minute))); n != 0 {
		t.Fatalf("hidden task still active")
	}
	if n := len(Classify(st, ViewActive, base.Add(15*time.Minute))); n != 1 {
		t.Fatalf("task should be active again once hiddenUntilAt is reached")
	}
}

func TestCompletedNewestFirst(t *testing.T) {
	st := NewState(DefaultSettings())
	a, _ := st.Create("a", "", P1, base)
	b, _ := st.Create("b", "", P1, base)
	st.Complete(a.ID, base.Add(time.Hour))
	st.Complete(b.ID, base.Add(2*time.Hour))

	got := ids(Classify(st, ViewCompleted, base.Add(3*time.Hour)))
	if !equalIDs(got, []int64{b.ID, a.ID}) {
		t.Fatalf("completed = %v, want newest first", got)
	}
}

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewActive, false},
		{"tasks", ViewActive, false},
		{"Backlog", ViewBacklog, false},
		{"archived", ViewArchive, false},
		{"archive", ViewArchive, false},
		{"someday", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseView(tt.in)
		if tt.wantErr {
			if !IsValidation(err) {
				t.Errorf("ParseView(%q) err = %v, want validation error", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseView(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestRefreshDropsStaleFocus(t *testing.T) {
	st := NewState(DefaultSettings())
	tk, _ := st.Create("focus", "", P1, base)
	if _, err := st.Focus(tk.ID, base); err != nil {
		t.Fatalf("focus: %v", err)
	}

	// Mutate behind the engine's back, as a concurrent writer could.
	tk.IsArchived = true
	if !Refresh(st, base) {
		t.Fatal("refresh should report the focus change")
	}
	if st.Settings.FocusedTaskID != nil {
		t.Fatal("focus should be cleared")
	}
	if Refresh(st, base) {
		t.Fatal("second refresh should be a no-op")
	}
}
