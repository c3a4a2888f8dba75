package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tiertrack/pkg/task"
)

type stubSweeper struct {
	calls  atomic.Int32
	res    *task.SweepResult
	err    error
	panics bool
}

func (s *stubSweeper) Sweep(_ context.Context) (*task.SweepResult, error) {
	s.calls.Add(1)
	if s.panics {
		panic("boom")
	}
	return s.res, s.err
}

func TestValidate(t *testing.T) {
	for _, expr := range []string{"@every 1m", "@hourly", "*/5 * * * *"} {
		if err := Validate(expr); err != nil {
			t.Errorf("Validate(%q) = %v", expr, err)
		}
	}
	for _, expr := range []string{"", "every minute", "* * *"} {
		if err := Validate(expr); err == nil {
			t.Errorf("Validate(%q) should fail", expr)
		}
	}
}

func TestOnceSurvivesFailures(t *testing.T) {
	ctx := context.Background()

	failing := &stubSweeper{err: errors.New("db down")}
	if res := New(failing, "").Once(ctx); res != nil {
		t.Fatalf("failed sweep returned %+v", res)
	}

	panicking := &stubSweeper{panics: true}
	New(panicking, "").Once(ctx)
	if panicking.calls.Load() != 1 {
		t.Fatal("sweep was not called")
	}
}

func TestOnceLogsNudgeOncePerAnchor(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &stubSweeper{res: &task.SweepResult{Nudge: &task.Nudge{AnchorTimestamp: anchor, SuggestedDays: 2}}}
	r := New(s, "")

	r.Once(context.Background())
	if !r.lastNudge.Equal(anchor) {
		t.Fatalf("lastNudge = %v, want %v", r.lastNudge, anchor)
	}
	res := r.Once(context.Background())
	if res == nil || res.Nudge == nil {
		t.Fatal("result should still carry the nudge")
	}
}

func TestRunSweepsOnStartup(t *testing.T) {
	s := &stubSweeper{res: &task.SweepResult{}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(s, "@every 1h").Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for s.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no sweep on startup")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	err := New(&stubSweeper{}, "not a schedule").Run(context.Background())
	if err == nil {
		t.Fatal("expected schedule error")
	}
}
