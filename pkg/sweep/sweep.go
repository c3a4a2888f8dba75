// Package sweep periodically refreshes the tracker in the background so
// date-based blockers resolve and stale focus clears even when no client
// is polling.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"

	"tiertrack/pkg/task"
)

// DefaultSchedule runs a sweep every minute.
const DefaultSchedule = "@every 1m"

// Sweeper is the part of task.Service the runner needs.
type Sweeper interface {
	Sweep(ctx context.Context) (*task.SweepResult, error)
}

// Runner drives a Sweeper on a cron schedule.
type Runner struct {
	svc      Sweeper
	schedule string

	// lastNudge is the anchor of the last nudge logged, so one
	// inactivity streak is logged once.
	lastNudge time.Time
}

// Validate reports whether expr is a usable schedule: a five-field cron
// spec or a descriptor such as "@hourly" or "@every 30s".
func Validate(expr string) error {
	if _, err := rcron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return nil
}

// New creates a Runner. An empty schedule means DefaultSchedule.
func New(svc Sweeper, schedule string) *Runner {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Runner{svc: svc, schedule: schedule}
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	c := rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DefaultLogger)))
	if _, err := c.AddFunc(r.schedule, func() { r.Once(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", r.schedule, err)
	}

	log.Printf("sweep: running on %q", r.schedule)

	// Catch up immediately on startup
	r.Once(ctx)

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Println("sweep: stop timeout waiting for running sweep")
	}
	log.Println("sweep: shutting down")
	return nil
}

// Once runs a single sweep. Failures and panics are logged, never
// propagated, so one bad sweep does not stop the schedule.
func (r *Runner) Once(ctx context.Context) *task.SweepResult {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("sweep: panic: %v", rec)
		}
	}()

	res, err := r.svc.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("sweep: %v", err)
		}
		return nil
	}
	if res.Resolved > 0 {
		log.Printf("sweep: resolved %d blocker(s)", res.Resolved)
	}
	if n := res.Nudge; n != nil && !n.AnchorTimestamp.Equal(r.lastNudge) {
		r.lastNudge = n.AnchorTimestamp
		log.Printf("sweep: no open task touched for %.0fh, suggest a %d day vacation offset", n.InactivityHours, n.SuggestedDays)
	}
	return res
}
