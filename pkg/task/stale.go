package task

import (
	"math"
	"time"
)

// nudgeAfter is how long every open task must sit untouched before a
// vacation nudge is offered.
const nudgeAfter = 24 * time.Hour

// OffsetActive reports whether the one-time offset still applies at now.
// The expiry instant itself is still covered.
func OffsetActive(s Settings, now time.Time) bool {
	return s.OneTimeOffsetExpiresAt != nil && !s.OneTimeOffsetExpiresAt.Before(now)
}

// EffectiveThresholdHours is the staleness threshold including any
// active one-time offset.
func EffectiveThresholdHours(s Settings, now time.Time) float64 {
	h := s.StaleThresholdHours
	if OffsetActive(s, now) {
		h += s.OneTimeOffsetHours
	}
	return h
}

// IsStale reports whether more than the effective threshold has elapsed
// since updatedAt.
func IsStale(updatedAt time.Time, s Settings, now time.Time) bool {
	return now.Sub(updatedAt).Hours() > EffectiveThresholdHours(s, now)
}

// Nudge suggests a temporary staleness offset after a stretch where no
// open task was touched.
type Nudge struct {
	AnchorTimestamp time.Time `json:"anchorTimestamp"`
	InactivityHours float64   `json:"inactivityHours"`
	SuggestedDays   int       `json:"suggestedDays"`
}

// nudgeAnchor returns the most recent UpdatedAt among open tasks. Hidden
// and blocked tasks count.
func nudgeAnchor(tasks []*Task) (time.Time, bool) {
	var anchor time.Time
	found := false
	for _, t := range tasks {
		if !t.IsOpen() {
			continue
		}
		if !found || t.UpdatedAt.After(anchor) {
			anchor = t.UpdatedAt
			found = true
		}
	}
	return anchor, found
}

// VacationNudge returns a recommendation, or nil when there is nothing
// to suggest. A nudge fires at most once per anchor: once
// VacationPromptLastShownForUpdatedAt equals the anchor it stays quiet
// until some open task is touched again.
func VacationNudge(tasks []*Task, s Settings, now time.Time) *Nudge {
	anchor, ok := nudgeAnchor(tasks)
	if !ok {
		return nil
	}
	elapsed := now.Sub(anchor)
	if elapsed <= nudgeAfter {
		return nil
	}
	if s.VacationPromptLastShownForUpdatedAt != nil && s.VacationPromptLastShownForUpdatedAt.Equal(anchor) {
		return nil
	}
	if OffsetActive(s, now) {
		return nil
	}
	hours := elapsed.Hours()
	days := int(math.Floor(hours / 24))
	if days < 1 {
		days = 1
	}
	return &Nudge{
		AnchorTimestamp: anchor,
		InactivityHours: hours,
		SuggestedDays:   days,
	}
}
