package task

import "time"

// SettingsPatch changes the editable settings. Nil fields are left alone;
// the Clear flags reset the matching nullable field.
//
// Focus is not editable here. FocusedTaskID is only compared against the
// current focus when CheckFocus is set, so a record read from Settings can
// be written back as a whole; use Focus and ClearFocus to change it.
type SettingsPatch struct {
	StaleThresholdHours                 *float64
	TopN                                *int
	OneTimeOffsetHours                  *float64
	OneTimeOffsetExpiresAt              *time.Time
	VacationPromptLastShownForUpdatedAt *time.Time

	ClearOneTimeOffset          bool // zero hours and no expiry
	ClearOneTimeOffsetExpiresAt bool
	ClearVacationPrompt         bool

	FocusedTaskID *int64
	CheckFocus    bool
}

// MaxVacationDays bounds ApplyVacation.
const MaxVacationDays = 365

// UpdateSettings validates p completely and then applies it.
func (s *State) UpdateSettings(p SettingsPatch) (Settings, error) {
	if p.StaleThresholdHours != nil && *p.StaleThresholdHours <= 0 {
		return s.Settings, validationf("staleThresholdHours must be positive, got %v", *p.StaleThresholdHours)
	}
	if p.TopN != nil && *p.TopN < 1 {
		return s.Settings, validationf("topN must be at least 1, got %d", *p.TopN)
	}
	if p.OneTimeOffsetHours != nil && *p.OneTimeOffsetHours < 0 {
		return s.Settings, validationf("oneTimeOffsetHours must not be negative, got %v", *p.OneTimeOffsetHours)
	}
	if p.CheckFocus && !sameID(p.FocusedTaskID, s.Settings.FocusedTaskID) {
		return s.Settings, validationf("focusedTaskId cannot be changed through settings; focus or clear focus instead")
	}

	if p.StaleThresholdHours != nil {
		s.Settings.StaleThresholdHours = *p.StaleThresholdHours
	}
	if p.TopN != nil {
		s.Settings.TopN = *p.TopN
	}
	if p.OneTimeOffsetHours != nil {
		s.Settings.OneTimeOffsetHours = *p.OneTimeOffsetHours
	}
	if p.OneTimeOffsetExpiresAt != nil {
		s.Settings.OneTimeOffsetExpiresAt = ptr(*p.OneTimeOffsetExpiresAt)
	}
	if p.ClearOneTimeOffsetExpiresAt {
		s.Settings.OneTimeOffsetExpiresAt = nil
	}
	if p.ClearOneTimeOffset {
		s.Settings.OneTimeOffsetHours = 0
		s.Settings.OneTimeOffsetExpiresAt = nil
	}
	if p.VacationPromptLastShownForUpdatedAt != nil {
		s.Settings.VacationPromptLastShownForUpdatedAt = ptr(*p.VacationPromptLastShownForUpdatedAt)
	}
	if p.ClearVacationPrompt {
		s.Settings.VacationPromptLastShownForUpdatedAt = nil
	}
	return s.Settings, nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ApplyVacation extends the staleness threshold by days for a grace
// window starting at now, and marks the current inactivity streak as
// already prompted.
func (s *State) ApplyVacation(days int, grace time.Duration, now time.Time) (Settings, error) {
	if days < 1 || days > MaxVacationDays {
		return s.Settings, validationf("vacation days must be between 1 and %d, got %d", MaxVacationDays, days)
	}
	if grace <= 0 {
		return s.Settings, validationf("vacation grace must be positive, got %s", grace)
	}
	s.Settings.OneTimeOffsetHours = float64(days * 24)
	s.Settings.OneTimeOffsetExpiresAt = ptr(now.Add(grace))
	s.markPrompted()
	return s.Settings, nil
}

// DismissVacation silences the nudge for the current inactivity streak
// without applying an offset. It reports false when there is no open
// task to anchor on.
func (s *State) DismissVacation() bool {
	return s.markPrompted()
}

func (s *State) markPrompted() bool {
	anchor, ok := nudgeAnchor(s.Tasks)
	if !ok {
		return false
	}
	s.Settings.VacationPromptLastShownForUpdatedAt = ptr(anchor)
	return true
}
