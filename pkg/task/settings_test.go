package task

import (
	"testing"
	"time"
)

func TestUpdateSettingsValidates(t *testing.T) {
	tests := []struct {
		name string
		p    SettingsPatch
	}{
		{"zero threshold", SettingsPatch{StaleThresholdHours: ptr(0.0)}},
		{"zero topN", SettingsPatch{TopN: ptr(0)}},
		{"negative offset", SettingsPatch{OneTimeOffsetHours: ptr(-1.0)}},
		{"one bad field", SettingsPatch{TopN: ptr(5), StaleThresholdHours: ptr(-3.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState(DefaultSettings())
			if _, err := st.UpdateSettings(tt.p); !IsValidation(err) {
				t.Fatalf("err = %v, want validation", err)
			}
			if st.Settings != DefaultSettings() {
				t.Fatalf("settings mutated: %+v", st.Settings)
			}
		})
	}
}

func TestUpdateSettingsApplies(t *testing.T) {
	st := NewState(DefaultSettings())
	set, err := st.UpdateSettings(SettingsPatch{TopN: ptr(3), StaleThresholdHours: ptr(48.0)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if set.TopN != 3 || set.StaleThresholdHours != 48 {
		t.Fatalf("settings = %+v", set)
	}

	st.Settings.OneTimeOffsetHours = 24
	st.Settings.OneTimeOffsetExpiresAt = ptr(base)
	set, _ = st.UpdateSettings(SettingsPatch{ClearOneTimeOffset: true})
	if set.OneTimeOffsetHours != 0 || set.OneTimeOffsetExpiresAt != nil {
		t.Fatalf("offset not cleared: %+v", set)
	}
}

func TestUpdateSettingsNullableAndFocus(t *testing.T) {
	st := NewState(DefaultSettings())
	tk, _ := st.Create("a", "", P1, base)
	st.Settings.VacationPromptLastShownForUpdatedAt = ptr(base)
	st.Settings.OneTimeOffsetExpiresAt = ptr(base)

	set, err := st.UpdateSettings(SettingsPatch{ClearVacationPrompt: true, ClearOneTimeOffsetExpiresAt: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if set.VacationPromptLastShownForUpdatedAt != nil || set.OneTimeOffsetExpiresAt != nil {
		t.Fatalf("timestamps not cleared: %+v", set)
	}

	if _, err := st.Focus(tk.ID, base); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if _, err := st.UpdateSettings(SettingsPatch{CheckFocus: true, FocusedTaskID: ptr(tk.ID), TopN: ptr(4)}); err != nil {
		t.Fatalf("unchanged focus should be accepted: %v", err)
	}
	if _, err := st.UpdateSettings(SettingsPatch{CheckFocus: true, TopN: ptr(9)}); !IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	if st.Settings.TopN != 4 || st.Settings.FocusedTaskID == nil {
		t.Fatalf("rejected patch applied: %+v", st.Settings)
	}
}

func TestApplyVacation(t *testing.T) {
	now := base.Add(100 * time.Hour)
	st := NewState(DefaultSettings())
	tk, _ := st.Create("a", "", P1, now.Add(-50*time.Hour))

	if n := VacationNudge(st.Tasks, st.Settings, now); n == nil || n.SuggestedDays != 2 {
		t.Fatalf("nudge = %+v", n)
	}

	if _, err := st.ApplyVacation(0, 24*time.Hour, now); !IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	set, err := st.ApplyVacation(2, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if set.OneTimeOffsetHours != 48 || !set.OneTimeOffsetExpiresAt.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("settings = %+v", set)
	}
	if !set.VacationPromptLastShownForUpdatedAt.Equal(tk.UpdatedAt) {
		t.Fatal("apply should mark the anchor as prompted")
	}
	if IsStale(tk.UpdatedAt, set, now) {
		t.Fatal("50h-old task should be covered by 24h+48h threshold")
	}
	if VacationNudge(st.Tasks, st.Settings, now.Add(48*time.Hour)) != nil {
		t.Fatal("nudge should stay quiet for the same anchor after the offset expires")
	}
}

func TestDismissVacation(t *testing.T) {
	st := NewState(DefaultSettings())
	if st.DismissVacation() {
		t.Fatal("nothing to dismiss without open tasks")
	}
	tk, _ := st.Create("a", "", P1, base)
	now := base.Add(72 * time.Hour)
	if !st.DismissVacation() {
		t.Fatal("dismiss should succeed")
	}
	if VacationNudge(st.Tasks, st.Settings, now) != nil {
		t.Fatal("dismissed anchor should not nudge")
	}

	st.Update(tk.ID, Patch{}, now)
	if VacationNudge(st.Tasks, st.Settings, now.Add(30*time.Hour)) == nil {
		t.Fatal("touching a task starts a new streak")
	}
}
