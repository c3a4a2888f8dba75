package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tiertrack/pkg/task"
)

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.Settings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, set)
}

// handleSettingsUpdate accepts the record returned by GET, decoded key by
// key so that null clears a nullable timestamp. focusedTaskId may only
// repeat the current focus.
func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	p, err := parseSettingsPatch(raw)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	set, err := s.svc.UpdateSettings(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, set)
}

func parseSettingsPatch(raw map[string]json.RawMessage) (task.SettingsPatch, error) {
	var p task.SettingsPatch
	for key, val := range raw {
		null := bytes.Equal(bytes.TrimSpace(val), []byte("null"))
		var err error
		switch key {
		case "staleThresholdHours", "topN", "oneTimeOffsetHours", "clearOneTimeOffset":
			if null {
				return p, fmt.Errorf("%s cannot be null", key)
			}
			switch key {
			case "staleThresholdHours":
				p.StaleThresholdHours = new(float64)
				err = json.Unmarshal(val, p.StaleThresholdHours)
			case "topN":
				p.TopN = new(int)
				err = json.Unmarshal(val, p.TopN)
			case "oneTimeOffsetHours":
				p.OneTimeOffsetHours = new(float64)
				err = json.Unmarshal(val, p.OneTimeOffsetHours)
			default:
				err = json.Unmarshal(val, &p.ClearOneTimeOffset)
			}
		case "oneTimeOffsetExpiresAt":
			if null {
				p.ClearOneTimeOffsetExpiresAt = true
				continue
			}
			p.OneTimeOffsetExpiresAt = new(time.Time)
			err = json.Unmarshal(val, p.OneTimeOffsetExpiresAt)
		case "vacationPromptLastShownForUpdatedAt":
			if null {
				p.ClearVacationPrompt = true
				continue
			}
			p.VacationPromptLastShownForUpdatedAt = new(time.Time)
			err = json.Unmarshal(val, p.VacationPromptLastShownForUpdatedAt)
		case "focusedTaskId":
			p.CheckFocus = true
			if null {
				continue
			}
			p.FocusedTaskID = new(int64)
			err = json.Unmarshal(val, p.FocusedTaskID)
		default:
			return p, fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return p, nil
}

func (s *Server) handleVacationGet(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Nudge(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, n)
}

// handleVacationApply applies the requested number of days, or the
// current suggestion when days is omitted.
func (s *Server) handleVacationApply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	set, err := s.svc.ApplyVacation(r.Context(), req.Days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, set)
}

func (s *Server) handleVacationDismiss(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.DismissVacation(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, set)
}
