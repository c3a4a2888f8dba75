package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tiertrack/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	view, err := task.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items, err := s.svc.List(r.Context(), view)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, items)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, item)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string        `json:"title"`
		Status   string        `json:"status"`
		Priority task.Priority `json:"priority"` // null or absent = idea
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.svc.Create(r.Context(), req.Title, req.Status, req.Priority)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, t)
}

// handleTaskUpdate applies a partial edit. A key that is present with a
// null priority turns the task into an idea, which is why the body is
// decoded key by key.
func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	p, err := parsePatch(raw)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	t, err := s.svc.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, t)
}

func parsePatch(raw map[string]json.RawMessage) (task.Patch, error) {
	var p task.Patch
	for key, val := range raw {
		var err error
		switch key {
		case "title":
			p.Title = new(string)
			err = json.Unmarshal(val, p.Title)
		case "status":
			p.Status = new(string)
			err = json.Unmarshal(val, p.Status)
		case "priority":
			p.Priority = new(task.Priority)
			err = json.Unmarshal(val, p.Priority)
		case "isArchived":
			p.IsArchived = new(bool)
			err = json.Unmarshal(val, p.IsArchived)
		default:
			return p, fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return p, nil
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, s.svc.Complete)
}

func (s *Server) handleTaskUncomplete(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, s.svc.Uncomplete)
}

func (s *Server) handleTaskUnhide(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, s.svc.Unhide)
}

func (s *Server) handleTaskFocus(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, s.svc.Focus)
}

func (s *Server) handleTaskHide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.svc.Hide(r.Context(), id, req.Minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleFocusClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearFocus(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) taskAction(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*task.Task, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, t)
}
