package api

import (
	"net/http"

	"tiertrack/pkg/task"
)

func (s *Server) handleBlockerList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	blockers, err := s.svc.Blockers(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, blockers)
}

func (s *Server) handleBlockerAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var spec task.BlockerSpec
	if !decodeBody(w, r, &spec) {
		return
	}
	b, err := s.svc.AddBlocker(r.Context(), id, spec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, b)
}

func (s *Server) handleBlockerRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.RemoveBlocker(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
