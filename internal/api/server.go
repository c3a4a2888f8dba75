package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"tiertrack/pkg/journal"
	"tiertrack/pkg/task"
)

// Server is the HTTP API server.
type Server struct {
	svc     *task.Service
	journal *journal.Bus
	mux     *http.ServeMux
}

// New creates a new Server. bus must be the journal the service writes
// to so the stream sees every change.
func New(svc *task.Service, bus *journal.Bus, wasmDir string) *Server {
	s := &Server{
		svc:     svc,
		journal: bus,
		mux:     http.NewServeMux(),
	}
	s.routes(wasmDir)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes(wasmDir string) {
	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleTaskDelete)
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleTaskComplete)
	s.mux.HandleFunc("POST /api/tasks/{id}/uncomplete", s.handleTaskUncomplete)
	s.mux.HandleFunc("POST /api/tasks/{id}/hide", s.handleTaskHide)
	s.mux.HandleFunc("POST /api/tasks/{id}/unhide", s.handleTaskUnhide)
	s.mux.HandleFunc("POST /api/tasks/{id}/focus", s.handleTaskFocus)
	s.mux.HandleFunc("DELETE /api/focus", s.handleFocusClear)

	// Blockers
	s.mux.HandleFunc("GET /api/tasks/{id}/blockers", s.handleBlockerList)
	s.mux.HandleFunc("POST /api/tasks/{id}/blockers", s.handleBlockerAdd)
	s.mux.HandleFunc("DELETE /api/blockers/{id}", s.handleBlockerRemove)

	// Settings and vacation
	s.mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	s.mux.HandleFunc("PUT /api/settings", s.handleSettingsUpdate)
	s.mux.HandleFunc("GET /api/vacation", s.handleVacationGet)
	s.mux.HandleFunc("POST /api/vacation/apply", s.handleVacationApply)
	s.mux.HandleFunc("POST /api/vacation/dismiss", s.handleVacationDismiss)

	// Journal
	s.mux.HandleFunc("GET /api/journal", s.handleJournalList)
	s.mux.HandleFunc("GET /api/journal/verify", s.handleJournalVerify)
	s.mux.HandleFunc("GET /api/journal/stream", s.handleJournalStream)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// Static files (Gio WASM UI)
	if wasmDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(wasmDir)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := s.svc.Status(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	entries, _ := s.journal.Count(ctx)

	writeJSON(w, 200, map[string]any{
		"counts":        status.Counts,
		"total":         status.Total,
		"focusedTaskId": status.FocusedTaskID,
		"nudge":         status.Nudge,
		"journal":       entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps tracker errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case task.IsValidation(err):
		writeError(w, 400, err.Error())
	case task.IsNotFound(err):
		writeError(w, 404, err.Error())
	default:
		log.Printf("api: %v", err)
		writeError(w, 500, err.Error())
	}
}

// pathID parses the {id} path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, 400, "invalid id "+strconv.Quote(r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
