package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"tiertrack/pkg/journal"
)

func (s *Server) handleJournalList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 50)

	if v := r.URL.Query().Get("task"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, 400, "invalid task id "+strconv.Quote(v))
			return
		}
		entries, err := s.journal.ByTask(ctx, id, limit)
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, entries)
		return
	}
	if after := r.URL.Query().Get("after"); after != "" {
		entries, err := s.journal.Since(ctx, after, limit)
		if err != nil {
			writeError(w, 404, err.Error())
			return
		}
		writeJSON(w, 200, entries)
		return
	}

	entries, err := s.journal.Recent(ctx, limit)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, entries)
}

func (s *Server) handleJournalVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.journal.Count(ctx)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if err := s.journal.VerifyChain(ctx); err != nil {
		writeJSON(w, 200, map[string]any{"ok": false, "entries": n, "error": err.Error()})
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "entries": n})
}

// handleJournalStream pushes new entries as server-sent events. With
// ?after=<id> it first replays what the client missed; ?task=<id> limits
// the stream to that task's entries.
func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	ctx := r.Context()
	var taskID int64
	if v := r.URL.Query().Get("task"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			writeError(w, 400, "invalid task id "+strconv.Quote(v))
			return
		}
		taskID = id
	}

	ch := s.journal.Subscribe(taskID)
	defer s.journal.Unsubscribe(ch)

	var backlog []journal.Entry
	if after := r.URL.Query().Get("after"); after != "" {
		entries, err := s.journal.Since(ctx, after, 500)
		if err != nil {
			writeError(w, 404, err.Error())
			return
		}
		for _, e := range entries {
			if taskID == 0 || e.TaskID == taskID {
				backlog = append(backlog, e)
			}
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	seen := make(map[string]bool, len(backlog))
	for i := range backlog {
		seen[backlog[i].ID] = true
		writeEvent(w, &backlog[i])
	}
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			if seen[e.ID] {
				continue
			}
			writeEvent(w, e)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e *journal.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("SSE marshal: %v", err)
		return
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
}
