package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type Status struct {
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
	FocusedTaskID *int64         `json:"focusedTaskId"`
	Nudge         *Nudge         `json:"nudge"`
	Journal       int            `json:"journal"`
}

type Nudge struct {
	AnchorTimestamp time.Time `json:"anchorTimestamp"`
	InactivityHours float64   `json:"inactivityHours"`
	SuggestedDays   int       `json:"suggestedDays"`
}

type Blocker struct {
	ID               int64      `json:"id"`
	BlockedByTaskID  *int64     `json:"blockedByTaskId"`
	BlockedUntilDate *time.Time `json:"blockedUntilDate"`
	Resolved         bool       `json:"resolved"`
}

type Item struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	IsArchived    bool       `json:"isArchived"`
	HiddenUntilAt *time.Time `json:"hiddenUntilAt"`
	Stale         bool       `json:"stale"`
	Blocked       bool       `json:"blocked"`
	Focused       bool       `json:"focused"`
	Blockers      []Blocker  `json:"blockers"`
}

type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TaskID    int64     `json:"taskId"`
	Hash      string    `json:"hash"`
}

// Data fetching

func (ui *UI) pollData() {
	ui.fetchAll()
	ticker := time.NewTicker(5 * time.Second)
	for range ticker.C {
		ui.fetchAll()
	}
}

func (ui *UI) fetchAll() {
	ui.fetchStatus()
	ui.fetchTasks()
	ui.fetchJournal()
	ui.window.Invalidate()
}

func (ui *UI) fetchStatus() {
	var s Status
	if err := httpGetJSON(apiBase+"api/status", &s); err != nil {
		ui.fail("fetch status", err)
		return
	}
	ui.mu.Lock()
	ui.status = s
	ui.mu.Unlock()
}

func (ui *UI) fetchTasks() {
	var items []Item
	if err := httpGetJSON(apiBase+"api/tasks?view="+views[ui.currentView], &items); err != nil {
		ui.fail("fetch tasks", err)
		return
	}
	ui.mu.Lock()
	ui.items = items
	ui.mu.Unlock()
	ui.window.Invalidate()
}

func (ui *UI) fetchJournal() {
	var entries []Entry
	if err := httpGetJSON(apiBase+"api/journal?limit=100", &entries); err != nil {
		ui.fail("fetch journal", err)
		return
	}
	ui.mu.Lock()
	ui.entries = entries
	ui.mu.Unlock()
}

func (ui *UI) createTask(title, priority string) {
	body, _ := json.Marshal(map[string]any{"title": title, "priority": priority})
	ui.post("api/tasks", string(body))
}

func (ui *UI) post(path, body string) {
	ui.do("POST", path, body)
}

// do sends a mutation and refreshes everything on success.
func (ui *UI) do(method, path, body string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, apiBase+path, r)
	if err != nil {
		ui.fail(path, err)
		return
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ui.fail(path, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		ui.fail(path, fmt.Errorf("%s (%d)", e.Error, resp.StatusCode))
		return
	}
	ui.mu.Lock()
	ui.lastErr = ""
	ui.mu.Unlock()
	ui.fetchAll()
}

func (ui *UI) fail(what string, err error) {
	log.Printf("%s: %v", what, err)
	ui.mu.Lock()
	ui.lastErr = fmt.Sprintf("%s: %v", what, err)
	ui.mu.Unlock()
	ui.window.Invalidate()
}

func httpGetJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}
