package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiertrack/internal/config"
	"tiertrack/pkg/clock"
	"tiertrack/pkg/task"
)

type cli struct {
	configPath string
	clock      *clock.FakeClock
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{"TIERTRACK_CONFIG", "DATABASE_URL", "TIERTRACK_STORE_DRIVER"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "state.json")
	cfg.Tracker.SweepSchedule = "off"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Write(path, cfg))

	return &cli{
		configPath: path,
		clock:      clock.Fake(time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)),
	}
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmdWithClock(c.clock)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", c.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestAddListDone(t *testing.T) {
	c := newCLI(t)

	var created task.Task
	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "add", "write report", "-p", "p1")), &created))
	assert.Equal(t, task.P1, created.Priority)
	c.mustRun(t, "add", "someday")

	out := c.mustRun(t, "list", "--format", "short")
	assert.Contains(t, out, "write report")
	assert.NotContains(t, out, "someday")

	out = c.mustRun(t, "list", "ideas", "--format", "short")
	assert.Contains(t, out, "someday")

	c.mustRun(t, "done", "1")
	var items []task.Item
	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "list", "completed")), &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "add", "x", "-p", "P5")
	assert.Error(t, err)
	_, err = c.run(t, "done", "42")
	assert.True(t, task.IsNotFound(err))
	_, err = c.run(t, "list", "nowhere")
	assert.Error(t, err)
	_, err = c.run(t, "done", "abc")
	assert.Error(t, err)
}

func TestBlockAndSweep(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "add", "wait", "-p", "P2")
	c.mustRun(t, "block", "1", "--until", "2026-02-02T10:00:00Z")

	out := c.mustRun(t, "list", "blocked", "--format", "short")
	assert.Contains(t, out, "wait")

	c.clock.Advance(3 * time.Hour)
	var res task.SweepResult
	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "sweep")), &res))
	assert.Equal(t, 1, res.Resolved)

	out = c.mustRun(t, "blockers", "1", "--format", "short")
	assert.Contains(t, out, "resolved")

	c.mustRun(t, "unblock", "1")
	_, err := c.run(t, "unblock", "1")
	assert.Error(t, err)
}

func TestFocusHideEdit(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "add", "a", "-p", "P0")
	c.mustRun(t, "focus", "1")
	c.mustRun(t, "hide", "1", "-m", "15")

	var set task.Settings
	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "settings")), &set))
	assert.Nil(t, set.FocusedTaskID)

	_, err := c.run(t, "hide", "1", "-m", "20")
	assert.Error(t, err)

	c.mustRun(t, "unhide", "1")
	var edited task.Task
	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "edit", "1", "-p", "none", "-s", "parked")), &edited))
	assert.Equal(t, task.None, edited.Priority)
	assert.Equal(t, "parked", edited.Status)

	c.mustRun(t, "edit", "1", "--archive")
	out := c.mustRun(t, "list", "archive", "--format", "short")
	assert.Contains(t, out, "parked")
}

func TestSettingsAndVacation(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "add", "a", "-p", "P1")

	var set task.Settings
	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "settings", "set", "--top-n", "3")), &set))
	assert.Equal(t, 3, set.TopN)
	_, err := c.run(t, "settings", "set", "--stale-hours", "0")
	assert.True(t, task.IsValidation(err))

	_, err = c.run(t, "vacation", "apply")
	assert.Error(t, err)

	c.clock.Advance(75 * time.Hour)
	out := c.mustRun(t, "status", "--format", "short")
	assert.Contains(t, out, "suggest 3 day(s)")

	require.NoError(t, json.Unmarshal([]byte(c.mustRun(t, "vacation", "apply")), &set))
	assert.Equal(t, 72.0, set.OneTimeOffsetHours)
	assert.Contains(t, c.mustRun(t, "vacation", "--format", "short"), "no suggestion")
}

func TestConfigInit(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "fresh.yaml")

	root := newRootCmdWithClock(c.clock)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "config", "init"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "wrote "))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DriverFile, cfg.Store.Driver)

	root = newRootCmdWithClock(c.clock)
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "config", "init"})
	assert.Error(t, root.Execute(), "refuses to overwrite")
}

func TestTruncStrKeepsRunes(t *testing.T) {
	assert.Equal(t, "héllo wörld", truncStr("héllo\nwörld", 40))
	assert.Equal(t, "日本語", truncStr("日本語のタスク", 3))
	assert.True(t, utf8.ValidString(truncStr("ééééé", 2)))
	assert.Equal(t, "éé", truncStr("ééééé", 2))
}
