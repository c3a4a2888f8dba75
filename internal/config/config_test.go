package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears env the loader reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"TIERTRACK_CONFIG", "PORT", "DATABASE_URL", "WASM_DIR", "TIERTRACK_STORE_DRIVER", "TIERTRACK_TRACKER_TOP_N"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(home, ".tiertrack", "state.json"), cfg.Store.Path)
	assert.Equal(t, 24.0, cfg.Tracker.StaleThresholdHours)
	assert.Equal(t, 20, cfg.Tracker.TopN)
	assert.Equal(t, 24*time.Hour, cfg.Tracker.VacationGrace)
	assert.True(t, cfg.SweepEnabled())
}

func TestLoadFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: sqlite
  path: ~/tracker.db
tracker:
  top_n: 5
  vacation_grace: 6h
  sweep_schedule: "off"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(home, "tracker.db"), cfg.Store.Path)
	assert.Equal(t, 5, cfg.Tracker.TopN)
	assert.Equal(t, 6*time.Hour, cfg.Tracker.VacationGrace)
	assert.False(t, cfg.SweepEnabled())
	assert.Equal(t, 24.0, cfg.Tracker.StaleThresholdHours, "unset keys keep defaults")

	set := cfg.Settings()
	assert.Equal(t, 5, set.TopN)
	assert.Nil(t, set.FocusedTaskID)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TIERTRACK_TRACKER_TOP_N", "3")
	t.Setenv("TIERTRACK_STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/tracker")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Tracker.TopN)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tracker", cfg.Store.DatabaseURL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"zero threshold", func(c *Config) { c.Tracker.StaleThresholdHours = 0 }},
		{"zero topN", func(c *Config) { c.Tracker.TopN = 0 }},
		{"zero grace", func(c *Config) { c.Tracker.VacationGrace = 0 }},
		{"bad schedule", func(c *Config) { c.Tracker.SweepSchedule = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestWriteRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Store.Driver = DriverSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "tracker.db")
	cfg.Tracker.VacationGrace = 12 * time.Hour
	require.NoError(t, Write(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
