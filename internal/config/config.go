// Package config loads tracker configuration from an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tiertrack/pkg/sweep"
	"tiertrack/pkg/task"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete tracker configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Tracker TrackerConfig `yaml:"tracker" mapstructure:"tracker"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" mapstructure:"addr"`
	WasmDir string `yaml:"wasm_dir" mapstructure:"wasm_dir"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // file, sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`     // file and sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

type TrackerConfig struct {
	StaleThresholdHours float64       `yaml:"stale_threshold_hours" mapstructure:"stale_threshold_hours"`
	TopN                int           `yaml:"top_n" mapstructure:"top_n"`
	VacationGrace       time.Duration `yaml:"vacation_grace" mapstructure:"vacation_grace"`
	SweepSchedule       string        `yaml:"sweep_schedule" mapstructure:"sweep_schedule"` // "off" disables
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			WasmDir: filepath.Join(".", "web"),
		},
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   filepath.Join(Dir(), "state.json"),
		},
		Tracker: TrackerConfig{
			StaleThresholdHours: 24,
			TopN:                20,
			VacationGrace:       task.DefaultVacationGrace,
			SweepSchedule:       sweep.DefaultSchedule,
		},
	}
}

// Dir returns the tracker's home directory, ~/.tiertrack.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tiertrack"
	}
	return filepath.Join(home, ".tiertrack")
}

// DefaultPath returns the config file read when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load builds the configuration from defaults, then the YAML file at path,
// then TIERTRACK_* environment variables, then PORT, DATABASE_URL and
// WASM_DIR. An empty path falls back to $TIERTRACK_CONFIG and then
// DefaultPath; only an explicitly named file has to exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("TIERTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	explicit := path != ""
	if !explicit {
		path = os.Getenv("TIERTRACK_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Store.DatabaseURL = url
	}
	if dir := os.Getenv("WASM_DIR"); dir != "" {
		cfg.Server.WasmDir = dir
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.wasm_dir", cfg.Server.WasmDir)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.database_url", cfg.Store.DatabaseURL)
	v.SetDefault("tracker.stale_threshold_hours", cfg.Tracker.StaleThresholdHours)
	v.SetDefault("tracker.top_n", cfg.Tracker.TopN)
	v.SetDefault("tracker.vacation_grace", cfg.Tracker.VacationGrace)
	v.SetDefault("tracker.sweep_schedule", cfg.Tracker.SweepSchedule)
}

// Validate checks the configuration for values the tracker cannot run
// with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Tracker.StaleThresholdHours <= 0 {
		return fmt.Errorf("tracker.stale_threshold_hours must be positive")
	}
	if c.Tracker.TopN < 1 {
		return fmt.Errorf("tracker.top_n must be at least 1")
	}
	if c.Tracker.VacationGrace <= 0 {
		return fmt.Errorf("tracker.vacation_grace must be positive")
	}
	if c.SweepEnabled() {
		if err := sweep.Validate(c.Tracker.SweepSchedule); err != nil {
			return err
		}
	}
	return nil
}

// SweepEnabled reports whether the background sweep should run.
func (c *Config) SweepEnabled() bool {
	s := strings.TrimSpace(c.Tracker.SweepSchedule)
	return s != "" && s != "off"
}

// Settings returns the tracker settings a fresh store starts with.
func (c *Config) Settings() task.Settings {
	s := task.DefaultSettings()
	s.StaleThresholdHours = c.Tracker.StaleThresholdHours
	s.TopN = c.Tracker.TopN
	return s
}

// Write saves cfg as YAML at path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	header := []byte("# tiertrack configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
