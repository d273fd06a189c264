package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all accrue preferences. The accrual record itself lives in
// the store; this file only says how to run and where to look.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Storage    StorageConfig    `toml:"storage"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
}

// GeneralConfig holds ticking preferences.
type GeneralConfig struct {
	TickIntervalMS int    `toml:"tick_interval_ms"`
	StepSeconds    string `toml:"step_seconds"`
	Mode           string `toml:"mode"`
}

// StorageConfig selects the configuration repository.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`
}

// AppearanceConfig holds theme and display settings.
type AppearanceConfig struct {
	Theme          string `toml:"theme"`
	CurrencySymbol string `toml:"currency_symbol"`
}

// DaemonConfig holds headless service settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
	PublishEvery int    `toml:"publish_every"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Environment variables that override the settings file.
const (
	EnvStore     = "ACCRUE_STORE"
	EnvStorePath = "ACCRUE_STORE_PATH"
	EnvTheme     = "ACCRUE_THEME"
	EnvCurrency  = "ACCRUE_CURRENCY"
	EnvLogLevel  = "ACCRUE_LOG_LEVEL"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			TickIntervalMS: 100,
			StepSeconds:    "0.1",
			Mode:           "fixed",
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Appearance: AppearanceConfig{
			Theme:          "flexoki-dark",
			CurrencySymbol: "€",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8788",
			EventsBuffer: 200,
			PublishEvery: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "accrue")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "accrue")
}

// ConfigPath returns the full path to the settings file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.toml")
}

// Load reads the settings file, returning defaults if it doesn't exist, then
// applies environment overrides. A .env file in the working directory is
// loaded first so its values count as environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFile(ConfigPath())
}

// LoadFile reads settings from path and applies environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-controlled settings path
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading settings: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing settings: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvStore); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvTheme); v != "" {
		c.Appearance.Theme = v
	}
	if v := os.Getenv(EnvCurrency); v != "" {
		c.Appearance.CurrencySymbol = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	if c.General.TickIntervalMS <= 0 {
		problems = append(problems, fmt.Sprintf("general.tick_interval_ms must be positive, got %d", c.General.TickIntervalMS))
	}
	if _, err := c.Step(); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.General.Mode {
	case "fixed", "wallclock":
	default:
		problems = append(problems, fmt.Sprintf("general.mode %q must be fixed or wallclock", c.General.Mode))
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q must be file or sqlite", c.Storage.Backend))
	}
	if c.Daemon.EventsBuffer <= 0 {
		problems = append(problems, "daemon.events_buffer must be positive")
	}
	if c.Daemon.PublishEvery <= 0 {
		problems = append(problems, "daemon.publish_every must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// TickInterval returns the driver interval.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.General.TickIntervalMS) * time.Millisecond
}

// Step returns the simulated seconds added per tick.
func (c Config) Step() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.General.StepSeconds))
	if err != nil {
		return decimal.Zero, fmt.Errorf("general.step_seconds %q is not a number", c.General.StepSeconds)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("general.step_seconds must be positive, got %s", d)
	}
	return d, nil
}

// Save writes the settings to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the settings to path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-controlled settings path
	if err != nil {
		return fmt.Errorf("creating settings file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a settings file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
