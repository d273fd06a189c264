package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvStore, EnvStorePath, EnvTheme, EnvCurrency, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if got := cfg.TickInterval(); got != 100*time.Millisecond {
		t.Fatalf("TickInterval = %v, want 100ms", got)
	}
	step, err := cfg.Step()
	if err != nil || step.String() != "0.1" {
		t.Fatalf("Step = %v, %v; want 0.1", step, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")

	want := DefaultConfig()
	want.General.Mode = "wallclock"
	want.Storage.Backend = "sqlite"
	want.Storage.Path = "/tmp/accrue.db"
	want.Appearance.CurrencySymbol = "$"
	want.Daemon.PublishEvery = 5

	if err := SaveFile(path, want); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadFile_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("[appearance]\ntheme = \"tokyo-night\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Appearance.Theme != "tokyo-night" {
		t.Fatalf("theme = %q", cfg.Appearance.Theme)
	}
	if cfg.Appearance.CurrencySymbol != "€" || cfg.Daemon.Addr != "127.0.0.1:8788" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStore, "sqlite")
	t.Setenv(EnvStorePath, "/var/lib/accrue.db")
	t.Setenv(EnvTheme, "catppuccin-mocha")
	t.Setenv(EnvCurrency, "£")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "/var/lib/accrue.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Appearance.Theme != "catppuccin-mocha" || cfg.Appearance.CurrencySymbol != "£" {
		t.Fatalf("appearance = %+v", cfg.Appearance)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.TickIntervalMS = 0
	cfg.General.StepSeconds = "abc"
	cfg.General.Mode = "turbo"
	cfg.Storage.Backend = "redis"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted invalid settings")
	}
	for _, want := range []string{"tick_interval_ms", "step_seconds", "mode", "backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestStep_RejectsNonPositive(t *testing.T) {
	for _, s := range []string{"0", "-0.1", ""} {
		cfg := DefaultConfig()
		cfg.General.StepSeconds = s
		if _, err := cfg.Step(); err == nil {
			t.Errorf("Step(%q) = nil error, want error", s)
		}
	}
}

func TestConfigDir_UsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if got, want := ConfigPath(), filepath.Join(dir, "accrue", "settings.toml"); got != want {
		t.Fatalf("ConfigPath = %q, want %q", got, want)
	}
}
