// Package cmd implements the accrue CLI commands.
package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/config"
	"github.com/theirongolddev/accrue/internal/tui/theme"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current settings",
	RunE:  runConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting, e.g. `accrue config set appearance.theme midnight`",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	fmt.Printf("  Settings file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no settings file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Tick interval: %s\n", cfg.TickInterval())
	fmt.Printf("    Step:          %ss per tick\n", cfg.General.StepSeconds)
	fmt.Printf("    Mode:          %s\n", cfg.General.Mode)
	fmt.Println()

	fmt.Println("  [Storage]")
	fmt.Printf("    Backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Path != "" {
		fmt.Printf("    Path:    %s\n", cfg.Storage.Path)
	} else {
		fmt.Println("    Path:    default")
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:    %s (available: %s)\n", cfg.Appearance.Theme, strings.Join(theme.Names(), ", "))
	fmt.Printf("    Currency: %s\n", cfg.Appearance.CurrencySymbol)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Printf("    Publish every: %d ticks\n", cfg.Daemon.PublishEvery)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s\n", cfg.Log.Level)
	fmt.Println()

	fmt.Println("  Run `accrue config set <key> <value>` to change a setting.")
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	// Read the file without flag overrides so they are not persisted.
	cfg, err := config.LoadFile(config.ConfigPath())
	if err != nil {
		return err
	}
	if err := setSetting(&cfg, args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	fmt.Printf("  %s = %s\n", args[0], args[1])
	return nil
}

// settingKeys lists the keys accepted by setSetting.
var settingKeys = []string{
	"general.tick_interval_ms",
	"general.step_seconds",
	"general.mode",
	"storage.backend",
	"storage.path",
	"appearance.theme",
	"appearance.currency_symbol",
	"daemon.addr",
	"daemon.events_buffer",
	"daemon.publish_every",
	"log.level",
}

func setSetting(cfg *config.Config, key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not an integer", key, value)
		}
		return n, nil
	}

	switch key {
	case "general.tick_interval_ms":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.General.TickIntervalMS = n
	case "general.step_seconds":
		cfg.General.StepSeconds = value
	case "general.mode":
		cfg.General.Mode = value
	case "storage.backend":
		cfg.Storage.Backend = value
	case "storage.path":
		cfg.Storage.Path = value
	case "appearance.theme":
		if !slices.Contains(theme.Names(), value) {
			return fmt.Errorf("unknown theme %q (available: %s)", value, strings.Join(theme.Names(), ", "))
		}
		cfg.Appearance.Theme = value
	case "appearance.currency_symbol":
		cfg.Appearance.CurrencySymbol = value
	case "daemon.addr":
		cfg.Daemon.Addr = value
	case "daemon.events_buffer":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Daemon.EventsBuffer = n
	case "daemon.publish_every":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Daemon.PublishEvery = n
	case "log.level":
		cfg.Log.Level = value
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settingKeys, ", "))
	}
	return nil
}
