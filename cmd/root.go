package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/config"
	"github.com/theirongolddev/accrue/internal/logging"
	"github.com/theirongolddev/accrue/internal/model"
	"github.com/theirongolddev/accrue/internal/store"
)

var (
	flagStore     string
	flagStorePath string
	flagQuiet     bool
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "accrue",
	Short: "Watch your income accrue in real time",
	Long: "accrue turns a monthly income into a balance that grows every tenth of a second.\n" +
		"Run it without a subcommand to open the live dashboard.",
	RunE:          runRun,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "Storage backend: file or sqlite (default from settings)")
	rootCmd.PersistentFlags().StringVar(&flagStorePath, "store-path", "", "Path of the saved balance (default per backend)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadSettings reads the settings file and applies command-line overrides.
func loadSettings() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagStore != "" {
		cfg.Storage.Backend = flagStore
	}
	if flagStorePath != "" {
		cfg.Storage.Path = flagStorePath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func logLevel(cfg config.Config) (slog.Level, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return level, err
	}
	if flagQuiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return level, nil
}

// newLogger returns the stderr logger used by line-oriented commands.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logLevel(cfg)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, logging.ComponentApp), nil
}

// openStore opens the configured repository and describes it for display.
func openStore(cfg config.Config) (store.Repository, string, error) {
	repo, err := store.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, "", err
	}
	return repo, storeLabel(cfg.Storage.Backend, repo), nil
}

func storeLabel(backend string, repo store.Repository) string {
	if p, ok := repo.(interface{ Path() string }); ok {
		return backend + " " + p.Path()
	}
	return backend
}

// loadRecord loads the saved configuration, restoring defaults when it is
// missing or corrupt. Failing to write the defaults is only a warning.
func loadRecord(ctx context.Context, repo store.Repository, logger *slog.Logger) (model.AccrualConfig, error) {
	rec, recovery, err := store.LoadOrInit(ctx, repo, logger.With(logging.FieldComponent, logging.ComponentStore))
	if err != nil && recovery == store.Loaded {
		return rec, fmt.Errorf("loading configuration: %w", err)
	}
	if err != nil {
		logger.Warn("could not persist default configuration", logging.FieldError, err)
	}
	return rec, nil
}
