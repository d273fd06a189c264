package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/config"
	"github.com/theirongolddev/accrue/internal/logging"
	"github.com/theirongolddev/accrue/internal/store"
	"github.com/theirongolddev/accrue/internal/tui"
	"github.com/theirongolddev/accrue/internal/tui/theme"
)

var (
	flagRunPlain bool
	flagRunYes   bool
	flagRunMode  string
)

const finalSaveTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the live dashboard (default command)",
	RunE:  runRun,
}

func init() {
	// The root command runs the dashboard too, so it takes the same flags.
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().BoolVar(&flagRunPlain, "plain", false, "Print one line per second instead of the dashboard")
		c.Flags().BoolVarP(&flagRunYes, "yes", "y", false, "Resume the saved configuration without asking")
		c.Flags().StringVar(&flagRunMode, "mode", "", "Tick mode: fixed or wallclock (default from settings)")
	}
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if flagRunMode != "" {
		settings.General.Mode = flagRunMode
	}
	mode, err := accrual.ParseMode(settings.General.Mode)
	if err != nil {
		return err
	}
	step, err := settings.Step()
	if err != nil {
		return err
	}

	logger, closeLog, err := runLogger(settings)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog.Close() }()

	repo, label, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(repo) }()

	ctx := cmd.Context()
	rec, err := loadRecord(ctx, repo, logger)
	if err != nil {
		return err
	}

	if !flagRunYes {
		ans, err := promptSession(rec, settings.Appearance.CurrencySymbol)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("session prompt: %w", err)
		}
		next, changed, err := resolveSession(rec, ans)
		if err != nil {
			return fmt.Errorf("session aborted: %w", err)
		}
		if changed {
			if err := repo.Save(ctx, next); err != nil {
				return fmt.Errorf("saving new configuration: %w", err)
			}
			logger.Info("configuration replaced",
				"starting", next.StartingAmount.String(),
				"monthly", next.MonthlyIncome.String(),
			)
		}
		rec = next
	}

	engine, err := accrual.New(rec)
	if err != nil {
		return err
	}

	if flagRunPlain {
		return runPlain(ctx, engine, repo, settings, step, mode, logger)
	}
	return runDashboard(ctx, engine, repo, label, settings, step, mode, logger)
}

// runLogger logs to stderr in plain mode and to a file when the dashboard
// owns the terminal.
func runLogger(settings config.Config) (*slog.Logger, io.Closer, error) {
	if flagRunPlain {
		logger, err := newLogger(settings)
		return logger, io.NopCloser(nil), err
	}
	level, err := logLevel(settings)
	if err != nil {
		return nil, nil, err
	}
	return logging.OpenFile(filepath.Join(store.CacheDir(), "accrue.log"), level, logging.ComponentApp)
}

func runDashboard(
	ctx context.Context,
	engine *accrual.Engine,
	repo store.Repository,
	label string,
	settings config.Config,
	step decimal.Decimal,
	mode accrual.Mode,
	logger *slog.Logger,
) error {
	theme.SetActive(settings.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(engine, tui.Options{
		Interval:       settings.TickInterval(),
		Step:           step,
		Mode:           mode,
		CurrencySymbol: settings.Appearance.CurrencySymbol,
		StoreLabel:     label,
		Logger:         logger.With(logging.FieldComponent, logging.ComponentTUI),
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	if runErr != nil {
		runErr = fmt.Errorf("TUI error: %w", runErr)
	}

	saveErr := saveFinal(ctx, repo, engine)
	if saveErr == nil && !flagQuiet {
		fmt.Printf("  Saved balance %s\n", cli.FormatCurrency(settings.Appearance.CurrencySymbol, engine.Current()))
	}
	return errors.Join(runErr, saveErr)
}

// saveFinal persists the engine once after the dashboard exits.
func saveFinal(ctx context.Context, repo store.Repository, engine *accrual.Engine) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer cancel()
	if err := repo.Save(saveCtx, engine.Config()); err != nil {
		return fmt.Errorf("saving final balance: %w", err)
	}
	return nil
}

func runPlain(
	ctx context.Context,
	engine *accrual.Engine,
	repo store.Repository,
	settings config.Config,
	step decimal.Decimal,
	mode accrual.Mode,
	logger *slog.Logger,
) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := settings.TickInterval()
	every := max(int64(time.Second/interval), 1)
	symbol := settings.Appearance.CurrencySymbol

	driver := accrual.NewDriver(engine, repo, accrual.DriverOptions{
		Interval: interval,
		Step:     step,
		Mode:     mode,
		Logger:   logger,
		OnTick:   plainReporter(os.Stdout, symbol, every),
	})
	if err := driver.Run(ctx); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Printf("\n  Saved balance %s\n", cli.FormatCurrency(symbol, engine.Current()))
	}
	return nil
}

// plainReporter prints a status line every `every` ticks and a line for each
// milestone.
func plainReporter(w io.Writer, symbol string, every int64) func(accrual.TickReport) {
	return func(r accrual.TickReport) {
		s := r.Snapshot
		if r.Milestone != nil {
			_, _ = fmt.Fprintf(w, "  ★ reached %s\n", cli.FormatCurrency(symbol, r.Milestone.Boundary))
		}
		if s.Ticks%every != 0 {
			return
		}
		_, _ = fmt.Fprintf(w, "  %s  %s  +%s  %s\n",
			cli.FormatElapsed(s.Elapsed),
			cli.FormatCurrency(symbol, s.CurrentAmount),
			cli.FormatAmount(s.TotalEarned, 7),
			cli.FormatRate(symbol, s.IncomePerSecond),
		)
	}
}
