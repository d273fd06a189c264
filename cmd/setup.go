package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/config"
	"github.com/theirongolddev/accrue/internal/model"
	"github.com/theirongolddev/accrue/internal/store"
	"github.com/theirongolddev/accrue/internal/tui/theme"
)

var (
	flagSetupStarting string
	flagSetupMonthly  string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set the starting amount, monthly income and theme",
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&flagSetupStarting, "starting", "", "Starting amount (skips the prompts)")
	setupCmd.Flags().StringVar(&flagSetupMonthly, "monthly", "", "Monthly income (skips the prompts)")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(settings)
	if err != nil {
		return err
	}
	repo, label, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(repo) }()

	ctx := cmd.Context()
	current, err := loadRecord(ctx, repo, logger)
	if err != nil {
		return err
	}

	var rec model.AccrualConfig
	if flagSetupStarting != "" || flagSetupMonthly != "" {
		starting, monthly := flagSetupStarting, flagSetupMonthly
		if starting == "" {
			starting = current.StartingAmount.String()
		}
		if monthly == "" {
			monthly = current.MonthlyIncome.String()
		}
		rec, err = parseRecord(starting, monthly)
		if err != nil {
			return fmt.Errorf("setup aborted: %w", err)
		}
	} else {
		rec, err = promptSetup(os.Stdin, os.Stdout, current, &settings)
		if err != nil {
			return fmt.Errorf("setup aborted: %w", err)
		}
		if err := config.Save(settings); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
	}

	if err := repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	sym := settings.Appearance.CurrencySymbol
	fmt.Println()
	fmt.Printf("  Starting at %s, earning %s a month (%s)\n",
		cli.FormatCurrency(sym, rec.StartingAmount),
		cli.FormatCurrency(sym, rec.MonthlyIncome),
		cli.FormatRate(sym, accrual.IncomePerSecond(rec.MonthlyIncome)),
	)
	fmt.Printf("  Saved to %s\n", label)
	fmt.Println("  Run `accrue` to watch it grow.")
	fmt.Println()
	return nil
}

// parseRecord builds a fresh record whose balance restarts at starting.
func parseRecord(starting, monthly string) (model.AccrualConfig, error) {
	s, err := accrual.ParseAmount("starting amount", starting)
	if err != nil {
		return model.AccrualConfig{}, err
	}
	m, err := accrual.ParseAmount("monthly income", monthly)
	if err != nil {
		return model.AccrualConfig{}, err
	}
	return model.AccrualConfig{StartingAmount: s, MonthlyIncome: m}.WithCurrent(s), nil
}

// promptSetup asks for both amounts and a theme. Empty answers keep the
// current values. Amounts are only parsed once every answer is in.
func promptSetup(in io.Reader, out io.Writer, current model.AccrualConfig, settings *config.Config) (model.AccrualConfig, error) {
	reader := bufio.NewReader(in)
	ask := func(prompt string) string {
		_, _ = fmt.Fprintf(out, "%s     > ", prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "  Welcome to accrue!")
	_, _ = fmt.Fprintln(out)

	// 1. Starting amount
	starting := ask(fmt.Sprintf("  1. Starting amount [%s]\n", current.StartingAmount))
	if starting == "" {
		starting = current.StartingAmount.String()
	}
	_, _ = fmt.Fprintln(out)

	// 2. Monthly income
	monthly := ask(fmt.Sprintf("  2. Monthly income [%s]\n", current.MonthlyIncome))
	if monthly == "" {
		monthly = current.MonthlyIncome.String()
	}
	_, _ = fmt.Fprintln(out)

	// 3. Theme
	var menu strings.Builder
	menu.WriteString("  3. Color theme\n")
	names := theme.Names()
	for i, name := range names {
		marker := ""
		if name == settings.Appearance.Theme {
			marker = " [current]"
		}
		fmt.Fprintf(&menu, "     (%d) %s%s\n", i+1, name, marker)
	}
	if n, err := strconv.Atoi(ask(menu.String())); err == nil && n >= 1 && n <= len(names) {
		settings.Appearance.Theme = names[n-1]
	}

	return parseRecord(starting, monthly)
}
