package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved balance and progress toward the next boundaries",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	repo, label, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(repo) }()

	ctx := cmd.Context()
	rec, err := repo.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Println()
		fmt.Println("  No saved balance yet.")
		fmt.Println("  Run `accrue setup` or `accrue` to create one.")
		fmt.Println()
		return nil
	case errors.Is(err, store.ErrCorrupt):
		fmt.Println()
		fmt.Println(cli.RenderWarning(fmt.Sprintf("  Saved configuration is unusable: %v", err)))
		fmt.Println("  The next `accrue` run restores the defaults.")
		fmt.Println()
		return nil
	case err != nil:
		return fmt.Errorf("loading configuration: %w", err)
	}

	engine, err := accrual.New(rec)
	if err != nil {
		return err
	}
	snap := engine.Snapshot()
	sym := settings.Appearance.CurrencySymbol

	fmt.Println()
	fmt.Println(cli.RenderTitle("ACCRUE STATUS"))
	fmt.Println()

	fmt.Println(cli.RenderTable(cli.Table{
		Rows: [][]string{
			{"Balance", cli.RenderAmount(cli.FormatCurrency(sym, snap.CurrentAmount))},
			{"Exact", cli.FormatAmount(snap.CurrentAmount, 7)},
			{"Started at", cli.FormatCurrency(sym, snap.StartingAmount)},
			{"Total earned", cli.FormatCurrency(sym, snap.TotalEarned)},
			{"---"},
			{"Monthly income", cli.FormatCurrency(sym, snap.MonthlyIncome)},
			{"Hourly rate", cli.FormatCurrency(sym, snap.HourlyRate)},
			{"Per second", cli.FormatRate(sym, snap.IncomePerSecond)},
			{"---"},
			{"Store", label},
			{"Last saved", cli.FormatAgo(lastSaved(ctx, repo))},
		},
	}))
	fmt.Println()

	rows := make([][]string, 0, len(accrual.Boundaries))
	for _, b := range accrual.Boundaries {
		p, err := snap.ProgressAt(b.Unit)
		if err != nil {
			return err
		}
		eta := "in " + cli.FormatETA(p.ETA())
		switch {
		case p.AtBoundary:
			eta = "on it"
		case p.Unreachable:
			eta = "never"
		}
		rows = append(rows, []string{b.Label, cli.RenderProgressBar(p.FractionFloat(), 20), eta})
	}
	fmt.Println(cli.RenderTable(cli.Table{
		Title:    "Boundaries",
		Headers:  []string{"Boundary", "Progress", "ETA"},
		Rows:     rows,
		LeftCols: 2,
	}))
	fmt.Println()
	return nil
}

// lastSaved reports when the record was last written, or the zero time when
// the backend cannot tell.
func lastSaved(ctx context.Context, repo store.Repository) time.Time {
	switch r := repo.(type) {
	case *store.SQLiteRepository:
		t, err := r.UpdatedAt(ctx)
		if err != nil {
			return time.Time{}
		}
		return t
	case *store.FileRepository:
		fi, err := os.Stat(r.Path())
		if err != nil {
			return time.Time{}
		}
		return fi.ModTime()
	}
	return time.Time{}
}
