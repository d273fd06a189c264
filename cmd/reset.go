package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/model"
	"github.com/theirongolddev/accrue/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set the balance back to the starting amount",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(settings)
	if err != nil {
		return err
	}
	repo, _, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(repo) }()

	ctx := cmd.Context()
	rec, err := loadRecord(ctx, repo, logger)
	if err != nil {
		return err
	}
	rec = resetRecord(rec)
	if err := repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	fmt.Printf("  Balance reset to %s\n", cli.FormatCurrency(settings.Appearance.CurrencySymbol, rec.StartingAmount))
	return nil
}

func resetRecord(rec model.AccrualConfig) model.AccrualConfig {
	return rec.WithCurrent(rec.StartingAmount)
}
