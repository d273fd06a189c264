package cmd

import (
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/model"
)

const (
	choiceExisting = "existing"
	choiceNew      = "new"
)

// sessionAnswers is what the session prompt collects. Amounts stay raw text
// until the form has completed.
type sessionAnswers struct {
	Choice   string
	Starting string
	Monthly  string
}

// resolveSession turns prompt answers into the configuration to run. changed
// reports whether the result must be saved before the session starts. Any
// invalid amount fails with accrual.ErrInvalidConfiguration.
func resolveSession(current model.AccrualConfig, ans sessionAnswers) (cfg model.AccrualConfig, changed bool, err error) {
	if ans.Choice != choiceNew {
		return current, false, nil
	}
	starting, err := accrual.ParseAmount("starting amount", ans.Starting)
	if err != nil {
		return current, false, err
	}
	monthly, err := accrual.ParseAmount("monthly income", ans.Monthly)
	if err != nil {
		return current, false, err
	}
	cfg = model.AccrualConfig{StartingAmount: starting, MonthlyIncome: monthly}.WithCurrent(starting)
	return cfg, true, nil
}

// promptSession asks whether to keep the saved configuration or enter new
// values. A huh.ErrUserAborted error means the user backed out.
func promptSession(current model.AccrualConfig, symbol string) (sessionAnswers, error) {
	ans := sessionAnswers{
		Choice:   choiceExisting,
		Starting: current.StartingAmount.String(),
		Monthly:  current.MonthlyIncome.String(),
	}

	summary := "Balance " + cli.FormatCurrency(symbol, current.Current()) +
		" · started at " + cli.FormatCurrency(symbol, current.StartingAmount) +
		" · " + cli.FormatCurrency(symbol, current.MonthlyIncome) + "/month"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Saved configuration").
				Description(summary).
				Options(
					huh.NewOption("Use existing", choiceExisting),
					huh.NewOption("Enter new values", choiceNew),
				).
				Value(&ans.Choice),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Starting amount").
				Value(&ans.Starting),
			huh.NewInput().
				Title("Monthly income").
				Value(&ans.Monthly),
		).WithHideFunc(func() bool { return ans.Choice != choiceNew }),
	)

	if err := form.Run(); err != nil {
		return ans, err
	}
	return ans, nil
}
