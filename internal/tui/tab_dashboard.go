package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/tui/components"
	"github.com/theirongolddev/accrue/internal/tui/theme"
)

const boundaryLabelW = 16

func (a App) renderDashboardTab(cw int) string {
	snap := a.snap
	sym := a.opts.CurrencySymbol
	var b strings.Builder

	// Row 1: balance + boundary progress
	var row1 string
	if a.isCompactLayout() {
		row1 = a.renderAmountCard(cw) + "\n" + a.renderBoundaryCard(cw)
	} else {
		widths := components.LayoutRow(cw, 2)
		row1 = components.CardRow([]string{
			a.renderAmountCard(widths[0]),
			a.renderBoundaryCard(widths[1]),
		})
	}
	b.WriteString(row1)
	b.WriteString("\n")

	// Row 2: stats
	session := snap.CurrentAmount.Sub(a.sessionStart)
	metrics := []components.Metric{
		{Label: "Elapsed", Value: cli.FormatElapsed(snap.Elapsed), Delta: cli.FormatNumber(snap.Ticks) + " ticks"},
		{Label: "Hourly rate", Value: cli.FormatCurrency(sym, snap.HourlyRate), Delta: cli.FormatCurrency(sym, snap.MonthlyIncome) + "/mo"},
		{Label: "This session", Value: cli.FormatCurrency(sym, session), Delta: "+" + cli.FormatAmount(session, 7)},
		{Label: "Total earned", Value: cli.FormatCurrency(sym, snap.TotalEarned), Delta: "from " + cli.FormatCurrency(sym, snap.StartingAmount)},
	}
	if !a.isCompactLayout() {
		metrics = append(metrics, components.Metric{
			Label: "Milestones",
			Value: cli.FormatNumber(int64(a.milestones)),
			Delta: "whole units this session",
		})
	}
	b.WriteString(components.MetricCardRow(metrics, cw))

	return b.String()
}

func (a App) renderAmountCard(w int) string {
	t := theme.Active
	snap := a.snap
	sym := a.opts.CurrencySymbol

	caption := cli.FormatAmount(snap.CurrentAmount, 7) + "  ·  " + cli.FormatRate(sym, snap.IncomePerSecond)
	if a.milestone != nil {
		style := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		if a.celebrating {
			style = style.Foreground(a.amountColor()).Bold(true)
		}
		caption += "\n" + style.Render("★ reached "+cli.FormatCurrency(sym, a.milestone.Boundary))
	}

	return components.AmountCard("Balance", cli.FormatCurrency(sym, snap.CurrentAmount), caption, a.amountColor(), w)
}

func (a App) renderBoundaryCard(w int) string {
	inner := components.CardInnerWidth(w)
	// label, spaces, percentage and the widest ETA text
	barW := max(inner-boundaryLabelW-1-1-6-2-9, 8)

	rows := make([]string, 0, len(accrual.Boundaries))
	for _, bd := range accrual.Boundaries {
		p, err := a.snap.ProgressAt(bd.Unit)
		if err != nil {
			continue
		}
		rows = append(rows, components.BoundaryBar(bd.Label, p.FractionFloat(), etaText(p), boundaryLabelW, barW))
	}
	return components.ContentCard("Next boundaries", strings.Join(rows, "\n\n"), w)
}

// etaText describes when a boundary will be reached.
func etaText(p accrual.Progress) string {
	switch {
	case p.AtBoundary:
		return "on it"
	case p.Unreachable:
		return "never"
	}
	return fmt.Sprintf("in %s", cli.FormatETA(p.ETA()))
}
