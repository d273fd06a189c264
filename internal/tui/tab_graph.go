package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/tui/components"
	"github.com/theirongolddev/accrue/internal/tui/theme"
)

// renderGraphTab plots what was earned inside the sample window: each bar is
// the balance minus the oldest sample.
func (a App) renderGraphTab(cw, h int) string {
	t := theme.Active
	sym := a.opts.CurrencySymbol

	if len(a.samples) < 2 {
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		return components.ContentCard("Balance", muted.Render("Collecting samples…"), cw)
	}

	values, labels := a.graphSeries()
	base := a.samples[0]
	last := a.samples[len(a.samples)-1]

	title := fmt.Sprintf("Earned in the last %ds  ·  %s → %s",
		len(a.samples)-1,
		cli.FormatCurrency(sym, base),
		cli.FormatCurrency(sym, last),
	)

	// card border, title line and x-axis labels
	chartH := max(h-6, 3)
	chart := components.BarChart(values, labels, t.Money, components.CardInnerWidth(cw), chartH)
	return components.ContentCard(title, chart, cw)
}

// graphSeries turns the sample window into chart values relative to the
// oldest sample, labeled by age in seconds.
func (a App) graphSeries() ([]float64, []string) {
	n := len(a.samples)
	base := a.samples[0]
	values := make([]float64, n)
	labels := make([]string, n)
	for i, s := range a.samples {
		values[i] = s.Sub(base).InexactFloat64()
		if age := n - 1 - i; age%10 == 0 {
			labels[i] = fmt.Sprintf("-%ds", age)
		}
	}
	labels[n-1] = "now"
	return values, labels
}
