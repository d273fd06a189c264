package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/accrue/internal/tui/theme"
)

// ColorForFraction brightens as a boundary gets closer.
func ColorForFraction(f float64) lipgloss.Color {
	t := theme.Active
	switch {
	case f >= 0.9:
		return t.Money
	case f >= 0.6:
		return t.AccentBright
	case f >= 0.3:
		return t.Accent
	default:
		return t.Blue
	}
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}

// BoundaryBar renders a labeled progress bar with percentage and the time
// left until the boundary.
func BoundaryBar(label string, fraction float64, eta string, labelW, barWidth int) string {
	t := theme.Active
	fraction = clamp01(fraction)
	color := ColorForFraction(fraction)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	etaStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(fraction) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", fraction*100)) +
		spaceStyle.Render("  ") +
		etaStyle.Render(eta)
}

// CompactBar renders a tiny status-bar-sized progress indicator.
func CompactBar(label string, fraction float64, width int) string {
	t := theme.Active
	fraction = clamp01(fraction)
	color := ColorForFraction(fraction)

	barW := width - lipgloss.Width(label) - 6
	if barW < 4 {
		barW = 4
	}

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(label) +
		spaceStyle.Render(" ") +
		bar.ViewAs(fraction) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", fraction*100))
}
