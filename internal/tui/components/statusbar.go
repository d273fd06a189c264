package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/accrue/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left,
// right-aligned info on the right.
func RenderStatusBar(width int, right string) string {
	t := theme.Active

	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	fill := lipgloss.NewStyle().Background(t.Surface)

	left := fill.Render(" ") +
		keyStyle.Render("[?]") + hintStyle.Render("help  ") +
		keyStyle.Render("[←→]") + hintStyle.Render("tabs  ") +
		keyStyle.Render("[q]") + hintStyle.Render("uit")

	if right != "" {
		right = hintStyle.Render(right + " ")
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return left + fill.Render(strings.Repeat(" ", padding)) + right
}
