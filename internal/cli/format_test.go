package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"0", "€0.00"},
		{"1000", "€1,000.00"},
		{"1000.0190113", "€1,000.01"},
		{"1000.019999999", "€1,000.01"},
		{"999.999", "€999.99"},
		{"1234567.891", "€1,234,567.89"},
		{"0.5", "€0.50"},
		{"-12.345", "-€12.34"},
		{"-0.001", "€0.00"},
		{"123456789012345678901234.5", "€123,456,789,012,345,678,901,234.50"},
	}
	for _, tc := range cases {
		got := FormatCurrency("€", decimal.RequireFromString(tc.in))
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatRate(t *testing.T) {
	rate := decimal.RequireFromString("0.001901131251634271")
	assert.Equal(t, "$0.0019011/s", FormatRate("$", rate))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(-time.Second))
	assert.Equal(t, "00:00:10", FormatElapsed(10*time.Second+900*time.Millisecond))
	assert.Equal(t, "01:02:03", FormatElapsed(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "100:00:00", FormatElapsed(100*time.Hour))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "2m 5s", FormatDuration(125))
	assert.Equal(t, "1h 2m", FormatDuration(3725))
	assert.Equal(t, "1d 1h", FormatDuration(90061))
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "now", FormatETA(0))
	assert.Equal(t, "5.3s", FormatETA(5260*time.Millisecond))
	assert.Equal(t, "8m 45s", FormatETA(525*time.Second))
}

func TestFormatNumberAndPercent(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-1,000", FormatNumber(-1000))
	assert.Equal(t, "42.5%", FormatPercent(0.425))
}

func TestFormatAgo(t *testing.T) {
	assert.Equal(t, "never", FormatAgo(time.Time{}))
	assert.Contains(t, FormatAgo(time.Now().Add(-3*time.Hour)), "hours ago")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Balance",
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Current", "€1,000.01"},
			{"---"},
			{"Rate", "€0.0019011/s"},
		},
	})

	assert.Contains(t, out, "Balance")
	assert.Contains(t, out, "€1,000.01")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "╯")
	// title, top, header, header rule, row, separator, row, bottom
	assert.Equal(t, 8, strings.Count(out, "\n"))
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderProgressBar(t *testing.T) {
	out := RenderProgressBar(0.5, 10)
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, strings.Repeat("█", 5))

	assert.Contains(t, RenderProgressBar(7, 4), "100.0%")
	assert.Empty(t, RenderProgressBar(0.5, 0))
}

func TestRenderTableAlignsWideCells(t *testing.T) {
	out := RenderTable(Table{
		Rows: [][]string{
			{"Balance", RenderAmount("€1,000.01")},
			{"Rate", "€0.0019011/s"},
			{"Next cent", RenderProgressBar(0.25, 8)},
		},
	})

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 5)
	for _, l := range lines[1:] {
		assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(l), "line %q", l)
	}
}
