// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatCurrency formats an amount with symbol, thousands separators and two
// decimals. The amount is truncated toward zero so the displayed cent never
// runs ahead of the real balance.
// e.g., ("€", 1234.5678) -> "€1,234.56"
func FormatCurrency(symbol string, d decimal.Decimal) string {
	neg := d.IsNegative()
	t := d.Abs().Truncate(2)
	whole := t.Truncate(0)
	cents := t.Sub(whole).Shift(2).IntPart()

	s := fmt.Sprintf("%s%s.%02d", symbol, humanize.BigComma(whole.BigInt()), cents)
	if neg && !t.IsZero() {
		return "-" + s
	}
	return s
}

// FormatAmount formats d with exactly places decimals, truncated, without
// grouping. Used where sub-cent precision matters.
func FormatAmount(d decimal.Decimal, places int32) string {
	return d.Truncate(places).StringFixed(places)
}

// FormatRate formats a per-second rate with enough decimals to be non-zero
// for ordinary salaries.
// e.g., ("€", 0.0019011) -> "€0.0019011/s"
func FormatRate(symbol string, perSecond decimal.Decimal) string {
	return symbol + FormatAmount(perSecond, 7) + "/s"
}

// FormatElapsed formats a duration as HH:MM:SS. Hours grow past 99.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 90061 -> "1d 1h", 3725 -> "1h 2m", 125 -> "2m 5s", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatETA formats the time left until a boundary. Sub-minute values keep
// one decimal so the countdown visibly moves.
func FormatETA(d time.Duration) string {
	switch {
	case d <= 0:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return FormatDuration(int64(d / time.Second))
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatAgo formats a past time relative to now, or "never" for the zero time.
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
