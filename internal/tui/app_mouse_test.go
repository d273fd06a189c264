package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/accrue/internal/tui/components"
)

func TestTabAtXMatchesTabWidths(t *testing.T) {
	n := len(components.Tabs)
	for active := 0; active < n; active++ {
		a := App{activeTab: active}
		pos := 0

		for i := 0; i < n; i++ {
			w := tabWidthForTest(i, active)
			x := pos + w/2 // midpoint inside this tab
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w
			if i < n-1 {
				pos++ // separator
			}
		}
		if got := a.tabAtX(pos + 5); got != -1 {
			t.Fatalf("active=%d x past tabs -> tab=%d, want -1", active, got)
		}
	}
}

func TestTabBarStartsWithTabs(t *testing.T) {
	bar := components.RenderTabBar(0, 80, "")
	if w := lipgloss.Width(bar); w != 80 {
		t.Fatalf("tab bar width = %d, want 80", w)
	}
}

func tabWidthForTest(tabIdx, activeIdx int) int {
	name := components.Tabs[tabIdx].Name
	w := len(name) + 2 // horizontal padding in tab renderer
	if tabIdx != activeIdx {
		w += 2 // inactive tabs bracket their shortcut letter
	}
	return w
}
