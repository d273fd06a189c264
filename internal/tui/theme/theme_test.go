package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestRainbowColor(t *testing.T) {
	assert.Equal(t, lipgloss.Color("#ff0000"), RainbowColor(0))
	assert.Equal(t, lipgloss.Color("#00ffff"), RainbowColor(50))
	assert.Equal(t, RainbowColor(7), RainbowColor(7+RainbowFrames), "cycles")
	assert.Equal(t, RainbowColor(RainbowFrames-1), RainbowColor(-1))
	assert.Equal(t, RainbowColor(3), RainbowColor(3), "pure")

	seen := map[lipgloss.Color]bool{}
	for i := 0; i < RainbowFrames; i++ {
		seen[RainbowColor(i)] = true
	}
	assert.Greater(t, len(seen), RainbowFrames/2)
}

func TestByName(t *testing.T) {
	assert.Equal(t, "tokyo-night", ByName("tokyo-night").Name)
	assert.Equal(t, FlexokiDark.Name, ByName("nope").Name)
	assert.Len(t, Names(), len(All))

	SetActive("midnight")
	defer SetActive(FlexokiDark.Name)
	assert.Equal(t, Midnight, Active)
}
