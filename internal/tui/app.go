// Package tui provides the interactive Bubble Tea dashboard for accrue.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/tui/components"
	"github.com/theirongolddev/accrue/internal/tui/theme"
)

// Options configures the dashboard.
type Options struct {
	Interval       time.Duration
	Step           decimal.Decimal
	Mode           accrual.Mode
	CurrencySymbol string
	// StoreLabel describes where the balance is saved, for the status bar.
	StoreLabel string
	Logger     *slog.Logger
}

// App is the root Bubble Tea model. The engine is advanced only from Update,
// which makes the Bubble Tea loop the single sequential driver.
type App struct {
	engine *accrual.Engine
	driver *accrual.Driver
	opts   Options

	snap         accrual.Snapshot
	sessionStart decimal.Decimal
	lastTick     time.Time

	// Balance samples for the graph, one per second.
	samples     []decimal.Decimal
	sampleEvery int
	sinceSample int

	// Milestone celebration
	milestone    *accrual.Milestone
	milestones   int
	celebrating  bool
	rainbowFrame int

	spinner spinner.Model

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
}

const (
	minTerminalWidth = 60
	compactWidth     = 100
	maxContentWidth  = 160
	minContentHeight = 5

	// graphWindow is how many one-second samples the graph keeps.
	graphWindow = 50

	rainbowInterval = 10 * time.Millisecond

	tabDashboard = 0
	tabGraph     = 1
)

// NewApp returns a dashboard that drives engine. The caller keeps the engine
// and persists engine.Config() after the program exits.
func NewApp(engine *accrual.Engine, opts Options) App {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.Step.Sign() <= 0 {
		opts.Step = accrual.DefaultStep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if !engine.Started() {
		engine.Start()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Money).Background(theme.Active.Surface)

	a := App{
		engine: engine,
		driver: accrual.NewDriver(engine, nil, accrual.DriverOptions{
			Interval: opts.Interval,
			Step:     opts.Step,
			Mode:     opts.Mode,
			Logger:   opts.Logger,
		}),
		opts:         opts,
		snap:         engine.Snapshot(),
		sessionStart: engine.Current(),
		lastTick:     time.Now(),
		sampleEvery:  max(1, int(time.Second/opts.Interval)),
		spinner:      sp,
	}
	a.samples = append(a.samples, engine.Current())
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(tickCmd(a.opts.Interval), a.spinner.Tick)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.MouseMsg:
		if a.showHelp {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case tickMsg:
		return a.onTick(time.Time(msg))

	case rainbowMsg:
		if !a.celebrating {
			return a, nil
		}
		a.rainbowFrame++
		if a.rainbowFrame >= theme.RainbowFrames {
			a.celebrating = false
			a.rainbowFrame = 0
			return a, nil
		}
		return a, rainbowCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}

	// Any other key dismisses help
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q", "esc":
		return a, tea.Quit
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if runes := []rune(key); len(runes) == 1 {
			if idx := components.TabIdxByKey(runes[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

// onTick advances the engine once and starts a celebration on a milestone.
func (a App) onTick(now time.Time) (tea.Model, tea.Cmd) {
	report := a.driver.Step(now.Sub(a.lastTick))
	a.lastTick = now
	a.snap = report.Snapshot

	cmds := []tea.Cmd{tickCmd(a.opts.Interval)}

	if m := report.Milestone; m != nil {
		a.milestone = m
		a.milestones++
		a.rainbowFrame = 0
		if !a.celebrating {
			a.celebrating = true
			cmds = append(cmds, rainbowCmd())
		}
	}

	a.sinceSample++
	if a.sinceSample >= a.sampleEvery {
		a.sinceSample = 0
		a.samples = append(a.samples, a.snap.CurrentAmount)
		if len(a.samples) > graphWindow {
			a.samples = a.samples[len(a.samples)-graphWindow:]
		}
	}

	return a, tea.Batch(cmds...)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// amountColor is the rainbow during a celebration and the theme's money
// color otherwise.
func (a App) amountColor() lipgloss.Color {
	if a.celebrating {
		return theme.RainbowColor(a.rainbowFrame)
	}
	return theme.Active.Money
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  accrue needs at least %d columns.\n\n  %s\n",
		a.width,
		minTerminalWidth,
		cli.FormatCurrency(a.opts.CurrencySymbol, a.snap.CurrentAmount),
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	bindings := []struct{ key, desc string }{
		{"d g", "Dashboard / Graph"},
		{"← → tab", "Previous / Next tab"},
		{"?", "Toggle help"},
		{"q esc ^c", "Save and quit"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(descStyle.Render(fmt.Sprintf("  Ticking every %s, %s simulated seconds per tick (%s).",
		a.opts.Interval, a.opts.Step, a.driverMode())))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) driverMode() accrual.Mode {
	if a.opts.Mode == "" {
		return accrual.ModeFixed
	}
	return a.opts.Mode
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tabs plus live indicator
	liveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	brandStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	live := a.spinner.View() + liveStyle.Render(" LIVE  ") + brandStyle.Render("◈ accrue ")
	header := components.RenderTabBar(a.activeTab, w, live)

	// 2. Status bar
	right := fmt.Sprintf("%s · tick %s", a.opts.StoreLabel, cli.FormatNumber(a.snap.Ticks))
	statusBar := components.RenderStatusBar(w, strings.TrimPrefix(right, " · "))

	// 3. Content zone height
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabGraph:
		content = a.renderGraphTab(cw, contentH)
	default:
		content = a.renderDashboardTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type rainbowMsg struct{}

func rainbowCmd() tea.Cmd {
	return tea.Tick(rainbowInterval, func(time.Time) tea.Msg {
		return rainbowMsg{}
	})
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
