package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/accrue/internal/accrual"
	"github.com/theirongolddev/accrue/internal/cli"
	"github.com/theirongolddev/accrue/internal/daemon"
	"github.com/theirongolddev/accrue/internal/logging"
	"github.com/theirongolddev/accrue/internal/store"
)

var (
	flagDaemonAddr         string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonPublishEvery int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Accrue in the background and serve the balance over HTTP, SSE and WebSocket",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon and save its balance",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from settings)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(store.CacheDir(), "accrued.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(store.CacheDir(), "accrued.log"), "Log file path for detached mode")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from settings)")
	pf.IntVar(&flagDaemonPublishEvery, "publish-every", 0, "Ticks between snapshot events (default from settings)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonState is written next to the pid file while the daemon runs.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	RunID     string    `json:"run_id"`
	Store     string    `json:"store"`
}

// daemonFiles manages the pid file and its JSON state sibling.
type daemonFiles struct {
	pidPath string
}

func (f daemonFiles) statePath() string { return f.pidPath + ".json" }

func (f daemonFiles) write(st daemonState) error {
	if err := os.MkdirAll(filepath.Dir(f.pidPath), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.pidPath, []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	// The state file is informational; the pid file is what matters.
	_ = os.WriteFile(f.statePath(), append(data, '\n'), 0o600)
	return nil
}

func (f daemonFiles) pid() (int, error) {
	data, err := os.ReadFile(f.pidPath) //nolint:gosec // daemon pid path is configured by the local user
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", f.pidPath)
	}
	return pid, nil
}

func (f daemonFiles) state() (daemonState, error) {
	var st daemonState
	data, err := os.ReadFile(f.statePath()) //nolint:gosec // sibling of the pid file
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}

func (f daemonFiles) remove() {
	_ = os.Remove(f.pidPath)
	_ = os.Remove(f.statePath())
}

// ensureStopped fails when a live daemon owns the pid file and clears stale files.
func (f daemonFiles) ensureStopped() error {
	pid, err := f.pid()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	f.remove()
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// childArgs drops --detach so the spawned process runs in the foreground.
func childArgs(args []string) []string {
	out := slices.DeleteFunc(slices.Clone(args), func(a string) bool {
		return a == "--detach" || strings.HasPrefix(a, "--detach=")
	})
	return append(out, "--child")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return spawnDaemon(files)
	}
	return serveDaemon(cmd.Context(), files)
}

// daemonAddr resolves the listen address from flags, then settings.
func daemonAddr() string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	if settings, err := loadSettings(); err == nil {
		return settings.Daemon.Addr
	}
	return "127.0.0.1:8788"
}

func spawnDaemon(files daemonFiles) error {
	if err := files.ensureStopped(); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // re-executes the current binary
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  API: http://%s/v1/status\n", daemonAddr())
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func serveDaemon(ctx context.Context, files daemonFiles) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if flagDaemonAddr != "" {
		settings.Daemon.Addr = flagDaemonAddr
	}
	if flagDaemonEventsBuffer > 0 {
		settings.Daemon.EventsBuffer = flagDaemonEventsBuffer
	}
	if flagDaemonPublishEvery > 0 {
		settings.Daemon.PublishEvery = flagDaemonPublishEvery
	}
	mode, err := accrual.ParseMode(settings.General.Mode)
	if err != nil {
		return err
	}
	step, err := settings.Step()
	if err != nil {
		return err
	}
	logger, err := newLogger(settings)
	if err != nil {
		return err
	}
	if err := files.ensureStopped(); err != nil {
		return err
	}

	repo, label, err := openStore(settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(repo) }()

	rec, err := loadRecord(ctx, repo, logger)
	if err != nil {
		return err
	}
	engine, err := accrual.New(rec)
	if err != nil {
		return err
	}

	svc := daemon.New(engine, repo, daemon.Config{
		Addr:         settings.Daemon.Addr,
		EventsBuffer: settings.Daemon.EventsBuffer,
		PublishEvery: settings.Daemon.PublishEvery,
		Interval:     settings.TickInterval(),
		Step:         step,
		Mode:         mode,
		StoreLabel:   label,
		Logger:       logger,
	})

	if err := files.write(daemonState{
		PID:       os.Getpid(),
		Addr:      settings.Daemon.Addr,
		StartedAt: time.Now(),
		RunID:     svc.RunID(),
		Store:     label,
	}); err != nil {
		return err
	}
	defer files.remove()

	sym := settings.Appearance.CurrencySymbol
	fmt.Printf("  accrue daemon listening on http://%s\n", settings.Daemon.Addr)
	fmt.Printf("  Accruing %s from %s\n", cli.FormatRate(sym, engine.IncomePerSecond()), cli.FormatCurrency(sym, engine.Current()))
	fmt.Printf("  Stop with: accrue daemon stop --pid-file %s\n", files.pidPath)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon failed", logging.FieldError, err)
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	pid, err := files.pid()
	if err != nil {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := daemonAddr()
	if st, err := files.state(); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	st, err := fetchDaemonStatus(cmd.Context(), addr)
	if err != nil {
		fmt.Printf("  Daemon PID: %d\n", pid)
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	sym := "€"
	if settings, err := loadSettings(); err == nil {
		sym = settings.Appearance.CurrencySymbol
	}

	lastTick := "pending"
	if !st.LastTickAt.IsZero() {
		lastTick = cli.FormatAgo(st.LastTickAt)
	}
	rows := [][]string{
		{"PID", strconv.Itoa(pid)},
		{"Address", "http://" + addr},
		{"Run ID", st.RunID},
		{"Store", st.Store},
		{"---"},
		{"Balance", cli.RenderAmount(cli.FormatCurrency(sym, st.Summary.CurrentAmount))},
		{"Earned", cli.FormatCurrency(sym, st.Summary.TotalEarned)},
		{"Ticks", fmt.Sprintf("%s (%s mode)", cli.FormatNumber(st.Summary.Ticks), st.Mode)},
		{"Last tick", lastTick},
	}
	if st.LastMilestone != nil {
		rows = append(rows, []string{"Last milestone", cli.FormatCurrency(sym, st.LastMilestone.Boundary)})
	}
	rows = append(rows, []string{"---"})
	for _, b := range st.Boundaries {
		rows = append(rows, []string{b.Label, cli.RenderProgressBar(b.Fraction.InexactFloat64(), 20)})
	}
	rows = append(rows, []string{"Subscribers", strconv.Itoa(st.SubscriberCount)})

	fmt.Println()
	fmt.Println(cli.RenderTable(cli.Table{Title: "Daemon", Rows: rows}))
	fmt.Println()
	return nil
}

func fetchDaemonStatus(ctx context.Context, addr string) (daemon.Status, error) {
	var st daemon.Status

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	pid, err := files.pid()
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	// The daemon saves its balance before exiting.
	poll := time.NewTicker(150 * time.Millisecond)
	defer poll.Stop()
	deadline := time.After(8 * time.Second)
	for {
		select {
		case <-poll.C:
			if !processAlive(pid) {
				files.remove()
				fmt.Printf("  Stopped daemon (pid %d); balance saved\n", pid)
				return nil
			}
		case <-deadline:
			return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
		}
	}
}
