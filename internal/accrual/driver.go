package accrual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/accrue/internal/model"
)

// Persister stores the final configuration when a run stops.
type Persister interface {
	Save(ctx context.Context, cfg model.AccrualConfig) error
}

// Mode selects how much simulated time a tick adds.
type Mode string

const (
	// ModeFixed adds the configured step on every tick regardless of real time.
	ModeFixed Mode = "fixed"
	// ModeWallClock adds the measured time since the previous tick.
	ModeWallClock Mode = "wallclock"
)

// ParseMode validates a mode name. Empty selects ModeFixed.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFixed:
		return ModeFixed, nil
	case ModeWallClock:
		return ModeWallClock, nil
	}
	return "", fmt.Errorf("unknown accrual mode %q (want %q or %q)", s, ModeFixed, ModeWallClock)
}

// ErrDriverStopped is returned when Run is called on a driver that already finished.
var ErrDriverStopped = errors.New("driver already stopped")

const finalSaveTimeout = 5 * time.Second

// TickReport is handed to observers after every tick.
type TickReport struct {
	Snapshot  Snapshot
	Milestone *Milestone
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	Interval time.Duration
	Step     decimal.Decimal
	Mode     Mode
	Logger   *slog.Logger
	// OnTick is called synchronously on the driver goroutine.
	OnTick func(TickReport)
}

// Driver advances an engine on a fixed period until its context is canceled,
// then saves the final balance exactly once.
type Driver struct {
	engine    *Engine
	persister Persister
	opts      DriverOptions
	log       *slog.Logger
	stopped   bool
}

// NewDriver returns a driver for engine. persister may be nil for runs that
// should not persist.
func NewDriver(engine *Engine, persister Persister, opts DriverOptions) *Driver {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.Step.Sign() <= 0 {
		opts.Step = DefaultStep
	}
	if opts.Mode == "" {
		opts.Mode = ModeFixed
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		engine:    engine,
		persister: persister,
		opts:      opts,
		log:       logger.With("component", "driver"),
	}
}

// Run ticks until ctx is canceled. Cancellation is a normal stop: the final
// balance is saved and Run returns nil unless the save fails.
func (d *Driver) Run(ctx context.Context) error {
	if d.stopped {
		return ErrDriverStopped
	}
	if !d.engine.Started() {
		d.engine.Start()
	}
	d.log.Info("accrual started",
		"interval", d.opts.Interval,
		"step", d.opts.Step.String(),
		"mode", d.opts.Mode,
		"amount", d.engine.Current().String(),
	)

	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return d.finish(ctx)
		case now := <-ticker.C:
			// A tick racing with cancellation must not be applied.
			if ctx.Err() != nil {
				return d.finish(ctx)
			}
			d.Step(now.Sub(last))
			last = now
		}
	}
}

// Step applies one tick. elapsed is only used in ModeWallClock.
func (d *Driver) Step(elapsed time.Duration) TickReport {
	step := d.opts.Step
	if d.opts.Mode == ModeWallClock {
		step = decimal.New(int64(elapsed), -9)
	}
	d.engine.Tick(step)

	var report TickReport
	if m, ok := d.engine.CheckMilestone(); ok {
		report.Milestone = &m
		d.log.Info("milestone reached", "boundary", m.Boundary.String())
	}
	report.Snapshot = d.engine.Snapshot()
	if d.opts.OnTick != nil {
		d.opts.OnTick(report)
	}
	return report
}

func (d *Driver) finish(ctx context.Context) error {
	d.stopped = true
	cfg := d.engine.Config()
	d.log.Info("accrual stopped", "amount", cfg.Current().String())
	if d.persister == nil {
		return nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer cancel()
	if err := d.persister.Save(saveCtx, cfg); err != nil {
		return fmt.Errorf("saving final balance: %w", err)
	}
	return nil
}
