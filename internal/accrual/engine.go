// Package accrual implements the fixed-rate balance accrual engine and the
// sequential tick driver that advances it.
package accrual

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/accrue/internal/model"
)

// rateScale is the number of fractional digits kept for the per-second rate.
const rateScale = 24

var (
	// DaysPerMonth is the average month length used to derive the per-second rate.
	DaysPerMonth = decimal.RequireFromString("30.44")

	// SecondsPerMonth is DaysPerMonth expressed in seconds (2,630,016).
	SecondsPerMonth = DaysPerMonth.Mul(decimal.NewFromInt(24 * 60 * 60))

	// DefaultStep is the fixed simulated time added by one tick.
	DefaultStep = decimal.New(1, -1)

	secondsPerHour = decimal.NewFromInt(3600)
)

// Engine owns the balance and advances it by explicit increments.
// It is not safe for concurrent mutation: Tick and CheckMilestone must be
// called from a single sequential driver. Readers on other goroutines should
// consume Snapshot values.
type Engine struct {
	starting  decimal.Decimal
	monthly   decimal.Decimal
	perSecond decimal.Decimal

	current   decimal.Decimal
	lastWhole decimal.Decimal
	ticks     int64

	startTime time.Time
	now       func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for elapsed-time reporting.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine from a configuration record.
func New(cfg model.AccrualConfig, opts ...Option) (*Engine, error) {
	if cfg.StartingAmount.IsNegative() {
		return nil, &ConfigError{Field: "starting amount", Value: cfg.StartingAmount.String(), Err: errNegative}
	}
	if cfg.MonthlyIncome.IsNegative() {
		return nil, &ConfigError{Field: "monthly income", Value: cfg.MonthlyIncome.String(), Err: errNegative}
	}
	current := cfg.Current()
	if current.IsNegative() {
		return nil, &ConfigError{Field: "current amount", Value: current.String(), Err: errNegative}
	}

	e := &Engine{
		starting:  cfg.StartingAmount,
		monthly:   cfg.MonthlyIncome,
		perSecond: IncomePerSecond(cfg.MonthlyIncome),
		current:   current,
		lastWhole: current.Floor(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewFromStrings parses both amounts and builds an engine starting at startingAmount.
func NewFromStrings(startingAmount, monthlyIncome string, opts ...Option) (*Engine, error) {
	starting, err := ParseAmount("starting amount", startingAmount)
	if err != nil {
		return nil, err
	}
	monthly, err := ParseAmount("monthly income", monthlyIncome)
	if err != nil {
		return nil, err
	}
	return New(model.AccrualConfig{StartingAmount: starting, MonthlyIncome: monthly}, opts...)
}

// ParseAmount parses a non-negative exact decimal. field names the value in errors.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ConfigError{Field: field, Err: errMissing}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ConfigError{Field: field, Value: s, Err: errNotNumeric}
	}
	if d.IsNegative() {
		return decimal.Zero, &ConfigError{Field: field, Value: s, Err: errNegative}
	}
	return d, nil
}

// IncomePerSecond converts a monthly income to the per-second accrual rate.
func IncomePerSecond(monthly decimal.Decimal) decimal.Decimal {
	return monthly.DivRound(SecondsPerMonth, rateScale)
}

// Start marks the beginning of a run for elapsed-time reporting.
func (e *Engine) Start() {
	e.startTime = e.now()
}

// Started reports whether Start has been called.
func (e *Engine) Started() bool {
	return !e.startTime.IsZero()
}

// Tick advances the balance by IncomePerSecond × fraction seconds and returns
// the new balance. Negative fractions advance nothing.
func (e *Engine) Tick(fraction decimal.Decimal) decimal.Decimal {
	e.ticks++
	if fraction.Sign() <= 0 {
		return e.current
	}
	e.current = e.current.Add(e.perSecond.Mul(fraction))
	return e.current
}

// Current returns the current balance.
func (e *Engine) Current() decimal.Decimal {
	return e.current
}

// IncomePerSecond returns the engine's per-second rate.
func (e *Engine) IncomePerSecond() decimal.Decimal {
	return e.perSecond
}

// Config returns the record to persist, carrying the current balance.
func (e *Engine) Config() model.AccrualConfig {
	return model.AccrualConfig{
		StartingAmount: e.starting,
		MonthlyIncome:  e.monthly,
	}.WithCurrent(e.current)
}

// Milestone is the one-shot signal for an upward whole-unit crossing.
type Milestone struct {
	Boundary decimal.Decimal
	Amount   decimal.Decimal
}

// CheckMilestone reports a milestone when floor(balance) has passed the last
// whole unit seen. It fires once per crossing; when a single tick crosses
// several units only the highest is reported.
func (e *Engine) CheckMilestone() (Milestone, bool) {
	whole := e.current.Floor()
	if !whole.GreaterThan(e.lastWhole) {
		return Milestone{}, false
	}
	e.lastWhole = whole
	return Milestone{Boundary: whole, Amount: e.current}, true
}

// Snapshot is an immutable view of the engine for presentation layers.
type Snapshot struct {
	At              time.Time
	StartedAt       time.Time
	Elapsed         time.Duration
	Ticks           int64
	CurrentAmount   decimal.Decimal
	StartingAmount  decimal.Decimal
	MonthlyIncome   decimal.Decimal
	IncomePerSecond decimal.Decimal
	HourlyRate      decimal.Decimal
	TotalEarned     decimal.Decimal
	LastWholeUnit   decimal.Decimal
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	now := e.now()
	var elapsed time.Duration
	if e.Started() {
		elapsed = now.Sub(e.startTime)
	}
	return Snapshot{
		At:              now,
		StartedAt:       e.startTime,
		Elapsed:         elapsed,
		Ticks:           e.ticks,
		CurrentAmount:   e.current,
		StartingAmount:  e.starting,
		MonthlyIncome:   e.monthly,
		IncomePerSecond: e.perSecond,
		HourlyRate:      e.perSecond.Mul(secondsPerHour),
		TotalEarned:     e.current.Sub(e.starting),
		LastWholeUnit:   e.lastWhole,
	}
}
