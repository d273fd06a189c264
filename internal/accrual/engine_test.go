package accrual

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/accrue/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T, starting, monthly string, opts ...Option) *Engine {
	t.Helper()
	e, err := NewFromStrings(starting, monthly, opts...)
	require.NoError(t, err)
	return e
}

func TestSecondsPerMonth(t *testing.T) {
	assert.True(t, SecondsPerMonth.Equal(decimal.NewFromInt(2_630_016)), "got %s", SecondsPerMonth)
}

func TestIncomePerSecond(t *testing.T) {
	cases := []string{"0", "1", "5000.00", "12345.67", "0.01"}
	for _, monthly := range cases {
		t.Run(monthly, func(t *testing.T) {
			e := newEngine(t, "0", monthly)
			want := dec(monthly).DivRound(decimal.NewFromInt(2_630_016), rateScale)
			assert.True(t, e.IncomePerSecond().Equal(want), "got %s want %s", e.IncomePerSecond(), want)
		})
	}

	e := newEngine(t, "1000.00", "5000.00")
	assert.InDelta(t, 0.00190113, e.IncomePerSecond().InexactFloat64(), 1e-8)
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name, starting, monthly, field string
	}{
		{"non-numeric monthly", "1000", "lots", "monthly income"},
		{"negative monthly", "1000", "-5", "monthly income"},
		{"negative starting", "-1", "5000", "starting amount"},
		{"empty starting", "", "5000", "starting amount"},
		{"garbage starting", "1,000.00", "5000", "starting amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFromStrings(tc.starting, tc.monthly)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestNewRejectsNegativeCurrent(t *testing.T) {
	cfg := model.DefaultAccrualConfig().WithCurrent(dec("-0.01"))
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewResumesFromCurrentAmount(t *testing.T) {
	cfg := model.DefaultAccrualConfig().WithCurrent(dec("1234.5678"))
	e, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, e.Current().Equal(dec("1234.5678")))
	assert.True(t, e.Snapshot().TotalEarned.Equal(dec("234.5678")))
}

func TestTickIsMonotonic(t *testing.T) {
	e := newEngine(t, "0", "5000")
	fractions := []string{"0.1", "0", "-3", "1.5", "0.000001", "0.1", "-0.1", "10"}

	prev := e.Current()
	for i := 0; i < 1000; i++ {
		got := e.Tick(dec(fractions[i%len(fractions)]))
		require.True(t, got.GreaterThanOrEqual(prev), "tick %d decreased %s -> %s", i, prev, got)
		prev = got
	}
}

func TestTenSecondsOfFixedTicks(t *testing.T) {
	e := newEngine(t, "1000.00", "5000.00")
	for i := 0; i < 100; i++ {
		e.Tick(DefaultStep)
	}

	// Exact decimal accumulation: 100 × (rate × 0.1) == rate × 10.
	want := dec("1000").Add(e.IncomePerSecond().Mul(decimal.NewFromInt(10)))
	assert.True(t, e.Current().Equal(want), "got %s want %s", e.Current(), want)
	assert.InDelta(t, 1000.0190113, e.Current().InexactFloat64(), 1e-6)
}

func TestLongRunDoesNotDrift(t *testing.T) {
	e := newEngine(t, "0", "5000.00")
	const ticks = 200_000
	for i := 0; i < ticks; i++ {
		e.Tick(DefaultStep)
	}
	want := e.IncomePerSecond().Mul(decimal.NewFromInt(ticks / 10))
	assert.True(t, e.Current().Equal(want), "got %s want %s", e.Current(), want)
}

// 4471.0272 per month is exactly 0.0017 per second.
const monthlyFor0017 = "4471.0272"

func TestMilestoneFiresOncePerCrossing(t *testing.T) {
	cfg := model.AccrualConfig{
		StartingAmount: dec("999.999"),
		MonthlyIncome:  dec(monthlyFor0017),
	}
	e, err := New(cfg)
	require.NoError(t, err)
	require.True(t, e.IncomePerSecond().Equal(dec("0.0017")))

	_, ok := e.CheckMilestone()
	assert.False(t, ok, "opening balance must not fire")

	e.Tick(decimal.NewFromInt(1))
	require.True(t, e.Current().Equal(dec("1000.0007")))

	m, ok := e.CheckMilestone()
	require.True(t, ok)
	assert.True(t, m.Boundary.Equal(dec("1000")))
	assert.True(t, m.Amount.Equal(dec("1000.0007")))

	_, ok = e.CheckMilestone()
	assert.False(t, ok, "second check without a new crossing")

	e.Tick(decimal.NewFromInt(1))
	_, ok = e.CheckMilestone()
	assert.False(t, ok, "still below 1001")
}

func TestMilestoneSkippingUnitsFiresOnce(t *testing.T) {
	e := newEngine(t, "10.5", monthlyFor0017)
	e.Tick(decimal.NewFromInt(2000)) // +3.4

	m, ok := e.CheckMilestone()
	require.True(t, ok)
	assert.True(t, m.Boundary.Equal(dec("13")))

	_, ok = e.CheckMilestone()
	assert.False(t, ok)
}

func TestProgressToBoundary(t *testing.T) {
	e := newEngine(t, "1000.005", monthlyFor0017)

	cent, err := e.ProgressToBoundary(Cent)
	require.NoError(t, err)
	assert.True(t, cent.Count.Equal(dec("100000")))
	assert.True(t, cent.Fraction.Equal(dec("0.5")), "fraction %s", cent.Fraction)
	assert.False(t, cent.AtBoundary)
	// 0.005 remaining at 0.0017/s.
	assert.True(t, cent.SecondsToBoundary.Equal(dec("0.005").DivRound(dec("0.0017"), 6)))

	ten, err := e.ProgressToBoundary(TenCents)
	require.NoError(t, err)
	assert.True(t, ten.Fraction.Equal(dec("0.05")))

	whole, err := e.ProgressToBoundary(WholeUnit)
	require.NoError(t, err)
	assert.True(t, whole.Count.Equal(dec("1000")))
	assert.True(t, whole.Fraction.Equal(dec("0.005")))
	assert.Greater(t, whole.ETA(), ten.ETA())
}

func TestProgressAtExactInteger(t *testing.T) {
	e := newEngine(t, "999.9983", monthlyFor0017)
	e.Tick(decimal.NewFromInt(1))
	require.True(t, e.Current().Equal(dec("1000")))

	p, err := e.ProgressToBoundary(WholeUnit)
	require.NoError(t, err)
	assert.True(t, p.Fraction.IsZero())
	assert.True(t, p.AtBoundary)
	assert.True(t, p.SecondsToBoundary.IsZero())
	assert.Equal(t, time.Duration(0), p.ETA())
}

func TestProgressInvalidUnit(t *testing.T) {
	e := newEngine(t, "1", "1")
	for _, unit := range []string{"0", "-1"} {
		_, err := e.ProgressToBoundary(dec(unit))
		assert.ErrorIs(t, err, ErrInvalidBoundary)
	}
}

func TestProgressWithZeroRate(t *testing.T) {
	e := newEngine(t, "12.34", "0")
	p, err := e.ProgressToBoundary(WholeUnit)
	require.NoError(t, err)
	assert.True(t, p.Unreachable)
	assert.True(t, p.SecondsToBoundary.IsZero())
}

func TestProgressDoesNotMutate(t *testing.T) {
	e := newEngine(t, "5.55", "5000")
	before := e.Current()
	for _, b := range Boundaries {
		_, err := e.ProgressToBoundary(b.Unit)
		require.NoError(t, err)
	}
	assert.True(t, e.Current().Equal(before))
}

func TestSnapshot(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := base
	e := newEngine(t, "1000.00", "5000.00", WithClock(func() time.Time { return now }))

	assert.Zero(t, e.Snapshot().Elapsed, "elapsed before Start")

	e.Start()
	for i := 0; i < 10; i++ {
		e.Tick(DefaultStep)
	}
	now = base.Add(90 * time.Second)

	s := e.Snapshot()
	assert.Equal(t, 90*time.Second, s.Elapsed)
	assert.Equal(t, base, s.StartedAt)
	assert.Equal(t, int64(10), s.Ticks)
	assert.True(t, s.HourlyRate.Equal(e.IncomePerSecond().Mul(decimal.NewFromInt(3600))))
	assert.True(t, s.TotalEarned.Equal(s.CurrentAmount.Sub(dec("1000.00"))))
	assert.InDelta(t, 6.84, s.HourlyRate.InexactFloat64(), 0.01)

	e.Tick(DefaultStep)
	assert.True(t, s.CurrentAmount.LessThan(e.Current()), "snapshot must not track later ticks")
}

func TestConfigCarriesCurrent(t *testing.T) {
	e := newEngine(t, "10", "5000")
	e.Tick(decimal.NewFromInt(60))

	cfg := e.Config()
	assert.True(t, cfg.StartingAmount.Equal(dec("10")))
	assert.True(t, cfg.MonthlyIncome.Equal(dec("5000")))
	require.True(t, cfg.CurrentAmount.Valid)
	assert.True(t, cfg.CurrentAmount.Decimal.Equal(e.Current()))
}
