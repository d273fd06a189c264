package accrual

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/accrue/internal/model"
)

type recordingPersister struct {
	mu    sync.Mutex
	saves []model.AccrualConfig
	err   error
}

func (p *recordingPersister) Save(_ context.Context, cfg model.AccrualConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, cfg)
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDriverSavesExactlyOnceOnCancel(t *testing.T) {
	e := newEngine(t, "1000.00", "5000.00")
	p := &recordingPersister{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reports int
	d := NewDriver(e, p, DriverOptions{
		Interval: time.Millisecond,
		Logger:   quietLogger(),
		OnTick: func(TickReport) {
			reports++
			if reports == 5 {
				cancel()
			}
		},
	})

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 5, reports, "no tick may be applied after cancellation")
	require.Len(t, p.saves, 1)

	want := dec("1000.00").Add(e.IncomePerSecond().Mul(dec("0.5")))
	assert.True(t, p.saves[0].Current().Equal(want), "saved %s want %s", p.saves[0].Current(), want)

	assert.ErrorIs(t, d.Run(ctx), ErrDriverStopped)
	assert.Len(t, p.saves, 1)
}

func TestDriverReturnsSaveError(t *testing.T) {
	e := newEngine(t, "1", "1")
	boom := errors.New("disk full")
	p := &recordingPersister{err: boom}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewDriver(e, p, DriverOptions{Logger: quietLogger()}).Run(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestDriverWithoutPersister(t *testing.T) {
	e := newEngine(t, "1", "1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, NewDriver(e, nil, DriverOptions{Logger: quietLogger()}).Run(ctx))
}

func TestDriverStepReportsMilestone(t *testing.T) {
	e := newEngine(t, "999.999", monthlyFor0017)
	d := NewDriver(e, nil, DriverOptions{Step: decimal.NewFromInt(1), Logger: quietLogger()})

	r := d.Step(0)
	require.NotNil(t, r.Milestone)
	assert.True(t, r.Milestone.Boundary.Equal(dec("1000")))
	assert.True(t, r.Snapshot.CurrentAmount.Equal(dec("1000.0007")))

	r = d.Step(0)
	assert.Nil(t, r.Milestone)
}

func TestDriverWallClockStep(t *testing.T) {
	e := newEngine(t, "0", monthlyFor0017)
	d := NewDriver(e, nil, DriverOptions{Mode: ModeWallClock, Logger: quietLogger()})

	d.Step(2 * time.Second)
	assert.True(t, e.Current().Equal(dec("0.0034")), "got %s", e.Current())

	d.Step(250 * time.Millisecond)
	assert.True(t, e.Current().Equal(dec("0.003825")), "got %s", e.Current())
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeFixed, false},
		{"fixed", ModeFixed, false},
		{"wallclock", ModeWallClock, false},
		{"realtime", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}
