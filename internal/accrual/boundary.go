package accrual

import (
	"time"

	"github.com/shopspring/decimal"
)

// Boundary units tracked by the dashboard.
var (
	Cent      = decimal.New(1, -2)
	TenCents  = decimal.New(1, -1)
	WholeUnit = decimal.NewFromInt(1)
)

// Boundary pairs a unit with its display label.
type Boundary struct {
	Label string
	Unit  decimal.Decimal
}

// Boundaries lists the fixed units in ascending order.
var Boundaries = []Boundary{
	{Label: "Next cent", Unit: Cent},
	{Label: "Next 10 cents", Unit: TenCents},
	{Label: "Next whole unit", Unit: WholeUnit},
}

// Progress is the position of the balance between two multiples of Unit.
type Progress struct {
	Unit decimal.Decimal
	// Count is floor(balance / Unit).
	Count decimal.Decimal
	// Fraction is in [0, 1).
	Fraction decimal.Decimal
	// SecondsToBoundary is zero when AtBoundary or Unreachable.
	SecondsToBoundary decimal.Decimal
	AtBoundary        bool
	// Unreachable is set when the rate is zero and the balance sits between boundaries.
	Unreachable bool
}

// FractionFloat returns Fraction for rendering widgets.
func (p Progress) FractionFloat() float64 {
	return p.Fraction.InexactFloat64()
}

var maxETASeconds = decimal.NewFromInt(int64(time.Duration(1<<63-1) / time.Second))

// ETA converts SecondsToBoundary to a duration, saturating at the largest
// representable duration.
func (p Progress) ETA() time.Duration {
	if p.SecondsToBoundary.GreaterThanOrEqual(maxETASeconds) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(p.SecondsToBoundary.Mul(decimal.NewFromInt(int64(time.Second))).IntPart())
}

// ProgressToBoundary computes how far the balance is between multiples of
// unit and how long the current rate needs to reach the next one.
func (e *Engine) ProgressToBoundary(unit decimal.Decimal) (Progress, error) {
	return progressAt(e.current, e.perSecond, unit)
}

// ProgressAt is ProgressToBoundary evaluated against a snapshot.
func (s Snapshot) ProgressAt(unit decimal.Decimal) (Progress, error) {
	return progressAt(s.CurrentAmount, s.IncomePerSecond, unit)
}

func progressAt(current, perSecond, unit decimal.Decimal) (Progress, error) {
	if unit.Sign() <= 0 {
		return Progress{}, ErrInvalidBoundary
	}

	ratio := current.DivRound(unit, rateScale)
	count := ratio.Floor()
	fraction := ratio.Sub(count)

	p := Progress{
		Unit:              unit,
		Count:             count,
		Fraction:          fraction,
		SecondsToBoundary: decimal.Zero,
	}
	switch {
	case fraction.IsZero():
		p.AtBoundary = true
	case perSecond.IsZero():
		p.Unreachable = true
	default:
		remaining := unit.Mul(decimal.NewFromInt(1).Sub(fraction))
		p.SecondsToBoundary = remaining.DivRound(perSecond, 6)
	}
	return p, nil
}
