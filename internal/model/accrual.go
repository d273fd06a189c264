// Package model defines the persisted accrual configuration record.
package model

import "github.com/shopspring/decimal"

// Default values used when no usable configuration is persisted.
var (
	DefaultStartingAmount = decimal.RequireFromString("1000.00")
	DefaultMonthlyIncome  = decimal.RequireFromString("5000.00")
)

// AccrualConfig is the persisted accrual configuration.
// CurrentAmount is optional; when invalid the session resumes from StartingAmount.
type AccrualConfig struct {
	StartingAmount decimal.Decimal
	MonthlyIncome  decimal.Decimal
	CurrentAmount  decimal.NullDecimal
}

// DefaultAccrualConfig returns the built-in configuration.
func DefaultAccrualConfig() AccrualConfig {
	return AccrualConfig{
		StartingAmount: DefaultStartingAmount,
		MonthlyIncome:  DefaultMonthlyIncome,
		CurrentAmount:  decimal.NewNullDecimal(DefaultStartingAmount),
	}
}

// Current returns the balance a session should resume from.
func (c AccrualConfig) Current() decimal.Decimal {
	if c.CurrentAmount.Valid {
		return c.CurrentAmount.Decimal
	}
	return c.StartingAmount
}

// WithCurrent returns a copy of c with CurrentAmount set to amount.
func (c AccrualConfig) WithCurrent(amount decimal.Decimal) AccrualConfig {
	c.CurrentAmount = decimal.NewNullDecimal(amount)
	return c
}

// Equal reports whether two configurations hold the same decimal values.
// A missing current amount compares equal to one set to StartingAmount.
func (c AccrualConfig) Equal(o AccrualConfig) bool {
	return c.StartingAmount.Equal(o.StartingAmount) &&
		c.MonthlyIncome.Equal(o.MonthlyIncome) &&
		c.Current().Equal(o.Current())
}
