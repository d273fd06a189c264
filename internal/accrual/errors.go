package accrual

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is matched by every configuration parse or range failure.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidBoundary is returned for a non-positive boundary unit.
	ErrInvalidBoundary = errors.New("boundary unit must be positive")

	errMissing    = errors.New("value is required")
	errNotNumeric = errors.New("not a decimal number")
	errNegative   = errors.New("must not be negative")
)

// ConfigError describes a rejected configuration field.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInvalidConfiguration) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
