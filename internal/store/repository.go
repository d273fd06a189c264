// Package store persists the accrual configuration record.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/accrue/internal/model"
)

var (
	// ErrNotFound means no configuration has been persisted yet.
	ErrNotFound = errors.New("configuration not found")

	// ErrCorrupt means a persisted record exists but cannot be used.
	ErrCorrupt = errors.New("configuration corrupt")
)

// Repository loads and saves the accrual configuration.
type Repository interface {
	Load(ctx context.Context) (model.AccrualConfig, error)
	Save(ctx context.Context, cfg model.AccrualConfig) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the repository for backend at path. An empty path selects the
// backend's default location.
func Open(backend, path string) (Repository, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		if path == "" {
			path = DefaultFilePath()
		}
		return NewFileRepository(path)
	case BackendSQLite:
		if path == "" {
			path = DefaultDBPath()
		}
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unknown storage backend %q (want %q or %q)", backend, BackendFile, BackendSQLite)
}

// Close releases repo's resources when it holds any.
func Close(repo Repository) error {
	if c, ok := repo.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// DataDir returns the XDG-compliant directory for the configuration file.
func DataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "accrue")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "accrue")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "accrue")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "accrue")
}

// DefaultFilePath is where the file backend keeps the configuration.
func DefaultFilePath() string {
	return filepath.Join(DataDir(), "config.json")
}

// DefaultDBPath is where the SQLite backend keeps its database.
func DefaultDBPath() string {
	return filepath.Join(CacheDir(), "accrue.db")
}

// record is the wire form shared by every backend: decimal strings only.
type record struct {
	StartingAmount string `json:"starting_amount" toml:"starting_amount" yaml:"starting_amount"`
	MonthlyIncome  string `json:"monthly_income" toml:"monthly_income" yaml:"monthly_income"`
	CurrentAmount  string `json:"current_amount,omitempty" toml:"current_amount,omitempty" yaml:"current_amount,omitempty"`
}

func toRecord(cfg model.AccrualConfig) record {
	return record{
		StartingAmount: cfg.StartingAmount.String(),
		MonthlyIncome:  cfg.MonthlyIncome.String(),
		CurrentAmount:  cfg.Current().String(),
	}
}

func (r record) config() (model.AccrualConfig, error) {
	starting, err := parseField("starting_amount", r.StartingAmount)
	if err != nil {
		return model.AccrualConfig{}, err
	}
	monthly, err := parseField("monthly_income", r.MonthlyIncome)
	if err != nil {
		return model.AccrualConfig{}, err
	}
	cfg := model.AccrualConfig{StartingAmount: starting, MonthlyIncome: monthly}
	if strings.TrimSpace(r.CurrentAmount) != "" {
		current, err := parseField("current_amount", r.CurrentAmount)
		if err != nil {
			return model.AccrualConfig{}, err
		}
		cfg = cfg.WithCurrent(current)
	}
	return cfg, nil
}

func parseField(name, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: missing %s", ErrCorrupt, name)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", ErrCorrupt, name, value)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s %q is negative", ErrCorrupt, name, value)
	}
	return d, nil
}
