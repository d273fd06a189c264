package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/theirongolddev/accrue/internal/model"
)

// Recovery reports what LoadOrInit had to do.
type Recovery int

const (
	// Loaded means the persisted configuration was usable.
	Loaded Recovery = iota
	// CreatedDefaults means nothing was persisted and defaults were written.
	CreatedDefaults
	// ReplacedCorrupt means a corrupt record was replaced by defaults.
	ReplacedCorrupt
)

func (r Recovery) String() string {
	switch r {
	case CreatedDefaults:
		return "created defaults"
	case ReplacedCorrupt:
		return "replaced corrupt config"
	}
	return "loaded"
}

// LoadOrInit loads the configuration, substituting and persisting defaults
// when it is missing or corrupt. A failure to persist the defaults is
// returned alongside the usable defaults so callers can warn and carry on.
func LoadOrInit(ctx context.Context, repo Repository, logger *slog.Logger) (model.AccrualConfig, Recovery, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := repo.Load(ctx)
	if err == nil {
		return cfg, Loaded, nil
	}

	var rec Recovery
	switch {
	case errors.Is(err, ErrNotFound):
		rec = CreatedDefaults
		logger.Info("no saved configuration, writing defaults")
	case errors.Is(err, ErrCorrupt):
		rec = ReplacedCorrupt
		logger.Warn("saved configuration unusable, restoring defaults", "err", err)
	default:
		return model.AccrualConfig{}, Loaded, err
	}

	cfg = model.DefaultAccrualConfig()
	if err := repo.Save(ctx, cfg); err != nil {
		return cfg, rec, fmt.Errorf("saving default config: %w", err)
	}
	return cfg, rec, nil
}
