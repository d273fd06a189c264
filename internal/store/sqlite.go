package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/accrue/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLiteRepository keeps the configuration as a single row in SQLite.
// Amounts are stored as decimal strings so they round-trip exactly.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteRepository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

// Path returns the database location.
func (r *SQLiteRepository) Path() string { return r.path }

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Load reads the configuration row.
func (r *SQLiteRepository) Load(ctx context.Context) (model.AccrualConfig, error) {
	var rec record
	var current sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT starting_amount, monthly_income, current_amount FROM accrual_config WHERE id = 1`,
	).Scan(&rec.StartingAmount, &rec.MonthlyIncome, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccrualConfig{}, fmt.Errorf("%w: %s", ErrNotFound, r.path)
	}
	if err != nil {
		return model.AccrualConfig{}, fmt.Errorf("reading config row: %w", err)
	}
	if current.Valid {
		rec.CurrentAmount = current.String
	}
	return rec.config()
}

// Save replaces the configuration row.
func (r *SQLiteRepository) Save(ctx context.Context, cfg model.AccrualConfig) error {
	rec := toRecord(cfg)
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO accrual_config
		(id, starting_amount, monthly_income, current_amount, updated_at)
		VALUES (1, ?, ?, ?, ?)`,
		rec.StartingAmount, rec.MonthlyIncome, rec.CurrentAmount, now,
	)
	if err != nil {
		return fmt.Errorf("writing config row: %w", err)
	}
	return nil
}

// UpdatedAt returns when the row was last written, or the zero time if never.
func (r *SQLiteRepository) UpdatedAt(ctx context.Context) (time.Time, error) {
	var s string
	err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM accrual_config WHERE id = 1`).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t, nil
}
