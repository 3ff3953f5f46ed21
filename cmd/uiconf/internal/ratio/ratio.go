// Package ratio stores per-model billing ratios and builds the
// ratio_config payload served on the ratio endpoint and compared by
// ratiosync against upstream instances.
package ratio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
)

const tableName = "model_ratios"

// Ratio type keys, shared by the exposed payload and sync differences.
const (
	TypeModelRatio      = "model_ratio"
	TypeCompletionRatio = "completion_ratio"
	TypeCacheRatio      = "cache_ratio"
	TypeModelPrice      = "model_price"
)

// Types lists the ratio type keys in payload order.
func Types() []string {
	return []string{TypeModelRatio, TypeCompletionRatio, TypeCacheRatio, TypeModelPrice}
}

var (
	ErrNotFound     = errors.New("model ratio not found")
	ErrInvalidEntry = errors.New("invalid model ratio")
)

// Entry is one model's ratios. CacheRatio and ModelPrice are optional.
type Entry struct {
	ModelName       string    `json:"model_name"`
	ModelRatio      float64   `json:"model_ratio"`
	CompletionRatio float64   `json:"completion_ratio"`
	CacheRatio      *float64  `json:"cache_ratio,omitempty"`
	ModelPrice      *float64  `json:"model_price,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate rejects empty names and negative or non-finite values.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ModelName) == "" {
		return fmt.Errorf("%w: model_name is required", ErrInvalidEntry)
	}
	values := map[string]*float64{
		TypeModelRatio:      &e.ModelRatio,
		TypeCompletionRatio: &e.CompletionRatio,
		TypeCacheRatio:      e.CacheRatio,
		TypeModelPrice:      e.ModelPrice,
	}
	for name, v := range values {
		if v == nil {
			continue
		}
		if *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidEntry, name)
		}
	}
	return nil
}

// Config is the ratio_config payload: ratio type -> model -> value.
type Config map[string]map[string]float64

// NewConfig returns a Config with an empty map for every ratio type.
func NewConfig() Config {
	cfg := make(Config, 4)
	for _, t := range Types() {
		cfg[t] = map[string]float64{}
	}
	return cfg
}

// Repository persists entries through a database.Driver.
type Repository struct {
	db  database.Driver
	now func() time.Time
}

// NewRepository creates a repository. Call EnsureSchema before use.
func NewRepository(db database.Driver) *Repository {
	return &Repository{db: db, now: time.Now}
}

// EnsureSchema creates the ratio table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
	model_name VARCHAR(255) NOT NULL PRIMARY KEY,
	model_ratio DOUBLE PRECISION NOT NULL,
	completion_ratio DOUBLE PRECISION NOT NULL,
	cache_ratio DOUBLE PRECISION NULL,
	model_price DOUBLE PRECISION NULL,
	updated_at BIGINT NOT NULL
)`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", tableName, err)
	}
	return nil
}

// HasSchema reports whether the ratio table exists.
func (r *Repository) HasSchema(ctx context.Context) (bool, error) {
	return r.db.TableExists(ctx, tableName)
}

// Upsert validates e and inserts or replaces the row for e.ModelName.
// The stored entry is returned with UpdatedAt set.
func (r *Repository) Upsert(ctx context.Context, e Entry) (Entry, error) {
	e.ModelName = strings.TrimSpace(e.ModelName)
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	e.UpdatedAt = r.now().UTC().Truncate(time.Second)

	p := r.db.Placeholder
	insert := fmt.Sprintf(
		"INSERT INTO %s (model_name, model_ratio, completion_ratio, cache_ratio, model_price, updated_at) VALUES (%s, %s, %s, %s, %s, %s)",
		tableName, p(1), p(2), p(3), p(4), p(5), p(6))

	var query string
	if r.db.Dialect() == database.DialectMySQL {
		query = insert + ` ON DUPLICATE KEY UPDATE model_ratio = VALUES(model_ratio),
	completion_ratio = VALUES(completion_ratio), cache_ratio = VALUES(cache_ratio),
	model_price = VALUES(model_price), updated_at = VALUES(updated_at)`
	} else {
		query = insert + ` ON CONFLICT (model_name) DO UPDATE SET model_ratio = excluded.model_ratio,
	completion_ratio = excluded.completion_ratio, cache_ratio = excluded.cache_ratio,
	model_price = excluded.model_price, updated_at = excluded.updated_at`
	}

	_, err := r.db.Exec(ctx, query,
		e.ModelName, e.ModelRatio, e.CompletionRatio,
		nullFloat(e.CacheRatio), nullFloat(e.ModelPrice), e.UpdatedAt.Unix())
	if err != nil {
		return Entry{}, fmt.Errorf("failed to upsert ratio for %s: %w", e.ModelName, err)
	}
	return e, nil
}

// Get returns the entry for model or ErrNotFound.
func (r *Repository) Get(ctx context.Context, model string) (Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE model_name = %s", columns, tableName, r.db.Placeholder(1))
	e, err := scanEntry(r.db.QueryRow(ctx, query, model))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get ratio for %s: %w", model, err)
	}
	return e, nil
}

// Delete removes the entry for model or returns ErrNotFound.
func (r *Repository) Delete(ctx context.Context, model string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE model_name = %s", tableName, r.db.Placeholder(1))
	res, err := r.db.Exec(ctx, query, model)
	if err != nil {
		return fmt.Errorf("failed to delete ratio for %s: %w", model, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete ratio for %s: %w", model, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns up to limit entries ordered by model name.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY model_name LIMIT %s OFFSET %s",
		columns, tableName, r.db.Placeholder(1), r.db.Placeholder(2))
	return r.query(ctx, query, limit, offset)
}

// Count returns the number of stored entries.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ratios: %w", err)
	}
	return n, nil
}

// Exposed builds the ratio_config payload from every stored entry.
// Optional ratios appear only for models that set them.
func (r *Repository) Exposed(ctx context.Context) (Config, error) {
	entries, err := r.query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY model_name", columns, tableName))
	if err != nil {
		return nil, err
	}

	cfg := NewConfig()
	for _, e := range entries {
		cfg[TypeModelRatio][e.ModelName] = e.ModelRatio
		cfg[TypeCompletionRatio][e.ModelName] = e.CompletionRatio
		if e.CacheRatio != nil {
			cfg[TypeCacheRatio][e.ModelName] = *e.CacheRatio
		}
		if e.ModelPrice != nil {
			cfg[TypeModelPrice][e.ModelName] = *e.ModelPrice
		}
	}
	return cfg, nil
}

const columns = "model_name, model_ratio, completion_ratio, cache_ratio, model_price, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e         Entry
		cache     sql.NullFloat64
		price     sql.NullFloat64
		updatedAt int64
	)
	if err := s.Scan(&e.ModelName, &e.ModelRatio, &e.CompletionRatio, &cache, &price, &updatedAt); err != nil {
		return Entry{}, err
	}
	if cache.Valid {
		e.CacheRatio = &cache.Float64
	}
	if price.Valid {
		e.ModelPrice = &price.Float64
	}
	e.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return e, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratios: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ratio: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list ratios: %w", err)
	}
	return entries, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
