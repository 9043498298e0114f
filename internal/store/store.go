// Package store provides a pgxpool-based connection pool plus typed CRUD,
// upsert, freshness, and audit-log methods for every entity kind the
// crawler persists.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simcrawl/racecrawl/internal/config"
)

// EpochSentinel is the reserved "discovered, not yet fetched" last-scraped
// value. Rows written during parent-discovery carry this timestamp until
// their own page is successfully fetched.
var EpochSentinel = time.Unix(0, 0).UTC()

//go:embed schema.sql
var schemaSQL string

// Store wraps pgxpool.Pool with the crawler's persistence contract.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool, applies the schema, and verifies
// connectivity.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.applySchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an already-constructed pool, used by tests against a
// disposable database.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	var n int
	return s.pool.QueryRow(ctx, "SELECT 1").Scan(&n)
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the raw pool for ad hoc queries outside the typed Store
// contract.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// --------------------------------------------------------------------------
// Error taxonomy
// --------------------------------------------------------------------------

// ValidationError is raised for a missing/empty required field or an
// unknown enum value.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Detail)
}

// IntegrityError is raised when a referenced parent row does not exist, or
// a uniqueness constraint is violated outside the expected upsert path.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error: %s", e.Detail)
}

// isNotFoundRow reports whether an error from QueryRow.Scan means "no rows",
// which callers treat as a (nil, nil) result rather than an error.
func isNotFoundRow(err error) bool {
	return err == pgx.ErrNoRows
}
