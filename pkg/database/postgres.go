// Package database connects to the Postgres run ledger and owns its schema.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eknihyzdarma/catalog-migrator/pkg/retry"
)

// defaultLedgerConns covers the one writer of a run plus a concurrent failures query.
const defaultLedgerConns = 2

// DB is the ledger connection pool.
type DB struct {
	*pgxpool.Pool
}

// Config locates the ledger database.
type Config struct {
	URL            string
	MaxConnections int32
	// Retry paces the initial ping; nil uses retry.DefaultConfig.
	Retry *retry.Config
}

// NewConnection opens the ledger pool and waits for the server to answer, so that a ledger
// container still starting up does not fail the run.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = defaultLedgerConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger pool: %w", err)
	}

	_, err = retry.DoWithResult(ctx, cfg.Retry, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger did not answer: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.Pool.Close()
}
