// Package pgstore serves historical bars from PostgreSQL tables laid out
// one table per market and granularity.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Rows is the subset of pgx.Rows the fetcher reads.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// Querier runs a read query.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Pool adapts a pgxpool.Pool to Querier.
type Pool struct {
	pool *pgxpool.Pool
}

// Config holds the connection settings.
type Config struct {
	DSN      string
	MaxConns int32
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Query implements Querier.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	p.pool.Close()
}
