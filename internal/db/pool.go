// Package db wires up the pgxpool.Pool every other package consumes.
// The retrieved teacher snapshot references this package from
// cmd/server/main.go but the package itself was not part of the
// retrieval, so this file's constructor follows pgx's own documented
// pool-construction shape rather than a specific teacher file.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a connection pool against databaseURL and verifies it
// with a Ping before returning, so a bad DSN fails at startup instead of
// on the first request.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}
