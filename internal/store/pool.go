// Package store implements the Event Ledger, Sync Cursor Store, and the
// read-only collaborator adapters on top of a pooled Postgres connection,
// per spec.md §4.2, §4.3 and §4.8.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"synnergy-network/pkg/utils"
)

// Pool wraps a pgxpool.Pool so repository types share one connection pool,
// the same pattern the teacher uses for its in-process ledger handle.
type Pool struct {
	*pgxpool.Pool
}

// Open connects to Postgres using the given DSN.
func Open(ctx context.Context, databaseURL string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, utils.Wrap(err, "parse database url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, utils.Wrap(err, "open database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, utils.Wrap(err, "ping database")
	}
	return &Pool{pool}, nil
}
