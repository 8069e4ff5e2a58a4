package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner abstracts "run this function atomically" so services stay agnostic
// of the backing store. The pgx implementation opens a real transaction; the
// no-op implementation backs in-memory repositories, which apply each call
// under their own lock.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type poolTxRunner struct{ pool *pgxpool.Pool }

// NewTxRunner returns a TxRunner backed by the connection pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolTxRunner{pool: pool}
}

func (r *poolTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.pool, fn)
}

// NoopTxRunner runs the function directly, with no transaction.
type NoopTxRunner struct{}

func (NoopTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
