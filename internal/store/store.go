package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the slice of pgxpool.Pool the repositories use. Tests
// substitute a pgxmock pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
