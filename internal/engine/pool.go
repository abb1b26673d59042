package engine

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbPool is the minimal surface engine needs from a database handle: plain
// *pgxpool.Pool satisfies it in production, and a scripted
// github.com/pashagolub/pgxmock/v4 pool satisfies it in unit tests (see
// executor_test.go, introspector_test.go, provisioner_test.go) without
// spinning up a real Postgres.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
