package engine

import (
	"context"

	"github.com/lychee-technology/sqlsandbox"
	"go.uber.org/zap"
)

// Executor runs a query against a cached pool, truncates at
// max_rows_in_result_set (a hard truncation, never an error), decodes rows
// via decodeRow, and optionally attaches introspection.
type Executor struct {
	provisioner  *Provisioner
	introspector *Introspector
	hashKey      [32]byte
	maxRows      int
}

// NewExecutor builds an Executor around a Provisioner and Introspector.
func NewExecutor(provisioner *Provisioner, introspector *Introspector, hashKey [32]byte, maxRows int) *Executor {
	return &Executor{
		provisioner:  provisioner,
		introspector: introspector,
		hashKey:      hashKey,
		maxRows:      maxRows,
	}
}

// Execute runs query against environment, provisioning the environment
// first if needed, and optionally attaches database introspection. It
// never logs db_password; only db_name is attached to log fields.
func (e *Executor) Execute(ctx context.Context, environment, query string, includeDBInfo bool) (sandbox.ResultSet, *sandbox.DatabaseInfo, error) {
	identity := sandbox.DeriveIdentity(environment, e.hashKey)

	pool, err := e.provisioner.EnsureReady(ctx, environment, identity)
	if err != nil {
		return sandbox.ResultSet{}, nil, err
	}

	zap.S().Debugw("executing query", "db_name", identity.DBName)
	resultSet, err := e.runQuery(ctx, pool, query)
	if err != nil {
		return sandbox.ResultSet{}, nil, err
	}

	if !includeDBInfo {
		return resultSet, nil, nil
	}

	info, err := e.introspector.Introspect(ctx, pool)
	if err != nil {
		return sandbox.ResultSet{}, nil, sandbox.NewOtherError(err)
	}
	return resultSet, &info, nil
}

func (e *Executor) runQuery(ctx context.Context, pool dbPool, query string) (sandbox.ResultSet, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return sandbox.ResultSet{}, sandbox.NewExecuteError(err)
	}
	defer rows.Close()

	result := sandbox.ResultSet{Columns: []string{}, Rows: [][]sandbox.SqlValue{}}
	initialized := false

	for len(result.Rows) < e.maxRows && rows.Next() {
		fields := rows.FieldDescriptions()
		if !initialized {
			result.Columns = make([]string, len(fields))
			for i, f := range fields {
				result.Columns[i] = string(f.Name)
			}
			initialized = true
		}

		values, err := rows.Values()
		if err != nil {
			return sandbox.ResultSet{}, sandbox.NewExecuteError(err)
		}

		decoded, err := decodeRow(fields, values)
		if err != nil {
			return sandbox.ResultSet{}, err
		}
		result.Rows = append(result.Rows, decoded)
	}
	if err := rows.Err(); err != nil {
		return sandbox.ResultSet{}, sandbox.NewExecuteError(err)
	}

	return result, nil
}
