// Package engine implements everything in the SQL sandbox core that talks
// to Postgres: the provisioner, the connection registry, the executor, the
// row decoder, the comparator, and the introspector.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/sqlsandbox"
)

// Engine wires the provisioner, executor, and comparator together behind
// the operations the HTTP adapter calls: Run, Compare, and BatchCompare.
type Engine struct {
	root        *pgxpool.Pool
	registry    *registry
	Provisioner *Provisioner
	Executor    *Executor
	Comparator  *Comparator
}

// New connects the privileged root pool and assembles the engine from a
// sandbox.Config. The caller owns the returned Engine's lifetime; call
// Close on shutdown.
func New(ctx context.Context, cfg sandbox.Config) (*Engine, error) {
	connString := fmt.Sprintf("postgres://%s:%s@%s", cfg.DBUsername, cfg.DBPassword, cfg.DBHost)
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse root connection string: %w", err)
	}

	root, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create root pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := root.Ping(pingCtx); err != nil {
		root.Close()
		return nil, fmt.Errorf("ping root pool: %w", err)
	}

	reg := newRegistry(cfg.DBHost, cfg.StatementTimeout)
	provisioner := NewProvisioner(root, reg, cfg.DBUsername, cfg.DBPassword)
	introspector := NewIntrospector()
	executor := NewExecutor(provisioner, introspector, cfg.PasswordHashKey, cfg.MaxRowsInResultSet)
	comparator := NewComparator(executor)

	return &Engine{
		root:        root,
		registry:    reg,
		Provisioner: provisioner,
		Executor:    executor,
		Comparator:  comparator,
	}, nil
}

// Run executes query against environment and returns its result set,
// without introspection. This is the engine-level counterpart of the `run`
// wire operation.
func (e *Engine) Run(ctx context.Context, environment, query string) (sandbox.ResultSet, error) {
	resultSet, _, err := e.Executor.Execute(ctx, environment, query, false)
	return resultSet, err
}

// Compare is the engine-level counterpart of the `compare` wire operation.
func (e *Engine) Compare(ctx context.Context, environment, solution, submission string, rowNorm sandbox.RowNormalisation, colNorm sandbox.ColumnNormalisation) (sandbox.ResultSet, sandbox.ResultSet, bool, error) {
	return e.Comparator.Compare(ctx, environment, solution, submission, rowNorm, colNorm)
}

// BatchCompare is the engine-level counterpart of the `batch_compare` wire
// operation.
func (e *Engine) BatchCompare(ctx context.Context, environment, submission string, solutions []SolutionSpec) BatchResult {
	return e.Comparator.BatchCompare(ctx, environment, submission, solutions)
}

// Close releases the root pool and every pool held by the connection
// registry. Intended for process shutdown and test teardown.
func (e *Engine) Close() {
	e.registry.closeAll()
	e.root.Close()
}
