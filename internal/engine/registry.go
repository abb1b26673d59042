package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// registry is a cache of per-(user,db) single-connection pools, created
// lazily, with statement_timeout applied on first use. The cache key is
// "{user}@{db}" on both insert and lookup, so the low-privilege and root
// pools against the same database coexist under distinct keys.
//
// The registry's own lock is held across the hash lookup and pool
// construction, including the SET statement_timeout on a new pool; it is
// released before the pool is returned, so callers' queries never run
// under it.
type registry struct {
	mu               sync.Mutex
	pools            map[string]*pgxpool.Pool
	dbHost           string
	statementTimeout time.Duration
}

func newRegistry(dbHost string, statementTimeout time.Duration) *registry {
	return &registry{
		pools:            make(map[string]*pgxpool.Pool),
		dbHost:           dbHost,
		statementTimeout: statementTimeout,
	}
}

func poolKey(user, db string) string {
	return fmt.Sprintf("%s@%s", user, db)
}

// getPool returns the cached pool for (user, db), creating it on first use.
func (r *registry) getPool(ctx context.Context, db, user, password string) (*pgxpool.Pool, error) {
	key := poolKey(user, db)

	r.mu.Lock()
	if pool, ok := r.pools[key]; ok {
		r.mu.Unlock()
		return pool, nil
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s/%s", user, password, r.dbHost, db)
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolConfig.MaxConns = 1
	// Environment scripts are arbitrary multi-statement DDL/DML batches;
	// the extended protocol can't prepare more than one statement at a
	// time, so every connection in the registry speaks the simple
	// protocol.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("create pool for %s: %w", key, err)
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("SET statement_timeout TO %d", r.statementTimeout.Milliseconds())); err != nil {
		pool.Close()
		r.mu.Unlock()
		return nil, fmt.Errorf("apply statement_timeout for %s: %w", key, err)
	}

	r.pools[key] = pool
	r.mu.Unlock()

	zap.S().Debugw("opened connection pool", "key", key)
	return pool, nil
}

// closeAll closes every pool in the registry. Intended for test teardown
// and process shutdown; the core otherwise never evicts.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pool := range r.pools {
		pool.Close()
	}
	r.pools = make(map[string]*pgxpool.Pool)
}
