package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/sqlsandbox"
	"go.uber.org/zap"
)

// Provisioner idempotently creates a per-environment database, role, and
// readonly grants, serialized by a process-wide mutex. Identifiers
// interpolated into DDL come from sandbox.DeriveIdentity and are trusted to
// be [0-9a-f].
type Provisioner struct {
	root     dbPool
	registry *registry
	rootUser string
	rootPass string
	breakers *initBreakers
	createMu sync.Mutex
}

// NewProvisioner builds a Provisioner backed by a privileged root pool and
// the connection registry that hands out per-(user,db) pools.
func NewProvisioner(root dbPool, reg *registry, rootUser, rootPass string) *Provisioner {
	return &Provisioner{
		root:     root,
		registry: reg,
		rootUser: rootUser,
		rootPass: rootPass,
		// After 3 Init failures within a minute for the same identity,
		// EnsureReady returns an Init error for 30s without touching
		// Postgres. Initialization only runs on the request that creates
		// the database; a later request that finds the database present
		// gets its pool without re-running the script.
		breakers: newInitBreakers(3, time.Minute, 30*time.Second),
	}
}

// EnsureReady returns a ready-to-query pool for environment, provisioning it
// on first use: a fast-path existence check, a double-checked-locking
// create-db mutex, a three-statement create, environment init, and a
// readonly lockdown.
func (p *Provisioner) EnsureReady(ctx context.Context, environment string, identity sandbox.EnvironmentIdentity) (dbPool, error) {
	breaker := p.breakers.forIdentity(identity.DBName)
	if breaker.isOpen() {
		return nil, sandbox.NewInitError(fmt.Errorf("database %s failed initialization recently; cooling down", identity.DBName))
	}

	exists, err := p.dbExists(ctx, identity.DBName)
	if err != nil {
		return nil, sandbox.NewOtherError(err)
	}
	if exists {
		return p.registry.getPool(ctx, identity.DBName, identity.DBName, identity.DBPassword)
	}

	p.createMu.Lock()
	defer p.createMu.Unlock()

	exists, err = p.dbExists(ctx, identity.DBName)
	if err != nil {
		return nil, sandbox.NewOtherError(err)
	}
	if exists {
		return p.registry.getPool(ctx, identity.DBName, identity.DBName, identity.DBPassword)
	}

	zap.S().Debugw("creating database", "db_name", identity.DBName)
	if err := p.createDatabaseAndUser(ctx, identity.DBName, identity.DBPassword); err != nil {
		return nil, sandbox.NewOtherError(err)
	}

	pool, err := p.registry.getPool(ctx, identity.DBName, identity.DBName, identity.DBPassword)
	if err != nil {
		return nil, sandbox.NewOtherError(err)
	}

	zap.S().Debugw("initializing database", "db_name", identity.DBName)
	if err := p.initEnvironment(ctx, pool, environment); err != nil {
		breaker.recordFailure()
		return nil, sandbox.NewInitError(err)
	}

	zap.S().Debugw("updating permissions for database", "db_name", identity.DBName)
	rootPool, err := p.registry.getPool(ctx, identity.DBName, p.rootUser, p.rootPass)
	if err != nil {
		return nil, sandbox.NewOtherError(err)
	}
	if err := p.lockdownReadonly(ctx, rootPool, identity.DBName); err != nil {
		return nil, sandbox.NewOtherError(err)
	}

	breaker.recordSuccess()
	return pool, nil
}

func (p *Provisioner) dbExists(ctx context.Context, dbName string) (bool, error) {
	var exists int
	err := p.root.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", dbName).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// createDatabaseAndUser runs the create sequence as three separate
// statements (CREATE DATABASE cannot run in the same implicit transaction
// as subsequent statements).
func (p *Provisioner) createDatabaseAndUser(ctx context.Context, name, password string) error {
	if _, err := p.root.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s";`, name)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	if _, err := p.root.Exec(ctx, fmt.Sprintf(`CREATE USER "%s" WITH ENCRYPTED PASSWORD '%s';`, name, password)); err != nil {
		return fmt.Errorf("create user %s: %w", name, err)
	}
	if _, err := p.root.Exec(ctx, fmt.Sprintf(`ALTER DATABASE "%s" OWNER TO "%s";`, name, name)); err != nil {
		return fmt.Errorf("alter database owner %s: %w", name, err)
	}
	return nil
}

// initEnvironment runs the environment script as a multi-statement batch
// against the newly created low-privilege pool. Any failure surfaces as
// ErrorKindInit; partial state from earlier statements in the script is not
// rolled back.
func (p *Provisioner) initEnvironment(ctx context.Context, pool dbPool, environment string) error {
	_, err := pool.Exec(ctx, environment)
	return err
}

// lockdownReadonly runs, as root, inside the per-environment database:
// reassign ownership away from the per-environment role before granting it
// read-only access, so it can no longer alter the objects it just created.
func (p *Provisioner) lockdownReadonly(ctx context.Context, rootPool dbPool, name string) error {
	statements := []string{
		fmt.Sprintf(`REASSIGN OWNED BY "%s" TO "%s";`, name, p.rootUser),
		fmt.Sprintf(`ALTER DATABASE "%s" OWNER TO "%s";`, name, p.rootUser),
		fmt.Sprintf(`GRANT CONNECT ON DATABASE "%s" TO "%s";`, name, name),
		`GRANT USAGE ON SCHEMA public TO "` + name + `";`,
		`GRANT SELECT ON ALL TABLES IN SCHEMA public TO "` + name + `";`,
	}
	for _, stmt := range statements {
		if _, err := rootPool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("readonly lockdown for %s: %w", name, err)
		}
	}
	return nil
}
