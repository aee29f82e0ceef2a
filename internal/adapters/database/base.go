package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/satishbabariya/ormcore/internal/core/database/pool"
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database not connected")

// PoolAdapter implements the connection-level parts of Adapter on top of a
// pool. Driver adapters embed it and add dialect specifics.
type PoolAdapter struct {
	Pool   *pool.Pool
	Config Config
}

// PoolConfig converts the adapter config into pool settings.
func (c Config) PoolConfig() pool.Config {
	cfg := pool.DefaultConfig().WithLimits(c.MaxConnections, c.MaxIdleTime)
	if c.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.ConnectTimeout
	}
	if c.ConnectRetries > 0 {
		cfg.ConnectBackoff.Attempts = 1 + c.ConnectRetries
	}
	return cfg
}

// Open opens the pool for driverName using the adapter config.
func (a *PoolAdapter) Open(ctx context.Context, driverName, dsn string, cfg pool.Config) error {
	p, err := pool.Open(ctx, driverName, dsn, cfg)
	if err != nil {
		return err
	}
	a.Pool = p
	return nil
}

// DB returns the underlying *sql.DB, or nil before Connect.
func (a *PoolAdapter) DB() *sql.DB {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.DB()
}

// Disconnect closes the database connection.
func (a *PoolAdapter) Disconnect(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.Close()
}

// Execute executes a query without returning rows.
func (a *PoolAdapter) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if a.Pool == nil {
		return nil, ErrNotConnected
	}
	return a.Pool.Exec(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *PoolAdapter) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if a.Pool == nil {
		return nil, ErrNotConnected
	}
	return a.Pool.Query(ctx, query, args...)
}

// QueryRow executes a query that returns a single row.
func (a *PoolAdapter) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.QueryRow(ctx, query, args...)
}

// Begin starts a new transaction.
func (a *PoolAdapter) Begin(ctx context.Context) (Transaction, error) {
	if a.Pool == nil {
		return nil, ErrNotConnected
	}
	tx, err := a.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &SQLTransaction{tx: tx}, nil
}

// Ping checks if the database connection is alive.
func (a *PoolAdapter) Ping(ctx context.Context) error {
	if a.Pool == nil {
		return ErrNotConnected
	}
	return a.Pool.HealthCheck(ctx)
}

// SQLTransaction implements Transaction over *sql.Tx.
type SQLTransaction struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *SQLTransaction) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *SQLTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Execute executes a query within the transaction.
func (t *SQLTransaction) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query executes a query within the transaction.
func (t *SQLTransaction) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

var _ Transaction = (*SQLTransaction)(nil)
