// Package pool wraps *sql.DB with the connection settings and health
// tracking shared by every adapter.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/satishbabariya/ormcore/internal/debug"
)

// Config holds connection pool configuration.
type Config struct {
	// MaxOpenConns is the maximum number of open connections (0 = unlimited).
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum lifetime of a connection (0 = forever).
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle time of a connection (0 = forever).
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds the initial ping. Zero skips the ping.
	ConnectTimeout time.Duration
	// HealthCheckInterval is how often to ping in the background (0 = never).
	HealthCheckInterval time.Duration
	// ConnectBackoff retries the initial ping. Each attempt gets its own
	// ConnectTimeout.
	ConnectBackoff Backoff
}

// DefaultConfig returns sensible default pool configuration.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		ConnectBackoff:  DefaultBackoff(),
	}
}

// WithLimits overrides the connection count and idle time when they are set.
func (c Config) WithLimits(maxConns int, maxIdle time.Duration) Config {
	if maxConns > 0 {
		c.MaxOpenConns = maxConns
		if c.MaxIdleConns > maxConns {
			c.MaxIdleConns = maxConns
		}
	}
	if maxIdle > 0 {
		c.ConnMaxIdleTime = maxIdle
	}
	return c
}

// Stats is a snapshot of pool usage.
type Stats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	FailedHealthChecks int64
	LastHealthCheck    time.Time
}

// Pool manages one *sql.DB.
type Pool struct {
	db     *sql.DB
	driver string
	config Config

	mu              sync.RWMutex
	failedChecks    int64
	lastHealthCheck time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Open opens a pool for the driver and pings it when a connect timeout is set.
func Open(ctx context.Context, driverName, dataSourceName string, config Config) (*Pool, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	p := &Pool{db: db, driver: driverName, config: config}

	if config.ConnectTimeout > 0 {
		err := config.ConnectBackoff.Retry(ctx, func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
			defer cancel()
			return p.HealthCheck(pingCtx)
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to %s database: %w", driverName, err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	if config.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthCheckLoop(loopCtx)
	}

	debug.Debug("Pool opened", "driver", driverName, "max_open", config.MaxOpenConns)
	return p, nil
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Driver returns the registered database/sql driver name.
func (p *Pool) Driver() string {
	return p.driver
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.db.Stats()
	return Stats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		FailedHealthChecks: p.failedChecks,
		LastHealthCheck:    p.lastHealthCheck,
	}
}

// HealthCheck pings the database and records the outcome.
func (p *Pool) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)

	p.mu.Lock()
	p.lastHealthCheck = time.Now()
	if err != nil {
		p.failedChecks++
	}
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (p *Pool) healthCheckLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := p.HealthCheck(checkCtx); err != nil {
				debug.Warn("Pool health check failed", "driver", p.driver, "error", err)
			}
			cancel()
		}
	}
}

// Close stops background checks and closes the database. It is idempotent.
func (p *Pool) Close() error {
	var err error
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		err = p.db.Close()
	})
	return err
}

// Exec executes a statement without returning rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Begin starts a transaction.
func (p *Pool) Begin(ctx context.Context) (*sql.Tx, error) {
	return p.db.BeginTx(ctx, nil)
}
