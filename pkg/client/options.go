package client

import (
	"time"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/session"
)

// Config contains all client configuration options.
type Config struct {
	// DefaultBatchSize applies to entities that declare no batch size.
	// Default: 16
	DefaultBatchSize int

	// MaxBatchSize caps every entity's batch size.
	// Default: 256
	MaxBatchSize int

	// Strategy is auto, inline or array.
	// Default: auto
	Strategy string

	// MaxConnections is the maximum number of open connections (Open only).
	// Default: 25
	MaxConnections int

	// MaxIdleTime is the maximum idle time of a connection (Open only).
	// Default: 10 minutes
	MaxIdleTime time.Duration

	// ConnectTimeout bounds the initial ping (Open only).
	// Default: 10 seconds
	ConnectTimeout time.Duration

	// ConnectRetries is how many times a failed initial ping is retried
	// with exponential backoff (Open only).
	// Default: 0
	ConnectRetries int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultBatchSize: 16,
		MaxBatchSize:     256,
		Strategy:         "auto",
		MaxConnections:   25,
		MaxIdleTime:      10 * time.Minute,
		ConnectTimeout:   10 * time.Second,
	}
}

// Option is a function that configures the client.
type Option func(*Config)

// WithDefaultBatchSize sets the batch size of entities that declare none.
func WithDefaultBatchSize(n int) Option {
	return func(c *Config) {
		c.DefaultBatchSize = n
	}
}

// WithMaxBatchSize caps the batch size of every entity.
func WithMaxBatchSize(n int) Option {
	return func(c *Config) {
		c.MaxBatchSize = n
	}
}

// WithStrategy sets the binding strategy: auto, inline or array.
func WithStrategy(s string) Option {
	return func(c *Config) {
		c.Strategy = s
	}
}

// WithMaxConnections sets the maximum number of open connections.
func WithMaxConnections(n int) Option {
	return func(c *Config) {
		c.MaxConnections = n
	}
}

// WithMaxIdleTime sets the maximum idle time of a connection.
func WithMaxIdleTime(d time.Duration) Option {
	return func(c *Config) {
		c.MaxIdleTime = d
	}
}

// WithConnectTimeout sets the connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// WithConnectRetries sets how often a failed initial ping is retried.
func WithConnectRetries(n int) Option {
	return func(c *Config) {
		c.ConnectRetries = n
	}
}

// ApplyOptions applies options to a config.
func ApplyOptions(config *Config, opts ...Option) {
	for _, opt := range opts {
		opt(config)
	}
}

func (c *Config) databaseConfig(provider, url string) database.Config {
	return database.Config{
		Provider:       provider,
		URL:            url,
		MaxConnections: c.MaxConnections,
		MaxIdleTime:    c.MaxIdleTime,
		ConnectTimeout: c.ConnectTimeout,
		ConnectRetries: c.ConnectRetries,
	}
}

// LockMode is the lock requested for loaded entities. It is recorded on the
// entity entries; no locking SQL is issued.
type LockMode = session.LockMode

// Lock modes, weakest first.
const (
	LockNone             = session.LockNone
	LockRead             = session.LockRead
	LockPessimisticRead  = session.LockPessimisticRead
	LockPessimisticWrite = session.LockPessimisticWrite
)

// SessionOption configures a session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	readOnly bool
	querier  database.Querier
}

// WithDefaultReadOnly marks entities loaded by the session read-only unless
// a load says otherwise.
func WithDefaultReadOnly(readOnly bool) SessionOption {
	return func(c *sessionConfig) {
		c.readOnly = readOnly
	}
}

// WithQuerier runs the session's statements on q, typically a transaction
// begun on the client's adapter.
func WithQuerier(q database.Querier) SessionOption {
	return func(c *sessionConfig) {
		c.querier = q
	}
}

// LoadOption configures one Find or Get.
type LoadOption func(*domain.LoadOptions)

// WithLockMode requests a lock mode for the loaded entities.
func WithLockMode(mode LockMode) LoadOption {
	return func(o *domain.LoadOptions) {
		o.LockMode = mode
	}
}

// WithReadOnly overrides the session's read-only default.
func WithReadOnly(readOnly bool) LoadOption {
	return func(o *domain.LoadOptions) {
		o.ReadOnly = &readOnly
	}
}

func loadOptions(opts []LoadOption) domain.LoadOptions {
	var o domain.LoadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
