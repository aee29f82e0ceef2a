// Package database defines database adapter interfaces.
package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// Querier runs a statement that returns rows. Adapters and transactions
// both satisfy it, so a session can load through either.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Adapter defines the database adapter interface.
type Adapter interface {
	Querier

	// Connect establishes a database connection.
	Connect(ctx context.Context) error

	// Disconnect closes the database connection.
	Disconnect(ctx context.Context) error

	// Execute executes a SQL statement.
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// QueryRow executes a query that returns a single row.
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row

	// Begin starts a transaction.
	Begin(ctx context.Context) (Transaction, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetDialect returns the SQL dialect.
	GetDialect() SQLDialect

	// Features describes what the driver supports for batch loading.
	Features() Features

	// RegisterTypes registers the array types the driver can bind.
	RegisterTypes(reg *metadata.TypeRegistry)
}

// Transaction defines the transaction interface.
type Transaction interface {
	Querier

	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction.
	Rollback() error

	// Execute executes a statement within the transaction.
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLDialect represents a SQL dialect.
type SQLDialect string

const (
	// PostgreSQL dialect.
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect.
	MySQL SQLDialect = "mysql"
	// SQLite dialect.
	SQLite SQLDialect = "sqlite"
)

// Features describes the driver capabilities the statement builder needs.
type Features struct {
	// Placeholder renders squirrel's "?" placeholders in the driver's style.
	Placeholder sq.PlaceholderFormat
	// ArrayPredicate is a fmt pattern taking the qualified identifier column
	// and containing exactly one "?" for the array parameter. Empty when the
	// driver cannot bind arrays.
	ArrayPredicate string
	// MaxBindParameters caps the number of placeholders in one statement.
	MaxBindParameters int
}

// SupportsArrayParameters reports whether the array strategy is available.
func (f Features) SupportsArrayParameters() bool {
	return f.ArrayPredicate != ""
}

// FeaturesFor returns the batch-loading features of a dialect.
func FeaturesFor(dialect SQLDialect) Features {
	switch dialect {
	case PostgreSQL:
		return Features{
			Placeholder:       sq.Dollar,
			ArrayPredicate:    "%s = ANY(?)",
			MaxBindParameters: 65535,
		}
	case SQLite:
		return Features{
			Placeholder:       sq.Question,
			ArrayPredicate:    "%s IN (SELECT value FROM json_each(?))",
			MaxBindParameters: 32766,
		}
	default:
		return Features{
			Placeholder:       sq.Question,
			MaxBindParameters: 65535,
		}
	}
}

// Config holds database connection configuration.
type Config struct {
	Provider       string
	URL            string
	MaxConnections int
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
	ConnectRetries int
}
