// Package mysql implements MySQL database adapter.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// MySQLAdapter implements the database.Adapter interface for MySQL. MySQL
// has no array parameters, so only inline batch loading is available.
type MySQLAdapter struct {
	database.PoolAdapter
	dsn string
}

// NewMySQLAdapter creates a new MySQL adapter. Both driver DSNs and
// mysql:// URLs are accepted.
func NewMySQLAdapter(config database.Config) (*MySQLAdapter, error) {
	dsn, err := FormatDSN(config.URL)
	if err != nil {
		return nil, err
	}
	return &MySQLAdapter{PoolAdapter: database.PoolAdapter{Config: config}, dsn: dsn}, nil
}

// FormatDSN normalizes a connection string into a driver DSN with
// parseTime enabled.
func FormatDSN(url string) (string, error) {
	dsn := strings.TrimPrefix(url, "mysql://")
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: invalid DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Connect establishes a connection to the MySQL database.
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	return a.Open(ctx, "mysql", a.dsn, a.Config.PoolConfig())
}

// GetDialect returns the SQL dialect.
func (a *MySQLAdapter) GetDialect() database.SQLDialect {
	return database.MySQL
}

// Features reports question placeholders and no array predicate.
func (a *MySQLAdapter) Features() database.Features {
	return database.FeaturesFor(database.MySQL)
}

// RegisterTypes registers nothing: the driver cannot bind arrays.
func (a *MySQLAdapter) RegisterTypes(reg *metadata.TypeRegistry) {}

var _ database.Adapter = (*MySQLAdapter)(nil)
