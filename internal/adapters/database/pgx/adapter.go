// Package pgx implements a PostgreSQL adapter on the pgx driver. Unlike
// lib/pq, pgx encodes Go slices as arrays natively.
package pgx

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/postgres"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// PgxAdapter implements the database.Adapter interface for PostgreSQL using
// pgx through database/sql.
type PgxAdapter struct {
	database.PoolAdapter
}

// NewPgxAdapter creates a new pgx adapter. The URL is validated eagerly.
func NewPgxAdapter(config database.Config) (*PgxAdapter, error) {
	if _, err := pgx.ParseConfig(config.URL); err != nil {
		return nil, fmt.Errorf("pgx: invalid connection URL: %w", err)
	}
	return &PgxAdapter{PoolAdapter: database.PoolAdapter{Config: config}}, nil
}

// Connect establishes a connection through the pgx stdlib driver.
func (a *PgxAdapter) Connect(ctx context.Context) error {
	connConfig, err := pgx.ParseConfig(a.Config.URL)
	if err != nil {
		return fmt.Errorf("pgx: invalid connection URL: %w", err)
	}
	dsn := stdlib.RegisterConnConfig(connConfig)
	if err := a.Open(ctx, "pgx", dsn, a.Config.PoolConfig()); err != nil {
		stdlib.UnregisterConnConfig(dsn)
		return err
	}
	return nil
}

// GetDialect returns the SQL dialect.
func (a *PgxAdapter) GetDialect() database.SQLDialect {
	return database.PostgreSQL
}

// Features reports dollar placeholders and "= ANY(?)" array binding.
func (a *PgxAdapter) Features() database.Features {
	return database.FeaturesFor(database.PostgreSQL)
}

// RegisterTypes registers slices pgx encodes without wrapping.
func (a *PgxAdapter) RegisterTypes(reg *metadata.TypeRegistry) {
	RegisterArrayTypes(reg)
}

// RegisterArrayTypes registers the identifier array types pgx can bind.
func RegisterArrayTypes(reg *metadata.TypeRegistry) {
	reg.RegisterArray(metadata.ArrayType{Name: "bigint[]", GoType: reflect.TypeOf([]int64(nil))})
	reg.RegisterArray(metadata.ArrayType{Name: "integer[]", GoType: reflect.TypeOf([]int32(nil))})
	reg.RegisterArray(metadata.ArrayType{Name: "bigint[]", GoType: reflect.TypeOf([]int(nil))})
	reg.RegisterArray(metadata.ArrayType{Name: "text[]", GoType: reflect.TypeOf([]string(nil))})
	reg.RegisterArray(metadata.ArrayType{
		Name:   "uuid[]",
		GoType: reflect.TypeOf([]uuid.UUID(nil)),
		Bind: func(s any) (any, error) {
			return postgres.UUIDStrings(s.([]uuid.UUID)), nil
		},
	})
}

var _ database.Adapter = (*PgxAdapter)(nil)
