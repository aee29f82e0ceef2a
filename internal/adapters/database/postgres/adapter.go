// Package postgres implements PostgreSQL database adapter.
package postgres

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// PostgresAdapter implements the database.Adapter interface for PostgreSQL
// using lib/pq.
type PostgresAdapter struct {
	database.PoolAdapter
}

// NewPostgresAdapter creates a new PostgreSQL adapter.
func NewPostgresAdapter(config database.Config) (*PostgresAdapter, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("postgres: empty connection URL")
	}
	return &PostgresAdapter{PoolAdapter: database.PoolAdapter{Config: config}}, nil
}

// Connect establishes a connection to the PostgreSQL database.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	return a.Open(ctx, "postgres", a.Config.URL, a.Config.PoolConfig())
}

// GetDialect returns the SQL dialect.
func (a *PostgresAdapter) GetDialect() database.SQLDialect {
	return database.PostgreSQL
}

// Features reports dollar placeholders and "= ANY(?)" array binding.
func (a *PostgresAdapter) Features() database.Features {
	return database.FeaturesFor(database.PostgreSQL)
}

// RegisterTypes registers the pq array wrappers.
func (a *PostgresAdapter) RegisterTypes(reg *metadata.TypeRegistry) {
	RegisterArrayTypes(reg)
}

// RegisterArrayTypes registers the identifier array types lib/pq can bind.
func RegisterArrayTypes(reg *metadata.TypeRegistry) {
	reg.RegisterArray(metadata.ArrayType{
		Name:   "bigint[]",
		GoType: reflect.TypeOf([]int64(nil)),
		Bind:   func(s any) (any, error) { return pq.Int64Array(s.([]int64)), nil },
	})
	reg.RegisterArray(metadata.ArrayType{
		Name:   "integer[]",
		GoType: reflect.TypeOf([]int32(nil)),
		Bind:   func(s any) (any, error) { return pq.Array(s), nil },
	})
	reg.RegisterArray(metadata.ArrayType{
		Name:   "bigint[]",
		GoType: reflect.TypeOf([]int(nil)),
		Bind: func(s any) (any, error) {
			ints := s.([]int)
			out := make(pq.Int64Array, len(ints))
			for i, v := range ints {
				out[i] = int64(v)
			}
			return out, nil
		},
	})
	reg.RegisterArray(metadata.ArrayType{
		Name:   "text[]",
		GoType: reflect.TypeOf([]string(nil)),
		Bind:   func(s any) (any, error) { return pq.StringArray(s.([]string)), nil },
	})
	reg.RegisterArray(metadata.ArrayType{
		Name:   "uuid[]",
		GoType: reflect.TypeOf([]uuid.UUID(nil)),
		Bind: func(s any) (any, error) {
			return pq.StringArray(UUIDStrings(s.([]uuid.UUID))), nil
		},
	})
}

// UUIDStrings renders uuids in their canonical text form.
func UUIDStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

var _ database.Adapter = (*PostgresAdapter)(nil)
