// Package sqlite implements SQLite database adapter.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// SQLiteAdapter implements the database.Adapter interface for SQLite.
// Array parameters are bound as one JSON document and expanded with
// json_each.
type SQLiteAdapter struct {
	database.PoolAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter.
func NewSQLiteAdapter(config database.Config) (*SQLiteAdapter, error) {
	return &SQLiteAdapter{PoolAdapter: database.PoolAdapter{Config: config}}, nil
}

// Connect establishes a connection to the SQLite database.
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	cfg := a.Config.PoolConfig()
	// One connection keeps writes serialized and an in-memory database alive.
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = 0
	cfg.ConnMaxIdleTime = 0

	if err := a.Open(ctx, "sqlite3", Path(a.Config.URL), cfg); err != nil {
		return err
	}

	if _, err := a.Execute(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = a.Disconnect(ctx)
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}

// Path strips the sqlite:// or file: scheme used in config URLs.
func Path(url string) string {
	for _, prefix := range []string{"sqlite://", "sqlite3://"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	if url == "" {
		return ":memory:"
	}
	return url
}

// GetDialect returns the SQL dialect.
func (a *SQLiteAdapter) GetDialect() database.SQLDialect {
	return database.SQLite
}

// Features reports question placeholders and json_each array binding.
func (a *SQLiteAdapter) Features() database.Features {
	return database.FeaturesFor(database.SQLite)
}

// RegisterTypes registers JSON array binders for the identifier types.
func (a *SQLiteAdapter) RegisterTypes(reg *metadata.TypeRegistry) {
	RegisterArrayTypes(reg)
}

// RegisterArrayTypes registers the identifier array types json_each can expand.
func RegisterArrayTypes(reg *metadata.TypeRegistry) {
	for _, t := range []struct {
		name   string
		goType reflect.Type
	}{
		{"json<integer>", reflect.TypeOf([]int64(nil))},
		{"json<integer>", reflect.TypeOf([]int32(nil))},
		{"json<integer>", reflect.TypeOf([]int(nil))},
		{"json<text>", reflect.TypeOf([]string(nil))},
		{"json<uuid>", reflect.TypeOf([]uuid.UUID(nil))},
	} {
		reg.RegisterArray(metadata.ArrayType{Name: t.name, GoType: t.goType, Bind: bindJSON})
	}
}

func bindJSON(slice any) (any, error) {
	b, err := json.Marshal(slice)
	if err != nil {
		return nil, fmt.Errorf("encode array parameter: %w", err)
	}
	return string(b), nil
}

var _ database.Adapter = (*SQLiteAdapter)(nil)
