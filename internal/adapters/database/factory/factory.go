// Package factory builds database adapters from a provider name.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/mysql"
	"github.com/satishbabariya/ormcore/internal/adapters/database/pgx"
	"github.com/satishbabariya/ormcore/internal/adapters/database/postgres"
	"github.com/satishbabariya/ormcore/internal/adapters/database/sqlite"
)

type constructor func(database.Config) (database.Adapter, error)

var providers = map[string]constructor{
	"postgresql": func(c database.Config) (database.Adapter, error) { return postgres.NewPostgresAdapter(c) },
	"postgres":   func(c database.Config) (database.Adapter, error) { return postgres.NewPostgresAdapter(c) },
	"pgx":        func(c database.Config) (database.Adapter, error) { return pgx.NewPgxAdapter(c) },
	"mysql":      func(c database.Config) (database.Adapter, error) { return mysql.NewMySQLAdapter(c) },
	"sqlite":     func(c database.Config) (database.Adapter, error) { return sqlite.NewSQLiteAdapter(c) },
	"sqlite3":    func(c database.Config) (database.Adapter, error) { return sqlite.NewSQLiteAdapter(c) },
}

// NewAdapter creates an unconnected adapter for config.Provider.
func NewAdapter(config database.Config) (database.Adapter, error) {
	ctor, ok := providers[strings.ToLower(config.Provider)]
	if !ok {
		return nil, fmt.Errorf("unsupported database provider: %q (supported: %s)",
			config.Provider, strings.Join(Providers(), ", "))
	}
	return ctor(config)
}

// Providers lists the accepted provider names.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dialect returns the SQL dialect of a provider without creating an adapter.
func Dialect(provider string) (database.SQLDialect, error) {
	switch strings.ToLower(provider) {
	case "postgresql", "postgres", "pgx":
		return database.PostgreSQL, nil
	case "mysql":
		return database.MySQL, nil
	case "sqlite", "sqlite3":
		return database.SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database provider: %q (supported: %s)",
			provider, strings.Join(Providers(), ", "))
	}
}
