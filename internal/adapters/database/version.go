package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// minArrayVersion is the oldest server release whose array predicate works.
var minArrayVersion = map[SQLDialect]string{
	PostgreSQL: "9.4",
	SQLite:     "3.9.0", // json_each
}

// ServerVersion queries the database server version.
func ServerVersion(ctx context.Context, a Adapter) (string, error) {
	var query string
	switch a.GetDialect() {
	case PostgreSQL:
		query = "SHOW server_version"
	case MySQL:
		query = "SELECT VERSION()"
	case SQLite:
		query = "SELECT sqlite_version()"
	default:
		return "", fmt.Errorf("unknown dialect %q", a.GetDialect())
	}

	row := a.QueryRow(ctx, query)
	if row == nil {
		return "", ErrNotConnected
	}
	var v string
	if err := row.Scan(&v); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return v, nil
}

// CheckArraySupport reports whether a server of the given version can run
// the dialect's array predicate. Version strings like "16.1 (Debian 16.1-1)"
// are accepted.
func CheckArraySupport(dialect SQLDialect, serverVersion string) error {
	minimum, ok := minArrayVersion[dialect]
	if !ok {
		return fmt.Errorf("%s has no array parameter support", dialect)
	}

	fields := strings.Fields(serverVersion)
	if len(fields) == 0 {
		return fmt.Errorf("empty server version")
	}
	current, err := version.NewVersion(fields[0])
	if err != nil {
		return fmt.Errorf("invalid server version %q: %w", serverVersion, err)
	}
	required := version.Must(version.NewVersion(minimum))
	if current.LessThan(required) {
		return fmt.Errorf("%s %s is older than %s, the minimum for array parameters", dialect, current, required)
	}
	return nil
}
