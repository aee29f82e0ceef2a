package loader_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/sqlite"
	"github.com/satishbabariya/ormcore/internal/core/loader"
	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/cache"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/session"
	"github.com/stretchr/testify/require"
)

type Customer struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Order struct {
	ID         int64   `db:"id"`
	CustomerID int64   `db:"customer_id" orm:"ref=Customer"`
	Total      float64 `db:"total"`
}

const schema = `
CREATE TABLE customer (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, total REAL);
INSERT INTO customer (id, name) VALUES (10, 'ada'), (11, 'grace');
INSERT INTO orders (id, customer_id, total) VALUES
	(1, 10, 9.5), (2, 10, 20), (4, 11, 7.25), (5, 11, 1), (6, 10, 3);
`

// fixture is an in-memory SQLite database with customers and orders. Order 3
// does not exist.
type fixture struct {
	adapter  *sqlite.SQLiteAdapter
	entities *metadata.Registry
	types    *metadata.TypeRegistry
	order    *metadata.EntityDescriptor
	querier  *recordingQuerier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	adapter, err := sqlite.NewSQLiteAdapter(database.Config{Provider: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { _ = adapter.Disconnect(ctx) })

	_, err = adapter.Execute(ctx, schema)
	require.NoError(t, err)

	entities := metadata.NewRegistry()
	customer, err := metadata.Describe(Customer{})
	require.NoError(t, err)
	order, err := metadata.Describe(Order{}, metadata.WithTable("orders"))
	require.NoError(t, err)
	require.NoError(t, entities.Register(customer))
	require.NoError(t, entities.Register(order))

	types := metadata.NewTypeRegistry()
	adapter.RegisterTypes(types)

	return &fixture{
		adapter:  adapter,
		entities: entities,
		types:    types,
		order:    order,
		querier:  &recordingQuerier{next: adapter},
	}
}

func (f *fixture) config(batchSize int, c *cache.StatementCache) loader.Config {
	return loader.Config{
		Descriptor: f.order,
		Entities:   f.entities,
		Types:      f.types,
		Builder:    builder.New(f.adapter.Features()),
		Cache:      c,
		BatchSize:  batchSize,
	}
}

func (f *fixture) newLoader(t *testing.T, strategy string, batchSize int, c *cache.StatementCache) loader.BatchLoader {
	t.Helper()
	var (
		l   loader.BatchLoader
		err error
	)
	switch strategy {
	case "inline":
		l, err = loader.NewInline(f.config(batchSize, c))
	case "array":
		l, err = loader.NewArray(f.config(batchSize, c))
	default:
		t.Fatalf("unknown strategy %q", strategy)
	}
	require.NoError(t, err)
	return l
}

func orderKey(id int64) session.EntityKey {
	return session.EntityKey{Entity: "Order", ID: id}
}

func customerKey(id int64) session.EntityKey {
	return session.EntityKey{Entity: "Customer", ID: id}
}

// recordingQuerier records statements and can be told to fail.
type recordingQuerier struct {
	next    database.Querier
	queries []string
	args    [][]any
	fail    error
}

func (q *recordingQuerier) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	q.queries = append(q.queries, query)
	q.args = append(q.args, args)
	if q.fail != nil {
		return nil, q.fail
	}
	return q.next.Query(ctx, query, args...)
}

var errConnectionReset = errors.New("connection reset by peer")
