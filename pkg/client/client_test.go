package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/mysql"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Author struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Book struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	AuthorID int64  `db:"author_id" orm:"ref=Author"`
}

type Device struct {
	Serial uuid.UUID `db:"serial" orm:"id"`
	Label  string    `db:"label"`
}

var (
	deviceA = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	deviceB = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
)

const schema = `
CREATE TABLE author (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE book (id INTEGER PRIMARY KEY, title TEXT NOT NULL, author_id INTEGER REFERENCES author(id));
CREATE TABLE device (serial TEXT PRIMARY KEY, label TEXT);
INSERT INTO author VALUES (1, 'Le Guin'), (2, 'Herbert');
INSERT INTO book VALUES (10, 'The Dispossessed', 1), (11, 'Dune', 2), (12, 'Lathe of Heaven', 1);
`

func openClient(t *testing.T, opts ...client.Option) *client.Client {
	t.Helper()
	ctx := context.Background()

	c, err := client.Open(ctx, "sqlite", ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(ctx) })

	_, err = c.Adapter().Execute(ctx, schema)
	require.NoError(t, err)
	_, err = c.Adapter().Execute(ctx, "INSERT INTO device VALUES (?, 'edge'), (?, 'core')", deviceA, deviceB)
	require.NoError(t, err)

	c.MustRegister(Author{})
	c.MustRegister(Book{}, metadata.WithBatchSize(2))
	c.MustRegister(Device{})
	require.NoError(t, c.Validate())
	return c
}

func TestDefaultConfig(t *testing.T) {
	config := client.DefaultConfig()
	assert.Equal(t, 16, config.DefaultBatchSize)
	assert.Equal(t, 256, config.MaxBatchSize)
	assert.Equal(t, "auto", config.Strategy)

	client.ApplyOptions(config,
		client.WithDefaultBatchSize(8),
		client.WithMaxBatchSize(64),
		client.WithStrategy("inline"),
		client.WithMaxConnections(3),
		client.WithConnectTimeout(time.Second),
		client.WithConnectRetries(2),
	)
	assert.Equal(t, 8, config.DefaultBatchSize)
	assert.Equal(t, 64, config.MaxBatchSize)
	assert.Equal(t, "inline", config.Strategy)
	assert.Equal(t, 3, config.MaxConnections)
	assert.Equal(t, time.Second, config.ConnectTimeout)
	assert.Equal(t, 2, config.ConnectRetries)
}

func TestSession_FindBatchesReferences(t *testing.T) {
	for _, strategy := range []string{"inline", "array"} {
		t.Run(strategy, func(t *testing.T) {
			ctx := context.Background()
			c := openClient(t, client.WithStrategy(strategy))
			s := c.NewSession()

			for _, id := range []int64{11, 12} {
				queued, err := s.Reference("Book", id)
				require.NoError(t, err)
				assert.True(t, queued)
			}

			book, err := client.Find[Book](ctx, s, 10)
			require.NoError(t, err)
			require.NotNil(t, book)
			assert.Equal(t, "The Dispossessed", book.Title)

			// Batch size 2: 10 and 11 loaded, 12 still queued.
			assert.True(t, s.Contains("Book", 11))
			assert.False(t, s.Contains("Book", 12))
			assert.Equal(t, []any{int64(12)}, s.Pending("Book"))

			// Authors were queued by the association and load together.
			assert.ElementsMatch(t, []any{int64(1), int64(2)}, s.Pending("Author"))
			author, err := client.Get[Author](ctx, s, int64(2))
			require.NoError(t, err)
			assert.Equal(t, "Herbert", author.Name)
			assert.True(t, s.Contains("Author", 1))
			assert.Empty(t, s.Pending("Author"))

			again, err := client.Find[Book](ctx, s, "10")
			require.NoError(t, err)
			assert.Same(t, book, again, "identity is preserved within a session")
		})
	}
}

func TestSession_GetMissing(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)
	s := c.NewSession()

	_, err := s.Reference("Book", 99)
	require.NoError(t, err)

	_, err = s.Get(ctx, "Book", 98)
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))

	var nf *client.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Book", nf.Entity)
	assert.Empty(t, s.Pending("Book"), "absent keys leave the queue")

	v, err := s.Find(ctx, "Book", 97)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = client.Get[Author](ctx, s, 42)
	assert.True(t, client.IsNotFound(err))
}

func TestSession_UUIDIdentifiers(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)
	s := c.NewSession()

	_, err := s.Reference("Device", deviceB.String())
	require.NoError(t, err)

	d, err := client.Get[Device](ctx, s, deviceA)
	require.NoError(t, err)
	assert.Equal(t, "edge", d.Label)
	assert.True(t, s.Contains("Device", deviceB))
	assert.Equal(t, 2, s.Len())
}

func TestSession_LoadIntoAndOptions(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)
	s := c.NewSession(client.WithDefaultReadOnly(true))

	var a Author
	require.NoError(t, s.LoadInto(ctx, &a, 1, client.WithReadOnly(false), client.WithLockMode(client.LockRead)))
	assert.Equal(t, "Le Guin", a.Name)

	got, err := s.Find(ctx, "Author", 1, client.WithLockMode(client.LockPessimisticWrite))
	require.NoError(t, err)
	assert.Same(t, &a, got)

	var dup Author
	require.NoError(t, s.LoadInto(ctx, &dup, 1))
	assert.Equal(t, a, dup)

	err = s.LoadInto(ctx, &Author{}, 404)
	assert.True(t, client.IsNotFound(err))

	err = s.LoadInto(ctx, Author{}, 1)
	assert.ErrorIs(t, err, metadata.ErrInvalidEntity)
}

func TestSession_EvictAndClear(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)
	s := c.NewSession()

	_, err := s.Find(ctx, "Author", 1)
	require.NoError(t, err)
	require.True(t, s.Contains("Author", 1))

	queued, err := s.Reference("Author", 1)
	require.NoError(t, err)
	assert.False(t, queued, "loaded entities are not queued")

	require.NoError(t, s.Evict("Author", 1))
	assert.False(t, s.Contains("Author", 1))

	_, err = s.Reference("Author", 2)
	require.NoError(t, err)
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Pending("Author"))
}

func TestSession_Transaction(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)

	tx, err := c.Adapter().Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Execute(ctx, "INSERT INTO author VALUES (3, 'Butler')")
	require.NoError(t, err)

	s := c.NewSession(client.WithQuerier(tx))
	a, err := client.Get[Author](ctx, s, 3)
	require.NoError(t, err)
	assert.Equal(t, "Butler", a.Name)
	require.NoError(t, tx.Rollback())
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)
	s := c.NewSession()

	_, err := s.Find(ctx, "Publisher", 1)
	assert.True(t, client.IsUnknownEntity(err))

	_, err = s.Find(ctx, "Book", "ten")
	assert.ErrorIs(t, err, client.ErrInvalidIdentifier)

	_, err = c.Register(Author{})
	assert.ErrorIs(t, err, metadata.ErrInvalidEntity)

	type Blob struct {
		Key []byte `db:"key" orm:"id"`
	}
	_, err = c.Register(Blob{})
	assert.ErrorIs(t, err, metadata.ErrInvalidEntity)
	_, err = s.Find(ctx, "Blob", []byte{1})
	assert.True(t, client.IsUnknownEntity(err))

	assert.Equal(t, []string{"Author", "Book", "Device"}, c.Entities())

	_, err = client.Open(ctx, "oracle", "")
	assert.Error(t, err)

	_, err = client.Open(ctx, "sqlite", ":memory:", client.WithStrategy("eager"))
	assert.Error(t, err)

	require.NoError(t, c.Close(ctx))
	_, err = c.Persister("Book")
	assert.ErrorIs(t, err, client.ErrClosed)
}

func TestClient_ArrayStrategyWithoutArraySupport(t *testing.T) {
	ctx := context.Background()

	adapter, err := mysql.NewMySQLAdapter(database.Config{URL: "root@tcp(127.0.0.1:1)/none"})
	require.NoError(t, err)

	c, err := client.New(adapter, client.WithStrategy("array"))
	require.NoError(t, err)
	c.MustRegister(Author{})

	p, err := c.Persister("Author")
	require.NoError(t, err)
	assert.Equal(t, "array", p.Loader().Strategy().String())

	_, err = c.NewSession().Find(ctx, "Author", 1)
	assert.True(t, client.IsConfigurationError(err))
	assert.False(t, client.IsExecutionError(err))
}
