// Package client is the public API: register entity types, open sessions and
// load entities by identifier. Loads are batched with other identifiers the
// session already knows it will need.
package client

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/adapters/database/factory"
	"github.com/satishbabariya/ormcore/internal/core/loader"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/persister"
	"github.com/satishbabariya/ormcore/internal/core/session"
	"github.com/satishbabariya/ormcore/internal/debug"
)

// Client owns the entity metadata and one persister per registered entity.
// It is safe for concurrent use; sessions are not.
type Client struct {
	adapter  database.Adapter
	config   *Config
	strategy persister.Strategy
	entities *metadata.Registry
	types    *metadata.TypeRegistry

	mu          sync.RWMutex
	persisters  map[string]*persister.EntityPersister
	ownsAdapter bool
	closed      bool
}

// New creates a client on a connected adapter.
func New(adapter database.Adapter, opts ...Option) (*Client, error) {
	if adapter == nil {
		return nil, fmt.Errorf("ormcore: nil adapter")
	}

	config := DefaultConfig()
	ApplyOptions(config, opts...)

	strategy, err := persister.ParseStrategy(config.Strategy)
	if err != nil {
		return nil, fmt.Errorf("ormcore: %w", err)
	}
	if config.DefaultBatchSize < 0 || config.MaxBatchSize < 0 {
		return nil, fmt.Errorf("ormcore: batch sizes must not be negative")
	}

	types := metadata.NewTypeRegistry()
	adapter.RegisterTypes(types)

	return &Client{
		adapter:    adapter,
		config:     config,
		strategy:   strategy,
		entities:   metadata.NewRegistry(),
		types:      types,
		persisters: make(map[string]*persister.EntityPersister),
	}, nil
}

// Open creates an adapter for provider, connects it and returns a client that
// closes the adapter on Close.
func Open(ctx context.Context, provider, url string, opts ...Option) (*Client, error) {
	config := DefaultConfig()
	ApplyOptions(config, opts...)

	adapter, err := factory.NewAdapter(config.databaseConfig(provider, url))
	if err != nil {
		return nil, fmt.Errorf("ormcore: %w", err)
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, fmt.Errorf("ormcore: connect %s: %w", provider, err)
	}

	c, err := New(adapter, opts...)
	if err != nil {
		_ = adapter.Disconnect(ctx)
		return nil, err
	}
	c.ownsAdapter = true
	debug.Info("Client opened", "provider", provider, "dialect", string(adapter.GetDialect()))
	return c, nil
}

// Register maps the struct type of sample as an entity and creates its
// persister.
func (c *Client) Register(sample any, opts ...metadata.DescribeOption) (*metadata.EntityDescriptor, error) {
	desc, err := metadata.Describe(sample, opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	// The entity is only registered once its persister exists.
	p, err := persister.New(desc, c.entities, c.types, c.adapter.Features(), persister.Options{
		Policy:   loader.BatchSizePolicy{Default: c.config.DefaultBatchSize, Max: c.config.MaxBatchSize},
		Strategy: c.strategy,
	})
	if err != nil {
		return nil, err
	}
	if err := c.entities.Register(desc); err != nil {
		return nil, err
	}
	c.persisters[desc.Name] = p
	return desc, nil
}

// MustRegister is like Register but panics on error.
func (c *Client) MustRegister(sample any, opts ...metadata.DescribeOption) *metadata.EntityDescriptor {
	desc, err := c.Register(sample, opts...)
	if err != nil {
		panic(err)
	}
	return desc
}

// Validate checks that every association targets a registered entity.
func (c *Client) Validate() error {
	return c.entities.ValidateAssociations()
}

// Persister returns the persister of a registered entity.
func (c *Client) Persister(entity string) (*persister.EntityPersister, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	p, ok := c.persisters[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return p, nil
}

// Entities lists the registered entity names.
func (c *Client) Entities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.persisters))
	for name := range c.persisters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Adapter returns the database adapter.
func (c *Client) Adapter() database.Adapter {
	return c.adapter
}

// NewSession starts a unit of work with its own persistence context and
// batch-fetch queue.
func (c *Client) NewSession(opts ...SessionOption) *Session {
	cfg := sessionConfig{querier: c.adapter}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		client:  c,
		querier: cfg.querier,
		pc:      session.NewPersistenceContext(cfg.readOnly),
	}
}

// Close releases the client. The adapter is disconnected only when the client
// was created by Open.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.ownsAdapter {
		return c.adapter.Disconnect(ctx)
	}
	return nil
}
