// Package loader implements multi-key entity loading. A BatchLoader loads the
// requested entity together with other identifiers of the same entity that
// are waiting in the session's batch-fetch queue, in one SELECT.
package loader

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/loader/builder"
	"github.com/satishbabariya/ormcore/internal/core/loader/cache"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/loader/mapper"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/session"
	"github.com/satishbabariya/ormcore/internal/debug"
)

// BatchLoader loads one entity by id, batching pending ids of the same entity.
type BatchLoader interface {
	// DomainBatchSize is the maximum number of keys bound per statement.
	DomainBatchSize() int

	// Strategy reports how keys are bound.
	Strategy() domain.BindingStrategy

	// Load returns the entity for id, or nil when no row exists. instance,
	// when non-nil, receives the anchor's state. Every key of the executed
	// batch is removed from the queue, whether or not a row was found.
	Load(ctx context.Context, q database.Querier, pc *session.PersistenceContext, id any, instance any, opts domain.LoadOptions) (any, error)
}

// Config holds what a loader needs to build and run its statements.
type Config struct {
	Descriptor *metadata.EntityDescriptor
	// Entities resolves association targets. Optional.
	Entities *metadata.Registry
	// Types resolves array types for the array strategy.
	Types     *metadata.TypeRegistry
	Builder   *builder.Builder
	Cache     *cache.StatementCache
	BatchSize int
}

func (c Config) validate() error {
	if c.Descriptor == nil {
		return errors.New("loader: nil entity descriptor")
	}
	if c.Builder == nil || c.Cache == nil {
		return fmt.Errorf("loader for %s: builder and cache are required", c.Descriptor.Name)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("loader for %s: batch size must be at least 1, got %d", c.Descriptor.Name, c.BatchSize)
	}
	return nil
}

// keyBinder turns a trimmed batch of ids into a statement and its arguments.
type keyBinder interface {
	strategy() domain.BindingStrategy
	bind(ids []any) (domain.LoaderStatement, []any, error)
}

// batchLoader is the orchestration shared by both strategies.
type batchLoader struct {
	desc      *metadata.EntityDescriptor
	entities  *metadata.Registry
	batchSize int
	binder    keyBinder
}

func newBatchLoader(cfg Config, binder keyBinder) *batchLoader {
	l := &batchLoader{
		desc:      cfg.Descriptor,
		entities:  cfg.Entities,
		batchSize: cfg.BatchSize,
		binder:    binder,
	}
	l.debug("Batch fetching enabled", "strategy", binder.strategy().String(), "batch_size", cfg.BatchSize)
	return l
}

func (l *batchLoader) debug(msg string, args ...any) {
	if !debug.Enabled() {
		return
	}
	debug.Component("loader").Debug(msg, append([]any{"entity", l.desc.Name}, args...)...)
}

// DomainBatchSize implements BatchLoader.
func (l *batchLoader) DomainBatchSize() int {
	return l.batchSize
}

// Strategy implements BatchLoader.
func (l *batchLoader) Strategy() domain.BindingStrategy {
	return l.binder.strategy()
}

// staged is a fully materialized row that has not been published yet.
type staged struct {
	id       any
	instance reflect.Value
}

// Load implements BatchLoader.
func (l *batchLoader) Load(ctx context.Context, q database.Querier, pc *session.PersistenceContext, id any, instance any, opts domain.LoadOptions) (any, error) {
	anchor, err := l.desc.Identifier.Normalize(id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.desc.Name, err)
	}
	if instance != nil && !l.desc.Accepts(instance) {
		return nil, fmt.Errorf("load %s: %w: instance is %T, want *%s", l.desc.Name, metadata.ErrInvalidEntity, instance, l.desc.Type)
	}

	ids := l.collect(pc.Queue(), anchor)
	l.debug("Ids to batch-fetch initialize", "ids", ids)

	stmt, args, err := l.binder.bind(ids)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &domain.LoadError{Entity: l.desc.Name, ID: anchor, Batch: ids, Cause: err}
	}

	rows, err := l.execute(ctx, q, stmt, args, ids)
	if err != nil {
		return nil, &domain.LoadError{Entity: l.desc.Name, ID: anchor, Batch: ids, Cause: err}
	}

	result := l.publish(pc, rows, anchor, instance, opts)

	queue := pc.Queue()
	for _, batchID := range ids {
		queue.Remove(session.EntityKey{Entity: l.desc.Name, ID: batchID})
	}

	return result, nil
}

// collect fills a working array of the domain batch size with the anchor in
// slot 0 and pending ids after it, then trims unused slots.
func (l *batchLoader) collect(queue *session.BatchFetchQueue, anchor any) []any {
	ids := make([]any, l.batchSize)
	queue.Collect(l.batchSize, func(index int, id any) {
		ids[index] = id
	}, anchor, l.desc.Name)
	return TrimBatch(ids)
}

// execute runs the statement and stages every row. Nothing is published
// unless all rows materialize.
func (l *batchLoader) execute(ctx context.Context, q database.Querier, stmt domain.LoaderStatement, args []any, ids []any) ([]staged, error) {
	result, err := q.Query(ctx, stmt.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	rows, err := mapper.ScanRows(result, l.desc)
	if err != nil {
		return nil, err
	}

	wanted := make(map[any]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	out := make([]staged, 0, len(rows))
	for _, row := range rows {
		if !wanted[row.ID] {
			continue
		}
		wanted[row.ID] = false

		inst, err := mapper.Populate(l.desc, row)
		if err != nil {
			return nil, err
		}
		out = append(out, staged{id: row.ID, instance: inst})
	}

	l.debug("Batch loaded", "requested", len(ids), "found", len(out))
	return out, nil
}

// publish adds staged rows to the persistence context and returns the
// anchor's instance.
func (l *batchLoader) publish(pc *session.PersistenceContext, rows []staged, anchor any, instance any, opts domain.LoadOptions) any {
	readOnly := opts.ResolveReadOnly(pc.DefaultReadOnly())

	var result any
	for _, row := range rows {
		key := session.EntityKey{Entity: l.desc.Name, ID: row.id}

		if existing := pc.Entity(key); existing != nil {
			pc.AddEntity(key, existing, opts.LockMode, readOnly)
			if row.id == anchor {
				result = existing
			}
			continue
		}

		obj := row.instance.Interface()
		if row.id == anchor && instance != nil {
			reflect.ValueOf(instance).Elem().Set(row.instance.Elem())
			obj = instance
		}

		entry := pc.AddEntity(key, obj, opts.LockMode, readOnly)
		if row.id == anchor {
			result = entry.Instance
		}

		l.registerAssociations(pc, row.instance)
	}
	return result
}

// registerAssociations queues the unloaded targets of to-one associations so
// that resolving them later is batched too.
func (l *batchLoader) registerAssociations(pc *session.PersistenceContext, instance reflect.Value) {
	if l.entities == nil {
		return
	}
	for _, attr := range l.desc.Associations() {
		fk := mapper.ForeignKey(attr, instance)
		if fk == nil {
			continue
		}
		target, err := l.entities.Get(attr.Target)
		if err != nil {
			l.debug("Skipping unmapped association", "field", attr.Field, "target", attr.Target)
			continue
		}
		targetID, err := target.Identifier.Normalize(fk)
		if err != nil {
			continue
		}
		key := session.EntityKey{Entity: target.Name, ID: targetID}
		if !pc.Contains(key) {
			pc.Queue().Register(key)
		}
	}
}
