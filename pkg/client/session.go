package client

import (
	"context"
	"fmt"
	"reflect"

	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/satishbabariya/ormcore/internal/core/persister"
	"github.com/satishbabariya/ormcore/internal/core/session"
)

// Session is a unit of work. It caches loaded entities by identity and
// remembers identifiers that are likely to be loaded soon, so that loading
// one of them fetches the others in the same statement. A session must not
// be used from more than one goroutine at a time.
type Session struct {
	client  *Client
	querier database.Querier
	pc      *session.PersistenceContext
}

// Find returns the entity with the given id, or nil if no row exists. An
// entity already in the session is returned without a query.
func (s *Session) Find(ctx context.Context, entity string, id any, opts ...LoadOption) (any, error) {
	p, key, err := s.resolve(entity, id)
	if err != nil {
		return nil, err
	}
	lo := loadOptions(opts)

	if entry, ok := s.pc.Entry(key); ok {
		s.pc.AddEntity(key, entry.Instance, lo.LockMode, entry.ReadOnly)
		return entry.Instance, nil
	}
	return p.Load(ctx, s.querier, s.pc, key.ID, nil, lo)
}

// Get is like Find but returns a *NotFoundError when no row exists.
func (s *Session) Get(ctx context.Context, entity string, id any, opts ...LoadOption) (any, error) {
	v, err := s.Find(ctx, entity, id, opts...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &NotFoundError{Entity: entity, ID: id}
	}
	return v, nil
}

// LoadInto loads the entity with the given id into instance, a pointer to the
// entity struct, and makes instance the session's copy. If the session
// already holds the entity, that copy is written to instance instead.
func (s *Session) LoadInto(ctx context.Context, instance any, id any, opts ...LoadOption) error {
	desc, err := s.client.entities.ForType(reflect.TypeOf(instance))
	if err != nil {
		return err
	}
	if !desc.Accepts(instance) {
		return fmt.Errorf("%w: LoadInto needs a non-nil *%s, got %T", metadata.ErrInvalidEntity, desc.Type, instance)
	}
	p, key, err := s.resolve(desc.Name, id)
	if err != nil {
		return err
	}

	if existing := s.pc.Entity(key); existing != nil {
		if existing != instance {
			reflect.ValueOf(instance).Elem().Set(reflect.ValueOf(existing).Elem())
		}
		return nil
	}

	v, err := p.Load(ctx, s.querier, s.pc, key.ID, instance, loadOptions(opts))
	if err != nil {
		return err
	}
	if v == nil {
		return &NotFoundError{Entity: desc.Name, ID: id}
	}
	return nil
}

// Reference records that the entity with the given id will be needed, without
// loading it. The next load of that entity batches it in. It reports whether
// the id was newly queued; entities already in the session are never queued.
func (s *Session) Reference(entity string, id any) (bool, error) {
	_, key, err := s.resolve(entity, id)
	if err != nil {
		return false, err
	}
	if s.pc.Contains(key) {
		return false, nil
	}
	return s.pc.Queue().Register(key), nil
}

// Contains reports whether the entity is loaded in the session.
func (s *Session) Contains(entity string, id any) bool {
	_, key, err := s.resolve(entity, id)
	return err == nil && s.pc.Contains(key)
}

// Pending lists the queued identifiers of an entity in queue order.
func (s *Session) Pending(entity string) []any {
	return s.pc.Queue().Pending(entity)
}

// Evict removes the entity from the session and from the batch-fetch queue.
func (s *Session) Evict(entity string, id any) error {
	_, key, err := s.resolve(entity, id)
	if err != nil {
		return err
	}
	s.pc.Remove(key)
	return nil
}

// Clear empties the session.
func (s *Session) Clear() {
	s.pc.Clear()
}

// Len returns the number of loaded entities.
func (s *Session) Len() int {
	return s.pc.Len()
}

func (s *Session) resolve(entity string, id any) (*persister.EntityPersister, session.EntityKey, error) {
	p, err := s.client.Persister(entity)
	if err != nil {
		return nil, session.EntityKey{}, err
	}
	desc := p.Descriptor()
	nid, err := desc.Identifier.Normalize(id)
	if err != nil {
		return nil, session.EntityKey{}, fmt.Errorf("%s: %w", desc.Name, err)
	}
	return p, session.EntityKey{Entity: desc.Name, ID: nid}, nil
}

// Find loads an entity of type T by id. It returns nil, nil when no row
// exists.
func Find[T any](ctx context.Context, s *Session, id any, opts ...LoadOption) (*T, error) {
	name, err := entityName[T](s)
	if err != nil {
		return nil, err
	}
	v, err := s.Find(ctx, name, id, opts...)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*T), nil
}

// Get loads an entity of type T by id and returns a *NotFoundError when no
// row exists.
func Get[T any](ctx context.Context, s *Session, id any, opts ...LoadOption) (*T, error) {
	name, err := entityName[T](s)
	if err != nil {
		return nil, err
	}
	v, err := s.Get(ctx, name, id, opts...)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func entityName[T any](s *Session) (string, error) {
	desc, err := s.client.entities.ForType(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return "", err
	}
	return desc.Name, nil
}
