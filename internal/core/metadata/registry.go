package metadata

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry stores entity descriptors for use by persisters and loaders.
// It provides fast lookup by entity name and by Go type.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntityDescriptor
	byType   map[reflect.Type]*EntityDescriptor
}

// NewRegistry creates a new metadata registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntityDescriptor),
		byType:   make(map[reflect.Type]*EntityDescriptor),
	}
}

// Register adds a descriptor. Names and Go types must be unique.
func (r *Registry) Register(desc *EntityDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[desc.Name]; exists {
		return fmt.Errorf("%w: entity %s already registered", ErrInvalidEntity, desc.Name)
	}
	if other, exists := r.byType[desc.Type]; exists {
		return fmt.Errorf("%w: type %s already registered as %s", ErrInvalidEntity, desc.Type, other.Name)
	}

	r.entities[desc.Name] = desc
	r.byType[desc.Type] = desc
	return nil
}

// Get retrieves a descriptor by entity name.
func (r *Registry) Get(name string) (*EntityDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, exists := r.entities[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return desc, nil
}

// ForType retrieves the descriptor mapped to a struct type (or pointer to it).
func (r *Registry) ForType(t reflect.Type) (*EntityDescriptor, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, exists := r.byType[t]
	if !exists {
		return nil, fmt.Errorf("%w: no entity mapped to %v", ErrUnknownEntity, t)
	}
	return desc, nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAssociations checks that every to-one association targets a
// registered entity whose identifier type matches the foreign-key column.
func (r *Registry) ValidateAssociations() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, desc := range r.entities {
		for _, assoc := range desc.Associations() {
			target, exists := r.entities[assoc.Target]
			if !exists {
				return fmt.Errorf("%w: %s.%s references unknown entity %s",
					ErrInvalidEntity, desc.Name, assoc.Field, assoc.Target)
			}
			fk := assoc.GoType
			if fk.Kind() == reflect.Ptr {
				fk = fk.Elem()
			}
			if fk != target.Identifier.GoType {
				return fmt.Errorf("%w: %s.%s is %s but %s identifier is %s",
					ErrInvalidEntity, desc.Name, assoc.Field, fk, target.Name, target.Identifier.GoType)
			}
		}
	}
	return nil
}
