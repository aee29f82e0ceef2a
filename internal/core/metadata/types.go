package metadata

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrNoArrayType is returned when no array type is registered for an
// identifier's Go type.
var ErrNoArrayType = errors.New("no array type registered")

// ArrayBinder converts a typed slice (for example []int64) into the value
// handed to the database driver for a single array parameter.
type ArrayBinder func(slice any) (any, error)

// ArrayType describes a relational array type usable as one bind parameter.
type ArrayType struct {
	// Name is the database type name, e.g. "bigint[]".
	Name string
	// GoType is the slice type, e.g. []int64.
	GoType reflect.Type
	// Bind wraps the typed slice for the driver.
	Bind ArrayBinder
}

// BindValues builds a typed slice from already-normalized identifiers and
// binds it.
func (t ArrayType) BindValues(ids []any) (any, error) {
	elem := t.GoType.Elem()
	slice := reflect.MakeSlice(t.GoType, len(ids), len(ids))
	for i, id := range ids {
		v := reflect.ValueOf(id)
		if !v.IsValid() || !v.Type().AssignableTo(elem) {
			return nil, fmt.Errorf("%w: %T is not assignable to %s", ErrInvalidIdentifier, id, elem)
		}
		slice.Index(i).Set(v)
	}
	if t.Bind == nil {
		return slice.Interface(), nil
	}
	return t.Bind(slice.Interface())
}

// TypeRegistry handles the mapping between identifier Go types and the array
// types a driver accepts.
type TypeRegistry struct {
	mu     sync.RWMutex
	arrays map[reflect.Type]ArrayType
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		arrays: make(map[reflect.Type]ArrayType),
	}
}

// RegisterArray adds or replaces an array type mapping keyed by its slice type.
func (r *TypeRegistry) RegisterArray(t ArrayType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrays[t.GoType] = t
}

// ArrayTypeFor resolves the array type for "slice of elem".
func (r *TypeRegistry) ArrayTypeFor(elem reflect.Type) (ArrayType, error) {
	if elem == nil {
		return ArrayType{}, fmt.Errorf("%w: nil element type", ErrNoArrayType)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sliceType := reflect.SliceOf(elem)
	t, ok := r.arrays[sliceType]
	if !ok {
		return ArrayType{}, fmt.Errorf("%w: %s", ErrNoArrayType, sliceType)
	}
	return t, nil
}

// ArrayTypes lists the registered array types ordered by name.
func (r *TypeRegistry) ArrayTypes() []ArrayType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ArrayType, 0, len(r.arrays))
	for _, t := range r.arrays {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}
