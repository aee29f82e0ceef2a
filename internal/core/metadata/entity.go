// Package metadata describes mapped entities: their table, identifier shape,
// attributes and to-one association targets.
package metadata

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Error types for metadata operations.
var (
	// ErrUnknownEntity is returned when an entity name is not registered.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidEntity is returned when a type cannot be mapped as an entity.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidIdentifier is returned when an identifier value cannot be
	// converted to the entity's identifier type.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// IdentifierMapping describes the single-column primary key of an entity.
type IdentifierMapping struct {
	Field  string
	Column string
	GoType reflect.Type
	index  []int
}

// AttributeMapping maps a struct field to a column.
type AttributeMapping struct {
	Field  string
	Column string
	GoType reflect.Type
	// Target names the entity referenced by this column for to-one
	// associations. Empty for plain attributes.
	Target string
	index  []int
}

// IsAssociation reports whether the attribute holds a to-one foreign key.
func (a AttributeMapping) IsAssociation() bool {
	return a.Target != ""
}

// EntityDescriptor is the mapping metadata of one entity type.
type EntityDescriptor struct {
	Name       string
	Table      string
	Type       reflect.Type
	Identifier IdentifierMapping
	Attributes []AttributeMapping
	// BatchSize is the declared batch-fetch size; 0 defers to the client default.
	BatchSize int
}

// DescribeOption customizes a descriptor built by Describe.
type DescribeOption func(*EntityDescriptor)

// WithName overrides the entity name (defaults to the struct name).
func WithName(name string) DescribeOption {
	return func(d *EntityDescriptor) {
		d.Name = name
	}
}

// WithTable overrides the table name (defaults to the lowercased entity name).
func WithTable(table string) DescribeOption {
	return func(d *EntityDescriptor) {
		d.Table = table
	}
}

// WithBatchSize declares the batch-fetch size of the entity.
func WithBatchSize(n int) DescribeOption {
	return func(d *EntityDescriptor) {
		d.BatchSize = n
	}
}

// Describe builds a descriptor from a struct value or pointer using the
// `db` and `orm` struct tags:
//
//	type Order struct {
//	    ID         int64  `db:"id" orm:"id"`
//	    CustomerID int64  `db:"customer_id" orm:"ref=Customer"`
//	    Notes      string `db:"-"`
//	}
//
// Without an `orm:"id"` tag the field named ID is the identifier.
func Describe(sample any, opts ...DescribeOption) (*EntityDescriptor, error) {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a struct", ErrInvalidEntity, sample)
	}

	desc := &EntityDescriptor{
		Name: t.Name(),
		Type: t,
	}

	var idFound bool
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		column := columnName(field)
		if column == "" {
			continue
		}

		tag := parseORMTag(field.Tag.Get("orm"))
		if tag.id {
			if idFound {
				return nil, fmt.Errorf("%w: %s declares more than one identifier", ErrInvalidEntity, t.Name())
			}
			desc.Identifier = IdentifierMapping{Field: field.Name, Column: column, GoType: field.Type, index: field.Index}
			idFound = true
			continue
		}

		desc.Attributes = append(desc.Attributes, AttributeMapping{
			Field:  field.Name,
			Column: column,
			GoType: field.Type,
			Target: tag.ref,
			index:  field.Index,
		})
	}

	if !idFound {
		for i, attr := range desc.Attributes {
			if attr.Field == "ID" {
				desc.Identifier = IdentifierMapping{Field: attr.Field, Column: attr.Column, GoType: attr.GoType, index: attr.index}
				desc.Attributes = append(desc.Attributes[:i], desc.Attributes[i+1:]...)
				idFound = true
				break
			}
		}
	}
	if !idFound {
		return nil, fmt.Errorf("%w: %s has no identifier field", ErrInvalidEntity, t.Name())
	}
	if !desc.Identifier.GoType.Comparable() {
		return nil, fmt.Errorf("%w: %s identifier %s has non-comparable type %s",
			ErrInvalidEntity, t.Name(), desc.Identifier.Field, desc.Identifier.GoType)
	}

	for _, opt := range opts {
		opt(desc)
	}
	if desc.Table == "" {
		desc.Table = strings.ToLower(desc.Name)
	}
	if desc.BatchSize < 0 {
		return nil, fmt.Errorf("%w: %s batch size %d is negative", ErrInvalidEntity, desc.Name, desc.BatchSize)
	}

	return desc, nil
}

// Columns returns the selected columns, identifier first.
func (d *EntityDescriptor) Columns() []string {
	cols := make([]string, 0, len(d.Attributes)+1)
	cols = append(cols, d.Identifier.Column)
	for _, attr := range d.Attributes {
		cols = append(cols, attr.Column)
	}
	return cols
}

// Associations returns the to-one association attributes.
func (d *EntityDescriptor) Associations() []AttributeMapping {
	var assocs []AttributeMapping
	for _, attr := range d.Attributes {
		if attr.IsAssociation() {
			assocs = append(assocs, attr)
		}
	}
	return assocs
}

// NewInstance allocates a new zero entity and returns a pointer to it.
func (d *EntityDescriptor) NewInstance() reflect.Value {
	return reflect.New(d.Type)
}

// Accepts reports whether instance is a non-nil pointer to the entity struct.
func (d *EntityDescriptor) Accepts(instance any) bool {
	v := reflect.ValueOf(instance)
	return v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type() == d.Type
}

// FieldValue returns the struct field of attr on the pointed-to entity.
func (a AttributeMapping) FieldValue(entity reflect.Value) reflect.Value {
	return reflect.Indirect(entity).FieldByIndex(a.index)
}

// FieldValue returns the identifier field on the pointed-to entity.
func (m IdentifierMapping) FieldValue(entity reflect.Value) reflect.Value {
	return reflect.Indirect(entity).FieldByIndex(m.index)
}

// Normalize converts id to the identifier's Go type so that equal keys
// compare equal regardless of how the caller typed them.
func (m IdentifierMapping) Normalize(id any) (any, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidIdentifier)
	}

	v := reflect.ValueOf(id)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrInvalidIdentifier)
		}
		v = v.Elem()
	}

	target := m.GoType
	if v.Type() == target {
		return v.Interface(), nil
	}

	if b, ok := v.Interface().([]byte); ok && target.Kind() == reflect.String {
		return reflect.ValueOf(string(b)).Convert(target).Interface(), nil
	}

	if sameKindClass(v.Kind(), target.Kind()) && v.Type().ConvertibleTo(target) {
		return v.Convert(target).Interface(), nil
	}

	if s, ok := v.Interface().(string); ok && isInteger(target.Kind()) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidIdentifier, s, err)
		}
		return reflect.ValueOf(n).Convert(target).Interface(), nil
	}

	ptr := reflect.New(target)
	if scanner, ok := ptr.Interface().(sql.Scanner); ok {
		if err := scanner.Scan(v.Interface()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
		}
		return ptr.Elem().Interface(), nil
	}

	return nil, fmt.Errorf("%w: cannot convert %s to %s", ErrInvalidIdentifier, v.Type(), target)
}

type ormTag struct {
	id  bool
	ref string
}

func parseORMTag(tag string) ormTag {
	var t ormTag
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "id":
			t.id = true
		case strings.HasPrefix(part, "ref="):
			t.ref = strings.TrimPrefix(part, "ref=")
		}
	}
	return t
}

// columnName gets the column name for a struct field. An empty result means
// the field is not mapped.
func columnName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("db"); ok {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}

	// Default to lowercase field name
	return strings.ToLower(field.Name)
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func sameKindClass(a, b reflect.Kind) bool {
	if isInteger(a) && isInteger(b) {
		return true
	}
	return a == reflect.String && b == reflect.String
}

// TableDescriptor describes a table by column names only. The result has no
// Go type and can render statements but not hydrate entities.
func TableDescriptor(name, table, idColumn string, columns ...string) *EntityDescriptor {
	desc := &EntityDescriptor{
		Name:       name,
		Table:      table,
		Identifier: IdentifierMapping{Field: idColumn, Column: idColumn},
	}
	for _, col := range columns {
		if col == idColumn {
			continue
		}
		desc.Attributes = append(desc.Attributes, AttributeMapping{Field: col, Column: col})
	}
	return desc
}
