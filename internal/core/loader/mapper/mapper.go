// Package mapper implements result mapping from loader rows to entity structs.
package mapper

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// Row is one scanned result row. Values follow the descriptor's column
// order, identifier first.
type Row struct {
	ID     any
	Values []any
}

// ScanRows reads every row of a loader statement and closes rows. The
// identifier is normalized so it compares equal to queued keys.
func ScanRows(rows *sql.Rows, desc *metadata.EntityDescriptor) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if want := len(desc.Attributes) + 1; len(columns) != want {
		return nil, fmt.Errorf("expected %d columns for %s, got %d", want, desc.Name, len(columns))
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		id, err := desc.Identifier.Normalize(values[0])
		if err != nil {
			return nil, fmt.Errorf("row identifier: %w", err)
		}
		out = append(out, Row{ID: id, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Populate builds a new entity instance from row and returns a pointer to it.
func Populate(desc *metadata.EntityDescriptor, row Row) (reflect.Value, error) {
	instance := desc.NewInstance()

	idField := desc.Identifier.FieldValue(instance)
	if err := setFieldValue(idField, row.ID); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to set field %s.%s: %w", desc.Name, desc.Identifier.Field, err)
	}

	for i, attr := range desc.Attributes {
		if err := setFieldValue(attr.FieldValue(instance), row.Values[i+1]); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to set field %s.%s: %w", desc.Name, attr.Field, err)
		}
	}
	return instance, nil
}

// ForeignKey returns the association's foreign-key value on instance, or nil
// when it is unset.
func ForeignKey(attr metadata.AttributeMapping, instance reflect.Value) any {
	v := attr.FieldValue(instance)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.IsZero() {
		return nil
	}
	return v.Interface()
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// setFieldValue sets a field value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	fieldType := field.Type()

	if value != nil && reflect.TypeOf(value).AssignableTo(fieldType) {
		field.Set(reflect.ValueOf(value))
		return nil
	}

	if reflect.PointerTo(fieldType).Implements(scannerType) {
		return field.Addr().Interface().(sql.Scanner).Scan(value)
	}

	if value == nil {
		field.Set(reflect.Zero(fieldType))
		return nil
	}

	// Pointer fields get a fresh value.
	if fieldType.Kind() == reflect.Ptr {
		ptr := reflect.New(fieldType.Elem())
		if err := setFieldValue(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if b, ok := value.([]byte); ok && fieldType.Kind() != reflect.Slice {
		value = string(b)
	}

	valueReflect := reflect.ValueOf(value)
	if valueReflect.Type().AssignableTo(fieldType) {
		field.Set(valueReflect)
		return nil
	}

	switch fieldType.Kind() {
	case reflect.String:
		field.SetString(fmt.Sprintf("%v", value))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int32:
			field.SetInt(int64(v))
		case int:
			field.SetInt(int64(v))
		case float64:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("cannot convert %T to int", value)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch v := value.(type) {
		case uint64:
			field.SetUint(v)
		case int64:
			if v < 0 {
				return fmt.Errorf("cannot convert negative %d to uint", v)
			}
			field.SetUint(uint64(v))
		default:
			return fmt.Errorf("cannot convert %T to uint", value)
		}

	case reflect.Float32, reflect.Float64:
		switch v := value.(type) {
		case float64:
			field.SetFloat(v)
		case float32:
			field.SetFloat(float64(v))
		case int64:
			field.SetFloat(float64(v))
		default:
			return fmt.Errorf("cannot convert %T to float", value)
		}

	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			field.SetBool(v)
		case int64:
			field.SetBool(v != 0)
		default:
			return fmt.Errorf("cannot convert %T to bool", value)
		}

	case reflect.Struct:
		if fieldType != timeType {
			return fmt.Errorf("unsupported struct type: %s", fieldType)
		}
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("cannot convert %T to time.Time", value)
		}
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))

	default:
		return fmt.Errorf("unsupported field type: %s", fieldType)
	}

	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
