package pgx

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterArrayTypes(t *testing.T) {
	reg := metadata.NewTypeRegistry()
	RegisterArrayTypes(reg)

	arr, err := reg.ArrayTypeFor(reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, "bigint[]", arr.Name)
	assert.Nil(t, arr.Bind)
	v, err := arr.BindValues([]any{int64(2), int64(3)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, v)

	arr, err = reg.ArrayTypeFor(reflect.TypeOf(int32(0)))
	require.NoError(t, err)
	v, err = arr.BindValues([]any{int32(7)})
	require.NoError(t, err)
	assert.Equal(t, []int32{7}, v)

	arr, err = reg.ArrayTypeFor(reflect.TypeOf(""))
	require.NoError(t, err)
	v, err = arr.BindValues([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	arr, err = reg.ArrayTypeFor(reflect.TypeOf(uuid.UUID{}))
	require.NoError(t, err)
	assert.Equal(t, "uuid[]", arr.Name)
	v, err = arr.BindValues([]any{id})
	require.NoError(t, err)
	assert.Equal(t, []string{id.String()}, v)

	_, err = arr.BindValues([]any{"not-a-uuid"})
	assert.ErrorIs(t, err, metadata.ErrInvalidIdentifier)

	_, err = reg.ArrayTypeFor(reflect.TypeOf(float64(0)))
	assert.ErrorIs(t, err, metadata.ErrNoArrayType)
}

func TestPgxAdapter(t *testing.T) {
	_, err := NewPgxAdapter(database.Config{URL: "postgres://localhost:notaport/shop"})
	assert.Error(t, err)

	a, err := NewPgxAdapter(database.Config{URL: "postgres://app@localhost:5432/shop?sslmode=disable"})
	require.NoError(t, err)
	assert.Equal(t, database.PostgreSQL, a.GetDialect())
	assert.True(t, a.Features().SupportsArrayParameters())
	assert.Equal(t, "%s = ANY(?)", a.Features().ArrayPredicate)

	reg := metadata.NewTypeRegistry()
	a.RegisterTypes(reg)
	assert.Len(t, reg.ArrayTypes(), 5)
}
