package opt

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOption(t *testing.T) {
	some := Some(30)
	none := None[int]()

	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, 30, v)
	assert.True(t, some.IsPresent())
	assert.True(t, none.IsAbsent())
	assert.Equal(t, 7, none.OrElse(7))
	assert.Equal(t, 30, some.OrElse(7))
	assert.Equal(t, "Some(30)", some.String())
	assert.Equal(t, "None", none.String())
	assert.Nil(t, none.Ptr())
	assert.Equal(t, 30, *some.Ptr())
	assert.Panics(t, func() { none.MustGet() })

	var zero Option[string]
	assert.Equal(t, None[string](), zero)
}

func TestOptionValue(t *testing.T) {
	v, err := Some("x").Value()
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = None[string]().Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	nested, err := Some(Some(int64(4))).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(4), nested)
}

func TestFromPtr(t *testing.T) {
	n := 5
	assert.Equal(t, Some(5), FromPtr(&n))
	assert.Equal(t, None[int](), FromPtr[int](nil))
}

func TestSlot(t *testing.T) {
	var o Option[int64]
	var s Slot = &o
	assert.Equal(t, reflect.TypeFor[int64](), s.ElemType())

	s.SetAny(int64(9))
	assert.Equal(t, Some(int64(9)), o)

	s.Clear()
	assert.True(t, o.IsAbsent())
}

func TestElemOf(t *testing.T) {
	elem, ok := ElemOf(reflect.TypeFor[Option[bool]]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[bool](), elem)

	_, ok = ElemOf(reflect.TypeFor[struct{ A int }]())
	assert.False(t, ok)
	_, ok = ElemOf(reflect.TypeFor[int]())
	assert.False(t, ok)
	assert.False(t, IsOption(reflect.TypeFor[*Option[int]]()))
}
