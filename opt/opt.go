// Package opt provides Option, an explicit present/absent wrapper used for
// nullable model fields and for results that may legitimately be missing.
//
// Option is distinct from a pointer or a zero value: Some(0) is present and
// holds 0, None[int]() holds nothing. The zero Option is None.
package opt

import (
	"database/sql/driver"
	"fmt"
	"reflect"
)

// Option holds either a value of type T or nothing.
type Option[T any] struct {
	v  T
	ok bool
}

// Some returns a present Option holding v.
func Some[T any](v T) Option[T] { return Option[T]{v: v, ok: true} }

// None returns an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

// FromPtr returns None for a nil pointer and Some(*p) otherwise.
func FromPtr[T any](p *T) Option[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// IsPresent reports whether o holds a value.
func (o Option[T]) IsPresent() bool { return o.ok }

// IsAbsent reports whether o holds nothing.
func (o Option[T]) IsAbsent() bool { return !o.ok }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.v, o.ok }

// MustGet returns the value or panics when o is absent.
func (o Option[T]) MustGet() T {
	if !o.ok {
		panic(fmt.Sprintf("opt: MustGet on absent %s", reflect.TypeFor[T]()))
	}
	return o.v
}

// OrElse returns the value when present and def otherwise.
func (o Option[T]) OrElse(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (o Option[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

// String formats present values as Some(v) and absent ones as None.
func (o Option[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.v)
}

// Value implements driver.Valuer so an Option can be passed directly as a
// statement parameter: absent becomes NULL.
func (o Option[T]) Value() (driver.Value, error) {
	if !o.ok {
		return nil, nil
	}
	if v, ok := any(o.v).(driver.Valuer); ok {
		return v.Value()
	}
	return o.v, nil
}

// Unwrap returns the held value as an interface, or nil when absent.
func (o Option[T]) Unwrap() any {
	if !o.ok {
		return nil
	}
	return o.v
}

// ElemType returns the reflect.Type of T.
func (o *Option[T]) ElemType() reflect.Type { return reflect.TypeFor[T]() }

// SetAny stores v, which must be a T, and marks o present.
func (o *Option[T]) SetAny(v any) {
	o.v = v.(T)
	o.ok = true
}

// Clear marks o absent.
func (o *Option[T]) Clear() {
	var zero T
	o.v = zero
	o.ok = false
}

// Slot is implemented by *Option[T] for every T. Binders use it to fill an
// Option field without knowing T statically.
type Slot interface {
	ElemType() reflect.Type
	SetAny(v any)
	Clear()
}

// Wrapper is implemented by Option[T] for every T. Binders use it to read an
// Option field without knowing T statically.
type Wrapper interface {
	IsPresent() bool
	Unwrap() any
}

var slotType = reflect.TypeFor[Slot]()

// IsOption reports whether t is an Option instantiation.
func IsOption(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(slotType) && t.Implements(reflect.TypeFor[Wrapper]())
}

// ElemOf returns T for t == Option[T]. ok is false for other types.
func ElemOf(t reflect.Type) (reflect.Type, bool) {
	if !IsOption(t) {
		return nil, false
	}
	return reflect.Zero(reflect.PointerTo(t)).Interface().(Slot).ElemType(), true
}
