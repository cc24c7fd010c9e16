// Package model builds Descriptors: the static, per-type metadata that maps a
// Go type's fields onto SQL columns.
//
// A Descriptor is produced once per (type, naming strategy) pair and cached
// for the lifetime of the process. Lookups are lock-free after the first
// construction, and concurrent first lookups construct at most once.
//
//	d, err := model.DescriptorOf[User](naming.SnakeCase)
//	for _, f := range d.Fields {
//	    fmt.Println(f.Name, "->", f.Column)
//	}
//
// Field discovery is delegated to a Producer (struct tags by default, or an
// explicit Shape installed with Register).
package model

import (
	"reflect"
	"strings"
	"time"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/naming"
	"github.com/nlimpid/ironsql/opt"
)

// Kind is the semantic column type of a field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindFloat
	KindBool
	KindString
	KindTime
	KindJSON
)

var kindNames = [...]string{"invalid", "integer", "unsigned integer", "floating point", "boolean", "text", "timestamp", "json"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var timeType = reflect.TypeFor[time.Time]()

// Field describes one persisted field.
type Field struct {
	// Name is the Go field name.
	Name string
	// Column is the resolved column name.
	Column string
	// Index is the reflect index path within the model struct. It is nil for
	// scalar descriptors.
	Index []int
	// Type is the declared field type, opt.Option[T] included.
	Type reflect.Type
	// Elem is the value type: T for opt.Option[T], Type otherwise.
	Elem reflect.Type
	Kind Kind
	// Optional fields bind NULL or a missing column as absent.
	Optional bool

	PrimaryKey    bool
	AutoIncrement bool
}

// Descriptor is the immutable column mapping of one model type.
type Descriptor struct {
	Type   reflect.Type
	Naming naming.Strategy
	// Fields are in declaration order.
	Fields []Field
	// Scalar descriptors bind a whole non-struct value from the first column.
	Scalar bool

	byColumn map[string]int
}

// Columns returns the resolved column names in field order.
func (d *Descriptor) Columns() []string {
	cols := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Lookup finds the field bound to column, ignoring case.
func (d *Descriptor) Lookup(column string) (*Field, bool) {
	i, ok := d.byColumn[strings.ToLower(column)]
	if !ok {
		return nil, false
	}
	return &d.Fields[i], true
}

// PrimaryKeys returns the fields flagged as primary key.
func (d *Descriptor) PrimaryKeys() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.PrimaryKey {
			out = append(out, f)
		}
	}
	return out
}

// DescriptorOf is Describe for a static type.
func DescriptorOf[T any](s naming.Strategy) (*Descriptor, error) {
	return Describe(reflect.TypeFor[T](), s)
}

func build(t reflect.Type, s naming.Strategy) (*Descriptor, error) {
	if t == nil {
		return nil, &dberr.UnsupportedModelError{Reason: "nil type"}
	}
	if t.Kind() != reflect.Struct || isLeafStruct(t) {
		return buildScalar(t, s)
	}

	shape, err := produce(t)
	if err != nil {
		return nil, &dberr.UnsupportedModelError{Type: t, Reason: err.Error()}
	}
	if len(shape.Fields) == 0 {
		return nil, &dberr.UnsupportedModelError{Type: t, Reason: "no bindable fields"}
	}

	d := &Descriptor{
		Type:     t,
		Naming:   s,
		Fields:   make([]Field, 0, len(shape.Fields)),
		byColumn: make(map[string]int, len(shape.Fields)),
	}
	for _, spec := range shape.Fields {
		kind, elem, optional, reason := classify(spec.Type, spec.JSON)
		if kind == KindInvalid {
			return nil, &dberr.UnsupportedModelError{Type: t, Field: spec.Name, Reason: reason}
		}
		col := spec.Column
		if col == "" {
			col = s.Resolve(spec.Name)
		}
		key := strings.ToLower(col)
		if prev, dup := d.byColumn[key]; dup {
			return nil, &dberr.UnsupportedModelError{
				Type:   t,
				Field:  spec.Name,
				Reason: "column " + col + " is already bound to field " + d.Fields[prev].Name,
			}
		}
		d.byColumn[key] = len(d.Fields)
		d.Fields = append(d.Fields, Field{
			Name:          spec.Name,
			Column:        col,
			Index:         spec.Index,
			Type:          spec.Type,
			Elem:          elem,
			Kind:          kind,
			Optional:      optional,
			PrimaryKey:    spec.PrimaryKey,
			AutoIncrement: spec.AutoIncrement,
		})
	}
	return d, nil
}

func buildScalar(t reflect.Type, s naming.Strategy) (*Descriptor, error) {
	kind, elem, optional, reason := classify(t, false)
	if kind == KindInvalid {
		return nil, &dberr.UnsupportedModelError{Type: t, Reason: reason}
	}
	return &Descriptor{
		Type:   t,
		Naming: s,
		Scalar: true,
		Fields: []Field{{
			Name:     t.String(),
			Type:     t,
			Elem:     elem,
			Kind:     kind,
			Optional: optional,
		}},
	}, nil
}

// FieldFor classifies a standalone value type, as if it were a field of that
// type. Binders use it for scan targets that are not described by a model.
func FieldFor(t reflect.Type) (Field, error) {
	kind, elem, optional, reason := classify(t, false)
	if kind == KindInvalid {
		return Field{}, &dberr.UnsupportedModelError{Type: t, Reason: reason}
	}
	return Field{Name: t.String(), Type: t, Elem: elem, Kind: kind, Optional: optional}, nil
}

// classify maps a declared field type onto a Kind. Option[T] is unwrapped
// once; reason explains a KindInvalid result.
func classify(t reflect.Type, asJSON bool) (kind Kind, elem reflect.Type, optional bool, reason string) {
	elem = t
	if inner, ok := opt.ElemOf(t); ok {
		if opt.IsOption(inner) {
			return KindInvalid, nil, false, "nested options are not supported"
		}
		elem, optional = inner, true
	}
	if asJSON {
		switch elem.Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			return KindInvalid, nil, false, elem.String() + " cannot be encoded as JSON"
		}
		return KindJSON, elem, optional, ""
	}
	if elem == timeType {
		return KindTime, elem, optional, ""
	}
	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, elem, optional, ""
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint, elem, optional, ""
	case reflect.Float32, reflect.Float64:
		return KindFloat, elem, optional, ""
	case reflect.Bool:
		return KindBool, elem, optional, ""
	case reflect.String:
		return KindString, elem, optional, ""
	case reflect.Pointer:
		return KindInvalid, nil, false, "pointer fields are not supported, use opt.Option"
	}
	return KindInvalid, nil, false, "type " + elem.String() + " has no column mapping"
}
