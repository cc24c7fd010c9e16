package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/nlimpid/ironsql/opt"
)

// FieldSpec is one persisted field as reported by a Producer, before the
// naming strategy and type classification are applied.
type FieldSpec struct {
	// Name is the Go field name the naming strategy resolves.
	Name string
	// Column overrides the resolved column name when set.
	Column string
	// Index is the reflect index path of the field within the model.
	Index []int
	// Type is the declared field type.
	Type reflect.Type

	PrimaryKey    bool
	AutoIncrement bool
	// JSON stores the field as a JSON text column.
	JSON bool
}

// Shape is the ordered field list of a model type.
type Shape struct {
	Type   reflect.Type
	Fields []FieldSpec
}

// Producer reports the persisted fields of a model type. Descriptor
// construction consumes its output and never inspects tags itself.
type Producer interface {
	Produce(t reflect.Type) (Shape, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(t reflect.Type) (Shape, error)

// Produce calls f(t).
func (f ProducerFunc) Produce(t reflect.Type) (Shape, error) { return f(t) }

// Tags is the default Producer. It reads `db` struct tags:
//
//	ID    int64  `db:"id,pk,auto"`  // column override plus flags
//	Name  string                    // column from the naming strategy
//	Prefs Prefs  `db:",json"`       // JSON encoded text column
//	Note  string `db:"-"`           // not persisted
//
// Unexported fields are skipped and untagged embedded structs are flattened.
var Tags Producer = ProducerFunc(produceFromTags)

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]Shape{}
)

// Register installs an explicit shape for s.Type, taking precedence over
// struct tags. It is the hook for generated binding code. Field Index paths
// left empty are resolved by Name, and missing Types are filled in.
func Register(s Shape) error {
	if s.Type == nil || s.Type.Kind() != reflect.Struct {
		return fmt.Errorf("model: register: shape type must be a struct, got %v", s.Type)
	}
	fields := make([]FieldSpec, len(s.Fields))
	for i, f := range s.Fields {
		if len(f.Index) == 0 {
			sf, ok := s.Type.FieldByName(f.Name)
			if !ok {
				return fmt.Errorf("model: register %s: no field %q", s.Type, f.Name)
			}
			f.Index = sf.Index
		}
		sf, err := fieldByIndex(s.Type, f.Index)
		if err != nil {
			return fmt.Errorf("model: register %s: field %q: %w", s.Type, f.Name, err)
		}
		if !settable(s.Type, f.Index) {
			return fmt.Errorf("model: register %s: field %q is not exported", s.Type, f.Name)
		}
		if f.Type == nil {
			f.Type = sf.Type
		} else if f.Type != sf.Type {
			return fmt.Errorf("model: register %s: field %q declared as %s but is %s", s.Type, f.Name, f.Type, sf.Type)
		}
		if f.Name == "" {
			f.Name = sf.Name
		}
		fields[i] = f
	}

	registryMu.Lock()
	registry[s.Type] = Shape{Type: s.Type, Fields: fields}
	registryMu.Unlock()
	forget(s.Type)
	return nil
}

// ShapeOf builds a Shape for T from field specs, usually to pass to Register.
func ShapeOf[T any](fields ...FieldSpec) Shape {
	return Shape{Type: reflect.TypeFor[T](), Fields: fields}
}

func produce(t reflect.Type) (Shape, error) {
	registryMu.RLock()
	s, ok := registry[t]
	registryMu.RUnlock()
	if ok {
		return s, nil
	}
	return Tags.Produce(t)
}

func produceFromTags(t reflect.Type) (Shape, error) {
	shape := Shape{Type: t}
	if t.Kind() != reflect.Struct {
		return shape, nil
	}
	walkFields(t, nil, &shape.Fields)
	return shape, nil
}

func walkFields(t reflect.Type, base []int, out *[]FieldSpec) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("db")
		if tag == "-" {
			continue
		}
		col, opts := parseTag(tag)
		path := appendIndex(base, i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && col == "" && !opts["json"] && !isLeafStruct(sf.Type) {
			walkFields(sf.Type, path, out)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		*out = append(*out, FieldSpec{
			Name:          sf.Name,
			Column:        col,
			Index:         path,
			Type:          sf.Type,
			PrimaryKey:    opts["pk"] || opts["primary"],
			AutoIncrement: opts["auto"] || opts["autoincr"] || opts["identity"],
			JSON:          opts["json"],
		})
	}
}

// isLeafStruct reports struct types bound as a single column.
func isLeafStruct(t reflect.Type) bool {
	return t == timeType || opt.IsOption(t)
}

// parseTag splits "col,opt1,opt2".
func parseTag(tag string) (string, map[string]bool) {
	opts := map[string]bool{}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", opts
	}
	parts := strings.Split(tag, ",")
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			opts[strings.ToLower(p)] = true
		}
	}
	return strings.TrimSpace(parts[0]), opts
}

func appendIndex(parent []int, i int) []int {
	idx := make([]int, 0, len(parent)+1)
	idx = append(idx, parent...)
	return append(idx, i)
}

// settable reports whether reflection can assign the field at index. Only
// untagged embedded structs may be unexported along the way, and only when
// they are not pointers.
func settable(t reflect.Type, index []int) bool {
	for i, x := range index {
		sf := t.Field(x)
		last := i == len(index)-1
		if !sf.IsExported() && (last || !sf.Anonymous || sf.Type.Kind() == reflect.Pointer) {
			return false
		}
		t = sf.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	}
	return true
}

func fieldByIndex(t reflect.Type, index []int) (sf reflect.StructField, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid index %v: %v", index, r)
		}
	}()
	return t.FieldByIndex(index), nil
}
