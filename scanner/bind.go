package scanner

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/model"
	"github.com/nlimpid/ironsql/opt"
)

var (
	errNull     = errors.New("NULL into a non-optional field")
	errOverflow = errors.New("value out of range")
)

// Bind converts one row into a T described by d. Every field is looked up by
// its resolved column name: a missing column leaves an optional field absent
// and fails a required one with MissingColumnError. Values whose runtime type
// does not match the field kind fail with TypeMismatchError.
func Bind[T any](d *model.Descriptor, row Row) (T, error) {
	var out T
	if t := reflect.TypeFor[T](); d.Type != t {
		return out, fmt.Errorf("scanner: descriptor of %s cannot bind %s", d.Type, t)
	}
	if err := bindValue(d, row, reflect.ValueOf(&out).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func bindValue(d *model.Descriptor, row Row, rv reflect.Value) error {
	if d.Scalar {
		f := d.Fields[0]
		if len(row.Values) == 0 {
			return &dberr.MissingColumnError{Field: f.Name}
		}
		f.Column = row.Columns[0]
		return assignField(&f, rv, row.Values[0])
	}

	for i := range d.Fields {
		f := &d.Fields[i]
		raw, ok := row.Get(f.Column)
		if !ok {
			if f.Optional {
				continue
			}
			return &dberr.MissingColumnError{Field: f.Name, Column: f.Column}
		}
		if err := assignField(f, rv.FieldByIndex(f.Index), raw); err != nil {
			return err
		}
	}
	return nil
}

func assignField(f *model.Field, dst reflect.Value, raw any) error {
	mismatch := func(err error) error {
		return &dberr.TypeMismatchError{Field: f.Name, Column: f.Column, Want: f.Kind.String(), Got: raw, Err: err}
	}

	if raw == nil {
		if f.Optional {
			dst.Addr().Interface().(opt.Slot).Clear()
			return nil
		}
		return mismatch(errNull)
	}

	if !f.Optional {
		if err := setValue(dst, f.Kind, raw); err != nil {
			return mismatch(err)
		}
		return nil
	}

	tmp := reflect.New(f.Elem).Elem()
	if err := setValue(tmp, f.Kind, raw); err != nil {
		return mismatch(err)
	}
	dst.Addr().Interface().(opt.Slot).SetAny(tmp.Interface())
	return nil
}

// setValue stores raw into dst. Integers widen into wider integers and into
// floats; integers also feed booleans (non-zero is true). Text never converts
// to another kind.
func setValue(dst reflect.Value, kind model.Kind, raw any) error {
	switch kind {
	case model.KindInt:
		n, ok := asInt(raw)
		if !ok {
			return errType(raw)
		}
		if dst.OverflowInt(n) {
			return errOverflow
		}
		dst.SetInt(n)
	case model.KindUint:
		u, ok := asUint(raw)
		if !ok {
			n, isInt := asInt(raw)
			if !isInt {
				return errType(raw)
			}
			if n < 0 {
				return errOverflow
			}
			u = uint64(n)
		}
		if dst.OverflowUint(u) {
			return errOverflow
		}
		dst.SetUint(u)
	case model.KindFloat:
		x, ok := asFloat(raw)
		if !ok {
			return errType(raw)
		}
		if dst.OverflowFloat(x) {
			return errOverflow
		}
		dst.SetFloat(x)
	case model.KindBool:
		switch v := raw.(type) {
		case bool:
			dst.SetBool(v)
		default:
			n, ok := asInt(raw)
			if !ok {
				return errType(raw)
			}
			dst.SetBool(n != 0)
		}
	case model.KindString:
		switch v := raw.(type) {
		case string:
			dst.SetString(v)
		case []byte:
			dst.SetString(string(v))
		default:
			return errType(raw)
		}
	case model.KindTime:
		v, ok := raw.(time.Time)
		if !ok {
			return errType(raw)
		}
		dst.Set(reflect.ValueOf(v))
	case model.KindJSON:
		var data []byte
		switch v := raw.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			data = b
		default:
			return errType(raw)
		}
		if err := json.Unmarshal(data, dst.Addr().Interface()); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	default:
		return fmt.Errorf("unsupported kind %s", kind)
	}
	return nil
}

func errType(raw any) error {
	return fmt.Errorf("incompatible driver type %T", raw)
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case *big.Int:
		return v.Int64(), v.IsInt64()
	}
	return 0, false
}

func asUint(raw any) (uint64, bool) {
	switch v := raw.(type) {
	case uint:
		return uint64(v), true
	case uint64:
		return v, true
	case *big.Int:
		return v.Uint64(), v.IsUint64()
	}
	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case interface{ Float64() float64 }:
		return v.Float64(), true
	}
	if n, ok := asInt(raw); ok {
		return float64(n), true
	}
	return 0, false
}

// Unbind extracts the field values of v in descriptor order, ready to be
// passed as positional statement parameters. Absent optional fields become
// nil; JSON fields are encoded to text.
func Unbind(d *model.Descriptor, v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("scanner: unbind: nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Type() != d.Type {
		return nil, fmt.Errorf("scanner: descriptor of %s cannot unbind %s", d.Type, rv.Type())
	}

	if d.Scalar {
		p, err := paramOf(&d.Fields[0], rv)
		if err != nil {
			return nil, err
		}
		return []any{p}, nil
	}

	params := make([]any, len(d.Fields))
	for i := range d.Fields {
		p, err := paramOf(&d.Fields[i], rv.FieldByIndex(d.Fields[i].Index))
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return params, nil
}

func paramOf(f *model.Field, fv reflect.Value) (any, error) {
	if f.Optional {
		w := fv.Interface().(opt.Wrapper)
		if !w.IsPresent() {
			return nil, nil
		}
		fv = reflect.ValueOf(w.Unwrap())
	}

	switch f.Kind {
	case model.KindInt:
		return fv.Int(), nil
	case model.KindUint:
		return fv.Uint(), nil
	case model.KindFloat:
		return fv.Float(), nil
	case model.KindBool:
		return fv.Bool(), nil
	case model.KindString:
		return fv.String(), nil
	case model.KindTime:
		return fv.Interface(), nil
	case model.KindJSON:
		b, err := json.Marshal(fv.Interface())
		if err != nil {
			return nil, fmt.Errorf("scanner: encode %s as json: %w", f.Name, err)
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("scanner: unsupported kind %s for field %s", f.Kind, f.Name)
}
