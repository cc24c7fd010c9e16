package scanner

import (
	"reflect"
	"strings"
	"sync"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/model"
	"github.com/nlimpid/ironsql/naming"
	"github.com/nlimpid/ironsql/opt"
)

// Row is one raw result row: column names paired positionally with the
// values the driver produced. It is consumed by Bind and not retained.
type Row struct {
	Columns []string
	Values  []any

	index map[string]int
}

// Get returns the value of column. An exact name match wins; otherwise the
// lookup ignores case.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	if r.index != nil {
		if i, ok := r.index[strings.ToLower(column)]; ok {
			return r.Values[i], true
		}
		return nil, false
	}
	for i, c := range r.Columns {
		if strings.EqualFold(c, column) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Result is the materialised outcome of one statement: the rows of a read,
// or the affected-row count of a write.
type Result struct {
	Columns []string
	Rows    [][]any

	// Affected is the driver-reported count for writes.
	Affected int64
	// InsertID is the generated key reported by the driver, when supported.
	InsertID opt.Option[int64]
	// Naming resolves field names when binding models from this result.
	Naming naming.Strategy

	indexOnce sync.Once
	index     map[string]int
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// RowsAffected returns the number of rows changed by a write statement.
func (r *Result) RowsAffected() int64 { return r.Affected }

// LastInsertID returns the generated key of a write, when the driver reports
// one.
func (r *Result) LastInsertID() opt.Option[int64] { return r.InsertID }

// Row returns row i.
func (r *Result) Row(i int) Row {
	r.indexOnce.Do(func() {
		r.index = make(map[string]int, len(r.Columns))
		for i, c := range r.Columns {
			key := strings.ToLower(c)
			if _, dup := r.index[key]; !dup {
				r.index[key] = i
			}
		}
	})
	return Row{Columns: r.Columns, Values: r.Rows[i], index: r.index}
}

// Single binds the only row of r. It fails with NoResultError when r is
// empty and MultipleResultsError when it has more than one row.
func Single[T any](r *Result) (T, error) {
	var zero T
	switch n := r.Len(); {
	case n == 0:
		return zero, dberr.ErrNoResult
	case n > 1:
		return zero, &dberr.MultipleResultsError{Count: n}
	}
	bind, err := binderFor[T](r)
	if err != nil {
		return zero, err
	}
	return bind(r.Row(0))
}

// First binds the first row of r, or returns None when r is empty.
func First[T any](r *Result) (opt.Option[T], error) {
	if r.Len() == 0 {
		return opt.None[T](), nil
	}
	bind, err := binderFor[T](r)
	if err != nil {
		return opt.None[T](), err
	}
	v, err := bind(r.Row(0))
	if err != nil {
		return opt.None[T](), err
	}
	return opt.Some(v), nil
}

// List binds every row of r in driver order.
func List[T any](r *Result) ([]T, error) {
	bind, err := binderFor[T](r)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, r.Len())
	for i := range r.Rows {
		v, err := bind(r.Row(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// binderFor resolves how T is bound once per result: through its own
// ScanTargets when *T is a Scanner, through its Descriptor otherwise.
func binderFor[T any](r *Result) (func(Row) (T, error), error) {
	t := reflect.TypeFor[T]()
	if implementsScanner(t) {
		return func(row Row) (T, error) {
			var out T
			if err := scanInto(any(&out).(Scanner), row); err != nil {
				var zero T
				return zero, err
			}
			return out, nil
		}, nil
	}

	d, err := model.Describe(t, r.Naming)
	if err != nil {
		return nil, err
	}
	return func(row Row) (T, error) { return Bind[T](d, row) }, nil
}
