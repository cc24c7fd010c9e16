package scanner

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/nlimpid/ironsql/model"
)

// Scanner describes a type that picks its own destinations for a set of
// column names instead of being bound through its Descriptor.
// See ScanTargets for the detailed contract.
type Scanner interface {
	// ScanTargets returns a slice of pointers matching the provided columns.
	// Each pointer receives the column value under the same conversion rules
	// as a model field of the pointed-to type. A nil entry skips the column.
	ScanTargets(columns []string) []any
}

// QueryOption configures how raw rows are read.
type QueryOption func(*queryConfig)

type queryConfig struct {
	expectedSize int
}

// WithExpectedSize pre-allocates row capacity for better performance when the
// approximate row count is known ahead of time.
func WithExpectedSize(size int) QueryOption {
	return func(c *queryConfig) {
		c.expectedSize = size
	}
}

// ReadRows consumes rows and returns every row's raw column values in the
// order they are produced by the driver. It does not close rows.
func ReadRows(rows *sql.Rows, opts ...QueryOption) (*Result, error) {
	cfg := &queryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &Result{
		Columns: columns,
		Rows:    make([][]any, 0, cfg.expectedSize),
	}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ScanMap creates a ScanTargets-compatible slice from a column-to-field map.
// Columns not present in mapping receive a nil entry and are ignored.
func ScanMap(columns []string, mapping map[string]any) []any {
	targets := make([]any, len(columns))
	for i, col := range columns {
		if target, ok := mapping[col]; ok {
			targets[i] = target
		}
	}
	return targets
}

var scannerType = reflect.TypeFor[Scanner]()

func implementsScanner(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(scannerType)
}

// scanInto fills the destinations returned by s.ScanTargets from row.
func scanInto(s Scanner, row Row) error {
	targets := s.ScanTargets(row.Columns)
	if len(targets) != len(row.Columns) {
		return fmt.Errorf("scanner: ScanTargets returned %d targets for %d columns", len(targets), len(row.Columns))
	}
	for i, target := range targets {
		if target == nil {
			continue
		}
		pv := reflect.ValueOf(target)
		if pv.Kind() != reflect.Pointer || pv.IsNil() {
			return fmt.Errorf("scanner: target for column %q is not a non-nil pointer", row.Columns[i])
		}
		dst := pv.Elem()
		if dst.Kind() == reflect.Interface {
			if row.Values[i] != nil {
				dst.Set(reflect.ValueOf(row.Values[i]))
			} else {
				dst.SetZero()
			}
			continue
		}
		f, err := model.FieldFor(dst.Type())
		if err != nil {
			return err
		}
		f.Column = row.Columns[i]
		if err := assignField(&f, dst, row.Values[i]); err != nil {
			return err
		}
	}
	return nil
}
