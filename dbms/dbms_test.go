package dbms

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlimpid/ironsql/dberr"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		target string
		driver string
		dsn    string
	}{
		{"duckdb:", "duckdb", ""},
		{"duckdb", "duckdb", ""},
		{"duckdb:/tmp/app.db", "duckdb", "/tmp/app.db"},
		{"jdbc:duckdb:data.db", "duckdb", "data.db"},
		{"DuckDB:", "duckdb", ""},
		{"postgres://u:p@localhost:5432/app?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/app?sslmode=disable"},
		{"postgresql://localhost/app", "postgres", "postgresql://localhost/app"},
		{"jdbc:postgresql://localhost/app", "postgres", "postgresql://localhost/app"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			d, dsn, err := Resolve(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.Driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	_, _, err := Resolve("jdbc:oracle:thin:@host")
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Contains(t, err.Error(), `"oracle"`)
}

func TestRegister(t *testing.T) {
	Register(DBMS{Name: "memdb", Driver: "memdb", DSN: func(string) string { return "mem" }}, "mem")

	d, dsn, err := Resolve("mem:anything")
	require.NoError(t, err)
	assert.Equal(t, "memdb", d.Name)
	assert.Equal(t, "mem", dsn)

	_, ok := Lookup("MEMDB")
	assert.True(t, ok)
}

func TestSQLState(t *testing.T) {
	err := &dberr.DriverError{Op: "exec", Err: &pq.Error{Code: "23505", Message: "duplicate key"}}

	code, ok := SQLState(err)
	require.True(t, ok)
	assert.Equal(t, "23505", code)

	name, ok := ConditionName(fmt.Errorf("insert: %w", err))
	require.True(t, ok)
	assert.Equal(t, "unique_violation", name)

	_, ok = SQLState(errors.New("plain"))
	assert.False(t, ok)
}
