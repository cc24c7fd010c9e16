package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/internal/fakedb"
)

func TestNamed(t *testing.T) {
	params := map[string]any{"id": 7, "name": "John Doe", "note": nil, "名前": "x"}
	tests := []struct {
		name  string
		query string
		want  string
		args  []any
	}{
		{"none", "SELECT 1", "SELECT 1", nil},
		{"single", "SELECT * FROM users WHERE id = :id", "SELECT * FROM users WHERE id = ?", []any{7}},
		{"repeated", "SELECT :id, :name, :id", "SELECT ?, ?, ?", []any{7, "John Doe", 7}},
		{"nil binds null", "UPDATE users SET note = :note", "UPDATE users SET note = ?", []any{nil}},
		{"cast", "SELECT :id::BIGINT", "SELECT ?::BIGINT", []any{7}},
		{"quoted", "SELECT ':id', \":name\", `:x`, :id", "SELECT ':id', \":name\", `:x`, ?", []any{7}},
		{"comments", "SELECT :id -- :name\n/* :name */", "SELECT ? -- :name\n/* :name */", []any{7}},
		{"dollar quoted", "SELECT $$ :name $$, :id", "SELECT $$ :name $$, ?", []any{7}},
		{"slice bounds", "SELECT arr[1:2] FROM t WHERE id = :id", "SELECT arr[1:2] FROM t WHERE id = ?", []any{7}},
		{"bare colon", "SELECT ':' || x FROM t WHERE a = : ", "SELECT ':' || x FROM t WHERE a = : ", nil},
		{"unicode name", "SELECT :名前", "SELECT ?", []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := Named(tt.query, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestNamedErrors(t *testing.T) {
	_, _, err := Named("SELECT * FROM users WHERE id = :id AND name = :name", map[string]any{"id": 1})
	var unbound *dberr.UnboundParameterError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "name", unbound.Name)

	_, _, err = Named("SELECT ':id", map[string]any{"id": 1})
	assert.Error(t, err)
}

func TestExecuteNamed(t *testing.T) {
	fake := fakedb.New()
	db := fake.Open()
	defer db.Close()

	q, args, err := Named("UPDATE users SET age = :age WHERE name = :name", map[string]any{"name": "John Doe", "age": 31})
	require.NoError(t, err)
	_, err = New().Execute(context.Background(), db, q, args...)
	require.NoError(t, err)

	events := fake.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "UPDATE users SET age = ? WHERE name = ?", events[0].Query)
	assert.Equal(t, []any{int64(31), "John Doe"}, events[0].Args)
}
