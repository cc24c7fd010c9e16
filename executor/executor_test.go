package executor

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/internal/fakedb"
	"github.com/nlimpid/ironsql/naming"
	"github.com/nlimpid/ironsql/opt"
	"github.com/nlimpid/ironsql/scanner"
)

func TestCountPlaceholders(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"none", "SELECT 1", 0},
		{"question marks", "INSERT INTO users (name, age, active) VALUES (?, ?, ?)", 3},
		{"single quoted", "SELECT '?' , ? FROM t", 1},
		{"escaped quote", "SELECT 'it''s ?', ?", 1},
		{"double quoted identifier", `SELECT "a?b" FROM t WHERE x = ?`, 1},
		{"backtick identifier", "SELECT `a?` FROM t WHERE x = ?", 1},
		{"line comment", "SELECT ? -- and ?\n, ?", 2},
		{"block comment", "SELECT /* ? ? */ ?", 1},
		{"numbered", "SELECT $1, $2, $1", 2},
		{"numbered sparse", "SELECT $3", 3},
		{"dollar quoted", "SELECT $$ ? $1 $$, $1", 1},
		{"tagged dollar quoted", "SELECT $fn$ ? $fn$, $1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountPlaceholders(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountPlaceholdersErrors(t *testing.T) {
	for _, q := range []string{
		"SELECT 'open",
		"SELECT /* open",
		"SELECT $$ open",
		"SELECT ?, $1",
	} {
		_, err := CountPlaceholders(q)
		assert.Error(t, err, q)
	}
}

func TestIsRead(t *testing.T) {
	reads := []string{
		"SELECT 1",
		"  select * from users",
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"(SELECT 1) UNION (SELECT 2)",
		"-- comment\nSELECT 1",
		"/* c */ VALUES (1)",
		"INSERT INTO users (name) VALUES (?) RETURNING id",
		"PRAGMA table_info('users')",
		"WITH RECURSIVE t(n) AS (SELECT 1 UNION ALL SELECT n+1 FROM t WHERE n < 3) SELECT * FROM t",
		"WITH x AS (SELECT 1) DELETE FROM users WHERE id IN (SELECT * FROM x) RETURNING id",
		"with \"delete\" as materialized (select 'update') select * from \"delete\"",
	}
	for _, q := range reads {
		assert.True(t, IsRead(q), q)
	}

	writes := []string{
		"INSERT INTO users (name) VALUES ('returning')",
		"UPDATE users SET age = 1",
		"CREATE TABLE users (name TEXT)",
		"DELETE FROM users",
		"WITH x AS (SELECT 1) DELETE FROM users WHERE id IN (SELECT * FROM x)",
		"WITH stale AS (SELECT id FROM users WHERE age > 90) UPDATE users SET active = false FROM stale WHERE users.id = stale.id",
		"WITH moved AS (DELETE FROM users RETURNING *) INSERT INTO archive SELECT * FROM moved",
		"",
	}
	for _, q := range writes {
		assert.False(t, IsRead(q), q)
	}
}

func TestExecuteRead(t *testing.T) {
	fake := fakedb.New()
	fake.OnQuery = func(query string, args []driver.NamedValue) ([]string, [][]driver.Value, error) {
		return []string{"name", "age", "active"}, [][]driver.Value{{"John Doe", int64(30), true}}, nil
	}
	db := fake.Open()
	defer db.Close()

	e := New(WithNaming(naming.SnakeCase))
	res, err := e.Execute(context.Background(), db, "SELECT name, age, active FROM users WHERE name = ?", "John Doe")
	require.NoError(t, err)
	assert.Equal(t, naming.SnakeCase, res.Naming)
	require.Equal(t, 1, res.Len())

	type user struct {
		Name   string
		Age    int
		Active bool
	}
	u, err := scanner.Single[user](res)
	require.NoError(t, err)
	assert.Equal(t, user{Name: "John Doe", Age: 30, Active: true}, u)

	events := fake.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "query", events[0].Op)
	assert.Equal(t, []any{"John Doe"}, events[0].Args)
}

func TestExecuteWrite(t *testing.T) {
	fake := fakedb.New()
	fake.OnExec = func(string, []driver.NamedValue) (driver.Result, error) {
		return fakedb.Result{ID: 9, Affected: 2}, nil
	}
	db := fake.Open()
	defer db.Close()

	res, err := New().Execute(context.Background(), db, "UPDATE users SET active = ?", false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected())
	assert.Equal(t, opt.Some(int64(9)), res.LastInsertID())
	assert.Zero(t, res.Len())

	res, err = New().Execute(context.Background(), fake.Open(), "DELETE FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected())
	res, err = New().Execute(context.Background(), db, "WITH old AS (SELECT name FROM users WHERE age > ?) DELETE FROM users WHERE name IN (SELECT name FROM old)", 90)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected())
	assert.Equal(t, "exec", fake.Events()[len(fake.Events())-1].Op)
}

func TestExecuteWriteWithoutInsertID(t *testing.T) {
	fake := fakedb.New()
	db := fake.Open()
	defer db.Close()

	res, err := New().Execute(context.Background(), db, "DELETE FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected())
	assert.True(t, res.LastInsertID().IsAbsent())
}

func TestExecuteParameterCount(t *testing.T) {
	fake := fakedb.New()
	db := fake.Open()
	defer db.Close()

	_, err := New().Execute(context.Background(), db, "INSERT INTO users (name, age) VALUES (?, ?)", "a")
	var pce *dberr.ParameterCountError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, 2, pce.Want)
	assert.Equal(t, 1, pce.Got)
	assert.Zero(t, fake.Statements())

	_, err = New().Execute(context.Background(), db, "SELECT 1", 1)
	require.ErrorAs(t, err, &pce)
	assert.Zero(t, fake.Statements())
}

func TestExecuteDriverError(t *testing.T) {
	boom := errors.New("syntax error")
	fake := fakedb.New()
	fake.OnQuery = func(string, []driver.NamedValue) ([]string, [][]driver.Value, error) {
		return nil, nil, boom
	}
	fake.OnExec = func(string, []driver.NamedValue) (driver.Result, error) {
		return nil, boom
	}
	db := fake.Open()
	defer db.Close()

	_, err := New().Execute(context.Background(), db, "SELECT nope")
	var de *dberr.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "query", de.Op)
	assert.ErrorIs(t, err, boom)

	_, err = New().Execute(context.Background(), db, "CREATE TABLE")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "exec", de.Op)
	assert.ErrorIs(t, err, boom)
}

func TestExecuteNormalizesOptions(t *testing.T) {
	fake := fakedb.New()
	db := fake.Open()
	defer db.Close()

	_, err := New().Execute(context.Background(), db, "INSERT INTO users (name, age) VALUES (?, ?)",
		opt.Some("a"), opt.None[int]())
	require.NoError(t, err)

	events := fake.Events()
	require.Len(t, events, 1)
	assert.Equal(t, []any{"a", nil}, events[0].Args)
}

func TestExecuteCancelledBeforeStart(t *testing.T) {
	fake := fakedb.New()
	db := fake.Open()
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Execute(ctx, db, "SELECT 1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fake.Statements())
}

func TestExecuteLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fake := fakedb.New()
	db := fake.Open()
	defer db.Close()

	_, err := New(WithLogger(log), WithLogParams(true)).Execute(context.Background(), db, "DELETE FROM users WHERE name = ?", "secret")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "statement executed")
	assert.Contains(t, buf.String(), "secret")

	buf.Reset()
	_, err = New(WithLogger(log)).Execute(context.Background(), db, "DELETE FROM users WHERE name = ?", "secret")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), "params=1")
}
