// Package fakedb is a scriptable database/sql driver for tests. It records
// every driver call so tests can assert what reached the database and in what
// order, and lets them inject failures at each step.
package fakedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

// QueryHandler answers a read.
type QueryHandler func(query string, args []driver.NamedValue) (cols []string, rows [][]driver.Value, err error)

// ExecHandler answers a write.
type ExecHandler func(query string, args []driver.NamedValue) (driver.Result, error)

// Event is one recorded driver call.
type Event struct {
	Op    string // "query", "exec", "begin", "commit", "rollback", "close"
	Query string
	Args  []any
}

// DB is the shared state behind every connection opened from it.
type DB struct {
	mu     sync.Mutex
	events []Event

	OnQuery     QueryHandler
	OnExec      ExecHandler
	BeginErr    error
	CommitErr   error
	RollbackErr error
}

// New returns a DB whose reads return no rows and whose writes affect one row.
func New() *DB {
	return &DB{
		OnQuery: func(string, []driver.NamedValue) ([]string, [][]driver.Value, error) {
			return nil, nil, nil
		},
		OnExec: func(string, []driver.NamedValue) (driver.Result, error) {
			return driver.RowsAffected(1), nil
		},
	}
}

// Open returns a *sql.DB backed by d.
func (d *DB) Open() *sql.DB {
	return sql.OpenDB(&connector{db: d})
}

// Events returns a copy of the recorded calls.
func (d *DB) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Ops returns the Op of every recorded call.
func (d *DB) Ops() []string {
	events := d.Events()
	ops := make([]string, len(events))
	for i, e := range events {
		ops[i] = e.Op
	}
	return ops
}

// Statements returns the number of query and exec calls.
func (d *DB) Statements() int {
	n := 0
	for _, e := range d.Events() {
		if e.Op == "query" || e.Op == "exec" {
			n++
		}
	}
	return n
}

func (d *DB) record(op, query string, args []driver.NamedValue) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	d.mu.Lock()
	d.events = append(d.events, Event{Op: op, Query: query, Args: vals})
	d.mu.Unlock()
}

type connector struct{ db *DB }

func (c *connector) Connect(context.Context) (driver.Conn, error) { return &conn{db: c.db}, nil }
func (c *connector) Driver() driver.Driver                        { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("fakedb: use sql.OpenDB with a connector")
}

type conn struct{ db *DB }

func (c *conn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *conn) Begin() (driver.Tx, error)           { return c.BeginTx(context.Background(), driver.TxOptions{}) }

func (c *conn) Close() error {
	c.db.record("close", "", nil)
	return nil
}

// CheckNamedValue accepts every argument unchanged.
func (c *conn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.db.record("begin", "", nil)
	if c.db.BeginErr != nil {
		return nil, c.db.BeginErr
	}
	return &tx{db: c.db}, nil
}

func (c *conn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.db.record("query", query, args)
	cols, data, err := c.db.OnQuery(query, args)
	if err != nil {
		return nil, err
	}
	return &rows{cols: cols, data: data}, nil
}

func (c *conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.db.record("exec", query, args)
	return c.db.OnExec(query, args)
}

type tx struct{ db *DB }

func (t *tx) Commit() error {
	t.db.record("commit", "", nil)
	return t.db.CommitErr
}

func (t *tx) Rollback() error {
	t.db.record("rollback", "", nil)
	return t.db.RollbackErr
}

type rows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *rows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *rows) Close() error      { return nil }
func (r *rows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

// Result is a driver.Result with a generated key.
type Result struct {
	ID       int64
	Affected int64
}

func (r Result) LastInsertId() (int64, error) { return r.ID, nil }
func (r Result) RowsAffected() (int64, error) { return r.Affected, nil }
