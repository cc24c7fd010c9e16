// Package iron is the entry point of ironsql. Connect opens one database
// connection and returns a Handle offering two views of it: Blocking, whose
// calls return when the database has answered, and Completable, whose calls
// return futures.
//
//	h, err := iron.Connect(ctx, "duckdb:")
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	_, err = h.Blocking().Transaction(ctx, func(s *iron.Scope) error {
//	    if err := s.Prepare("INSERT INTO users VALUES (?, ?, ?)", "John Doe", 30, true); err != nil {
//	        return err
//	    }
//	    return s.AfterCommit(func() error {
//	        log.Println("saved")
//	        return nil
//	    })
//	})
//
//	res, err := h.Blocking().Prepare(ctx, "SELECT * FROM users")
//	user, err := iron.Single[User](res)
//
// Both views share the connection. Statements and transactions on it are
// serialized; a unit of work only queues statements, so it may freely call
// back into either view.
package iron

import (
	"context"
	"database/sql"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/semaphore"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/dbms"
	"github.com/nlimpid/ironsql/executor"
	"github.com/nlimpid/ironsql/model"
	"github.com/nlimpid/ironsql/naming"
	"github.com/nlimpid/ironsql/opt"
	"github.com/nlimpid/ironsql/scanner"
	"github.com/nlimpid/ironsql/tx"
)

type (
	// Result is the materialised outcome of a statement.
	Result = scanner.Result
	// Scope is the handle a transaction's unit of work receives.
	Scope = tx.Scope
	// Outcome summarises a committed transaction.
	Outcome = tx.Outcome
)

// Single binds the only row of r.
func Single[T any](r *Result) (T, error) { return scanner.Single[T](r) }

// First binds the first row of r, if any.
func First[T any](r *Result) (opt.Option[T], error) { return scanner.First[T](r) }

// List binds every row of r.
func List[T any](r *Result) ([]T, error) { return scanner.List[T](r) }

// Handle owns one database connection.
type Handle struct {
	e           *engine
	blocking    *Blocking
	completable *Completable
}

// Connect opens target and pins one connection for the returned Handle.
// See package dbms for the accepted targets.
func Connect(ctx context.Context, target string, opts ...Option) (*Handle, error) {
	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}

	driverName, dsn := cfg.driver, target
	if driverName == "" {
		d, resolved, err := dbms.Resolve(target)
		if err != nil {
			return nil, err
		}
		driverName, dsn = d.Driver, resolved
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &dberr.DriverError{Op: "open", Err: err}
	}
	h, err := open(ctx, db, true, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	cfg.log.Debug("connected", "driver", driverName)
	return h, nil
}

// Open pins one connection of a caller-owned pool. Closing the Handle
// returns the connection to db but leaves db open.
func Open(ctx context.Context, db *sql.DB, opts ...Option) (*Handle, error) {
	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}
	return open(ctx, db, false, cfg)
}

func open(ctx context.Context, db *sql.DB, ownsDB bool, cfg *settings) (*Handle, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &dberr.DriverError{Op: "connect", Err: err}
	}
	exec := cfg.executor()
	e := &engine{
		db:     db,
		ownsDB: ownsDB,
		conn:   conn,
		lock:   semaphore.NewWeighted(1),
		exec:   exec,
		coord:  tx.New(exec, tx.WithTxOptions(cfg.txOpts)),
		log:    cfg.log,
		naming: cfg.naming,
	}
	return &Handle{
		e:           e,
		blocking:    &Blocking{e: e},
		completable: &Completable{e: e, slots: semaphore.NewWeighted(cfg.workers)},
	}, nil
}

// Blocking returns the synchronous view of the connection.
func (h *Handle) Blocking() *Blocking { return h.blocking }

// Completable returns the future-based view of the connection.
func (h *Handle) Completable() *Completable { return h.completable }

// Close releases the connection. Later operations on either view, and
// later calls to Close, fail with dberr.ClosedConnectionError.
func (h *Handle) Close() error { return h.e.close() }

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool { return h.e.closed.Load() }

// OnClose registers fn to run once the connection has been released.
func (h *Handle) OnClose(fn func()) {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	h.e.onClose = append(h.e.onClose, fn)
}

// Naming returns the naming strategy results are bound with.
func (h *Handle) Naming() naming.Strategy { return h.e.naming }

// Params returns the fields of model v as positional parameters in
// declaration order, ready for an INSERT listing every column.
func (h *Handle) Params(v any) ([]any, error) {
	d, err := h.describe(v)
	if err != nil {
		return nil, err
	}
	return scanner.Unbind(d, v)
}

// NamedParams returns the fields of model v keyed by column name, for
// PrepareNamed. Merge several models or extra values with maps.Copy.
func (h *Handle) NamedParams(v any) (map[string]any, error) {
	d, err := h.describe(v)
	if err != nil {
		return nil, err
	}
	values, err := scanner.Unbind(d, v)
	if err != nil {
		return nil, err
	}
	named := make(map[string]any, len(values))
	for i, col := range d.Columns() {
		named[col] = values[i]
	}
	return named, nil
}

func (h *Handle) describe(v any) (*model.Descriptor, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return nil, &dberr.UnsupportedModelError{Reason: "nil model"}
	}
	return model.Describe(t, h.e.naming)
}

// Columns returns the column names of model type T in declaration order.
func Columns[T any](h *Handle) ([]string, error) {
	d, err := model.DescriptorOf[T](h.e.naming)
	if err != nil {
		return nil, err
	}
	return d.Columns(), nil
}

// acquirer hands out exclusive use of the connection.
type acquirer func(ctx context.Context) (*sql.Conn, func(), error)

// engine is the single synchronous core both views delegate to.
type engine struct {
	db     *sql.DB
	ownsDB bool
	conn   *sql.Conn
	lock   *semaphore.Weighted
	exec   *executor.Executor
	coord  *tx.Coordinator
	log    *slog.Logger
	naming naming.Strategy

	closed  atomic.Bool
	mu      sync.Mutex
	onClose []func()
}

func (e *engine) acquire(ctx context.Context) (*sql.Conn, func(), error) {
	if e.closed.Load() {
		return nil, nil, dberr.ErrClosed
	}
	if err := e.lock.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	if e.closed.Load() {
		e.lock.Release(1)
		return nil, nil, dberr.ErrClosed
	}
	return e.conn, func() { e.lock.Release(1) }, nil
}

func (e *engine) prepare(ctx context.Context, acquire acquirer, query string, params []any) (*scanner.Result, error) {
	conn, release, err := acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.exec.Execute(ctx, conn, query, params...)
}

func (e *engine) prepareNamed(ctx context.Context, acquire acquirer, query string, params map[string]any) (*scanner.Result, error) {
	if e.closed.Load() {
		return nil, dberr.ErrClosed
	}
	q, args, err := executor.Named(query, params)
	if err != nil {
		return nil, err
	}
	return e.prepare(ctx, acquire, q, args)
}

func (e *engine) transaction(ctx context.Context, acquire acquirer, work func(*tx.Scope) error) (tx.Outcome, error) {
	// A closed handle never runs the unit of work.
	if e.closed.Load() {
		return tx.Outcome{}, dberr.ErrClosed
	}
	return e.coord.Run(ctx, func(ctx context.Context) (tx.Beginner, func(), error) {
		conn, release, err := acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return conn, release, nil
	}, work)
}

func (e *engine) close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return dberr.ErrClosed
	}
	// Wait for the operation holding the connection, if any.
	_ = e.lock.Acquire(context.Background(), 1)
	defer e.lock.Release(1)

	var err error
	if cerr := e.conn.Close(); cerr != nil {
		err = &dberr.DriverError{Op: "close", Err: cerr}
	}
	if e.ownsDB {
		if cerr := e.db.Close(); cerr != nil && err == nil {
			err = &dberr.DriverError{Op: "close", Err: cerr}
		}
	}
	e.log.Debug("connection closed")

	e.mu.Lock()
	listeners := e.onClose
	e.onClose = nil
	e.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return err
}
