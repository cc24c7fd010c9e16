package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/executor"
	"github.com/nlimpid/ironsql/scanner"
)

// Beginner starts a database transaction. *sql.DB and *sql.Conn satisfy it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Acquire hands out exclusive use of a connection until release is called.
type Acquire func(ctx context.Context) (conn Beginner, release func(), err error)

// Outcome summarises a committed transaction.
type Outcome struct {
	// Statements is the number of statements applied.
	Statements int
	// RowsAffected is the sum over all applied writes.
	RowsAffected int64
	// Results holds each statement's result in registration order.
	Results []*scanner.Result
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTxOptions sets the options every transaction begins with.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(c *Coordinator) { c.txOpts = opts }
}

// Coordinator runs units of work as transactions.
type Coordinator struct {
	exec   *executor.Executor
	log    *slog.Logger
	txOpts *sql.TxOptions
}

// New returns a Coordinator applying statements through exec.
func New(exec *executor.Executor, opts ...Option) *Coordinator {
	c := &Coordinator{exec: exec, log: exec.Logger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run invokes work with a fresh Scope, then applies the queued statements in
// one transaction on the connection returned by acquire. If work fails or
// panics, or any statement fails, the transaction rolls back and nothing it
// queued is visible. AfterCommit callbacks run only after a successful
// commit, once the connection has been released; their failures are reported
// as a CommitHookError alongside the committed Outcome.
func (c *Coordinator) Run(ctx context.Context, acquire Acquire, work func(*Scope) error) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	scope := newScope()
	if err := c.collect(scope, work); err != nil {
		c.discard(scope, err)
		return Outcome{}, err
	}

	conn, release, err := acquire(ctx)
	if err != nil {
		c.discard(scope, err)
		return Outcome{}, err
	}
	out, err := c.apply(ctx, conn, release, scope)
	if err != nil {
		c.finishRollback(scope, err)
		return Outcome{}, err
	}

	scope.advance(Committed)
	c.log.Debug("transaction committed", "statements", out.Statements, "affected", out.RowsAffected)
	if err := c.runCommitHooks(scope); err != nil {
		return out, err
	}
	return out, nil
}

// collect runs the unit of work. A panic rolls the scope back and is
// re-raised on the caller's goroutine.
func (c *Coordinator) collect(scope *Scope, work func(*Scope) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			c.discard(scope, fmt.Errorf("tx: unit of work panicked: %v", p))
			panic(p)
		}
	}()
	if err := work(scope); err != nil {
		return err
	}
	_, err = scope.pending()
	return err
}

// apply begins, runs every queued statement and commits while holding the
// connection. The scope is left in Committing on success and RollingBack on
// failure. A panicking statement releases the connection and finishes the
// rollback before the panic is re-raised.
func (c *Coordinator) apply(ctx context.Context, conn Beginner, release func(), scope *Scope) (out Outcome, err error) {
	release = sync.OnceFunc(release)
	defer release()

	scope.advance(Committing)
	stmts, _ := scope.pending()
	ctx = context.WithoutCancel(ctx)

	sqlTx, err := conn.BeginTx(ctx, c.txOpts)
	if err != nil {
		scope.advance(RollingBack)
		return Outcome{}, &dberr.DriverError{Op: "begin", Err: err}
	}

	done := false
	defer func() {
		if done {
			return
		}
		p := recover()
		scope.advance(RollingBack)
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, &dberr.DriverError{Op: "rollback", Err: rbErr})
		}
		if p != nil {
			release()
			c.finishRollback(scope, errors.Join(fmt.Errorf("tx: statement panicked: %v", p), err))
			panic(p)
		}
	}()

	out.Results = make([]*scanner.Result, 0, len(stmts))
	for _, st := range stmts {
		res, err := c.exec.Execute(ctx, sqlTx, st.Query, st.Params...)
		if err != nil {
			return Outcome{}, err
		}
		out.Statements++
		out.RowsAffected += res.Affected
		out.Results = append(out.Results, res)
	}

	if err := sqlTx.Commit(); err != nil {
		return Outcome{}, &dberr.DriverError{Op: "commit", Err: err}
	}
	done = true
	return out, nil
}

// discard rolls back a scope that never reached the database.
func (c *Coordinator) discard(scope *Scope, cause error) {
	scope.advance(RollingBack)
	c.finishRollback(scope, cause)
}

func (c *Coordinator) finishRollback(scope *Scope, cause error) {
	scope.advance(RolledBack)
	c.log.Debug("transaction rolled back", "error", cause)
	_, hooks := scope.hooks()
	for i, fn := range hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					c.log.Warn("after-rollback hook panicked", "hook", i, "panic", p)
				}
			}()
			fn()
		}()
	}
}

func (c *Coordinator) runCommitHooks(scope *Scope) error {
	hooks, _ := scope.hooks()
	var errs []error
	for i, fn := range hooks {
		if err := callHook(fn); err != nil {
			c.log.Warn("after-commit hook failed", "hook", i, "error", err)
			errs = append(errs, fmt.Errorf("hook %d: %w", i, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &dberr.CommitHookError{Err: errors.Join(errs...)}
}

func callHook(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
