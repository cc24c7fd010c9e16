package iron

import (
	"context"
	"database/sql"

	"golang.org/x/sync/semaphore"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/future"
	"github.com/nlimpid/ironsql/scanner"
	"github.com/nlimpid/ironsql/tx"
)

// Completable runs every operation on its own goroutine and returns a
// future for the outcome. Failures, including dberr.ClosedConnectionError,
// are delivered through the future.
//
// Independently issued operations reach the connection in no particular
// order. Chain with future.Then or future.Compose when one must observe
// another's effects.
type Completable struct {
	e     *engine
	slots *semaphore.Weighted
}

// Prepare executes query with params.
func (c *Completable) Prepare(ctx context.Context, query string, params ...any) *future.Future[*scanner.Result] {
	if c.e.closed.Load() {
		return future.Failed[*scanner.Result](dberr.ErrClosed)
	}
	return future.Go(func() (*scanner.Result, error) {
		return c.e.prepare(ctx, c.acquire, query, params)
	})
}

// PrepareNamed executes query with its :name placeholders bound from params.
func (c *Completable) PrepareNamed(ctx context.Context, query string, params map[string]any) *future.Future[*scanner.Result] {
	if c.e.closed.Load() {
		return future.Failed[*scanner.Result](dberr.ErrClosed)
	}
	return future.Go(func() (*scanner.Result, error) {
		return c.e.prepareNamed(ctx, c.acquire, query, params)
	})
}

// Transaction runs work and applies the statements it queued atomically.
func (c *Completable) Transaction(ctx context.Context, work func(*tx.Scope) error) *future.Future[tx.Outcome] {
	if c.e.closed.Load() {
		return future.Failed[tx.Outcome](dberr.ErrClosed)
	}
	return future.Go(func() (tx.Outcome, error) {
		return c.e.transaction(ctx, c.acquire, work)
	})
}

// Close releases the connection shared with the Blocking view.
func (c *Completable) Close() error { return c.e.close() }

// acquire takes a worker slot, then the connection. The slot is held only
// while the connection is, so continuations and commit hooks never hold one.
func (c *Completable) acquire(ctx context.Context) (*sql.Conn, func(), error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	conn, release, err := c.e.acquire(ctx)
	if err != nil {
		c.slots.Release(1)
		return nil, nil, err
	}
	return conn, func() {
		release()
		c.slots.Release(1)
	}, nil
}
