package iron

import (
	"context"

	"github.com/nlimpid/ironsql/scanner"
	"github.com/nlimpid/ironsql/tx"
)

// Blocking runs every operation on the calling goroutine.
type Blocking struct {
	e *engine
}

// Prepare executes query with params and returns its result. Bind it with
// Single, First or List.
func (b *Blocking) Prepare(ctx context.Context, query string, params ...any) (*scanner.Result, error) {
	return b.e.prepare(ctx, b.e.acquire, query, params)
}

// PrepareNamed executes query with its :name placeholders bound from params.
// Handle.NamedParams builds params from a model.
func (b *Blocking) PrepareNamed(ctx context.Context, query string, params map[string]any) (*scanner.Result, error) {
	return b.e.prepareNamed(ctx, b.e.acquire, query, params)
}

// Transaction runs work and applies the statements it queued atomically.
// When only commit hooks failed, the returned Outcome is valid and the error
// is a dberr.CommitHookError.
func (b *Blocking) Transaction(ctx context.Context, work func(*tx.Scope) error) (tx.Outcome, error) {
	return b.e.transaction(ctx, b.e.acquire, work)
}

// Close releases the connection shared with the Completable view.
func (b *Blocking) Close() error { return b.e.close() }
