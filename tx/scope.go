// Package tx coordinates transactions: statements queued by a unit of work
// are applied atomically, and hooks run once the outcome is known.
package tx

import (
	"fmt"
	"sync"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/executor"
)

// State is the lifecycle position of a Scope.
type State uint8

const (
	Open State = iota
	Committing
	Committed
	RollingBack
	RolledBack
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Committing:
		return "committing"
	case Committed:
		return "committed"
	case RollingBack:
		return "rolling back"
	case RolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("tx.State(%d)", uint8(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Committed || s == RolledBack }

// transitions lists the legal successors of each state. A failure while
// applying or committing moves Committing to RollingBack.
var transitions = map[State][]State{
	Open:        {Committing, RollingBack},
	Committing:  {Committed, RollingBack},
	RollingBack: {RolledBack},
}

// Statement is one queued statement.
type Statement struct {
	Query  string
	Params []any
}

// Scope is the handle a unit of work receives. Prepare queues statements and
// AfterCommit registers callbacks; nothing reaches the database until the
// unit of work returns.
type Scope struct {
	mu            sync.Mutex
	state         State
	stmts         []Statement
	commitHooks   []func() error
	rollbackHooks []func()
	err           error
}

func newScope() *Scope { return &Scope{} }

// Prepare queues query for execution at commit. A parameter count mismatch is
// reported immediately and also fails the transaction, whether or not the
// caller checks the returned error.
func (s *Scope) Prepare(query string, params ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return dberr.ErrScopeDone
	}
	if err := executor.Validate(query, params); err != nil {
		if s.err == nil {
			s.err = err
		}
		return err
	}
	s.stmts = append(s.stmts, Statement{Query: query, Params: append([]any(nil), params...)})
	return nil
}

// PrepareNamed queues query with its :name placeholders bound from params.
// An unbound name fails the transaction the same way a count mismatch does.
func (s *Scope) PrepareNamed(query string, params map[string]any) error {
	q, args, err := executor.Named(query, params)
	if err == nil {
		return s.Prepare(q, args...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return dberr.ErrScopeDone
	}
	if s.err == nil {
		s.err = err
	}
	return err
}

// AfterCommit registers fn to run after the transaction commits. Callbacks
// run in registration order and never run if the transaction rolls back.
func (s *Scope) AfterCommit(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return dberr.ErrScopeDone
	}
	s.commitHooks = append(s.commitHooks, fn)
	return nil
}

// AfterRollback registers fn to run after the transaction rolls back.
func (s *Scope) AfterRollback(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return dberr.ErrScopeDone
	}
	s.rollbackHooks = append(s.rollbackHooks, fn)
	return nil
}

// State returns the current lifecycle state.
func (s *Scope) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Len returns the number of queued statements.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stmts)
}

func (s *Scope) advance(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ok := range transitions[s.state] {
		if ok == next {
			s.state = next
			return
		}
	}
	panic(fmt.Sprintf("tx: illegal transition %s -> %s", s.state, next))
}

// pending returns the queued statements and the first Prepare error.
func (s *Scope) pending() ([]Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stmts, s.err
}

func (s *Scope) hooks() ([]func() error, []func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitHooks, s.rollbackHooks
}
