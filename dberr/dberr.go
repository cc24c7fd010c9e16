// Package dberr defines the errors reported by ironsql.
//
// Every failure is one of the typed errors below so callers can branch with
// errors.As. Errors that wrap a cause implement Unwrap.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
)

// UnsupportedModelError is returned when a type cannot be described as a model:
// it has no bindable fields, or a field has a type with no column mapping.
type UnsupportedModelError struct {
	Type   reflect.Type
	Field  string
	Reason string
}

func (e *UnsupportedModelError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ironsql: unsupported model %s: field %s: %s", e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("ironsql: unsupported model %s: %s", e.Type, e.Reason)
}

// MissingColumnError is returned when a required field has no column in the row.
type MissingColumnError struct {
	Field  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("ironsql: column %q for field %s is missing from the result", e.Column, e.Field)
}

// TypeMismatchError is returned when a raw column value cannot be bound into
// the declared field type.
type TypeMismatchError struct {
	Field  string
	Column string
	Want   string
	Got    any
	Err    error
}

func (e *TypeMismatchError) Error() string {
	got := "NULL"
	if e.Got != nil {
		got = fmt.Sprintf("%T(%v)", e.Got, e.Got)
	}
	msg := fmt.Sprintf("ironsql: column %q cannot bind %s into field %s (%s)", e.Column, got, e.Field, e.Want)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

// ParameterCountError is returned before a statement reaches the driver when
// the number of parameters differs from the number of placeholders.
type ParameterCountError struct {
	Query string
	Want  int
	Got   int
}

func (e *ParameterCountError) Error() string {
	return fmt.Sprintf("ironsql: statement expects %d parameters, got %d", e.Want, e.Got)
}

// UnboundParameterError is returned when a named placeholder has no value.
type UnboundParameterError struct {
	Query string
	Name  string
}

func (e *UnboundParameterError) Error() string {
	return fmt.Sprintf("ironsql: no value bound to :%s", e.Name)
}

// DriverError wraps any failure reported by the database driver.
type DriverError struct {
	Op    string
	Query string
	Err   error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("ironsql: %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// NoResultError is returned by Single when the result has no rows. It
// matches sql.ErrNoRows under errors.Is.
type NoResultError struct{}

func (e *NoResultError) Error() string { return "ironsql: expected a single result, found none" }

func (e *NoResultError) Unwrap() error { return sql.ErrNoRows }

// MultipleResultsError is returned by Single when the result has more than
// one row.
type MultipleResultsError struct {
	Count int
}

func (e *MultipleResultsError) Error() string {
	return fmt.Sprintf("ironsql: expected a single result, found %d", e.Count)
}

// ClosedConnectionError is returned by every operation on a closed facade.
type ClosedConnectionError struct{}

func (e *ClosedConnectionError) Error() string { return "ironsql: connection is closed" }

// CommitHookError reports after-commit callbacks that failed. The
// transaction itself committed.
type CommitHookError struct {
	Err error
}

func (e *CommitHookError) Error() string {
	return fmt.Sprintf("ironsql: transaction committed but commit hooks failed: %v", e.Err)
}

func (e *CommitHookError) Unwrap() error { return e.Err }

var (
	// ErrNoResult is the NoResultError value returned by Single.
	ErrNoResult = &NoResultError{}

	// ErrClosed is the ClosedConnectionError value returned after Close.
	ErrClosed = &ClosedConnectionError{}

	// ErrScopeDone is returned when a transaction scope is used after it
	// committed or rolled back.
	ErrScopeDone = errors.New("ironsql: transaction scope already completed")
)
