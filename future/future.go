// Package future provides a single-assignment result that is filled by one
// goroutine and awaited by any number of others.
package future

import (
	"context"
	"fmt"
	"sync"
)

// Future is the eventual outcome of an operation: a value or an error.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// New returns an unresolved future and the function that resolves it. Only
// the first call to resolve has an effect.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

// Go runs fn on a new goroutine and returns its future. A panic in fn fails
// the future.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, resolve := New[T]()
	go func() {
		var zero T
		defer func() {
			if p := recover(); p != nil {
				resolve(zero, fmt.Errorf("future: panic: %v", p))
			}
		}()
		resolve(fn())
	}()
	return f
}

// Resolved returns a future already holding v.
func Resolved[T any](v T) *Future[T] {
	f, resolve := New[T]()
	resolve(v, nil)
	return f
}

// Failed returns a future already holding err.
func Failed[T any](err error) *Future[T] {
	var zero T
	f, resolve := New[T]()
	resolve(zero, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get blocks until the future resolves.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await blocks until the future resolves or ctx is done. Giving up does not
// stop the underlying operation; its result is simply not delivered.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then returns a future for fn applied to f's value. fn runs on its own
// goroutine after f resolves and observes everything f's operation did. If f
// fails, fn is skipped and the error is passed on.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(func() (U, error) {
		v, err := f.Get()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// Compose is Then for continuations that start another asynchronous
// operation.
func Compose[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	return Go(func() (U, error) {
		v, err := f.Get()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v).Get()
	})
}

// Recover returns a future that replaces f's error with the outcome of fn.
func Recover[T any](f *Future[T], fn func(error) (T, error)) *Future[T] {
	return Go(func() (T, error) {
		v, err := f.Get()
		if err != nil {
			return fn(err)
		}
		return v, nil
	})
}
