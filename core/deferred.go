package core

import (
	"context"
	"fmt"
)

// Deferred is a value that settles asynchronously. The zero value is not usable;
// construct one with Defer, Resolved or Rejected.
type Deferred[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Defer runs fn in its own goroutine and returns a pending handle immediately.
// fn receives ctx, so cancelling ctx cancels the work.
func Defer[T any](ctx context.Context, fn func(context.Context) (T, error)) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{})}
	go func() {
		defer close(d.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				d.value = zero
				d.err = fmt.Errorf("deferred panic: %v", r)
			}
		}()
		d.value, d.err = fn(ctx)
	}()
	return d
}

// Resolved returns a handle already settled with value.
func Resolved[T any](value T) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), value: value}
	close(d.done)
	return d
}

// Rejected returns a handle already settled with err.
func Rejected[T any](err error) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), err: err}
	close(d.done)
	return d
}

// Done is closed once the value settles.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether the value has settled.
func (d *Deferred[T]) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Await blocks until the value settles or ctx is done.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
