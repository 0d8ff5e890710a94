package domain

import (
	"context"
	"fmt"
	"sync"
)

// Awaitable is a value evaluated code can suspend on.
// Await blocks until the value is resolved or ctx is done.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

// Future is a one-shot Awaitable resolved exactly once.
type Future struct {
	done chan struct{}
	once sync.Once
	val  any
	err  error
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn in its own goroutine and returns a Future for its result.
func Go(ctx context.Context, fn func(context.Context) (any, error)) *Future {
	f := NewFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Resolve(nil, fmt.Errorf("future panicked: %v", r))
			}
		}()
		f.Resolve(fn(ctx))
	}()
	return f
}

// Resolve sets the outcome. Only the first call has an effect.
func (f *Future) Resolve(val any, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done reports whether the future has been resolved.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await implements Awaitable.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) String() string {
	if f.Done() {
		return "<future resolved>"
	}
	return "<future pending>"
}
