package session

import (
	"context"
	"sync"
)

// Future is the eventual result of an asynchronous operation.
// It is resolved exactly once and may be awaited by any number of goroutines.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func resolvedFuture[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done.
// Giving up on ctx does not cancel the operation itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the result is available.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Then runs fn on its own goroutine once the result is available.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		<-f.done
		fn(f.val, f.err)
	}()
}
