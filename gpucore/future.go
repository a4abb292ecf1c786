package gpucore

import (
	"context"
	"sync"
)

// Future is the result of an asynchronous backend operation.
//
// A Future resolves exactly once, either with a value or with an error.
// Backends that execute on a GPU timeline may leave a Future pending until
// the owning device is polled; waiting on such a Future without polling
// the device blocks until the context is done.
//
// A caller that stops waiting does not cancel the operation. The backend
// may still resolve the Future later, and doing so is always safe.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that has already resolved with v and err.
func Resolved[T any](v T, err error) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v, err)
	return f
}

// Resolve completes the future. Only the first call has an effect;
// it reports whether this call was the one that resolved the future.
func (f *Future[T]) Resolve(v T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel that is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the future has resolved.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value without blocking.
// ok is false while the future is still pending.
func (f *Future[T]) Result() (v T, ok bool, err error) {
	if !f.Ready() {
		return v, false, nil
	}
	return f.val, true, f.err
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
