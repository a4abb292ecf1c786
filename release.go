package gpuapi

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/gpuapi/gpucore"
)

// handle is the bookkeeping shared by every owning wrapper: a reference
// to the backend, the backend handle and a released flag. The reference
// is taken by init and given back once the handle is released or
// consumed, so the backend outlives every wrapper.
//
// Release methods on wrappers follow one shape:
//
//	func (s *Sampler) Release() {
//		if r := recover(); r != nil {
//			panic(s.unwind(r))
//		}
//		s.release()
//	}
//
// recover only observes a panic when Release itself is the deferred call,
// which is exactly the "defer x.Release()" case. The panic is passed on
// unchanged, the backend is not called and the backend reference is
// kept.
type handle[T ~uint64] struct {
	backend  *sharedBackend
	id       T
	kind     string
	drop     func(gpucore.Backend, T)
	released atomic.Bool
}

func (h *handle[T]) init(b *sharedBackend, id T, kind string, drop func(gpucore.Backend, T)) {
	h.backend = b.acquire()
	h.id = id
	h.kind = kind
	h.drop = drop
}

// ID returns the backend handle.
func (h *handle[T]) ID() T { return h.id }

// Released reports whether the wrapper has been released or consumed.
func (h *handle[T]) Released() bool { return h.released.Load() }

// live returns the handle, panicking if the wrapper was released.
func (h *handle[T]) live() T {
	if h.released.Load() {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrReleased, "%s %d", h.kind, uint64(h.id))))
	}
	return h.id
}

// take consumes the handle without dropping it. The backend owns it from
// now on; the caller gives the backend reference back with disown once
// the backend call that consumes the handle has returned.
func (h *handle[T]) take() T {
	if !h.released.CompareAndSwap(false, true) {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrReleased, "%s %d", h.kind, uint64(h.id))))
	}
	return h.id
}

// disown drops the backend reference of a taken handle.
func (h *handle[T]) disown() { h.backend.release() }

// release forwards the drop exactly once. It reports whether this call
// did the release.
func (h *handle[T]) release() bool {
	if !h.released.CompareAndSwap(false, true) {
		return false
	}
	if h.drop != nil {
		h.drop(h.backend.Backend, h.id)
	}
	Logger().Debug("gpu: released", "kind", h.kind, "id", uint64(h.id))
	h.backend.release()
	return true
}

// unwind marks the handle released without calling the backend and
// returns r for re-panicking. The backend reference is leaked with the
// handle.
func (h *handle[T]) unwind(r any) any {
	if h.released.CompareAndSwap(false, true) {
		Logger().Warn("gpu: release skipped during panic", "kind", h.kind, "id", uint64(h.id))
	}
	return r
}
