package rust

import "github.com/cockroachdb/errors"

// Backend errors. Errors reported by wgpu-native are wrapped and marked
// with the closest sentinel.
var (
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("rust: backend closed")

	// ErrInvalidHandle is returned when a handle is unknown or dropped.
	ErrInvalidHandle = errors.New("rust: invalid handle")

	// ErrInvalidDescriptor is returned when wgpu-native rejects a descriptor.
	ErrInvalidDescriptor = errors.New("rust: invalid descriptor")

	// ErrRecording is returned when a recorded command sequence is invalid.
	ErrRecording = errors.New("rust: invalid command sequence")

	// ErrInvalidTarget is returned when a surface target is not a
	// *wgpu.SurfaceDescriptor.
	ErrInvalidTarget = errors.New("rust: surface target must be *wgpu.SurfaceDescriptor")

	// ErrNotCompiled is returned by the factory of a binary built without
	// the rust tag.
	ErrNotCompiled = errors.New("rust: backend not compiled in (build with -tags rust)")
)
