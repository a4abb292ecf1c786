package memory

import "github.com/cockroachdb/errors"

// Backend errors. Recording errors are collected while encoding and
// returned from CommandEncoderFinish or RenderBundleEncoderFinish.
var (
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("memory: backend closed")

	// ErrInvalidHandle is returned when a handle is unknown or dropped.
	ErrInvalidHandle = errors.New("memory: invalid handle")

	// ErrInvalidDescriptor is returned when a descriptor is malformed.
	ErrInvalidDescriptor = errors.New("memory: invalid descriptor")

	// ErrLimitExceeded is returned when a request exceeds device limits.
	ErrLimitExceeded = errors.New("memory: limit exceeded")

	// ErrFeatureNotSupported is returned when a device requests features
	// the adapter does not expose.
	ErrFeatureNotSupported = errors.New("memory: feature not supported by adapter")

	// ErrShaderCompile is returned when a WGSL module fails to compile.
	ErrShaderCompile = errors.New("memory: shader compilation failed")

	// ErrEntryPoint is returned when a pipeline names a missing entry point.
	ErrEntryPoint = errors.New("memory: entry point not found")

	// ErrRecording is returned when a recorded command sequence is invalid.
	ErrRecording = errors.New("memory: invalid command sequence")

	// ErrInvalidTarget is returned when a surface target is not a *Window.
	ErrInvalidTarget = errors.New("memory: surface target must be *memory.Window")
)
