package native

import "github.com/cockroachdb/errors"

// Backend errors. Recording errors are collected while encoding and
// returned from CommandEncoderFinish or RenderBundleEncoderFinish.
var (
	// ErrNoDriver is returned by New when no hal driver is registered.
	ErrNoDriver = errors.New("native: no hal driver available")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("native: backend closed")

	// ErrInvalidHandle is returned when a handle is unknown or dropped.
	ErrInvalidHandle = errors.New("native: invalid handle")

	// ErrInvalidDescriptor is returned when a descriptor is malformed.
	ErrInvalidDescriptor = errors.New("native: invalid descriptor")

	// ErrShaderCompile is returned when a WGSL module fails to compile.
	ErrShaderCompile = errors.New("native: shader compilation failed")

	// ErrEntryPoint is returned when a pipeline names a missing entry point.
	ErrEntryPoint = errors.New("native: entry point not found")

	// ErrRecording is returned when a recorded command sequence is invalid.
	ErrRecording = errors.New("native: invalid command sequence")

	// ErrUnsupportedCommand is returned for commands hal cannot record.
	ErrUnsupportedCommand = errors.New("native: command not supported by hal")

	// ErrInvalidTarget is returned when a surface target is not a
	// SurfaceTarget.
	ErrInvalidTarget = errors.New("native: surface target must be native.SurfaceTarget")
)
