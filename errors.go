package gpuapi

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/gpuapi/gpucore"
	"github.com/gogpu/gpuapi/internal/mapping"
)

// Programmer errors. These are raised as panics wrapped in an assertion
// failure; errors.Is on the recovered value matches the sentinel.
var (
	// ErrReleased is raised when a released or consumed wrapper is used.
	ErrReleased = errors.New("gpu: resource already released")

	// ErrEncoderLocked is raised when a command encoder is used while one
	// of its passes is open.
	ErrEncoderLocked = errors.New("gpu: command encoder is locked by an open pass")

	// ErrEncoderInvalid is raised when an encoder whose pass was
	// abandoned during a panic is used for anything but Release.
	ErrEncoderInvalid = errors.New("gpu: command encoder invalidated by an abandoned pass")

	// ErrEncoderFinished is raised when a finished encoder is used.
	ErrEncoderFinished = errors.New("gpu: command encoder already finished")

	// ErrPassEnded is raised when recording into an ended pass.
	ErrPassEnded = errors.New("gpu: pass already ended")

	// ErrPushConstantAlignment is raised when a push constant offset is
	// not a multiple of 4.
	ErrPushConstantAlignment = errors.New("gpu: push constant offset must be a multiple of 4")

	// ErrFrameAlive is raised when a swap chain is recreated while a frame
	// acquired from it has not been presented.
	ErrFrameAlive = errors.New("gpu: cannot recreate swap chain while a frame is alive")

	// ErrFrameAcquired is raised when acquiring a frame while the previous
	// one is still alive.
	ErrFrameAcquired = errors.New("gpu: previous swap chain frame has not been presented")

	// ErrWriteOnlyMapping is raised when reading a mapping of a buffer
	// without MapRead usage.
	ErrWriteOnlyMapping = errors.New("gpu: attempting to read a write-only mapping")
)

// Mapped-range failures, raised as panics by Buffer and its views.
var (
	ErrMapOutOfBounds   = mapping.ErrOutOfBounds
	ErrMapOverlap       = mapping.ErrOverlap
	ErrMapNoSuchRange   = mapping.ErrNoSuchRange
	ErrMapViewsOpen     = mapping.ErrViewsOpen
	ErrMapAlreadyMapped = mapping.ErrAlreadyMapped
)

// Recoverable errors re-exported from gpucore.
var (
	ErrNoAdapter     = gpucore.ErrNoAdapter
	ErrUnsupported   = gpucore.ErrUnsupported
	ErrDeviceRequest = gpucore.ErrDeviceRequest
	ErrBufferAsync   = gpucore.ErrBufferAsync
)

// Swap chain acquisition failures. A *SwapChainError matches the sentinel
// for its Kind.
var (
	// ErrSwapChainTimeout: no frame became available in time. Retry.
	ErrSwapChainTimeout = errors.New("gpu: swap chain timed out")
	// ErrSwapChainOutdated: the surface changed. Recreate the swap chain.
	ErrSwapChainOutdated = errors.New("gpu: swap chain is outdated")
	// ErrSwapChainLost: the swap chain must be recreated.
	ErrSwapChainLost = errors.New("gpu: swap chain was lost")
	// ErrSwapChainOutOfMemory: presentation cannot continue.
	ErrSwapChainOutOfMemory = errors.New("gpu: swap chain out of memory")
)

// SwapChainErrorKind classifies a failed frame acquisition.
type SwapChainErrorKind int

const (
	SwapChainErrorTimeout SwapChainErrorKind = iota
	SwapChainErrorOutdated
	SwapChainErrorLost
	SwapChainErrorOutOfMemory
)

// String returns the string representation of SwapChainErrorKind.
func (k SwapChainErrorKind) String() string {
	switch k {
	case SwapChainErrorTimeout:
		return "Timeout"
	case SwapChainErrorOutdated:
		return "Outdated"
	case SwapChainErrorLost:
		return "Lost"
	case SwapChainErrorOutOfMemory:
		return "OutOfMemory"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

func (k SwapChainErrorKind) sentinel() error {
	switch k {
	case SwapChainErrorTimeout:
		return ErrSwapChainTimeout
	case SwapChainErrorOutdated:
		return ErrSwapChainOutdated
	case SwapChainErrorOutOfMemory:
		return ErrSwapChainOutOfMemory
	default:
		return ErrSwapChainLost
	}
}

// SwapChainError is returned by SwapChain.GetCurrentFrame when no frame
// could be acquired.
type SwapChainError struct {
	Kind SwapChainErrorKind
}

func (e *SwapChainError) Error() string { return e.Kind.sentinel().Error() }

// Is matches the sentinel for e.Kind.
func (e *SwapChainError) Is(target error) bool { return target == e.Kind.sentinel() }

// swapChainErrorFor maps a failed acquisition status to its error kind.
func swapChainErrorFor(status gpucore.SwapChainStatus) *SwapChainError {
	switch status {
	case gpucore.SwapChainStatusTimeout:
		return &SwapChainError{Kind: SwapChainErrorTimeout}
	case gpucore.SwapChainStatusOutdated:
		return &SwapChainError{Kind: SwapChainErrorOutdated}
	case gpucore.SwapChainStatusOutOfMemory:
		return &SwapChainError{Kind: SwapChainErrorOutOfMemory}
	default:
		return &SwapChainError{Kind: SwapChainErrorLost}
	}
}
