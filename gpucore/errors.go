package gpucore

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Recoverable backend errors.
var (
	// ErrNoAdapter is returned when no adapter satisfies a request.
	ErrNoAdapter = errors.New("gpu: no suitable adapter found")

	// ErrUnsupported is returned by a backend for an operation it cannot
	// perform, e.g. surface creation on a headless driver.
	ErrUnsupported = errors.New("gpu: operation not supported by backend")

	// ErrDeviceRequest is the sentinel matched by every RequestDeviceError.
	ErrDeviceRequest = errors.New("gpu: requesting a device failed")

	// ErrBufferAsync is the sentinel matched by every BufferAsyncError.
	ErrBufferAsync = errors.New("gpu: error occurred when trying to async map a buffer")
)

// RequestDeviceError reports that an adapter could not produce a device.
type RequestDeviceError struct {
	// Reason is the backend-specific cause, if any.
	Reason error
}

func (e *RequestDeviceError) Error() string {
	if e.Reason == nil {
		return ErrDeviceRequest.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDeviceRequest, e.Reason)
}

// Unwrap returns the backend-specific cause.
func (e *RequestDeviceError) Unwrap() error { return e.Reason }

// Is matches ErrDeviceRequest.
func (e *RequestDeviceError) Is(target error) bool { return target == ErrDeviceRequest }

// BufferAsyncError reports that a map request did not succeed.
type BufferAsyncError struct {
	// Status is the backend status that ended the request.
	Status BufferMapAsyncStatus
}

func (e *BufferAsyncError) Error() string {
	return fmt.Sprintf("%s (%s)", ErrBufferAsync, e.Status)
}

// Is matches ErrBufferAsync.
func (e *BufferAsyncError) Is(target error) bool { return target == ErrBufferAsync }
