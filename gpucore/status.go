package gpucore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// MapMode selects host read or host write access for a buffer mapping.
type MapMode int

const (
	// MapModeRead maps the buffer for reading.
	MapModeRead MapMode = iota
	// MapModeWrite maps the buffer for writing.
	MapModeWrite
)

// String returns the string representation of MapMode.
func (m MapMode) String() string {
	switch m {
	case MapModeRead:
		return "Read"
	case MapModeWrite:
		return "Write"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// BufferMapAsyncStatus represents the result of an async map operation.
type BufferMapAsyncStatus int

const (
	// BufferMapAsyncStatusSuccess indicates mapping completed successfully.
	BufferMapAsyncStatusSuccess BufferMapAsyncStatus = iota
	// BufferMapAsyncStatusValidationError indicates a validation error.
	BufferMapAsyncStatusValidationError
	// BufferMapAsyncStatusUnknown indicates an unknown error.
	BufferMapAsyncStatusUnknown
	// BufferMapAsyncStatusDeviceLost indicates the device was lost.
	BufferMapAsyncStatusDeviceLost
	// BufferMapAsyncStatusDestroyedBeforeCallback indicates buffer was destroyed.
	BufferMapAsyncStatusDestroyedBeforeCallback
	// BufferMapAsyncStatusUnmappedBeforeCallback indicates buffer was unmapped.
	BufferMapAsyncStatusUnmappedBeforeCallback
	// BufferMapAsyncStatusMappingAlreadyPending indicates another map is pending.
	BufferMapAsyncStatusMappingAlreadyPending
	// BufferMapAsyncStatusOffsetOutOfRange indicates offset is out of range.
	BufferMapAsyncStatusOffsetOutOfRange
	// BufferMapAsyncStatusSizeOutOfRange indicates size is out of range.
	BufferMapAsyncStatusSizeOutOfRange
)

// String returns the string representation of BufferMapAsyncStatus.
func (s BufferMapAsyncStatus) String() string {
	switch s {
	case BufferMapAsyncStatusSuccess:
		return "Success"
	case BufferMapAsyncStatusValidationError:
		return "ValidationError"
	case BufferMapAsyncStatusUnknown:
		return "Unknown"
	case BufferMapAsyncStatusDeviceLost:
		return "DeviceLost"
	case BufferMapAsyncStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	case BufferMapAsyncStatusUnmappedBeforeCallback:
		return "UnmappedBeforeCallback"
	case BufferMapAsyncStatusMappingAlreadyPending:
		return "MappingAlreadyPending"
	case BufferMapAsyncStatusOffsetOutOfRange:
		return "OffsetOutOfRange"
	case BufferMapAsyncStatusSizeOutOfRange:
		return "SizeOutOfRange"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Maintain selects how DevicePoll waits for outstanding work.
type Maintain int

const (
	// MaintainPoll checks for completed work without blocking.
	MaintainPoll Maintain = iota
	// MaintainWait blocks until all submitted work has completed.
	MaintainWait
)

// String returns the string representation of Maintain.
func (m Maintain) String() string {
	switch m {
	case MaintainPoll:
		return "Poll"
	case MaintainWait:
		return "Wait"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// SwapChainStatus is the backend outcome of acquiring the next frame.
type SwapChainStatus int

const (
	// SwapChainStatusGood means a frame was acquired.
	SwapChainStatusGood SwapChainStatus = iota
	// SwapChainStatusSuboptimal means a frame was acquired but the swap
	// chain no longer matches the surface exactly.
	SwapChainStatusSuboptimal
	// SwapChainStatusTimeout means no frame became available in time.
	SwapChainStatusTimeout
	// SwapChainStatusOutdated means the surface changed and the swap chain
	// must be recreated.
	SwapChainStatusOutdated
	// SwapChainStatusLost means the swap chain was lost.
	SwapChainStatusLost
	// SwapChainStatusOutOfMemory means the backend ran out of memory.
	SwapChainStatusOutOfMemory
)

// String returns the string representation of SwapChainStatus.
func (s SwapChainStatus) String() string {
	switch s {
	case SwapChainStatusGood:
		return "Good"
	case SwapChainStatusSuboptimal:
		return "Suboptimal"
	case SwapChainStatusTimeout:
		return "Timeout"
	case SwapChainStatusOutdated:
		return "Outdated"
	case SwapChainStatusLost:
		return "Lost"
	case SwapChainStatusOutOfMemory:
		return "OutOfMemory"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// SwapChainOutputDetail is backend data carried from acquire to present.
// The core stores it with the frame and hands it back unchanged.
type SwapChainOutputDetail struct {
	SwapChain SwapChainID
	// Token is backend-defined.
	Token uint64
}

// PresentMode selects how acquired frames are queued for display.
type PresentMode = gputypes.PresentMode

// ShaderStages is a bitmask of shader stages.
type ShaderStages = gputypes.ShaderStages
