package backend

import (
	"errors"
	"os"
)

// Backend name constants.
const (
	// BackendMemory is the name of the in-process reference backend.
	BackendMemory = "memory"
	// BackendNative is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendNative = "native"
	// BackendRust is the name of the wgpu-native backend (cogentcore/webgpu FFI).
	BackendRust = "rust"
)

// EnvBackend names the environment variable that overrides the default
// backend choice.
const EnvBackend = "GPUAPI_BACKEND"

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// override returns the backend forced through the environment, if any.
func override() string {
	return os.Getenv(EnvBackend)
}
