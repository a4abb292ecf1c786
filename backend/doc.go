// Package backend is the registry of GPU backends.
//
// A backend is any implementation of gpucore.Backend. Backend packages
// register a factory from init(), so importing a backend for its side
// effect makes it selectable:
//
//	import _ "github.com/gogpu/gpuapi/backend/memory"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	// Get the default (best available) backend
//	b, err := backend.Default()
//
//	// Or request a specific backend
//	b, err := backend.Get("memory")
//
// The GPUAPI_BACKEND environment variable forces Default to a single
// backend.
//
// # Available Backends
//
//   - "rust": wgpu-native through cogentcore/webgpu (build tag rust)
//   - "native": Pure Go HAL from gogpu/wgpu
//   - "memory": in-process reference backend (always available)
package backend
