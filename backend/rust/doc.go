// Package rust provides a gpucore.Backend on wgpu-native, the Rust
// WebGPU implementation, through the cogentcore/webgpu bindings.
//
// # Architecture Overview
//
//	gpuapi core -> gpucore.Backend -> rust.Backend -> wgpu-native -> Vulkan/Metal/DX12/GL
//
// The backend keeps a table per resource kind mapping gpucore IDs to
// wgpu-native objects. wgpu-native performs all validation and resource
// tracking; errors it reports through error scopes are wrapped and
// marked with ErrInvalidDescriptor or ErrRecording.
//
// # Registration and Selection
//
// The backend is compiled with the "rust" build tag:
//
//	// Build with: go build -tags rust
//	import _ "github.com/gogpu/gpuapi/backend/rust"
//
// It is preferred over native and memory when available. Without the tag
// a stub registers a factory that fails with ErrNotCompiled, so
// backend.Default falls through to the next backend.
//
// # Surfaces
//
// CreateSurface takes the *wgpu.SurfaceDescriptor produced by the
// windowing layer (glfw, SDL or a platform handle wrapper).
//
// # Dependencies
//
// wgpu-native must be installed where the bindings can load it:
//   - Windows: wgpu_native.dll
//   - Linux: libwgpu_native.so
//   - macOS: libwgpu_native.dylib
//
// # Thread Safety
//
// Backend is safe for concurrent use. Queue operations are serialized.
package rust
