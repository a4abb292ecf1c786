// Package memory provides an in-process GPU backend.
//
// Buffers and textures live in host memory. Copies, queue writes and
// render pass clears execute on submit; draws and dispatches are
// validated and counted but produce no output. WGSL shader modules are
// parsed and validated with naga, so pipeline entry points are checked
// against the real shader.
//
// Map requests stay pending until the owning device is polled, which
// mirrors a backend that executes on a GPU timeline.
//
// Surfaces are simulated by a *Window target. A window can be told to
// report Timeout, Outdated, Lost or OutOfMemory on the next acquisitions,
// and it keeps the pixels of the last presented frame.
//
// The backend registers itself as "memory" on import:
//
//	import _ "github.com/gogpu/gpuapi/backend/memory"
package memory
