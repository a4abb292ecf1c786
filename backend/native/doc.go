// Package native implements gpucore.Backend on top of the Pure Go
// hardware abstraction layer of github.com/gogpu/wgpu.
//
// The driver is chosen from the drivers registered with hal: Vulkan,
// Metal, DX12 or GLES where the platform has them, and the software
// rasterizer everywhere. WithBackendType pins one, WithHAL supplies one
// directly.
//
//	import _ "github.com/gogpu/gpuapi/backend/native"
//
// hal has no debug markers, push constants or count-buffer indirect
// draws. Debug groups are checked for balance and otherwise ignored; the
// other two are reported as recording errors from Finish.
//
// GPU work is asynchronous. Buffer map requests and resource destruction
// wait for the submissions recorded before them, and both make progress
// only when the device is polled.
//
// Build with the nogpu tag to leave out every hardware driver.
package native
