package gpucore

// Resource IDs
//
// These opaque IDs identify backend objects. Each backend maintains a
// mapping between IDs and its actual resources; the core never looks
// inside an ID, it only passes it back into the backend that issued it.
// IDs are uint64 to accommodate various backend handle sizes.

// AdapterID is an opaque handle to a physical adapter.
type AdapterID uint64

// DeviceID is an opaque handle to a logical device.
type DeviceID uint64

// QueueID is an opaque handle to a device queue.
type QueueID uint64

// SurfaceID is an opaque handle to a presentable surface.
type SurfaceID uint64

// SwapChainID is an opaque handle to a swap chain.
type SwapChainID uint64

// ShaderModuleID is an opaque handle to a shader module.
type ShaderModuleID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// TextureViewID is an opaque handle to a texture view.
type TextureViewID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// CommandEncoderID is an opaque handle to an in-progress command recording.
type CommandEncoderID uint64

// CommandBufferID is an opaque handle to a finished command buffer.
type CommandBufferID uint64

// RenderBundleID is an opaque handle to a finished render bundle.
type RenderBundleID uint64

// InvalidID is the zero value, representing an invalid/null resource.
// Backends never issue it.
const InvalidID = 0

// DeviceQueue is the result of a successful device request.
type DeviceQueue struct {
	Device DeviceID
	Queue  QueueID
}
