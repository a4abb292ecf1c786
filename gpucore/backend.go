package gpucore

import "github.com/gogpu/gputypes"

// Backend is the dispatch contract every GPU backend implements.
//
// There is one method per resource creation, per command recording step
// and per submission step. Handles returned by a Backend are only
// meaningful to that Backend.
//
// Implementations must be safe for concurrent use for every creation,
// drop, submission and queue-write call. Recording into a single command
// encoder, pass or bundle encoder is single-writer; the caller serializes
// it.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Each handle is dropped at most once via its *Drop method
//   - Drop methods never fail; unknown handles are ignored
//   - Dropping a resource still referenced by pending GPU work is legal;
//     the backend defers the actual release
type Backend interface {
	// === Instance ===

	// Name returns the backend identifier (e.g. "memory", "native").
	Name() string

	// CreateSurface creates a presentable surface for a backend-specific
	// window target. Headless backends return ErrUnsupported.
	CreateSurface(target any) (SurfaceID, error)

	// SurfaceDrop releases a surface.
	SurfaceDrop(surface SurfaceID)

	// RequestAdapter resolves with an adapter matching opts, or with
	// ErrNoAdapter.
	RequestAdapter(opts *RequestAdapterOptions) *Future[AdapterID]

	// EnumerateAdapters returns every adapter the backend exposes.
	EnumerateAdapters() []AdapterID

	// Close releases the backend instance. It is called once, after the
	// last core object referencing the backend has been released.
	Close()

	// === Adapter ===

	// AdapterRequestDevice resolves with a device and its queue, or with
	// a *RequestDeviceError.
	AdapterRequestDevice(adapter AdapterID, desc *DeviceDescriptor) *Future[DeviceQueue]

	AdapterFeatures(adapter AdapterID) gputypes.Features
	AdapterLimits(adapter AdapterID) gputypes.Limits
	AdapterInfo(adapter AdapterID) AdapterInfo

	// AdapterGetSwapChainPreferredFormat returns the best format for
	// presenting to surface from this adapter.
	AdapterGetSwapChainPreferredFormat(adapter AdapterID, surface SurfaceID) gputypes.TextureFormat

	AdapterDrop(adapter AdapterID)

	// === Device ===

	DeviceFeatures(device DeviceID) gputypes.Features
	DeviceLimits(device DeviceID) gputypes.Limits

	DeviceCreateSwapChain(device DeviceID, surface SurfaceID, desc *SwapChainDescriptor) (SwapChainID, error)
	DeviceCreateShaderModule(device DeviceID, desc *ShaderModuleDescriptor) (ShaderModuleID, error)
	DeviceCreateBindGroupLayout(device DeviceID, desc *BindGroupLayoutDescriptor) (BindGroupLayoutID, error)
	DeviceCreateBindGroup(device DeviceID, desc *BindGroupDescriptor) (BindGroupID, error)
	DeviceCreatePipelineLayout(device DeviceID, desc *PipelineLayoutDescriptor) (PipelineLayoutID, error)
	DeviceCreateRenderPipeline(device DeviceID, desc *RenderPipelineDescriptor) (RenderPipelineID, error)
	DeviceCreateComputePipeline(device DeviceID, desc *ComputePipelineDescriptor) (ComputePipelineID, error)
	DeviceCreateBuffer(device DeviceID, desc *BufferDescriptor) (BufferID, error)
	DeviceCreateTexture(device DeviceID, desc *TextureDescriptor) (TextureID, error)
	DeviceCreateSampler(device DeviceID, desc *SamplerDescriptor) (SamplerID, error)
	DeviceCreateCommandEncoder(device DeviceID, desc *CommandEncoderDescriptor) (CommandEncoderID, error)
	DeviceCreateRenderBundleEncoder(device DeviceID, desc *RenderBundleEncoderDescriptor) (RenderBundleEncoder, error)

	// DevicePoll makes progress on outstanding work and resolves pending
	// map futures whose work has completed. MaintainWait blocks until
	// all submitted work is done.
	DevicePoll(device DeviceID, maintain Maintain)

	DeviceDrop(device DeviceID)

	// === Buffer ===

	// BufferMapAsync requests host access to [offset, offset+size). The
	// future resolves once the range can be read with
	// BufferGetMappedRange, or with a *BufferAsyncError.
	BufferMapAsync(buffer BufferID, mode MapMode, offset, size uint64) *Future[struct{}]

	// BufferGetMappedRange returns host memory for a mapped range. Writes
	// to the slice become visible to the GPU after BufferUnmap.
	BufferGetMappedRange(buffer BufferID, offset, size uint64) []byte

	BufferUnmap(buffer BufferID)

	// === Texture ===

	TextureCreateView(texture TextureID, desc *TextureViewDescriptor) (TextureViewID, error)

	// === Pipelines ===

	ComputePipelineGetBindGroupLayout(pipeline ComputePipelineID, index uint32) (BindGroupLayoutID, error)
	RenderPipelineGetBindGroupLayout(pipeline RenderPipelineID, index uint32) (BindGroupLayoutID, error)

	// === Drops ===

	TextureDrop(texture TextureID)
	TextureViewDrop(view TextureViewID)
	SamplerDrop(sampler SamplerID)
	BufferDrop(buffer BufferID)
	BindGroupDrop(group BindGroupID)
	BindGroupLayoutDrop(layout BindGroupLayoutID)
	PipelineLayoutDrop(layout PipelineLayoutID)
	ShaderModuleDrop(module ShaderModuleID)
	CommandEncoderDrop(encoder CommandEncoderID)
	CommandBufferDrop(buffer CommandBufferID)
	RenderBundleDrop(bundle RenderBundleID)
	ComputePipelineDrop(pipeline ComputePipelineID)
	RenderPipelineDrop(pipeline RenderPipelineID)
	SwapChainDrop(swapChain SwapChainID)

	// === Command encoder ===

	CommandEncoderCopyBufferToBuffer(encoder CommandEncoderID, src BufferID, srcOffset uint64, dst BufferID, dstOffset uint64, size uint64)
	CommandEncoderCopyBufferToTexture(encoder CommandEncoderID, src *ImageCopyBuffer, dst *ImageCopyTexture, size gputypes.Extent3D)
	CommandEncoderCopyTextureToBuffer(encoder CommandEncoderID, src *ImageCopyTexture, dst *ImageCopyBuffer, size gputypes.Extent3D)
	CommandEncoderCopyTextureToTexture(encoder CommandEncoderID, src *ImageCopyTexture, dst *ImageCopyTexture, size gputypes.Extent3D)

	CommandEncoderBeginComputePass(encoder CommandEncoderID, desc *ComputePassDescriptor) ComputePassEncoder
	// CommandEncoderEndComputePass appends the pass to the encoder stream.
	CommandEncoderEndComputePass(encoder CommandEncoderID, pass ComputePassEncoder)

	CommandEncoderBeginRenderPass(encoder CommandEncoderID, desc *RenderPassDescriptor) RenderPassEncoder
	// CommandEncoderEndRenderPass appends the pass to the encoder stream.
	CommandEncoderEndRenderPass(encoder CommandEncoderID, pass RenderPassEncoder)

	// CommandEncoderFinish consumes the encoder. Recording errors
	// collected by the backend are reported here.
	CommandEncoderFinish(encoder CommandEncoderID, desc *CommandBufferDescriptor) (CommandBufferID, error)

	CommandEncoderInsertDebugMarker(encoder CommandEncoderID, label string)
	CommandEncoderPushDebugGroup(encoder CommandEncoderID, label string)
	CommandEncoderPopDebugGroup(encoder CommandEncoderID)

	// RenderBundleEncoderFinish consumes the bundle encoder.
	RenderBundleEncoderFinish(encoder RenderBundleEncoder, desc *RenderBundleDescriptor) (RenderBundleID, error)

	// === Queue ===

	QueueWriteBuffer(queue QueueID, buffer BufferID, offset uint64, data []byte)
	QueueWriteTexture(queue QueueID, dst *ImageCopyTexture, data []byte, layout *TextureDataLayout, size gputypes.Extent3D)

	// QueueSubmit executes command buffers in order. Submitted command
	// buffers are consumed.
	QueueSubmit(queue QueueID, buffers []CommandBufferID) error

	// === Swap chain ===

	// SwapChainGetCurrentTextureView acquires the next image. The view is
	// valid only for Good and Suboptimal, and is owned by the swap chain.
	SwapChainGetCurrentTextureView(swapChain SwapChainID) (TextureViewID, SwapChainStatus, SwapChainOutputDetail)

	// SwapChainPresent presents the image acquired with detail.
	SwapChainPresent(view TextureViewID, detail SwapChainOutputDetail)
}
