package gpucore

import "github.com/gogpu/gputypes"

// Descriptors are plain data. The core passes them through unvalidated;
// backends decide what is legal. Value types that do not carry handles
// (formats, usages, limits, states) come from gputypes.

// WholeSize, as a size argument, means "to the end of the buffer".
const WholeSize = 0

// RequestAdapterOptions selects an adapter.
type RequestAdapterOptions struct {
	PowerPreference gputypes.PowerPreference

	// CompatibleSurface, if not InvalidID, restricts the search to
	// adapters that can present to the surface.
	CompatibleSurface SurfaceID

	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool
}

// AdapterInfo describes a physical adapter.
type AdapterInfo = gputypes.AdapterInfo

// DeviceDescriptor describes a device request.
type DeviceDescriptor struct {
	Label    string
	Features gputypes.Features
	Limits   gputypes.Limits
}

// BufferDescriptor describes a buffer.
type BufferDescriptor struct {
	Label            string
	Size             uint64
	Usage            gputypes.BufferUsage
	MappedAtCreation bool
}

// TextureDescriptor describes a texture.
type TextureDescriptor struct {
	Label         string
	Size          gputypes.Extent3D
	MipLevelCount uint32
	SampleCount   uint32
	Dimension     gputypes.TextureDimension
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
}

// TextureViewDescriptor describes a texture view. Zero counts mean
// "all remaining levels/layers".
type TextureViewDescriptor struct {
	Label           string
	Format          gputypes.TextureFormat
	Dimension       gputypes.TextureViewDimension
	Aspect          gputypes.TextureAspect
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// SamplerDescriptor describes a sampler.
type SamplerDescriptor struct {
	Label        string
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
	LodMinClamp  float32
	LodMaxClamp  float32
	// Compare is only used for comparison samplers; zero disables it.
	Compare     gputypes.CompareFunction
	Anisotropy  uint16
	BorderColor gputypes.Color
}

// ShaderSource holds shader code in exactly one form.
type ShaderSource struct {
	WGSL  string
	SPIRV []uint32
}

// IsWGSL reports whether the source is WGSL text.
func (s ShaderSource) IsWGSL() bool { return s.WGSL != "" }

// ShaderModuleDescriptor describes a shader module.
type ShaderModuleDescriptor struct {
	Label  string
	Source ShaderSource
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []gputypes.BindGroupLayoutEntry
}

// BindingResource is one of BufferBinding, SamplerBinding,
// TextureViewBinding or TextureViewArrayBinding.
type BindingResource interface {
	bindingResource()
}

// BufferBinding binds a range of a buffer. Size 0 binds to the end.
type BufferBinding struct {
	Buffer BufferID
	Offset uint64
	Size   uint64
}

// SamplerBinding binds a sampler.
type SamplerBinding struct {
	Sampler SamplerID
}

// TextureViewBinding binds a texture view.
type TextureViewBinding struct {
	View TextureViewID
}

// TextureViewArrayBinding binds an array of texture views.
type TextureViewArrayBinding struct {
	Views []TextureViewID
}

func (BufferBinding) bindingResource()           {}
func (SamplerBinding) bindingResource()          {}
func (TextureViewBinding) bindingResource()      {}
func (TextureViewArrayBinding) bindingResource() {}

// BindGroupEntry binds one resource to a binding slot.
type BindGroupEntry struct {
	Binding  uint32
	Resource BindingResource
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayoutID
	Entries []BindGroupEntry
}

// PushConstantRange declares the stages that see a byte range of push
// constant storage.
type PushConstantRange struct {
	Stages ShaderStages
	Start  uint32
	End    uint32
}

// PipelineLayoutDescriptor describes a pipeline layout.
type PipelineLayoutDescriptor struct {
	Label              string
	BindGroupLayouts   []BindGroupLayoutID
	PushConstantRanges []PushConstantRange
}

// VertexState describes the vertex stage of a render pipeline.
type VertexState struct {
	Module     ShaderModuleID
	EntryPoint string
	Buffers    []gputypes.VertexBufferLayout
}

// FragmentState describes the fragment stage of a render pipeline.
type FragmentState struct {
	Module     ShaderModuleID
	EntryPoint string
	Targets    []gputypes.ColorTargetState
}

// DepthStencilState describes depth and stencil testing.
type DepthStencilState = gputypes.DepthStencilState

// RenderPipelineDescriptor describes a render pipeline.
// A zero Layout asks the backend to derive one from the shaders.
type RenderPipelineDescriptor struct {
	Label        string
	Layout       PipelineLayoutID
	Vertex       VertexState
	Primitive    gputypes.PrimitiveState
	DepthStencil *DepthStencilState
	Multisample  gputypes.MultisampleState
	Fragment     *FragmentState
}

// ComputePipelineDescriptor describes a compute pipeline.
// A zero Layout asks the backend to derive one from the shader.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     PipelineLayoutID
	Module     ShaderModuleID
	EntryPoint string
}

// CommandEncoderDescriptor describes a command encoder.
type CommandEncoderDescriptor struct {
	Label string
}

// CommandBufferDescriptor describes the result of finishing an encoder.
type CommandBufferDescriptor struct {
	Label string
}

// RenderPassColorAttachment describes one color target of a render pass.
type RenderPassColorAttachment struct {
	View          TextureViewID
	ResolveTarget TextureViewID
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	ClearValue    gputypes.Color
}

// RenderPassDepthStencilAttachment describes the depth/stencil target of
// a render pass.
type RenderPassDepthStencilAttachment struct {
	View              TextureViewID
	DepthLoadOp       gputypes.LoadOp
	DepthStoreOp      gputypes.StoreOp
	DepthClearValue   float32
	DepthReadOnly     bool
	StencilLoadOp     gputypes.LoadOp
	StencilStoreOp    gputypes.StoreOp
	StencilClearValue uint32
	StencilReadOnly   bool
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []RenderPassColorAttachment
	DepthStencilAttachment *RenderPassDepthStencilAttachment
}

// ComputePassDescriptor describes a compute pass.
type ComputePassDescriptor struct {
	Label string
}

// RenderBundleEncoderDescriptor describes a render bundle encoder. The
// formats must match the render passes the bundle will execute in.
type RenderBundleEncoderDescriptor struct {
	Label              string
	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	SampleCount        uint32
}

// RenderBundleDescriptor describes the result of finishing a bundle encoder.
type RenderBundleDescriptor struct {
	Label string
}

// TextureDataLayout describes how texel data is laid out in a buffer or
// host slice.
type TextureDataLayout struct {
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
}

// ImageCopyBuffer is a buffer-side copy location.
type ImageCopyBuffer struct {
	Buffer BufferID
	Layout TextureDataLayout
}

// ImageCopyTexture is a texture-side copy location.
type ImageCopyTexture struct {
	Texture  TextureID
	MipLevel uint32
	Origin   gputypes.Origin3D
	Aspect   gputypes.TextureAspect
}

// SwapChainDescriptor describes a swap chain.
type SwapChainDescriptor struct {
	Label       string
	Usage       gputypes.TextureUsage
	Format      gputypes.TextureFormat
	Width       uint32
	Height      uint32
	PresentMode PresentMode
}
