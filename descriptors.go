package gpuapi

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Descriptors without handles are shared with the dispatch contract.
type (
	BufferDescriptor              = gpucore.BufferDescriptor
	TextureDescriptor             = gpucore.TextureDescriptor
	TextureViewDescriptor         = gpucore.TextureViewDescriptor
	SamplerDescriptor             = gpucore.SamplerDescriptor
	ShaderSource                  = gpucore.ShaderSource
	ShaderModuleDescriptor        = gpucore.ShaderModuleDescriptor
	BindGroupLayoutDescriptor     = gpucore.BindGroupLayoutDescriptor
	PushConstantRange             = gpucore.PushConstantRange
	DepthStencilState             = gpucore.DepthStencilState
	CommandEncoderDescriptor      = gpucore.CommandEncoderDescriptor
	CommandBufferDescriptor       = gpucore.CommandBufferDescriptor
	ComputePassDescriptor         = gpucore.ComputePassDescriptor
	RenderBundleEncoderDescriptor = gpucore.RenderBundleEncoderDescriptor
	RenderBundleDescriptor        = gpucore.RenderBundleDescriptor
	TextureDataLayout             = gpucore.TextureDataLayout
	SwapChainDescriptor           = gpucore.SwapChainDescriptor
	DeviceDescriptor              = gpucore.DeviceDescriptor
	AdapterInfo                   = gpucore.AdapterInfo
	MapMode                       = gpucore.MapMode
	Maintain                      = gpucore.Maintain
	ShaderStages                  = gpucore.ShaderStages

	Features      = gputypes.Features
	Limits        = gputypes.Limits
	TextureFormat = gputypes.TextureFormat
)

// Re-exported enum values.
const (
	MapModeRead  = gpucore.MapModeRead
	MapModeWrite = gpucore.MapModeWrite

	MaintainPoll = gpucore.MaintainPoll
	MaintainWait = gpucore.MaintainWait
)

// RequestAdapterOptions selects an adapter.
type RequestAdapterOptions struct {
	PowerPreference gputypes.PowerPreference
	// CompatibleSurface, if set, restricts the search to adapters that can
	// present to it.
	CompatibleSurface    *Surface
	ForceFallbackAdapter bool
}

// BindingResource is a resource bound into a bind group: a BufferBinding,
// a *Sampler, a *TextureView or a TextureViewArray.
type BindingResource interface {
	toCore() gpucore.BindingResource
}

// BufferBinding binds a range of a buffer. Size 0 binds to the end.
type BufferBinding struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

func (b BufferBinding) toCore() gpucore.BindingResource {
	return gpucore.BufferBinding{Buffer: b.Buffer.live(), Offset: b.Offset, Size: b.Size}
}

// TextureViewArray binds an array of texture views.
type TextureViewArray []*TextureView

func (a TextureViewArray) toCore() gpucore.BindingResource {
	ids := make([]gpucore.TextureViewID, len(a))
	for i, v := range a {
		ids[i] = v.live()
	}
	return gpucore.TextureViewArrayBinding{Views: ids}
}

// BindGroupEntry binds one resource to a binding slot.
type BindGroupEntry struct {
	Binding  uint32
	Resource BindingResource
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  *BindGroupLayout
	Entries []BindGroupEntry
}

// PipelineLayoutDescriptor describes a pipeline layout.
type PipelineLayoutDescriptor struct {
	Label              string
	BindGroupLayouts   []*BindGroupLayout
	PushConstantRanges []PushConstantRange
}

// VertexState describes the vertex stage of a render pipeline.
type VertexState struct {
	Module     *ShaderModule
	EntryPoint string
	Buffers    []gputypes.VertexBufferLayout
}

// FragmentState describes the fragment stage of a render pipeline.
type FragmentState struct {
	Module     *ShaderModule
	EntryPoint string
	Targets    []gputypes.ColorTargetState
}

// RenderPipelineDescriptor describes a render pipeline. A nil Layout
// derives one from the shaders.
type RenderPipelineDescriptor struct {
	Label        string
	Layout       *PipelineLayout
	Vertex       VertexState
	Primitive    gputypes.PrimitiveState
	DepthStencil *DepthStencilState
	Multisample  gputypes.MultisampleState
	Fragment     *FragmentState
}

// ComputePipelineDescriptor describes a compute pipeline. A nil Layout
// derives one from the shader.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     *PipelineLayout
	Module     *ShaderModule
	EntryPoint string
}

// RenderPassColorAttachment describes one color target of a render pass.
type RenderPassColorAttachment struct {
	View          *TextureView
	ResolveTarget *TextureView
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	ClearValue    gputypes.Color
}

// RenderPassDepthStencilAttachment describes the depth/stencil target of
// a render pass.
type RenderPassDepthStencilAttachment struct {
	View              *TextureView
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

// ImageCopyBuffer is a buffer-side copy location.
type ImageCopyBuffer struct {
	Buffer *Buffer
	Layout TextureDataLayout
}

// ImageCopyTexture is a texture-side copy location.
type ImageCopyTexture struct {
	Texture  *Texture
	MipLevel uint32
	Origin   gputypes.Origin3D
	Aspect   gputypes.TextureAspect
}

func (c *ImageCopyBuffer) toCore() *gpucore.ImageCopyBuffer {
	return &gpucore.ImageCopyBuffer{Buffer: c.Buffer.live(), Layout: c.Layout}
}

func (c *ImageCopyTexture) toCore() *gpucore.ImageCopyTexture {
	return &gpucore.ImageCopyTexture{
		Texture:  c.Texture.live(),
		MipLevel: c.MipLevel,
		Origin:   c.Origin,
		Aspect:   c.Aspect,
	}
}

func (d *BindGroupDescriptor) toCore() *gpucore.BindGroupDescriptor {
	entries := make([]gpucore.BindGroupEntry, len(d.Entries))
	for i, e := range d.Entries {
		entries[i] = gpucore.BindGroupEntry{Binding: e.Binding, Resource: e.Resource.toCore()}
	}
	return &gpucore.BindGroupDescriptor{Label: d.Label, Layout: d.Layout.live(), Entries: entries}
}

func (d *PipelineLayoutDescriptor) toCore() *gpucore.PipelineLayoutDescriptor {
	layouts := make([]gpucore.BindGroupLayoutID, len(d.BindGroupLayouts))
	for i, l := range d.BindGroupLayouts {
		layouts[i] = l.live()
	}
	return &gpucore.PipelineLayoutDescriptor{
		Label:              d.Label,
		BindGroupLayouts:   layouts,
		PushConstantRanges: d.PushConstantRanges,
	}
}

func (d *RenderPipelineDescriptor) toCore() *gpucore.RenderPipelineDescriptor {
	out := &gpucore.RenderPipelineDescriptor{
		Label: d.Label,
		Vertex: gpucore.VertexState{
			Module:     d.Vertex.Module.live(),
			EntryPoint: d.Vertex.EntryPoint,
			Buffers:    d.Vertex.Buffers,
		},
		Primitive:    d.Primitive,
		DepthStencil: d.DepthStencil,
		Multisample:  d.Multisample,
	}
	if d.Layout != nil {
		out.Layout = d.Layout.live()
	}
	if d.Fragment != nil {
		out.Fragment = &gpucore.FragmentState{
			Module:     d.Fragment.Module.live(),
			EntryPoint: d.Fragment.EntryPoint,
			Targets:    d.Fragment.Targets,
		}
	}
	return out
}

func (d *ComputePipelineDescriptor) toCore() *gpucore.ComputePipelineDescriptor {
	out := &gpucore.ComputePipelineDescriptor{
		Label:      d.Label,
		Module:     d.Module.live(),
		EntryPoint: d.EntryPoint,
	}
	if d.Layout != nil {
		out.Layout = d.Layout.live()
	}
	return out
}

func (d *RenderPassDescriptor) toCore() *gpucore.RenderPassDescriptor {
	out := &gpucore.RenderPassDescriptor{
		Label:            d.Label,
		ColorAttachments: make([]gpucore.RenderPassColorAttachment, len(d.ColorAttachments)),
	}
	for i, ca := range d.ColorAttachments {
		c := gpucore.RenderPassColorAttachment{
			View:       ca.View.live(),
			LoadOp:     ca.LoadOp,
			StoreOp:    ca.StoreOp,
			ClearValue: ca.ClearValue,
		}
		if ca.ResolveTarget != nil {
			c.ResolveTarget = ca.ResolveTarget.live()
		}
		out.ColorAttachments[i] = c
	}
	if ds := d.DepthStencilAttachment; ds != nil {
		out.DepthStencilAttachment = &gpucore.RenderPassDepthStencilAttachment{
			View:              ds.View.live(),
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			DepthReadOnly:     ds.DepthReadOnly,
			StencilLoadOp:     ds.StencilLoadOp,
			StencilStoreOp:    ds.StencilStoreOp,
			StencilClearValue: ds.StencilClearValue,
			StencilReadOnly:   ds.StencilReadOnly,
		}
	}
	return out
}
