package trace

import (
	"log/slog"

	"github.com/gogpu/gpuapi/gpucore"
)

func (b *Backend) DeviceCreateSwapChain(device gpucore.DeviceID, surface gpucore.SurfaceID, desc *gpucore.SwapChainDescriptor) (gpucore.SwapChainID, error) {
	sc, err := b.inner.DeviceCreateSwapChain(device, surface, desc)
	attrs := []slog.Attr{id("device", device), id("surface", surface)}
	if desc != nil {
		attrs = append(attrs,
			slog.String("format", desc.Format.String()),
			slog.Uint64("width", uint64(desc.Width)),
			slog.Uint64("height", uint64(desc.Height)),
			slog.String("present_mode", desc.PresentMode.String()),
		)
	}
	b.record("DeviceCreateSwapChain", append(attrs, id("swap_chain", sc), errAttr(err))...)
	return sc, err
}

func (b *Backend) DeviceCreateShaderModule(device gpucore.DeviceID, desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	m, err := b.inner.DeviceCreateShaderModule(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		source := "spirv"
		if desc.Source.IsWGSL() {
			source = "wgsl"
		}
		attrs = append(attrs, label(desc.Label), slog.String("source", source))
	}
	b.record("DeviceCreateShaderModule", append(attrs, id("shader_module", m), errAttr(err))...)
	return m, err
}

func (b *Backend) DeviceCreateBindGroupLayout(device gpucore.DeviceID, desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	l, err := b.inner.DeviceCreateBindGroupLayout(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), slog.Int("entries", len(desc.Entries)))
	}
	b.record("DeviceCreateBindGroupLayout", append(attrs, id("bind_group_layout", l), errAttr(err))...)
	return l, err
}

func (b *Backend) DeviceCreateBindGroup(device gpucore.DeviceID, desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	g, err := b.inner.DeviceCreateBindGroup(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), id("layout", desc.Layout), slog.Int("entries", len(desc.Entries)))
	}
	b.record("DeviceCreateBindGroup", append(attrs, id("bind_group", g), errAttr(err))...)
	return g, err
}

func (b *Backend) DeviceCreatePipelineLayout(device gpucore.DeviceID, desc *gpucore.PipelineLayoutDescriptor) (gpucore.PipelineLayoutID, error) {
	l, err := b.inner.DeviceCreatePipelineLayout(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), ids("bind_group_layouts", desc.BindGroupLayouts))
	}
	b.record("DeviceCreatePipelineLayout", append(attrs, id("pipeline_layout", l), errAttr(err))...)
	return l, err
}

func (b *Backend) DeviceCreateRenderPipeline(device gpucore.DeviceID, desc *gpucore.RenderPipelineDescriptor) (gpucore.RenderPipelineID, error) {
	p, err := b.inner.DeviceCreateRenderPipeline(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), id("layout", desc.Layout), id("vertex_module", desc.Vertex.Module))
		if desc.Fragment != nil {
			attrs = append(attrs, id("fragment_module", desc.Fragment.Module), slog.Int("targets", len(desc.Fragment.Targets)))
		}
	}
	b.record("DeviceCreateRenderPipeline", append(attrs, id("render_pipeline", p), errAttr(err))...)
	return p, err
}

func (b *Backend) DeviceCreateComputePipeline(device gpucore.DeviceID, desc *gpucore.ComputePipelineDescriptor) (gpucore.ComputePipelineID, error) {
	p, err := b.inner.DeviceCreateComputePipeline(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), id("layout", desc.Layout), id("module", desc.Module), slog.String("entry_point", desc.EntryPoint))
	}
	b.record("DeviceCreateComputePipeline", append(attrs, id("compute_pipeline", p), errAttr(err))...)
	return p, err
}

func (b *Backend) DeviceCreateBuffer(device gpucore.DeviceID, desc *gpucore.BufferDescriptor) (gpucore.BufferID, error) {
	buf, err := b.inner.DeviceCreateBuffer(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs,
			label(desc.Label),
			slog.Uint64("size", desc.Size),
			slog.Uint64("usage", uint64(desc.Usage)),
			slog.Bool("mapped_at_creation", desc.MappedAtCreation),
		)
	}
	b.record("DeviceCreateBuffer", append(attrs, id("buffer", buf), errAttr(err))...)
	return buf, err
}

func (b *Backend) DeviceCreateTexture(device gpucore.DeviceID, desc *gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	tex, err := b.inner.DeviceCreateTexture(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs,
			label(desc.Label),
			slog.Uint64("width", uint64(desc.Size.Width)),
			slog.Uint64("height", uint64(desc.Size.Height)),
			slog.Uint64("depth", uint64(desc.Size.DepthOrArrayLayers)),
			slog.String("format", desc.Format.String()),
		)
	}
	b.record("DeviceCreateTexture", append(attrs, id("texture", tex), errAttr(err))...)
	return tex, err
}

func (b *Backend) DeviceCreateSampler(device gpucore.DeviceID, desc *gpucore.SamplerDescriptor) (gpucore.SamplerID, error) {
	s, err := b.inner.DeviceCreateSampler(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), slog.String("mag_filter", desc.MagFilter.String()), slog.String("min_filter", desc.MinFilter.String()))
	}
	b.record("DeviceCreateSampler", append(attrs, id("sampler", s), errAttr(err))...)
	return s, err
}

func (b *Backend) TextureCreateView(texture gpucore.TextureID, desc *gpucore.TextureViewDescriptor) (gpucore.TextureViewID, error) {
	v, err := b.inner.TextureCreateView(texture, desc)
	attrs := []slog.Attr{id("texture", texture)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), slog.Uint64("base_mip_level", uint64(desc.BaseMipLevel)), slog.Uint64("mip_level_count", uint64(desc.MipLevelCount)))
	}
	b.record("TextureCreateView", append(attrs, id("view", v), errAttr(err))...)
	return v, err
}

func (b *Backend) ComputePipelineGetBindGroupLayout(pipeline gpucore.ComputePipelineID, index uint32) (gpucore.BindGroupLayoutID, error) {
	l, err := b.inner.ComputePipelineGetBindGroupLayout(pipeline, index)
	b.record("ComputePipelineGetBindGroupLayout", id("compute_pipeline", pipeline), slog.Uint64("index", uint64(index)), id("bind_group_layout", l), errAttr(err))
	return l, err
}

func (b *Backend) RenderPipelineGetBindGroupLayout(pipeline gpucore.RenderPipelineID, index uint32) (gpucore.BindGroupLayoutID, error) {
	l, err := b.inner.RenderPipelineGetBindGroupLayout(pipeline, index)
	b.record("RenderPipelineGetBindGroupLayout", id("render_pipeline", pipeline), slog.Uint64("index", uint64(index)), id("bind_group_layout", l), errAttr(err))
	return l, err
}

// === Buffer ===

func (b *Backend) BufferMapAsync(buffer gpucore.BufferID, mode gpucore.MapMode, offset, size uint64) *gpucore.Future[struct{}] {
	b.record("BufferMapAsync", id("buffer", buffer), slog.String("mode", mode.String()), slog.Uint64("offset", offset), slog.Uint64("size", size))
	f := b.inner.BufferMapAsync(buffer, mode, offset, size)
	watch(b, "BufferMapAsync", f, func(struct{}) slog.Attr { return id("buffer", buffer) })
	return f
}

func (b *Backend) BufferGetMappedRange(buffer gpucore.BufferID, offset, size uint64) []byte {
	b.record("BufferGetMappedRange", id("buffer", buffer), slog.Uint64("offset", offset), slog.Uint64("size", size))
	return b.inner.BufferGetMappedRange(buffer, offset, size)
}

func (b *Backend) BufferUnmap(buffer gpucore.BufferID) {
	b.record("BufferUnmap", id("buffer", buffer))
	b.inner.BufferUnmap(buffer)
}

// === Drops ===

func (b *Backend) TextureDrop(texture gpucore.TextureID) {
	b.record("TextureDrop", id("texture", texture))
	b.inner.TextureDrop(texture)
}

func (b *Backend) TextureViewDrop(view gpucore.TextureViewID) {
	b.record("TextureViewDrop", id("view", view))
	b.inner.TextureViewDrop(view)
}

func (b *Backend) SamplerDrop(sampler gpucore.SamplerID) {
	b.record("SamplerDrop", id("sampler", sampler))
	b.inner.SamplerDrop(sampler)
}

func (b *Backend) BufferDrop(buffer gpucore.BufferID) {
	b.record("BufferDrop", id("buffer", buffer))
	b.inner.BufferDrop(buffer)
}

func (b *Backend) BindGroupDrop(group gpucore.BindGroupID) {
	b.record("BindGroupDrop", id("bind_group", group))
	b.inner.BindGroupDrop(group)
}

func (b *Backend) BindGroupLayoutDrop(layout gpucore.BindGroupLayoutID) {
	b.record("BindGroupLayoutDrop", id("bind_group_layout", layout))
	b.inner.BindGroupLayoutDrop(layout)
}

func (b *Backend) PipelineLayoutDrop(layout gpucore.PipelineLayoutID) {
	b.record("PipelineLayoutDrop", id("pipeline_layout", layout))
	b.inner.PipelineLayoutDrop(layout)
}

func (b *Backend) ShaderModuleDrop(module gpucore.ShaderModuleID) {
	b.record("ShaderModuleDrop", id("shader_module", module))
	b.inner.ShaderModuleDrop(module)
}

func (b *Backend) CommandEncoderDrop(encoder gpucore.CommandEncoderID) {
	b.record("CommandEncoderDrop", id("encoder", encoder))
	b.inner.CommandEncoderDrop(encoder)
}

func (b *Backend) CommandBufferDrop(buffer gpucore.CommandBufferID) {
	b.record("CommandBufferDrop", id("command_buffer", buffer))
	b.inner.CommandBufferDrop(buffer)
}

func (b *Backend) RenderBundleDrop(bundle gpucore.RenderBundleID) {
	b.record("RenderBundleDrop", id("bundle", bundle))
	b.inner.RenderBundleDrop(bundle)
}

func (b *Backend) ComputePipelineDrop(pipeline gpucore.ComputePipelineID) {
	b.record("ComputePipelineDrop", id("compute_pipeline", pipeline))
	b.inner.ComputePipelineDrop(pipeline)
}

func (b *Backend) RenderPipelineDrop(pipeline gpucore.RenderPipelineID) {
	b.record("RenderPipelineDrop", id("render_pipeline", pipeline))
	b.inner.RenderPipelineDrop(pipeline)
}

func (b *Backend) SwapChainDrop(swapChain gpucore.SwapChainID) {
	b.record("SwapChainDrop", id("swap_chain", swapChain))
	b.inner.SwapChainDrop(swapChain)
}
