//go:build rust

package rust

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/gpuapi/gpucore"
)

type buffer struct {
	raw  *wgpu.Buffer
	dev  *device
	size uint64

	mu      sync.Mutex
	mapping *gpucore.Future[struct{}]
}

// resolve ends the pending map request, if any, with status.
func (buf *buffer) resolve(status gpucore.BufferMapAsyncStatus) {
	buf.mu.Lock()
	f := buf.mapping
	buf.mapping = nil
	buf.mu.Unlock()
	if f == nil {
		return
	}

	buf.dev.mu.Lock()
	delete(buf.dev.pending, buf)
	buf.dev.mu.Unlock()

	if status == gpucore.BufferMapAsyncStatusSuccess {
		f.Resolve(struct{}{}, nil)
		return
	}
	f.Resolve(struct{}{}, &gpucore.BufferAsyncError{Status: status})
}

type textureView struct {
	raw *wgpu.TextureView
	// swapChain is set for frame views, which the swap chain owns.
	swapChain gpucore.SwapChainID
}

func invalid(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrInvalidDescriptor)
}

func (b *Backend) DeviceCreateBuffer(id gpucore.DeviceID, desc *gpucore.BufferDescriptor) (gpucore.BufferID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            wgpu.BufferUsage(desc.Usage),
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create buffer %q", desc.Label)
	}
	return insert(b, b.buffers, &buffer{raw: raw, dev: d, size: desc.Size}), nil
}

// BufferMapAsync forwards the request to wgpu-native. The callback runs
// from DevicePoll.
func (b *Backend) BufferMapAsync(id gpucore.BufferID, mode gpucore.MapMode, offset, size uint64) *gpucore.Future[struct{}] {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		return gpucore.Resolved(struct{}{}, error(&gpucore.BufferAsyncError{Status: gpucore.BufferMapAsyncStatusDestroyedBeforeCallback}))
	}

	buf.mu.Lock()
	if buf.mapping != nil {
		buf.mu.Unlock()
		return gpucore.Resolved(struct{}{}, error(&gpucore.BufferAsyncError{Status: gpucore.BufferMapAsyncStatusMappingAlreadyPending}))
	}
	f := gpucore.NewFuture[struct{}]()
	buf.mapping = f
	buf.mu.Unlock()

	buf.dev.mu.Lock()
	buf.dev.pending[buf] = struct{}{}
	buf.dev.mu.Unlock()

	wmode := wgpu.MapModeRead
	if mode == gpucore.MapModeWrite {
		wmode = wgpu.MapModeWrite
	}
	err := buf.raw.MapAsync(wmode, offset, size, func(status wgpu.BufferMapAsyncStatus) {
		buf.resolve(mapStatus(status))
	})
	if err != nil {
		b.log().Debug("rust: map rejected", "buffer", uint64(id), "err", err)
		buf.resolve(gpucore.BufferMapAsyncStatusValidationError)
	}
	return f
}

func (b *Backend) BufferGetMappedRange(id gpucore.BufferID, offset, size uint64) []byte {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		panic(errors.Wrapf(ErrInvalidHandle, "buffer %d", id))
	}
	return buf.raw.GetMappedRange(uint(offset), uint(size))
}

func (b *Backend) BufferUnmap(id gpucore.BufferID) {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		return
	}
	buf.resolve(gpucore.BufferMapAsyncStatusUnmappedBeforeCallback)
	if err := buf.raw.Unmap(); err != nil {
		b.log().Warn("rust: unmap failed", "buffer", uint64(id), "err", err)
	}
}

func (b *Backend) BufferDrop(id gpucore.BufferID) {
	buf, ok := remove(b, "buffer", b.buffers, id)
	if !ok {
		return
	}
	buf.resolve(gpucore.BufferMapAsyncStatusDestroyedBeforeCallback)
	buf.raw.Release()
}

func (b *Backend) DeviceCreateTexture(id gpucore.DeviceID, desc *gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.raw.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent(desc.Size),
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     conv(textureDimensions, desc.Dimension),
		Format:        conv(textureFormats, desc.Format),
		Usage:         wgpu.TextureUsage(desc.Usage),
	})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create texture %q", desc.Label)
	}
	return insert(b, b.textures, raw), nil
}

func (b *Backend) TextureCreateView(id gpucore.TextureID, desc *gpucore.TextureViewDescriptor) (gpucore.TextureViewID, error) {
	tex, ok := lookup(b, b.textures, id)
	if !ok {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "texture %d", id)
	}
	var wd *wgpu.TextureViewDescriptor
	if desc != nil {
		wd = &wgpu.TextureViewDescriptor{
			Label:           desc.Label,
			Format:          conv(textureFormats, desc.Format),
			Dimension:       conv(viewDimensions, desc.Dimension),
			BaseMipLevel:    desc.BaseMipLevel,
			MipLevelCount:   desc.MipLevelCount,
			BaseArrayLayer:  desc.BaseArrayLayer,
			ArrayLayerCount: desc.ArrayLayerCount,
			Aspect:          conv(aspects, desc.Aspect),
		}
		if wd.MipLevelCount == 0 {
			wd.MipLevelCount = wgpu.MipLevelCountUndefined
		}
		if wd.ArrayLayerCount == 0 {
			wd.ArrayLayerCount = wgpu.ArrayLayerCountUndefined
		}
	}
	raw, err := tex.CreateView(wd)
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create view of texture %d", id)
	}
	return insert(b, b.views, &textureView{raw: raw}), nil
}

func (b *Backend) TextureDrop(id gpucore.TextureID) {
	if t, ok := remove(b, "texture", b.textures, id); ok {
		t.Release()
	}
}

// TextureViewDrop ignores frame views; the swap chain releases them on
// present.
func (b *Backend) TextureViewDrop(id gpucore.TextureViewID) {
	b.mu.Lock()
	v, ok := b.views[id]
	if ok && v.swapChain == gpucore.InvalidID {
		delete(b.views, id)
	}
	b.mu.Unlock()
	if !ok {
		b.log().Warn("rust: drop of unknown handle", "kind", "texture view", "id", uint64(id))
		return
	}
	if v.swapChain == gpucore.InvalidID {
		v.raw.Release()
	}
}

func (b *Backend) DeviceCreateSampler(id gpucore.DeviceID, desc *gpucore.SamplerDescriptor) (gpucore.SamplerID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	lodMax := desc.LodMaxClamp
	if lodMax == 0 {
		lodMax = 32
	}
	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  conv(addressModes, desc.AddressModeU),
		AddressModeV:  conv(addressModes, desc.AddressModeV),
		AddressModeW:  conv(addressModes, desc.AddressModeW),
		MagFilter:     conv(filterModes, desc.MagFilter),
		MinFilter:     conv(filterModes, desc.MinFilter),
		MipmapFilter:  conv(mipmapFilterModes, desc.MipmapFilter),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   lodMax,
		Compare:       conv(compareFunctions, desc.Compare),
		MaxAnisotropy: max(desc.Anisotropy, 1),
	}
	raw, err := d.raw.CreateSampler(sd)
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create sampler %q", desc.Label)
	}
	return insert(b, b.samplers, raw), nil
}

func (b *Backend) SamplerDrop(id gpucore.SamplerID) {
	if s, ok := remove(b, "sampler", b.samplers, id); ok {
		s.Release()
	}
}

// DeviceCreateShaderModule hands WGSL or SPIR-V to wgpu-native, which
// compiles it with naga.
func (b *Backend) DeviceCreateShaderModule(id gpucore.DeviceID, desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	md := &wgpu.ShaderModuleDescriptor{Label: desc.Label}
	switch {
	case desc.Source.IsWGSL():
		md.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source.WGSL}
	case len(desc.Source.SPIRV) > 0:
		md.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: wgpu.ToBytes(desc.Source.SPIRV)}
	default:
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidDescriptor, "shader module %q has no source", desc.Label)
	}
	raw, err := d.raw.CreateShaderModule(md)
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create shader module %q", desc.Label)
	}
	return insert(b, b.shaders, raw), nil
}

func (b *Backend) ShaderModuleDrop(id gpucore.ShaderModuleID) {
	if s, ok := remove(b, "shader module", b.shaders, id); ok {
		s.Release()
	}
}

func (b *Backend) DeviceCreateBindGroupLayout(id gpucore.DeviceID, desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = bindGroupLayoutEntry(e)
	}
	raw, err := d.raw.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: desc.Label, Entries: entries})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create bind group layout %q", desc.Label)
	}
	return insert(b, b.bindGroupLayouts, raw), nil
}

func (b *Backend) BindGroupLayoutDrop(id gpucore.BindGroupLayoutID) {
	if l, ok := remove(b, "bind group layout", b.bindGroupLayouts, id); ok {
		l.Release()
	}
}

func (b *Backend) DeviceCreateBindGroup(id gpucore.DeviceID, desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	layout, ok := lookup(b, b.bindGroupLayouts, desc.Layout)
	if !ok {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "bind group layout %d", desc.Layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i].Binding = e.Binding
		switch r := e.Resource.(type) {
		case gpucore.BufferBinding:
			buf, ok := lookup(b, b.buffers, r.Buffer)
			if !ok {
				return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "buffer %d", r.Buffer)
			}
			entries[i].Buffer = buf.raw
			entries[i].Offset = r.Offset
			entries[i].Size = wholeSize(r.Size)
		case gpucore.SamplerBinding:
			s, ok := lookup(b, b.samplers, r.Sampler)
			if !ok {
				return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "sampler %d", r.Sampler)
			}
			entries[i].Sampler = s
		case gpucore.TextureViewBinding:
			v, ok := lookup(b, b.views, r.View)
			if !ok {
				return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "texture view %d", r.View)
			}
			entries[i].TextureView = v.raw
		default:
			return gpucore.InvalidID, errors.Wrapf(ErrInvalidDescriptor, "binding %d: unsupported resource %T", e.Binding, e.Resource)
		}
	}

	raw, err := d.raw.CreateBindGroup(&wgpu.BindGroupDescriptor{Label: desc.Label, Layout: layout, Entries: entries})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create bind group %q", desc.Label)
	}
	return insert(b, b.bindGroups, raw), nil
}

func (b *Backend) BindGroupDrop(id gpucore.BindGroupID) {
	if g, ok := remove(b, "bind group", b.bindGroups, id); ok {
		g.Release()
	}
}

func (b *Backend) DeviceCreatePipelineLayout(id gpucore.DeviceID, desc *gpucore.PipelineLayoutDescriptor) (gpucore.PipelineLayoutID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, lid := range desc.BindGroupLayouts {
		l, ok := lookup(b, b.bindGroupLayouts, lid)
		if !ok {
			return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "bind group layout %d", lid)
		}
		layouts[i] = l
	}
	ranges := make([]wgpu.PushConstantRange, len(desc.PushConstantRanges))
	for i, r := range desc.PushConstantRanges {
		ranges[i] = wgpu.PushConstantRange{Stages: wgpu.ShaderStage(r.Stages), Start: r.Start, End: r.End}
	}
	raw, err := d.raw.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:              desc.Label,
		BindGroupLayouts:   layouts,
		PushConstantRanges: ranges,
	})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create pipeline layout %q", desc.Label)
	}
	return insert(b, b.pipelineLayouts, raw), nil
}

func (b *Backend) PipelineLayoutDrop(id gpucore.PipelineLayoutID) {
	if l, ok := remove(b, "pipeline layout", b.pipelineLayouts, id); ok {
		l.Release()
	}
}

// pipelineLayout returns nil for InvalidID, which asks wgpu-native to
// derive the layout from the shaders.
func (b *Backend) pipelineLayout(id gpucore.PipelineLayoutID) (*wgpu.PipelineLayout, error) {
	if id == gpucore.InvalidID {
		return nil, nil
	}
	l, ok := lookup(b, b.pipelineLayouts, id)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "pipeline layout %d", id)
	}
	return l, nil
}

func (b *Backend) shader(id gpucore.ShaderModuleID) (*wgpu.ShaderModule, error) {
	s, ok := lookup(b, b.shaders, id)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "shader module %d", id)
	}
	return s, nil
}

func (b *Backend) DeviceCreateRenderPipeline(id gpucore.DeviceID, desc *gpucore.RenderPipelineDescriptor) (gpucore.RenderPipelineID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	layout, err := b.pipelineLayout(desc.Layout)
	if err != nil {
		return gpucore.InvalidID, err
	}
	vs, err := b.shader(desc.Vertex.Module)
	if err != nil {
		return gpucore.InvalidID, err
	}

	pd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    vertexLayouts(desc.Vertex.Buffers),
		},
		Primitive:    primitiveState(desc.Primitive),
		DepthStencil: depthStencilState(desc.DepthStencil),
		Multisample:  multisampleState(desc.Multisample),
	}
	if desc.Fragment != nil {
		fs, err := b.shader(desc.Fragment.Module)
		if err != nil {
			return gpucore.InvalidID, err
		}
		pd.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    colorTargets(desc.Fragment.Targets),
		}
	}

	raw, err := d.raw.CreateRenderPipeline(pd)
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create render pipeline %q", desc.Label)
	}
	return insert(b, b.renderPipelines, raw), nil
}

func (b *Backend) DeviceCreateComputePipeline(id gpucore.DeviceID, desc *gpucore.ComputePipelineDescriptor) (gpucore.ComputePipelineID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	layout, err := b.pipelineLayout(desc.Layout)
	if err != nil {
		return gpucore.InvalidID, err
	}
	cs, err := b.shader(desc.Module)
	if err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.raw.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     cs,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create compute pipeline %q", desc.Label)
	}
	return insert(b, b.computePipelines, raw), nil
}

func (b *Backend) ComputePipelineGetBindGroupLayout(id gpucore.ComputePipelineID, index uint32) (gpucore.BindGroupLayoutID, error) {
	p, ok := lookup(b, b.computePipelines, id)
	if !ok {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "compute pipeline %d", id)
	}
	l := p.GetBindGroupLayout(index)
	if l == nil {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidDescriptor, "compute pipeline %d has no bind group %d", id, index)
	}
	return insert(b, b.bindGroupLayouts, l), nil
}

func (b *Backend) RenderPipelineGetBindGroupLayout(id gpucore.RenderPipelineID, index uint32) (gpucore.BindGroupLayoutID, error) {
	p, ok := lookup(b, b.renderPipelines, id)
	if !ok {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "render pipeline %d", id)
	}
	l := p.GetBindGroupLayout(index)
	if l == nil {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidDescriptor, "render pipeline %d has no bind group %d", id, index)
	}
	return insert(b, b.bindGroupLayouts, l), nil
}

func (b *Backend) ComputePipelineDrop(id gpucore.ComputePipelineID) {
	if p, ok := remove(b, "compute pipeline", b.computePipelines, id); ok {
		p.Release()
	}
}

func (b *Backend) RenderPipelineDrop(id gpucore.RenderPipelineID) {
	if p, ok := remove(b, "render pipeline", b.renderPipelines, id); ok {
		p.Release()
	}
}
