package native

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuapi/gpucore"
	"github.com/gogpu/gpuapi/internal/wgsl"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

type shaderModule struct {
	device *device
	raw    hal.ShaderModule
	label  string

	// reflect is nil for SPIR-V modules.
	reflect *wgsl.Module
}

// Layouts are shared by handles, pipelines and bind groups. The hal
// object is destroyed when the last reference goes.
type bindGroupLayout struct {
	device  *device
	raw     hal.BindGroupLayout
	label   string
	entries []gputypes.BindGroupLayoutEntry
	refs    atomic.Int32
}

func newBindGroupLayout(d *device, raw hal.BindGroupLayout, label string, entries []gputypes.BindGroupLayoutEntry) *bindGroupLayout {
	l := &bindGroupLayout{device: d, raw: raw, label: label, entries: entries}
	l.refs.Store(1)
	return l
}

func (l *bindGroupLayout) retain() *bindGroupLayout {
	l.refs.Add(1)
	return l
}

func (l *bindGroupLayout) release() {
	if l.refs.Add(-1) != 0 {
		return
	}
	d := l.device
	d.retire(func() { d.raw.DestroyBindGroupLayout(l.raw) })
}

func (l *bindGroupLayout) entry(binding uint32) (gputypes.BindGroupLayoutEntry, bool) {
	i := slices.IndexFunc(l.entries, func(e gputypes.BindGroupLayoutEntry) bool { return e.Binding == binding })
	if i < 0 {
		return gputypes.BindGroupLayoutEntry{}, false
	}
	return l.entries[i], true
}

type bindGroup struct {
	device *device
	raw    hal.BindGroup
	layout *bindGroupLayout
}

type pipelineLayout struct {
	device        *device
	raw           hal.PipelineLayout
	groups        []*bindGroupLayout
	pushConstants []gpucore.PushConstantRange
	refs          atomic.Int32
}

func (l *pipelineLayout) retain() *pipelineLayout {
	l.refs.Add(1)
	return l
}

func (l *pipelineLayout) release() {
	if l.refs.Add(-1) != 0 {
		return
	}
	d := l.device
	d.retire(func() { d.raw.DestroyPipelineLayout(l.raw) })
	for _, g := range l.groups {
		g.release()
	}
}

type renderPipeline struct {
	device *device
	raw    hal.RenderPipeline
	label  string
	layout *pipelineLayout
}

type computePipeline struct {
	device *device
	raw    hal.ComputePipeline
	label  string
	layout *pipelineLayout
}

// DeviceCreateShaderModule validates WGSL with naga and hands it to the
// driver, compiled to SPIR-V when WithSPIRV is set. SPIR-V passes through
// after a magic number check.
func (b *Backend) DeviceCreateShaderModule(deviceID gpucore.DeviceID, desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}

	m := &shaderModule{device: d, label: desc.Label}
	var source hal.ShaderSource
	switch {
	case desc.Source.IsWGSL():
		m.reflect, err = wgsl.Reflect(desc.Source.WGSL)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("%w: %q: %w", ErrShaderCompile, desc.Label, err)
		}
		if b.cfg.spirv {
			words, err := wgsl.CompileSPIRV(desc.Source.WGSL)
			if err != nil {
				return gpucore.InvalidID, fmt.Errorf("%w: %q: %w", ErrShaderCompile, desc.Label, err)
			}
			source.SPIRV = words
		} else {
			source.WGSL = desc.Source.WGSL
		}
	case len(desc.Source.SPIRV) > 0:
		if desc.Source.SPIRV[0] != spirvMagic {
			return gpucore.InvalidID, fmt.Errorf("%w: module %q is not SPIR-V", ErrShaderCompile, desc.Label)
		}
		source.SPIRV = desc.Source.SPIRV
	default:
		return gpucore.InvalidID, fmt.Errorf("%w: module %q has no source", ErrInvalidDescriptor, desc.Label)
	}

	m.raw, err = d.raw.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: desc.Label, Source: source})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %q: %w", ErrShaderCompile, desc.Label, err)
	}
	id := insert(b, b.shaders, m)
	b.log().Debug("native: shader module created", "id", uint64(id), "label", desc.Label, "spirv", source.SPIRV != nil)
	return id, nil
}

// checkEntryPoint verifies that a WGSL module declares name for stage.
func (m *shaderModule) checkEntryPoint(name string, stage gputypes.ShaderStage) error {
	if m.reflect == nil {
		return nil
	}
	got, ok := m.reflect.Stage(name)
	if !ok {
		return fmt.Errorf("%w: %q in module %q", ErrEntryPoint, name, m.label)
	}
	if got != stage {
		return fmt.Errorf("%w: %q in module %q is a %s entry point, want %s", ErrEntryPoint, name, m.label, got, stage)
	}
	return nil
}

// ShaderModuleDrop destroys a shader module. Pipelines built from it
// stay valid.
func (b *Backend) ShaderModuleDrop(id gpucore.ShaderModuleID) {
	m, ok := remove(b, "shader module", b.shaders, id)
	if !ok {
		return
	}
	d := m.device
	d.retire(func() { d.raw.DestroyShaderModule(m.raw) })
}

// DeviceCreateBindGroupLayout creates a hal bind group layout.
func (b *Backend) DeviceCreateBindGroupLayout(deviceID gpucore.DeviceID, desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	l, err := createBindGroupLayout(d, desc.Label, desc.Entries)
	if err != nil {
		return gpucore.InvalidID, err
	}
	return insert(b, b.bindGroupLayouts, l), nil
}

func createBindGroupLayout(d *device, label string, entries []gputypes.BindGroupLayoutEntry) (*bindGroupLayout, error) {
	if limit := d.limits.MaxBindingsPerBindGroup; limit > 0 && uint32(len(entries)) > limit {
		return nil, fmt.Errorf("%w: layout %q has %d bindings, max %d", ErrInvalidDescriptor, label, len(entries), limit)
	}
	seen := make(map[uint32]bool, len(entries))
	for _, e := range entries {
		if seen[e.Binding] {
			return nil, fmt.Errorf("%w: layout %q binds %d twice", ErrInvalidDescriptor, label, e.Binding)
		}
		seen[e.Binding] = true
	}
	entries = slices.Clone(entries)
	raw, err := d.raw.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: label, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout %q: %w", label, err)
	}
	return newBindGroupLayout(d, raw, label, entries), nil
}

// BindGroupLayoutDrop releases a handle. The layout lives on while
// pipelines or bind groups use it.
func (b *Backend) BindGroupLayoutDrop(id gpucore.BindGroupLayoutID) {
	if l, ok := remove(b, "bind group layout", b.bindGroupLayouts, id); ok {
		l.release()
	}
}

// DeviceCreateBindGroup resolves every resource to its native handle.
func (b *Backend) DeviceCreateBindGroup(deviceID gpucore.DeviceID, desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	layout, ok := lookup(b, b.bindGroupLayouts, desc.Layout)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrInvalidHandle, desc.Layout)
	}
	if len(desc.Entries) != len(layout.entries) {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group %q has %d entries, layout %q has %d",
			ErrInvalidDescriptor, desc.Label, len(desc.Entries), layout.label, len(layout.entries))
	}

	entries := make([]gputypes.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		le, ok := layout.entry(e.Binding)
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: binding %d not in layout %q", ErrInvalidDescriptor, e.Binding, layout.label)
		}
		res, err := b.bindingResource(le, e.Resource)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, err)
		}
		entries = append(entries, gputypes.BindGroupEntry{Binding: e.Binding, Resource: res})
	}

	raw, err := d.raw.CreateBindGroup(&hal.BindGroupDescriptor{Label: desc.Label, Layout: layout.raw, Entries: entries})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}
	return insert(b, b.bindGroups, &bindGroup{device: d, raw: raw, layout: layout.retain()}), nil
}

func (b *Backend) bindingResource(le gputypes.BindGroupLayoutEntry, res gpucore.BindingResource) (gputypes.BindingResource, error) {
	switch r := res.(type) {
	case gpucore.BufferBinding:
		buf, ok := lookup(b, b.buffers, r.Buffer)
		if !ok {
			return nil, fmt.Errorf("%w: buffer %d", ErrInvalidHandle, r.Buffer)
		}
		if le.Buffer == nil {
			return nil, fmt.Errorf("%w: buffer bound to a non-buffer slot", ErrInvalidDescriptor)
		}
		if r.Offset > buf.size || r.Size > buf.size-r.Offset {
			return nil, fmt.Errorf("%w: binding range outside buffer %q", ErrInvalidDescriptor, buf.label)
		}
		return gputypes.BufferBinding{Buffer: buf.raw.NativeHandle(), Offset: r.Offset, Size: r.Size}, nil
	case gpucore.SamplerBinding:
		s, ok := lookup(b, b.samplers, r.Sampler)
		if !ok {
			return nil, fmt.Errorf("%w: sampler %d", ErrInvalidHandle, r.Sampler)
		}
		if le.Sampler == nil {
			return nil, fmt.Errorf("%w: sampler bound to a non-sampler slot", ErrInvalidDescriptor)
		}
		return gputypes.SamplerBinding{Sampler: s.raw.NativeHandle()}, nil
	case gpucore.TextureViewBinding:
		v, ok := lookup(b, b.views, r.View)
		if !ok {
			return nil, fmt.Errorf("%w: texture view %d", ErrInvalidHandle, r.View)
		}
		if le.Texture == nil && le.StorageTexture == nil {
			return nil, fmt.Errorf("%w: texture view bound to a non-texture slot", ErrInvalidDescriptor)
		}
		return gputypes.TextureViewBinding{TextureView: v.raw.NativeHandle()}, nil
	case gpucore.TextureViewArrayBinding:
		return nil, fmt.Errorf("%w: texture view arrays", ErrUnsupportedCommand)
	default:
		return nil, fmt.Errorf("%w: unknown binding resource %T", ErrInvalidDescriptor, res)
	}
}

// BindGroupDrop destroys a bind group once pending work is done.
func (b *Backend) BindGroupDrop(id gpucore.BindGroupID) {
	g, ok := remove(b, "bind group", b.bindGroups, id)
	if !ok {
		return
	}
	d := g.device
	d.retire(func() { d.raw.DestroyBindGroup(g.raw) })
	g.layout.release()
}

// DeviceCreatePipelineLayout checks the group count and push constant
// ranges. A stage may appear in at most one push constant range.
func (b *Backend) DeviceCreatePipelineLayout(deviceID gpucore.DeviceID, desc *gpucore.PipelineLayoutDescriptor) (gpucore.PipelineLayoutID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if uint32(len(desc.BindGroupLayouts)) > d.limits.MaxBindGroups {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bind groups, max %d", ErrInvalidDescriptor, len(desc.BindGroupLayouts), d.limits.MaxBindGroups)
	}
	var used gputypes.ShaderStages
	for _, r := range desc.PushConstantRanges {
		switch {
		case r.Start%4 != 0 || r.End%4 != 0 || r.End <= r.Start:
			return gpucore.InvalidID, fmt.Errorf("%w: push constant range [%d, %d)", ErrInvalidDescriptor, r.Start, r.End)
		case r.End > d.limits.MaxPushConstantSize:
			return gpucore.InvalidID, fmt.Errorf("%w: push constant range end %d > %d", ErrInvalidDescriptor, r.End, d.limits.MaxPushConstantSize)
		case used&r.Stages != 0:
			return gpucore.InvalidID, fmt.Errorf("%w: stages %s in more than one push constant range", ErrInvalidDescriptor, used&r.Stages)
		}
		used |= r.Stages
	}

	groups := make([]*bindGroupLayout, 0, len(desc.BindGroupLayouts))
	for _, id := range desc.BindGroupLayouts {
		g, ok := lookup(b, b.bindGroupLayouts, id)
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrInvalidHandle, id)
		}
		groups = append(groups, g)
	}
	for _, g := range groups {
		g.retain()
	}
	l, err := createPipelineLayout(d, desc.Label, groups, desc.PushConstantRanges)
	if err != nil {
		for _, g := range groups {
			g.release()
		}
		return gpucore.InvalidID, err
	}
	return insert(b, b.pipelineLayouts, l), nil
}

// createPipelineLayout takes ownership of one reference to each group.
func createPipelineLayout(d *device, label string, groups []*bindGroupLayout, ranges []gpucore.PushConstantRange) (*pipelineLayout, error) {
	hd := &hal.PipelineLayoutDescriptor{Label: label}
	for _, g := range groups {
		hd.BindGroupLayouts = append(hd.BindGroupLayouts, g.raw)
	}
	for _, r := range ranges {
		hd.PushConstantRanges = append(hd.PushConstantRanges, hal.PushConstantRange{
			Stages: r.Stages,
			Range:  hal.Range{Start: r.Start, End: r.End},
		})
	}
	raw, err := d.raw.CreatePipelineLayout(hd)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline layout %q: %w", label, err)
	}
	l := &pipelineLayout{device: d, raw: raw, groups: groups, pushConstants: slices.Clone(ranges)}
	l.refs.Store(1)
	return l, nil
}

// PipelineLayoutDrop releases a handle. The layout lives on while
// pipelines use it.
func (b *Backend) PipelineLayoutDrop(id gpucore.PipelineLayoutID) {
	if l, ok := remove(b, "pipeline layout", b.pipelineLayouts, id); ok {
		l.release()
	}
}

// deriveLayout creates hal layouts for the bindings the modules declare.
// SPIR-V modules contribute nothing.
func deriveLayout(d *device, label string, stages gputypes.ShaderStages, modules ...*shaderModule) (*pipelineLayout, error) {
	reflected := make([]*wgsl.Module, 0, len(modules))
	for _, m := range modules {
		reflected = append(reflected, m.reflect)
	}

	var groups []*bindGroupLayout
	release := func() {
		for _, g := range groups {
			g.release()
		}
	}
	for i, entries := range wgsl.DeriveGroups(stages, reflected...) {
		g, err := createBindGroupLayout(d, fmt.Sprintf("%s group %d", label, i), entries)
		if err != nil {
			release()
			return nil, err
		}
		groups = append(groups, g)
	}
	var ranges []gpucore.PushConstantRange
	if wgsl.UsesPushConstants(reflected...) && d.limits.MaxPushConstantSize > 0 {
		ranges = []gpucore.PushConstantRange{{Stages: stages, Start: 0, End: d.limits.MaxPushConstantSize}}
	}
	l, err := createPipelineLayout(d, label+" layout", groups, ranges)
	if err != nil {
		release()
		return nil, err
	}
	return l, nil
}

// pipelineLayout returns a referenced layout: the explicit one, or one
// derived from the modules when id is invalid.
func (b *Backend) pipelineLayout(d *device, id gpucore.PipelineLayoutID, label string, stages gputypes.ShaderStages, modules ...*shaderModule) (*pipelineLayout, error) {
	if id == gpucore.InvalidID {
		return deriveLayout(d, label, stages, modules...)
	}
	l, ok := lookup(b, b.pipelineLayouts, id)
	if !ok {
		return nil, fmt.Errorf("%w: pipeline layout %d", ErrInvalidHandle, id)
	}
	return l.retain(), nil
}

func (b *Backend) shaderModule(id gpucore.ShaderModuleID) (*shaderModule, error) {
	m, ok := lookup(b, b.shaders, id)
	if !ok {
		return nil, fmt.Errorf("%w: shader module %d", ErrInvalidHandle, id)
	}
	return m, nil
}

// DeviceCreateRenderPipeline checks entry points against the modules and
// creates the hal pipeline.
func (b *Backend) DeviceCreateRenderPipeline(deviceID gpucore.DeviceID, desc *gpucore.RenderPipelineDescriptor) (gpucore.RenderPipelineID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	vs, err := b.shaderModule(desc.Vertex.Module)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := vs.checkEntryPoint(desc.Vertex.EntryPoint, gputypes.ShaderStageVertex); err != nil {
		return gpucore.InvalidID, fmt.Errorf("render pipeline %q: %w", desc.Label, err)
	}
	modules := []*shaderModule{vs}
	stages := gputypes.ShaderStageVertex

	hd := &hal.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: hal.VertexState{
			Module:     vs.raw,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:   desc.Primitive,
		Multisample: desc.Multisample,
	}
	if hd.Multisample.Count == 0 {
		hd.Multisample.Count = 1
	}
	if hd.Multisample.Mask == 0 {
		hd.Multisample.Mask = ^uint64(0)
	}
	if desc.Fragment != nil {
		fs, err := b.shaderModule(desc.Fragment.Module)
		if err != nil {
			return gpucore.InvalidID, err
		}
		if err := fs.checkEntryPoint(desc.Fragment.EntryPoint, gputypes.ShaderStageFragment); err != nil {
			return gpucore.InvalidID, fmt.Errorf("render pipeline %q: %w", desc.Label, err)
		}
		if uint32(len(desc.Fragment.Targets)) > d.limits.MaxColorAttachments {
			return gpucore.InvalidID, fmt.Errorf("%w: %d color targets", ErrInvalidDescriptor, len(desc.Fragment.Targets))
		}
		modules = append(modules, fs)
		stages |= gputypes.ShaderStageFragment
		hd.Fragment = &hal.FragmentState{
			Module:     fs.raw,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}
	if desc.DepthStencil != nil {
		hd.DepthStencil = halDepthStencil(desc.DepthStencil)
	}

	layout, err := b.pipelineLayout(d, desc.Layout, desc.Label, stages, modules...)
	if err != nil {
		return gpucore.InvalidID, err
	}
	hd.Layout = layout.raw
	raw, err := d.raw.CreateRenderPipeline(hd)
	if err != nil {
		layout.release()
		return gpucore.InvalidID, fmt.Errorf("failed to create render pipeline %q: %w", desc.Label, err)
	}
	id := insert(b, b.renderPipelines, &renderPipeline{device: d, raw: raw, label: desc.Label, layout: layout})
	b.log().Debug("native: render pipeline created", "id", uint64(id), "label", desc.Label)
	return id, nil
}

func halDepthStencil(ds *gpucore.DepthStencilState) *hal.DepthStencilState {
	return &hal.DepthStencilState{
		Format:              ds.Format,
		DepthWriteEnabled:   ds.DepthWriteEnabled,
		DepthCompare:        ds.DepthCompare,
		StencilFront:        halStencilFace(ds.StencilFront),
		StencilBack:         halStencilFace(ds.StencilBack),
		StencilReadMask:     ds.StencilReadMask,
		StencilWriteMask:    ds.StencilWriteMask,
		DepthBias:           ds.DepthBias,
		DepthBiasSlopeScale: ds.DepthBiasSlopeScale,
		DepthBiasClamp:      ds.DepthBiasClamp,
	}
}

func halStencilFace(f gputypes.StencilFaceState) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      halStencilOp(f.FailOp),
		DepthFailOp: halStencilOp(f.DepthFailOp),
		PassOp:      halStencilOp(f.PassOp),
	}
}

// halStencilOp maps a gputypes operation, which reserves zero for
// Undefined, onto the zero-based hal enum. Undefined means Keep.
func halStencilOp(op gputypes.StencilOperation) hal.StencilOperation {
	if op == gputypes.StencilOperationUndefined {
		return hal.StencilOperationKeep
	}
	return hal.StencilOperation(op - gputypes.StencilOperationKeep)
}

// DeviceCreateComputePipeline checks the entry point against the module
// and creates the hal pipeline.
func (b *Backend) DeviceCreateComputePipeline(deviceID gpucore.DeviceID, desc *gpucore.ComputePipelineDescriptor) (gpucore.ComputePipelineID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	cs, err := b.shaderModule(desc.Module)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := cs.checkEntryPoint(desc.EntryPoint, gputypes.ShaderStageCompute); err != nil {
		return gpucore.InvalidID, fmt.Errorf("compute pipeline %q: %w", desc.Label, err)
	}
	layout, err := b.pipelineLayout(d, desc.Layout, desc.Label, gputypes.ShaderStageCompute, cs)
	if err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.raw.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.raw,
		Compute: hal.ComputeState{
			Module:                        cs.raw,
			EntryPoint:                    desc.EntryPoint,
			ZeroInitializeWorkgroupMemory: true,
		},
	})
	if err != nil {
		layout.release()
		return gpucore.InvalidID, fmt.Errorf("failed to create compute pipeline %q: %w", desc.Label, err)
	}
	id := insert(b, b.computePipelines, &computePipeline{device: d, raw: raw, label: desc.Label, layout: layout})
	b.log().Debug("native: compute pipeline created", "id", uint64(id), "label", desc.Label)
	return id, nil
}

// groupLayout hands out a new handle for group index of layout.
func (b *Backend) groupLayout(layout *pipelineLayout, index uint32) (gpucore.BindGroupLayoutID, error) {
	if index >= uint32(len(layout.groups)) {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group index %d, pipeline has %d", ErrInvalidDescriptor, index, len(layout.groups))
	}
	return insert(b, b.bindGroupLayouts, layout.groups[index].retain()), nil
}

// RenderPipelineGetBindGroupLayout returns a new handle to a group layout.
func (b *Backend) RenderPipelineGetBindGroupLayout(id gpucore.RenderPipelineID, index uint32) (gpucore.BindGroupLayoutID, error) {
	p, ok := lookup(b, b.renderPipelines, id)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: render pipeline %d", ErrInvalidHandle, id)
	}
	return b.groupLayout(p.layout, index)
}

// ComputePipelineGetBindGroupLayout returns a new handle to a group layout.
func (b *Backend) ComputePipelineGetBindGroupLayout(id gpucore.ComputePipelineID, index uint32) (gpucore.BindGroupLayoutID, error) {
	p, ok := lookup(b, b.computePipelines, id)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: compute pipeline %d", ErrInvalidHandle, id)
	}
	return b.groupLayout(p.layout, index)
}

// RenderPipelineDrop destroys a render pipeline once pending work is done.
func (b *Backend) RenderPipelineDrop(id gpucore.RenderPipelineID) {
	p, ok := remove(b, "render pipeline", b.renderPipelines, id)
	if !ok {
		return
	}
	d := p.device
	d.retire(func() { d.raw.DestroyRenderPipeline(p.raw) })
	p.layout.release()
}

// ComputePipelineDrop destroys a compute pipeline once pending work is done.
func (b *Backend) ComputePipelineDrop(id gpucore.ComputePipelineID) {
	p, ok := remove(b, "compute pipeline", b.computePipelines, id)
	if !ok {
		return
	}
	d := p.device
	d.retire(func() { d.raw.DestroyComputePipeline(p.raw) })
	p.layout.release()
}
