package memory

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
	"github.com/gogpu/gpuapi/internal/wgsl"
)

type bindGroupLayout struct {
	label   string
	entries []gputypes.BindGroupLayoutEntry
}

// compatible reports whether bind groups of l can be used where o is
// expected.
func (l *bindGroupLayout) compatible(o *bindGroupLayout) bool {
	return l == o || reflect.DeepEqual(l.entries, o.entries)
}

func (l *bindGroupLayout) entry(binding uint32) (gputypes.BindGroupLayoutEntry, bool) {
	i := slices.IndexFunc(l.entries, func(e gputypes.BindGroupLayoutEntry) bool { return e.Binding == binding })
	if i < 0 {
		return gputypes.BindGroupLayoutEntry{}, false
	}
	return l.entries[i], true
}

type bindGroup struct {
	label  string
	layout *bindGroupLayout
}

type pipelineLayout struct {
	groups        []*bindGroupLayout
	pushConstants []gpucore.PushConstantRange
}

// pushConstantStages returns the stages covering byte i, and whether any
// range covers it.
func (l *pipelineLayout) pushConstantStages(i uint32) (gputypes.ShaderStages, bool) {
	var stages gputypes.ShaderStages
	covered := false
	for _, r := range l.pushConstants {
		if i >= r.Start && i < r.End {
			stages |= r.Stages
			covered = true
		}
	}
	return stages, covered
}

// checkPushConstants verifies that every written byte is covered by
// exactly stages.
func (l *pipelineLayout) checkPushConstants(stages gputypes.ShaderStages, offset uint32, words int) error {
	end := offset + uint32(words)*4
	for i := offset; i < end; i += 4 {
		got, ok := l.pushConstantStages(i)
		if !ok {
			return fmt.Errorf("%w: push constant byte %d is outside every range", ErrRecording, i)
		}
		if got != stages {
			return fmt.Errorf("%w: push constant byte %d is visible to %s, written for %s", ErrRecording, i, got, stages)
		}
	}
	return nil
}

type renderPipeline struct {
	label         string
	layout        *pipelineLayout
	vertexBuffers int
	colorFormats  []gputypes.TextureFormat
	depthFormat   gputypes.TextureFormat
}

type computePipeline struct {
	label  string
	layout *pipelineLayout
}

// DeviceCreateBindGroupLayout stores the layout entries.
func (b *Backend) DeviceCreateBindGroupLayout(deviceID gpucore.DeviceID, desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if uint32(len(desc.Entries)) > d.limits.MaxBindingsPerBindGroup {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bindings", ErrLimitExceeded, len(desc.Entries))
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return gpucore.InvalidID, fmt.Errorf("%w: layout %q binds %d twice", ErrInvalidDescriptor, desc.Label, e.Binding)
		}
		seen[e.Binding] = true
	}
	l := &bindGroupLayout{label: desc.Label, entries: slices.Clone(desc.Entries)}
	return insert(b, b.bindGroupLayouts, l), nil
}

// BindGroupLayoutDrop releases a bind group layout.
func (b *Backend) BindGroupLayoutDrop(id gpucore.BindGroupLayoutID) {
	remove(b, "bind group layout", b.bindGroupLayouts, id)
}

// DeviceCreateBindGroup checks every entry against the layout.
func (b *Backend) DeviceCreateBindGroup(deviceID gpucore.DeviceID, desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	if _, err := b.device(deviceID); err != nil {
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
	for _, e := range desc.Entries {
		le, ok := layout.entry(e.Binding)
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: binding %d not in layout %q", ErrInvalidDescriptor, e.Binding, layout.label)
		}
		if err := b.checkResource(le, e.Resource); err != nil {
			return gpucore.InvalidID, fmt.Errorf("bind group %q binding %d: %w", desc.Label, e.Binding, err)
		}
	}
	return insert(b, b.bindGroups, &bindGroup{label: desc.Label, layout: layout}), nil
}

func (b *Backend) checkResource(le gputypes.BindGroupLayoutEntry, res gpucore.BindingResource) error {
	switch r := res.(type) {
	case gpucore.BufferBinding:
		buf, ok := lookup(b, b.buffers, r.Buffer)
		if !ok {
			return fmt.Errorf("%w: buffer %d", ErrInvalidHandle, r.Buffer)
		}
		if le.Buffer == nil {
			return fmt.Errorf("%w: buffer bound to a non-buffer slot", ErrInvalidDescriptor)
		}
		if r.Offset > buf.size || r.Size > buf.size-r.Offset {
			return fmt.Errorf("%w: binding range outside buffer %q", ErrInvalidDescriptor, buf.label)
		}
	case gpucore.SamplerBinding:
		if _, ok := lookup(b, b.samplers, r.Sampler); !ok {
			return fmt.Errorf("%w: sampler %d", ErrInvalidHandle, r.Sampler)
		}
		if le.Sampler == nil {
			return fmt.Errorf("%w: sampler bound to a non-sampler slot", ErrInvalidDescriptor)
		}
	case gpucore.TextureViewBinding:
		if _, ok := lookup(b, b.views, r.View); !ok {
			return fmt.Errorf("%w: texture view %d", ErrInvalidHandle, r.View)
		}
		if le.Texture == nil && le.StorageTexture == nil {
			return fmt.Errorf("%w: texture view bound to a non-texture slot", ErrInvalidDescriptor)
		}
	case gpucore.TextureViewArrayBinding:
		for _, v := range r.Views {
			if _, ok := lookup(b, b.views, v); !ok {
				return fmt.Errorf("%w: texture view %d", ErrInvalidHandle, v)
			}
		}
	default:
		return fmt.Errorf("%w: unknown binding resource %T", ErrInvalidDescriptor, res)
	}
	return nil
}

// BindGroupDrop releases a bind group.
func (b *Backend) BindGroupDrop(id gpucore.BindGroupID) {
	remove(b, "bind group", b.bindGroups, id)
}

// DeviceCreatePipelineLayout checks the group count and push constant
// ranges. A stage may appear in at most one push constant range.
func (b *Backend) DeviceCreatePipelineLayout(deviceID gpucore.DeviceID, desc *gpucore.PipelineLayoutDescriptor) (gpucore.PipelineLayoutID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if uint32(len(desc.BindGroupLayouts)) > d.limits.MaxBindGroups {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bind groups, max %d", ErrLimitExceeded, len(desc.BindGroupLayouts), d.limits.MaxBindGroups)
	}
	l := &pipelineLayout{pushConstants: slices.Clone(desc.PushConstantRanges)}
	for _, id := range desc.BindGroupLayouts {
		g, ok := lookup(b, b.bindGroupLayouts, id)
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrInvalidHandle, id)
		}
		l.groups = append(l.groups, g)
	}

	var used gputypes.ShaderStages
	for _, r := range desc.PushConstantRanges {
		switch {
		case r.Start%4 != 0 || r.End%4 != 0 || r.End <= r.Start:
			return gpucore.InvalidID, fmt.Errorf("%w: push constant range [%d, %d)", ErrInvalidDescriptor, r.Start, r.End)
		case r.End > d.limits.MaxPushConstantSize:
			return gpucore.InvalidID, fmt.Errorf("%w: push constant range end %d > %d", ErrLimitExceeded, r.End, d.limits.MaxPushConstantSize)
		case used&r.Stages != 0:
			return gpucore.InvalidID, fmt.Errorf("%w: stages %s in more than one push constant range", ErrInvalidDescriptor, used&r.Stages)
		}
		used |= r.Stages
	}
	return insert(b, b.pipelineLayouts, l), nil
}

// PipelineLayoutDrop releases a pipeline layout.
func (b *Backend) PipelineLayoutDrop(id gpucore.PipelineLayoutID) {
	remove(b, "pipeline layout", b.pipelineLayouts, id)
}

// deriveLayout builds a layout from the bindings the modules declare.
func deriveLayout(limits gputypes.Limits, stages gputypes.ShaderStages, modules ...*shaderModule) *pipelineLayout {
	reflected := make([]*wgsl.Module, 0, len(modules))
	for _, m := range modules {
		reflected = append(reflected, m.reflect)
	}

	l := &pipelineLayout{}
	for g, entries := range wgsl.DeriveGroups(stages, reflected...) {
		l.groups = append(l.groups, &bindGroupLayout{label: fmt.Sprintf("derived group %d", g), entries: entries})
	}
	if wgsl.UsesPushConstants(reflected...) && limits.MaxPushConstantSize > 0 {
		l.pushConstants = []gpucore.PushConstantRange{{Stages: stages, Start: 0, End: limits.MaxPushConstantSize}}
	}
	return l
}

func (b *Backend) pipelineLayout(d *device, id gpucore.PipelineLayoutID, stages gputypes.ShaderStages, modules ...*shaderModule) (*pipelineLayout, error) {
	if id == gpucore.InvalidID {
		return deriveLayout(d.limits, stages, modules...), nil
	}
	l, ok := lookup(b, b.pipelineLayouts, id)
	if !ok {
		return nil, fmt.Errorf("%w: pipeline layout %d", ErrInvalidHandle, id)
	}
	return l, nil
}

func (b *Backend) shaderModule(id gpucore.ShaderModuleID) (*shaderModule, error) {
	m, ok := lookup(b, b.shaders, id)
	if !ok {
		return nil, fmt.Errorf("%w: shader module %d", ErrInvalidHandle, id)
	}
	return m, nil
}

// DeviceCreateRenderPipeline checks entry points against the modules.
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

	p := &renderPipeline{label: desc.Label, vertexBuffers: len(desc.Vertex.Buffers)}
	if desc.Fragment != nil {
		fs, err := b.shaderModule(desc.Fragment.Module)
		if err != nil {
			return gpucore.InvalidID, err
		}
		if err := fs.checkEntryPoint(desc.Fragment.EntryPoint, gputypes.ShaderStageFragment); err != nil {
			return gpucore.InvalidID, fmt.Errorf("render pipeline %q: %w", desc.Label, err)
		}
		if uint32(len(desc.Fragment.Targets)) > d.limits.MaxColorAttachments {
			return gpucore.InvalidID, fmt.Errorf("%w: %d color targets", ErrLimitExceeded, len(desc.Fragment.Targets))
		}
		modules = append(modules, fs)
		stages |= gputypes.ShaderStageFragment
		for _, t := range desc.Fragment.Targets {
			p.colorFormats = append(p.colorFormats, t.Format)
		}
	}
	if desc.DepthStencil != nil {
		p.depthFormat = desc.DepthStencil.Format
	}

	p.layout, err = b.pipelineLayout(d, desc.Layout, stages, modules...)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := insert(b, b.renderPipelines, p)
	b.log().Debug("memory: render pipeline created", "id", uint64(id), "label", desc.Label)
	return id, nil
}

// DeviceCreateComputePipeline checks the entry point against the module.
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
	layout, err := b.pipelineLayout(d, desc.Layout, gputypes.ShaderStageCompute, cs)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := insert(b, b.computePipelines, &computePipeline{label: desc.Label, layout: layout})
	b.log().Debug("memory: compute pipeline created", "id", uint64(id), "label", desc.Label)
	return id, nil
}

// groupLayout hands out a new handle for group index of layout.
func (b *Backend) groupLayout(layout *pipelineLayout, index uint32) (gpucore.BindGroupLayoutID, error) {
	if index >= uint32(len(layout.groups)) {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group index %d, pipeline has %d", ErrInvalidDescriptor, index, len(layout.groups))
	}
	return insert(b, b.bindGroupLayouts, layout.groups[index]), nil
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

// RenderPipelineDrop releases a render pipeline.
func (b *Backend) RenderPipelineDrop(id gpucore.RenderPipelineID) {
	remove(b, "render pipeline", b.renderPipelines, id)
}

// ComputePipelineDrop releases a compute pipeline.
func (b *Backend) ComputePipelineDrop(id gpucore.ComputePipelineID) {
	remove(b, "compute pipeline", b.computePipelines, id)
}
