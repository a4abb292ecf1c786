package gpuapi

import (
	"fmt"

	"github.com/gogpu/gpuapi/gpucore"
)

// Sampler is a texture sampler.
type Sampler struct {
	handle[gpucore.SamplerID]
}

func (s *Sampler) toCore() gpucore.BindingResource {
	return gpucore.SamplerBinding{Sampler: s.live()}
}

// Release drops the sampler.
func (s *Sampler) Release() {
	if r := recover(); r != nil {
		panic(s.unwind(r))
	}
	s.release()
}

// ShaderModule is a compiled shader module.
type ShaderModule struct {
	handle[gpucore.ShaderModuleID]
}

// Release drops the shader module.
func (m *ShaderModule) Release() {
	if r := recover(); r != nil {
		panic(m.unwind(r))
	}
	m.release()
}

// BindGroupLayout describes the bindings of a bind group.
type BindGroupLayout struct {
	handle[gpucore.BindGroupLayoutID]
}

func newBindGroupLayout(b *sharedBackend, id gpucore.BindGroupLayoutID) *BindGroupLayout {
	l := &BindGroupLayout{}
	l.init(b, id, "bind group layout", gpucore.Backend.BindGroupLayoutDrop)
	return l
}

// Release drops the layout.
func (l *BindGroupLayout) Release() {
	if r := recover(); r != nil {
		panic(l.unwind(r))
	}
	l.release()
}

// BindGroup is a set of resources bound together.
type BindGroup struct {
	handle[gpucore.BindGroupID]
}

// Release drops the bind group.
func (g *BindGroup) Release() {
	if r := recover(); r != nil {
		panic(g.unwind(r))
	}
	g.release()
}

// PipelineLayout maps bind group layouts and push constants to a pipeline.
type PipelineLayout struct {
	handle[gpucore.PipelineLayoutID]
}

// Release drops the pipeline layout.
func (l *PipelineLayout) Release() {
	if r := recover(); r != nil {
		panic(l.unwind(r))
	}
	l.release()
}

// RenderPipeline is a compiled render pipeline.
type RenderPipeline struct {
	handle[gpucore.RenderPipelineID]
}

// GetBindGroupLayout returns the layout of bind group index. For pipelines
// created without a layout this is the layout derived from the shaders.
func (p *RenderPipeline) GetBindGroupLayout(index uint32) (*BindGroupLayout, error) {
	id, err := p.backend.RenderPipelineGetBindGroupLayout(p.live(), index)
	if err != nil {
		return nil, fmt.Errorf("render pipeline bind group layout %d: %w", index, err)
	}
	return newBindGroupLayout(p.backend, id), nil
}

// Release drops the pipeline.
func (p *RenderPipeline) Release() {
	if r := recover(); r != nil {
		panic(p.unwind(r))
	}
	p.release()
}

// ComputePipeline is a compiled compute pipeline.
type ComputePipeline struct {
	handle[gpucore.ComputePipelineID]
}

// GetBindGroupLayout returns the layout of bind group index.
func (p *ComputePipeline) GetBindGroupLayout(index uint32) (*BindGroupLayout, error) {
	id, err := p.backend.ComputePipelineGetBindGroupLayout(p.live(), index)
	if err != nil {
		return nil, fmt.Errorf("compute pipeline bind group layout %d: %w", index, err)
	}
	return newBindGroupLayout(p.backend, id), nil
}

// Release drops the pipeline.
func (p *ComputePipeline) Release() {
	if r := recover(); r != nil {
		panic(p.unwind(r))
	}
	p.release()
}

// CommandBuffer is a finished command stream, ready for Queue.Submit.
type CommandBuffer struct {
	handle[gpucore.CommandBufferID]
}

// Release drops a command buffer that was never submitted.
func (c *CommandBuffer) Release() {
	if r := recover(); r != nil {
		panic(c.unwind(r))
	}
	c.release()
}

// RenderBundle is a reusable set of render commands.
type RenderBundle struct {
	handle[gpucore.RenderBundleID]
}

// Release drops the bundle.
func (b *RenderBundle) Release() {
	if r := recover(); r != nil {
		panic(b.unwind(r))
	}
	b.release()
}
