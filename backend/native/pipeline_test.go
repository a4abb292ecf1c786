package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func TestCreateShaderModule(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		source  gpucore.ShaderSource
		wantErr error
	}{
		{"wgsl", nil, gpucore.ShaderSource{WGSL: computeWGSL}, nil},
		{"wgsl to spirv", []Option{WithSPIRV(true)}, gpucore.ShaderSource{WGSL: computeWGSL}, nil},
		{"spirv", nil, gpucore.ShaderSource{SPIRV: []uint32{spirvMagic, 0x00010000, 0, 1, 0}}, nil},
		{"bad spirv", nil, gpucore.ShaderSource{SPIRV: []uint32{0xdeadbeef}}, ErrShaderCompile},
		{"bad wgsl", nil, gpucore.ShaderSource{WGSL: "fn main( {"}, ErrShaderCompile},
		{"empty", nil, gpucore.ShaderSource{}, ErrInvalidDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, tt.opts...)
			id, err := d.b.DeviceCreateShaderModule(d.device, &gpucore.ShaderModuleDescriptor{Label: tt.name, Source: tt.source})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DeviceCreateShaderModule() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				d.b.ShaderModuleDrop(id)
			}
		})
	}
}

func TestComputePipelineDerivedLayout(t *testing.T) {
	d := newTestDevice(t)
	sm := d.shader(t, computeWGSL)

	pipe, err := d.b.DeviceCreateComputePipeline(d.device, &gpucore.ComputePipelineDescriptor{
		Label:      "double",
		Module:     sm,
		EntryPoint: "main",
	})
	if err != nil {
		t.Fatalf("DeviceCreateComputePipeline() error = %v", err)
	}
	d.b.ShaderModuleDrop(sm)

	bgl, err := d.b.ComputePipelineGetBindGroupLayout(pipe, 0)
	if err != nil {
		t.Fatalf("ComputePipelineGetBindGroupLayout(0) error = %v", err)
	}
	if _, err := d.b.ComputePipelineGetBindGroupLayout(pipe, 1); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("ComputePipelineGetBindGroupLayout(1) error = %v, want %v", err, ErrInvalidDescriptor)
	}

	buf := d.buffer(t, 256, gputypes.BufferUsageStorage)
	bg, err := d.b.DeviceCreateBindGroup(d.device, &gpucore.BindGroupDescriptor{
		Label:  "data",
		Layout: bgl,
		Entries: []gpucore.BindGroupEntry{
			{Binding: 0, Resource: gpucore.BufferBinding{Buffer: buf, Size: 256}},
		},
	})
	if err != nil {
		t.Fatalf("DeviceCreateBindGroup() error = %v", err)
	}

	l, _ := lookup(d.b, d.b.bindGroupLayouts, bgl)
	// pipeline layout, handle and bind group
	if got := l.refs.Load(); got != 3 {
		t.Errorf("layout refs = %d, want 3", got)
	}
	d.b.BindGroupLayoutDrop(bgl)
	d.b.BindGroupDrop(bg)
	d.b.ComputePipelineDrop(pipe)
	if got := l.refs.Load(); got != 0 {
		t.Errorf("layout refs after drops = %d, want 0", got)
	}
}

func TestPipelineEntryPoints(t *testing.T) {
	d := newTestDevice(t)
	render := d.shader(t, renderWGSL)
	compute := d.shader(t, computeWGSL)

	t.Run("compute missing", func(t *testing.T) {
		_, err := d.b.DeviceCreateComputePipeline(d.device, &gpucore.ComputePipelineDescriptor{Module: compute, EntryPoint: "nope"})
		if !errors.Is(err, ErrEntryPoint) {
			t.Errorf("error = %v, want %v", err, ErrEntryPoint)
		}
	})
	t.Run("fragment used as vertex", func(t *testing.T) {
		_, err := d.b.DeviceCreateRenderPipeline(d.device, &gpucore.RenderPipelineDescriptor{
			Vertex: gpucore.VertexState{Module: render, EntryPoint: "fs_main"},
		})
		if !errors.Is(err, ErrEntryPoint) {
			t.Errorf("error = %v, want %v", err, ErrEntryPoint)
		}
	})
	t.Run("render", func(t *testing.T) {
		p := d.renderPipeline(t)
		if _, err := d.b.RenderPipelineGetBindGroupLayout(p, 0); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("RenderPipelineGetBindGroupLayout(0) on a pipeline without bindings error = %v", err)
		}
		d.b.RenderPipelineDrop(p)
	})
}

func TestCreateBindGroupLayoutValidation(t *testing.T) {
	d := newTestDevice(t)
	entry := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}
	_, err := d.b.DeviceCreateBindGroupLayout(d.device, &gpucore.BindGroupLayoutDescriptor{
		Label:   "dup",
		Entries: []gputypes.BindGroupLayoutEntry{entry, entry},
	})
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("duplicate binding error = %v, want %v", err, ErrInvalidDescriptor)
	}
}

func TestCreateBindGroupValidation(t *testing.T) {
	d := newTestDevice(t)
	bgl, err := d.b.DeviceCreateBindGroupLayout(d.device, &gpucore.BindGroupLayoutDescriptor{
		Label: "one buffer",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	buf := d.buffer(t, 64, gputypes.BufferUsageStorage)
	_, view := d.texture(t, 4, 4, gputypes.TextureUsageTextureBinding)

	tests := []struct {
		name    string
		entries []gpucore.BindGroupEntry
		wantErr error
	}{
		{"missing entry", nil, ErrInvalidDescriptor},
		{"wrong binding", []gpucore.BindGroupEntry{{Binding: 1, Resource: gpucore.BufferBinding{Buffer: buf}}}, ErrInvalidDescriptor},
		{"wrong kind", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.TextureViewBinding{View: view}}}, ErrInvalidDescriptor},
		{"out of range", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.BufferBinding{Buffer: buf, Offset: 32, Size: 64}}}, ErrInvalidDescriptor},
		{"unknown buffer", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.BufferBinding{Buffer: 9999}}}, ErrInvalidHandle},
		{"view array", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.TextureViewArrayBinding{Views: []gpucore.TextureViewID{view}}}}, ErrUnsupportedCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.b.DeviceCreateBindGroup(d.device, &gpucore.BindGroupDescriptor{Label: tt.name, Layout: bgl, Entries: tt.entries})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeviceCreateBindGroup() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreatePipelineLayoutValidation(t *testing.T) {
	d := newTestDevice(t)
	tests := []struct {
		name string
		desc gpucore.PipelineLayoutDescriptor
	}{
		{"too many groups", gpucore.PipelineLayoutDescriptor{BindGroupLayouts: make([]gpucore.BindGroupLayoutID, 5)}},
		{"unaligned push range", gpucore.PipelineLayoutDescriptor{PushConstantRanges: []gpucore.PushConstantRange{{Stages: gputypes.ShaderStageVertex, Start: 2, End: 8}}}},
		{"push range past limit", gpucore.PipelineLayoutDescriptor{PushConstantRanges: []gpucore.PushConstantRange{{Stages: gputypes.ShaderStageVertex, End: 4}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.b.DeviceCreatePipelineLayout(d.device, &tt.desc)
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("DeviceCreatePipelineLayout() error = %v, want %v", err, ErrInvalidDescriptor)
			}
		})
	}

	t.Run("explicit", func(t *testing.T) {
		pl, err := d.b.DeviceCreatePipelineLayout(d.device, &gpucore.PipelineLayoutDescriptor{Label: "empty"})
		if err != nil {
			t.Fatal(err)
		}
		sm := d.shader(t, renderWGSL)
		p, err := d.b.DeviceCreateRenderPipeline(d.device, &gpucore.RenderPipelineDescriptor{
			Layout: pl,
			Vertex: gpucore.VertexState{Module: sm, EntryPoint: "vs_main"},
		})
		if err != nil {
			t.Fatalf("DeviceCreateRenderPipeline() error = %v", err)
		}
		l, _ := lookup(d.b, d.b.pipelineLayouts, pl)
		d.b.PipelineLayoutDrop(pl)
		if got := l.refs.Load(); got != 1 {
			t.Errorf("layout refs = %d after dropping the handle, want 1", got)
		}
		d.b.RenderPipelineDrop(p)
	})
}

func TestCreateSampler(t *testing.T) {
	d := newTestDevice(t)
	id, err := d.b.DeviceCreateSampler(d.device, &gpucore.SamplerDescriptor{Label: "linear", MagFilter: gputypes.FilterModeLinear})
	if err != nil {
		t.Fatalf("DeviceCreateSampler() error = %v", err)
	}
	s, ok := lookup(d.b, d.b.samplers, id)
	if !ok || s.raw == nil {
		t.Fatal("sampler not registered")
	}
	d.b.SamplerDrop(id)
}
