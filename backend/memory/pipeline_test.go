package memory

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func TestCreateShaderModule(t *testing.T) {
	tests := []struct {
		name    string
		source  gpucore.ShaderSource
		wantErr error
	}{
		{"wgsl", gpucore.ShaderSource{WGSL: renderWGSL}, nil},
		{"spirv", gpucore.ShaderSource{SPIRV: []uint32{spirvMagic, 0x00010000}}, nil},
		{"bad spirv", gpucore.ShaderSource{SPIRV: []uint32{1, 2, 3}}, ErrShaderCompile},
		{"syntax error", gpucore.ShaderSource{WGSL: "@vertex fn main( {"}, ErrShaderCompile},
		{"empty", gpucore.ShaderSource{}, ErrInvalidDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			_, err := d.b.DeviceCreateShaderModule(d.device, &gpucore.ShaderModuleDescriptor{Label: tt.name, Source: tt.source})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeviceCreateShaderModule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderPipelineEntryPoints(t *testing.T) {
	tests := []struct {
		name     string
		vertex   string
		fragment string
		wantErr  error
	}{
		{"ok", "vs_main", "fs_main", nil},
		{"missing", "nope", "fs_main", ErrEntryPoint},
		{"wrong stage", "fs_main", "fs_main", ErrEntryPoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			sm := d.shader(t, renderWGSL)
			_, err := d.b.DeviceCreateRenderPipeline(d.device, &gpucore.RenderPipelineDescriptor{
				Vertex: gpucore.VertexState{Module: sm, EntryPoint: tt.vertex},
				Fragment: &gpucore.FragmentState{
					Module: sm, EntryPoint: tt.fragment,
					Targets: []gputypes.ColorTargetState{{Format: gputypes.TextureFormatRGBA8Unorm}},
				},
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeviceCreateRenderPipeline() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPipelineLayoutPushConstants(t *testing.T) {
	vs, fs := gputypes.ShaderStageVertex, gputypes.ShaderStageFragment
	tests := []struct {
		name    string
		ranges  []gpucore.PushConstantRange
		wantErr error
	}{
		{"disjoint stages", []gpucore.PushConstantRange{{Stages: vs, Start: 0, End: 16}, {Stages: fs, Start: 16, End: 32}}, nil},
		{"unaligned", []gpucore.PushConstantRange{{Stages: vs, Start: 2, End: 16}}, ErrInvalidDescriptor},
		{"empty", []gpucore.PushConstantRange{{Stages: vs, Start: 16, End: 16}}, ErrInvalidDescriptor},
		{"over limit", []gpucore.PushConstantRange{{Stages: vs, Start: 0, End: DefaultPushConstantSize + 4}}, ErrLimitExceeded},
		{"stage twice", []gpucore.PushConstantRange{{Stages: vs, Start: 0, End: 16}, {Stages: vs | fs, Start: 16, End: 32}}, ErrInvalidDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			_, err := d.b.DeviceCreatePipelineLayout(d.device, &gpucore.PipelineLayoutDescriptor{PushConstantRanges: tt.ranges})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeviceCreatePipelineLayout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckPushConstants(t *testing.T) {
	vs, fs := gputypes.ShaderStageVertex, gputypes.ShaderStageFragment
	l := &pipelineLayout{pushConstants: []gpucore.PushConstantRange{
		{Stages: vs, Start: 0, End: 16},
		{Stages: vs | fs, Start: 16, End: 32},
	}}
	tests := []struct {
		name    string
		stages  gpucore.ShaderStages
		offset  uint32
		words   int
		wantErr bool
	}{
		{"vertex only", vs, 0, 4, false},
		{"shared range", vs | fs, 16, 4, false},
		{"straddles ranges", vs, 8, 4, true},
		{"past end", vs | fs, 24, 4, true},
		{"missing stage", fs, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.checkPushConstants(tt.stages, tt.offset, tt.words)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkPushConstants() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBindGroupValidation(t *testing.T) {
	d := newTestDevice(t)
	layout, err := d.b.DeviceCreateBindGroupLayout(d.device, &gpucore.BindGroupLayoutDescriptor{
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

	tests := []struct {
		name    string
		entries []gpucore.BindGroupEntry
		wantErr bool
	}{
		{"ok", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.BufferBinding{Buffer: buf}}}, false},
		{"missing entry", nil, true},
		{"wrong binding", []gpucore.BindGroupEntry{{Binding: 3, Resource: gpucore.BufferBinding{Buffer: buf}}}, true},
		{"range past end", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.BufferBinding{Buffer: buf, Offset: 32, Size: 64}}}, true},
		{"sampler in buffer slot", []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.SamplerBinding{Sampler: 77}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.b.DeviceCreateBindGroup(d.device, &gpucore.BindGroupDescriptor{Layout: layout, Entries: tt.entries})
			if (err != nil) != tt.wantErr {
				t.Errorf("DeviceCreateBindGroup() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuplicateLayoutBinding(t *testing.T) {
	d := newTestDevice(t)
	entry := gputypes.BindGroupLayoutEntry{Binding: 1, Visibility: gputypes.ShaderStageFragment}
	_, err := d.b.DeviceCreateBindGroupLayout(d.device, &gpucore.BindGroupLayoutDescriptor{
		Entries: []gputypes.BindGroupLayoutEntry{entry, entry},
	})
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("DeviceCreateBindGroupLayout() error = %v, want ErrInvalidDescriptor", err)
	}
}
