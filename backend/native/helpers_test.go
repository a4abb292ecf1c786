package native

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpuapi/gpucore"
)

const computeWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`

const renderWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

// newTestBackend returns a backend on the noop hal driver.
func newTestBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b, err := New(append([]Option{WithHAL(noop.API{})}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

type testDevice struct {
	b       *Backend
	adapter gpucore.AdapterID
	device  gpucore.DeviceID
	queue   gpucore.QueueID
}

func newTestDevice(t *testing.T, opts ...Option) *testDevice {
	t.Helper()
	b := newTestBackend(t, opts...)

	adapter, ok, err := b.RequestAdapter(nil).Result()
	if !ok || err != nil {
		t.Fatalf("RequestAdapter() = %v, %v", ok, err)
	}
	dq, ok, err := b.AdapterRequestDevice(adapter, &gpucore.DeviceDescriptor{Label: "test"}).Result()
	if !ok || err != nil {
		t.Fatalf("AdapterRequestDevice() = %v, %v", ok, err)
	}
	return &testDevice{b: b, adapter: adapter, device: dq.Device, queue: dq.Queue}
}

func (d *testDevice) buffer(t *testing.T, size uint64, usage gputypes.BufferUsage) gpucore.BufferID {
	t.Helper()
	id, err := d.b.DeviceCreateBuffer(d.device, &gpucore.BufferDescriptor{Label: "buf", Size: size, Usage: usage})
	if err != nil {
		t.Fatalf("DeviceCreateBuffer() error = %v", err)
	}
	return id
}

func (d *testDevice) texture(t *testing.T, w, h uint32, usage gputypes.TextureUsage) (gpucore.TextureID, gpucore.TextureViewID) {
	t.Helper()
	tex, err := d.b.DeviceCreateTexture(d.device, &gpucore.TextureDescriptor{
		Label:     "tex",
		Size:      gputypes.Extent3D{Width: w, Height: h},
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     usage,
	})
	if err != nil {
		t.Fatalf("DeviceCreateTexture() error = %v", err)
	}
	view, err := d.b.TextureCreateView(tex, &gpucore.TextureViewDescriptor{})
	if err != nil {
		t.Fatalf("TextureCreateView() error = %v", err)
	}
	return tex, view
}

func (d *testDevice) shader(t *testing.T, src string) gpucore.ShaderModuleID {
	t.Helper()
	id, err := d.b.DeviceCreateShaderModule(d.device, &gpucore.ShaderModuleDescriptor{
		Label:  "shader",
		Source: gpucore.ShaderSource{WGSL: src},
	})
	if err != nil {
		t.Fatalf("DeviceCreateShaderModule() error = %v", err)
	}
	return id
}

func (d *testDevice) renderPipeline(t *testing.T) gpucore.RenderPipelineID {
	t.Helper()
	sm := d.shader(t, renderWGSL)
	id, err := d.b.DeviceCreateRenderPipeline(d.device, &gpucore.RenderPipelineDescriptor{
		Label:  "triangle",
		Vertex: gpucore.VertexState{Module: sm, EntryPoint: "vs_main"},
		Fragment: &gpucore.FragmentState{
			Module:     sm,
			EntryPoint: "fs_main",
			Targets:    []gputypes.ColorTargetState{{Format: gputypes.TextureFormatRGBA8Unorm}},
		},
	})
	if err != nil {
		t.Fatalf("DeviceCreateRenderPipeline() error = %v", err)
	}
	return id
}

func (d *testDevice) encoder(t *testing.T) gpucore.CommandEncoderID {
	t.Helper()
	id, err := d.b.DeviceCreateCommandEncoder(d.device, &gpucore.CommandEncoderDescriptor{Label: "enc"})
	if err != nil {
		t.Fatalf("DeviceCreateCommandEncoder() error = %v", err)
	}
	return id
}

// submit finishes enc and submits it.
func (d *testDevice) submit(t *testing.T, enc gpucore.CommandEncoderID) {
	t.Helper()
	cb, err := d.b.CommandEncoderFinish(enc, &gpucore.CommandBufferDescriptor{})
	if err != nil {
		t.Fatalf("CommandEncoderFinish() error = %v", err)
	}
	if err := d.b.QueueSubmit(d.queue, []gpucore.CommandBufferID{cb}); err != nil {
		t.Fatalf("QueueSubmit() error = %v", err)
	}
}
