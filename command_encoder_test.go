package gpuapi

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/backend/memory"
	"github.com/gogpu/gpuapi/gpucore"
)

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

const doubleWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`

func (e *testEnv) shader(t *testing.T, src string) *ShaderModule {
	t.Helper()
	sm, err := e.device.CreateShaderModule(&ShaderModuleDescriptor{Label: "shader", Source: ShaderSource{WGSL: src}})
	if err != nil {
		t.Fatalf("CreateShaderModule() error = %v", err)
	}
	return sm
}

func (e *testEnv) trianglePipeline(t *testing.T, format gputypes.TextureFormat) *RenderPipeline {
	t.Helper()
	sm := e.shader(t, triangleWGSL)
	defer sm.Release()
	p, err := e.device.CreateRenderPipeline(&RenderPipelineDescriptor{
		Label:  "triangle",
		Vertex: VertexState{Module: sm, EntryPoint: "vs_main"},
		Fragment: &FragmentState{
			Module:     sm,
			EntryPoint: "fs_main",
			Targets:    []gputypes.ColorTargetState{{Format: format}},
		},
	})
	if err != nil {
		t.Fatalf("CreateRenderPipeline() error = %v", err)
	}
	return p
}

func clearPass(view *TextureView, c gputypes.Color) *RenderPassDescriptor {
	return &RenderPassDescriptor{
		Label: "clear",
		ColorAttachments: []RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c,
		}},
	}
}

func TestEncoderLockedByPass(t *testing.T) {
	tests := []struct {
		name   string
		render bool
		op     func(e *testEnv, enc *CommandEncoder, buf *Buffer)
	}{
		{"copy under render pass", true, func(_ *testEnv, enc *CommandEncoder, buf *Buffer) {
			enc.CopyBufferToBuffer(buf, 0, buf, 16, 16)
		}},
		{"finish under render pass", true, func(_ *testEnv, enc *CommandEncoder, _ *Buffer) { _, _ = enc.Finish() }},
		{"copy", false, func(_ *testEnv, enc *CommandEncoder, buf *Buffer) {
			enc.CopyBufferToBuffer(buf, 0, buf, 16, 16)
		}},
		{"debug marker", false, func(_ *testEnv, enc *CommandEncoder, _ *Buffer) { enc.InsertDebugMarker("m") }},
		{"second pass", false, func(_ *testEnv, enc *CommandEncoder, _ *Buffer) { enc.BeginComputePass(nil) }},
		{"finish", false, func(_ *testEnv, enc *CommandEncoder, _ *Buffer) { _, _ = enc.Finish() }},
		{"release", false, func(_ *testEnv, enc *CommandEncoder, _ *Buffer) { enc.Release() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			buf := e.buffer(t, 64, gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
			enc := e.encoder(t)
			var end func()
			want := EncoderStateComputePass
			if tt.render {
				_, view := e.colorTarget(t, 2, 2, gputypes.TextureFormatRGBA8Unorm)
				end = enc.BeginRenderPass(clearPass(view, gputypes.Color{})).End
				want = EncoderStateRenderPass
			} else {
				end = enc.BeginComputePass(&ComputePassDescriptor{Label: "p"}).End
			}
			if enc.State() != want {
				t.Fatalf("State() = %s, want %s", enc.State(), want)
			}
			mustPanic(t, ErrEncoderLocked, func() { tt.op(e, enc, buf) })

			end()
			if enc.State() != EncoderStateEncoding {
				t.Errorf("State() after End = %s, want Encoding", enc.State())
			}
			e.submit(t, enc)
		})
	}
}

func TestPassEnded(t *testing.T) {
	e := newTestEnv(t)
	_, view := e.colorTarget(t, 2, 2, gputypes.TextureFormatRGBA8Unorm)
	enc := e.encoder(t)

	rp := enc.BeginRenderPass(clearPass(view, gputypes.Color{}))
	rp.End()
	rp.End()
	if rp.State() != PassStateEnded {
		t.Fatalf("State() = %s, want Ended", rp.State())
	}
	mustPanic(t, ErrPassEnded, func() { rp.Draw(3, 1, 0, 0) })

	cp := enc.BeginComputePass(nil)
	cp.Release()
	mustPanic(t, ErrPassEnded, func() { cp.Dispatch(1, 1, 1) })

	e.submit(t, enc)
}

func TestFinishConsumesEncoder(t *testing.T) {
	e := newTestEnv(t)
	enc := e.encoder(t)
	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	defer cb.Release()

	if enc.State() != EncoderStateFinished {
		t.Errorf("State() = %s, want Finished", enc.State())
	}
	mustPanic(t, ErrEncoderFinished, func() { _, _ = enc.Finish() })
	mustPanic(t, ErrEncoderFinished, func() { enc.PushDebugGroup("g") })

	// Release after Finish does nothing.
	enc.Release()
}

func TestFinishReportsBackendErrors(t *testing.T) {
	e := newTestEnv(t)
	enc := e.encoder(t)
	enc.PopDebugGroup()

	_, err := enc.Finish()
	if !errors.Is(err, memory.ErrRecording) {
		t.Fatalf("Finish() error = %v, want memory.ErrRecording", err)
	}
	if enc.State() != EncoderStateFinished {
		t.Errorf("State() = %s, want Finished even on error", enc.State())
	}
	if got := e.mem.Stats().Live; got != 0 {
		t.Errorf("Live = %d, want 0", got)
	}
}

func TestPushConstantAlignment(t *testing.T) {
	e := newTestEnv(t)
	enc := e.encoder(t)
	defer enc.Release()

	cp := enc.BeginComputePass(nil)
	mustPanic(t, ErrPushConstantAlignment, func() { cp.SetPushConstants(2, []uint32{1}) })
	cp.End()

	bundle, err := e.device.CreateRenderBundleEncoder(&RenderBundleEncoderDescriptor{
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		SampleCount:  1,
	})
	if err != nil {
		t.Fatalf("CreateRenderBundleEncoder() error = %v", err)
	}
	mustPanic(t, ErrPushConstantAlignment, func() {
		bundle.SetPushConstants(gputypes.ShaderStageVertex, 6, []uint32{1})
	})
}

func TestRenderPassClearReadback(t *testing.T) {
	e := newTestEnv(t)
	tex, view := e.colorTarget(t, 2, 2, gputypes.TextureFormatRGBA8Unorm)
	defer tex.Release()
	defer view.Release()
	out := e.buffer(t, 512, gputypes.BufferUsageCopyDst|gputypes.BufferUsageMapRead)
	defer out.Release()
	pipeline := e.trianglePipeline(t, gputypes.TextureFormatRGBA8Unorm)
	defer pipeline.Release()

	enc := e.encoder(t)
	pass := enc.BeginRenderPass(clearPass(view, gputypes.Color{R: 1, A: 1}))
	pass.SetPipeline(pipeline)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	enc.CopyTextureToBuffer(
		&ImageCopyTexture{Texture: tex},
		&ImageCopyBuffer{Buffer: out, Layout: TextureDataLayout{BytesPerRow: 256, RowsPerImage: 2}},
		gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1},
	)
	e.submit(t, enc)

	got := e.mapRead(t, out)
	red := []byte{255, 0, 0, 255, 255, 0, 0, 255}
	for row := 0; row < 2; row++ {
		if line := got[row*256 : row*256+8]; !bytes.Equal(line, red) {
			t.Errorf("row %d = %v, want %v", row, line, red)
		}
	}
	if s := e.mem.Stats(); s.Draws != 1 {
		t.Errorf("Draws = %d, want 1", s.Draws)
	}
}

func TestComputeWithDerivedLayout(t *testing.T) {
	e := newTestEnv(t)
	sm := e.shader(t, doubleWGSL)
	defer sm.Release()
	pipeline, err := e.device.CreateComputePipeline(&ComputePipelineDescriptor{
		Label:      "double",
		Module:     sm,
		EntryPoint: "main",
	})
	if err != nil {
		t.Fatalf("CreateComputePipeline() error = %v", err)
	}
	defer pipeline.Release()

	layout, err := pipeline.GetBindGroupLayout(0)
	if err != nil {
		t.Fatalf("GetBindGroupLayout(0) error = %v", err)
	}
	defer layout.Release()
	if _, err := pipeline.GetBindGroupLayout(1); err == nil {
		t.Error("GetBindGroupLayout(1) succeeded for a one-group shader")
	}

	data := e.buffer(t, 256, gputypes.BufferUsageStorage)
	defer data.Release()
	group, err := e.device.CreateBindGroup(&BindGroupDescriptor{
		Layout:  layout,
		Entries: []BindGroupEntry{{Binding: 0, Resource: BufferBinding{Buffer: data}}},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup() error = %v", err)
	}
	defer group.Release()

	enc := e.encoder(t)
	pass := enc.BeginComputePass(&ComputePassDescriptor{Label: "double"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch(1, 1, 1)
	pass.End()
	e.submit(t, enc)

	if s := e.mem.Stats(); s.Dispatches != 1 {
		t.Errorf("Dispatches = %d, want 1", s.Dispatches)
	}
}

func TestRenderBundle(t *testing.T) {
	e := newTestEnv(t)
	_, view := e.colorTarget(t, 2, 2, gputypes.TextureFormatRGBA8Unorm)
	pipeline := e.trianglePipeline(t, gputypes.TextureFormatRGBA8Unorm)

	be, err := e.device.CreateRenderBundleEncoder(&RenderBundleEncoderDescriptor{
		Label:        "bundle",
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		SampleCount:  1,
	})
	if err != nil {
		t.Fatalf("CreateRenderBundleEncoder() error = %v", err)
	}
	be.SetPipeline(pipeline)
	be.Draw(3, 1, 0, 0)
	be.Draw(3, 1, 3, 0)
	bundle, err := be.Finish(nil)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	defer bundle.Release()
	mustPanic(t, ErrEncoderFinished, func() { be.Draw(3, 1, 0, 0) })

	// A bundle can be replayed in several passes.
	enc := e.encoder(t)
	for i := 0; i < 2; i++ {
		pass := enc.BeginRenderPass(clearPass(view, gputypes.Color{}))
		pass.ExecuteBundles(bundle)
		pass.End()
	}
	e.submit(t, enc)

	if s := e.mem.Stats(); s.Draws != 4 {
		t.Errorf("Draws = %d, want 4", s.Draws)
	}
}

func TestPassEndSkippedDuringPanic(t *testing.T) {
	e := newTestEnv(t)
	enc := e.encoder(t)
	var pass *ComputePass

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		defer enc.Release()
		pass = enc.BeginComputePass(nil)
		defer pass.End()
		panic("boom")
	}()

	if pass.State() != PassStateEnded {
		t.Errorf("pass State() = %s, want Ended", pass.State())
	}
	if !enc.Released() {
		t.Error("encoder not marked released")
	}
}

func TestEncoderInvalidAfterAbandonedPass(t *testing.T) {
	e := newTestEnv(t)
	enc := e.encoder(t)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		pass := enc.BeginComputePass(nil)
		defer pass.End()
		panic("boom")
	}()

	if enc.State() != EncoderStateInvalid {
		t.Fatalf("State() = %s, want Invalid", enc.State())
	}
	mustPanic(t, ErrEncoderInvalid, func() { enc.InsertDebugMarker("m") })
	mustPanic(t, ErrEncoderInvalid, func() { _, _ = enc.Finish() })

	live := e.mem.Stats().Live
	enc.Release()
	if !enc.Released() {
		t.Error("Release() left the encoder live")
	}
	if got := e.mem.Stats().Live; got != live-1 {
		t.Errorf("Live = %d after Release, want %d", got, live-1)
	}
}

// passEndCounter counts the pass finalizations forwarded to the backend.
type passEndCounter struct {
	gpucore.Backend
	render, compute int
}

func (c *passEndCounter) CommandEncoderEndRenderPass(enc gpucore.CommandEncoderID, pass gpucore.RenderPassEncoder) {
	c.render++
	c.Backend.CommandEncoderEndRenderPass(enc, pass)
}

func (c *passEndCounter) CommandEncoderEndComputePass(enc gpucore.CommandEncoderID, pass gpucore.ComputePassEncoder) {
	c.compute++
	c.Backend.CommandEncoderEndComputePass(enc, pass)
}

func TestPassEndForwardedOnce(t *testing.T) {
	counter := &passEndCounter{Backend: memory.New()}
	inst := NewInstance(counter)
	defer inst.Release()
	ctx := context.Background()
	adapter, err := inst.RequestAdapter(ctx, nil)
	if err != nil {
		t.Fatalf("RequestAdapter() error = %v", err)
	}
	defer adapter.Release()
	device, queue, err := adapter.RequestDevice(ctx, nil)
	if err != nil {
		t.Fatalf("RequestDevice() error = %v", err)
	}
	defer device.Release()
	e := &testEnv{inst: inst, adapter: adapter, device: device, queue: queue}
	_, view := e.colorTarget(t, 2, 2, gputypes.TextureFormatRGBA8Unorm)

	enc := e.encoder(t)
	func() {
		rp := enc.BeginRenderPass(clearPass(view, gputypes.Color{}))
		defer rp.Release()
		rp.End()
	}()
	func() {
		cp := enc.BeginComputePass(nil)
		defer cp.Release()
		cp.End()
	}()
	e.submit(t, enc)

	if counter.render != 1 || counter.compute != 1 {
		t.Errorf("forwarded %d render and %d compute pass ends, want 1 each", counter.render, counter.compute)
	}
}
