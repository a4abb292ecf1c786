package memory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func TestCopyBufferToBufferRunsAtSubmit(t *testing.T) {
	d := newTestDevice(t)
	src := d.buffer(t, 16, gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
	dst := d.buffer(t, 16, gputypes.BufferUsageCopyDst|gputypes.BufferUsageMapRead)
	d.b.QueueWriteBuffer(d.queue, src, 0, []byte("abcdefghijklmnop"))

	enc := d.encoder(t)
	d.b.CommandEncoderCopyBufferToBuffer(enc, src, 4, dst, 0, 8)
	cb, err := d.b.CommandEncoderFinish(enc, &gpucore.CommandBufferDescriptor{})
	if err != nil {
		t.Fatal(err)
	}

	// Writes made after recording are seen by the copy.
	d.b.QueueWriteBuffer(d.queue, src, 4, []byte("XY"))
	if err := d.b.QueueSubmit(d.queue, []gpucore.CommandBufferID{cb}); err != nil {
		t.Fatal(err)
	}

	got := d.readBuffer(t, dst, 16)
	want := append([]byte("XYghijkl"), make([]byte, 8)...)
	if !bytes.Equal(got, want) {
		t.Errorf("dst = %q, want %q", got, want)
	}
	if s := d.b.Stats(); s.Submissions != 1 {
		t.Errorf("Submissions = %d, want 1", s.Submissions)
	}
}

func TestRecordingErrors(t *testing.T) {
	tests := []struct {
		name   string
		record func(t *testing.T, d *testDevice, enc gpucore.CommandEncoderID)
	}{
		{
			name: "copy without usage",
			record: func(t *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				src := d.buffer(t, 16, gputypes.BufferUsageVertex)
				dst := d.buffer(t, 16, gputypes.BufferUsageCopyDst)
				d.b.CommandEncoderCopyBufferToBuffer(enc, src, 0, dst, 0, 16)
			},
		},
		{
			name: "unaligned copy",
			record: func(t *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				src := d.buffer(t, 16, gputypes.BufferUsageCopySrc)
				dst := d.buffer(t, 16, gputypes.BufferUsageCopyDst)
				d.b.CommandEncoderCopyBufferToBuffer(enc, src, 2, dst, 0, 4)
			},
		},
		{
			name: "copy while pass open",
			record: func(t *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				src := d.buffer(t, 16, gputypes.BufferUsageCopySrc)
				dst := d.buffer(t, 16, gputypes.BufferUsageCopyDst)
				pass := d.b.CommandEncoderBeginComputePass(enc, &gpucore.ComputePassDescriptor{})
				d.b.CommandEncoderCopyBufferToBuffer(enc, src, 0, dst, 0, 16)
				d.b.CommandEncoderEndComputePass(enc, pass)
			},
		},
		{
			name: "unbalanced debug group",
			record: func(_ *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				d.b.CommandEncoderPushDebugGroup(enc, "outer")
			},
		},
		{
			name: "pop without push",
			record: func(_ *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				d.b.CommandEncoderPopDebugGroup(enc)
			},
		},
		{
			name: "dispatch without pipeline",
			record: func(_ *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				pass := d.b.CommandEncoderBeginComputePass(enc, &gpucore.ComputePassDescriptor{})
				pass.Dispatch(1, 1, 1)
				d.b.CommandEncoderEndComputePass(enc, pass)
			},
		},
		{
			name: "draw without pipeline",
			record: func(t *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				_, view := d.texture(t, 4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageRenderAttachment)
				pass := d.b.CommandEncoderBeginRenderPass(enc, &gpucore.RenderPassDescriptor{
					ColorAttachments: []gpucore.RenderPassColorAttachment{{View: view, LoadOp: gputypes.LoadOpLoad}},
				})
				pass.Draw(3, 1, 0, 0)
				d.b.CommandEncoderEndRenderPass(enc, pass)
			},
		},
		{
			name: "pipeline format mismatch",
			record: func(t *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				pipeline := d.renderPipeline(t, gputypes.TextureFormatBGRA8Unorm)
				_, view := d.texture(t, 4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageRenderAttachment)
				pass := d.b.CommandEncoderBeginRenderPass(enc, &gpucore.RenderPassDescriptor{
					ColorAttachments: []gpucore.RenderPassColorAttachment{{View: view, LoadOp: gputypes.LoadOpLoad}},
				})
				pass.SetPipeline(pipeline)
				d.b.CommandEncoderEndRenderPass(enc, pass)
			},
		},
		{
			name: "pass debug group left open",
			record: func(_ *testing.T, d *testDevice, enc gpucore.CommandEncoderID) {
				pass := d.b.CommandEncoderBeginComputePass(enc, &gpucore.ComputePassDescriptor{})
				pass.PushDebugGroup("open")
				d.b.CommandEncoderEndComputePass(enc, pass)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			enc := d.encoder(t)
			tt.record(t, d, enc)
			_, err := d.b.CommandEncoderFinish(enc, &gpucore.CommandBufferDescriptor{})
			if !errors.Is(err, ErrRecording) {
				t.Errorf("CommandEncoderFinish() error = %v, want ErrRecording", err)
			}
			if _, ok := d.b.encoders[enc]; ok {
				t.Error("encoder not consumed by a failed Finish")
			}
		})
	}
}

func TestRenderPassClear(t *testing.T) {
	d := newTestDevice(t)
	tex, view := d.texture(t, 2, 2, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	out := d.buffer(t, 256*2, gputypes.BufferUsageCopyDst|gputypes.BufferUsageMapRead)
	pipeline := d.renderPipeline(t, gputypes.TextureFormatRGBA8Unorm)

	enc := d.encoder(t)
	pass := d.b.CommandEncoderBeginRenderPass(enc, &gpucore.RenderPassDescriptor{
		Label: "clear",
		ColorAttachments: []gpucore.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 1, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(pipeline)
	pass.Draw(3, 1, 0, 0)
	d.b.CommandEncoderEndRenderPass(enc, pass)
	d.b.CommandEncoderCopyTextureToBuffer(enc,
		&gpucore.ImageCopyTexture{Texture: tex},
		&gpucore.ImageCopyBuffer{Buffer: out, Layout: gpucore.TextureDataLayout{BytesPerRow: 256, RowsPerImage: 2}},
		gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1})
	d.submit(t, enc)

	got := d.readBuffer(t, out, 512)
	red := []byte{255, 0, 0, 255, 255, 0, 0, 255}
	if !bytes.Equal(got[:8], red) || !bytes.Equal(got[256:264], red) {
		t.Errorf("rows = %v / %v, want %v", got[:8], got[256:264], red)
	}
	if s := d.b.Stats(); s.Draws != 1 {
		t.Errorf("Draws = %d, want 1", s.Draws)
	}
}

func TestComputeDispatchWithDerivedLayout(t *testing.T) {
	d := newTestDevice(t)
	sm := d.shader(t, computeWGSL)
	pipeline, err := d.b.DeviceCreateComputePipeline(d.device, &gpucore.ComputePipelineDescriptor{
		Label: "double", Module: sm, EntryPoint: "main",
	})
	if err != nil {
		t.Fatal(err)
	}
	layout, err := d.b.ComputePipelineGetBindGroupLayout(pipeline, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.b.ComputePipelineGetBindGroupLayout(pipeline, 1); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("GetBindGroupLayout(1) error = %v, want ErrInvalidDescriptor", err)
	}

	data := d.buffer(t, 256, gputypes.BufferUsageStorage)
	group, err := d.b.DeviceCreateBindGroup(d.device, &gpucore.BindGroupDescriptor{
		Layout:  layout,
		Entries: []gpucore.BindGroupEntry{{Binding: 0, Resource: gpucore.BufferBinding{Buffer: data}}},
	})
	if err != nil {
		t.Fatal(err)
	}

	enc := d.encoder(t)
	pass := d.b.CommandEncoderBeginComputePass(enc, &gpucore.ComputePassDescriptor{})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch(1, 1, 1)
	pass.Dispatch(4, 1, 1)
	d.b.CommandEncoderEndComputePass(enc, pass)
	d.submit(t, enc)

	if s := d.b.Stats(); s.Dispatches != 2 {
		t.Errorf("Dispatches = %d, want 2", s.Dispatches)
	}
}

func TestRenderBundle(t *testing.T) {
	d := newTestDevice(t)
	format := gputypes.TextureFormatRGBA8Unorm
	pipeline := d.renderPipeline(t, format)
	_, view := d.texture(t, 4, 4, format, gputypes.TextureUsageRenderAttachment)

	be, err := d.b.DeviceCreateRenderBundleEncoder(d.device, &gpucore.RenderBundleEncoderDescriptor{
		Label: "bundle", ColorFormats: []gputypes.TextureFormat{format}, SampleCount: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	be.SetPipeline(pipeline)
	be.Draw(3, 1, 0, 0)
	be.Draw(3, 1, 0, 0)
	bundle, err := d.b.RenderBundleEncoderFinish(be, &gpucore.RenderBundleDescriptor{Label: "bundle"})
	if err != nil {
		t.Fatal(err)
	}

	enc := d.encoder(t)
	pass := d.b.CommandEncoderBeginRenderPass(enc, &gpucore.RenderPassDescriptor{
		ColorAttachments: []gpucore.RenderPassColorAttachment{{View: view, LoadOp: gputypes.LoadOpLoad}},
	})
	pass.ExecuteBundles([]gpucore.RenderBundleID{bundle, bundle})
	d.b.CommandEncoderEndRenderPass(enc, pass)
	d.submit(t, enc)

	if s := d.b.Stats(); s.Draws != 4 {
		t.Errorf("Draws = %d, want 4", s.Draws)
	}
}

func TestSubmitConsumesCommandBuffers(t *testing.T) {
	d := newTestDevice(t)
	enc := d.encoder(t)
	cb, err := d.b.CommandEncoderFinish(enc, &gpucore.CommandBufferDescriptor{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.b.QueueSubmit(d.queue, []gpucore.CommandBufferID{cb}); err != nil {
		t.Fatal(err)
	}
	if err := d.b.QueueSubmit(d.queue, []gpucore.CommandBufferID{cb}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("second QueueSubmit() error = %v, want ErrInvalidHandle", err)
	}
}

func TestSubmitWithMappedBuffer(t *testing.T) {
	d := newTestDevice(t)
	src := d.buffer(t, 16, gputypes.BufferUsageCopySrc|gputypes.BufferUsageMapWrite)
	dst := d.buffer(t, 16, gputypes.BufferUsageCopyDst)

	enc := d.encoder(t)
	d.b.CommandEncoderCopyBufferToBuffer(enc, src, 0, dst, 0, 16)
	cb, err := d.b.CommandEncoderFinish(enc, &gpucore.CommandBufferDescriptor{})
	if err != nil {
		t.Fatal(err)
	}

	d.b.BufferMapAsync(src, gpucore.MapModeWrite, 0, 16)
	d.b.DevicePoll(d.device, gpucore.MaintainWait)
	if err := d.b.QueueSubmit(d.queue, []gpucore.CommandBufferID{cb}); !errors.Is(err, ErrRecording) {
		t.Errorf("QueueSubmit() with mapped source error = %v, want ErrRecording", err)
	}
}
