package gpuapi

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/backend/memory"
)

// mustPanic runs fn and checks that it panics with an assertion failure
// matching want.
func mustPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic matching %v", want)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v (%T) is not an error", r, r)
		}
		if !errors.Is(err, want) {
			t.Fatalf("panic %v does not match %v", err, want)
		}
		if !errors.HasAssertionFailure(err) {
			t.Errorf("panic %v is not an assertion failure", err)
		}
	}()
	fn()
}

type testEnv struct {
	mem     *memory.Backend
	inst    *Instance
	adapter *Adapter
	device  *Device
	queue   *Queue
}

func newTestEnv(t *testing.T, opts ...memory.Option) *testEnv {
	t.Helper()
	mem := memory.New(opts...)
	inst := NewInstance(mem)
	ctx := context.Background()

	adapter, err := inst.RequestAdapter(ctx, nil)
	if err != nil {
		t.Fatalf("RequestAdapter() error = %v", err)
	}
	device, queue, err := adapter.RequestDevice(ctx, &DeviceDescriptor{Label: "test"})
	if err != nil {
		t.Fatalf("RequestDevice() error = %v", err)
	}
	t.Cleanup(func() {
		device.Release()
		adapter.Release()
		inst.Release()
	})
	return &testEnv{mem: mem, inst: inst, adapter: adapter, device: device, queue: queue}
}

func (e *testEnv) buffer(t *testing.T, size uint64, usage gputypes.BufferUsage) *Buffer {
	t.Helper()
	b, err := e.device.CreateBuffer(&BufferDescriptor{Label: "buf", Size: size, Usage: usage})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	return b
}

func (e *testEnv) encoder(t *testing.T) *CommandEncoder {
	t.Helper()
	enc, err := e.device.CreateCommandEncoder(&CommandEncoderDescriptor{Label: "enc"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder() error = %v", err)
	}
	return enc
}

func (e *testEnv) submit(t *testing.T, enc *CommandEncoder) {
	t.Helper()
	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := e.queue.Submit(cb); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

// mapRead maps the whole buffer for reading and returns a copy.
func (e *testEnv) mapRead(t *testing.T, b *Buffer) []byte {
	t.Helper()
	slice := b.Slice(Full())
	f := slice.MapAsync(MapModeRead)
	e.device.Poll(true)
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("MapAsync() error = %v", err)
	}
	view := slice.GetMappedRange()
	out := append([]byte(nil), view.Bytes()...)
	view.Release()
	b.Unmap()
	return out
}

func (e *testEnv) colorTarget(t *testing.T, w, h uint32, format gputypes.TextureFormat) (*Texture, *TextureView) {
	t.Helper()
	tex, err := e.device.CreateTexture(&TextureDescriptor{
		Label:         "target",
		Size:          gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		t.Fatalf("CreateView() error = %v", err)
	}
	return tex, view
}
