package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func (d *testDevice) surface(t *testing.T) gpucore.SurfaceID {
	t.Helper()
	id, err := d.b.CreateSurface(SurfaceTarget{Display: 1, Window: 2})
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	return id
}

func (d *testDevice) swapChain(t *testing.T, s gpucore.SurfaceID, w, h uint32) gpucore.SwapChainID {
	t.Helper()
	id, err := d.b.DeviceCreateSwapChain(d.device, s, &gpucore.SwapChainDescriptor{
		Label:  "main",
		Usage:  gputypes.TextureUsageRenderAttachment,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Width:  w,
		Height: h,
	})
	if err != nil {
		t.Fatalf("DeviceCreateSwapChain() error = %v", err)
	}
	return id
}

func TestCreateSurfaceTarget(t *testing.T) {
	tests := []struct {
		name    string
		target  any
		wantErr error
	}{
		{"value", SurfaceTarget{Window: 1}, nil},
		{"pointer", &SurfaceTarget{Window: 1}, nil},
		{"nil pointer", (*SurfaceTarget)(nil), ErrInvalidTarget},
		{"foreign", "window", ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t)
			id, err := b.CreateSurface(tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateSurface() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				b.SurfaceDrop(id)
			}
		})
	}
}

func TestPreferredFormat(t *testing.T) {
	d := newTestDevice(t)
	s := d.surface(t)
	// The driver offers no sRGB formats.
	if got := d.b.AdapterGetSwapChainPreferredFormat(d.adapter, s); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("AdapterGetSwapChainPreferredFormat() = %v, want %v", got, gputypes.TextureFormatBGRA8Unorm)
	}
}

func TestCreateSwapChainValidation(t *testing.T) {
	d := newTestDevice(t)
	s := d.surface(t)
	tests := []struct {
		name string
		desc gpucore.SwapChainDescriptor
	}{
		{"zero size", gpucore.SwapChainDescriptor{Usage: gputypes.TextureUsageRenderAttachment, Format: gputypes.TextureFormatBGRA8Unorm}},
		{"no render usage", gpucore.SwapChainDescriptor{Usage: gputypes.TextureUsageCopySrc, Format: gputypes.TextureFormatBGRA8Unorm, Width: 8, Height: 8}},
		{"unsupported format", gpucore.SwapChainDescriptor{Usage: gputypes.TextureUsageRenderAttachment, Format: gputypes.TextureFormatRGBA16Float, Width: 8, Height: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.b.DeviceCreateSwapChain(d.device, s, &tt.desc)
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("DeviceCreateSwapChain() error = %v, want %v", err, ErrInvalidDescriptor)
			}
		})
	}
}

func TestSwapChainPresent(t *testing.T) {
	d := newTestDevice(t)
	sc := d.swapChain(t, d.surface(t), 32, 16)

	view, status, detail := d.b.SwapChainGetCurrentTextureView(sc)
	if status != gpucore.SwapChainStatusGood || view == gpucore.InvalidID {
		t.Fatalf("SwapChainGetCurrentTextureView() = %d, %v", view, status)
	}
	if detail.SwapChain != sc || detail.Token != 1 {
		t.Errorf("detail = %+v", detail)
	}

	enc := d.encoder(t)
	p := d.b.CommandEncoderBeginRenderPass(enc, &gpucore.RenderPassDescriptor{
		ColorAttachments: []gpucore.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{B: 1, A: 1},
		}},
	})
	d.b.CommandEncoderEndRenderPass(enc, p)
	d.submit(t, enc)

	// The swap chain owns the frame view.
	d.b.TextureViewDrop(view)
	if _, ok := lookup(d.b, d.b.views, view); !ok {
		t.Fatal("TextureViewDrop() released a swap chain image")
	}

	d.b.SwapChainPresent(view, detail)
	if _, ok := lookup(d.b, d.b.views, view); ok {
		t.Error("frame view still registered after present")
	}

	_, _, next := d.b.SwapChainGetCurrentTextureView(sc)
	if next.Token != 2 {
		t.Errorf("next token = %d, want 2", next.Token)
	}
}

func TestSwapChainStalePresent(t *testing.T) {
	d := newTestDevice(t)
	sc := d.swapChain(t, d.surface(t), 8, 8)

	first, _, firstDetail := d.b.SwapChainGetCurrentTextureView(sc)
	// Acquiring again discards the unpresented frame.
	second, _, secondDetail := d.b.SwapChainGetCurrentTextureView(sc)
	if _, ok := lookup(d.b, d.b.views, first); ok {
		t.Error("discarded frame view still registered")
	}

	d.b.SwapChainPresent(first, firstDetail)
	if _, ok := lookup(d.b, d.b.views, second); !ok {
		t.Fatal("stale present consumed the current frame")
	}
	d.b.SwapChainPresent(second, secondDetail)
	if _, ok := lookup(d.b, d.b.views, second); ok {
		t.Error("current frame view still registered after present")
	}
}

func TestSwapChainReplaced(t *testing.T) {
	d := newTestDevice(t)
	s := d.surface(t)
	old := d.swapChain(t, s, 8, 8)
	cur := d.swapChain(t, s, 16, 16)

	if _, status, _ := d.b.SwapChainGetCurrentTextureView(old); status != gpucore.SwapChainStatusOutdated {
		t.Errorf("replaced swap chain status = %v, want %v", status, gpucore.SwapChainStatusOutdated)
	}
	if _, status, _ := d.b.SwapChainGetCurrentTextureView(cur); status != gpucore.SwapChainStatusGood {
		t.Errorf("current swap chain status = %v, want %v", status, gpucore.SwapChainStatusGood)
	}

	// Dropping the replaced swap chain leaves the surface configured.
	d.b.SwapChainDrop(old)
	surf, _ := lookup(d.b, d.b.surfaces, s)
	if surf.swapChain != cur || surf.device == nil {
		t.Errorf("surface after dropping the old swap chain = %d, configured %v", surf.swapChain, surf.device != nil)
	}
	d.b.SwapChainDrop(cur)
	if surf.device != nil {
		t.Error("surface still configured after dropping its swap chain")
	}
}

func TestDeviceDropUnconfiguresSurface(t *testing.T) {
	d := newTestDevice(t)
	s := d.surface(t)
	d.swapChain(t, s, 8, 8)

	d.b.DeviceDrop(d.device)
	surf, _ := lookup(d.b, d.b.surfaces, s)
	if surf.device != nil {
		t.Error("surface still configured with a dropped device")
	}
}

func TestSwapChainUnknown(t *testing.T) {
	b := newTestBackend(t)
	if _, status, _ := b.SwapChainGetCurrentTextureView(42); status != gpucore.SwapChainStatusLost {
		t.Errorf("status = %v, want %v", status, gpucore.SwapChainStatusLost)
	}
	// Presenting to an unknown swap chain is logged and ignored.
	b.SwapChainPresent(1, gpucore.SwapChainOutputDetail{SwapChain: 42})
}
