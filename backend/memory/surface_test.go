package memory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func newTestSwapChain(t *testing.T, d *testDevice, w *Window) gpucore.SwapChainID {
	t.Helper()
	surface, err := d.b.CreateSurface(w)
	if err != nil {
		t.Fatal(err)
	}
	width, height := w.Size()
	sc, err := d.b.DeviceCreateSwapChain(d.device, surface, &gpucore.SwapChainDescriptor{
		Usage:       gputypes.TextureUsageRenderAttachment,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		Width:       width,
		Height:      height,
		PresentMode: gputypes.PresentModeFifo,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func TestCreateSurfaceTarget(t *testing.T) {
	b := New()
	if _, err := b.CreateSurface("not a window"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("CreateSurface(string) error = %v, want ErrInvalidTarget", err)
	}
	if _, err := b.CreateSurface(NewWindow(4, 4)); err != nil {
		t.Errorf("CreateSurface(*Window) error = %v", err)
	}
}

func TestSwapChainPresent(t *testing.T) {
	d := newTestDevice(t)
	w := NewWindow(2, 1)
	sc := newTestSwapChain(t, d, w)

	view, status, detail := d.b.SwapChainGetCurrentTextureView(sc)
	if status != gpucore.SwapChainStatusGood {
		t.Fatalf("status = %s, want Good", status)
	}

	enc := d.encoder(t)
	pass := d.b.CommandEncoderBeginRenderPass(enc, &gpucore.RenderPassDescriptor{
		ColorAttachments: []gpucore.RenderPassColorAttachment{{
			View: view, LoadOp: gputypes.LoadOpClear, ClearValue: gputypes.Color{B: 1, A: 1},
		}},
	})
	d.b.CommandEncoderEndRenderPass(enc, pass)
	d.submit(t, enc)

	d.b.SwapChainPresent(view, detail)
	if got := w.Presented(); got != 1 {
		t.Errorf("Presented() = %d, want 1", got)
	}
	want := []byte{255, 0, 0, 255, 255, 0, 0, 255}
	if got := w.LastFrame(); !bytes.Equal(got, want) {
		t.Errorf("LastFrame() = %v, want %v", got, want)
	}
	if s := d.b.Stats(); s.Presents != 1 || s.Live != 1 {
		t.Errorf("Stats() = %+v, want 1 present and only the swap chain live", s)
	}

	// A second present of the same image is ignored.
	d.b.SwapChainPresent(view, detail)
	if got := w.Presented(); got != 1 {
		t.Errorf("Presented() after stale present = %d, want 1", got)
	}
}

func TestSwapChainStatus(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(w *Window)
		want   gpucore.SwapChainStatus
		wantView bool
	}{
		{"good", func(*Window) {}, gpucore.SwapChainStatusGood, true},
		{"resized", func(w *Window) { w.Resize(8, 8) }, gpucore.SwapChainStatusOutdated, false},
		{"queued suboptimal", func(w *Window) { w.QueueStatus(gpucore.SwapChainStatusSuboptimal) }, gpucore.SwapChainStatusSuboptimal, true},
		{"queued timeout", func(w *Window) { w.QueueStatus(gpucore.SwapChainStatusTimeout) }, gpucore.SwapChainStatusTimeout, false},
		{"queued lost", func(w *Window) { w.QueueStatus(gpucore.SwapChainStatusLost) }, gpucore.SwapChainStatusLost, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			w := NewWindow(4, 4)
			sc := newTestSwapChain(t, d, w)
			tt.setup(w)

			view, status, _ := d.b.SwapChainGetCurrentTextureView(sc)
			if status != tt.want {
				t.Errorf("status = %s, want %s", status, tt.want)
			}
			if got := view != gpucore.InvalidID; got != tt.wantView {
				t.Errorf("view valid = %v, want %v", got, tt.wantView)
			}
		})
	}
}

func TestSwapChainDropReleasesImage(t *testing.T) {
	d := newTestDevice(t)
	sc := newTestSwapChain(t, d, NewWindow(4, 4))

	if _, status, _ := d.b.SwapChainGetCurrentTextureView(sc); status != gpucore.SwapChainStatusGood {
		t.Fatalf("status = %s", status)
	}
	// Acquiring again discards the unpresented image.
	if _, status, _ := d.b.SwapChainGetCurrentTextureView(sc); status != gpucore.SwapChainStatusGood {
		t.Fatalf("status = %s", status)
	}
	if s := d.b.Stats(); s.Live != 3 {
		t.Errorf("Live with one image = %d, want 3", s.Live)
	}
	d.b.SwapChainDrop(sc)
	if s := d.b.Stats(); s.Live != 0 || s.UnknownDrops != 0 {
		t.Errorf("Stats() after drop = %+v", s)
	}
}
