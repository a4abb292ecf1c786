package gpuapi

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/backend/memory"
	"github.com/gogpu/gpuapi/gpucore"
)

func (e *testEnv) swapChain(t *testing.T, w *memory.Window) (*Surface, *SwapChain) {
	t.Helper()
	surface, err := e.inst.CreateSurface(w)
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	t.Cleanup(surface.Release)
	width, height := w.Size()
	sc, err := e.device.CreateSwapChain(surface, &SwapChainDescriptor{
		Label:       "main",
		Usage:       gputypes.TextureUsageRenderAttachment,
		Format:      e.adapter.SwapChainPreferredFormat(surface),
		Width:       width,
		Height:      height,
		PresentMode: gputypes.PresentModeFifo,
	})
	if err != nil {
		t.Fatalf("CreateSwapChain() error = %v", err)
	}
	return surface, sc
}

func TestSwapChainPresent(t *testing.T) {
	e := newTestEnv(t)
	w := memory.NewWindow(2, 1)
	_, sc := e.swapChain(t, w)

	frame, err := sc.GetCurrentFrame()
	if err != nil {
		t.Fatalf("GetCurrentFrame() error = %v", err)
	}
	if frame.Output.View.Owned() {
		t.Error("swap chain view reports owned")
	}

	enc := e.encoder(t)
	pass := enc.BeginRenderPass(clearPass(frame.Output.View, gputypes.Color{R: 1, A: 1}))
	pass.End()
	e.submit(t, enc)

	frame.Present()
	frame.Present()
	if sc.FrameAlive() {
		t.Error("FrameAlive() after Present")
	}
	if got := w.Presented(); got != 1 {
		t.Errorf("Presented() = %d, want 1", got)
	}
	// BGRA: red lands in the third byte.
	want := []byte{0, 0, 255, 255, 0, 0, 255, 255}
	if got := w.LastFrame(); !bytes.Equal(got, want) {
		t.Errorf("LastFrame() = %v, want %v", got, want)
	}
	if !frame.Output.View.Released() {
		t.Error("frame view still live after Present")
	}
}

func TestPresentAfterViewRelease(t *testing.T) {
	e := newTestEnv(t)
	w := memory.NewWindow(2, 2)
	surface, sc := e.swapChain(t, w)

	frame, err := sc.GetCurrentFrame()
	if err != nil {
		t.Fatalf("GetCurrentFrame() error = %v", err)
	}
	frame.Output.View.Release()
	if frame.Output.View.Released() {
		t.Fatal("releasing a swap chain view must leave it usable")
	}
	enc := e.encoder(t)
	pass := enc.BeginRenderPass(clearPass(frame.Output.View, gputypes.Color{G: 1, A: 1}))
	pass.End()
	e.submit(t, enc)

	frame.Present()
	if sc.FrameAlive() {
		t.Fatal("FrameAlive() after Present")
	}
	if got := w.Presented(); got != 1 {
		t.Errorf("Presented() = %d, want 1", got)
	}
	desc := sc.Descriptor()
	if _, err := e.device.CreateSwapChain(surface, &desc); err != nil {
		t.Errorf("CreateSwapChain() after present error = %v", err)
	}
}

func TestRecreateWhileFrameAlive(t *testing.T) {
	e := newTestEnv(t)
	w := memory.NewWindow(4, 4)
	surface, sc := e.swapChain(t, w)

	frame, err := sc.GetCurrentFrame()
	if err != nil {
		t.Fatalf("GetCurrentFrame() error = %v", err)
	}
	desc := sc.Descriptor()
	mustPanic(t, ErrFrameAlive, func() { _, _ = e.device.CreateSwapChain(surface, &desc) })
	mustPanic(t, ErrFrameAlive, sc.Release)

	frame.Present()
	next, err := e.device.CreateSwapChain(surface, &desc)
	if err != nil {
		t.Fatalf("CreateSwapChain() after present error = %v", err)
	}
	if !sc.Released() {
		t.Error("replaced swap chain not released")
	}
	if next.Released() {
		t.Error("new swap chain released")
	}
}

func TestGetCurrentFrameTwice(t *testing.T) {
	e := newTestEnv(t)
	_, sc := e.swapChain(t, memory.NewWindow(4, 4))

	frame, err := sc.GetCurrentFrame()
	if err != nil {
		t.Fatalf("GetCurrentFrame() error = %v", err)
	}
	defer frame.Release()
	mustPanic(t, ErrFrameAcquired, func() { _, _ = sc.GetCurrentFrame() })
}

func TestGetCurrentFrameStatus(t *testing.T) {
	tests := []struct {
		name           string
		status         gpucore.SwapChainStatus
		wantErr        error
		wantKind       SwapChainErrorKind
		wantSuboptimal bool
	}{
		{"good", gpucore.SwapChainStatusGood, nil, 0, false},
		{"suboptimal", gpucore.SwapChainStatusSuboptimal, nil, 0, true},
		{"timeout", gpucore.SwapChainStatusTimeout, ErrSwapChainTimeout, SwapChainErrorTimeout, false},
		{"outdated", gpucore.SwapChainStatusOutdated, ErrSwapChainOutdated, SwapChainErrorOutdated, false},
		{"lost", gpucore.SwapChainStatusLost, ErrSwapChainLost, SwapChainErrorLost, false},
		{"out of memory", gpucore.SwapChainStatusOutOfMemory, ErrSwapChainOutOfMemory, SwapChainErrorOutOfMemory, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			w := memory.NewWindow(4, 4)
			_, sc := e.swapChain(t, w)
			w.QueueStatus(tt.status)

			frame, err := sc.GetCurrentFrame()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetCurrentFrame() error = %v, want %v", err, tt.wantErr)
				}
				var scErr *SwapChainError
				if !errors.As(err, &scErr) || scErr.Kind != tt.wantKind {
					t.Errorf("error kind = %v, want %s", err, tt.wantKind)
				}
				if sc.FrameAlive() {
					t.Error("FrameAlive() after failed acquire")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetCurrentFrame() error = %v", err)
			}
			if frame.Suboptimal != tt.wantSuboptimal {
				t.Errorf("Suboptimal = %v, want %v", frame.Suboptimal, tt.wantSuboptimal)
			}
			frame.Present()
		})
	}
}

func TestResizeOutdatesSwapChain(t *testing.T) {
	e := newTestEnv(t)
	w := memory.NewWindow(4, 4)
	surface, sc := e.swapChain(t, w)

	w.Resize(8, 6)
	if _, err := sc.GetCurrentFrame(); !errors.Is(err, ErrSwapChainOutdated) {
		t.Fatalf("GetCurrentFrame() error = %v, want ErrSwapChainOutdated", err)
	}

	desc := sc.Descriptor()
	desc.Width, desc.Height = w.Size()
	sc, err := e.device.CreateSwapChain(surface, &desc)
	if err != nil {
		t.Fatalf("CreateSwapChain() error = %v", err)
	}
	frame, err := sc.GetCurrentFrame()
	if err != nil {
		t.Fatalf("GetCurrentFrame() after recreate error = %v", err)
	}
	frame.Present()
	if got := len(w.LastFrame()); got != 8*6*4 {
		t.Errorf("len(LastFrame()) = %d, want %d", got, 8*6*4)
	}
}

func TestFrameReleaseDuringPanic(t *testing.T) {
	e := newTestEnv(t)
	w := memory.NewWindow(4, 4)
	_, sc := e.swapChain(t, w)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		frame, err := sc.GetCurrentFrame()
		if err != nil {
			t.Errorf("GetCurrentFrame() error = %v", err)
			return
		}
		defer frame.Release()
		panic("boom")
	}()

	if sc.FrameAlive() {
		t.Error("FrameAlive() after abandoned frame")
	}
	if got := w.Presented(); got != 0 {
		t.Errorf("Presented() = %d, want 0", got)
	}

	// The next acquisition reclaims the abandoned image.
	frame, err := sc.GetCurrentFrame()
	if err != nil {
		t.Fatalf("GetCurrentFrame() error = %v", err)
	}
	frame.Present()
	if got := w.Presented(); got != 1 {
		t.Errorf("Presented() = %d, want 1", got)
	}
}

func TestSurfaceReleaseDropsSwapChain(t *testing.T) {
	e := newTestEnv(t)
	surface, err := e.inst.CreateSurface(memory.NewWindow(4, 4))
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	sc, err := e.device.CreateSwapChain(surface, &SwapChainDescriptor{
		Usage:  gputypes.TextureUsageRenderAttachment,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Width:  4,
		Height: 4,
	})
	if err != nil {
		t.Fatalf("CreateSwapChain() error = %v", err)
	}
	surface.Release()
	if !sc.Released() {
		t.Error("swap chain survived its surface")
	}
	if got := e.mem.Stats().Live; got != 0 {
		t.Errorf("Live = %d, want 0", got)
	}
}

func TestCreateSurfaceUnsupportedTarget(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.inst.CreateSurface(struct{}{}); !errors.Is(err, memory.ErrInvalidTarget) {
		t.Errorf("CreateSurface() error = %v, want memory.ErrInvalidTarget", err)
	}
}
