package memory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Window is a simulated presentation target for CreateSurface. Presented
// frames are kept for inspection.
type Window struct {
	mu        sync.Mutex
	width     uint32
	height    uint32
	statuses  []gpucore.SwapChainStatus
	presented int
	lastFrame []byte
}

// NewWindow returns a window of the given size.
func NewWindow(width, height uint32) *Window {
	return &Window{width: width, height: height}
}

// Resize changes the window size. Swap chains of another size report
// Outdated until they are recreated.
func (w *Window) Resize(width, height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
}

// Size returns the window size.
func (w *Window) Size() (width, height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// QueueStatus makes the next acquisitions report statuses, in order.
func (w *Window) QueueStatus(statuses ...gpucore.SwapChainStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statuses = append(w.statuses, statuses...)
}

// Presented returns the number of frames presented to the window.
func (w *Window) Presented() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presented
}

// LastFrame returns a copy of the pixels of the last presented frame.
func (w *Window) LastFrame() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.lastFrame)
}

// nextStatus pops a queued status, or compares the size.
func (w *Window) nextStatus(width, height uint32) gpucore.SwapChainStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.statuses) > 0 {
		s := w.statuses[0]
		w.statuses = w.statuses[1:]
		return s
	}
	if w.width != width || w.height != height {
		return gpucore.SwapChainStatusOutdated
	}
	return gpucore.SwapChainStatusGood
}

func (w *Window) present(frame []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.presented++
	w.lastFrame = frame
}

type surface struct {
	window *Window

	mu        sync.Mutex
	swapChain gpucore.SwapChainID
}

type swapChain struct {
	device  *device
	surface *surface
	desc    gpucore.SwapChainDescriptor

	mu      sync.Mutex
	token   uint64
	texture gpucore.TextureID
	view    gpucore.TextureViewID
}

// CreateSurface wraps a *Window.
func (b *Backend) CreateSurface(target any) (gpucore.SurfaceID, error) {
	w, ok := target.(*Window)
	if !ok || w == nil {
		return gpucore.InvalidID, fmt.Errorf("%w, got %T", ErrInvalidTarget, target)
	}
	if b.Closed() {
		return gpucore.InvalidID, ErrClosed
	}
	return insert(b, b.surfaces, &surface{window: w}), nil
}

// SurfaceDrop releases a surface.
func (b *Backend) SurfaceDrop(id gpucore.SurfaceID) {
	remove(b, "surface", b.surfaces, id)
}

// DeviceCreateSwapChain creates a swap chain of one image. It replaces
// the swap chain the surface already has.
func (b *Backend) DeviceCreateSwapChain(deviceID gpucore.DeviceID, surfaceID gpucore.SurfaceID, desc *gpucore.SwapChainDescriptor) (gpucore.SwapChainID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	s, ok := lookup(b, b.surfaces, surfaceID)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: surface %d", ErrInvalidHandle, surfaceID)
	}
	switch {
	case desc.Width == 0 || desc.Height == 0:
		return gpucore.InvalidID, fmt.Errorf("%w: swap chain is %dx%d", ErrInvalidDescriptor, desc.Width, desc.Height)
	case desc.Usage&gputypes.TextureUsageRenderAttachment == 0:
		return gpucore.InvalidID, fmt.Errorf("%w: swap chain usage must include render attachment", ErrInvalidDescriptor)
	case texelSize(desc.Format) == 0:
		return gpucore.InvalidID, fmt.Errorf("%w: swap chain format %s", ErrInvalidDescriptor, desc.Format)
	}

	sc := &swapChain{device: d, surface: s, desc: *desc}
	id := insert(b, b.swapChains, sc)

	s.mu.Lock()
	old := s.swapChain
	s.swapChain = id
	s.mu.Unlock()
	if old != gpucore.InvalidID {
		b.log().Debug("memory: swap chain replaced", "old", uint64(old), "new", uint64(id))
	}
	b.log().Debug("memory: swap chain created", "id", uint64(id),
		"width", desc.Width, "height", desc.Height, "format", desc.Format, "present_mode", desc.PresentMode)
	return id, nil
}

// SwapChainGetCurrentTextureView acquires the swap chain image. An image
// acquired earlier and never presented is discarded.
func (b *Backend) SwapChainGetCurrentTextureView(id gpucore.SwapChainID) (gpucore.TextureViewID, gpucore.SwapChainStatus, gpucore.SwapChainOutputDetail) {
	sc, ok := lookup(b, b.swapChains, id)
	if !ok {
		return gpucore.InvalidID, gpucore.SwapChainStatusLost, gpucore.SwapChainOutputDetail{}
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	b.discardImage(sc)
	status := sc.surface.window.nextStatus(sc.desc.Width, sc.desc.Height)
	if status != gpucore.SwapChainStatusGood && status != gpucore.SwapChainStatusSuboptimal {
		b.log().Warn("memory: swap chain acquire failed", "id", uint64(id), "status", status)
		return gpucore.InvalidID, status, gpucore.SwapChainOutputDetail{}
	}

	t, err := newTexture(&gpucore.TextureDescriptor{
		Label:         "swap chain image",
		Size:          gputypes.Extent3D{Width: sc.desc.Width, Height: sc.desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        sc.desc.Format,
		Usage:         sc.desc.Usage,
	}, sc.device.limits)
	if err != nil {
		b.log().Error("memory: swap chain image", "err", err)
		return gpucore.InvalidID, gpucore.SwapChainStatusOutOfMemory, gpucore.SwapChainOutputDetail{}
	}
	v, _ := newView(t, &gpucore.TextureViewDescriptor{})
	sc.texture = insert(b, b.textures, t)
	sc.view = insert(b, b.views, v)
	sc.token++
	return sc.view, status, gpucore.SwapChainOutputDetail{SwapChain: id, Token: sc.token}
}

// discardImage drops the acquired image, if any. sc.mu must be held.
func (b *Backend) discardImage(sc *swapChain) *texture {
	if sc.view == gpucore.InvalidID {
		return nil
	}
	b.mu.Lock()
	t := b.textures[sc.texture]
	delete(b.views, sc.view)
	delete(b.textures, sc.texture)
	b.mu.Unlock()
	sc.view, sc.texture = gpucore.InvalidID, gpucore.InvalidID
	return t
}

// SwapChainPresent shows the acquired image on the window.
func (b *Backend) SwapChainPresent(view gpucore.TextureViewID, detail gpucore.SwapChainOutputDetail) {
	sc, ok := lookup(b, b.swapChains, detail.SwapChain)
	if !ok {
		b.log().Warn("memory: present on unknown swap chain", "id", uint64(detail.SwapChain))
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.view != view || sc.token != detail.Token {
		b.log().Warn("memory: present of stale image", "swap_chain", uint64(detail.SwapChain), "token", detail.Token)
		return
	}
	t := b.discardImage(sc)
	t.mu.Lock()
	frame := t.levels[0]
	t.mu.Unlock()
	sc.surface.window.present(frame)
	b.stats.presents.Add(1)
}

// SwapChainDrop releases a swap chain and its image.
func (b *Backend) SwapChainDrop(id gpucore.SwapChainID) {
	sc, ok := remove(b, "swap chain", b.swapChains, id)
	if !ok {
		return
	}
	sc.mu.Lock()
	b.discardImage(sc)
	sc.mu.Unlock()

	sc.surface.mu.Lock()
	if sc.surface.swapChain == id {
		sc.surface.swapChain = gpucore.InvalidID
	}
	sc.surface.mu.Unlock()
}
