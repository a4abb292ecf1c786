package native

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuapi/gpucore"
)

// SurfaceTarget holds the platform handles CreateSurface needs: the
// display or instance handle and the window handle.
type SurfaceTarget struct {
	Display uintptr
	Window  uintptr
}

type surface struct {
	raw hal.Surface

	mu        sync.Mutex
	swapChain gpucore.SwapChainID
	device    *device // configured with, nil when unconfigured
}

// unconfigure releases the surface configuration. s.mu must be held.
func (s *surface) unconfigure() {
	if s.device == nil {
		return
	}
	s.raw.Unconfigure(s.device.raw)
	s.device = nil
	s.swapChain = gpucore.InvalidID
}

type swapChain struct {
	device  *device
	surface *surface
	desc    gpucore.SwapChainDescriptor

	mu    sync.Mutex
	token uint64
	frame hal.SurfaceTexture
	view  gpucore.TextureViewID
}

// CreateSurface creates a hal surface from a SurfaceTarget.
func (b *Backend) CreateSurface(target any) (gpucore.SurfaceID, error) {
	var t SurfaceTarget
	switch v := target.(type) {
	case SurfaceTarget:
		t = v
	case *SurfaceTarget:
		if v == nil {
			return gpucore.InvalidID, fmt.Errorf("%w, got nil", ErrInvalidTarget)
		}
		t = *v
	default:
		return gpucore.InvalidID, fmt.Errorf("%w, got %T", ErrInvalidTarget, target)
	}
	if b.Closed() {
		return gpucore.InvalidID, ErrClosed
	}
	raw, err := b.instance.CreateSurface(t.Display, t.Window)
	if err != nil {
		return gpucore.InvalidID, errors.Wrap(err, "native: create surface")
	}
	return insert(b, b.surfaces, &surface{raw: raw}), nil
}

// SurfaceDrop unconfigures and destroys a surface.
func (b *Backend) SurfaceDrop(id gpucore.SurfaceID) {
	s, ok := remove(b, "surface", b.surfaces, id)
	if !ok {
		return
	}
	s.mu.Lock()
	s.unconfigure()
	s.mu.Unlock()
	s.raw.Destroy()
}

// DeviceCreateSwapChain configures the surface. It replaces the swap
// chain the surface already has.
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
	}

	cfg := &hal.SurfaceConfiguration{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      desc.Format,
		Usage:       desc.Usage,
		PresentMode: desc.PresentMode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	}
	if cfg.PresentMode == 0 {
		cfg.PresentMode = gputypes.PresentModeFifo
	}
	if caps := d.adapter.exposed.Adapter.SurfaceCapabilities(s.raw); caps != nil {
		if len(caps.Formats) > 0 && !slices.Contains(caps.Formats, desc.Format) {
			return gpucore.InvalidID, fmt.Errorf("%w: surface does not support %s", ErrInvalidDescriptor, desc.Format)
		}
		if len(caps.PresentModes) > 0 && !slices.Contains(caps.PresentModes, cfg.PresentMode) {
			b.log().Warn("native: present mode unsupported, using fifo", "mode", cfg.PresentMode)
			cfg.PresentMode = gputypes.PresentModeFifo
		}
		if len(caps.AlphaModes) > 0 && !slices.Contains(caps.AlphaModes, cfg.AlphaMode) {
			cfg.AlphaMode = caps.AlphaModes[0]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device != nil && s.device != d {
		s.unconfigure()
	}
	if err := s.raw.Configure(d.raw, cfg); err != nil {
		return gpucore.InvalidID, errors.Wrapf(err, "native: configure surface %dx%d", desc.Width, desc.Height)
	}
	s.device = d

	id := insert(b, b.swapChains, &swapChain{device: d, surface: s, desc: *desc})
	old := s.swapChain
	s.swapChain = id
	if old != gpucore.InvalidID {
		b.log().Debug("native: swap chain replaced", "old", uint64(old), "new", uint64(id))
	}
	b.log().Debug("native: swap chain created", "id", uint64(id),
		"width", desc.Width, "height", desc.Height, "format", desc.Format, "present_mode", cfg.PresentMode)
	return id, nil
}

// acquireStatus maps a hal acquire error to a swap chain status.
func acquireStatus(err error) gpucore.SwapChainStatus {
	switch {
	case errors.Is(err, hal.ErrTimeout):
		return gpucore.SwapChainStatusTimeout
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return gpucore.SwapChainStatusOutdated
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return gpucore.SwapChainStatusOutOfMemory
	default:
		return gpucore.SwapChainStatusLost
	}
}

// SwapChainGetCurrentTextureView acquires the next surface texture. A
// frame acquired earlier and never presented is discarded.
func (b *Backend) SwapChainGetCurrentTextureView(id gpucore.SwapChainID) (gpucore.TextureViewID, gpucore.SwapChainStatus, gpucore.SwapChainOutputDetail) {
	sc, ok := lookup(b, b.swapChains, id)
	if !ok {
		return gpucore.InvalidID, gpucore.SwapChainStatusLost, gpucore.SwapChainOutputDetail{}
	}
	sc.surface.mu.Lock()
	current := sc.surface.swapChain == id
	sc.surface.mu.Unlock()
	if !current {
		return gpucore.InvalidID, gpucore.SwapChainStatusOutdated, gpucore.SwapChainOutputDetail{}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	b.discardFrame(sc)

	acquired, err := sc.surface.raw.AcquireTexture(nil)
	if err != nil {
		status := acquireStatus(err)
		b.log().Warn("native: swap chain acquire failed", "id", uint64(id), "status", status, "err", err)
		return gpucore.InvalidID, status, gpucore.SwapChainOutputDetail{}
	}
	status := gpucore.SwapChainStatusGood
	if acquired.Suboptimal {
		status = gpucore.SwapChainStatusSuboptimal
	}

	d := sc.device
	raw, err := d.raw.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:         "swap chain image",
		Format:        sc.desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		sc.surface.raw.DiscardTexture(acquired.Texture)
		b.log().Error("native: swap chain image view", "err", err)
		return gpucore.InvalidID, gpucore.SwapChainStatusOutOfMemory, gpucore.SwapChainOutputDetail{}
	}
	t := &texture{device: d, raw: acquired.Texture, desc: gpucore.TextureDescriptor{
		Label:         "swap chain image",
		Size:          gputypes.Extent3D{Width: sc.desc.Width, Height: sc.desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        sc.desc.Format,
		Usage:         sc.desc.Usage,
	}}
	sc.frame = acquired.Texture
	sc.view = insert(b, b.views, &textureView{device: d, raw: raw, texture: t, label: "swap chain image", frame: true})
	sc.token++
	return sc.view, status, gpucore.SwapChainOutputDetail{SwapChain: id, Token: sc.token}
}

// takeFrame unregisters the acquired frame view and returns it. sc.mu
// must be held.
func (b *Backend) takeFrame(sc *swapChain) (hal.SurfaceTexture, *textureView) {
	if sc.view == gpucore.InvalidID {
		return nil, nil
	}
	b.mu.Lock()
	v := b.views[sc.view]
	delete(b.views, sc.view)
	b.mu.Unlock()
	frame := sc.frame
	sc.view, sc.frame = gpucore.InvalidID, nil
	return frame, v
}

// discardFrame gives an unpresented frame back to the surface. sc.mu
// must be held.
func (b *Backend) discardFrame(sc *swapChain) {
	frame, v := b.takeFrame(sc)
	if frame == nil {
		return
	}
	d := sc.device
	if v != nil {
		d.retire(func() { d.raw.DestroyTextureView(v.raw) })
	}
	sc.surface.raw.DiscardTexture(frame)
}

// SwapChainPresent presents the frame acquired with detail.
func (b *Backend) SwapChainPresent(view gpucore.TextureViewID, detail gpucore.SwapChainOutputDetail) {
	sc, ok := lookup(b, b.swapChains, detail.SwapChain)
	if !ok {
		b.log().Warn("native: present on unknown swap chain", "id", uint64(detail.SwapChain))
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.view != view || sc.token != detail.Token {
		b.log().Warn("native: present of stale image", "swap_chain", uint64(detail.SwapChain), "token", detail.Token)
		return
	}
	frame, v := b.takeFrame(sc)
	d := sc.device
	err := b.withQueue(func() error { return d.queue.Present(sc.surface.raw, frame, nil) })
	if err != nil {
		b.log().Warn("native: present", "swap_chain", uint64(detail.SwapChain), "status", acquireStatus(err), "err", err)
	}
	if v != nil {
		d.retire(func() { d.raw.DestroyTextureView(v.raw) })
	}
}

// SwapChainDrop discards the acquired frame and unconfigures the surface
// if the swap chain is still its current one.
func (b *Backend) SwapChainDrop(id gpucore.SwapChainID) {
	sc, ok := remove(b, "swap chain", b.swapChains, id)
	if !ok {
		return
	}
	sc.mu.Lock()
	b.discardFrame(sc)
	sc.mu.Unlock()

	s := sc.surface
	s.mu.Lock()
	if s.swapChain == id {
		s.unconfigure()
	}
	s.mu.Unlock()
}
