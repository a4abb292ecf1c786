//go:build rust

package rust

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

type surface struct {
	raw *wgpu.Surface

	mu        sync.Mutex
	swapChain gpucore.SwapChainID
	device    *device // configured with, nil when unconfigured
}

// unconfigure releases the surface configuration. s.mu must be held.
func (s *surface) unconfigure() {
	if s.device == nil {
		return
	}
	s.raw.Unconfigure()
	s.device = nil
	s.swapChain = gpucore.InvalidID
}

type swapChain struct {
	device  *device
	surface *surface
	desc    gpucore.SwapChainDescriptor

	mu    sync.Mutex
	token uint64
	frame *wgpu.Texture
	view  gpucore.TextureViewID
}

// CreateSurface creates a surface from a *wgpu.SurfaceDescriptor, as
// returned by the windowing layer.
func (b *Backend) CreateSurface(target any) (gpucore.SurfaceID, error) {
	desc, ok := target.(*wgpu.SurfaceDescriptor)
	if !ok || desc == nil {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidTarget, "got %T", target)
	}
	if b.isClosed() {
		return gpucore.InvalidID, ErrClosed
	}
	raw := b.instance.CreateSurface(desc)
	if raw == nil {
		return gpucore.InvalidID, errors.New("rust: create surface failed")
	}
	return insert(b, b.surfaces, &surface{raw: raw}), nil
}

func (b *Backend) SurfaceDrop(id gpucore.SurfaceID) {
	s, ok := remove(b, "surface", b.surfaces, id)
	if !ok {
		return
	}
	s.mu.Lock()
	s.unconfigure()
	s.mu.Unlock()
	s.raw.Release()
}

// DeviceCreateSwapChain configures the surface, replacing the swap chain
// the surface already has.
func (b *Backend) DeviceCreateSwapChain(deviceID gpucore.DeviceID, surfaceID gpucore.SurfaceID, desc *gpucore.SwapChainDescriptor) (gpucore.SwapChainID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	s, ok := lookup(b, b.surfaces, surfaceID)
	if !ok {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "surface %d", surfaceID)
	}
	switch {
	case desc.Width == 0 || desc.Height == 0:
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidDescriptor, "swap chain is %dx%d", desc.Width, desc.Height)
	case desc.Usage&gputypes.TextureUsageRenderAttachment == 0:
		return gpucore.InvalidID, errors.Wrap(ErrInvalidDescriptor, "swap chain usage must include render attachment")
	}

	format := conv(textureFormats, desc.Format)
	caps := s.raw.GetCapabilities(d.adapter)
	if len(caps.Formats) > 0 && !slices.Contains(caps.Formats, format) {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidDescriptor, "surface does not support %s", desc.Format)
	}
	mode := conv(presentModes, desc.PresentMode)
	if len(caps.PresentModes) > 0 && !slices.Contains(caps.PresentModes, mode) {
		b.log().Warn("rust: present mode unsupported, using fifo", "mode", desc.PresentMode)
		mode = wgpu.PresentModeFifo
	}
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device != nil && s.device != d {
		s.unconfigure()
	}
	s.raw.Configure(d.adapter, d.raw, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsage(desc.Usage),
		Format:      format,
		Width:       desc.Width,
		Height:      desc.Height,
		PresentMode: mode,
		AlphaMode:   alpha,
	})
	s.device = d

	id := insert(b, b.swapChains, &swapChain{device: d, surface: s, desc: *desc})
	if old := s.swapChain; old != gpucore.InvalidID {
		b.log().Debug("rust: swap chain replaced", "old", uint64(old), "new", uint64(id))
	}
	s.swapChain = id
	b.log().Debug("rust: swap chain created", "id", uint64(id), "width", desc.Width, "height", desc.Height, "format", desc.Format)
	return id, nil
}

// SwapChainGetCurrentTextureView acquires the next surface texture. A
// frame acquired earlier and never presented is released.
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
	b.releaseFrame(sc)

	tex, err := sc.surface.raw.GetCurrentTexture()
	if err != nil {
		// wgpu-native reports timeouts, outdated and lost surfaces
		// alike; reconfiguring recovers from all of them.
		b.log().Warn("rust: swap chain acquire failed", "id", uint64(id), "err", err)
		return gpucore.InvalidID, gpucore.SwapChainStatusOutdated, gpucore.SwapChainOutputDetail{}
	}
	raw, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		b.log().Error("rust: swap chain image view", "err", err)
		return gpucore.InvalidID, gpucore.SwapChainStatusOutOfMemory, gpucore.SwapChainOutputDetail{}
	}
	sc.frame = tex
	sc.view = insert(b, b.views, &textureView{raw: raw, swapChain: id})
	sc.token++
	return sc.view, gpucore.SwapChainStatusGood, gpucore.SwapChainOutputDetail{SwapChain: id, Token: sc.token}
}

// releaseFrame unregisters and releases the acquired frame. sc.mu must
// be held.
func (b *Backend) releaseFrame(sc *swapChain) {
	if sc.view == gpucore.InvalidID {
		return
	}
	b.mu.Lock()
	v := b.views[sc.view]
	delete(b.views, sc.view)
	b.mu.Unlock()
	if v != nil {
		v.raw.Release()
	}
	sc.frame.Release()
	sc.view, sc.frame = gpucore.InvalidID, nil
}

// SwapChainPresent presents the frame acquired with detail. Stale
// presents are logged and ignored.
func (b *Backend) SwapChainPresent(view gpucore.TextureViewID, detail gpucore.SwapChainOutputDetail) {
	sc, ok := lookup(b, b.swapChains, detail.SwapChain)
	if !ok {
		b.log().Warn("rust: present on unknown swap chain", "id", uint64(detail.SwapChain))
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.view != view || sc.token != detail.Token {
		b.log().Warn("rust: present of stale image", "swap_chain", uint64(detail.SwapChain), "token", detail.Token)
		return
	}
	_ = b.withQueue(func() error {
		sc.surface.raw.Present()
		return nil
	})
	b.releaseFrame(sc)
}

// SwapChainDrop releases the acquired frame and unconfigures the surface
// if the swap chain is still its current one.
func (b *Backend) SwapChainDrop(id gpucore.SwapChainID) {
	sc, ok := remove(b, "swap chain", b.swapChains, id)
	if !ok {
		return
	}
	sc.mu.Lock()
	b.releaseFrame(sc)
	sc.mu.Unlock()

	s := sc.surface
	s.mu.Lock()
	if s.swapChain == id {
		s.unconfigure()
	}
	s.mu.Unlock()
}
