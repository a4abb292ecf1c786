package gpuapi

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/gpuapi/gpucore"
)

// SwapChain cycles surface images through acquire and present.
//
// At most one frame is alive at a time. A frame is presented when it is
// released, so the usual shape is:
//
//	frame, err := sc.GetCurrentFrame()
//	if err != nil { ... }
//	defer frame.Release()
type SwapChain struct {
	handle[gpucore.SwapChainID]

	surface    *Surface
	desc       SwapChainDescriptor
	frameAlive atomic.Bool
}

// Descriptor returns the descriptor the swap chain was created with.
func (sc *SwapChain) Descriptor() SwapChainDescriptor { return sc.desc }

// FrameAlive reports whether an acquired frame has not been presented yet.
func (sc *SwapChain) FrameAlive() bool { return sc.frameAlive.Load() }

// GetCurrentFrame acquires the next image. Timeout, Outdated, Lost and
// OutOfMemory are returned as a *SwapChainError. It panics if the
// previous frame is still alive.
func (sc *SwapChain) GetCurrentFrame() (*SwapChainFrame, error) {
	id := sc.live()
	if !sc.frameAlive.CompareAndSwap(false, true) {
		panic(errors.WithAssertionFailure(ErrFrameAcquired))
	}

	viewID, status, detail := sc.backend.SwapChainGetCurrentTextureView(id)
	switch status {
	case gpucore.SwapChainStatusGood, gpucore.SwapChainStatusSuboptimal:
	default:
		sc.frameAlive.Store(false)
		err := swapChainErrorFor(status)
		Logger().Debug("gpu: frame acquire failed", "status", status)
		return nil, err
	}

	return &SwapChainFrame{
		Output: &SwapChainTexture{
			View:      newTextureView(sc.backend, viewID, false),
			detail:    detail,
			swapChain: sc,
		},
		Suboptimal: status == gpucore.SwapChainStatusSuboptimal,
	}, nil
}

// Release drops the swap chain. It panics if a frame is alive.
func (sc *SwapChain) Release() {
	if r := recover(); r != nil {
		panic(sc.unwind(r))
	}
	if sc.frameAlive.Load() {
		panic(errors.WithAssertionFailure(ErrFrameAlive))
	}
	sc.surface.mu.Lock()
	if sc.surface.swapChain == sc {
		sc.surface.swapChain = nil
	}
	sc.surface.mu.Unlock()
	sc.release()
}

// SwapChainFrame is an acquired swap chain image.
type SwapChainFrame struct {
	Output *SwapChainTexture

	// Suboptimal is set when the swap chain no longer matches the surface
	// exactly. The frame can still be presented; recreate the swap chain
	// afterwards.
	Suboptimal bool
}

// Present presents the frame. Presenting twice does nothing. During a
// panic the image is not presented.
func (f *SwapChainFrame) Present() {
	if r := recover(); r != nil {
		f.Output.abandon()
		panic(r)
	}
	f.Output.present()
}

// Release is Present.
func (f *SwapChainFrame) Release() {
	if r := recover(); r != nil {
		f.Output.abandon()
		panic(r)
	}
	f.Output.present()
}

// SwapChainTexture is the image of a frame. Its view is owned by the swap
// chain.
type SwapChainTexture struct {
	View *TextureView

	detail    gpucore.SwapChainOutputDetail
	swapChain *SwapChain
	presented atomic.Bool
}

func (t *SwapChainTexture) present() {
	if !t.presented.CompareAndSwap(false, true) {
		return
	}
	defer t.swapChain.frameAlive.Store(false)
	t.swapChain.backend.SwapChainPresent(t.View.id, t.detail)
	t.View.release()
}

func (t *SwapChainTexture) abandon() {
	if !t.presented.CompareAndSwap(false, true) {
		return
	}
	t.View.unwind(nil)
	t.swapChain.frameAlive.Store(false)
	Logger().Warn("gpu: present skipped during panic", "swap_chain", uint64(t.swapChain.id))
}
