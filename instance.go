package gpuapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gpuapi/backend"
	"github.com/gogpu/gpuapi/gpucore"
)

// Instance is the entry point to a backend. It owns one reference to the
// backend; adapters and devices obtained from it own one each, so the
// backend stays open until all of them are released.
//
// Several instances, each with its own backend, may coexist.
type Instance struct {
	backend  *sharedBackend
	released bool
}

// NewInstance wraps a backend. The instance takes ownership of b.
func NewInstance(b gpucore.Backend) *Instance {
	Logger().Info("gpu: instance created", "backend", b.Name())
	return &Instance{backend: newSharedBackend(b)}
}

// NewDefaultInstance creates an instance on the best registered backend.
// The GPUAPI_BACKEND environment variable overrides the choice.
func NewDefaultInstance() (*Instance, error) {
	b, err := backend.Default()
	if err != nil {
		return nil, fmt.Errorf("default instance: %w", err)
	}
	return NewInstance(b), nil
}

// Backend returns the name of the backend behind the instance.
func (i *Instance) Backend() string { return i.backend.Name() }

// CreateSurface creates a surface for a backend-specific window target.
func (i *Instance) CreateSurface(target any) (*Surface, error) {
	id, err := i.backend.CreateSurface(target)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	s := &Surface{}
	s.init(i.backend, id, "surface", gpucore.Backend.SurfaceDrop)
	return s, nil
}

// RequestAdapter returns an adapter matching opts. It returns an error
// matching ErrNoAdapter when none does.
func (i *Instance) RequestAdapter(ctx context.Context, opts *RequestAdapterOptions) (*Adapter, error) {
	core := &gpucore.RequestAdapterOptions{}
	if opts != nil {
		core.PowerPreference = opts.PowerPreference
		core.ForceFallbackAdapter = opts.ForceFallbackAdapter
		if opts.CompatibleSurface != nil {
			core.CompatibleSurface = opts.CompatibleSurface.live()
		}
	}
	id, err := i.backend.RequestAdapter(core).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	a := newAdapter(i.backend, id)
	Logger().Info("gpu: adapter selected", "name", a.Info().Name, "type", a.Info().DeviceType)
	return a, nil
}

// EnumerateAdapters returns every adapter the backend exposes.
func (i *Instance) EnumerateAdapters() []*Adapter {
	ids := i.backend.EnumerateAdapters()
	out := make([]*Adapter, len(ids))
	for n, id := range ids {
		out[n] = newAdapter(i.backend, id)
	}
	return out
}

// Release drops the instance's reference to the backend.
func (i *Instance) Release() {
	if r := recover(); r != nil {
		if !i.released {
			i.released = true
			Logger().Warn("gpu: release skipped during panic", "kind", "instance")
		}
		panic(r)
	}
	if i.released {
		return
	}
	i.released = true
	i.backend.release()
}

// Adapter is a physical GPU, or a software fallback, exposed by a backend.
type Adapter struct {
	handle[gpucore.AdapterID]
}

func newAdapter(b *sharedBackend, id gpucore.AdapterID) *Adapter {
	a := &Adapter{}
	a.init(b, id, "adapter", gpucore.Backend.AdapterDrop)
	return a
}

// RequestDevice opens a logical device and its queue.
// Failures match ErrDeviceRequest.
func (a *Adapter) RequestDevice(ctx context.Context, desc *DeviceDescriptor) (*Device, *Queue, error) {
	if desc == nil {
		desc = &DeviceDescriptor{}
	}
	dq, err := a.backend.AdapterRequestDevice(a.live(), desc).Wait(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("request device: %w", err)
	}
	d := &Device{}
	d.init(a.backend, dq.Device, "device", gpucore.Backend.DeviceDrop)
	q := &Queue{device: d, id: dq.Queue}
	Logger().Info("gpu: device created", "label", desc.Label, "backend", a.backend.Name())
	return d, q, nil
}

// Features returns the features the adapter supports.
func (a *Adapter) Features() Features { return a.backend.AdapterFeatures(a.live()) }

// Limits returns the best limits the adapter supports.
func (a *Adapter) Limits() Limits { return a.backend.AdapterLimits(a.live()) }

// Info describes the adapter.
func (a *Adapter) Info() AdapterInfo { return a.backend.AdapterInfo(a.live()) }

// SwapChainPreferredFormat returns the best format for presenting to
// surface from this adapter.
func (a *Adapter) SwapChainPreferredFormat(surface *Surface) TextureFormat {
	return a.backend.AdapterGetSwapChainPreferredFormat(a.live(), surface.live())
}

// Release drops the adapter and its backend reference.
func (a *Adapter) Release() {
	if r := recover(); r != nil {
		panic(a.unwind(r))
	}
	a.release()
}

// Surface is a presentable target created from a window. A surface has
// at most one swap chain at a time.
type Surface struct {
	handle[gpucore.SurfaceID]

	mu        sync.Mutex
	swapChain *SwapChain
}

// Release drops the surface and its current swap chain.
func (s *Surface) Release() {
	if r := recover(); r != nil {
		panic(s.unwind(r))
	}
	s.mu.Lock()
	sc := s.swapChain
	s.swapChain = nil
	s.mu.Unlock()
	if sc != nil {
		sc.release()
	}
	s.release()
}
