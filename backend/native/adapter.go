package native

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuapi/gpucore"
)

type adapter struct {
	exposed hal.ExposedAdapter

	mu      sync.Mutex
	devices int
	dropped bool
}

// release destroys the hal adapter once it is dropped and every device
// opened from it is gone.
func (a *adapter) release(dropAdapter, dropDevice bool) {
	a.mu.Lock()
	if dropAdapter {
		a.dropped = true
	}
	if dropDevice {
		a.devices--
	}
	destroy := a.dropped && a.devices == 0
	a.mu.Unlock()
	if destroy {
		a.exposed.Adapter.Destroy()
	}
}

// deferred is a destruction waiting for a submission to complete.
type deferred struct {
	after   uint64
	destroy func()
}

type device struct {
	adapter  *adapter
	raw      hal.Device
	queue    hal.Queue
	queueID  gpucore.QueueID
	features gputypes.Features
	limits   gputypes.Limits
	label    string
	lost     atomic.Bool

	mu         sync.Mutex
	lastSubmit uint64
	pending    []*mapRequest
	deferred   []deferred
}

// retire runs destroy once every submission recorded so far has
// completed. It runs immediately when the queue is idle.
func (d *device) retire(destroy func()) {
	if d.lost.Load() {
		return
	}
	d.mu.Lock()
	after := d.lastSubmit
	if after == 0 || d.queue.PollCompleted() >= after {
		d.mu.Unlock()
		destroy()
		return
	}
	d.deferred = append(d.deferred, deferred{after: after, destroy: destroy})
	d.mu.Unlock()
}

// === Instance ===

// RequestAdapter enumerates the driver's adapters and picks one by power
// preference. A fallback request only matches CPU adapters.
func (b *Backend) RequestAdapter(opts *gpucore.RequestAdapterOptions) *gpucore.Future[gpucore.AdapterID] {
	if opts == nil {
		opts = &gpucore.RequestAdapterOptions{}
	}
	if b.Closed() {
		return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, ErrClosed)
	}

	var hint hal.Surface
	if opts.CompatibleSurface != gpucore.InvalidID {
		s, ok := lookup(b, b.surfaces, opts.CompatibleSurface)
		if !ok {
			return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, gpucore.ErrNoAdapter)
		}
		hint = s.raw
	}

	exposed := b.instance.EnumerateAdapters(hint)
	i := pickAdapter(exposed, opts)
	for j, e := range exposed {
		if j != i {
			e.Adapter.Destroy()
		}
	}
	if i < 0 {
		return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, gpucore.ErrNoAdapter)
	}

	id := insert(b, b.adapters, &adapter{exposed: exposed[i]})
	info := exposed[i].Info
	b.log().Info("native: adapter selected", "name", info.Name, "type", info.DeviceType, "driver", info.Driver)
	return gpucore.Resolved(id, nil)
}

// pickAdapter returns the index of the best match, or -1.
func pickAdapter(exposed []hal.ExposedAdapter, opts *gpucore.RequestAdapterOptions) int {
	candidates := make([]int, 0, len(exposed))
	for i, e := range exposed {
		if opts.ForceFallbackAdapter && e.Info.DeviceType != gputypes.DeviceTypeCPU {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return -1
	}

	var want gputypes.DeviceType
	switch opts.PowerPreference {
	case gputypes.PowerPreferenceHighPerformance:
		want = gputypes.DeviceTypeDiscreteGPU
	case gputypes.PowerPreferenceLowPower:
		want = gputypes.DeviceTypeIntegratedGPU
	default:
		return candidates[0]
	}
	for _, i := range candidates {
		if exposed[i].Info.DeviceType == want {
			return i
		}
	}
	return candidates[0]
}

// EnumerateAdapters returns a handle for every adapter of the driver.
func (b *Backend) EnumerateAdapters() []gpucore.AdapterID {
	if b.Closed() {
		return nil
	}
	exposed := b.instance.EnumerateAdapters(nil)
	ids := make([]gpucore.AdapterID, len(exposed))
	for i, e := range exposed {
		ids[i] = insert(b, b.adapters, &adapter{exposed: e})
	}
	return ids
}

// === Adapter ===

// AdapterRequestDevice opens a device. Requested features must be a
// subset of the adapter's and requested limits must not exceed them.
func (b *Backend) AdapterRequestDevice(adapterID gpucore.AdapterID, desc *gpucore.DeviceDescriptor) *gpucore.Future[gpucore.DeviceQueue] {
	fail := func(reason error) *gpucore.Future[gpucore.DeviceQueue] {
		return gpucore.Resolved(gpucore.DeviceQueue{}, &gpucore.RequestDeviceError{Reason: reason})
	}

	a, ok := lookup(b, b.adapters, adapterID)
	if !ok {
		return fail(fmt.Errorf("%w: adapter %d", ErrInvalidHandle, adapterID))
	}
	caps := a.exposed.Capabilities.Limits
	if !a.exposed.Features.ContainsAll(desc.Features) {
		return fail(fmt.Errorf("%w: features %#x not exposed by %q", ErrInvalidDescriptor, desc.Features, a.exposed.Info.Name))
	}
	limits := caps
	if desc.Limits != (gputypes.Limits{}) {
		if err := checkLimits(desc.Limits, caps); err != nil {
			return fail(err)
		}
		limits = desc.Limits
	}

	open, err := a.exposed.Adapter.Open(desc.Features, limits)
	if err != nil {
		return fail(fmt.Errorf("failed to open device: %w", err))
	}

	a.mu.Lock()
	a.devices++
	a.mu.Unlock()

	d := &device{
		adapter:  a,
		raw:      open.Device,
		queue:    open.Queue,
		features: desc.Features,
		limits:   limits,
		label:    desc.Label,
	}
	d.queueID = gpucore.QueueID(b.newID())
	id := insert(b, b.devices, d)
	b.mu.Lock()
	b.queues[d.queueID] = d
	b.mu.Unlock()

	b.log().Info("native: device created", "label", desc.Label, "device", uint64(id), "adapter", a.exposed.Info.Name)
	return gpucore.Resolved(gpucore.DeviceQueue{Device: id, Queue: d.queueID}, nil)
}

func checkLimits(req, max gputypes.Limits) error {
	checks := []struct {
		name     string
		req, max uint64
	}{
		{"MaxTextureDimension1D", uint64(req.MaxTextureDimension1D), uint64(max.MaxTextureDimension1D)},
		{"MaxTextureDimension2D", uint64(req.MaxTextureDimension2D), uint64(max.MaxTextureDimension2D)},
		{"MaxTextureDimension3D", uint64(req.MaxTextureDimension3D), uint64(max.MaxTextureDimension3D)},
		{"MaxBindGroups", uint64(req.MaxBindGroups), uint64(max.MaxBindGroups)},
		{"MaxBufferSize", req.MaxBufferSize, max.MaxBufferSize},
		{"MaxPushConstantSize", uint64(req.MaxPushConstantSize), uint64(max.MaxPushConstantSize)},
	}
	for _, c := range checks {
		if c.req > c.max {
			return fmt.Errorf("%w: %s %d > %d", ErrInvalidDescriptor, c.name, c.req, c.max)
		}
	}
	return nil
}

func (b *Backend) adapter(id gpucore.AdapterID) hal.ExposedAdapter {
	if a, ok := lookup(b, b.adapters, id); ok {
		return a.exposed
	}
	return hal.ExposedAdapter{}
}

// AdapterFeatures returns the adapter features.
func (b *Backend) AdapterFeatures(id gpucore.AdapterID) gputypes.Features {
	return b.adapter(id).Features
}

// AdapterLimits returns the adapter limits.
func (b *Backend) AdapterLimits(id gpucore.AdapterID) gputypes.Limits {
	return b.adapter(id).Capabilities.Limits
}

// AdapterInfo returns the adapter description.
func (b *Backend) AdapterInfo(id gpucore.AdapterID) gpucore.AdapterInfo {
	return b.adapter(id).Info
}

// preferredFormats are tried in order against the surface capabilities.
var preferredFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatRGBA8Unorm,
}

// AdapterGetSwapChainPreferredFormat returns the first sRGB format the
// surface supports, falling back to the surface's first format.
func (b *Backend) AdapterGetSwapChainPreferredFormat(adapterID gpucore.AdapterID, surfaceID gpucore.SurfaceID) gputypes.TextureFormat {
	a, ok := lookup(b, b.adapters, adapterID)
	s, sok := lookup(b, b.surfaces, surfaceID)
	if !ok || !sok {
		return gputypes.TextureFormatBGRA8Unorm
	}
	caps := a.exposed.Adapter.SurfaceCapabilities(s.raw)
	if caps == nil || len(caps.Formats) == 0 {
		return gputypes.TextureFormatBGRA8Unorm
	}
	for _, f := range preferredFormats {
		if slices.Contains(caps.Formats, f) {
			return f
		}
	}
	return caps.Formats[0]
}

// AdapterDrop releases an adapter handle. The hal adapter outlives the
// handle while devices opened from it are alive.
func (b *Backend) AdapterDrop(id gpucore.AdapterID) {
	if a, ok := remove(b, "adapter", b.adapters, id); ok {
		a.release(true, false)
	}
}

// === Device ===

func (b *Backend) device(id gpucore.DeviceID) (*device, error) {
	d, ok := lookup(b, b.devices, id)
	if !ok {
		return nil, fmt.Errorf("%w: device %d", ErrInvalidHandle, id)
	}
	return d, nil
}

// DeviceFeatures returns the features enabled on the device.
func (b *Backend) DeviceFeatures(id gpucore.DeviceID) gputypes.Features {
	d, err := b.device(id)
	if err != nil {
		return 0
	}
	return d.features
}

// DeviceLimits returns the device limits.
func (b *Backend) DeviceLimits(id gpucore.DeviceID) gputypes.Limits {
	d, err := b.device(id)
	if err != nil {
		return gputypes.Limits{}
	}
	return d.limits
}

// DevicePoll resolves map requests and runs deferred destruction for
// every completed submission. MaintainWait waits for the device to go
// idle first.
func (b *Backend) DevicePoll(id gpucore.DeviceID, maintain gpucore.Maintain) {
	d, err := b.device(id)
	if err != nil {
		b.log().Warn("native: poll of unknown device", "id", uint64(id))
		return
	}
	b.poll(d, maintain == gpucore.MaintainWait)
}

func (b *Backend) poll(d *device, wait bool) {
	if wait {
		if err := d.raw.WaitIdle(); err != nil {
			b.log().Error("native: wait idle", "device", d.label, "err", err)
		}
	}
	completed := d.queue.PollCompleted()

	d.mu.Lock()
	if wait {
		completed = max(completed, d.lastSubmit)
	}
	var ready []*mapRequest
	d.pending = slices.DeleteFunc(d.pending, func(r *mapRequest) bool {
		if r.after <= completed {
			ready = append(ready, r)
			return true
		}
		return false
	})
	var destroy []func()
	d.deferred = slices.DeleteFunc(d.deferred, func(df deferred) bool {
		if df.after <= completed {
			destroy = append(destroy, df.destroy)
			return true
		}
		return false
	})
	d.mu.Unlock()

	for _, fn := range destroy {
		fn()
	}
	for _, r := range ready {
		r.complete(d)
	}
	if len(ready)+len(destroy) > 0 {
		b.log().Debug("native: poll", "device", d.label, "completed", completed, "maps", len(ready), "destroyed", len(destroy))
	}
}

// DeviceDrop waits for the device, fails its pending map requests and
// destroys it.
func (b *Backend) DeviceDrop(id gpucore.DeviceID) {
	d, ok := remove(b, "device", b.devices, id)
	if !ok {
		return
	}
	b.destroyDevice(d)
}

func (b *Backend) destroyDevice(d *device) {
	b.mu.Lock()
	delete(b.queues, d.queueID)
	surfaces := make([]*surface, 0, len(b.surfaces))
	for _, s := range b.surfaces {
		surfaces = append(surfaces, s)
	}
	b.mu.Unlock()

	if err := d.raw.WaitIdle(); err != nil {
		b.log().Error("native: wait idle", "device", d.label, "err", err)
	}
	for _, s := range surfaces {
		s.mu.Lock()
		if s.device == d {
			s.unconfigure()
		}
		s.mu.Unlock()
	}
	d.mu.Lock()
	pending, deferredDestroy := d.pending, d.deferred
	d.pending, d.deferred = nil, nil
	d.mu.Unlock()

	for _, df := range deferredDestroy {
		df.destroy()
	}
	for _, r := range pending {
		r.fail(gpucore.BufferMapAsyncStatusDeviceLost)
	}
	d.lost.Store(true)
	d.raw.Destroy()
	d.adapter.release(false, true)
	b.log().Info("native: device destroyed", "label", d.label)
}
