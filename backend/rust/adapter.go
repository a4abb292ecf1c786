//go:build rust

package rust

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// device is a wgpu-native device and its queue.
type device struct {
	adapter *wgpu.Adapter
	raw     *wgpu.Device
	queue   *wgpu.Queue
	queueID gpucore.QueueID
	label   string

	features gputypes.Features
	limits   gputypes.Limits

	// pending holds buffers with an unresolved map request.
	mu      sync.Mutex
	pending map[*buffer]struct{}
}

var adapterTypes = map[wgpu.AdapterType]gputypes.DeviceType{
	wgpu.AdapterTypeDiscreteGPU:   gputypes.DeviceTypeDiscreteGPU,
	wgpu.AdapterTypeIntegratedGPU: gputypes.DeviceTypeIntegratedGPU,
	wgpu.AdapterTypeCPU:           gputypes.DeviceTypeCPU,
}

var backendTypes = map[wgpu.BackendType]gputypes.Backend{
	wgpu.BackendTypeVulkan:   gputypes.BackendVulkan,
	wgpu.BackendTypeMetal:    gputypes.BackendMetal,
	wgpu.BackendTypeD3D12:    gputypes.BackendDX12,
	wgpu.BackendTypeOpenGL:   gputypes.BackendGL,
	wgpu.BackendTypeOpenGLES: gputypes.BackendGL,
}

// RequestAdapter asks wgpu-native for an adapter. wgpu-native answers
// synchronously, so the future is always resolved.
func (b *Backend) RequestAdapter(opts *gpucore.RequestAdapterOptions) *gpucore.Future[gpucore.AdapterID] {
	if b.isClosed() {
		return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, ErrClosed)
	}
	var o wgpu.RequestAdapterOptions
	if opts != nil {
		o.PowerPreference = conv(powerPreferences, opts.PowerPreference)
		o.ForceFallbackAdapter = opts.ForceFallbackAdapter
		if opts.CompatibleSurface != gpucore.InvalidID {
			s, ok := lookup(b, b.surfaces, opts.CompatibleSurface)
			if !ok {
				return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID,
					errors.Wrapf(gpucore.ErrNoAdapter, "unknown surface %d", opts.CompatibleSurface))
			}
			o.CompatibleSurface = s.raw
		}
	}

	a, err := b.instance.RequestAdapter(&o)
	if err != nil {
		return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, errors.Mark(errors.Wrap(err, "rust: request adapter"), gpucore.ErrNoAdapter))
	}
	id := insert(b, b.adapters, a)
	b.log().Debug("rust: adapter acquired", "id", uint64(id), "name", a.GetInfo().Name)
	return gpucore.Resolved(id, nil)
}

// EnumerateAdapters lists every adapter wgpu-native exposes.
func (b *Backend) EnumerateAdapters() []gpucore.AdapterID {
	if b.isClosed() {
		return nil
	}
	raw := b.instance.EnumerateAdapters(nil)
	ids := make([]gpucore.AdapterID, 0, len(raw))
	for _, a := range raw {
		ids = append(ids, insert(b, b.adapters, a))
	}
	return ids
}

// AdapterRequestDevice opens a device with the requested features and
// limits.
func (b *Backend) AdapterRequestDevice(id gpucore.AdapterID, desc *gpucore.DeviceDescriptor) *gpucore.Future[gpucore.DeviceQueue] {
	fail := func(err error) *gpucore.Future[gpucore.DeviceQueue] {
		return gpucore.Resolved(gpucore.DeviceQueue{}, error(&gpucore.RequestDeviceError{Reason: err}))
	}
	a, ok := lookup(b, b.adapters, id)
	if !ok {
		return fail(errors.Wrapf(ErrInvalidHandle, "adapter %d", id))
	}
	if desc == nil {
		desc = &gpucore.DeviceDescriptor{}
	}
	limits := desc.Limits
	if limits == (gputypes.Limits{}) {
		limits = gputypes.DefaultLimits()
	}

	raw, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            desc.Label,
		RequiredFeatures: wgpuFeatures(desc.Features),
		RequiredLimits:   &wgpu.RequiredLimits{Limits: wgpuLimits(limits)},
	})
	if err != nil {
		return fail(err)
	}

	d := &device{
		adapter:  a,
		raw:      raw,
		queue:    raw.GetQueue(),
		label:    desc.Label,
		features: fromFeatures(raw.EnumerateFeatures()),
		limits:   fromLimits(raw.GetLimits().Limits),
		pending:  make(map[*buffer]struct{}),
	}
	d.queueID = gpucore.QueueID(b.newID())
	devID := gpucore.DeviceID(b.newID())
	b.mu.Lock()
	b.devices[devID] = d
	b.queues[d.queueID] = d
	b.mu.Unlock()

	b.log().Debug("rust: device created", "id", uint64(devID), "label", desc.Label)
	return gpucore.Resolved(gpucore.DeviceQueue{Device: devID, Queue: d.queueID}, nil)
}

func (b *Backend) AdapterFeatures(id gpucore.AdapterID) gputypes.Features {
	a, ok := lookup(b, b.adapters, id)
	if !ok {
		return 0
	}
	return fromFeatures(a.EnumerateFeatures())
}

func (b *Backend) AdapterLimits(id gpucore.AdapterID) gputypes.Limits {
	a, ok := lookup(b, b.adapters, id)
	if !ok {
		return gputypes.Limits{}
	}
	return fromLimits(a.GetLimits().Limits)
}

func (b *Backend) AdapterInfo(id gpucore.AdapterID) gpucore.AdapterInfo {
	a, ok := lookup(b, b.adapters, id)
	if !ok {
		return gpucore.AdapterInfo{}
	}
	info := a.GetInfo()
	return gpucore.AdapterInfo{
		Name:       info.Name,
		VendorID:   info.VendorId,
		DeviceID:   info.DeviceId,
		DeviceType: conv(adapterTypes, info.AdapterType),
		DriverInfo: info.DriverDescription,
		Backend:    conv(backendTypes, info.BackendType),
	}
}

// AdapterGetSwapChainPreferredFormat prefers an sRGB format among the
// surface's formats, falling back to the first one.
func (b *Backend) AdapterGetSwapChainPreferredFormat(id gpucore.AdapterID, sid gpucore.SurfaceID) gputypes.TextureFormat {
	a, ok := lookup(b, b.adapters, id)
	s, sok := lookup(b, b.surfaces, sid)
	if !ok || !sok {
		return gputypes.TextureFormatUndefined
	}
	caps := s.raw.GetCapabilities(a)
	for _, f := range caps.Formats {
		if f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb {
			return textureFormatFrom[f]
		}
	}
	if len(caps.Formats) == 0 {
		return gputypes.TextureFormatUndefined
	}
	return textureFormatFrom[caps.Formats[0]]
}

func (b *Backend) AdapterDrop(id gpucore.AdapterID) {
	if a, ok := remove(b, "adapter", b.adapters, id); ok {
		a.Release()
	}
}

func (b *Backend) device(id gpucore.DeviceID) (*device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	d, ok := b.devices[id]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "device %d", id)
	}
	return d, nil
}

func (b *Backend) DeviceFeatures(id gpucore.DeviceID) gputypes.Features {
	d, err := b.device(id)
	if err != nil {
		return 0
	}
	return d.features
}

func (b *Backend) DeviceLimits(id gpucore.DeviceID) gputypes.Limits {
	d, err := b.device(id)
	if err != nil {
		return gputypes.Limits{}
	}
	return d.limits
}

// DevicePoll lets wgpu-native run map callbacks. MaintainWait blocks
// until the queue is idle.
func (b *Backend) DevicePoll(id gpucore.DeviceID, maintain gpucore.Maintain) {
	d, err := b.device(id)
	if err != nil {
		return
	}
	d.raw.Poll(maintain == gpucore.MaintainWait, nil)
}

// DeviceDrop fails pending maps with DeviceLost, unconfigures surfaces
// presenting from the device and releases it.
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

	for _, s := range surfaces {
		s.mu.Lock()
		if s.device == d {
			s.unconfigure()
		}
		s.mu.Unlock()
	}

	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[*buffer]struct{})
	d.mu.Unlock()
	for buf := range pending {
		buf.resolve(gpucore.BufferMapAsyncStatusDeviceLost)
	}

	d.queue.Release()
	d.raw.Release()
	b.log().Debug("rust: device destroyed", "label", d.label)
}
