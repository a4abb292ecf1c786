package memory

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

type adapter struct {
	info     gputypes.AdapterInfo
	features gputypes.Features
	limits   gputypes.Limits
}

type device struct {
	adapter  *adapter
	queue    gpucore.QueueID
	features gputypes.Features
	limits   gputypes.Limits
	label    string

	// pending map requests, resolved on poll
	pending []*mapRequest
}

// === Instance ===

// RequestAdapter picks an adapter by power preference. A fallback
// request only matches CPU adapters.
func (b *Backend) RequestAdapter(opts *gpucore.RequestAdapterOptions) *gpucore.Future[gpucore.AdapterID] {
	if opts == nil {
		opts = &gpucore.RequestAdapterOptions{}
	}
	if b.Closed() {
		return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, ErrClosed)
	}
	if opts.CompatibleSurface != gpucore.InvalidID {
		if _, ok := lookup(b, b.surfaces, opts.CompatibleSurface); !ok {
			return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, gpucore.ErrNoAdapter)
		}
	}

	info, ok := pickAdapter(b.cfg.adapters, opts)
	if !ok {
		return gpucore.Resolved[gpucore.AdapterID](gpucore.InvalidID, gpucore.ErrNoAdapter)
	}
	id := b.newAdapter(info)
	b.log().Info("memory: adapter selected", "name", info.Name, "type", info.DeviceType)
	return gpucore.Resolved(id, nil)
}

func pickAdapter(infos []gputypes.AdapterInfo, opts *gpucore.RequestAdapterOptions) (gputypes.AdapterInfo, bool) {
	var candidates []gputypes.AdapterInfo
	for _, info := range infos {
		if opts.ForceFallbackAdapter && info.DeviceType != gputypes.DeviceTypeCPU {
			continue
		}
		candidates = append(candidates, info)
	}
	if len(candidates) == 0 {
		return gputypes.AdapterInfo{}, false
	}

	var want gputypes.DeviceType
	switch opts.PowerPreference {
	case gputypes.PowerPreferenceHighPerformance:
		want = gputypes.DeviceTypeDiscreteGPU
	case gputypes.PowerPreferenceLowPower:
		want = gputypes.DeviceTypeIntegratedGPU
	default:
		return candidates[0], true
	}
	for _, info := range candidates {
		if info.DeviceType == want {
			return info, true
		}
	}
	return candidates[0], true
}

func (b *Backend) newAdapter(info gputypes.AdapterInfo) gpucore.AdapterID {
	return insert(b, b.adapters, &adapter{
		info:     info,
		features: b.cfg.features,
		limits:   b.cfg.limits,
	})
}

// EnumerateAdapters returns a fresh handle for every configured adapter.
func (b *Backend) EnumerateAdapters() []gpucore.AdapterID {
	ids := make([]gpucore.AdapterID, len(b.cfg.adapters))
	for i, info := range b.cfg.adapters {
		ids[i] = b.newAdapter(info)
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
	if !a.features.ContainsAll(desc.Features) {
		return fail(ErrFeatureNotSupported)
	}
	limits := a.limits
	if desc.Limits != (gputypes.Limits{}) {
		if err := checkLimits(desc.Limits, a.limits); err != nil {
			return fail(err)
		}
		limits = desc.Limits
	}

	d := &device{adapter: a, features: desc.Features, limits: limits, label: desc.Label}
	d.queue = gpucore.QueueID(b.newID())
	id := insert(b, b.devices, d)
	b.log().Info("memory: device created", "label", desc.Label, "device", uint64(id))
	return gpucore.Resolved(gpucore.DeviceQueue{Device: id, Queue: d.queue}, nil)
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
			return fmt.Errorf("%w: %s %d > %d", ErrLimitExceeded, c.name, c.req, c.max)
		}
	}
	return nil
}

func (b *Backend) adapter(id gpucore.AdapterID) *adapter {
	if a, ok := lookup(b, b.adapters, id); ok {
		return a
	}
	return &adapter{}
}

// AdapterFeatures returns the adapter features.
func (b *Backend) AdapterFeatures(id gpucore.AdapterID) gputypes.Features {
	return b.adapter(id).features
}

// AdapterLimits returns the adapter limits.
func (b *Backend) AdapterLimits(id gpucore.AdapterID) gputypes.Limits {
	return b.adapter(id).limits
}

// AdapterInfo returns the adapter description.
func (b *Backend) AdapterInfo(id gpucore.AdapterID) gpucore.AdapterInfo {
	return b.adapter(id).info
}

// AdapterGetSwapChainPreferredFormat returns BGRA8UnormSrgb.
func (b *Backend) AdapterGetSwapChainPreferredFormat(gpucore.AdapterID, gpucore.SurfaceID) gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8UnormSrgb
}

// AdapterDrop releases an adapter handle.
func (b *Backend) AdapterDrop(id gpucore.AdapterID) {
	remove(b, "adapter", b.adapters, id)
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

// DevicePoll resolves every pending map request of the device. Work is
// executed at submit time, so both modes behave the same.
func (b *Backend) DevicePoll(id gpucore.DeviceID, _ gpucore.Maintain) {
	d, err := b.device(id)
	if err != nil {
		b.log().Warn("memory: poll of unknown device", "id", uint64(id))
		return
	}
	b.mu.Lock()
	pending := d.pending
	d.pending = nil
	b.mu.Unlock()

	for _, req := range pending {
		req.complete()
	}
}

// DeviceDrop releases a device. Pending map requests fail.
func (b *Backend) DeviceDrop(id gpucore.DeviceID) {
	d, ok := remove(b, "device", b.devices, id)
	if !ok {
		return
	}
	b.mu.Lock()
	pending := d.pending
	d.pending = nil
	b.mu.Unlock()
	for _, req := range pending {
		req.fail(gpucore.BufferMapAsyncStatusDeviceLost)
	}
}
