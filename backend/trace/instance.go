package trace

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Name returns the name of the traced backend.
func (b *Backend) Name() string { return b.inner.Name() }

func (b *Backend) CreateSurface(target any) (gpucore.SurfaceID, error) {
	sid, err := b.inner.CreateSurface(target)
	b.record("CreateSurface", slog.String("target", typeName(target)), id("surface", sid), errAttr(err))
	return sid, err
}

func (b *Backend) SurfaceDrop(surface gpucore.SurfaceID) {
	b.record("SurfaceDrop", id("surface", surface))
	b.inner.SurfaceDrop(surface)
}

func (b *Backend) RequestAdapter(opts *gpucore.RequestAdapterOptions) *gpucore.Future[gpucore.AdapterID] {
	var attrs []slog.Attr
	if opts != nil {
		attrs = append(attrs,
			slog.String("power_preference", opts.PowerPreference.String()),
			id("compatible_surface", opts.CompatibleSurface),
			slog.Bool("force_fallback", opts.ForceFallbackAdapter),
		)
	}
	b.record("RequestAdapter", attrs...)
	f := b.inner.RequestAdapter(opts)
	watch(b, "RequestAdapter", f, func(a gpucore.AdapterID) slog.Attr { return id("adapter", a) })
	return f
}

func (b *Backend) EnumerateAdapters() []gpucore.AdapterID {
	adapters := b.inner.EnumerateAdapters()
	b.record("EnumerateAdapters", ids("adapters", adapters))
	return adapters
}

// Close closes the traced backend. Pending futures are no longer traced.
func (b *Backend) Close() {
	b.record("Close")
	b.closeOnce.Do(func() { close(b.done) })
	b.inner.Close()
}

func (b *Backend) AdapterRequestDevice(adapter gpucore.AdapterID, desc *gpucore.DeviceDescriptor) *gpucore.Future[gpucore.DeviceQueue] {
	attrs := []slog.Attr{id("adapter", adapter)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), slog.Uint64("features", uint64(desc.Features)))
	}
	b.record("AdapterRequestDevice", attrs...)
	f := b.inner.AdapterRequestDevice(adapter, desc)
	watch(b, "AdapterRequestDevice", f, func(dq gpucore.DeviceQueue) slog.Attr {
		return slog.Group("device_queue", id("device", dq.Device), id("queue", dq.Queue))
	})
	return f
}

func (b *Backend) AdapterFeatures(adapter gpucore.AdapterID) gputypes.Features {
	f := b.inner.AdapterFeatures(adapter)
	b.record("AdapterFeatures", id("adapter", adapter), slog.Uint64("features", uint64(f)))
	return f
}

func (b *Backend) AdapterLimits(adapter gpucore.AdapterID) gputypes.Limits {
	b.record("AdapterLimits", id("adapter", adapter))
	return b.inner.AdapterLimits(adapter)
}

func (b *Backend) AdapterInfo(adapter gpucore.AdapterID) gpucore.AdapterInfo {
	info := b.inner.AdapterInfo(adapter)
	b.record("AdapterInfo", id("adapter", adapter), slog.String("name", info.Name), slog.String("backend", info.Backend.String()))
	return info
}

func (b *Backend) AdapterGetSwapChainPreferredFormat(adapter gpucore.AdapterID, surface gpucore.SurfaceID) gputypes.TextureFormat {
	f := b.inner.AdapterGetSwapChainPreferredFormat(adapter, surface)
	b.record("AdapterGetSwapChainPreferredFormat", id("adapter", adapter), id("surface", surface), slog.String("format", f.String()))
	return f
}

func (b *Backend) AdapterDrop(adapter gpucore.AdapterID) {
	b.record("AdapterDrop", id("adapter", adapter))
	b.inner.AdapterDrop(adapter)
}

func (b *Backend) DeviceFeatures(device gpucore.DeviceID) gputypes.Features {
	f := b.inner.DeviceFeatures(device)
	b.record("DeviceFeatures", id("device", device), slog.Uint64("features", uint64(f)))
	return f
}

func (b *Backend) DeviceLimits(device gpucore.DeviceID) gputypes.Limits {
	b.record("DeviceLimits", id("device", device))
	return b.inner.DeviceLimits(device)
}

func (b *Backend) DevicePoll(device gpucore.DeviceID, maintain gpucore.Maintain) {
	b.record("DevicePoll", id("device", device), slog.String("maintain", maintain.String()))
	b.inner.DevicePoll(device, maintain)
}

func (b *Backend) DeviceDrop(device gpucore.DeviceID) {
	b.record("DeviceDrop", id("device", device))
	b.inner.DeviceDrop(device)
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
