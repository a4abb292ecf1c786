package gpuapi

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Compile-time checks.
var (
	_ gpucontext.Device         = (*Device)(nil)
	_ gpucontext.Queue          = (*Queue)(nil)
	_ gpucontext.Adapter        = (*Adapter)(nil)
	_ gpucontext.Surface        = (*Surface)(nil)
	_ gpucontext.DeviceProvider = (*DeviceProvider)(nil)
)

// DeviceProvider exposes an adapter, device and queue to packages that
// consume gpucontext.DeviceProvider.
type DeviceProvider struct {
	adapter *Adapter
	device  *Device
	queue   *Queue
	format  gputypes.TextureFormat
}

// NewDeviceProvider bundles an opened device. format is the surface
// format of the attached swap chain, or TextureFormatUndefined when
// rendering headless.
func NewDeviceProvider(adapter *Adapter, device *Device, queue *Queue, format gputypes.TextureFormat) *DeviceProvider {
	return &DeviceProvider{adapter: adapter, device: device, queue: queue, format: format}
}

// Device returns the *Device.
func (p *DeviceProvider) Device() gpucontext.Device { return p.device }

// Queue returns the *Queue.
func (p *DeviceProvider) Queue() gpucontext.Queue { return p.queue }

// SurfaceFormat returns the format passed to NewDeviceProvider.
func (p *DeviceProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }

// Adapter returns the *Adapter, or nil.
func (p *DeviceProvider) Adapter() gpucontext.Adapter {
	if p.adapter == nil {
		return nil
	}
	return p.adapter
}

// AdapterInfo reports the adapter name and class.
func (p *DeviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	if p.adapter == nil || p.adapter.Released() {
		return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
	}
	info := p.adapter.Info()
	return gpucontext.AdapterInfo{Name: info.Name, Type: adapterType(info.DeviceType)}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
