package gpuapi

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/backend/memory"
)

func TestDeviceProvider(t *testing.T) {
	e := newTestEnv(t)
	p := NewDeviceProvider(e.adapter, e.device, e.queue, gputypes.TextureFormatBGRA8Unorm)

	if p.Device() != gpucontext.Device(e.device) {
		t.Error("Device() does not return the wrapped device")
	}
	if p.Queue() != gpucontext.Queue(e.queue) {
		t.Error("Queue() does not return the wrapped queue")
	}
	if p.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %s, want BGRA8Unorm", p.SurfaceFormat())
	}
	info := p.AdapterInfo()
	if info.Name != memory.DefaultAdapterInfo.Name {
		t.Errorf("AdapterInfo().Name = %q, want %q", info.Name, memory.DefaultAdapterInfo.Name)
	}
	if info.Type != gpucontext.AdapterTypeSoftware {
		t.Errorf("AdapterInfo().Type = %v, want software", info.Type)
	}
}

func TestDeviceProviderWithoutAdapter(t *testing.T) {
	e := newTestEnv(t)
	p := NewDeviceProvider(nil, e.device, e.queue, gputypes.TextureFormatUndefined)

	if p.Adapter() != nil {
		t.Error("Adapter() != nil")
	}
	if got := p.AdapterInfo().Type; got != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo().Type = %v, want unknown", got)
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucontext.AdapterType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{gputypes.DeviceTypeIntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{gputypes.DeviceTypeCPU, gpucontext.AdapterTypeSoftware},
		{gputypes.DeviceTypeVirtualGPU, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := adapterType(tt.in); got != tt.want {
				t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
