package gpucore

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusStrings(t *testing.T) {
	tests := []struct {
		name string
		got  fmt.Stringer
		want string
	}{
		{"map read", MapModeRead, "Read"},
		{"map write", MapModeWrite, "Write"},
		{"map unknown", MapMode(9), "Unknown(9)"},
		{"poll", MaintainPoll, "Poll"},
		{"wait", MaintainWait, "Wait"},
		{"good", SwapChainStatusGood, "Good"},
		{"suboptimal", SwapChainStatusSuboptimal, "Suboptimal"},
		{"outdated", SwapChainStatusOutdated, "Outdated"},
		{"lost", SwapChainStatusLost, "Lost"},
		{"swap unknown", SwapChainStatus(42), "Unknown(42)"},
		{"map success", BufferMapAsyncStatusSuccess, "Success"},
		{"map pending", BufferMapAsyncStatusMappingAlreadyPending, "MappingAlreadyPending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := tt.got.String(); s != tt.want {
				t.Errorf("String() = %q, want %q", s, tt.want)
			}
		})
	}
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("out of device memory")

	t.Run("request device", func(t *testing.T) {
		err := error(&RequestDeviceError{Reason: cause})
		if !errors.Is(err, ErrDeviceRequest) {
			t.Error("RequestDeviceError should match ErrDeviceRequest")
		}
		if !errors.Is(err, cause) {
			t.Error("RequestDeviceError should unwrap to its reason")
		}
		bare := &RequestDeviceError{}
		if bare.Error() != ErrDeviceRequest.Error() {
			t.Errorf("Error() = %q", bare.Error())
		}
	})

	t.Run("buffer async", func(t *testing.T) {
		err := error(&BufferAsyncError{Status: BufferMapAsyncStatusDeviceLost})
		if !errors.Is(err, ErrBufferAsync) {
			t.Error("BufferAsyncError should match ErrBufferAsync")
		}
		var bae *BufferAsyncError
		if !errors.As(err, &bae) || bae.Status != BufferMapAsyncStatusDeviceLost {
			t.Errorf("errors.As = %v", bae)
		}
	})
}

func TestShaderSourceIsWGSL(t *testing.T) {
	if !(ShaderSource{WGSL: "@compute fn main() {}"}).IsWGSL() {
		t.Error("WGSL source not detected")
	}
	if (ShaderSource{SPIRV: []uint32{0x07230203}}).IsWGSL() {
		t.Error("SPIR-V source reported as WGSL")
	}
}
