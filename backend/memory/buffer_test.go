package memory

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func TestCreateBufferValidation(t *testing.T) {
	tests := []struct {
		name    string
		desc    gpucore.BufferDescriptor
		wantErr error
	}{
		{"ok", gpucore.BufferDescriptor{Size: 64, Usage: gputypes.BufferUsageVertex}, nil},
		{"no usage", gpucore.BufferDescriptor{Size: 64}, ErrInvalidDescriptor},
		{"read and write", gpucore.BufferDescriptor{Size: 64, Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite}, ErrInvalidDescriptor},
		{"mapped unaligned", gpucore.BufferDescriptor{Size: 6, Usage: gputypes.BufferUsageCopySrc, MappedAtCreation: true}, ErrInvalidDescriptor},
		{"too large", gpucore.BufferDescriptor{Size: 1 << 40, Usage: gputypes.BufferUsageStorage}, ErrLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			_, err := d.b.DeviceCreateBuffer(d.device, &tt.desc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeviceCreateBuffer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMapAsyncResolvesOnPoll(t *testing.T) {
	d := newTestDevice(t)
	buf := d.buffer(t, 64, gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc)

	f := d.b.BufferMapAsync(buf, gpucore.MapModeWrite, 0, 64)
	if f.Ready() {
		t.Fatal("map future resolved before poll")
	}
	d.b.DevicePoll(d.device, gpucore.MaintainPoll)
	if _, ok, err := f.Result(); !ok || err != nil {
		t.Fatalf("map result = %v, %v", ok, err)
	}

	copy(d.b.BufferGetMappedRange(buf, 8, 4), []byte{1, 2, 3, 4})
	d.b.BufferUnmap(buf)

	got, err := d.b.buffers[buf].read(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("buffer contents = %v", got)
	}
}

func TestMapAsyncStatus(t *testing.T) {
	tests := []struct {
		name   string
		usage  gputypes.BufferUsage
		mode   gpucore.MapMode
		offset uint64
		size   uint64
		before func(d *testDevice, buf gpucore.BufferID)
		after  func(d *testDevice, buf gpucore.BufferID)
		want   gpucore.BufferMapAsyncStatus
	}{
		{
			name: "wrong usage", usage: gputypes.BufferUsageMapRead, mode: gpucore.MapModeWrite, size: 16,
			want: gpucore.BufferMapAsyncStatusValidationError,
		},
		{
			name: "unaligned offset", usage: gputypes.BufferUsageMapRead, offset: 4, size: 8,
			want: gpucore.BufferMapAsyncStatusOffsetOutOfRange,
		},
		{
			name: "size past end", usage: gputypes.BufferUsageMapRead, offset: 8, size: 64,
			want: gpucore.BufferMapAsyncStatusSizeOutOfRange,
		},
		{
			name: "already pending", usage: gputypes.BufferUsageMapRead, size: 16,
			before: func(d *testDevice, buf gpucore.BufferID) { d.b.BufferMapAsync(buf, gpucore.MapModeRead, 0, 16) },
			want:   gpucore.BufferMapAsyncStatusMappingAlreadyPending,
		},
		{
			name: "unmapped before poll", usage: gputypes.BufferUsageMapRead, size: 16,
			after: func(d *testDevice, buf gpucore.BufferID) { d.b.BufferUnmap(buf) },
			want:  gpucore.BufferMapAsyncStatusUnmappedBeforeCallback,
		},
		{
			name: "dropped before poll", usage: gputypes.BufferUsageMapRead, size: 16,
			after: func(d *testDevice, buf gpucore.BufferID) { d.b.BufferDrop(buf) },
			want:  gpucore.BufferMapAsyncStatusDestroyedBeforeCallback,
		},
		{
			name: "device dropped", usage: gputypes.BufferUsageMapRead, size: 16,
			after: func(d *testDevice, _ gpucore.BufferID) { d.b.DeviceDrop(d.device) },
			want:  gpucore.BufferMapAsyncStatusDeviceLost,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			buf := d.buffer(t, 64, tt.usage)
			if tt.before != nil {
				tt.before(d, buf)
			}
			f := d.b.BufferMapAsync(buf, tt.mode, tt.offset, tt.size)
			if tt.after != nil {
				tt.after(d, buf)
			}
			d.b.DevicePoll(d.device, gpucore.MaintainWait)

			_, ok, err := f.Result()
			if !ok {
				t.Fatal("future not resolved")
			}
			var aerr *gpucore.BufferAsyncError
			if !errors.As(err, &aerr) {
				t.Fatalf("error = %v, want *BufferAsyncError", err)
			}
			if aerr.Status != tt.want {
				t.Errorf("Status = %s, want %s", aerr.Status, tt.want)
			}
		})
	}
}

func TestGetMappedRangePanics(t *testing.T) {
	d := newTestDevice(t)
	buf := d.buffer(t, 64, gputypes.BufferUsageMapRead)

	defer func() {
		if recover() == nil {
			t.Error("BufferGetMappedRange() on unmapped buffer did not panic")
		}
	}()
	d.b.BufferGetMappedRange(buf, 0, 16)
}

func TestMappedAtCreation(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.b.DeviceCreateBuffer(d.device, &gpucore.BufferDescriptor{
		Size: 16, Usage: gputypes.BufferUsageCopySrc, MappedAtCreation: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	copy(d.b.BufferGetMappedRange(buf, 0, 16), "0123456789abcdef")
	d.b.BufferUnmap(buf)

	got, err := d.b.buffers[buf].read(0, 16)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "0123456789abcdef" {
		t.Errorf("contents = %q", got)
	}
}
