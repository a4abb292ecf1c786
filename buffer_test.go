package gpuapi

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
)

func TestCreateBufferInitRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	buf, err := e.device.CreateBufferInit(&BufferInitDescriptor{
		Label:    "init",
		Contents: []byte{1, 2, 3, 4, 5, 6},
		Usage:    gputypes.BufferUsageMapRead,
	})
	if err != nil {
		t.Fatalf("CreateBufferInit() error = %v", err)
	}
	defer buf.Release()

	if buf.Size() != 8 {
		t.Errorf("Size() = %d, want 8 (padded)", buf.Size())
	}
	want := []byte{1, 2, 3, 4, 5, 6, 0, 0}
	if got := e.mapRead(t, buf); !bytes.Equal(got, want) {
		t.Errorf("contents = %v, want %v", got, want)
	}
}

// mappedBuffer returns a 256-byte MapRead buffer mapped in full.
func mappedBuffer(t *testing.T, e *testEnv) *Buffer {
	t.Helper()
	buf := e.buffer(t, 256, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	f := buf.Slice(Full()).MapAsync(MapModeRead)
	e.device.Poll(true)
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("MapAsync() error = %v", err)
	}
	return buf
}

func TestMappedRangeOverlap(t *testing.T) {
	e := newTestEnv(t)
	buf := mappedBuffer(t, e)

	first := buf.Slice(Span(0, 64)).GetMappedRange()
	mustPanic(t, ErrMapOverlap, func() {
		buf.Slice(Span(32, 96)).GetMappedRange()
	})

	first.Release()
	second := buf.Slice(Span(32, 96)).GetMappedRange()
	if got := len(second.Bytes()); got != 64 {
		t.Errorf("len(Bytes()) = %d, want 64", got)
	}

	// Disjoint views may be open together.
	third := buf.Slice(Span(96, 128)).GetMappedRange()
	third.Release()
	second.Release()
	buf.Unmap()
	buf.Release()
}

func TestMappingPanics(t *testing.T) {
	tests := []struct {
		name string
		want error
		run  func(t *testing.T, e *testEnv)
	}{
		{"unmap with open view", ErrMapViewsOpen, func(t *testing.T, e *testEnv) {
			buf := mappedBuffer(t, e)
			buf.Slice(Span(0, 16)).GetMappedRange()
			buf.Unmap()
		}},
		{"release with open view", ErrMapViewsOpen, func(t *testing.T, e *testEnv) {
			buf := mappedBuffer(t, e)
			buf.Slice(Span(0, 16)).GetMappedRange()
			buf.Release()
		}},
		{"map twice", ErrMapAlreadyMapped, func(t *testing.T, e *testEnv) {
			buf := mappedBuffer(t, e)
			buf.Slice(Full()).MapAsync(MapModeRead)
		}},
		{"view outside mapping", ErrMapOutOfBounds, func(t *testing.T, e *testEnv) {
			buf := e.buffer(t, 256, gputypes.BufferUsageMapRead)
			buf.Slice(Span(0, 128)).MapAsync(MapModeRead)
			e.device.Poll(true)
			buf.Slice(Span(64, 192)).GetMappedRange()
		}},
		{"map past end", ErrMapOutOfBounds, func(t *testing.T, e *testEnv) {
			buf := e.buffer(t, 256, gputypes.BufferUsageMapRead)
			buf.Slice(Span(0, 512)).MapAsync(MapModeRead)
		}},
		{"read write-only mapping", ErrWriteOnlyMapping, func(t *testing.T, e *testEnv) {
			buf, err := e.device.CreateBuffer(&BufferDescriptor{
				Size:             16,
				Usage:            gputypes.BufferUsageMapWrite,
				MappedAtCreation: true,
			})
			if err != nil {
				t.Fatalf("CreateBuffer() error = %v", err)
			}
			view := buf.Slice(Full()).GetMappedRangeMut()
			view.Release()
			view.Release()
			buf.Slice(Full()).GetMappedRangeMut().ReadBytes()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			mustPanic(t, tt.want, func() { tt.run(t, e) })
		})
	}
}

func TestMappingPanicLeavesBufferUsable(t *testing.T) {
	e := newTestEnv(t)
	buf := mappedBuffer(t, e)

	view := buf.Slice(Span(0, 16)).GetMappedRange()
	mustPanic(t, ErrMapViewsOpen, buf.Unmap)

	// The lock taken by the failed Unmap must have been released.
	view.Release()
	buf.Unmap()
	buf.Release()
}

func TestMapAsyncFailure(t *testing.T) {
	e := newTestEnv(t)
	buf := e.buffer(t, 64, gputypes.BufferUsageCopyDst)
	defer buf.Release()

	f := buf.Slice(Full()).MapAsync(MapModeRead)
	e.device.Poll(true)
	if _, err := f.Wait(context.Background()); !errors.Is(err, ErrBufferAsync) {
		t.Fatalf("MapAsync() error = %v, want ErrBufferAsync", err)
	}

	// The failed mapping stays recorded until Unmap.
	buf.Unmap()
}

func TestEmptyMappingIsOutstanding(t *testing.T) {
	e := newTestEnv(t)
	buf := e.buffer(t, 16, gputypes.BufferUsageMapRead)
	defer buf.Release()

	f := buf.Slice(From(16)).MapAsync(MapModeRead)
	e.device.Poll(true)
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("MapAsync() error = %v", err)
	}
	mustPanic(t, ErrMapAlreadyMapped, func() { buf.Slice(Full()).MapAsync(MapModeRead) })

	buf.Unmap()
	f = buf.Slice(Full()).MapAsync(MapModeRead)
	e.device.Poll(true)
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("MapAsync() after Unmap error = %v", err)
	}
	buf.Unmap()
}

func TestWriteMappingVisibleAfterCopy(t *testing.T) {
	e := newTestEnv(t)
	src := e.buffer(t, 16, gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc)
	dst := e.buffer(t, 16, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	defer src.Release()
	defer dst.Release()

	f := src.Slice(Full()).MapAsync(MapModeWrite)
	e.device.Poll(true)
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("MapAsync(write) error = %v", err)
	}
	view := src.Slice(Full()).GetMappedRangeMut()
	for i := range view.Bytes() {
		view.Bytes()[i] = byte(i * 3)
	}
	view.Release()
	src.Unmap()

	enc := e.encoder(t)
	enc.CopyBufferToBuffer(src, 0, dst, 0, 16)
	e.submit(t, enc)

	got := e.mapRead(t, dst)
	for i, v := range got {
		if v != byte(i*3) {
			t.Fatalf("byte %d = %d, want %d", i, v, i*3)
		}
	}
}
