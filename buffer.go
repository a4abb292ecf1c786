package gpuapi

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
	"github.com/gogpu/gpuapi/internal/mapping"
)

// Buffer is a GPU buffer.
//
// A Buffer may be shared between goroutines. Its mapping bookkeeping is
// guarded by a mutex, but only one mapping may be outstanding at a time.
type Buffer struct {
	handle[gpucore.BufferID]

	size  uint64
	usage gputypes.BufferUsage

	mu     sync.Mutex
	mapCtx *mapping.MapContext
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Slice returns a view of the bytes selected by r. Nothing is validated
// until the slice is mapped.
func (b *Buffer) Slice(r Range) BufferSlice {
	offset, size, hasSize := RangeToOffsetSize(r)
	return BufferSlice{buffer: b, offset: offset, size: size, hasSize: hasSize}
}

// Unmap ends the outstanding mapping. It panics if any mapped view is
// still open.
func (b *Buffer) Unmap() {
	id := b.live()
	b.withMapContext((*mapping.MapContext).Reset)
	b.backend.BufferUnmap(id)
}

// withMapContext runs fn under the buffer lock. fn may panic.
func (b *Buffer) withMapContext(fn func(c *mapping.MapContext)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.mapCtx)
}

// Release drops the buffer. It panics if mapped views are still open.
func (b *Buffer) Release() {
	if r := recover(); r != nil {
		panic(b.unwind(r))
	}
	if b.Released() {
		return
	}
	b.mu.Lock()
	open := len(b.mapCtx.OpenRanges())
	b.mu.Unlock()
	if open != 0 {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(mapping.ErrViewsOpen, "release buffer with %d view(s)", open)))
	}
	b.release()
}

// BufferSlice is a byte range of a buffer.
type BufferSlice struct {
	buffer  *Buffer
	offset  uint64
	size    uint64
	hasSize bool
}

// Buffer returns the sliced buffer.
func (s BufferSlice) Buffer() *Buffer { return s.buffer }

// Offset returns the first byte of the slice.
func (s BufferSlice) Offset() uint64 { return s.offset }

func (s BufferSlice) end() uint64 {
	if s.hasSize {
		return s.offset + s.size
	}
	return s.buffer.size
}

// MapAsync requests host access to the slice. The future resolves once
// the device has been polled past any work using the buffer; the range
// can then be read with GetMappedRange. It panics if the buffer already
// has an outstanding mapping.
//
// On failure the mapping stays recorded; call Unmap before retrying.
func (s BufferSlice) MapAsync(mode MapMode) *gpucore.Future[struct{}] {
	b := s.buffer
	id := b.live()
	end := s.end()

	b.withMapContext(func(c *mapping.MapContext) { c.SetInitial(s.offset, end) })

	return b.backend.BufferMapAsync(id, mode, s.offset, end-s.offset)
}

// GetMappedRange returns a read view of a mapped slice. It panics if the
// slice is outside the mapping or overlaps an open view.
func (s BufferSlice) GetMappedRange() *BufferView {
	return &BufferView{mappedView: s.open()}
}

// GetMappedRangeMut returns a writable view of a mapped slice.
func (s BufferSlice) GetMappedRangeMut() *BufferViewMut {
	return &BufferViewMut{
		mappedView: s.open(),
		readable:   s.buffer.usage.Contains(gputypes.BufferUsageMapRead),
	}
}

func (s BufferSlice) open() *mappedView {
	b := s.buffer
	id := b.live()

	var end uint64
	b.withMapContext(func(c *mapping.MapContext) { end = c.Add(s.offset, s.size, s.hasSize) })

	data := b.backend.BufferGetMappedRange(id, s.offset, end-s.offset)
	return &mappedView{slice: s, data: data}
}

// mappedView is an open sub-range of a mapping.
type mappedView struct {
	slice  BufferSlice
	data   []byte
	closed atomic.Bool
}

// close removes the view from the buffer's map context. It runs even
// while a panic unwinds: the bookkeeping is local and never reaches the
// backend.
func (v *mappedView) close() {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}
	s := v.slice
	s.buffer.withMapContext(func(c *mapping.MapContext) { c.Remove(s.offset, s.size, s.hasSize) })
}

// BufferView is a read-only view of mapped buffer memory.
type BufferView struct {
	*mappedView
}

// Bytes returns the mapped memory. It must not be used after Release.
func (v *BufferView) Bytes() []byte { return v.data }

// Release closes the view.
func (v *BufferView) Release() { v.close() }

// BufferViewMut is a writable view of mapped buffer memory.
type BufferViewMut struct {
	*mappedView
	readable bool
}

// Bytes returns the mapped memory for writing. It must not be used after
// Release.
func (v *BufferViewMut) Bytes() []byte { return v.data }

// ReadBytes returns the mapped memory for reading. It panics if the buffer
// was not created with MapRead usage, since the contents of a write-only
// mapping are undefined.
func (v *BufferViewMut) ReadBytes() []byte {
	if !v.readable {
		panic(errors.WithAssertionFailure(ErrWriteOnlyMapping))
	}
	return v.data
}

// Release closes the view.
func (v *BufferViewMut) Release() { v.close() }
