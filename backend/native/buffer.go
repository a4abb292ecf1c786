package native

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuapi/gpucore"
)

// Buffers must be mapped at multiples of these.
const (
	mapOffsetAlignment = 8
	mapSizeAlignment   = 4
)

type mapState int

const (
	unmapped mapState = iota
	mapPending
	mapped
)

type buffer struct {
	device *device
	raw    hal.Buffer
	label  string
	size   uint64
	usage  gputypes.BufferUsage

	mu        sync.Mutex
	state     mapState
	mapOffset uint64
	mapSize   uint64
	mapping   []byte
	pending   *mapRequest
}

// mapRequest is an outstanding BufferMapAsync call. It completes on the
// first poll that sees submission after done.
type mapRequest struct {
	buf    *buffer
	after  uint64
	future *gpucore.Future[struct{}]
}

// complete maps the buffer and resolves the future, unless the request
// was cancelled by an unmap or drop in the meantime.
func (r *mapRequest) complete(d *device) {
	buf := r.buf
	buf.mu.Lock()
	if buf.pending != r {
		buf.mu.Unlock()
		return
	}
	buf.pending = nil
	mapping, err := mapRange(d.raw, buf.raw, buf.mapOffset, buf.mapSize)
	if err != nil {
		buf.state = unmapped
		buf.mu.Unlock()
		r.future.Resolve(struct{}{}, errors.WithSecondaryError(
			&gpucore.BufferAsyncError{Status: gpucore.BufferMapAsyncStatusUnknown}, err))
		return
	}
	buf.state = mapped
	buf.mapping = mapping
	buf.mu.Unlock()
	r.future.Resolve(struct{}{}, nil)
}

func (r *mapRequest) fail(status gpucore.BufferMapAsyncStatus) {
	r.buf.mu.Lock()
	if r.buf.pending == r {
		r.buf.pending = nil
		r.buf.state = unmapped
	}
	r.buf.mu.Unlock()
	r.future.Resolve(struct{}{}, &gpucore.BufferAsyncError{Status: status})
}

// mapRange maps [offset, offset+size) and returns it as a host slice.
func mapRange(d hal.Device, raw hal.Buffer, offset, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	m, err := d.MapBuffer(raw, offset, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map buffer: %w", err)
	}
	return unsafe.Slice((*byte)(m.Ptr), size), nil
}

// DeviceCreateBuffer creates a hal buffer. MappedAtCreation buffers are
// mapped in full right away.
func (b *Backend) DeviceCreateBuffer(deviceID gpucore.DeviceID, desc *gpucore.BufferDescriptor) (gpucore.BufferID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	switch {
	case desc.Size > d.limits.MaxBufferSize:
		return gpucore.InvalidID, fmt.Errorf("%w: buffer size %d > %d", ErrInvalidDescriptor, desc.Size, d.limits.MaxBufferSize)
	case desc.Usage == gputypes.BufferUsageNone:
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q has no usage", ErrInvalidDescriptor, desc.Label)
	case desc.Usage.Contains(gputypes.BufferUsageMapRead) && desc.Usage.Contains(gputypes.BufferUsageMapWrite):
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q is both MapRead and MapWrite", ErrInvalidDescriptor, desc.Label)
	case desc.MappedAtCreation && desc.Size%mapSizeAlignment != 0:
		return gpucore.InvalidID, fmt.Errorf("%w: mapped-at-creation size %d is not a multiple of %d", ErrInvalidDescriptor, desc.Size, mapSizeAlignment)
	}

	raw, err := d.raw.CreateBuffer(&hal.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage,
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}

	buf := &buffer{device: d, raw: raw, label: desc.Label, size: desc.Size, usage: desc.Usage}
	if desc.MappedAtCreation {
		mapping, err := mapRange(d.raw, raw, 0, desc.Size)
		if err != nil {
			d.raw.DestroyBuffer(raw)
			return gpucore.InvalidID, err
		}
		buf.state = mapped
		buf.mapSize = desc.Size
		buf.mapping = mapping
	}
	id := insert(b, b.buffers, buf)
	b.log().Debug("native: buffer created", "id", uint64(id), "label", desc.Label, "size", desc.Size)
	return id, nil
}

// BufferMapAsync queues a map request. It resolves on the first
// DevicePoll after the submissions made so far have completed.
func (b *Backend) BufferMapAsync(id gpucore.BufferID, mode gpucore.MapMode, offset, size uint64) *gpucore.Future[struct{}] {
	failed := func(status gpucore.BufferMapAsyncStatus) *gpucore.Future[struct{}] {
		return gpucore.Resolved(struct{}{}, error(&gpucore.BufferAsyncError{Status: status}))
	}

	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		return failed(gpucore.BufferMapAsyncStatusDestroyedBeforeCallback)
	}

	need := gputypes.BufferUsageMapRead
	if mode == gpucore.MapModeWrite {
		need = gputypes.BufferUsageMapWrite
	}
	switch {
	case !buf.usage.Contains(need):
		return failed(gpucore.BufferMapAsyncStatusValidationError)
	case offset%mapOffsetAlignment != 0 || offset > buf.size:
		return failed(gpucore.BufferMapAsyncStatusOffsetOutOfRange)
	case size%mapSizeAlignment != 0 || size > buf.size-offset:
		return failed(gpucore.BufferMapAsyncStatusSizeOutOfRange)
	}

	d := buf.device
	d.mu.Lock()
	after := d.lastSubmit
	d.mu.Unlock()
	req := &mapRequest{buf: buf, after: after, future: gpucore.NewFuture[struct{}]()}

	buf.mu.Lock()
	switch buf.state {
	case mapPending:
		buf.mu.Unlock()
		return failed(gpucore.BufferMapAsyncStatusMappingAlreadyPending)
	case mapped:
		buf.mu.Unlock()
		return failed(gpucore.BufferMapAsyncStatusValidationError)
	}
	buf.state = mapPending
	buf.mapOffset = offset
	buf.mapSize = size
	buf.pending = req
	buf.mu.Unlock()

	d.mu.Lock()
	d.pending = append(d.pending, req)
	d.mu.Unlock()
	return req.future
}

// BufferGetMappedRange returns the host memory of a mapped range. It
// panics if the range is not inside the current mapping.
func (b *Backend) BufferGetMappedRange(id gpucore.BufferID, offset, size uint64) []byte {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		panic(errors.AssertionFailedf("native: get mapped range of unknown buffer %d", id))
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.state != mapped || offset < buf.mapOffset || offset+size > buf.mapOffset+buf.mapSize {
		panic(errors.AssertionFailedf("native: range [%d, %d) of buffer %q is not mapped", offset, offset+size, buf.label))
	}
	start := offset - buf.mapOffset
	return buf.mapping[start : start+size : start+size]
}

// BufferUnmap ends the current mapping. A pending request fails with
// UnmappedBeforeCallback.
func (b *Backend) BufferUnmap(id gpucore.BufferID) {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		return
	}
	if req := b.unmap(buf); req != nil {
		req.fail(gpucore.BufferMapAsyncStatusUnmappedBeforeCallback)
	}
}

// unmap releases the hal mapping and returns the request it cancelled.
func (b *Backend) unmap(buf *buffer) *mapRequest {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	req := buf.pending
	if buf.state == mapped && buf.mapSize > 0 {
		if err := buf.device.raw.UnmapBuffer(buf.raw); err != nil {
			b.log().Warn("native: unmap buffer", "label", buf.label, "err", err)
		}
	}
	buf.state = unmapped
	buf.mapOffset, buf.mapSize = 0, 0
	buf.mapping = nil
	return req
}

// BufferDrop releases a buffer once pending work is done. A pending
// request fails with DestroyedBeforeCallback.
func (b *Backend) BufferDrop(id gpucore.BufferID) {
	buf, ok := remove(b, "buffer", b.buffers, id)
	if !ok {
		return
	}
	if req := b.unmap(buf); req != nil {
		req.fail(gpucore.BufferMapAsyncStatusDestroyedBeforeCallback)
	}
	d := buf.device
	d.retire(func() { d.raw.DestroyBuffer(buf.raw) })
	b.log().Debug("native: buffer dropped", "id", uint64(id), "label", buf.label)
}

// QueueWriteBuffer stages data through the hal queue.
func (b *Backend) QueueWriteBuffer(queueID gpucore.QueueID, id gpucore.BufferID, offset uint64, data []byte) {
	d, ok := lookup(b, b.queues, queueID)
	if !ok {
		b.log().Warn("native: write on unknown queue", "id", uint64(queueID))
		return
	}
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		b.log().Warn("native: write to unknown buffer", "id", uint64(id))
		return
	}
	n := uint64(len(data))
	if offset > buf.size || n > buf.size-offset {
		b.log().Warn("native: queue write skipped", "buffer", buf.label, "offset", offset, "len", n, "size", buf.size)
		return
	}
	err := b.withQueue(func() error { return d.queue.WriteBuffer(buf.raw, offset, data) })
	if err != nil {
		b.log().Error("native: queue write buffer", "buffer", buf.label, "err", err)
	}
}
