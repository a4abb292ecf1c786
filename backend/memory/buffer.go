package memory

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

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
	label  string
	size   uint64
	usage  gputypes.BufferUsage

	mu        sync.Mutex
	data      []byte
	state     mapState
	mapOffset uint64
	mapSize   uint64
	pending   *mapRequest
}

// mapRequest is an outstanding BufferMapAsync call.
type mapRequest struct {
	buf    *buffer
	future *gpucore.Future[struct{}]
}

// complete maps the buffer and resolves the future, unless the request
// was cancelled by an unmap or drop in the meantime.
func (r *mapRequest) complete() {
	r.buf.mu.Lock()
	if r.buf.pending != r {
		r.buf.mu.Unlock()
		return
	}
	r.buf.pending = nil
	r.buf.state = mapped
	r.buf.mu.Unlock()
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

// DeviceCreateBuffer allocates a zeroed host buffer.
func (b *Backend) DeviceCreateBuffer(deviceID gpucore.DeviceID, desc *gpucore.BufferDescriptor) (gpucore.BufferID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	switch {
	case desc.Size > d.limits.MaxBufferSize:
		return gpucore.InvalidID, fmt.Errorf("%w: buffer size %d > %d", ErrLimitExceeded, desc.Size, d.limits.MaxBufferSize)
	case desc.Usage == gputypes.BufferUsageNone:
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q has no usage", ErrInvalidDescriptor, desc.Label)
	case desc.Usage.Contains(gputypes.BufferUsageMapRead) && desc.Usage.Contains(gputypes.BufferUsageMapWrite):
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q is both MapRead and MapWrite", ErrInvalidDescriptor, desc.Label)
	case desc.MappedAtCreation && desc.Size%mapSizeAlignment != 0:
		return gpucore.InvalidID, fmt.Errorf("%w: mapped-at-creation size %d is not a multiple of %d", ErrInvalidDescriptor, desc.Size, mapSizeAlignment)
	}

	buf := &buffer{
		device: d,
		label:  desc.Label,
		size:   desc.Size,
		usage:  desc.Usage,
		data:   make([]byte, desc.Size),
	}
	if desc.MappedAtCreation {
		buf.state = mapped
		buf.mapSize = desc.Size
	}
	id := insert(b, b.buffers, buf)
	b.log().Debug("memory: buffer created", "id", uint64(id), "label", desc.Label, "size", desc.Size)
	return id, nil
}

// BufferMapAsync queues a map request on the buffer's device. It resolves
// on the next DevicePoll.
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

	req := &mapRequest{buf: buf, future: gpucore.NewFuture[struct{}]()}

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

	b.mu.Lock()
	buf.device.pending = append(buf.device.pending, req)
	b.mu.Unlock()
	return req.future
}

// BufferGetMappedRange returns the buffer storage for a mapped range. It
// panics if the range is not inside the current mapping.
func (b *Backend) BufferGetMappedRange(id gpucore.BufferID, offset, size uint64) []byte {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		panic(errors.AssertionFailedf("memory: get mapped range of unknown buffer %d", id))
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.state != mapped || offset < buf.mapOffset || offset+size > buf.mapOffset+buf.mapSize {
		panic(errors.AssertionFailedf("memory: range [%d, %d) of buffer %q is not mapped", offset, offset+size, buf.label))
	}
	return buf.data[offset : offset+size : offset+size]
}

// BufferUnmap ends the current mapping. A pending request fails with
// UnmappedBeforeCallback.
func (b *Backend) BufferUnmap(id gpucore.BufferID) {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		return
	}
	buf.mu.Lock()
	req := buf.pending
	buf.state = unmapped
	buf.mapOffset, buf.mapSize = 0, 0
	buf.mu.Unlock()

	if req != nil {
		req.fail(gpucore.BufferMapAsyncStatusUnmappedBeforeCallback)
	}
}

// BufferDrop releases a buffer. A pending request fails with
// DestroyedBeforeCallback.
func (b *Backend) BufferDrop(id gpucore.BufferID) {
	buf, ok := remove(b, "buffer", b.buffers, id)
	if !ok {
		return
	}
	buf.mu.Lock()
	req := buf.pending
	buf.mu.Unlock()
	if req != nil {
		req.fail(gpucore.BufferMapAsyncStatusDestroyedBeforeCallback)
	}
	b.log().Debug("memory: buffer dropped", "id", uint64(id), "label", buf.label)
}

// QueueWriteBuffer copies data into the buffer immediately.
func (b *Backend) QueueWriteBuffer(_ gpucore.QueueID, id gpucore.BufferID, offset uint64, data []byte) {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		b.log().Warn("memory: write to unknown buffer", "id", uint64(id))
		return
	}
	if err := buf.write(offset, data); err != nil {
		b.log().Warn("memory: queue write skipped", "buffer", buf.label, "err", err)
	}
}

// write copies data at offset. The buffer must be unmapped.
func (buf *buffer) write(offset uint64, data []byte) error {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.state != unmapped {
		return fmt.Errorf("%w: buffer %q is mapped", ErrRecording, buf.label)
	}
	n := uint64(len(data))
	if offset > buf.size || n > buf.size-offset {
		return fmt.Errorf("%w: write [%d, %d) outside buffer %q of size %d", ErrRecording, offset, offset+n, buf.label, buf.size)
	}
	copy(buf.data[offset:], data)
	return nil
}

// read returns a copy of [offset, offset+n). The buffer must be unmapped.
func (buf *buffer) read(offset, n uint64) ([]byte, error) {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	if buf.state != unmapped {
		return nil, fmt.Errorf("%w: buffer %q is mapped", ErrRecording, buf.label)
	}
	if offset > buf.size || n > buf.size-offset {
		return nil, fmt.Errorf("%w: read [%d, %d) outside buffer %q of size %d", ErrRecording, offset, offset+n, buf.label, buf.size)
	}
	return append([]byte(nil), buf.data[offset:offset+n]...), nil
}
