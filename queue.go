package gpuapi

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Queue submits work to a device. A queue has no lifetime of its own; it
// is valid while its device is, and panics with ErrReleased once the
// device has been released.
type Queue struct {
	device *Device
	id     gpucore.QueueID
}

// backend returns the device's backend, panicking if the device was
// released.
func (q *Queue) backend() *sharedBackend {
	q.device.live()
	return q.device.backend
}

// ID returns the backend handle.
func (q *Queue) ID() gpucore.QueueID { return q.id }

// WriteBuffer schedules a write of data into buffer at offset. The write
// happens before any command buffer submitted afterwards.
func (q *Queue) WriteBuffer(buffer *Buffer, offset uint64, data []byte) {
	q.backend().QueueWriteBuffer(q.id, buffer.live(), offset, data)
}

// WriteTexture schedules a write of data into a texture region.
func (q *Queue) WriteTexture(dst *ImageCopyTexture, data []byte, layout TextureDataLayout, size gputypes.Extent3D) {
	q.backend().QueueWriteTexture(q.id, dst.toCore(), data, &layout, size)
}

// Submit executes command buffers in order. Each command buffer is
// consumed; submitting it again panics. Every buffer is checked before
// any is consumed, so a panic leaves all of them usable.
func (q *Queue) Submit(buffers ...*CommandBuffer) error {
	b := q.backend()
	for i, cb := range buffers {
		cb.live()
		if slices.Contains(buffers[:i], cb) {
			panic(errors.WithAssertionFailure(
				errors.Wrapf(ErrReleased, "command buffer %d submitted twice", uint64(cb.id))))
		}
	}
	ids := make([]gpucore.CommandBufferID, len(buffers))
	for i, cb := range buffers {
		ids[i] = cb.take()
	}
	err := b.QueueSubmit(q.id, ids)
	for _, cb := range buffers {
		cb.disown()
	}
	if err != nil {
		return fmt.Errorf("queue submit: %w", err)
	}
	return nil
}
