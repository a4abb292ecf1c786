package gpuapi

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// RenderBundleEncoder records a reusable render bundle. It mirrors the
// recording subset of RenderPass and finishes into a RenderBundle owned
// independently of any command encoder. An encoder that is not finished
// must be released.
//
// RenderBundleEncoder is NOT safe for concurrent use.
type RenderBundleEncoder struct {
	backend  *sharedBackend
	enc      gpucore.RenderBundleEncoder
	label    string
	finished bool
}

func (e *RenderBundleEncoder) check(op string) gpucore.RenderBundleEncoder {
	if e.finished {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrEncoderFinished, "%s on render bundle encoder %q", op, e.label)))
	}
	return e.enc
}

// SetPipeline sets the active render pipeline.
func (e *RenderBundleEncoder) SetPipeline(pipeline *RenderPipeline) {
	e.check("set pipeline").SetPipeline(pipeline.live())
}

// SetBindGroup binds group at index with one offset per dynamic binding.
func (e *RenderBundleEncoder) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32) {
	e.check("set bind group").SetBindGroup(index, group.live(), dynamicOffsets)
}

// SetIndexBuffer binds a slice as the index buffer.
func (e *RenderBundleEncoder) SetIndexBuffer(slice BufferSlice, format gputypes.IndexFormat) {
	e.check("set index buffer").SetIndexBuffer(slice.buffer.live(), format, slice.offset, slice.size)
}

// SetVertexBuffer binds a slice as the vertex buffer for slot.
func (e *RenderBundleEncoder) SetVertexBuffer(slot uint32, slice BufferSlice) {
	e.check("set vertex buffer").SetVertexBuffer(slot, slice.buffer.live(), slice.offset, slice.size)
}

// SetPushConstants writes data at a 4-byte aligned byte offset.
func (e *RenderBundleEncoder) SetPushConstants(stages ShaderStages, offset uint32, data []uint32) {
	enc := e.check("set push constants")
	checkPushConstantOffset(offset)
	enc.SetPushConstants(stages, offset, data)
}

// Draw draws non-indexed primitives.
func (e *RenderBundleEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.check("draw").Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed draws indexed primitives.
func (e *RenderBundleEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.check("draw indexed").DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// DrawIndirect draws with arguments read from buffer.
func (e *RenderBundleEncoder) DrawIndirect(buffer *Buffer, offset uint64) {
	e.check("draw indirect").DrawIndirect(buffer.live(), offset)
}

// DrawIndexedIndirect draws indexed with arguments read from buffer.
func (e *RenderBundleEncoder) DrawIndexedIndirect(buffer *Buffer, offset uint64) {
	e.check("draw indexed indirect").DrawIndexedIndirect(buffer.live(), offset)
}

// Finish consumes the encoder and returns the bundle. A nil desc uses the
// encoder label.
func (e *RenderBundleEncoder) Finish(desc *RenderBundleDescriptor) (*RenderBundle, error) {
	enc := e.check("finish")
	e.finished = true
	if desc == nil {
		desc = &RenderBundleDescriptor{Label: e.label}
	}
	defer e.backend.release()
	id, err := e.backend.RenderBundleEncoderFinish(enc, desc)
	if err != nil {
		return nil, fmt.Errorf("finish render bundle %q: %w", desc.Label, err)
	}
	rb := &RenderBundle{}
	rb.init(e.backend, id, "render bundle", gpucore.Backend.RenderBundleDrop)
	return rb, nil
}

// Release discards an encoder that was never finished. Releasing a
// finished encoder does nothing.
func (e *RenderBundleEncoder) Release() {
	if r := recover(); r != nil {
		if !e.finished {
			e.finished = true
			Logger().Warn("gpu: release skipped during panic", "kind", "render bundle encoder", "label", e.label)
		}
		panic(r)
	}
	if e.finished {
		return
	}
	e.finished = true
	e.backend.release()
}
