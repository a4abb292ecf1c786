package gpuapi

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// PassState is the recording state of a render or compute pass.
type PassState int

const (
	// PassStateRecording accepts commands.
	PassStateRecording PassState = iota
	// PassStateEnded has been appended to its encoder.
	PassStateEnded
)

// String returns the string representation of PassState.
func (s PassState) String() string {
	switch s {
	case PassStateRecording:
		return "Recording"
	case PassStateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

func passEnded(kind, label, op string) error {
	return errors.WithAssertionFailure(
		errors.Wrapf(ErrPassEnded, "%s on %s pass %q", op, kind, label))
}

// RenderPass records draw commands into its parent encoder.
//
// Recording calls are appended without validation; the backend reports
// invalid sequences when the command buffer is finished or submitted.
// End (or Release) must be called exactly once, typically via defer:
//
//	pass := enc.BeginRenderPass(desc)
//	defer pass.End()
type RenderPass struct {
	encoder *CommandEncoder
	pass    gpucore.RenderPassEncoder
	label   string
	state   PassState
}

// State returns the pass state.
func (p *RenderPass) State() PassState { return p.state }

func (p *RenderPass) check(op string) gpucore.RenderPassEncoder {
	if p.state == PassStateEnded {
		panic(passEnded("render", p.label, op))
	}
	return p.pass
}

// SetPipeline sets the active render pipeline.
func (p *RenderPass) SetPipeline(pipeline *RenderPipeline) {
	p.check("set pipeline").SetPipeline(pipeline.live())
}

// SetBindGroup binds group at index with one offset per dynamic binding.
func (p *RenderPass) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32) {
	p.check("set bind group").SetBindGroup(index, group.live(), dynamicOffsets)
}

// SetIndexBuffer binds a slice as the index buffer.
func (p *RenderPass) SetIndexBuffer(slice BufferSlice, format gputypes.IndexFormat) {
	p.check("set index buffer").SetIndexBuffer(slice.buffer.live(), format, slice.offset, slice.size)
}

// SetVertexBuffer binds a slice as the vertex buffer for slot.
func (p *RenderPass) SetVertexBuffer(slot uint32, slice BufferSlice) {
	p.check("set vertex buffer").SetVertexBuffer(slot, slice.buffer.live(), slice.offset, slice.size)
}

// SetPushConstants writes data at a 4-byte aligned byte offset for the
// given stages. Every byte written must be covered by exactly the stages
// declared for it in the pipeline layout; ranges with different stage
// coverage need separate calls.
func (p *RenderPass) SetPushConstants(stages ShaderStages, offset uint32, data []uint32) {
	enc := p.check("set push constants")
	checkPushConstantOffset(offset)
	enc.SetPushConstants(stages, offset, data)
}

// SetBlendConstant sets the constant blend color.
func (p *RenderPass) SetBlendConstant(color gputypes.Color) {
	p.check("set blend constant").SetBlendConstant(color)
}

// SetScissorRect restricts rendering to a rectangle.
func (p *RenderPass) SetScissorRect(x, y, width, height uint32) {
	p.check("set scissor rect").SetScissorRect(x, y, width, height)
}

// SetViewport sets the viewport transform.
func (p *RenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.check("set viewport").SetViewport(x, y, width, height, minDepth, maxDepth)
}

// SetStencilReference sets the stencil reference value.
func (p *RenderPass) SetStencilReference(reference uint32) {
	p.check("set stencil reference").SetStencilReference(reference)
}

// InsertDebugMarker inserts a debug label.
func (p *RenderPass) InsertDebugMarker(label string) {
	p.check("insert debug marker").InsertDebugMarker(label)
}

// PushDebugGroup opens a labelled debug group.
func (p *RenderPass) PushDebugGroup(label string) {
	p.check("push debug group").PushDebugGroup(label)
}

// PopDebugGroup closes the innermost debug group.
func (p *RenderPass) PopDebugGroup() {
	p.check("pop debug group").PopDebugGroup()
}

// Draw draws non-indexed primitives.
func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.check("draw").Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed draws indexed primitives.
func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.check("draw indexed").DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// DrawIndirect draws with arguments read from buffer.
func (p *RenderPass) DrawIndirect(buffer *Buffer, offset uint64) {
	p.check("draw indirect").DrawIndirect(buffer.live(), offset)
}

// DrawIndexedIndirect draws indexed with arguments read from buffer.
func (p *RenderPass) DrawIndexedIndirect(buffer *Buffer, offset uint64) {
	p.check("draw indexed indirect").DrawIndexedIndirect(buffer.live(), offset)
}

// MultiDrawIndirect issues count indirect draws.
func (p *RenderPass) MultiDrawIndirect(buffer *Buffer, offset uint64, count uint32) {
	p.check("multi draw indirect").MultiDrawIndirect(buffer.live(), offset, count)
}

// MultiDrawIndexedIndirect issues count indexed indirect draws.
func (p *RenderPass) MultiDrawIndexedIndirect(buffer *Buffer, offset uint64, count uint32) {
	p.check("multi draw indexed indirect").MultiDrawIndexedIndirect(buffer.live(), offset, count)
}

// MultiDrawIndirectCount issues up to maxCount indirect draws; the draw
// count is read from countBuffer.
func (p *RenderPass) MultiDrawIndirectCount(buffer *Buffer, offset uint64, countBuffer *Buffer, countOffset uint64, maxCount uint32) {
	p.check("multi draw indirect count").
		MultiDrawIndirectCount(buffer.live(), offset, countBuffer.live(), countOffset, maxCount)
}

// MultiDrawIndexedIndirectCount is the indexed form of MultiDrawIndirectCount.
func (p *RenderPass) MultiDrawIndexedIndirectCount(buffer *Buffer, offset uint64, countBuffer *Buffer, countOffset uint64, maxCount uint32) {
	p.check("multi draw indexed indirect count").
		MultiDrawIndexedIndirectCount(buffer.live(), offset, countBuffer.live(), countOffset, maxCount)
}

// ExecuteBundles replays render bundles in order.
func (p *RenderPass) ExecuteBundles(bundles ...*RenderBundle) {
	enc := p.check("execute bundles")
	ids := make([]gpucore.RenderBundleID, len(bundles))
	for i, b := range bundles {
		ids[i] = b.live()
	}
	enc.ExecuteBundles(ids)
}

// End appends the pass to its encoder and unlocks it. Calling End again
// does nothing. During a panic the backend is not called.
func (p *RenderPass) End() {
	if r := recover(); r != nil {
		p.abandon()
		panic(r)
	}
	p.end()
}

// Release is End.
func (p *RenderPass) Release() {
	if r := recover(); r != nil {
		p.abandon()
		panic(r)
	}
	p.end()
}

func (p *RenderPass) end() {
	if p.state == PassStateEnded {
		return
	}
	p.state = PassStateEnded
	p.encoder.backend.CommandEncoderEndRenderPass(p.encoder.live(), p.pass)
	p.encoder.endPass()
	Logger().Debug("gpu: render pass end", "encoder", p.encoder.label, "pass", p.label)
}

func (p *RenderPass) abandon() {
	if p.state == PassStateEnded {
		return
	}
	p.state = PassStateEnded
	p.encoder.abandonPass()
	Logger().Warn("gpu: render pass end skipped during panic", "pass", p.label)
}
