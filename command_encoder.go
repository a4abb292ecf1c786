package gpuapi

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// EncoderState is the recording state of a CommandEncoder.
type EncoderState int

const (
	// EncoderStateEncoding accepts commands directly.
	EncoderStateEncoding EncoderState = iota
	// EncoderStateRenderPass is locked by an open render pass.
	EncoderStateRenderPass
	// EncoderStateComputePass is locked by an open compute pass.
	EncoderStateComputePass
	// EncoderStateFinished has been consumed by Finish.
	EncoderStateFinished
	// EncoderStateInvalid lost a pass to a panic. It can only be released.
	EncoderStateInvalid
)

// String returns the string representation of EncoderState.
func (s EncoderState) String() string {
	switch s {
	case EncoderStateEncoding:
		return "Encoding"
	case EncoderStateRenderPass:
		return "RenderPass"
	case EncoderStateComputePass:
		return "ComputePass"
	case EncoderStateFinished:
		return "Finished"
	case EncoderStateInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// =============================================================================
// Command Encoder
// =============================================================================

// CommandEncoder records GPU commands for later submission to a queue.
//
// State machine:
//
//	Encoding -> (BeginRenderPass/BeginComputePass) -> RenderPass/ComputePass
//	*Pass    -> (pass End)                         -> Encoding
//	Encoding -> Finish()                           -> Finished
//	*Pass    -> (pass abandoned during a panic)    -> Invalid
//
// An open pass holds the encoder exclusively. Every encoder method checks
// the state first and panics with ErrEncoderLocked or ErrEncoderFinished
// before anything reaches the backend.
//
// CommandEncoder is NOT safe for concurrent use. Each encoder should be
// used from a single goroutine.
type CommandEncoder struct {
	handle[gpucore.CommandEncoderID]

	// label is the debug label for this encoder.
	label string

	state EncoderState

	// activeRenderPass tracks the currently open render pass (if any).
	activeRenderPass *RenderPass

	// activeComputePass tracks the currently open compute pass (if any).
	activeComputePass *ComputePass
}

// State returns the current recording state.
func (e *CommandEncoder) State() EncoderState { return e.state }

// checkEncoding panics unless the encoder accepts direct commands.
func (e *CommandEncoder) checkEncoding(op string) gpucore.CommandEncoderID {
	switch e.state {
	case EncoderStateRenderPass, EncoderStateComputePass:
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrEncoderLocked, "%s on %q (%s open)", op, e.label, e.state)))
	case EncoderStateFinished:
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrEncoderFinished, "%s on %q", op, e.label)))
	case EncoderStateInvalid:
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrEncoderInvalid, "%s on %q", op, e.label)))
	}
	return e.live()
}

// CopyBufferToBuffer copies size bytes between buffers.
func (e *CommandEncoder) CopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset uint64, size uint64) {
	id := e.checkEncoding("copy buffer to buffer")
	e.backend.CommandEncoderCopyBufferToBuffer(id, src.live(), srcOffset, dst.live(), dstOffset, size)
}

// CopyBufferToTexture copies buffer data into a texture region.
func (e *CommandEncoder) CopyBufferToTexture(src *ImageCopyBuffer, dst *ImageCopyTexture, size gputypes.Extent3D) {
	id := e.checkEncoding("copy buffer to texture")
	e.backend.CommandEncoderCopyBufferToTexture(id, src.toCore(), dst.toCore(), size)
}

// CopyTextureToBuffer copies a texture region into a buffer.
func (e *CommandEncoder) CopyTextureToBuffer(src *ImageCopyTexture, dst *ImageCopyBuffer, size gputypes.Extent3D) {
	id := e.checkEncoding("copy texture to buffer")
	e.backend.CommandEncoderCopyTextureToBuffer(id, src.toCore(), dst.toCore(), size)
}

// CopyTextureToTexture copies between texture regions.
func (e *CommandEncoder) CopyTextureToTexture(src, dst *ImageCopyTexture, size gputypes.Extent3D) {
	id := e.checkEncoding("copy texture to texture")
	e.backend.CommandEncoderCopyTextureToTexture(id, src.toCore(), dst.toCore(), size)
}

// InsertDebugMarker inserts a debug label into the command stream.
func (e *CommandEncoder) InsertDebugMarker(label string) {
	e.backend.CommandEncoderInsertDebugMarker(e.checkEncoding("insert debug marker"), label)
}

// PushDebugGroup opens a labelled debug group.
func (e *CommandEncoder) PushDebugGroup(label string) {
	e.backend.CommandEncoderPushDebugGroup(e.checkEncoding("push debug group"), label)
}

// PopDebugGroup closes the innermost debug group.
func (e *CommandEncoder) PopDebugGroup() {
	e.backend.CommandEncoderPopDebugGroup(e.checkEncoding("pop debug group"))
}

// BeginRenderPass opens a render pass. The encoder is locked until the
// pass is ended.
func (e *CommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) *RenderPass {
	id := e.checkEncoding("begin render pass")
	pass := e.backend.CommandEncoderBeginRenderPass(id, desc.toCore())
	rp := &RenderPass{encoder: e, pass: pass, label: desc.Label}
	e.state = EncoderStateRenderPass
	e.activeRenderPass = rp
	Logger().Debug("gpu: render pass begin", "encoder", e.label, "pass", desc.Label)
	return rp
}

// BeginComputePass opens a compute pass. The encoder is locked until the
// pass is ended.
func (e *CommandEncoder) BeginComputePass(desc *ComputePassDescriptor) *ComputePass {
	if desc == nil {
		desc = &ComputePassDescriptor{}
	}
	id := e.checkEncoding("begin compute pass")
	pass := e.backend.CommandEncoderBeginComputePass(id, desc)
	cp := &ComputePass{encoder: e, pass: pass, label: desc.Label}
	e.state = EncoderStateComputePass
	e.activeComputePass = cp
	Logger().Debug("gpu: compute pass begin", "encoder", e.label, "pass", desc.Label)
	return cp
}

// Finish ends recording and returns the command buffer. The encoder is
// consumed even when the backend reports an error.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	e.checkEncoding("finish")
	e.state = EncoderStateFinished
	id := e.take()

	cbID, err := e.backend.CommandEncoderFinish(id, &CommandBufferDescriptor{Label: e.label})
	if err != nil {
		e.disown()
		return nil, fmt.Errorf("finish command encoder %q: %w", e.label, err)
	}
	cb := &CommandBuffer{}
	cb.init(e.backend, cbID, "command buffer", gpucore.Backend.CommandBufferDrop)
	e.disown()
	return cb, nil
}

// Release drops an encoder that was never finished, including one left
// Invalid by an abandoned pass. Releasing a finished encoder does
// nothing. It panics while a pass is open.
func (e *CommandEncoder) Release() {
	if r := recover(); r != nil {
		panic(e.unwind(r))
	}
	if e.state == EncoderStateFinished || e.Released() {
		return
	}
	if e.state == EncoderStateRenderPass || e.state == EncoderStateComputePass {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrEncoderLocked, "release %q (%s open)", e.label, e.state)))
	}
	e.release()
}

// endPass unlocks the encoder after its pass has been appended.
func (e *CommandEncoder) endPass() {
	e.state = EncoderStateEncoding
	e.activeRenderPass = nil
	e.activeComputePass = nil
}

// abandonPass unlocks the encoder after its pass was dropped during a
// panic. The backend stream is incomplete, so only Release is allowed.
func (e *CommandEncoder) abandonPass() {
	e.state = EncoderStateInvalid
	e.activeRenderPass = nil
	e.activeComputePass = nil
}

// checkPushConstantOffset panics unless offset is 4-byte aligned.
func checkPushConstantOffset(offset uint32) {
	if offset%4 != 0 {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrPushConstantAlignment, "offset %d", offset)))
	}
}
