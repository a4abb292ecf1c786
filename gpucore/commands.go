package gpucore

import "github.com/gogpu/gputypes"

// RenderEncoder is the recording subset shared by render passes and
// render bundle encoders. Calls are pure appends; a backend reports
// invalid sequences when the recording is finished or submitted.
type RenderEncoder interface {
	// SetPipeline sets the active render pipeline.
	SetPipeline(pipeline RenderPipelineID)

	// SetBindGroup binds a bind group at index. dynamicOffsets holds one
	// offset per dynamic binding, in binding order.
	SetBindGroup(index uint32, group BindGroupID, dynamicOffsets []uint32)

	// SetIndexBuffer binds an index buffer range. Size 0 means "to the end".
	SetIndexBuffer(buffer BufferID, format gputypes.IndexFormat, offset, size uint64)

	// SetVertexBuffer binds a vertex buffer range to slot. Size 0 means
	// "to the end".
	SetVertexBuffer(slot uint32, buffer BufferID, offset, size uint64)

	// SetPushConstants writes data at byte offset for the given stages.
	SetPushConstants(stages ShaderStages, offset uint32, data []uint32)

	// Draw draws non-indexed primitives.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed draws indexed primitives.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// DrawIndirect draws with parameters read from buffer at offset.
	DrawIndirect(buffer BufferID, offset uint64)

	// DrawIndexedIndirect draws indexed with parameters read from buffer.
	DrawIndexedIndirect(buffer BufferID, offset uint64)
}

// RenderPassEncoder records a render pass.
type RenderPassEncoder interface {
	RenderEncoder

	// MultiDrawIndirect issues count indirect draws read back to back.
	MultiDrawIndirect(buffer BufferID, offset uint64, count uint32)

	// MultiDrawIndexedIndirect issues count indexed indirect draws.
	MultiDrawIndexedIndirect(buffer BufferID, offset uint64, count uint32)

	// MultiDrawIndirectCount issues up to maxCount indirect draws; the
	// actual count is read from countBuffer at countOffset.
	MultiDrawIndirectCount(buffer BufferID, offset uint64, countBuffer BufferID, countOffset uint64, maxCount uint32)

	// MultiDrawIndexedIndirectCount is the indexed form of MultiDrawIndirectCount.
	MultiDrawIndexedIndirectCount(buffer BufferID, offset uint64, countBuffer BufferID, countOffset uint64, maxCount uint32)

	SetBlendConstant(color gputypes.Color)
	SetScissorRect(x, y, width, height uint32)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetStencilReference(reference uint32)

	InsertDebugMarker(label string)
	PushDebugGroup(label string)
	PopDebugGroup()

	// ExecuteBundles replays finished render bundles in order.
	ExecuteBundles(bundles []RenderBundleID)
}

// ComputePassEncoder records a compute pass.
type ComputePassEncoder interface {
	SetPipeline(pipeline ComputePipelineID)
	SetBindGroup(index uint32, group BindGroupID, dynamicOffsets []uint32)

	// SetPushConstants writes data at byte offset.
	SetPushConstants(offset uint32, data []uint32)

	InsertDebugMarker(label string)
	PushDebugGroup(label string)
	PopDebugGroup()

	// Dispatch dispatches x*y*z workgroups.
	Dispatch(x, y, z uint32)

	// DispatchIndirect dispatches with workgroup counts read from buffer.
	DispatchIndirect(buffer BufferID, offset uint64)
}

// RenderBundleEncoder records a render bundle.
type RenderBundleEncoder interface {
	RenderEncoder
}
