package trace

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// renderEncoder traces the recording calls shared by render passes and
// bundle encoders.
type renderEncoder struct {
	b     *Backend
	seq   uint64
	kind  string
	inner gpucore.RenderEncoder
}

func (e *renderEncoder) record(op string, attrs ...slog.Attr) {
	e.b.record(e.kind+"."+op, append([]slog.Attr{slog.Uint64("pass", e.seq)}, attrs...)...)
}

func (e *renderEncoder) SetPipeline(pipeline gpucore.RenderPipelineID) {
	e.record("SetPipeline", id("render_pipeline", pipeline))
	e.inner.SetPipeline(pipeline)
}

func (e *renderEncoder) SetBindGroup(index uint32, group gpucore.BindGroupID, dynamicOffsets []uint32) {
	e.record("SetBindGroup", slog.Uint64("index", uint64(index)), id("bind_group", group), slog.Any("dynamic_offsets", dynamicOffsets))
	e.inner.SetBindGroup(index, group, dynamicOffsets)
}

func (e *renderEncoder) SetIndexBuffer(buffer gpucore.BufferID, format gputypes.IndexFormat, offset, size uint64) {
	e.record("SetIndexBuffer", id("buffer", buffer), slog.String("format", format.String()), slog.Uint64("offset", offset), slog.Uint64("size", size))
	e.inner.SetIndexBuffer(buffer, format, offset, size)
}

func (e *renderEncoder) SetVertexBuffer(slot uint32, buffer gpucore.BufferID, offset, size uint64) {
	e.record("SetVertexBuffer", slog.Uint64("slot", uint64(slot)), id("buffer", buffer), slog.Uint64("offset", offset), slog.Uint64("size", size))
	e.inner.SetVertexBuffer(slot, buffer, offset, size)
}

func (e *renderEncoder) SetPushConstants(stages gpucore.ShaderStages, offset uint32, data []uint32) {
	e.record("SetPushConstants", slog.String("stages", stages.String()), slog.Uint64("offset", uint64(offset)), slog.Int("words", len(data)))
	e.inner.SetPushConstants(stages, offset, data)
}

func (e *renderEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.record("Draw",
		slog.Uint64("vertex_count", uint64(vertexCount)),
		slog.Uint64("instance_count", uint64(instanceCount)),
		slog.Uint64("first_vertex", uint64(firstVertex)),
		slog.Uint64("first_instance", uint64(firstInstance)))
	e.inner.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (e *renderEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.record("DrawIndexed",
		slog.Uint64("index_count", uint64(indexCount)),
		slog.Uint64("instance_count", uint64(instanceCount)),
		slog.Uint64("first_index", uint64(firstIndex)),
		slog.Int64("base_vertex", int64(baseVertex)),
		slog.Uint64("first_instance", uint64(firstInstance)))
	e.inner.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (e *renderEncoder) DrawIndirect(buffer gpucore.BufferID, offset uint64) {
	e.record("DrawIndirect", id("buffer", buffer), slog.Uint64("offset", offset))
	e.inner.DrawIndirect(buffer, offset)
}

func (e *renderEncoder) DrawIndexedIndirect(buffer gpucore.BufferID, offset uint64) {
	e.record("DrawIndexedIndirect", id("buffer", buffer), slog.Uint64("offset", offset))
	e.inner.DrawIndexedIndirect(buffer, offset)
}

type renderPass struct {
	renderEncoder
	pass gpucore.RenderPassEncoder
}

func (p *renderPass) MultiDrawIndirect(buffer gpucore.BufferID, offset uint64, count uint32) {
	p.record("MultiDrawIndirect", id("buffer", buffer), slog.Uint64("offset", offset), slog.Uint64("count", uint64(count)))
	p.pass.MultiDrawIndirect(buffer, offset, count)
}

func (p *renderPass) MultiDrawIndexedIndirect(buffer gpucore.BufferID, offset uint64, count uint32) {
	p.record("MultiDrawIndexedIndirect", id("buffer", buffer), slog.Uint64("offset", offset), slog.Uint64("count", uint64(count)))
	p.pass.MultiDrawIndexedIndirect(buffer, offset, count)
}

func (p *renderPass) MultiDrawIndirectCount(buffer gpucore.BufferID, offset uint64, countBuffer gpucore.BufferID, countOffset uint64, maxCount uint32) {
	p.record("MultiDrawIndirectCount", id("buffer", buffer), slog.Uint64("offset", offset), id("count_buffer", countBuffer), slog.Uint64("count_offset", countOffset), slog.Uint64("max_count", uint64(maxCount)))
	p.pass.MultiDrawIndirectCount(buffer, offset, countBuffer, countOffset, maxCount)
}

func (p *renderPass) MultiDrawIndexedIndirectCount(buffer gpucore.BufferID, offset uint64, countBuffer gpucore.BufferID, countOffset uint64, maxCount uint32) {
	p.record("MultiDrawIndexedIndirectCount", id("buffer", buffer), slog.Uint64("offset", offset), id("count_buffer", countBuffer), slog.Uint64("count_offset", countOffset), slog.Uint64("max_count", uint64(maxCount)))
	p.pass.MultiDrawIndexedIndirectCount(buffer, offset, countBuffer, countOffset, maxCount)
}

func (p *renderPass) SetBlendConstant(color gputypes.Color) {
	p.record("SetBlendConstant", slog.Float64("r", color.R), slog.Float64("g", color.G), slog.Float64("b", color.B), slog.Float64("a", color.A))
	p.pass.SetBlendConstant(color)
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	p.record("SetScissorRect", slog.Uint64("x", uint64(x)), slog.Uint64("y", uint64(y)), slog.Uint64("width", uint64(width)), slog.Uint64("height", uint64(height)))
	p.pass.SetScissorRect(x, y, width, height)
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.record("SetViewport",
		slog.Float64("x", float64(x)), slog.Float64("y", float64(y)),
		slog.Float64("width", float64(width)), slog.Float64("height", float64(height)),
		slog.Float64("min_depth", float64(minDepth)), slog.Float64("max_depth", float64(maxDepth)))
	p.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *renderPass) SetStencilReference(reference uint32) {
	p.record("SetStencilReference", slog.Uint64("reference", uint64(reference)))
	p.pass.SetStencilReference(reference)
}

func (p *renderPass) InsertDebugMarker(marker string) {
	p.record("InsertDebugMarker", label(marker))
	p.pass.InsertDebugMarker(marker)
}

func (p *renderPass) PushDebugGroup(group string) {
	p.record("PushDebugGroup", label(group))
	p.pass.PushDebugGroup(group)
}

func (p *renderPass) PopDebugGroup() {
	p.record("PopDebugGroup")
	p.pass.PopDebugGroup()
}

func (p *renderPass) ExecuteBundles(bundles []gpucore.RenderBundleID) {
	p.record("ExecuteBundles", ids("bundles", bundles))
	p.pass.ExecuteBundles(bundles)
}

type bundleEncoder struct {
	renderEncoder
}

type computePass struct {
	b     *Backend
	seq   uint64
	inner gpucore.ComputePassEncoder
}

func (p *computePass) record(op string, attrs ...slog.Attr) {
	p.b.record("ComputePass."+op, append([]slog.Attr{slog.Uint64("pass", p.seq)}, attrs...)...)
}

func (p *computePass) SetPipeline(pipeline gpucore.ComputePipelineID) {
	p.record("SetPipeline", id("compute_pipeline", pipeline))
	p.inner.SetPipeline(pipeline)
}

func (p *computePass) SetBindGroup(index uint32, group gpucore.BindGroupID, dynamicOffsets []uint32) {
	p.record("SetBindGroup", slog.Uint64("index", uint64(index)), id("bind_group", group), slog.Any("dynamic_offsets", dynamicOffsets))
	p.inner.SetBindGroup(index, group, dynamicOffsets)
}

func (p *computePass) SetPushConstants(offset uint32, data []uint32) {
	p.record("SetPushConstants", slog.Uint64("offset", uint64(offset)), slog.Int("words", len(data)))
	p.inner.SetPushConstants(offset, data)
}

func (p *computePass) InsertDebugMarker(marker string) {
	p.record("InsertDebugMarker", label(marker))
	p.inner.InsertDebugMarker(marker)
}

func (p *computePass) PushDebugGroup(group string) {
	p.record("PushDebugGroup", label(group))
	p.inner.PushDebugGroup(group)
}

func (p *computePass) PopDebugGroup() {
	p.record("PopDebugGroup")
	p.inner.PopDebugGroup()
}

func (p *computePass) Dispatch(x, y, z uint32) {
	p.record("Dispatch", slog.Uint64("x", uint64(x)), slog.Uint64("y", uint64(y)), slog.Uint64("z", uint64(z)))
	p.inner.Dispatch(x, y, z)
}

func (p *computePass) DispatchIndirect(buffer gpucore.BufferID, offset uint64) {
	p.record("DispatchIndirect", id("buffer", buffer), slog.Uint64("offset", offset))
	p.inner.DispatchIndirect(buffer, offset)
}
