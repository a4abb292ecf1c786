package memory

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Sizes of the indirect argument structs.
const (
	drawIndirectSize        = 16
	drawIndexedIndirectSize = 20
	dispatchIndirectSize    = 12
	copyAlignment           = 4
)

// command runs at submit time.
type command func() error

// recorder collects commands and recording errors.
type recorder struct {
	cmds       []command
	errs       []error
	debugDepth int
}

func (r *recorder) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf("%w: "+format, append([]any{ErrRecording}, args...)...))
}

func (r *recorder) record(c command) { r.cmds = append(r.cmds, c) }

func (r *recorder) push() { r.debugDepth++ }

func (r *recorder) pop() {
	if r.debugDepth == 0 {
		r.fail("pop debug group with no open group")
		return
	}
	r.debugDepth--
}

// merge appends the commands and errors of a closed pass.
func (r *recorder) merge(kind string, o *recorder) {
	if o.debugDepth != 0 {
		r.fail("%s ended with %d open debug groups", kind, o.debugDepth)
	}
	r.cmds = append(r.cmds, o.cmds...)
	r.errs = append(r.errs, o.errs...)
}

type commandEncoder struct {
	b      *Backend
	device *device
	label  string

	mu       sync.Mutex
	recorder recorder
	passOpen bool
}

type commandBuffer struct {
	label string
	cmds  []command
}

type renderBundle struct {
	label        string
	colorFormats []gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat
	cmds         []command
}

// DeviceCreateCommandEncoder creates an empty encoder.
func (b *Backend) DeviceCreateCommandEncoder(deviceID gpucore.DeviceID, desc *gpucore.CommandEncoderDescriptor) (gpucore.CommandEncoderID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	return insert(b, b.encoders, &commandEncoder{b: b, device: d, label: desc.Label}), nil
}

// encoder runs fn with the encoder locked. Unknown encoders are logged.
func (b *Backend) encoder(id gpucore.CommandEncoderID, op string, fn func(e *commandEncoder)) {
	e, ok := lookup(b, b.encoders, id)
	if !ok {
		b.log().Warn("memory: command on unknown encoder", "op", op, "id", uint64(id))
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.passOpen {
		e.recorder.fail("%s while a pass is open on %q", op, e.label)
		return
	}
	fn(e)
}

func (b *Backend) copyBuffer(r *recorder, id gpucore.BufferID, usage gputypes.BufferUsage, offset, size uint64) *buffer {
	buf, ok := lookup(b, b.buffers, id)
	if !ok {
		r.fail("unknown buffer %d", id)
		return nil
	}
	switch {
	case !buf.usage.Contains(usage):
		r.fail("buffer %q lacks usage %#x", buf.label, usage)
	case offset > buf.size || size > buf.size-offset:
		r.fail("range [%d, %d) outside buffer %q of size %d", offset, offset+size, buf.label, buf.size)
	default:
		return buf
	}
	return nil
}

func (b *Backend) copyTexture(r *recorder, id gpucore.TextureID, usage gputypes.TextureUsage) *texture {
	t, ok := lookup(b, b.textures, id)
	if !ok {
		r.fail("unknown texture %d", id)
		return nil
	}
	if t.usage&usage == 0 {
		r.fail("texture %q lacks usage %#x", t.label, usage)
		return nil
	}
	return t
}

// CommandEncoderCopyBufferToBuffer records a buffer copy.
func (b *Backend) CommandEncoderCopyBufferToBuffer(id gpucore.CommandEncoderID, src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset uint64, size uint64) {
	b.encoder(id, "copy buffer to buffer", func(e *commandEncoder) {
		r := &e.recorder
		if srcOffset%copyAlignment != 0 || dstOffset%copyAlignment != 0 || size%copyAlignment != 0 {
			r.fail("buffer copy offsets and size must be multiples of %d", copyAlignment)
			return
		}
		if src == dst {
			r.fail("buffer copy source and destination are the same buffer")
			return
		}
		s := b.copyBuffer(r, src, gputypes.BufferUsageCopySrc, srcOffset, size)
		d := b.copyBuffer(r, dst, gputypes.BufferUsageCopyDst, dstOffset, size)
		if s == nil || d == nil {
			return
		}
		r.record(func() error {
			data, err := s.read(srcOffset, size)
			if err != nil {
				return err
			}
			return d.write(dstOffset, data)
		})
	})
}

// CommandEncoderCopyBufferToTexture records a buffer to texture copy.
func (b *Backend) CommandEncoderCopyBufferToTexture(id gpucore.CommandEncoderID, src *gpucore.ImageCopyBuffer, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	b.encoder(id, "copy buffer to texture", func(e *commandEncoder) {
		r := &e.recorder
		s := b.copyBuffer(r, src.Buffer, gputypes.BufferUsageCopySrc, src.Layout.Offset, 0)
		t := b.copyTexture(r, dst.Texture, gputypes.TextureUsageCopyDst)
		if s == nil || t == nil {
			return
		}
		if _, err := copyRuns(t, dst, &src.Layout, size); err != nil {
			r.errs = append(r.errs, err)
			return
		}
		layout, dstCopy := src.Layout, *dst
		r.record(func() error {
			data, err := s.read(0, s.size)
			if err != nil {
				return err
			}
			return writeTexture(t, &dstCopy, data, &layout, size)
		})
	})
}

// CommandEncoderCopyTextureToBuffer records a texture to buffer copy.
func (b *Backend) CommandEncoderCopyTextureToBuffer(id gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyBuffer, size gputypes.Extent3D) {
	b.encoder(id, "copy texture to buffer", func(e *commandEncoder) {
		r := &e.recorder
		t := b.copyTexture(r, src.Texture, gputypes.TextureUsageCopySrc)
		d := b.copyBuffer(r, dst.Buffer, gputypes.BufferUsageCopyDst, dst.Layout.Offset, 0)
		if t == nil || d == nil {
			return
		}
		if _, err := copyRuns(t, src, &dst.Layout, size); err != nil {
			r.errs = append(r.errs, err)
			return
		}
		layout, srcCopy := dst.Layout, *src
		r.record(func() error {
			data, err := d.read(0, d.size)
			if err != nil {
				return err
			}
			if err := readTexture(t, &srcCopy, data, &layout, size); err != nil {
				return err
			}
			return d.write(0, data)
		})
	})
}

// CommandEncoderCopyTextureToTexture records a texture copy. Both
// textures must share a format.
func (b *Backend) CommandEncoderCopyTextureToTexture(id gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	b.encoder(id, "copy texture to texture", func(e *commandEncoder) {
		r := &e.recorder
		s := b.copyTexture(r, src.Texture, gputypes.TextureUsageCopySrc)
		d := b.copyTexture(r, dst.Texture, gputypes.TextureUsageCopyDst)
		if s == nil || d == nil {
			return
		}
		if s.format != d.format {
			r.fail("texture copy from %s to %s", s.format, d.format)
			return
		}
		layout := gpucore.TextureDataLayout{
			BytesPerRow:  size.Width * s.texel,
			RowsPerImage: size.Height,
		}
		for _, c := range []struct {
			t  *texture
			at *gpucore.ImageCopyTexture
		}{{s, src}, {d, dst}} {
			if _, err := copyRuns(c.t, c.at, &layout, size); err != nil {
				r.errs = append(r.errs, err)
				return
			}
		}
		srcCopy, dstCopy := *src, *dst
		r.record(func() error {
			data := make([]byte, uint64(layout.BytesPerRow)*uint64(size.Height)*uint64(size.DepthOrArrayLayers))
			if err := readTexture(s, &srcCopy, data, &layout, size); err != nil {
				return err
			}
			return writeTexture(d, &dstCopy, data, &layout, size)
		})
	})
}

// CommandEncoderInsertDebugMarker is a no-op.
func (b *Backend) CommandEncoderInsertDebugMarker(id gpucore.CommandEncoderID, _ string) {
	b.encoder(id, "insert debug marker", func(*commandEncoder) {})
}

// CommandEncoderPushDebugGroup opens a debug group.
func (b *Backend) CommandEncoderPushDebugGroup(id gpucore.CommandEncoderID, _ string) {
	b.encoder(id, "push debug group", func(e *commandEncoder) { e.recorder.push() })
}

// CommandEncoderPopDebugGroup closes a debug group.
func (b *Backend) CommandEncoderPopDebugGroup(id gpucore.CommandEncoderID) {
	b.encoder(id, "pop debug group", func(e *commandEncoder) { e.recorder.pop() })
}

// CommandEncoderFinish consumes the encoder. Recording errors are
// returned joined.
func (b *Backend) CommandEncoderFinish(id gpucore.CommandEncoderID, desc *gpucore.CommandBufferDescriptor) (gpucore.CommandBufferID, error) {
	e, ok := remove(b, "command encoder", b.encoders, id)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: command encoder %d", ErrInvalidHandle, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	r := &e.recorder
	if e.passOpen {
		r.fail("finish with an open pass")
	}
	if r.debugDepth != 0 {
		r.fail("finish with %d open debug groups", r.debugDepth)
	}
	if len(r.errs) > 0 {
		return gpucore.InvalidID, errors.Wrapf(errors.Join(r.errs...), "command encoder %q", e.label)
	}
	cb := &commandBuffer{label: desc.Label, cmds: r.cmds}
	return insert(b, b.commandBuffers, cb), nil
}

// CommandEncoderDrop discards an unfinished encoder.
func (b *Backend) CommandEncoderDrop(id gpucore.CommandEncoderID) {
	remove(b, "command encoder", b.encoders, id)
}

// CommandBufferDrop discards an unsubmitted command buffer.
func (b *Backend) CommandBufferDrop(id gpucore.CommandBufferID) {
	remove(b, "command buffer", b.commandBuffers, id)
}

// QueueSubmit runs the command buffers in order. Every buffer is
// consumed, including after an error.
func (b *Backend) QueueSubmit(_ gpucore.QueueID, ids []gpucore.CommandBufferID) error {
	cbs := make([]*commandBuffer, 0, len(ids))
	var errs []error
	for _, id := range ids {
		cb, ok := remove(b, "command buffer", b.commandBuffers, id)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: command buffer %d", ErrInvalidHandle, id))
			continue
		}
		cbs = append(cbs, cb)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	b.stats.submissions.Add(1)
	for _, cb := range cbs {
		for _, c := range cb.cmds {
			if err := c(); err != nil {
				errs = append(errs, errors.Wrapf(err, "command buffer %q", cb.label))
			}
		}
	}
	b.log().Debug("memory: submitted", "buffers", len(cbs), "errors", len(errs))
	return errors.Join(errs...)
}

// =============================================================================
// Render state
// =============================================================================

// renderState validates the recording subset shared by render passes and
// bundle encoders.
type renderState struct {
	b *Backend
	recorder

	colorFormats []gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat

	pipeline    *renderPipeline
	groups      map[uint32]*bindGroup
	vertex      map[uint32]bool
	indexBuffer *buffer
}

func newRenderState(b *Backend, colors []gputypes.TextureFormat, depth gputypes.TextureFormat) renderState {
	return renderState{
		b:            b,
		colorFormats: colors,
		depthFormat:  depth,
		groups:       make(map[uint32]*bindGroup),
		vertex:       make(map[uint32]bool),
	}
}

func (s *renderState) SetPipeline(id gpucore.RenderPipelineID) {
	p, ok := lookup(s.b, s.b.renderPipelines, id)
	if !ok {
		s.fail("unknown render pipeline %d", id)
		return
	}
	if !slices.Equal(p.colorFormats, s.colorFormats) {
		s.fail("pipeline %q targets %v, pass has %v", p.label, p.colorFormats, s.colorFormats)
		return
	}
	if p.depthFormat != s.depthFormat {
		s.fail("pipeline %q depth format %s, pass has %s", p.label, p.depthFormat, s.depthFormat)
		return
	}
	s.pipeline = p
}

func (s *renderState) SetBindGroup(index uint32, id gpucore.BindGroupID, _ []uint32) {
	s.groups[index] = setBindGroup(s.b, &s.recorder, index, id)
}

func setBindGroup(b *Backend, r *recorder, index uint32, id gpucore.BindGroupID) *bindGroup {
	if index >= b.cfg.limits.MaxBindGroups {
		r.fail("bind group index %d >= %d", index, b.cfg.limits.MaxBindGroups)
		return nil
	}
	g, ok := lookup(b, b.bindGroups, id)
	if !ok {
		r.fail("unknown bind group %d", id)
		return nil
	}
	return g
}

func (s *renderState) SetIndexBuffer(id gpucore.BufferID, _ gputypes.IndexFormat, offset, size uint64) {
	s.indexBuffer = s.vertexOrIndex(id, gputypes.BufferUsageIndex, offset, size)
}

func (s *renderState) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset, size uint64) {
	if slot >= s.b.cfg.limits.MaxVertexBuffers {
		s.fail("vertex buffer slot %d >= %d", slot, s.b.cfg.limits.MaxVertexBuffers)
		return
	}
	s.vertex[slot] = s.vertexOrIndex(id, gputypes.BufferUsageVertex, offset, size) != nil
}

func (s *renderState) vertexOrIndex(id gpucore.BufferID, usage gputypes.BufferUsage, offset, size uint64) *buffer {
	buf, ok := lookup(s.b, s.b.buffers, id)
	switch {
	case !ok:
		s.fail("unknown buffer %d", id)
	case !buf.usage.Contains(usage):
		s.fail("buffer %q lacks usage %#x", buf.label, usage)
	case offset > buf.size || size > buf.size-offset:
		s.fail("range [%d, %d) outside buffer %q", offset, offset+size, buf.label)
	default:
		return buf
	}
	return nil
}

func (s *renderState) SetPushConstants(stages gpucore.ShaderStages, offset uint32, data []uint32) {
	if s.pipeline == nil {
		s.fail("set push constants with no pipeline")
		return
	}
	if err := s.pipeline.layout.checkPushConstants(stages, offset, len(data)); err != nil {
		s.errs = append(s.errs, err)
	}
}

// checkBindings verifies that every group of layout is bound compatibly.
func checkBindings(r *recorder, layout *pipelineLayout, groups map[uint32]*bindGroup) bool {
	for i, want := range layout.groups {
		g := groups[uint32(i)]
		if g == nil {
			r.fail("bind group %d not set", i)
			return false
		}
		if !g.layout.compatible(want) {
			r.fail("bind group %q at %d is incompatible with the pipeline", g.label, i)
			return false
		}
	}
	return true
}

func (s *renderState) ready(op string, indexed bool) bool {
	if s.pipeline == nil {
		s.fail("%s with no pipeline", op)
		return false
	}
	if !checkBindings(&s.recorder, s.pipeline.layout, s.groups) {
		return false
	}
	for slot := range uint32(s.pipeline.vertexBuffers) {
		if !s.vertex[slot] {
			s.fail("%s with vertex buffer %d unset", op, slot)
			return false
		}
	}
	if indexed && s.indexBuffer == nil {
		s.fail("%s with no index buffer", op)
		return false
	}
	return true
}

func (s *renderState) indirect(id gpucore.BufferID, offset, argSize uint64, count uint32) bool {
	buf, ok := lookup(s.b, s.b.buffers, id)
	switch {
	case !ok:
		s.fail("unknown indirect buffer %d", id)
	case !buf.usage.Contains(gputypes.BufferUsageIndirect):
		s.fail("buffer %q lacks usage %#x", buf.label, gputypes.BufferUsageIndirect)
	case offset%4 != 0:
		s.fail("indirect offset %d not a multiple of 4", offset)
	case offset+argSize*uint64(count) > buf.size:
		s.fail("indirect arguments outside buffer %q", buf.label)
	default:
		return true
	}
	return false
}

func (s *renderState) draw(n uint32) {
	b := s.b
	s.record(func() error {
		b.stats.draws.Add(int64(n))
		return nil
	})
}

func (s *renderState) Draw(_, _, _, _ uint32) {
	if s.ready("draw", false) {
		s.draw(1)
	}
}

func (s *renderState) DrawIndexed(_, _, _ uint32, _ int32, _ uint32) {
	if s.ready("draw indexed", true) {
		s.draw(1)
	}
}

func (s *renderState) DrawIndirect(id gpucore.BufferID, offset uint64) {
	if s.ready("draw indirect", false) && s.indirect(id, offset, drawIndirectSize, 1) {
		s.draw(1)
	}
}

func (s *renderState) DrawIndexedIndirect(id gpucore.BufferID, offset uint64) {
	if s.ready("draw indexed indirect", true) && s.indirect(id, offset, drawIndexedIndirectSize, 1) {
		s.draw(1)
	}
}

// =============================================================================
// Render pass
// =============================================================================

type renderPass struct {
	renderState
	label string
}

var _ gpucore.RenderPassEncoder = (*renderPass)(nil)

// CommandEncoderBeginRenderPass opens a render pass. Clears run when the
// pass is submitted.
func (b *Backend) CommandEncoderBeginRenderPass(id gpucore.CommandEncoderID, desc *gpucore.RenderPassDescriptor) gpucore.RenderPassEncoder {
	var r recorder
	colors := make([]gputypes.TextureFormat, len(desc.ColorAttachments))
	for i, a := range desc.ColorAttachments {
		v, ok := lookup(b, b.views, a.View)
		if !ok {
			r.fail("unknown color attachment view %d", a.View)
			continue
		}
		colors[i] = v.format
		if v.texture.usage&gputypes.TextureUsageRenderAttachment == 0 {
			r.fail("color attachment %q lacks usage %#x", v.texture.label, gputypes.TextureUsageRenderAttachment)
		}
		if a.LoadOp == gputypes.LoadOpClear {
			texel := encodeClear(v.format, a.ClearValue)
			r.record(func() error {
				v.clear(texel)
				return nil
			})
		}
	}
	var depth gputypes.TextureFormat
	if ds := desc.DepthStencilAttachment; ds != nil {
		if v, ok := lookup(b, b.views, ds.View); ok {
			depth = v.format
		} else {
			r.fail("unknown depth attachment view %d", ds.View)
		}
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		r.fail("render pass %q has no attachments", desc.Label)
	}

	p := &renderPass{renderState: newRenderState(b, colors, depth), label: desc.Label}
	p.recorder = r
	b.encoder(id, "begin render pass", func(e *commandEncoder) { e.passOpen = true })
	return p
}

// CommandEncoderEndRenderPass appends the pass to the encoder.
func (b *Backend) CommandEncoderEndRenderPass(id gpucore.CommandEncoderID, pass gpucore.RenderPassEncoder) {
	p, ok := pass.(*renderPass)
	if !ok {
		b.log().Warn("memory: foreign render pass", "type", fmt.Sprintf("%T", pass))
		return
	}
	b.endPass(id, "render pass", &p.recorder)
}

func (b *Backend) endPass(id gpucore.CommandEncoderID, kind string, r *recorder) {
	e, ok := lookup(b, b.encoders, id)
	if !ok {
		b.log().Warn("memory: end pass on unknown encoder", "kind", kind, "id", uint64(id))
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.passOpen {
		e.recorder.fail("end %s with no open pass", kind)
	}
	e.passOpen = false
	e.recorder.merge(kind, r)
}

func (p *renderPass) MultiDrawIndirect(id gpucore.BufferID, offset uint64, count uint32) {
	if p.ready("multi draw indirect", false) && p.indirect(id, offset, drawIndirectSize, count) {
		p.draw(count)
	}
}

func (p *renderPass) MultiDrawIndexedIndirect(id gpucore.BufferID, offset uint64, count uint32) {
	if p.ready("multi draw indexed indirect", true) && p.indirect(id, offset, drawIndexedIndirectSize, count) {
		p.draw(count)
	}
}

func (p *renderPass) MultiDrawIndirectCount(id gpucore.BufferID, offset uint64, countBuffer gpucore.BufferID, countOffset uint64, maxCount uint32) {
	p.multiDrawCount("multi draw indirect count", false, drawIndirectSize, id, offset, countBuffer, countOffset, maxCount)
}

func (p *renderPass) MultiDrawIndexedIndirectCount(id gpucore.BufferID, offset uint64, countBuffer gpucore.BufferID, countOffset uint64, maxCount uint32) {
	p.multiDrawCount("multi draw indexed indirect count", true, drawIndexedIndirectSize, id, offset, countBuffer, countOffset, maxCount)
}

// multiDrawCount reads the draw count from countBuffer when submitted.
func (p *renderPass) multiDrawCount(op string, indexed bool, argSize uint64, id gpucore.BufferID, offset uint64, countBuffer gpucore.BufferID, countOffset uint64, maxCount uint32) {
	if !p.ready(op, indexed) || !p.indirect(id, offset, argSize, maxCount) || !p.indirect(countBuffer, countOffset, 4, 1) {
		return
	}
	cb, _ := lookup(p.b, p.b.buffers, countBuffer)
	b := p.b
	p.record(func() error {
		raw, err := cb.read(countOffset, 4)
		if err != nil {
			return err
		}
		n := min(binary.LittleEndian.Uint32(raw), maxCount)
		b.stats.draws.Add(int64(n))
		return nil
	})
}

func (p *renderPass) SetBlendConstant(gputypes.Color) {}

func (p *renderPass) SetScissorRect(_, _, width, height uint32) {
	if width == 0 || height == 0 {
		p.fail("empty scissor rect")
	}
}

func (p *renderPass) SetViewport(_, _, width, height, minDepth, maxDepth float32) {
	if width <= 0 || height <= 0 || minDepth < 0 || maxDepth > 1 || minDepth > maxDepth {
		p.fail("invalid viewport %gx%g depth [%g, %g]", width, height, minDepth, maxDepth)
	}
}

func (p *renderPass) SetStencilReference(uint32) {}

func (p *renderPass) InsertDebugMarker(string) {}

func (p *renderPass) PushDebugGroup(string) { p.push() }

func (p *renderPass) PopDebugGroup() { p.pop() }

// ExecuteBundles replays bundles recorded for matching formats. Pipeline
// and binding state is reset afterwards.
func (p *renderPass) ExecuteBundles(ids []gpucore.RenderBundleID) {
	for _, id := range ids {
		rb, ok := lookup(p.b, p.b.bundles, id)
		if !ok {
			p.fail("unknown render bundle %d", id)
			continue
		}
		if !slices.Equal(rb.colorFormats, p.colorFormats) || rb.depthFormat != p.depthFormat {
			p.fail("render bundle %q formats do not match pass %q", rb.label, p.label)
			continue
		}
		p.cmds = append(p.cmds, rb.cmds...)
	}
	p.pipeline = nil
	p.indexBuffer = nil
	clear(p.groups)
	clear(p.vertex)
}

// =============================================================================
// Compute pass
// =============================================================================

type computePass struct {
	b *Backend
	recorder
	pipeline *computePipeline
	groups   map[uint32]*bindGroup
}

var _ gpucore.ComputePassEncoder = (*computePass)(nil)

// CommandEncoderBeginComputePass opens a compute pass.
func (b *Backend) CommandEncoderBeginComputePass(id gpucore.CommandEncoderID, _ *gpucore.ComputePassDescriptor) gpucore.ComputePassEncoder {
	b.encoder(id, "begin compute pass", func(e *commandEncoder) { e.passOpen = true })
	return &computePass{b: b, groups: make(map[uint32]*bindGroup)}
}

// CommandEncoderEndComputePass appends the pass to the encoder.
func (b *Backend) CommandEncoderEndComputePass(id gpucore.CommandEncoderID, pass gpucore.ComputePassEncoder) {
	p, ok := pass.(*computePass)
	if !ok {
		b.log().Warn("memory: foreign compute pass", "type", fmt.Sprintf("%T", pass))
		return
	}
	b.endPass(id, "compute pass", &p.recorder)
}

func (p *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	cp, ok := lookup(p.b, p.b.computePipelines, id)
	if !ok {
		p.fail("unknown compute pipeline %d", id)
		return
	}
	p.pipeline = cp
}

func (p *computePass) SetBindGroup(index uint32, id gpucore.BindGroupID, _ []uint32) {
	p.groups[index] = setBindGroup(p.b, &p.recorder, index, id)
}

func (p *computePass) SetPushConstants(offset uint32, data []uint32) {
	if p.pipeline == nil {
		p.fail("set push constants with no pipeline")
		return
	}
	if err := p.pipeline.layout.checkPushConstants(gputypes.ShaderStageCompute, offset, len(data)); err != nil {
		p.errs = append(p.errs, err)
	}
}

func (p *computePass) InsertDebugMarker(string) {}

func (p *computePass) PushDebugGroup(string) { p.push() }

func (p *computePass) PopDebugGroup() { p.pop() }

func (p *computePass) ready(op string) bool {
	if p.pipeline == nil {
		p.fail("%s with no pipeline", op)
		return false
	}
	return checkBindings(&p.recorder, p.pipeline.layout, p.groups)
}

func (p *computePass) dispatch() {
	b := p.b
	p.record(func() error {
		b.stats.dispatches.Add(1)
		return nil
	})
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if !p.ready("dispatch") {
		return
	}
	if limit := p.b.cfg.limits.MaxComputeWorkgroupsPerDimension; x > limit || y > limit || z > limit {
		p.fail("dispatch %dx%dx%d exceeds %d per dimension", x, y, z, limit)
		return
	}
	p.dispatch()
}

func (p *computePass) DispatchIndirect(id gpucore.BufferID, offset uint64) {
	if !p.ready("dispatch indirect") {
		return
	}
	buf, ok := lookup(p.b, p.b.buffers, id)
	switch {
	case !ok:
		p.fail("unknown indirect buffer %d", id)
	case !buf.usage.Contains(gputypes.BufferUsageIndirect):
		p.fail("buffer %q lacks usage %#x", buf.label, gputypes.BufferUsageIndirect)
	case offset%4 != 0 || offset+dispatchIndirectSize > buf.size:
		p.fail("indirect arguments at %d outside buffer %q", offset, buf.label)
	default:
		p.dispatch()
	}
}

// =============================================================================
// Render bundles
// =============================================================================

type bundleEncoder struct {
	renderState
	label string
}

var _ gpucore.RenderBundleEncoder = (*bundleEncoder)(nil)

// DeviceCreateRenderBundleEncoder creates a bundle encoder for the given
// attachment formats.
func (b *Backend) DeviceCreateRenderBundleEncoder(deviceID gpucore.DeviceID, desc *gpucore.RenderBundleEncoderDescriptor) (gpucore.RenderBundleEncoder, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return nil, err
	}
	if len(desc.ColorFormats) == 0 && desc.DepthStencilFormat == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: render bundle %q has no attachment formats", ErrInvalidDescriptor, desc.Label)
	}
	if uint32(len(desc.ColorFormats)) > d.limits.MaxColorAttachments {
		return nil, fmt.Errorf("%w: %d color formats", ErrLimitExceeded, len(desc.ColorFormats))
	}
	return &bundleEncoder{
		renderState: newRenderState(b, slices.Clone(desc.ColorFormats), desc.DepthStencilFormat),
		label:       desc.Label,
	}, nil
}

// RenderBundleEncoderFinish consumes the bundle encoder.
func (b *Backend) RenderBundleEncoderFinish(enc gpucore.RenderBundleEncoder, desc *gpucore.RenderBundleDescriptor) (gpucore.RenderBundleID, error) {
	be, ok := enc.(*bundleEncoder)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: foreign render bundle encoder %T", ErrInvalidHandle, enc)
	}
	if be.debugDepth != 0 {
		be.fail("render bundle %q has %d open debug groups", be.label, be.debugDepth)
	}
	if len(be.errs) > 0 {
		return gpucore.InvalidID, errors.Wrapf(errors.Join(be.errs...), "render bundle %q", be.label)
	}
	rb := &renderBundle{
		label:        desc.Label,
		colorFormats: be.colorFormats,
		depthFormat:  be.depthFormat,
		cmds:         be.cmds,
	}
	return insert(b, b.bundles, rb), nil
}

// RenderBundleDrop releases a render bundle.
func (b *Backend) RenderBundleDrop(id gpucore.RenderBundleID) {
	remove(b, "render bundle", b.bundles, id)
}
