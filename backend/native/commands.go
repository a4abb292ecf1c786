package native

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuapi/gpucore"
)

// Sizes of the indirect argument structs.
const (
	drawIndirectSize        = 16
	drawIndexedIndirectSize = 20
	dispatchIndirectSize    = 12
	copyAlignment           = 4
)

// recorder collects recording errors. hal records eagerly; invalid
// commands are dropped and reported when the recording is finished.
type recorder struct {
	errs       []error
	debugDepth int
}

func (r *recorder) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf("%w: "+format, append([]any{ErrRecording}, args...)...))
}

func (r *recorder) unsupported(op string) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrUnsupportedCommand, op))
}

func (r *recorder) push() { r.debugDepth++ }

func (r *recorder) pop() {
	if r.debugDepth == 0 {
		r.fail("pop debug group with no open group")
		return
	}
	r.debugDepth--
}

// merge appends the errors of a closed pass.
func (r *recorder) merge(kind string, o *recorder) {
	if o.debugDepth != 0 {
		r.fail("%s ended with %d open debug groups", kind, o.debugDepth)
	}
	r.errs = append(r.errs, o.errs...)
}

type commandEncoder struct {
	b      *Backend
	device *device
	raw    hal.CommandEncoder
	label  string

	mu       sync.Mutex
	recorder recorder
	passOpen bool
}

type commandBuffer struct {
	device  *device
	raw     hal.CommandBuffer
	encoder hal.CommandEncoder
	label   string
}

// free releases the command buffer and its encoder once the GPU is done
// with them.
func (cb *commandBuffer) free() {
	d := cb.device
	d.retire(func() {
		d.raw.FreeCommandBuffer(cb.raw)
		cb.encoder.Destroy()
	})
}

type renderBundle struct {
	device *device
	raw    hal.RenderBundle
	label  string
}

// DeviceCreateCommandEncoder creates a hal encoder and starts recording.
func (b *Backend) DeviceCreateCommandEncoder(deviceID gpucore.DeviceID, desc *gpucore.CommandEncoderDescriptor) (gpucore.CommandEncoderID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.raw.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: desc.Label})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create command encoder %q: %w", desc.Label, err)
	}
	if err := raw.BeginEncoding(desc.Label); err != nil {
		raw.Destroy()
		return gpucore.InvalidID, fmt.Errorf("failed to begin encoding %q: %w", desc.Label, err)
	}
	return insert(b, b.encoders, &commandEncoder{b: b, device: d, raw: raw, label: desc.Label}), nil
}

// encoder runs fn with the encoder locked. Unknown encoders are logged.
func (b *Backend) encoder(id gpucore.CommandEncoderID, op string, fn func(e *commandEncoder)) {
	e, ok := lookup(b, b.encoders, id)
	if !ok {
		b.log().Warn("native: command on unknown encoder", "op", op, "id", uint64(id))
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

func (b *Backend) copyTexture(r *recorder, c *gpucore.ImageCopyTexture, usage gputypes.TextureUsage, size gputypes.Extent3D) *texture {
	t, ok := lookup(b, b.textures, c.Texture)
	if !ok {
		r.fail("unknown texture %d", c.Texture)
		return nil
	}
	switch {
	case t.desc.Usage&usage == 0:
		r.fail("texture %q lacks usage %#x", t.desc.Label, usage)
	case c.MipLevel >= t.desc.MipLevelCount:
		r.fail("mip level %d of %d-level texture %q", c.MipLevel, t.desc.MipLevelCount, t.desc.Label)
	default:
		w := max(t.desc.Size.Width>>c.MipLevel, 1)
		h := max(t.desc.Size.Height>>c.MipLevel, 1)
		if c.Origin.X+size.Width > w || c.Origin.Y+size.Height > h {
			r.fail("copy region outside mip %d of texture %q (%dx%d)", c.MipLevel, t.desc.Label, w, h)
			return nil
		}
		return t
	}
	return nil
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
		e.raw.CopyBufferToBuffer(s.raw, d.raw, []hal.BufferCopy{{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size}})
	})
}

// CommandEncoderCopyBufferToTexture records a buffer to texture copy.
func (b *Backend) CommandEncoderCopyBufferToTexture(id gpucore.CommandEncoderID, src *gpucore.ImageCopyBuffer, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	b.encoder(id, "copy buffer to texture", func(e *commandEncoder) {
		r := &e.recorder
		s := b.copyBuffer(r, src.Buffer, gputypes.BufferUsageCopySrc, src.Layout.Offset, 0)
		t := b.copyTexture(r, dst, gputypes.TextureUsageCopyDst, size)
		if s == nil || t == nil {
			return
		}
		e.raw.CopyBufferToTexture(s.raw, t.raw, []hal.BufferTextureCopy{{
			BufferLayout: halDataLayout(src.Layout),
			TextureBase:  halCopyTexture(t, dst),
			Size:         halExtent(size),
		}})
	})
}

// CommandEncoderCopyTextureToBuffer records a texture to buffer copy.
func (b *Backend) CommandEncoderCopyTextureToBuffer(id gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyBuffer, size gputypes.Extent3D) {
	b.encoder(id, "copy texture to buffer", func(e *commandEncoder) {
		r := &e.recorder
		t := b.copyTexture(r, src, gputypes.TextureUsageCopySrc, size)
		d := b.copyBuffer(r, dst.Buffer, gputypes.BufferUsageCopyDst, dst.Layout.Offset, 0)
		if t == nil || d == nil {
			return
		}
		e.raw.CopyTextureToBuffer(t.raw, d.raw, []hal.BufferTextureCopy{{
			BufferLayout: halDataLayout(dst.Layout),
			TextureBase:  halCopyTexture(t, src),
			Size:         halExtent(size),
		}})
	})
}

// CommandEncoderCopyTextureToTexture records a texture copy. Formats
// must match.
func (b *Backend) CommandEncoderCopyTextureToTexture(id gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	b.encoder(id, "copy texture to texture", func(e *commandEncoder) {
		r := &e.recorder
		s := b.copyTexture(r, src, gputypes.TextureUsageCopySrc, size)
		d := b.copyTexture(r, dst, gputypes.TextureUsageCopyDst, size)
		if s == nil || d == nil {
			return
		}
		if s.desc.Format != d.desc.Format {
			r.fail("texture copy from %s to %s", s.desc.Format, d.desc.Format)
			return
		}
		e.raw.CopyTextureToTexture(s.raw, d.raw, []hal.TextureCopy{{
			SrcBase: halCopyTexture(s, src),
			DstBase: halCopyTexture(d, dst),
			Size:    halExtent(size),
		}})
	})
}

// hal has no debug labels; markers and groups are only balance-checked.

func (b *Backend) CommandEncoderInsertDebugMarker(id gpucore.CommandEncoderID, _ string) {
	b.encoder(id, "insert debug marker", func(*commandEncoder) {})
}

func (b *Backend) CommandEncoderPushDebugGroup(id gpucore.CommandEncoderID, _ string) {
	b.encoder(id, "push debug group", func(e *commandEncoder) { e.recorder.push() })
}

func (b *Backend) CommandEncoderPopDebugGroup(id gpucore.CommandEncoderID) {
	b.encoder(id, "pop debug group", func(e *commandEncoder) { e.recorder.pop() })
}

// CommandEncoderFinish ends hal encoding. On recording errors the hal
// recording is discarded and the errors are returned joined.
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
		e.discard()
		return gpucore.InvalidID, errors.Wrapf(errors.Join(r.errs...), "command encoder %q", e.label)
	}
	raw, err := e.raw.EndEncoding()
	if err != nil {
		e.raw.Destroy()
		return gpucore.InvalidID, errors.Wrapf(err, "command encoder %q", e.label)
	}
	cb := &commandBuffer{device: e.device, raw: raw, encoder: e.raw, label: desc.Label}
	return insert(b, b.commandBuffers, cb), nil
}

// discard abandons the recording and destroys the hal encoder.
func (e *commandEncoder) discard() {
	e.raw.DiscardEncoding()
	e.raw.Destroy()
}

// CommandEncoderDrop discards an unfinished encoder.
func (b *Backend) CommandEncoderDrop(id gpucore.CommandEncoderID) {
	e, ok := remove(b, "command encoder", b.encoders, id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discard()
}

// CommandBufferDrop frees an unsubmitted command buffer.
func (b *Backend) CommandBufferDrop(id gpucore.CommandBufferID) {
	if cb, ok := remove(b, "command buffer", b.commandBuffers, id); ok {
		cb.free()
	}
}

// QueueSubmit submits the command buffers in one hal submission. Every
// buffer is consumed, including after an error.
func (b *Backend) QueueSubmit(queueID gpucore.QueueID, ids []gpucore.CommandBufferID) error {
	d, ok := lookup(b, b.queues, queueID)
	if !ok {
		return fmt.Errorf("%w: queue %d", ErrInvalidHandle, queueID)
	}
	cbs := make([]*commandBuffer, 0, len(ids))
	var errs []error
	for _, id := range ids {
		cb, ok := remove(b, "command buffer", b.commandBuffers, id)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: command buffer %d", ErrInvalidHandle, id))
		case cb.device != d:
			errs = append(errs, fmt.Errorf("%w: command buffer %q belongs to another device", ErrInvalidHandle, cb.label))
			cb.free()
		default:
			cbs = append(cbs, cb)
		}
	}
	if len(errs) > 0 {
		for _, cb := range cbs {
			cb.free()
		}
		return errors.Join(errs...)
	}

	raw := make([]hal.CommandBuffer, len(cbs))
	for i, cb := range cbs {
		raw[i] = cb.raw
	}
	var index uint64
	err := b.withQueue(func() error {
		var err error
		index, err = d.queue.Submit(raw)
		return err
	})
	if err != nil {
		for _, cb := range cbs {
			cb.free()
		}
		if errors.Is(err, hal.ErrDeviceLost) {
			d.lost.Store(true)
		}
		return errors.Wrapf(err, "submit %d command buffers", len(cbs))
	}

	d.mu.Lock()
	d.lastSubmit = max(d.lastSubmit, index)
	d.mu.Unlock()
	for _, cb := range cbs {
		cb.free()
	}
	b.log().Debug("native: submitted", "device", d.label, "buffers", len(cbs), "index", index)
	return nil
}

// =============================================================================
// Render state
// =============================================================================

// halRenderEncoder is the subset shared by hal render passes and bundle
// encoders.
type halRenderEncoder interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64)
	SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

// renderState records the commands common to passes and bundles. A nil
// raw encoder means the pass failed to open; commands are then dropped.
type renderState struct {
	recorder
	b        *Backend
	raw      halRenderEncoder
	pipeline *renderPipeline
	indexed  bool
}

func (s *renderState) SetPipeline(id gpucore.RenderPipelineID) {
	p, ok := lookup(s.b, s.b.renderPipelines, id)
	if !ok {
		s.fail("unknown render pipeline %d", id)
		return
	}
	s.pipeline = p
	if s.raw != nil {
		s.raw.SetPipeline(p.raw)
	}
}

func (s *renderState) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	if g := setBindGroup(s.b, &s.recorder, index, id); g != nil && s.raw != nil {
		s.raw.SetBindGroup(index, g.raw, offsets)
	}
}

func setBindGroup(b *Backend, r *recorder, index uint32, id gpucore.BindGroupID) *bindGroup {
	g, ok := lookup(b, b.bindGroups, id)
	if !ok {
		r.fail("unknown bind group %d", id)
		return nil
	}
	if index >= g.device.limits.MaxBindGroups {
		r.fail("bind group index %d, max %d", index, g.device.limits.MaxBindGroups)
		return nil
	}
	return g
}

// SetIndexBuffer binds from offset to the end of the buffer; hal takes no
// size, so size only participates in validation.
func (s *renderState) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset, size uint64) {
	buf := s.vertexOrIndex(id, gputypes.BufferUsageIndex, offset, size)
	if buf == nil {
		return
	}
	s.indexed = true
	if s.raw != nil {
		s.raw.SetIndexBuffer(buf.raw, format, offset)
	}
}

func (s *renderState) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset, size uint64) {
	buf := s.vertexOrIndex(id, gputypes.BufferUsageVertex, offset, size)
	if buf == nil {
		return
	}
	if s.raw != nil {
		s.raw.SetVertexBuffer(slot, buf.raw, offset)
	}
}

func (s *renderState) vertexOrIndex(id gpucore.BufferID, usage gputypes.BufferUsage, offset, size uint64) *buffer {
	buf, ok := lookup(s.b, s.b.buffers, id)
	switch {
	case !ok:
		s.fail("unknown buffer %d", id)
	case !buf.usage.Contains(usage):
		s.fail("buffer %q lacks usage %#x", buf.label, usage)
	case offset > buf.size || size > buf.size-offset:
		s.fail("range at %d outside buffer %q", offset, buf.label)
	default:
		return buf
	}
	return nil
}

func (s *renderState) SetPushConstants(gpucore.ShaderStages, uint32, []uint32) {
	s.unsupported("set push constants")
}

func (s *renderState) ready(op string, indexed bool) bool {
	if s.pipeline == nil {
		s.fail("%s with no pipeline", op)
		return false
	}
	if indexed && !s.indexed {
		s.fail("%s with no index buffer", op)
		return false
	}
	return s.raw != nil
}

func (s *renderState) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if s.ready("draw", false) {
		s.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (s *renderState) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if s.ready("draw indexed", true) {
		s.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	}
}

// indirect checks count argument structs of argSize at offset.
func (s *renderState) indirect(id gpucore.BufferID, offset, argSize uint64, count uint32) *buffer {
	buf, ok := lookup(s.b, s.b.buffers, id)
	switch {
	case !ok:
		s.fail("unknown indirect buffer %d", id)
	case !buf.usage.Contains(gputypes.BufferUsageIndirect):
		s.fail("buffer %q lacks usage %#x", buf.label, gputypes.BufferUsageIndirect)
	case offset%4 != 0 || offset+argSize*uint64(count) > buf.size:
		s.fail("indirect arguments at %d outside buffer %q", offset, buf.label)
	default:
		return buf
	}
	return nil
}

// =============================================================================
// Render passes
// =============================================================================

type renderPass struct {
	renderState
	pass  hal.RenderPassEncoder
	label string
}

var _ gpucore.RenderPassEncoder = (*renderPass)(nil)

// CommandEncoderBeginRenderPass opens a hal render pass. When an
// attachment cannot be resolved the pass still opens on the gpucore side
// so that the state machine stays consistent, and the error is reported
// at finish.
func (b *Backend) CommandEncoderBeginRenderPass(id gpucore.CommandEncoderID, desc *gpucore.RenderPassDescriptor) gpucore.RenderPassEncoder {
	p := &renderPass{renderState: renderState{b: b}, label: desc.Label}
	hd := &hal.RenderPassDescriptor{Label: desc.Label}
	for _, a := range desc.ColorAttachments {
		v, ok := lookup(b, b.views, a.View)
		if !ok {
			p.fail("unknown color attachment view %d", a.View)
			continue
		}
		if v.texture.desc.Usage&gputypes.TextureUsageRenderAttachment == 0 {
			p.fail("color attachment %q lacks usage %#x", v.texture.desc.Label, gputypes.TextureUsageRenderAttachment)
		}
		ca := hal.RenderPassColorAttachment{View: v.raw, LoadOp: a.LoadOp, StoreOp: a.StoreOp, ClearValue: a.ClearValue}
		if a.ResolveTarget != gpucore.InvalidID {
			rt, ok := lookup(b, b.views, a.ResolveTarget)
			if !ok {
				p.fail("unknown resolve target view %d", a.ResolveTarget)
				continue
			}
			ca.ResolveTarget = rt.raw
		}
		hd.ColorAttachments = append(hd.ColorAttachments, ca)
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		v, ok := lookup(b, b.views, ds.View)
		if ok {
			hd.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
				View:              v.raw,
				DepthLoadOp:       ds.DepthLoadOp,
				DepthStoreOp:      ds.DepthStoreOp,
				DepthClearValue:   ds.DepthClearValue,
				DepthReadOnly:     ds.DepthReadOnly,
				StencilLoadOp:     ds.StencilLoadOp,
				StencilStoreOp:    ds.StencilStoreOp,
				StencilClearValue: ds.StencilClearValue,
				StencilReadOnly:   ds.StencilReadOnly,
			}
		} else {
			p.fail("unknown depth attachment view %d", ds.View)
		}
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		p.fail("render pass %q has no attachments", desc.Label)
	}

	b.encoder(id, "begin render pass", func(e *commandEncoder) {
		e.passOpen = true
		if len(p.errs) == 0 {
			p.pass = e.raw.BeginRenderPass(hd)
			p.raw = p.pass
		}
	})
	return p
}

// CommandEncoderEndRenderPass ends the hal pass and merges its errors
// into the encoder.
func (b *Backend) CommandEncoderEndRenderPass(id gpucore.CommandEncoderID, pass gpucore.RenderPassEncoder) {
	p, ok := pass.(*renderPass)
	if !ok {
		b.log().Warn("native: foreign render pass", "type", fmt.Sprintf("%T", pass))
		return
	}
	if p.pass != nil {
		p.pass.End()
		p.pass, p.raw = nil, nil
	}
	b.endPass(id, "render pass", &p.recorder)
}

func (b *Backend) endPass(id gpucore.CommandEncoderID, kind string, r *recorder) {
	e, ok := lookup(b, b.encoders, id)
	if !ok {
		b.log().Warn("native: end pass on unknown encoder", "kind", kind, "id", uint64(id))
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

func (p *renderPass) DrawIndirect(id gpucore.BufferID, offset uint64) {
	p.MultiDrawIndirect(id, offset, 1)
}

func (p *renderPass) DrawIndexedIndirect(id gpucore.BufferID, offset uint64) {
	p.MultiDrawIndexedIndirect(id, offset, 1)
}

// MultiDrawIndirect issues one hal indirect draw per argument struct.
func (p *renderPass) MultiDrawIndirect(id gpucore.BufferID, offset uint64, count uint32) {
	if !p.ready("draw indirect", false) {
		return
	}
	buf := p.indirect(id, offset, drawIndirectSize, count)
	if buf == nil {
		return
	}
	for i := range uint64(count) {
		p.pass.DrawIndirect(buf.raw, offset+i*drawIndirectSize)
	}
}

// MultiDrawIndexedIndirect issues one hal indexed indirect draw per
// argument struct.
func (p *renderPass) MultiDrawIndexedIndirect(id gpucore.BufferID, offset uint64, count uint32) {
	if !p.ready("draw indexed indirect", true) {
		return
	}
	buf := p.indirect(id, offset, drawIndexedIndirectSize, count)
	if buf == nil {
		return
	}
	for i := range uint64(count) {
		p.pass.DrawIndexedIndirect(buf.raw, offset+i*drawIndexedIndirectSize)
	}
}

func (p *renderPass) MultiDrawIndirectCount(gpucore.BufferID, uint64, gpucore.BufferID, uint64, uint32) {
	p.unsupported("multi draw indirect count")
}

func (p *renderPass) MultiDrawIndexedIndirectCount(gpucore.BufferID, uint64, gpucore.BufferID, uint64, uint32) {
	p.unsupported("multi draw indexed indirect count")
}

func (p *renderPass) SetBlendConstant(color gputypes.Color) {
	if p.pass != nil {
		p.pass.SetBlendConstant(&color)
	}
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	if width == 0 || height == 0 {
		p.fail("empty scissor rect %dx%d", width, height)
		return
	}
	if p.pass != nil {
		p.pass.SetScissorRect(x, y, width, height)
	}
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	if width <= 0 || height <= 0 || minDepth < 0 || maxDepth > 1 || minDepth > maxDepth {
		p.fail("invalid viewport %gx%g depth [%g, %g]", width, height, minDepth, maxDepth)
		return
	}
	if p.pass != nil {
		p.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
	}
}

func (p *renderPass) SetStencilReference(reference uint32) {
	if p.pass != nil {
		p.pass.SetStencilReference(reference)
	}
}

func (p *renderPass) InsertDebugMarker(string) {}

func (p *renderPass) PushDebugGroup(string) { p.push() }

func (p *renderPass) PopDebugGroup() { p.pop() }

// ExecuteBundles replays bundles. The pass pipeline and bindings are
// undefined afterwards.
func (p *renderPass) ExecuteBundles(ids []gpucore.RenderBundleID) {
	for _, id := range ids {
		rb, ok := lookup(p.b, p.b.bundles, id)
		if !ok {
			p.fail("unknown render bundle %d", id)
			continue
		}
		if p.pass != nil {
			p.pass.ExecuteBundle(rb.raw)
		}
	}
	p.pipeline = nil
	p.indexed = false
}

// =============================================================================
// Compute passes
// =============================================================================

type computePass struct {
	recorder
	b        *Backend
	pass     hal.ComputePassEncoder
	pipeline *computePipeline
}

var _ gpucore.ComputePassEncoder = (*computePass)(nil)

// CommandEncoderBeginComputePass opens a hal compute pass.
func (b *Backend) CommandEncoderBeginComputePass(id gpucore.CommandEncoderID, desc *gpucore.ComputePassDescriptor) gpucore.ComputePassEncoder {
	p := &computePass{b: b}
	b.encoder(id, "begin compute pass", func(e *commandEncoder) {
		e.passOpen = true
		p.pass = e.raw.BeginComputePass(&hal.ComputePassDescriptor{Label: desc.Label})
	})
	return p
}

// CommandEncoderEndComputePass ends the hal pass and merges its errors
// into the encoder.
func (b *Backend) CommandEncoderEndComputePass(id gpucore.CommandEncoderID, pass gpucore.ComputePassEncoder) {
	p, ok := pass.(*computePass)
	if !ok {
		b.log().Warn("native: foreign compute pass", "type", fmt.Sprintf("%T", pass))
		return
	}
	if p.pass != nil {
		p.pass.End()
		p.pass = nil
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
	if p.pass != nil {
		p.pass.SetPipeline(cp.raw)
	}
}

func (p *computePass) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	if g := setBindGroup(p.b, &p.recorder, index, id); g != nil && p.pass != nil {
		p.pass.SetBindGroup(index, g.raw, offsets)
	}
}

func (p *computePass) SetPushConstants(uint32, []uint32) {
	p.unsupported("set push constants")
}

func (p *computePass) InsertDebugMarker(string) {}

func (p *computePass) PushDebugGroup(string) { p.push() }

func (p *computePass) PopDebugGroup() { p.pop() }

func (p *computePass) ready(op string) bool {
	if p.pipeline == nil {
		p.fail("%s with no pipeline", op)
		return false
	}
	return p.pass != nil
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if !p.ready("dispatch") {
		return
	}
	if limit := p.pipeline.device.limits.MaxComputeWorkgroupsPerDimension; limit > 0 && (x > limit || y > limit || z > limit) {
		p.fail("dispatch %dx%dx%d exceeds %d per dimension", x, y, z, limit)
		return
	}
	p.pass.Dispatch(x, y, z)
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
		p.pass.DispatchIndirect(buf.raw, offset)
	}
}

// =============================================================================
// Render bundles
// =============================================================================

type bundleEncoder struct {
	renderState
	device *device
	bundle hal.RenderBundleEncoder
	label  string
}

var _ gpucore.RenderBundleEncoder = (*bundleEncoder)(nil)

// DeviceCreateRenderBundleEncoder creates a hal bundle encoder for the
// given attachment formats.
func (b *Backend) DeviceCreateRenderBundleEncoder(deviceID gpucore.DeviceID, desc *gpucore.RenderBundleEncoderDescriptor) (gpucore.RenderBundleEncoder, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return nil, err
	}
	if len(desc.ColorFormats) == 0 && desc.DepthStencilFormat == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: render bundle %q has no attachment formats", ErrInvalidDescriptor, desc.Label)
	}
	if uint32(len(desc.ColorFormats)) > d.limits.MaxColorAttachments {
		return nil, fmt.Errorf("%w: %d color formats", ErrInvalidDescriptor, len(desc.ColorFormats))
	}
	raw, err := d.raw.CreateRenderBundleEncoder(&hal.RenderBundleEncoderDescriptor{
		Label:              desc.Label,
		ColorFormats:       desc.ColorFormats,
		DepthStencilFormat: desc.DepthStencilFormat,
		SampleCount:        max(desc.SampleCount, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render bundle encoder %q: %w", desc.Label, err)
	}
	return &bundleEncoder{renderState: renderState{b: b, raw: raw}, device: d, bundle: raw, label: desc.Label}, nil
}

func (e *bundleEncoder) DrawIndirect(gpucore.BufferID, uint64) {
	e.unsupported("draw indirect in a render bundle")
}

func (e *bundleEncoder) DrawIndexedIndirect(gpucore.BufferID, uint64) {
	e.unsupported("draw indexed indirect in a render bundle")
}

// RenderBundleEncoderFinish consumes the bundle encoder.
func (b *Backend) RenderBundleEncoderFinish(enc gpucore.RenderBundleEncoder, desc *gpucore.RenderBundleDescriptor) (gpucore.RenderBundleID, error) {
	be, ok := enc.(*bundleEncoder)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: foreign render bundle encoder %T", ErrInvalidHandle, enc)
	}
	raw := be.bundle.Finish()
	if be.debugDepth != 0 {
		be.fail("render bundle %q has %d open debug groups", be.label, be.debugDepth)
	}
	if len(be.errs) > 0 {
		be.device.raw.DestroyRenderBundle(raw)
		return gpucore.InvalidID, errors.Wrapf(errors.Join(be.errs...), "render bundle %q", be.label)
	}
	return insert(b, b.bundles, &renderBundle{device: be.device, raw: raw, label: desc.Label}), nil
}

// RenderBundleDrop destroys a bundle once pending work is done.
func (b *Backend) RenderBundleDrop(id gpucore.RenderBundleID) {
	rb, ok := remove(b, "render bundle", b.bundles, id)
	if !ok {
		return
	}
	d := rb.device
	d.retire(func() { d.raw.DestroyRenderBundle(rb.raw) })
}
