//go:build rust

package rust

import (
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Indirect argument sizes in bytes.
const (
	drawIndirectSize        = 16
	drawIndexedIndirectSize = 20
)

type commandEncoder struct {
	raw   *wgpu.CommandEncoder
	dev   *device
	label string

	inPass bool
	// err is the first recording error; Finish reports it.
	err error
}

func (e *commandEncoder) fail(err error) {
	if e.err == nil {
		e.err = errors.Mark(err, ErrRecording)
	}
}

func (b *Backend) DeviceCreateCommandEncoder(id gpucore.DeviceID, desc *gpucore.CommandEncoderDescriptor) (gpucore.CommandEncoderID, error) {
	d, err := b.device(id)
	if err != nil {
		return gpucore.InvalidID, err
	}
	var label string
	if desc != nil {
		label = desc.Label
	}
	raw, err := d.raw.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return gpucore.InvalidID, invalid(err, "rust: create command encoder %q", label)
	}
	return insert(b, b.encoders, &commandEncoder{raw: raw, dev: d, label: label}), nil
}

// encoder returns an encoder that is ready to record a command outside
// a pass. Misuse is recorded on the encoder.
func (b *Backend) encoder(id gpucore.CommandEncoderID, op string) *commandEncoder {
	e, ok := lookup(b, b.encoders, id)
	if !ok {
		b.log().Warn("rust: command on unknown encoder", "op", op, "encoder", uint64(id))
		return nil
	}
	if e.inPass {
		e.fail(errors.Newf("%s while a pass is open", op))
		return nil
	}
	return e
}

func (b *Backend) CommandEncoderCopyBufferToBuffer(id gpucore.CommandEncoderID, src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset uint64, size uint64) {
	e := b.encoder(id, "copy buffer to buffer")
	if e == nil {
		return
	}
	s, sok := lookup(b, b.buffers, src)
	d, dok := lookup(b, b.buffers, dst)
	if !sok || !dok {
		e.fail(errors.Wrapf(ErrInvalidHandle, "copy %d -> %d", src, dst))
		return
	}
	e.raw.CopyBufferToBuffer(s.raw, srcOffset, d.raw, dstOffset, size)
}

func (b *Backend) imageCopyBuffer(c *gpucore.ImageCopyBuffer) (*wgpu.ImageCopyBuffer, error) {
	buf, ok := lookup(b, b.buffers, c.Buffer)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "buffer %d", c.Buffer)
	}
	return &wgpu.ImageCopyBuffer{Buffer: buf.raw, Layout: dataLayout(c.Layout)}, nil
}

func (b *Backend) imageCopyTexture(c *gpucore.ImageCopyTexture) (*wgpu.ImageCopyTexture, error) {
	tex, ok := lookup(b, b.textures, c.Texture)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "texture %d", c.Texture)
	}
	return &wgpu.ImageCopyTexture{
		Texture:  tex,
		MipLevel: c.MipLevel,
		Origin:   wgpu.Origin3D{X: c.Origin.X, Y: c.Origin.Y, Z: c.Origin.Z},
		Aspect:   conv(aspects, c.Aspect),
	}, nil
}

func (b *Backend) CommandEncoderCopyBufferToTexture(id gpucore.CommandEncoderID, src *gpucore.ImageCopyBuffer, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	e := b.encoder(id, "copy buffer to texture")
	if e == nil {
		return
	}
	s, err := b.imageCopyBuffer(src)
	if err != nil {
		e.fail(err)
		return
	}
	d, err := b.imageCopyTexture(dst)
	if err != nil {
		e.fail(err)
		return
	}
	sz := extent(size)
	e.raw.CopyBufferToTexture(s, d, &sz)
}

func (b *Backend) CommandEncoderCopyTextureToBuffer(id gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyBuffer, size gputypes.Extent3D) {
	e := b.encoder(id, "copy texture to buffer")
	if e == nil {
		return
	}
	s, err := b.imageCopyTexture(src)
	if err != nil {
		e.fail(err)
		return
	}
	d, err := b.imageCopyBuffer(dst)
	if err != nil {
		e.fail(err)
		return
	}
	sz := extent(size)
	e.raw.CopyTextureToBuffer(s, d, &sz)
}

func (b *Backend) CommandEncoderCopyTextureToTexture(id gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	e := b.encoder(id, "copy texture to texture")
	if e == nil {
		return
	}
	s, err := b.imageCopyTexture(src)
	if err != nil {
		e.fail(err)
		return
	}
	d, err := b.imageCopyTexture(dst)
	if err != nil {
		e.fail(err)
		return
	}
	sz := extent(size)
	e.raw.CopyTextureToTexture(s, d, &sz)
}

func (b *Backend) CommandEncoderInsertDebugMarker(id gpucore.CommandEncoderID, label string) {
	if e := b.encoder(id, "insert debug marker"); e != nil {
		e.raw.InsertDebugMarker(label)
	}
}

func (b *Backend) CommandEncoderPushDebugGroup(id gpucore.CommandEncoderID, label string) {
	if e := b.encoder(id, "push debug group"); e != nil {
		e.raw.PushDebugGroup(label)
	}
}

func (b *Backend) CommandEncoderPopDebugGroup(id gpucore.CommandEncoderID) {
	if e := b.encoder(id, "pop debug group"); e != nil {
		e.raw.PopDebugGroup()
	}
}

// CommandEncoderBeginRenderPass returns a pass that forwards to
// wgpu-native. A pass begun on a misused encoder records nothing.
func (b *Backend) CommandEncoderBeginRenderPass(id gpucore.CommandEncoderID, desc *gpucore.RenderPassDescriptor) gpucore.RenderPassEncoder {
	e := b.encoder(id, "begin render pass")
	if e == nil {
		return &renderPass{b: b}
	}
	e.inPass = true
	p := &renderPass{b: b, enc: e}

	rd := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, a := range desc.ColorAttachments {
		v, ok := lookup(b, b.views, a.View)
		if !ok {
			e.fail(errors.Wrapf(ErrInvalidHandle, "color attachment view %d", a.View))
			return p
		}
		ca := wgpu.RenderPassColorAttachment{
			View:       v.raw,
			LoadOp:     conv(loadOps, a.LoadOp),
			StoreOp:    conv(storeOps, a.StoreOp),
			ClearValue: color(a.ClearValue),
		}
		if a.ResolveTarget != gpucore.InvalidID {
			r, ok := lookup(b, b.views, a.ResolveTarget)
			if !ok {
				e.fail(errors.Wrapf(ErrInvalidHandle, "resolve target %d", a.ResolveTarget))
				return p
			}
			ca.ResolveTarget = r.raw
		}
		rd.ColorAttachments = append(rd.ColorAttachments, ca)
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		v, ok := lookup(b, b.views, ds.View)
		if !ok {
			e.fail(errors.Wrapf(ErrInvalidHandle, "depth attachment view %d", ds.View))
			return p
		}
		rd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              v.raw,
			DepthLoadOp:       conv(loadOps, ds.DepthLoadOp),
			DepthStoreOp:      conv(storeOps, ds.DepthStoreOp),
			DepthClearValue:   ds.DepthClearValue,
			DepthReadOnly:     ds.DepthReadOnly,
			StencilLoadOp:     conv(loadOps, ds.StencilLoadOp),
			StencilStoreOp:    conv(storeOps, ds.StencilStoreOp),
			StencilClearValue: ds.StencilClearValue,
			StencilReadOnly:   ds.StencilReadOnly,
		}
	}
	p.raw = e.raw.BeginRenderPass(rd)
	return p
}

func (b *Backend) CommandEncoderEndRenderPass(id gpucore.CommandEncoderID, pass gpucore.RenderPassEncoder) {
	p, ok := pass.(*renderPass)
	if !ok || p.enc == nil {
		return
	}
	p.enc.inPass = false
	if p.raw != nil {
		p.raw.End()
		p.raw.Release()
		p.raw = nil
	}
}

func (b *Backend) CommandEncoderBeginComputePass(id gpucore.CommandEncoderID, desc *gpucore.ComputePassDescriptor) gpucore.ComputePassEncoder {
	e := b.encoder(id, "begin compute pass")
	if e == nil {
		return &computePass{b: b}
	}
	e.inPass = true
	var label string
	if desc != nil {
		label = desc.Label
	}
	return &computePass{b: b, enc: e, raw: e.raw.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

func (b *Backend) CommandEncoderEndComputePass(id gpucore.CommandEncoderID, pass gpucore.ComputePassEncoder) {
	p, ok := pass.(*computePass)
	if !ok || p.enc == nil {
		return
	}
	p.enc.inPass = false
	if p.raw != nil {
		p.raw.End()
		p.raw.Release()
		p.raw = nil
	}
}

// CommandEncoderFinish consumes the encoder.
func (b *Backend) CommandEncoderFinish(id gpucore.CommandEncoderID, desc *gpucore.CommandBufferDescriptor) (gpucore.CommandBufferID, error) {
	e, ok := remove(b, "command encoder", b.encoders, id)
	if !ok {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "command encoder %d", id)
	}
	defer e.raw.Release()

	if e.inPass {
		e.fail(errors.New("finish with an open pass"))
	}
	if e.err != nil {
		return gpucore.InvalidID, errors.Wrapf(e.err, "rust: command encoder %q", e.label)
	}
	var label string
	if desc != nil {
		label = desc.Label
	}
	cb, err := e.raw.Finish(&wgpu.CommandBufferDescriptor{Label: label})
	if err != nil {
		return gpucore.InvalidID, errors.Mark(errors.Wrapf(err, "rust: finish %q", e.label), ErrRecording)
	}
	return insert(b, b.commandBuffers, cb), nil
}

func (b *Backend) CommandEncoderDrop(id gpucore.CommandEncoderID) {
	if e, ok := remove(b, "command encoder", b.encoders, id); ok {
		e.raw.Release()
	}
}

func (b *Backend) CommandBufferDrop(id gpucore.CommandBufferID) {
	if cb, ok := remove(b, "command buffer", b.commandBuffers, id); ok {
		cb.Release()
	}
}

// renderPass forwards to a wgpu-native render pass. A nil raw pass
// records nothing.
type renderPass struct {
	b   *Backend
	enc *commandEncoder
	raw *wgpu.RenderPassEncoder
}

var _ gpucore.RenderPassEncoder = (*renderPass)(nil)

func (p *renderPass) buffer(id gpucore.BufferID) *wgpu.Buffer {
	buf, ok := lookup(p.b, p.b.buffers, id)
	if !ok {
		p.enc.fail(errors.Wrapf(ErrInvalidHandle, "buffer %d", id))
		return nil
	}
	return buf.raw
}

func (p *renderPass) SetPipeline(id gpucore.RenderPipelineID) {
	if p.raw == nil {
		return
	}
	pipe, ok := lookup(p.b, p.b.renderPipelines, id)
	if !ok {
		p.enc.fail(errors.Wrapf(ErrInvalidHandle, "render pipeline %d", id))
		return
	}
	p.raw.SetPipeline(pipe)
}

func (p *renderPass) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	if p.raw == nil {
		return
	}
	g, ok := lookup(p.b, p.b.bindGroups, id)
	if !ok {
		p.enc.fail(errors.Wrapf(ErrInvalidHandle, "bind group %d", id))
		return
	}
	p.raw.SetBindGroup(index, g, offsets)
}

func (p *renderPass) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset, size uint64) {
	if p.raw == nil {
		return
	}
	if buf := p.buffer(id); buf != nil {
		p.raw.SetIndexBuffer(buf, conv(indexFormats, format), offset, wholeSize(size))
	}
}

func (p *renderPass) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset, size uint64) {
	if p.raw == nil {
		return
	}
	if buf := p.buffer(id); buf != nil {
		p.raw.SetVertexBuffer(slot, buf, offset, wholeSize(size))
	}
}

func (p *renderPass) SetPushConstants(stages gpucore.ShaderStages, offset uint32, data []uint32) {
	if p.raw != nil {
		p.raw.SetPushConstants(wgpu.ShaderStage(stages), offset, wgpu.ToBytes(data))
	}
}

func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if p.raw != nil {
		p.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if p.raw != nil {
		p.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	}
}

func (p *renderPass) DrawIndirect(id gpucore.BufferID, offset uint64) {
	if p.raw == nil {
		return
	}
	if buf := p.buffer(id); buf != nil {
		p.raw.DrawIndirect(buf, offset)
	}
}

func (p *renderPass) DrawIndexedIndirect(id gpucore.BufferID, offset uint64) {
	if p.raw == nil {
		return
	}
	if buf := p.buffer(id); buf != nil {
		p.raw.DrawIndexedIndirect(buf, offset)
	}
}

// MultiDrawIndirect issues count consecutive indirect draws.
func (p *renderPass) MultiDrawIndirect(id gpucore.BufferID, offset uint64, count uint32) {
	if p.raw == nil {
		return
	}
	buf := p.buffer(id)
	if buf == nil {
		return
	}
	for i := range uint64(count) {
		p.raw.DrawIndirect(buf, offset+i*drawIndirectSize)
	}
}

func (p *renderPass) MultiDrawIndexedIndirect(id gpucore.BufferID, offset uint64, count uint32) {
	if p.raw == nil {
		return
	}
	buf := p.buffer(id)
	if buf == nil {
		return
	}
	for i := range uint64(count) {
		p.raw.DrawIndexedIndirect(buf, offset+i*drawIndexedIndirectSize)
	}
}

func (p *renderPass) MultiDrawIndirectCount(gpucore.BufferID, uint64, gpucore.BufferID, uint64, uint32) {
	if p.raw != nil {
		p.enc.fail(errors.Mark(errors.New("multi draw indirect count"), gpucore.ErrUnsupported))
	}
}

func (p *renderPass) MultiDrawIndexedIndirectCount(gpucore.BufferID, uint64, gpucore.BufferID, uint64, uint32) {
	if p.raw != nil {
		p.enc.fail(errors.Mark(errors.New("multi draw indexed indirect count"), gpucore.ErrUnsupported))
	}
}

func (p *renderPass) SetBlendConstant(c gputypes.Color) {
	if p.raw != nil {
		wc := color(c)
		p.raw.SetBlendConstant(&wc)
	}
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	if p.raw != nil {
		p.raw.SetScissorRect(x, y, width, height)
	}
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	if p.raw != nil {
		p.raw.SetViewport(x, y, width, height, minDepth, maxDepth)
	}
}

func (p *renderPass) SetStencilReference(reference uint32) {
	if p.raw != nil {
		p.raw.SetStencilReference(reference)
	}
}

func (p *renderPass) InsertDebugMarker(label string) {
	if p.raw != nil {
		p.raw.InsertDebugMarker(label)
	}
}

func (p *renderPass) PushDebugGroup(label string) {
	if p.raw != nil {
		p.raw.PushDebugGroup(label)
	}
}

func (p *renderPass) PopDebugGroup() {
	if p.raw != nil {
		p.raw.PopDebugGroup()
	}
}

func (p *renderPass) ExecuteBundles(ids []gpucore.RenderBundleID) {
	if p.raw == nil {
		return
	}
	bundles := make([]*wgpu.RenderBundle, 0, len(ids))
	for _, id := range ids {
		rb, ok := lookup(p.b, p.b.bundles, id)
		if !ok {
			p.enc.fail(errors.Wrapf(ErrInvalidHandle, "render bundle %d", id))
			return
		}
		bundles = append(bundles, rb)
	}
	p.raw.ExecuteBundles(bundles...)
}

type computePass struct {
	b   *Backend
	enc *commandEncoder
	raw *wgpu.ComputePassEncoder
}

var _ gpucore.ComputePassEncoder = (*computePass)(nil)

func (p *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	if p.raw == nil {
		return
	}
	pipe, ok := lookup(p.b, p.b.computePipelines, id)
	if !ok {
		p.enc.fail(errors.Wrapf(ErrInvalidHandle, "compute pipeline %d", id))
		return
	}
	p.raw.SetPipeline(pipe)
}

func (p *computePass) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	if p.raw == nil {
		return
	}
	g, ok := lookup(p.b, p.b.bindGroups, id)
	if !ok {
		p.enc.fail(errors.Wrapf(ErrInvalidHandle, "bind group %d", id))
		return
	}
	p.raw.SetBindGroup(index, g, offsets)
}

func (p *computePass) SetPushConstants(offset uint32, data []uint32) {
	if p.raw != nil {
		p.raw.SetPushConstants(offset, wgpu.ToBytes(data))
	}
}

func (p *computePass) InsertDebugMarker(label string) {
	if p.raw != nil {
		p.raw.InsertDebugMarker(label)
	}
}

func (p *computePass) PushDebugGroup(label string) {
	if p.raw != nil {
		p.raw.PushDebugGroup(label)
	}
}

func (p *computePass) PopDebugGroup() {
	if p.raw != nil {
		p.raw.PopDebugGroup()
	}
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if p.raw != nil {
		p.raw.DispatchWorkgroups(x, y, z)
	}
}

func (p *computePass) DispatchIndirect(id gpucore.BufferID, offset uint64) {
	if p.raw == nil {
		return
	}
	buf, ok := lookup(p.b, p.b.buffers, id)
	if !ok {
		p.enc.fail(errors.Wrapf(ErrInvalidHandle, "buffer %d", id))
		return
	}
	p.raw.DispatchWorkgroupsIndirect(buf.raw, offset)
}

// bundleEncoder records a wgpu-native render bundle.
type bundleEncoder struct {
	b     *Backend
	raw   *wgpu.RenderBundleEncoder
	label string
	err   error
}

var _ gpucore.RenderBundleEncoder = (*bundleEncoder)(nil)

func (e *bundleEncoder) fail(err error) {
	if e.err == nil {
		e.err = errors.Mark(err, ErrRecording)
	}
}

func (b *Backend) DeviceCreateRenderBundleEncoder(id gpucore.DeviceID, desc *gpucore.RenderBundleEncoderDescriptor) (gpucore.RenderBundleEncoder, error) {
	d, err := b.device(id)
	if err != nil {
		return nil, err
	}
	formats := make([]wgpu.TextureFormat, len(desc.ColorFormats))
	for i, f := range desc.ColorFormats {
		formats[i] = conv(textureFormats, f)
	}
	raw, err := d.raw.CreateRenderBundleEncoder(&wgpu.RenderBundleEncoderDescriptor{
		Label:              desc.Label,
		ColorFormats:       formats,
		DepthStencilFormat: conv(textureFormats, desc.DepthStencilFormat),
		SampleCount:        max(desc.SampleCount, 1),
	})
	if err != nil {
		return nil, invalid(err, "rust: create render bundle encoder %q", desc.Label)
	}
	return &bundleEncoder{b: b, raw: raw, label: desc.Label}, nil
}

func (b *Backend) RenderBundleEncoderFinish(encoder gpucore.RenderBundleEncoder, desc *gpucore.RenderBundleDescriptor) (gpucore.RenderBundleID, error) {
	e, ok := encoder.(*bundleEncoder)
	if !ok || e == nil || e.raw == nil {
		return gpucore.InvalidID, errors.Wrapf(ErrInvalidHandle, "render bundle encoder %T", encoder)
	}
	defer func() {
		e.raw.Release()
		e.raw = nil
	}()
	if e.err != nil {
		return gpucore.InvalidID, errors.Wrapf(e.err, "rust: render bundle %q", e.label)
	}
	var label string
	if desc != nil {
		label = desc.Label
	}
	rb := e.raw.Finish(&wgpu.RenderBundleDescriptor{Label: label})
	return insert(b, b.bundles, rb), nil
}

func (b *Backend) RenderBundleDrop(id gpucore.RenderBundleID) {
	if rb, ok := remove(b, "render bundle", b.bundles, id); ok {
		rb.Release()
	}
}

func (e *bundleEncoder) buffer(id gpucore.BufferID) *wgpu.Buffer {
	buf, ok := lookup(e.b, e.b.buffers, id)
	if !ok {
		e.fail(errors.Wrapf(ErrInvalidHandle, "buffer %d", id))
		return nil
	}
	return buf.raw
}

func (e *bundleEncoder) SetPipeline(id gpucore.RenderPipelineID) {
	pipe, ok := lookup(e.b, e.b.renderPipelines, id)
	if !ok {
		e.fail(errors.Wrapf(ErrInvalidHandle, "render pipeline %d", id))
		return
	}
	e.raw.SetPipeline(pipe)
}

func (e *bundleEncoder) SetBindGroup(index uint32, id gpucore.BindGroupID, offsets []uint32) {
	g, ok := lookup(e.b, e.b.bindGroups, id)
	if !ok {
		e.fail(errors.Wrapf(ErrInvalidHandle, "bind group %d", id))
		return
	}
	e.raw.SetBindGroup(index, g, offsets)
}

func (e *bundleEncoder) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset, size uint64) {
	if buf := e.buffer(id); buf != nil {
		e.raw.SetIndexBuffer(buf, conv(indexFormats, format), offset, wholeSize(size))
	}
}

func (e *bundleEncoder) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset, size uint64) {
	if buf := e.buffer(id); buf != nil {
		e.raw.SetVertexBuffer(slot, buf, offset, wholeSize(size))
	}
}

func (e *bundleEncoder) SetPushConstants(gpucore.ShaderStages, uint32, []uint32) {
	e.fail(errors.Mark(errors.New("push constants in a render bundle"), gpucore.ErrUnsupported))
}

func (e *bundleEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (e *bundleEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (e *bundleEncoder) DrawIndirect(id gpucore.BufferID, offset uint64) {
	if buf := e.buffer(id); buf != nil {
		e.raw.DrawIndirect(buf, offset)
	}
}

func (e *bundleEncoder) DrawIndexedIndirect(id gpucore.BufferID, offset uint64) {
	if buf := e.buffer(id); buf != nil {
		e.raw.DrawIndexedIndirect(buf, offset)
	}
}

// queue returns the device owning queue id.
func (b *Backend) queue(id gpucore.QueueID) (*device, error) {
	d, ok := lookup(b, b.queues, id)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidHandle, "queue %d", id)
	}
	return d, nil
}

func (b *Backend) QueueWriteBuffer(id gpucore.QueueID, bid gpucore.BufferID, offset uint64, data []byte) {
	d, err := b.queue(id)
	if err != nil {
		b.log().Warn("rust: write buffer", "err", err)
		return
	}
	buf, ok := lookup(b, b.buffers, bid)
	if !ok {
		b.log().Warn("rust: write to unknown buffer", "buffer", uint64(bid))
		return
	}
	err = b.withQueue(func() error {
		return d.queue.WriteBuffer(buf.raw, offset, data)
	})
	if err != nil {
		b.log().Warn("rust: write buffer", "buffer", uint64(bid), "err", err)
	}
}

func (b *Backend) QueueWriteTexture(id gpucore.QueueID, dst *gpucore.ImageCopyTexture, data []byte, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) {
	d, err := b.queue(id)
	if err != nil {
		b.log().Warn("rust: write texture", "err", err)
		return
	}
	ict, err := b.imageCopyTexture(dst)
	if err != nil {
		b.log().Warn("rust: write texture", "err", err)
		return
	}
	dl := dataLayout(*layout)
	sz := extent(size)
	err = b.withQueue(func() error {
		d.queue.WriteTexture(ict, data, &dl, &sz)
		return nil
	})
	if err != nil {
		b.log().Warn("rust: write texture", "texture", uint64(dst.Texture), "err", err)
	}
}

// QueueSubmit consumes the command buffers. Nothing is submitted if any
// handle is unknown.
func (b *Backend) QueueSubmit(id gpucore.QueueID, ids []gpucore.CommandBufferID) error {
	d, err := b.queue(id)
	if err != nil {
		return err
	}

	b.mu.Lock()
	cbs := make([]*wgpu.CommandBuffer, 0, len(ids))
	for _, cid := range ids {
		cb, ok := b.commandBuffers[cid]
		if !ok {
			b.mu.Unlock()
			return errors.Wrapf(ErrInvalidHandle, "command buffer %d", cid)
		}
		cbs = append(cbs, cb)
	}
	for _, cid := range ids {
		delete(b.commandBuffers, cid)
	}
	b.mu.Unlock()

	defer func() {
		for _, cb := range cbs {
			cb.Release()
		}
	}()
	return b.withQueue(func() error {
		d.queue.Submit(cbs...)
		return nil
	})
}
