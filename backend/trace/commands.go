package trace

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

func (b *Backend) DeviceCreateCommandEncoder(device gpucore.DeviceID, desc *gpucore.CommandEncoderDescriptor) (gpucore.CommandEncoderID, error) {
	enc, err := b.inner.DeviceCreateCommandEncoder(device, desc)
	attrs := []slog.Attr{id("device", device)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label))
	}
	b.record("DeviceCreateCommandEncoder", append(attrs, id("encoder", enc), errAttr(err))...)
	return enc, err
}

func (b *Backend) CommandEncoderCopyBufferToBuffer(encoder gpucore.CommandEncoderID, src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset uint64, size uint64) {
	b.record("CommandEncoderCopyBufferToBuffer",
		id("encoder", encoder),
		id("src", src), slog.Uint64("src_offset", srcOffset),
		id("dst", dst), slog.Uint64("dst_offset", dstOffset),
		slog.Uint64("size", size))
	b.inner.CommandEncoderCopyBufferToBuffer(encoder, src, srcOffset, dst, dstOffset, size)
}

func (b *Backend) CommandEncoderCopyBufferToTexture(encoder gpucore.CommandEncoderID, src *gpucore.ImageCopyBuffer, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	b.record("CommandEncoderCopyBufferToTexture", id("encoder", encoder), id("src", src.Buffer), id("dst", dst.Texture), extent(size))
	b.inner.CommandEncoderCopyBufferToTexture(encoder, src, dst, size)
}

func (b *Backend) CommandEncoderCopyTextureToBuffer(encoder gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyBuffer, size gputypes.Extent3D) {
	b.record("CommandEncoderCopyTextureToBuffer", id("encoder", encoder), id("src", src.Texture), id("dst", dst.Buffer), extent(size))
	b.inner.CommandEncoderCopyTextureToBuffer(encoder, src, dst, size)
}

func (b *Backend) CommandEncoderCopyTextureToTexture(encoder gpucore.CommandEncoderID, src *gpucore.ImageCopyTexture, dst *gpucore.ImageCopyTexture, size gputypes.Extent3D) {
	b.record("CommandEncoderCopyTextureToTexture", id("encoder", encoder), id("src", src.Texture), id("dst", dst.Texture), extent(size))
	b.inner.CommandEncoderCopyTextureToTexture(encoder, src, dst, size)
}

func (b *Backend) CommandEncoderBeginComputePass(encoder gpucore.CommandEncoderID, desc *gpucore.ComputePassDescriptor) gpucore.ComputePassEncoder {
	p := &computePass{b: b, seq: b.passSeq.Add(1)}
	attrs := []slog.Attr{id("encoder", encoder), slog.Uint64("pass", p.seq)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label))
	}
	b.record("CommandEncoderBeginComputePass", attrs...)
	p.inner = b.inner.CommandEncoderBeginComputePass(encoder, desc)
	return p
}

func (b *Backend) CommandEncoderEndComputePass(encoder gpucore.CommandEncoderID, pass gpucore.ComputePassEncoder) {
	attrs := []slog.Attr{id("encoder", encoder)}
	if p, ok := pass.(*computePass); ok {
		attrs = append(attrs, slog.Uint64("pass", p.seq))
		pass = p.inner
	}
	b.record("CommandEncoderEndComputePass", attrs...)
	b.inner.CommandEncoderEndComputePass(encoder, pass)
}

func (b *Backend) CommandEncoderBeginRenderPass(encoder gpucore.CommandEncoderID, desc *gpucore.RenderPassDescriptor) gpucore.RenderPassEncoder {
	p := &renderPass{renderEncoder{b: b, seq: b.passSeq.Add(1), kind: "RenderPass"}, nil}
	attrs := []slog.Attr{id("encoder", encoder), slog.Uint64("pass", p.seq)}
	if desc != nil {
		views := make([]gpucore.TextureViewID, len(desc.ColorAttachments))
		for i, a := range desc.ColorAttachments {
			views[i] = a.View
		}
		attrs = append(attrs, label(desc.Label), ids("color_views", views))
		if ds := desc.DepthStencilAttachment; ds != nil {
			attrs = append(attrs, id("depth_stencil_view", ds.View))
		}
	}
	b.record("CommandEncoderBeginRenderPass", attrs...)
	p.pass = b.inner.CommandEncoderBeginRenderPass(encoder, desc)
	p.inner = p.pass
	return p
}

func (b *Backend) CommandEncoderEndRenderPass(encoder gpucore.CommandEncoderID, pass gpucore.RenderPassEncoder) {
	attrs := []slog.Attr{id("encoder", encoder)}
	if p, ok := pass.(*renderPass); ok {
		attrs = append(attrs, slog.Uint64("pass", p.seq))
		pass = p.pass
	}
	b.record("CommandEncoderEndRenderPass", attrs...)
	b.inner.CommandEncoderEndRenderPass(encoder, pass)
}

func (b *Backend) CommandEncoderFinish(encoder gpucore.CommandEncoderID, desc *gpucore.CommandBufferDescriptor) (gpucore.CommandBufferID, error) {
	cb, err := b.inner.CommandEncoderFinish(encoder, desc)
	attrs := []slog.Attr{id("encoder", encoder)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label))
	}
	b.record("CommandEncoderFinish", append(attrs, id("command_buffer", cb), errAttr(err))...)
	return cb, err
}

func (b *Backend) CommandEncoderInsertDebugMarker(encoder gpucore.CommandEncoderID, marker string) {
	b.record("CommandEncoderInsertDebugMarker", id("encoder", encoder), label(marker))
	b.inner.CommandEncoderInsertDebugMarker(encoder, marker)
}

func (b *Backend) CommandEncoderPushDebugGroup(encoder gpucore.CommandEncoderID, group string) {
	b.record("CommandEncoderPushDebugGroup", id("encoder", encoder), label(group))
	b.inner.CommandEncoderPushDebugGroup(encoder, group)
}

func (b *Backend) CommandEncoderPopDebugGroup(encoder gpucore.CommandEncoderID) {
	b.record("CommandEncoderPopDebugGroup", id("encoder", encoder))
	b.inner.CommandEncoderPopDebugGroup(encoder)
}

func (b *Backend) DeviceCreateRenderBundleEncoder(device gpucore.DeviceID, desc *gpucore.RenderBundleEncoderDescriptor) (gpucore.RenderBundleEncoder, error) {
	seq := b.passSeq.Add(1)
	inner, err := b.inner.DeviceCreateRenderBundleEncoder(device, desc)
	attrs := []slog.Attr{id("device", device), slog.Uint64("pass", seq)}
	if desc != nil {
		attrs = append(attrs, label(desc.Label), slog.Int("color_formats", len(desc.ColorFormats)))
	}
	b.record("DeviceCreateRenderBundleEncoder", append(attrs, errAttr(err))...)
	if err != nil {
		return nil, err
	}
	return &bundleEncoder{renderEncoder{b: b, seq: seq, kind: "RenderBundle", inner: inner}}, nil
}

func (b *Backend) RenderBundleEncoderFinish(encoder gpucore.RenderBundleEncoder, desc *gpucore.RenderBundleDescriptor) (gpucore.RenderBundleID, error) {
	var attrs []slog.Attr
	if e, ok := encoder.(*bundleEncoder); ok {
		attrs = append(attrs, slog.Uint64("pass", e.seq))
		encoder = e.inner
	}
	bundle, err := b.inner.RenderBundleEncoderFinish(encoder, desc)
	if desc != nil {
		attrs = append(attrs, label(desc.Label))
	}
	b.record("RenderBundleEncoderFinish", append(attrs, id("bundle", bundle), errAttr(err))...)
	return bundle, err
}

// === Queue ===

func (b *Backend) QueueWriteBuffer(queue gpucore.QueueID, buffer gpucore.BufferID, offset uint64, data []byte) {
	b.record("QueueWriteBuffer", id("queue", queue), id("buffer", buffer), slog.Uint64("offset", offset), slog.Int("size", len(data)))
	b.inner.QueueWriteBuffer(queue, buffer, offset, data)
}

func (b *Backend) QueueWriteTexture(queue gpucore.QueueID, dst *gpucore.ImageCopyTexture, data []byte, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) {
	b.record("QueueWriteTexture", id("queue", queue), id("texture", dst.Texture), slog.Uint64("mip_level", uint64(dst.MipLevel)), slog.Int("size", len(data)), extent(size))
	b.inner.QueueWriteTexture(queue, dst, data, layout, size)
}

func (b *Backend) QueueSubmit(queue gpucore.QueueID, buffers []gpucore.CommandBufferID) error {
	err := b.inner.QueueSubmit(queue, buffers)
	b.record("QueueSubmit", id("queue", queue), ids("command_buffers", buffers), errAttr(err))
	return err
}

// === Swap chain ===

func (b *Backend) SwapChainGetCurrentTextureView(swapChain gpucore.SwapChainID) (gpucore.TextureViewID, gpucore.SwapChainStatus, gpucore.SwapChainOutputDetail) {
	view, status, detail := b.inner.SwapChainGetCurrentTextureView(swapChain)
	b.record("SwapChainGetCurrentTextureView", id("swap_chain", swapChain), id("view", view), slog.String("status", status.String()), slog.Uint64("token", detail.Token))
	return view, status, detail
}

func (b *Backend) SwapChainPresent(view gpucore.TextureViewID, detail gpucore.SwapChainOutputDetail) {
	b.record("SwapChainPresent", id("view", view), id("swap_chain", detail.SwapChain), slog.Uint64("token", detail.Token))
	b.inner.SwapChainPresent(view, detail)
}

func extent(e gputypes.Extent3D) slog.Attr {
	return slog.Group("extent",
		slog.Uint64("width", uint64(e.Width)),
		slog.Uint64("height", uint64(e.Height)),
		slog.Uint64("depth", uint64(e.DepthOrArrayLayers)))
}
