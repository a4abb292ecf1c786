package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuapi/gpucore"
)

type texture struct {
	device *device
	raw    hal.Texture
	desc   gpucore.TextureDescriptor
}

type textureView struct {
	device  *device
	raw     hal.TextureView
	texture *texture
	label   string

	// frame is set for swap chain images, which the swap chain destroys.
	frame bool
}

type sampler struct {
	device *device
	raw    hal.Sampler
}

// DeviceCreateTexture creates a hal texture. Zero mip and sample counts
// and a zero depth mean one.
func (b *Backend) DeviceCreateTexture(deviceID gpucore.DeviceID, desc *gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Size.Width == 0 || desc.Size.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidDescriptor, desc.Label, desc.Size.Width, desc.Size.Height)
	}
	if max2D := d.limits.MaxTextureDimension2D; max2D > 0 && (desc.Size.Width > max2D || desc.Size.Height > max2D) {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q exceeds %d", ErrInvalidDescriptor, desc.Label, max2D)
	}

	norm := *desc
	norm.MipLevelCount = max(norm.MipLevelCount, 1)
	norm.SampleCount = max(norm.SampleCount, 1)
	norm.Size.DepthOrArrayLayers = max(norm.Size.DepthOrArrayLayers, 1)

	raw, err := d.raw.CreateTexture(&hal.TextureDescriptor{
		Label:         norm.Label,
		Size:          halExtent(norm.Size),
		MipLevelCount: norm.MipLevelCount,
		SampleCount:   norm.SampleCount,
		Dimension:     norm.Dimension,
		Format:        norm.Format,
		Usage:         norm.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}
	id := insert(b, b.textures, &texture{device: d, raw: raw, desc: norm})
	b.log().Debug("native: texture created", "id", uint64(id), "label", desc.Label,
		"width", norm.Size.Width, "height", norm.Size.Height, "format", norm.Format)
	return id, nil
}

// TextureDrop destroys a texture once pending work is done.
func (b *Backend) TextureDrop(id gpucore.TextureID) {
	t, ok := remove(b, "texture", b.textures, id)
	if !ok {
		return
	}
	d := t.device
	d.retire(func() { d.raw.DestroyTexture(t.raw) })
}

// TextureCreateView creates a view. Undefined format and dimension are
// inherited from the texture.
func (b *Backend) TextureCreateView(id gpucore.TextureID, desc *gpucore.TextureViewDescriptor) (gpucore.TextureViewID, error) {
	t, ok := lookup(b, b.textures, id)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %d", ErrInvalidHandle, id)
	}
	hd := &hal.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          desc.Format,
		Dimension:       desc.Dimension,
		Aspect:          desc.Aspect,
		BaseMipLevel:    desc.BaseMipLevel,
		MipLevelCount:   desc.MipLevelCount,
		BaseArrayLayer:  desc.BaseArrayLayer,
		ArrayLayerCount: desc.ArrayLayerCount,
	}
	if hd.Format == gputypes.TextureFormatUndefined {
		hd.Format = t.desc.Format
	}
	if hd.Dimension == gputypes.TextureViewDimensionUndefined {
		hd.Dimension = textureViewDimensionFromTexture(t.desc.Dimension)
	}
	if hd.Aspect == gputypes.TextureAspectUndefined {
		hd.Aspect = gputypes.TextureAspectAll
	}
	if hd.BaseMipLevel >= t.desc.MipLevelCount {
		return gpucore.InvalidID, fmt.Errorf("%w: base mip %d of %d-level texture %q", ErrInvalidDescriptor, hd.BaseMipLevel, t.desc.MipLevelCount, t.desc.Label)
	}

	raw, err := t.device.raw.CreateTextureView(t.raw, hd)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create texture view %q: %w", desc.Label, err)
	}
	return insert(b, b.views, &textureView{device: t.device, raw: raw, texture: t, label: desc.Label}), nil
}

func textureViewDimensionFromTexture(dim gputypes.TextureDimension) gputypes.TextureViewDimension {
	switch dim {
	case gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimension2D
	}
}

// TextureViewDrop destroys a view once pending work is done. Swap chain
// image views are left to their swap chain.
func (b *Backend) TextureViewDrop(id gpucore.TextureViewID) {
	v, ok := lookup(b, b.views, id)
	if ok && v.frame {
		return
	}
	v, ok = remove(b, "texture view", b.views, id)
	if !ok {
		return
	}
	d := v.device
	d.retire(func() { d.raw.DestroyTextureView(v.raw) })
}

// DeviceCreateSampler creates a sampler. hal has no border colors;
// BorderColor is ignored.
func (b *Backend) DeviceCreateSampler(deviceID gpucore.DeviceID, desc *gpucore.SamplerDescriptor) (gpucore.SamplerID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	lodMax := desc.LodMaxClamp
	if lodMax == 0 {
		lodMax = 32
	}
	raw, err := d.raw.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipmapFilter,
		LodMinClamp:  desc.LodMinClamp,
		LodMaxClamp:  lodMax,
		Compare:      desc.Compare,
		Anisotropy:   max(desc.Anisotropy, 1),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create sampler %q: %w", desc.Label, err)
	}
	return insert(b, b.samplers, &sampler{device: d, raw: raw}), nil
}

// SamplerDrop destroys a sampler once pending work is done.
func (b *Backend) SamplerDrop(id gpucore.SamplerID) {
	s, ok := remove(b, "sampler", b.samplers, id)
	if !ok {
		return
	}
	d := s.device
	d.retire(func() { d.raw.DestroySampler(s.raw) })
}

// QueueWriteTexture stages texel data through the hal queue.
func (b *Backend) QueueWriteTexture(queueID gpucore.QueueID, dst *gpucore.ImageCopyTexture, data []byte, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) {
	d, ok := lookup(b, b.queues, queueID)
	if !ok {
		b.log().Warn("native: write on unknown queue", "id", uint64(queueID))
		return
	}
	t, ok := lookup(b, b.textures, dst.Texture)
	if !ok {
		b.log().Warn("native: write to unknown texture", "id", uint64(dst.Texture))
		return
	}
	target := halCopyTexture(t, dst)
	hl := halDataLayout(*layout)
	extent := halExtent(size)
	err := b.withQueue(func() error { return d.queue.WriteTexture(&target, data, &hl, &extent) })
	if err != nil {
		b.log().Error("native: queue write texture", "texture", t.desc.Label, "err", err)
	}
}

func halExtent(e gputypes.Extent3D) hal.Extent3D {
	return hal.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: max(e.DepthOrArrayLayers, 1)}
}

func halDataLayout(l gpucore.TextureDataLayout) hal.ImageDataLayout {
	return hal.ImageDataLayout{Offset: l.Offset, BytesPerRow: l.BytesPerRow, RowsPerImage: l.RowsPerImage}
}

func halCopyTexture(t *texture, c *gpucore.ImageCopyTexture) hal.ImageCopyTexture {
	aspect := c.Aspect
	if aspect == gputypes.TextureAspectUndefined {
		aspect = gputypes.TextureAspectAll
	}
	return hal.ImageCopyTexture{
		Texture:  t.raw,
		MipLevel: c.MipLevel,
		Origin:   hal.Origin3D{X: c.Origin.X, Y: c.Origin.Y, Z: c.Origin.Z},
		Aspect:   aspect,
	}
}
