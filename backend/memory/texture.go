package memory

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

type texture struct {
	label  string
	size   gputypes.Extent3D
	dim    gputypes.TextureDimension
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage
	mips   uint32
	texel  uint32 // bytes per texel, 0 when the format has no host layout

	mu     sync.Mutex
	levels [][]byte
}

type textureView struct {
	texture  *texture
	format   gputypes.TextureFormat
	baseMip  uint32
	mipCount uint32
}

// texelSize returns the bytes per texel of uncompressed color and depth
// formats, or 0.
func texelSize(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint, gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGBA8Uint, gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGB10A2Uint, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat, gputypes.TextureFormatRGB9E5Ufloat,
		gputypes.TextureFormatDepth32Float, gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint, gputypes.TextureFormatRGBA32Sint:
		return 16
	}
	return 0
}

// encodeClear returns the texel bytes of c in format f, or nil when the
// format is not clearable on the host.
func encodeClear(f gputypes.TextureFormat, c gputypes.Color) []byte {
	unorm := func(v float64) byte {
		return byte(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return []byte{unorm(c.R)}
	case gputypes.TextureFormatRG8Unorm:
		return []byte{unorm(c.R), unorm(c.G)}
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return []byte{unorm(c.R), unorm(c.G), unorm(c.B), unorm(c.A)}
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return []byte{unorm(c.B), unorm(c.G), unorm(c.R), unorm(c.A)}
	case gputypes.TextureFormatR32Float:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(c.R)))
	case gputypes.TextureFormatRGBA32Float:
		out := make([]byte, 0, 16)
		for _, v := range []float64{c.R, c.G, c.B, c.A} {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
		}
		return out
	}
	return nil
}

func mipExtent(size gputypes.Extent3D, level uint32, dim gputypes.TextureDimension) gputypes.Extent3D {
	e := gputypes.Extent3D{
		Width:              max(1, size.Width>>level),
		Height:             max(1, size.Height>>level),
		DepthOrArrayLayers: size.DepthOrArrayLayers,
	}
	if dim == gputypes.TextureDimension3D {
		e.DepthOrArrayLayers = max(1, size.DepthOrArrayLayers>>level)
	}
	return e
}

// DeviceCreateTexture allocates host storage for every mip level of
// formats with a host layout.
func (b *Backend) DeviceCreateTexture(deviceID gpucore.DeviceID, desc *gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	d, err := b.device(deviceID)
	if err != nil {
		return gpucore.InvalidID, err
	}
	t, err := newTexture(desc, d.limits)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := insert(b, b.textures, t)
	b.log().Debug("memory: texture created", "id", uint64(id), "label", desc.Label,
		"width", desc.Size.Width, "height", desc.Size.Height, "format", desc.Format)
	return id, nil
}

func newTexture(desc *gpucore.TextureDescriptor, limits gputypes.Limits) (*texture, error) {
	s := desc.Size
	switch {
	case s.Width == 0 || s.Height == 0 || s.DepthOrArrayLayers == 0:
		return nil, fmt.Errorf("%w: texture %q has an empty extent", ErrInvalidDescriptor, desc.Label)
	case desc.Format == gputypes.TextureFormatUndefined:
		return nil, fmt.Errorf("%w: texture %q has no format", ErrInvalidDescriptor, desc.Label)
	case s.Width > limits.MaxTextureDimension2D || s.Height > limits.MaxTextureDimension2D:
		return nil, fmt.Errorf("%w: texture %q is %dx%d, max %d", ErrLimitExceeded, desc.Label, s.Width, s.Height, limits.MaxTextureDimension2D)
	}
	mips := max(desc.MipLevelCount, 1)
	t := &texture{
		label:  desc.Label,
		size:   s,
		dim:    desc.Dimension,
		format: desc.Format,
		usage:  desc.Usage,
		mips:   mips,
		texel:  texelSize(desc.Format),
	}
	if t.texel != 0 {
		t.levels = make([][]byte, mips)
		for l := range mips {
			e := mipExtent(s, l, desc.Dimension)
			t.levels[l] = make([]byte, uint64(e.Width)*uint64(e.Height)*uint64(e.DepthOrArrayLayers)*uint64(t.texel))
		}
	}
	return t, nil
}

// TextureCreateView creates a view. Zero counts mean all remaining levels.
func (b *Backend) TextureCreateView(id gpucore.TextureID, desc *gpucore.TextureViewDescriptor) (gpucore.TextureViewID, error) {
	t, ok := lookup(b, b.textures, id)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %d", ErrInvalidHandle, id)
	}
	v, err := newView(t, desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	return insert(b, b.views, v), nil
}

func newView(t *texture, desc *gpucore.TextureViewDescriptor) (*textureView, error) {
	v := &textureView{texture: t, format: desc.Format, baseMip: desc.BaseMipLevel, mipCount: desc.MipLevelCount}
	if v.format == gputypes.TextureFormatUndefined {
		v.format = t.format
	}
	if v.baseMip >= t.mips {
		return nil, fmt.Errorf("%w: view base mip %d of texture %q with %d levels", ErrInvalidDescriptor, v.baseMip, t.label, t.mips)
	}
	if v.mipCount == 0 {
		v.mipCount = t.mips - v.baseMip
	}
	if v.baseMip+v.mipCount > t.mips {
		return nil, fmt.Errorf("%w: view mips [%d, %d) of texture %q with %d levels", ErrInvalidDescriptor, v.baseMip, v.baseMip+v.mipCount, t.label, t.mips)
	}
	return v, nil
}

// TextureDrop releases a texture. Views keep their storage alive.
func (b *Backend) TextureDrop(id gpucore.TextureID) {
	remove(b, "texture", b.textures, id)
}

// TextureViewDrop releases a texture view.
func (b *Backend) TextureViewDrop(id gpucore.TextureViewID) {
	remove(b, "texture view", b.views, id)
}

// DeviceCreateSampler stores the sampler descriptor.
func (b *Backend) DeviceCreateSampler(deviceID gpucore.DeviceID, desc *gpucore.SamplerDescriptor) (gpucore.SamplerID, error) {
	if _, err := b.device(deviceID); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.LodMaxClamp < desc.LodMinClamp {
		return gpucore.InvalidID, fmt.Errorf("%w: sampler %q lod clamp [%g, %g]", ErrInvalidDescriptor, desc.Label, desc.LodMinClamp, desc.LodMaxClamp)
	}
	s := *desc
	return insert(b, b.samplers, &s), nil
}

// SamplerDrop releases a sampler.
func (b *Backend) SamplerDrop(id gpucore.SamplerID) {
	remove(b, "sampler", b.samplers, id)
}

// clear fills mip level of the view with one texel value.
func (v *textureView) clear(texel []byte) {
	t := v.texture
	if texel == nil || t.levels == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	level := t.levels[v.baseMip]
	for i := 0; i+len(texel) <= len(level); i += len(texel) {
		copy(level[i:], texel)
	}
}

// run is one contiguous row of a buffer/texture copy.
type run struct {
	linear  uint64 // offset in the linear (buffer or host) data
	texture uint64 // offset in the mip level
	n       uint64
}

// copyRuns splits a copy between linear data laid out by layout and a
// texture region into rows.
func copyRuns(t *texture, dst *gpucore.ImageCopyTexture, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) ([]run, error) {
	if t.levels == nil {
		return nil, fmt.Errorf("%w: texture %q format %s has no host layout", ErrRecording, t.label, t.format)
	}
	if dst.MipLevel >= t.mips {
		return nil, fmt.Errorf("%w: mip level %d of texture %q", ErrRecording, dst.MipLevel, t.label)
	}
	e := mipExtent(t.size, dst.MipLevel, t.dim)
	o := dst.Origin
	if o.X+size.Width > e.Width || o.Y+size.Height > e.Height || o.Z+size.DepthOrArrayLayers > e.DepthOrArrayLayers {
		return nil, fmt.Errorf("%w: copy region outside texture %q", ErrRecording, t.label)
	}

	rowBytes := uint64(size.Width) * uint64(t.texel)
	bytesPerRow := uint64(layout.BytesPerRow)
	if bytesPerRow == 0 {
		if size.Height > 1 || size.DepthOrArrayLayers > 1 {
			return nil, fmt.Errorf("%w: BytesPerRow required for multi-row copies", ErrRecording)
		}
		bytesPerRow = rowBytes
	}
	if bytesPerRow < rowBytes {
		return nil, fmt.Errorf("%w: BytesPerRow %d < row size %d", ErrRecording, bytesPerRow, rowBytes)
	}
	rowsPerImage := uint64(layout.RowsPerImage)
	if rowsPerImage == 0 {
		rowsPerImage = uint64(size.Height)
	}

	runs := make([]run, 0, size.Height*size.DepthOrArrayLayers)
	for z := range uint64(size.DepthOrArrayLayers) {
		for y := range uint64(size.Height) {
			tx := ((uint64(o.Z)+z)*uint64(e.Height)+uint64(o.Y)+y)*uint64(e.Width) + uint64(o.X)
			runs = append(runs, run{
				linear:  layout.Offset + z*rowsPerImage*bytesPerRow + y*bytesPerRow,
				texture: tx * uint64(t.texel),
				n:       rowBytes,
			})
		}
	}
	return runs, nil
}

// writeTexture copies linear data into a texture region.
func writeTexture(t *texture, dst *gpucore.ImageCopyTexture, data []byte, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) error {
	runs, err := copyRuns(t, dst, layout, size)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	level := t.levels[dst.MipLevel]
	for _, r := range runs {
		if r.linear+r.n > uint64(len(data)) {
			return fmt.Errorf("%w: source data too small for texture %q copy", ErrRecording, t.label)
		}
		copy(level[r.texture:r.texture+r.n], data[r.linear:r.linear+r.n])
	}
	return nil
}

// readTexture copies a texture region into linear data.
func readTexture(t *texture, src *gpucore.ImageCopyTexture, data []byte, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) error {
	runs, err := copyRuns(t, src, layout, size)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	level := t.levels[src.MipLevel]
	for _, r := range runs {
		if r.linear+r.n > uint64(len(data)) {
			return fmt.Errorf("%w: destination too small for texture %q copy", ErrRecording, t.label)
		}
		copy(data[r.linear:r.linear+r.n], level[r.texture:r.texture+r.n])
	}
	return nil
}

// QueueWriteTexture copies data into a texture region immediately.
func (b *Backend) QueueWriteTexture(_ gpucore.QueueID, dst *gpucore.ImageCopyTexture, data []byte, layout *gpucore.TextureDataLayout, size gputypes.Extent3D) {
	t, ok := lookup(b, b.textures, dst.Texture)
	if !ok {
		b.log().Warn("memory: write to unknown texture", "id", uint64(dst.Texture))
		return
	}
	if err := writeTexture(t, dst, data, layout, size); err != nil {
		b.log().Warn("memory: texture write skipped", "texture", t.label, "err", err)
	}
}
