package util

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/gpuapi"
)

// ErrUnsupportedFormat is returned when an image cannot be uploaded to
// the requested texture format.
var ErrUnsupportedFormat = errors.New("util: unsupported texture format")

// ImageOptions configures TextureFromImage.
type ImageOptions struct {
	Label string

	// Format is RGBA8Unorm when zero. Only the 8-bit RGBA formats are
	// supported.
	Format gputypes.TextureFormat

	// Usage is added to CopyDst. TextureBinding when zero.
	Usage gputypes.TextureUsage

	// Mipmaps uploads a full mip chain generated on the host.
	Mipmaps bool

	// Filter resamples oversized images and mip levels. Lanczos when nil.
	Filter *imaging.ResampleFilter
}

// TextureFromImage creates a 2D texture holding img and uploads it
// through queue. Images larger than the device's MaxTextureDimension2D
// are scaled down to fit, keeping their aspect ratio.
func TextureFromImage(device *gpuapi.Device, queue *gpuapi.Queue, img image.Image, opts *ImageOptions) (*gpuapi.Texture, error) {
	if opts == nil {
		opts = &ImageOptions{}
	}
	format := opts.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	if format != gputypes.TextureFormatRGBA8Unorm && format != gputypes.TextureFormatRGBA8UnormSrgb {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	usage := opts.Usage
	if usage == 0 {
		usage = gputypes.TextureUsageTextureBinding
	}
	filter := imaging.Lanczos
	if opts.Filter != nil {
		filter = *opts.Filter
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("texture from image %q: empty image", opts.Label)
	}
	if limit := int(device.Limits().MaxTextureDimension2D); limit > 0 && (b.Dx() > limit || b.Dy() > limit) {
		img = imaging.Fit(img, limit, limit, filter)
	}
	level := toNRGBA(img)

	size := gputypes.Extent3D{
		Width:              uint32(level.Rect.Dx()),
		Height:             uint32(level.Rect.Dy()),
		DepthOrArrayLayers: 1,
	}
	mips := uint32(1)
	if opts.Mipmaps {
		mips = MipLevelCount(size.Width, size.Height)
	}

	tex, err := device.CreateTexture(&gpuapi.TextureDescriptor{
		Label:         opts.Label,
		Size:          size,
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	for mip := uint32(0); mip < mips; mip++ {
		ms := MipSize(size, mip)
		if mip > 0 {
			level = imaging.Resize(level, int(ms.Width), int(ms.Height), filter)
		}
		queue.WriteTexture(
			&gpuapi.ImageCopyTexture{Texture: tex, MipLevel: mip, Aspect: gputypes.TextureAspectAll},
			level.Pix,
			gpuapi.TextureDataLayout{BytesPerRow: uint32(level.Stride), RowsPerImage: ms.Height},
			ms,
		)
	}
	return tex, nil
}

// toNRGBA returns img as a tightly packed, zero-origin *image.NRGBA.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
