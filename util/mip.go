// Package util holds host-side helpers built on the gpuapi core: image
// uploads, mip chain sizing and copy row alignment.
package util

import (
	"math/bits"

	"github.com/gogpu/gputypes"
)

// CopyBytesPerRowAlignment is the required alignment of BytesPerRow in
// buffer-texture copies.
const CopyBytesPerRowAlignment = 256

// MipLevelCount returns the number of levels of a full mip chain for a
// width x height texture, down to 1x1.
func MipLevelCount(width, height uint32) uint32 {
	m := max(width, height)
	if m == 0 {
		return 0
	}
	return uint32(bits.Len32(m))
}

// MipSize returns the size of mip level. Width and height halve per level
// and never drop below 1; depth is kept.
func MipSize(size gputypes.Extent3D, level uint32) gputypes.Extent3D {
	return gputypes.Extent3D{
		Width:              max(size.Width>>level, 1),
		Height:             max(size.Height>>level, 1),
		DepthOrArrayLayers: size.DepthOrArrayLayers,
	}
}

// AlignedBytesPerRow returns width*bytesPerTexel rounded up to
// CopyBytesPerRowAlignment.
func AlignedBytesPerRow(width, bytesPerTexel uint32) uint32 {
	const a = CopyBytesPerRowAlignment
	return (width*bytesPerTexel + a - 1) / a * a
}
