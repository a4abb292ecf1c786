package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/gpuapi"
	"github.com/gogpu/gpuapi/util"
)

// errMismatch is returned when the bytes read back differ from the
// bytes written.
var errMismatch = errors.New("gpuprobe: read back data does not match")

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run a buffer round trip on the selected backend",
	Long: `Upload a pattern into a buffer, copy it into a second buffer on the
GPU, map that buffer and compare. With --image the image is also decoded
and uploaded as a texture.`,
	Args: cobra.NoArgs,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().Uint64("size", 4096, "bytes to round trip, rounded up to a multiple of 4")
	smokeCmd.Flags().String("image", "", "image file to upload as a texture")
	smokeCmd.Flags().Duration("timeout", 10*time.Second, "maximum time to wait for the GPU")
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, _ []string) error {
	size, _ := cmd.Flags().GetUint64("size")
	imagePath, _ := cmd.Flags().GetString("image")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, device, queue, err := openDevice(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	p := message.NewPrinter(language.English)
	out := cmd.OutOrStdout()

	start := time.Now()
	n, err := roundTrip(ctx, device, queue, size)
	if err != nil {
		return err
	}
	p.Fprintf(out, "buffer round trip: %d bytes in %v\n", n, time.Since(start).Round(time.Microsecond))

	if imagePath == "" {
		return nil
	}
	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	tex, err := util.TextureFromImage(device, queue, img, &util.ImageOptions{Label: imagePath, Mipmaps: true})
	if err != nil {
		return err
	}
	defer tex.Release()
	ts := tex.Size()
	p.Fprintf(out, "texture upload: %s as %dx%d (%d mip levels)\n", imagePath, ts.Width, ts.Height, util.MipLevelCount(ts.Width, ts.Height))
	return nil
}

// roundTrip writes a pattern through the queue, copies it on the GPU and
// maps the copy back. It returns the number of bytes compared.
func roundTrip(ctx context.Context, device *gpuapi.Device, queue *gpuapi.Queue, size uint64) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("round trip size must be positive")
	}
	size = (size + 3) &^ 3
	pattern := make([]byte, size)
	for i := range pattern {
		pattern[i] = byte(i * 7)
	}

	src, err := device.CreateBufferInit(&gpuapi.BufferInitDescriptor{
		Label:    "smoke-src",
		Contents: pattern,
		Usage:    gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, err
	}
	defer src.Release()
	dst, err := device.CreateBuffer(&gpuapi.BufferDescriptor{
		Label: "smoke-dst",
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		return 0, err
	}
	defer dst.Release()

	// Overwrite the first word through the queue so both upload paths
	// are checked.
	copy(pattern, []byte{0xde, 0xad, 0xbe, 0xef})
	queue.WriteBuffer(src, 0, pattern[:4])

	enc, err := device.CreateCommandEncoder(&gpuapi.CommandEncoderDescriptor{Label: "smoke"})
	if err != nil {
		return 0, err
	}
	enc.CopyBufferToBuffer(src, 0, dst, 0, size)
	cb, err := enc.Finish()
	if err != nil {
		return 0, err
	}
	if err := queue.Submit(cb); err != nil {
		return 0, err
	}

	slice := dst.Slice(gpuapi.Full())
	f := slice.MapAsync(gpuapi.MapModeRead)
	device.Poll(true)
	if _, err := f.Wait(ctx); err != nil {
		return 0, err
	}
	view := slice.GetMappedRange()
	ok := bytes.Equal(view.Bytes(), pattern)
	view.Release()
	dst.Unmap()
	if !ok {
		return 0, errMismatch
	}
	return size, nil
}
