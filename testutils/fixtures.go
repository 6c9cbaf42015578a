// Package testutils provides helpers for building clip fixtures in tests.
package testutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path"
	"testing"

	"go.viam.com/test"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/vidseg/vidseg/fileclient"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/utils"
)

// MaskPalette is the palette of mask fixtures: background then foreground.
var MaskPalette = color.Palette{color.RGBA{A: 255}, color.RGBA{R: 128, A: 255}}

// EncodePNG encodes img and fails the test if it cannot.
func EncodePNG(tb testing.TB, img image.Image) []byte {
	tb.Helper()
	var buf bytes.Buffer
	test.That(tb, png.Encode(&buf, img), test.ShouldBeNil)
	return buf.Bytes()
}

// ColorFrame returns an opaque w x h image whose pixel (x, y) is (base+x, base+y, base).
func ColorFrame(w, h int, base uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: base + uint8(x), G: base + uint8(y), B: base, A: 255})
		}
	}
	return img
}

// DepthFrame returns a 16 bit w x h image whose pixel (x, y) is base+x.
func DepthFrame(w, h int, base uint16) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: base + uint16(x)})
		}
	}
	return img
}

// MaskFrame returns a paletted w x h mask with the left half background and the right half
// foreground.
func MaskFrame(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), MaskPalette)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			img.SetColorIndex(x, y, 1)
		}
	}
	return img
}

// WriteFile writes data to p in fs.
func WriteFile(tb testing.TB, fs billy.Filesystem, p string, data []byte) {
	tb.Helper()
	test.That(tb, util.WriteFile(fs, p, data, 0o644), test.ShouldBeNil)
}

// ClipOptions controls what WriteClip writes.
type ClipOptions struct {
	Width, Height int
	Depth         bool
	Mask          bool
}

// WriteClip writes <imgDir>/<clip>/rgb/<frame> for every frame, plus depth/<frame> and a
// mask for the first frame when requested. Frame i has color base 10*i and depth base 1000*(i+1).
func WriteClip(tb testing.TB, fs billy.Filesystem, imgDir, clip string, frames []string, opts ClipOptions) {
	tb.Helper()
	base := path.Join(imgDir, clip)
	for i, fn := range frames {
		WriteFile(tb, fs, path.Join(base, "rgb", fn), EncodePNG(tb, ColorFrame(opts.Width, opts.Height, uint8(10*i))))
		if opts.Depth {
			WriteFile(tb, fs, path.Join(base, "depth", fn),
				EncodePNG(tb, DepthFrame(opts.Width, opts.Height, uint16(1000*(i+1)))))
		}
	}
	if opts.Mask && len(frames) > 0 {
		WriteFile(tb, fs, path.Join(base, "mask", frames[0]), EncodePNG(tb, MaskFrame(opts.Width, opts.Height)))
	}
}

// RegisterMemoryBackend registers a file client backend named name that reads from fs. Names
// must be unique within a test binary.
func RegisterMemoryBackend(name string, fs billy.Filesystem) utils.AttributeMap {
	fileclient.RegisterBackend(name, func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger,
	) (fileclient.Client, error) {
		return fileclient.NewBillyClient(fs), nil
	})
	return utils.AttributeMap{"backend": name}
}
