// Package rimage decodes image files into HxWxC tensors and provides the array operations a
// loading pipeline needs on them.
package rimage

import (
	"bytes"
	"image"
	"image/color"
	// register image decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// register extra image decoders.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorgonia.org/tensor"
)

// ColorType selects how decoded pixels are laid out.
type ColorType string

// Color types.
const (
	// ColorTypeColor yields HxWx3 uint8.
	ColorTypeColor ColorType = "color"
	// ColorTypeGrayscale yields HxW uint8.
	ColorTypeGrayscale ColorType = "grayscale"
	// ColorTypeUnchanged keeps the stored bit depth and channel count: HxW for single channel
	// images (palette indices for paletted images), HxWx3 or HxWx4 otherwise.
	ColorTypeUnchanged ColorType = "unchanged"
)

// Validate returns an error for an unknown color type.
func (ct ColorType) Validate() error {
	switch ct {
	case ColorTypeColor, ColorTypeGrayscale, ColorTypeUnchanged:
		return nil
	default:
		return errors.Errorf("unknown color type %q", string(ct))
	}
}

// ChannelOrder is the order of the color channels in a decoded tensor.
type ChannelOrder string

// Channel orders.
const (
	ChannelOrderBGR ChannelOrder = "bgr"
	ChannelOrderRGB ChannelOrder = "rgb"
)

// DecodeImage decodes any registered image format.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "cannot decode image")
	}
	return img, format, nil
}

// Blur applies a gaussian blur with the given sigma. Only the spatial axes are blurred.
func Blur(img image.Image, sigma float64) image.Image {
	if sigma <= 0 {
		return img
	}
	blurred := imaging.Blur(img, sigma)
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		// keep single channel images single channel
		gray := image.NewGray(blurred.Bounds())
		for y := blurred.Rect.Min.Y; y < blurred.Rect.Max.Y; y++ {
			for x := blurred.Rect.Min.X; x < blurred.Rect.Max.X; x++ {
				gray.Set(x, y, blurred.At(x, y))
			}
		}
		return gray
	default:
		return blurred
	}
}

// ImageToTensor lays out the pixels of img as a tensor according to ct. Color channels are
// written in order.
func ImageToTensor(img image.Image, ct ColorType, order ChannelOrder) (*tensor.Dense, error) {
	if err := ct.Validate(); err != nil {
		return nil, err
	}
	switch ct {
	case ColorTypeGrayscale:
		return grayTensor(img), nil
	case ColorTypeUnchanged:
		return unchangedTensor(img, order), nil
	default:
		return colorTensor(img, order, false), nil
	}
}

func grayTensor(img image.Image) *tensor.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]uint8, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			data = append(data, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}
	return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(data))
}

// colorTensor returns HxWx3 (HxWx4 with alpha) uint8 values.
func colorTensor(img image.Image, order ChannelOrder, alpha bool) *tensor.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	c := 3
	if alpha {
		c = 4
	}
	data := make([]uint8, 0, w*h*c)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data = appendPixel(data, order, px.R, px.G, px.B)
			if alpha {
				data = append(data, px.A)
			}
		}
	}
	return tensor.New(tensor.WithShape(h, w, c), tensor.WithBacking(data))
}

// color16Tensor returns HxWx3 (HxWx4 with alpha) uint16 values.
func color16Tensor(img image.Image, order ChannelOrder, alpha bool) *tensor.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	c := 3
	if alpha {
		c = 4
	}
	data := make([]uint16, 0, w*h*c)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			data = appendPixel(data, order, px.R, px.G, px.B)
			if alpha {
				data = append(data, px.A)
			}
		}
	}
	return tensor.New(tensor.WithShape(h, w, c), tensor.WithBacking(data))
}

func appendPixel[T uint8 | uint16](data []T, order ChannelOrder, r, g, b T) []T {
	if order == ChannelOrderBGR {
		return append(data, b, g, r)
	}
	return append(data, r, g, b)
}

func unchangedTensor(img image.Image, order ChannelOrder) *tensor.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch im := img.(type) {
	case *image.Gray:
		data := make([]uint8, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, im.GrayAt(x, y).Y)
			}
		}
		return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(data))
	case *image.Gray16:
		data := make([]uint16, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, im.Gray16At(x, y).Y)
			}
		}
		return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(data))
	case *image.Paletted:
		data := make([]uint8, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, im.ColorIndexAt(x, y))
			}
		}
		return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(data))
	case *image.NRGBA:
		return colorTensor(img, order, true)
	case *image.RGBA64:
		return color16Tensor(img, order, false)
	case *image.NRGBA64:
		return color16Tensor(img, order, true)
	default:
		return colorTensor(img, order, false)
	}
}
