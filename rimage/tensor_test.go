package rimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	return buf.Bytes()
}

func at(t *testing.T, d *tensor.Dense, coords ...int) interface{} {
	t.Helper()
	v, err := d.At(coords...)
	test.That(t, err, test.ShouldBeNil)
	return v
}

func TestDecodeColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(2, 1, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	decoded, format, err := DecodeImage(encodePNG(t, img))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, format, test.ShouldEqual, "png")

	bgr, err := ImageToTensor(decoded, ColorTypeColor, ChannelOrderBGR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bgr.Shape(), test.ShouldResemble, tensor.Shape{2, 3, 3})
	test.That(t, bgr.Dtype(), test.ShouldResemble, tensor.Uint8)
	test.That(t, at(t, bgr, 0, 0, 0), test.ShouldEqual, uint8(30))
	test.That(t, at(t, bgr, 0, 0, 2), test.ShouldEqual, uint8(10))
	test.That(t, at(t, bgr, 1, 2, 0), test.ShouldEqual, uint8(50))

	rgb, err := ImageToTensor(decoded, ColorTypeColor, ChannelOrderRGB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, at(t, rgb, 0, 0, 0), test.ShouldEqual, uint8(10))

	gray, err := ImageToTensor(decoded, ColorTypeGrayscale, ChannelOrderRGB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gray.Shape(), test.ShouldResemble, tensor.Shape{2, 3})

	_, err = ImageToTensor(decoded, ColorType("anydepth"), ChannelOrderRGB)
	test.That(t, err, test.ShouldNotBeNil)

	_, _, err = DecodeImage([]byte("not an image"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeUnchanged(t *testing.T) {
	depth := image.NewGray16(image.Rect(0, 0, 2, 2))
	depth.SetGray16(1, 0, color.Gray16{Y: 4000})
	decoded, _, err := DecodeImage(encodePNG(t, depth))
	test.That(t, err, test.ShouldBeNil)
	d, err := ImageToTensor(decoded, ColorTypeUnchanged, ChannelOrderBGR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Shape(), test.ShouldResemble, tensor.Shape{2, 2})
	test.That(t, d.Dtype(), test.ShouldResemble, tensor.Uint16)
	test.That(t, at(t, d, 0, 1), test.ShouldEqual, uint16(4000))

	mask := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.Black, color.RGBA{R: 128, A: 255}})
	mask.SetColorIndex(1, 0, 1)
	decoded, _, err = DecodeImage(encodePNG(t, mask))
	test.That(t, err, test.ShouldBeNil)
	m, err := ImageToTensor(decoded, ColorTypeUnchanged, ChannelOrderRGB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Shape(), test.ShouldResemble, tensor.Shape{1, 2})
	test.That(t, m.Data(), test.ShouldResemble, []uint8{0, 1})
}

func TestBlurKeepsGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 5))
	g.SetGray(2, 2, color.Gray{Y: 255})
	blurred := Blur(g, 1)
	_, ok := blurred.(*image.Gray)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, blurred.(*image.Gray).GrayAt(2, 2).Y, test.ShouldBeLessThan, 255)
	test.That(t, blurred.(*image.Gray).GrayAt(2, 1).Y, test.ShouldBeGreaterThan, 0)
	test.That(t, Blur(g, 0), test.ShouldEqual, g)
}

func TestLandscape(t *testing.T) {
	// 3x2x1 portrait
	portrait := tensor.New(tensor.WithShape(3, 2, 1), tensor.WithBacking([]uint8{1, 2, 3, 4, 5, 6}))
	test.That(t, IsLandscape(portrait), test.ShouldBeFalse)
	land, err := Landscape(portrait)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, land.Shape(), test.ShouldResemble, tensor.Shape{2, 3, 1})
	test.That(t, land.Data(), test.ShouldResemble, []uint8{1, 3, 5, 2, 4, 6})
	// input untouched
	test.That(t, portrait.Shape(), test.ShouldResemble, tensor.Shape{3, 2, 1})

	again, err := Landscape(land)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Shape(), test.ShouldResemble, land.Shape())
	test.That(t, again.Data(), test.ShouldResemble, land.Data())

	square := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]uint16{1, 2, 3, 4}))
	same, err := Landscape(square)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, square)

	tall := tensor.New(tensor.WithShape(3, 1), tensor.WithBacking([]uint16{7, 8, 9}))
	wide, err := Landscape(tall)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wide.Shape(), test.ShouldResemble, tensor.Shape{1, 3})
	test.That(t, wide.Data(), test.ShouldResemble, []uint16{7, 8, 9})
}

func TestSqueezeChannels(t *testing.T) {
	mask := tensor.New(tensor.WithShape(2, 3, 1), tensor.WithBacking([]uint8{0, 1, 0, 1, 1, 0}))
	sq, err := SqueezeChannels(mask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sq.Shape(), test.ShouldResemble, tensor.Shape{2, 3})

	color3 := tensor.New(tensor.WithShape(1, 1, 3), tensor.WithBacking([]uint8{1, 2, 3}))
	kept, err := SqueezeChannels(color3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kept.Shape(), test.ShouldResemble, tensor.Shape{1, 1, 3})

	_, err = SqueezeChannels(tensor.New(tensor.WithShape(3), tensor.WithBacking([]uint8{1, 2, 3})))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAppendChannel(t *testing.T) {
	img := tensor.New(tensor.WithShape(1, 2, 3), tensor.WithBacking([]uint8{1, 2, 3, 4, 5, 6}))
	depth := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]uint16{1000, 2000}))
	out, err := AppendChannel(img, depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Shape(), test.ShouldResemble, tensor.Shape{1, 2, 4})
	test.That(t, out.Dtype(), test.ShouldResemble, tensor.Float32)
	test.That(t, out.Data(), test.ShouldResemble, []float32{1, 2, 3, 1000, 4, 5, 6, 2000})
	// inputs are not modified
	test.That(t, depth.Shape(), test.ShouldResemble, tensor.Shape{1, 2})

	_, err = AppendChannel(img, tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]uint16{1, 2})))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = AppendChannel(depth, depth)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConversions(t *testing.T) {
	d := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]uint16{1, 255, 256, 300}))
	u8, err := ToUint8(d)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u8.Data(), test.ShouldResemble, []uint8{1, 255, 0, 44})
	test.That(t, u8.Shape(), test.ShouldResemble, tensor.Shape{2, 2})

	f, err := ToFloat32(d)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Data(), test.ShouldResemble, []float32{1, 255, 256, 300})

	img := tensor.New(tensor.WithShape(1, 2, 2), tensor.WithBacking([]float32{1, 10, 3, 30}))
	channels, err := ChannelValues(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, channels, test.ShouldResemble, [][]float64{{1, 3}, {10, 30}})
}

func TestGaussianBlur(t *testing.T) {
	impulse := tensor.New(tensor.WithShape(1, 5), tensor.WithBacking([]float32{0, 0, 10, 0, 0}))
	out, err := GaussianBlur(impulse, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Shape(), test.ShouldResemble, tensor.Shape{1, 5})
	vals := out.Data().([]float32)
	test.That(t, vals[2], test.ShouldBeBetween, 5, 10)
	test.That(t, vals[1], test.ShouldBeBetween, 0, 2)
	test.That(t, vals[1], test.ShouldAlmostEqual, vals[3], 1e-6)
	var sum float32
	for _, v := range vals {
		sum += v
	}
	test.That(t, sum, test.ShouldAlmostEqual, 10, 1e-4)
	// input untouched
	test.That(t, impulse.Data(), test.ShouldResemble, []float32{0, 0, 10, 0, 0})

	flat := tensor.New(tensor.WithShape(2, 3, 2), tensor.WithBacking([]float32{
		4, 7, 4, 7, 4, 7,
		4, 7, 4, 7, 4, 7,
	}))
	out, err = GaussianBlur(flat, 2)
	test.That(t, err, test.ShouldBeNil)
	for i, v := range out.Data().([]float32) {
		if i%2 == 0 {
			test.That(t, v, test.ShouldAlmostEqual, 4, 1e-4)
		} else {
			test.That(t, v, test.ShouldAlmostEqual, 7, 1e-4)
		}
	}

	same, err := GaussianBlur(flat, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same.Data(), test.ShouldResemble, flat.Data())

	_, err = GaussianBlur(tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]uint8{1, 2})), 1)
	test.That(t, err, test.ShouldNotBeNil)
}
