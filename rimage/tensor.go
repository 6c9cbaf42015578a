package rimage

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"
)

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

func convertSlice[T number](slice interface{}) ([]T, error) {
	switch v := slice.(type) {
	case []uint8:
		return convertNumberSlice[uint8, T](v), nil
	case []uint16:
		return convertNumberSlice[uint16, T](v), nil
	case []uint32:
		return convertNumberSlice[uint32, T](v), nil
	case []int8:
		return convertNumberSlice[int8, T](v), nil
	case []int16:
		return convertNumberSlice[int16, T](v), nil
	case []int32:
		return convertNumberSlice[int32, T](v), nil
	case []int64:
		return convertNumberSlice[int64, T](v), nil
	case []int:
		return convertNumberSlice[int, T](v), nil
	case []float32:
		return convertNumberSlice[float32, T](v), nil
	case []float64:
		return convertNumberSlice[float64, T](v), nil
	default:
		return nil, errors.Errorf("dont know how to convert slice of %T", slice)
	}
}

func convertDense[T number](t *tensor.Dense, dt tensor.Dtype) (*tensor.Dense, error) {
	if t.Dtype() == dt {
		return t.Clone().(*tensor.Dense), nil
	}
	if t.IsMaterializable() {
		t = t.Materialize().(*tensor.Dense)
	}
	data, err := convertSlice[T](t.Data())
	if err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(t.Shape().Clone()...), tensor.WithBacking(data)), nil
}

// ToFloat32 returns a float32 copy of t.
func ToFloat32(t *tensor.Dense) (*tensor.Dense, error) {
	return convertDense[float32](t, tensor.Float32)
}

// ToUint8 returns a uint8 copy of t. Values are converted like a C cast.
func ToUint8(t *tensor.Dense) (*tensor.Dense, error) {
	return convertDense[uint8](t, tensor.Uint8)
}

// ToFloat64Slice returns the values of t as float64.
func ToFloat64Slice(t *tensor.Dense) ([]float64, error) {
	if t.IsMaterializable() {
		t = t.Materialize().(*tensor.Dense)
	}
	return convertSlice[float64](t.Data())
}

// IsLandscape reports whether the first axis (height) is not larger than the second (width).
func IsLandscape(t *tensor.Dense) bool {
	shape := t.Shape()
	return shape.Dims() < 2 || shape[0] <= shape[1]
}

// Landscape returns t with its first two axes swapped when its height exceeds its width. Other
// axes keep their position. Landscape tensors are returned unchanged, so applying it twice is
// the same as applying it once.
func Landscape(t *tensor.Dense) (*tensor.Dense, error) {
	if IsLandscape(t) {
		return t, nil
	}
	axes := make([]int, t.Dims())
	for i := range axes {
		axes[i] = i
	}
	axes[0], axes[1] = 1, 0
	out := t.Clone().(*tensor.Dense)
	if err := out.T(axes...); err != nil {
		return nil, errors.Wrap(err, "cannot transpose")
	}
	if err := out.Transpose(); err != nil {
		return nil, errors.Wrap(err, "cannot transpose")
	}
	return out, nil
}

// SqueezeChannels drops every size one axis after the first two, so an HxWx1 mask becomes HxW.
func SqueezeChannels(t *tensor.Dense) (*tensor.Dense, error) {
	shape := t.Shape()
	if shape.Dims() < 2 {
		return nil, errors.Errorf("expected at least 2 dimensions, got shape %v", shape)
	}
	dims := []int{shape[0], shape[1]}
	for _, d := range shape[2:] {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	out := t.Clone().(*tensor.Dense)
	if len(dims) == shape.Dims() {
		return out, nil
	}
	if err := out.Reshape(dims...); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendChannel appends an HxW (or HxWx1) tensor as the last channel of an HxWxC image. Both are
// converted to float32.
func AppendChannel(img, channel *tensor.Dense) (*tensor.Dense, error) {
	imgShape, chShape := img.Shape(), channel.Shape()
	if imgShape.Dims() != 3 {
		return nil, errors.Errorf("expected an HxWxC image, got shape %v", imgShape)
	}
	if chShape.Dims() < 2 || chShape[0] != imgShape[0] || chShape[1] != imgShape[1] {
		return nil, errors.Errorf("cannot append channel of shape %v to image of shape %v", chShape, imgShape)
	}
	if chShape.TotalSize() != imgShape[0]*imgShape[1] {
		return nil, errors.Errorf("channel of shape %v is not single channel", chShape)
	}
	base, err := ToFloat32(img)
	if err != nil {
		return nil, err
	}
	extra, err := ToFloat32(channel)
	if err != nil {
		return nil, err
	}
	if err := extra.Reshape(imgShape[0], imgShape[1], 1); err != nil {
		return nil, err
	}
	return base.Concat(2, extra)
}

// ChannelValues splits an HxWxC tensor into the float64 values of each channel. An HxW tensor
// has one channel.
func ChannelValues(t *tensor.Dense) ([][]float64, error) {
	values, err := ToFloat64Slice(t)
	if err != nil {
		return nil, err
	}
	c := 1
	if t.Dims() >= 3 {
		c = t.Shape()[t.Dims()-1]
	}
	channels := make([][]float64, c)
	for i := range channels {
		channels[i] = make([]float64, 0, len(values)/c)
	}
	for i, v := range values {
		channels[i%c] = append(channels[i%c], v)
	}
	return channels, nil
}

// GaussianBlur returns a copy of the float32 tensor t blurred over its first two axes with a
// separable gaussian of the given sigma. The kernel covers three sigmas on each side, borders
// are clamped, and trailing channels are blurred independently.
func GaussianBlur(t *tensor.Dense, sigma float64) (*tensor.Dense, error) {
	if t.Dtype() != tensor.Float32 {
		return nil, errors.Errorf("expected a float32 tensor, got %v", t.Dtype())
	}
	shape := t.Shape()
	if shape.Dims() < 2 {
		return nil, errors.Errorf("expected at least 2 dimensions, got shape %v", shape)
	}
	if t.IsMaterializable() {
		t = t.Materialize().(*tensor.Dense)
	}
	src := append([]float32(nil), t.Data().([]float32)...)
	out := tensor.New(tensor.WithShape(shape.Clone()...), tensor.WithBacking(src))
	if sigma <= 0 {
		return out, nil
	}

	h, w := shape[0], shape[1]
	c := len(src) / (h * w)
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	tmp := make([]float32, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				var sum float64
				for k, weight := range kernel {
					xx := clampIndex(x+k-radius, w)
					sum += weight * float64(src[(y*w+xx)*c+ch])
				}
				tmp[(y*w+x)*c+ch] = float32(sum)
			}
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				var sum float64
				for k, weight := range kernel {
					yy := clampIndex(y+k-radius, h)
					sum += weight * float64(tmp[(yy*w+x)*c+ch])
				}
				src[(y*w+x)*c+ch] = float32(sum)
			}
		}
	}
	return out, nil
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var total float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		total += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
