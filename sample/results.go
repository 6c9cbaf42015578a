// Package sample defines the per-sample record that flows through a data pipeline, along with
// the dataset and transform interfaces a host training loop drives.
package sample

import (
	"path/filepath"

	"gorgonia.org/tensor"
)

// ImgInfo is the per-index image record a dataset hands to the pipeline.
type ImgInfo struct {
	// Folder holding the RGB frames, e.g. <img_dir>/<clip>/rgb/.
	Folder string
	// Frames are the frame filenames of the clip, in manifest order.
	Frames []string
	// DepthFolder holds depth frames with the same filenames. Empty when the clip has none.
	DepthFolder string
}

// AnnInfo is the per-index annotation record.
type AnnInfo struct {
	SegMap string
}

// FrameRef names a folder together with a list of frame filenames inside it.
type FrameRef struct {
	Folder string
	Frames []string
}

// Paths returns the joined path of every frame.
func (ref FrameRef) Paths() []string {
	paths := make([]string, 0, len(ref.Frames))
	for _, fn := range ref.Frames {
		paths = append(paths, filepath.Join(ref.Folder, fn))
	}
	return paths
}

// NormConfig declares the normalization parameters downstream stages should apply.
type NormConfig struct {
	Mean  []float32
	Std   []float32
	ToRGB bool
}

// IdentityNorm returns zero mean / unit std for the given channel count.
func IdentityNorm(channels int) NormConfig {
	cfg := NormConfig{Mean: make([]float32, channels), Std: make([]float32, channels)}
	for i := range cfg.Std {
		cfg.Std[i] = 1
	}
	return cfg
}

// Results accumulates the fields of one sample as it passes through the pipeline. A fresh value
// is created for every request.
type Results struct {
	ImgInfo   ImgInfo
	AnnInfo   *AnnInfo
	ImgPrefix string
	SegPrefix string

	Filename    FrameRef
	OriFilename FrameRef

	Img    []*tensor.Dense
	OriImg []*tensor.Dense
	Depth  []*tensor.Dense

	ImgShape    tensor.Shape
	OriShape    tensor.Shape
	PadShape    tensor.Shape
	ScaleFactor float64
	ImgNormCfg  NormConfig

	// SegFields lists the keys of Seg that geometric augmentations must treat like a label map.
	SegFields []string
	Seg       map[string]*tensor.Dense
}

// NewResults returns an empty record for the given image/annotation info.
func NewResults(imgInfo ImgInfo, annInfo *AnnInfo) *Results {
	return &Results{
		ImgInfo: imgInfo,
		AnnInfo: annInfo,
		Seg:     map[string]*tensor.Dense{},
	}
}

// SetSegField stores t under name and registers the name as a segmentation field.
func (r *Results) SetSegField(name string, t *tensor.Dense) {
	if r.Seg == nil {
		r.Seg = map[string]*tensor.Dense{}
	}
	r.Seg[name] = t
	for _, existing := range r.SegFields {
		if existing == name {
			return
		}
	}
	r.SegFields = append(r.SegFields, name)
}

// Channels returns the channel count of the first image, or 0 when nothing is loaded.
func (r *Results) Channels() int {
	if len(r.Img) == 0 {
		return 0
	}
	shape := r.Img[0].Shape()
	if shape.Dims() < 3 {
		return 1
	}
	return shape[2]
}
