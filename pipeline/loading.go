package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gorgonia.org/tensor"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/fileclient"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/registry"
	"github.com/vidseg/vidseg/rimage"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/utils"
)

// LoadImageFromFileName is the registered name of the frame loader.
const LoadImageFromFileName = "LoadImageFromFile"

func init() {
	registry.RegisterTransform(LoadImageFromFileName, registry.Transform{
		Constructor: func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (sample.Transform, error) {
			return NewLoadImageFromFile(attributes, logger)
		},
	})
}

// Decode backends. They differ in the channel order of color images.
const (
	BackendCV2    = "cv2"
	BackendPillow = "pillow"
)

func channelOrder(backend string) (rimage.ChannelOrder, error) {
	switch backend {
	case BackendCV2:
		return rimage.ChannelOrderBGR, nil
	case BackendPillow:
		return rimage.ChannelOrderRGB, nil
	default:
		return "", utils.NewConfigurationError("imdecode_backend", "unknown backend %q", backend)
	}
}

// LoadImageConfig holds the attributes of LoadImageFromFile.
type LoadImageConfig struct {
	LoadNum         int                `json:"load_num"`
	StepLimit       int                `json:"step_limit"`
	IsTrain         bool               `json:"is_train"`
	UseGaussBlur    bool               `json:"use_gauss_blur"`
	BlurSigma       float64            `json:"blur_sigma"`
	ToFloat32       bool               `json:"to_float32"`
	ColorType       rimage.ColorType   `json:"color_type"`
	ImdecodeBackend string             `json:"imdecode_backend"`
	LoadDepth       bool               `json:"load_depth"`
	Seed            *int64             `json:"seed,omitempty"`
	FileClient      utils.AttributeMap `json:"file_client,omitempty"`
}

// DefaultLoadImageConfig returns the defaults used for absent attributes.
func DefaultLoadImageConfig() LoadImageConfig {
	return LoadImageConfig{
		LoadNum:         2,
		StepLimit:       1,
		IsTrain:         true,
		BlurSigma:       3,
		ColorType:       rimage.ColorTypeColor,
		ImdecodeBackend: BackendCV2,
		LoadDepth:       true,
	}
}

// Validate ensures all parts of the config are valid.
func (conf *LoadImageConfig) Validate() error {
	if conf.LoadNum < 1 {
		return utils.NewConfigurationError("load_num", "must be at least 1, got %d", conf.LoadNum)
	}
	if conf.StepLimit < 1 {
		return utils.NewConfigurationError("step_limit", "must be at least 1, got %d", conf.StepLimit)
	}
	if conf.BlurSigma <= 0 {
		return utils.NewConfigurationError("blur_sigma", "must be positive, got %v", conf.BlurSigma)
	}
	if err := conf.ColorType.Validate(); err != nil {
		return utils.NewConfigurationError("color_type", "%v", err)
	}
	if _, err := channelOrder(conf.ImdecodeBackend); err != nil {
		return err
	}
	return nil
}

// LoadImageFromFile reads a window of frames of one clip, with the matching depth frames when
// the clip has them, and stores them as HxWxC tensors.
type LoadImageFromFile struct {
	conf    LoadImageConfig
	order   rimage.ChannelOrder
	sampler *Sampler
	files   *fileclient.Handle
	logger  logging.Logger
}

// NewLoadImageFromFile builds the stage from its attributes.
func NewLoadImageFromFile(attributes utils.AttributeMap, logger logging.Logger) (*LoadImageFromFile, error) {
	conf := DefaultLoadImageConfig()
	if err := config.DecodeAttributes(attributes, &conf); err != nil {
		return nil, errors.Wrap(err, "cannot parse LoadImageFromFile attributes")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	order, err := channelOrder(conf.ImdecodeBackend)
	if err != nil {
		return nil, err
	}
	files, err := fileclient.NewHandle(conf.FileClient, logger)
	if err != nil {
		return nil, err
	}
	seed := time.Now().UnixNano()
	if conf.Seed != nil {
		seed = *conf.Seed
	}
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))
	return &LoadImageFromFile{
		conf:    conf,
		order:   order,
		sampler: NewSampler(rng, conf.IsTrain, conf.LoadNum, conf.StepLimit),
		files:   files,
		logger:  logger,
	}, nil
}

// Config returns the decoded attributes.
func (lif *LoadImageFromFile) Config() LoadImageConfig {
	return lif.conf
}

// joinPrefix joins p onto prefix unless p is absolute.
func joinPrefix(prefix, p string) string {
	if prefix == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(prefix, p)
}

// Apply loads the sampled frames into results.
func (lif *LoadImageFromFile) Apply(ctx context.Context, results *sample.Results) (*sample.Results, error) {
	ctx, span := trace.StartSpan(ctx, "vidseg::pipeline::LoadImageFromFile::Apply")
	defer span.End()

	info := results.ImgInfo
	folder := joinPrefix(results.ImgPrefix, info.Folder)
	if len(info.Frames) == 0 {
		return nil, utils.NewFormatError(folder, 0, "clip has no frames")
	}
	window := lif.sampler.Window(len(info.Frames))
	selected, err := SelectWindow(info.Frames, window)
	if err != nil {
		return nil, err
	}
	lif.logger.CDebugw(ctx, "sampled frame window",
		"folder", folder, "start", window.Start, "count", window.Count, "step", window.Step)

	depthFolder := ""
	if lif.conf.LoadDepth && info.DepthFolder != "" {
		depthFolder = joinPrefix(results.ImgPrefix, info.DepthFolder)
	}

	imgs := make([]*tensor.Dense, 0, len(selected))
	depths := make([]*tensor.Dense, 0, len(selected))
	for _, fn := range selected {
		img, err := lif.readFrame(ctx, filepath.Join(folder, fn))
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
		if depthFolder == "" {
			continue
		}
		depth, err := lif.readDepth(ctx, filepath.Join(depthFolder, fn))
		if err != nil {
			return nil, err
		}
		depths = append(depths, depth)
	}

	results.Filename = sample.FrameRef{Folder: folder, Frames: selected}
	results.OriFilename = sample.FrameRef{Folder: info.Folder, Frames: info.Frames}
	results.Img = imgs
	results.Depth = depths
	results.ImgShape = imgs[0].Shape().Clone()
	results.OriShape = imgs[0].Shape().Clone()
	results.PadShape = imgs[0].Shape().Clone()
	results.ScaleFactor = 1

	channels := 3
	if len(depths) == len(imgs) {
		concat := make([]*tensor.Dense, 0, len(imgs))
		for i, img := range imgs {
			withDepth, err := rimage.AppendChannel(img, depths[i])
			if err != nil {
				return nil, utils.NewFormatError(filepath.Join(depthFolder, selected[i]), 0, "%v", err)
			}
			concat = append(concat, withDepth)
		}
		results.OriImg = imgs
		results.Img = concat
		channels = 4
	}
	results.ImgNormCfg = sample.IdentityNorm(channels)
	return results, nil
}

func (lif *LoadImageFromFile) readFrame(ctx context.Context, path string) (*tensor.Dense, error) {
	data, err := lif.files.Get(ctx, path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	img, _, err := rimage.DecodeImage(data)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	// float frames are blurred after the cast
	if lif.conf.UseGaussBlur && !lif.conf.ToFloat32 {
		img = rimage.Blur(img, lif.conf.BlurSigma)
	}
	t, err := rimage.ImageToTensor(img, lif.conf.ColorType, lif.order)
	if err != nil {
		return nil, err
	}
	if lif.conf.ToFloat32 {
		if t, err = rimage.ToFloat32(t); err != nil {
			return nil, err
		}
		if lif.conf.UseGaussBlur {
			if t, err = rimage.GaussianBlur(t, lif.conf.BlurSigma); err != nil {
				return nil, err
			}
		}
	}
	return rimage.Landscape(t)
}

func (lif *LoadImageFromFile) readDepth(ctx context.Context, path string) (*tensor.Dense, error) {
	data, err := lif.files.Get(ctx, path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	img, _, err := rimage.DecodeImage(data)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	t, err := rimage.ImageToTensor(img, rimage.ColorTypeUnchanged, rimage.ChannelOrderRGB)
	if err != nil {
		return nil, err
	}
	return rimage.Landscape(t)
}

// Close releases the stage's file client.
func (lif *LoadImageFromFile) Close(ctx context.Context) error {
	return lif.files.Close()
}

func (lif *LoadImageFromFile) String() string {
	return fmt.Sprintf("LoadImageFromFile(load_num=%d,step_limit=%d,is_train=%t,to_float32=%t,color_type='%s',imdecode_backend='%s')",
		lif.conf.LoadNum, lif.conf.StepLimit, lif.conf.IsTrain, lif.conf.ToFloat32, lif.conf.ColorType, lif.conf.ImdecodeBackend)
}
