package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/fileclient"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/registry"
	"github.com/vidseg/vidseg/rimage"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/utils"
)

// LoadAnnotationsName is the registered name of the annotation loader.
const LoadAnnotationsName = "LoadAnnotations"

// Segmentation fields published by LoadAnnotations.
const (
	FlowXField = "flow_x"
	FlowYField = "flow_y"
)

func init() {
	registry.RegisterTransform(LoadAnnotationsName, registry.Transform{
		Constructor: func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (sample.Transform, error) {
			return NewLoadAnnotations(attributes, logger)
		},
	})
}

// LabelMode says how raw mask values become labels.
type LabelMode string

// Label modes.
const (
	// LabelModeIdentity keeps mask values as they are.
	LabelModeIdentity LabelMode = "identity"
	// LabelModeReduceZero shifts labels down by one with 0 mapped to 255. It is not supported.
	LabelModeReduceZero LabelMode = "reduce_zero"
)

// LoadAnnotationsConfig holds the attributes of LoadAnnotations.
type LoadAnnotationsConfig struct {
	ImdecodeBackend string             `json:"imdecode_backend"`
	LabelMode       LabelMode          `json:"label_mode"`
	FileClient      utils.AttributeMap `json:"file_client,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *LoadAnnotationsConfig) Validate() error {
	if _, err := channelOrder(conf.ImdecodeBackend); err != nil {
		return err
	}
	switch conf.LabelMode {
	case LabelModeIdentity:
		return nil
	case LabelModeReduceZero:
		return utils.NewConfigurationError("label_mode", "%q is not supported", string(conf.LabelMode))
	default:
		return utils.NewConfigurationError("label_mode", "unknown label mode %q", string(conf.LabelMode))
	}
}

// LoadAnnotations reads the mask of a clip and publishes it as both flow fields.
type LoadAnnotations struct {
	conf   LoadAnnotationsConfig
	order  rimage.ChannelOrder
	files  *fileclient.Handle
	logger logging.Logger
}

// NewLoadAnnotations builds the stage from its attributes.
func NewLoadAnnotations(attributes utils.AttributeMap, logger logging.Logger) (*LoadAnnotations, error) {
	conf := LoadAnnotationsConfig{ImdecodeBackend: BackendPillow, LabelMode: LabelModeIdentity}
	if err := config.DecodeAttributes(attributes, &conf); err != nil {
		return nil, errors.Wrap(err, "cannot parse LoadAnnotations attributes")
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
	return &LoadAnnotations{conf: conf, order: order, files: files, logger: logger}, nil
}

// Apply reads the mask named by the annotation info. The mask must have a single channel once
// size one axes are dropped; a color mask fails with a FormatError instead of being cast
// channel by channel.
func (la *LoadAnnotations) Apply(ctx context.Context, results *sample.Results) (*sample.Results, error) {
	ctx, span := trace.StartSpan(ctx, "vidseg::pipeline::LoadAnnotations::Apply")
	defer span.End()

	if results.AnnInfo == nil || results.AnnInfo.SegMap == "" {
		return nil, utils.NewConfigurationError("ann_dir", "sample has no annotation info")
	}
	path := joinPrefix(results.SegPrefix, results.AnnInfo.SegMap)
	data, err := la.files.Get(ctx, path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	img, _, err := rimage.DecodeImage(data)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	mask, err := rimage.ImageToTensor(img, rimage.ColorTypeUnchanged, la.order)
	if err != nil {
		return nil, err
	}
	if mask, err = rimage.SqueezeChannels(mask); err != nil {
		return nil, utils.NewFormatError(path, 0, "%v", err)
	}
	if mask.Dims() != 2 {
		return nil, utils.NewFormatError(path, 0, "expected a single channel mask, got shape %v", mask.Shape())
	}
	if mask, err = rimage.ToUint8(mask); err != nil {
		return nil, err
	}
	if mask, err = rimage.Landscape(mask); err != nil {
		return nil, err
	}
	results.SetSegField(FlowXField, mask)
	results.SetSegField(FlowYField, mask)
	return results, nil
}

// Close releases the stage's file client.
func (la *LoadAnnotations) Close(ctx context.Context) error {
	return la.files.Close()
}

func (la *LoadAnnotations) String() string {
	return fmt.Sprintf("LoadAnnotations(label_mode='%s',imdecode_backend='%s')", la.conf.LabelMode, la.conf.ImdecodeBackend)
}
