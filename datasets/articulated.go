package datasets

import (
	"context"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/registry"
	"github.com/vidseg/vidseg/sample"
)

// ArticulatedDatasetName is the registered name of the articulated object dataset.
const ArticulatedDatasetName = "ArticulatedDataset"

// ArticulatedMetadata is the binary background/foreground label space.
var ArticulatedMetadata = Metadata{
	Classes: []string{"background", "foreground"},
	Palette: []sample.Color{{0, 0, 0}, {128, 0, 0}},
}

func init() {
	registry.RegisterDataset(ArticulatedDatasetName, registry.Dataset{
		Constructor: func(
			ctx context.Context,
			conf config.Dataset,
			pipeline sample.Transform,
			logger logging.Logger,
		) (sample.Dataset, error) {
			return NewArticulatedDataset(ctx, conf, pipeline, logger)
		},
	})
}

// NewArticulatedDataset returns a dataset of multi-frame clips with paired RGB, depth and mask
// frames, enumerated from the split file of conf.
func NewArticulatedDataset(
	ctx context.Context,
	conf config.Dataset,
	pipeline sample.Transform,
	logger logging.Logger,
) (*CustomDataset, error) {
	return NewCustomDataset(ctx, conf, ArticulatedMetadata, pipeline, logger)
}
