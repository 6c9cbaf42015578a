package registry

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/utils"
)

// BuildPipeline constructs every configured stage in order. Stages built before a failure are
// closed.
func BuildPipeline(ctx context.Context, stages []config.Transform, logger logging.Logger) (sample.Compose, error) {
	pipeline := make(sample.Compose, 0, len(stages))
	for i, stage := range stages {
		reg := TransformLookup(stage.Type)
		if reg == nil {
			return nil, multierr.Combine(
				utils.NewConfigurationError("pipeline", "stage %d: no transform registered as %q", i, stage.Type),
				pipeline.Close(ctx))
		}
		tr, err := reg.Constructor(ctx, stage.Attributes, logger.Sublogger(stage.Type))
		if err != nil {
			return nil, multierr.Combine(
				errors.Wrapf(err, "cannot build pipeline stage %d (%s)", i, stage.Type),
				pipeline.Close(ctx))
		}
		pipeline = append(pipeline, tr)
	}
	return pipeline, nil
}

// BuildDataset constructs the configured pipeline and then the dataset that drives it.
func BuildDataset(ctx context.Context, conf config.Dataset, logger logging.Logger) (sample.Dataset, error) {
	reg := DatasetLookup(conf.Type)
	if reg == nil {
		return nil, utils.NewConfigurationError("type", "no dataset registered as %q", conf.Type)
	}
	pipeline, err := BuildPipeline(ctx, conf.Pipeline, logger)
	if err != nil {
		return nil, err
	}
	ds, err := reg.Constructor(ctx, conf, pipeline, logger.Sublogger(conf.Type))
	if err != nil {
		return nil, multierr.Combine(err, pipeline.Close(ctx))
	}
	return ds, nil
}
