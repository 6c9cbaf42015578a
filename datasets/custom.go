package datasets

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	"gorgonia.org/tensor"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/fileclient"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/utils"
)

// IndexMode says how a dataset enumerates its samples.
type IndexMode string

// Index modes.
const (
	// IndexModeManifest reads the clips from a split file.
	IndexModeManifest IndexMode = "manifest"
	// IndexModeDirectoryScan lists image files under the image directory. It is not supported.
	IndexModeDirectoryScan IndexMode = "directory_scan"
)

func parseIndexMode(mode string) (IndexMode, error) {
	switch IndexMode(mode) {
	case "", IndexModeManifest:
		return IndexModeManifest, nil
	case IndexModeDirectoryScan:
		return "", utils.NewConfigurationError("index_mode", "%q is not supported, a split file is required", mode)
	default:
		return "", utils.NewConfigurationError("index_mode", "unknown index mode %q", mode)
	}
}

// Metadata describes the label space of a dataset.
type Metadata struct {
	Classes []string
	Palette []sample.Color
}

// CustomDataset is a manifest backed dataset. Every Sample call builds a fresh record for a clip
// and runs it through the pipeline.
type CustomDataset struct {
	meta     Metadata
	imgDir   string
	annDir   string
	split    string
	testMode bool
	manifest Manifest
	pipeline sample.Transform
	logger   logging.Logger
}

// resolvePath joins p onto root when it is relative. On local disk the result is made absolute
// against the working directory. Every other file client resolves paths against its own root
// (a base URL, the packed directory), so there the result is only rooted at "/".
func resolvePath(root, p string, local bool) (string, error) {
	if p == "" {
		return "", nil
	}
	if root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	if local {
		return filepath.Abs(p)
	}
	return path.Join("/", filepath.ToSlash(p)), nil
}

// NewCustomDataset checks the image directory and loads the manifest named by conf.
func NewCustomDataset(
	ctx context.Context,
	conf config.Dataset,
	meta Metadata,
	pipeline sample.Transform,
	logger logging.Logger,
) (*CustomDataset, error) {
	if _, err := parseIndexMode(conf.IndexMode); err != nil {
		return nil, err
	}
	if pipeline == nil {
		pipeline = sample.Compose{}
	}
	files, err := fileclient.NewHandle(conf.FileClient, logger)
	if err != nil {
		return nil, err
	}
	local := files.Backend() == fileclient.DefaultBackend

	ds := &CustomDataset{meta: meta, testMode: conf.TestMode, pipeline: pipeline, logger: logger}
	if ds.imgDir, err = resolvePath(conf.DataRoot, conf.ImgDir, local); err != nil {
		return nil, utils.NewConfigurationError("img_dir", "%v", err)
	}
	if ds.annDir, err = resolvePath(conf.DataRoot, conf.AnnDir, local); err != nil {
		return nil, utils.NewConfigurationError("ann_dir", "%v", err)
	}
	if ds.split, err = resolvePath(conf.DataRoot, conf.Split, local); err != nil {
		return nil, utils.NewConfigurationError("split", "%v", err)
	}
	if ds.imgDir == "" {
		return nil, utils.NewConfigurationError("img_dir", "field is required")
	}
	if ds.split == "" {
		return nil, utils.NewConfigurationError("split", "a split file is required")
	}

	manifest, err := ds.loadManifest(ctx, files)
	if err = multierr.Combine(err, files.Close()); err != nil {
		return nil, err
	}
	ds.manifest = manifest
	return ds, nil
}

func (ds *CustomDataset) loadManifest(ctx context.Context, files *fileclient.Handle) (Manifest, error) {
	client, err := files.Client(ctx)
	if err != nil {
		return nil, err
	}
	if stater, ok := client.(fileclient.Stater); ok {
		exists, err := stater.Exists(ctx, ds.imgDir)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, utils.NewIOError(ds.imgDir, os.ErrNotExist)
		}
	}
	return LoadManifest(ctx, client, ds.split, ds.imgDir, ds.annDir != "", ds.logger)
}

// Len returns the number of clips.
func (ds *CustomDataset) Len() int {
	return len(ds.manifest)
}

// Manifest returns the loaded clips.
func (ds *CustomDataset) Manifest() Manifest {
	return ds.manifest
}

// ImgDir returns the resolved image directory.
func (ds *CustomDataset) ImgDir() string {
	return ds.imgDir
}

// AnnDir returns the resolved annotation directory, empty when there is none.
func (ds *CustomDataset) AnnDir() string {
	return ds.annDir
}

// Split returns the resolved split file path.
func (ds *CustomDataset) Split() string {
	return ds.split
}

// TestMode reports whether samples are built without annotations.
func (ds *CustomDataset) TestMode() bool {
	return ds.testMode
}

// Classes returns the label names.
func (ds *CustomDataset) Classes() []string {
	return append([]string(nil), ds.meta.Classes...)
}

// Palette returns the label colors.
func (ds *CustomDataset) Palette() []sample.Color {
	return append([]sample.Color(nil), ds.meta.Palette...)
}

// prePipeline fills the fields every pipeline stage may rely on.
func (ds *CustomDataset) prePipeline(results *sample.Results) {
	results.ImgPrefix = ds.imgDir
	results.SegPrefix = ds.annDir
	results.SegFields = []string{}
	results.Seg = map[string]*tensor.Dense{}
}

// Sample builds the record for clip idx and runs the pipeline on it.
func (ds *CustomDataset) Sample(ctx context.Context, idx int) (*sample.Results, error) {
	ctx, span := trace.StartSpan(ctx, "vidseg::datasets::Sample")
	defer span.End()

	if idx < 0 || idx >= len(ds.manifest) {
		return nil, errors.Errorf("index %d out of range for dataset of %d clips", idx, len(ds.manifest))
	}
	clip := ds.manifest[idx]
	var annInfo *sample.AnnInfo
	if !ds.testMode {
		annInfo = clip.AnnInfo()
	}
	results := sample.NewResults(clip.ImgInfo(), annInfo)
	ds.prePipeline(results)
	out, err := ds.pipeline.Apply(ctx, results)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot prepare sample %d (%s)", idx, clip.Dir)
	}
	return out, nil
}

// Close closes the pipeline.
func (ds *CustomDataset) Close(ctx context.Context) error {
	return ds.pipeline.Close(ctx)
}
