package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/datasets"
	"github.com/vidseg/vidseg/fileclient"
	"github.com/vidseg/vidseg/logging"
	// register the pipeline stages.
	_ "github.com/vidseg/vidseg/pipeline"
	"github.com/vidseg/vidseg/registry"
	"github.com/vidseg/vidseg/rimage"
	"github.com/vidseg/vidseg/sample"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("vidseg")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.INFO)
	}
	return logger
}

func loadDataset(c *cli.Context, logger logging.Logger) (sample.Dataset, error) {
	path := c.String(flagConfig)
	if path == "" {
		return nil, errors.Errorf("a config file is required, pass --%s", flagConfig)
	}
	cfg, err := config.Read(c.Context, path, logger)
	if err != nil {
		return nil, err
	}
	return registry.BuildDataset(c.Context, cfg.Dataset, logger)
}

// ManifestAction prints the clips of the configured dataset.
func ManifestAction(c *cli.Context) error {
	logger := newLogger(c)
	ds, err := loadDataset(c, logger)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(func() error { return ds.Close(c.Context) })

	withManifest, ok := ds.(interface{ Manifest() datasets.Manifest })
	if !ok {
		return errors.Errorf("dataset %T has no manifest", ds)
	}
	printf(c.App.Writer, "%s", withManifest.Manifest().String())
	printf(c.App.Writer, "%d clips, classes %v", ds.Len(), ds.Classes())
	return nil
}

// InspectAction loads the first samples and prints their shapes and channel statistics.
func InspectAction(c *cli.Context) error {
	logger := newLogger(c)
	ds, err := loadDataset(c, logger)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(func() error { return ds.Close(c.Context) })

	num := c.Int(flagNum)
	if num < 1 {
		return errors.Errorf("--%s must be at least 1", flagNum)
	}
	num = lo.Min([]int{num, ds.Len()})

	samples := table.NewWriter()
	samples.AppendHeader(table.Row{"#", "Frames", "Image Shape", "Channels", "Seg Fields"})
	var channels [][]float64
	for i := 0; i < num; i++ {
		res, err := ds.Sample(c.Context, i)
		if err != nil {
			return err
		}
		shape := ""
		if len(res.Img) > 0 {
			shape = fmt.Sprintf("%v", res.Img[0].Shape())
		}
		samples.AppendRow(table.Row{i, fmt.Sprintf("%v", res.Filename.Frames), shape, res.Channels(), fmt.Sprintf("%v", res.SegFields)})
		for _, img := range res.Img {
			values, err := rimage.ChannelValues(img)
			if err != nil {
				return err
			}
			if channels == nil {
				channels = make([][]float64, len(values))
			}
			if len(values) != len(channels) {
				return errors.Errorf("sample %d has %d channels, expected %d", i, len(values), len(channels))
			}
			for ch, v := range values {
				channels[ch] = append(channels[ch], v...)
			}
		}
	}
	printf(c.App.Writer, "%s", samples.Render())

	if len(channels) == 0 {
		return nil
	}
	summary := table.NewWriter()
	summary.AppendHeader(table.Row{"Channel", "Mean", "Std", "Min", "Max"})
	for ch, values := range channels {
		row, err := channelRow(ch, values)
		if err != nil {
			return err
		}
		summary.AppendRow(row)
	}
	printf(c.App.Writer, "%s", summary.Render())
	return nil
}

func channelRow(ch int, values []float64) (table.Row, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, err
	}
	std, err := stats.StandardDeviation(values)
	if err != nil {
		return nil, err
	}
	lowest, err := stats.Min(values)
	if err != nil {
		return nil, err
	}
	highest, err := stats.Max(values)
	if err != nil {
		return nil, err
	}
	return table.Row{
		ch,
		fmt.Sprintf("%.3f", mean),
		fmt.Sprintf("%.3f", std),
		fmt.Sprintf("%.0f", lowest),
		fmt.Sprintf("%.0f", highest),
	}, nil
}

// RegistryAction lists what a config can refer to.
func RegistryAction(c *cli.Context) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Kind", "Name", "Registered At"})

	dsRegs := registry.RegisteredDatasets()
	dsNames := lo.Keys(dsRegs)
	sort.Strings(dsNames)
	for _, name := range dsNames {
		t.AppendRow(table.Row{"dataset", name, dsRegs[name].RegistrarLoc})
	}

	trRegs := registry.RegisteredTransforms()
	trNames := lo.Keys(trRegs)
	sort.Strings(trNames)
	for _, name := range trNames {
		t.AppendRow(table.Row{"transform", name, trRegs[name].RegistrarLoc})
	}

	for _, name := range fileclient.Backends() {
		t.AppendRow(table.Row{"file client", name, ""})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// PackAction copies every file below --root into a sqlite blob store.
func PackAction(c *cli.Context) error {
	root, err := filepath.Abs(c.Path(flagRoot))
	if err != nil {
		return err
	}
	store, err := fileclient.OpenSQLiteStore(c.Context, c.Path(flagDB))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(store.Close)

	n, err := fileclient.PackDirectory(c.Context, osfs.New(""), root, store)
	if err != nil {
		return errors.Wrapf(err, "packed %d files before failing", n)
	}
	printf(c.App.Writer, "packed %d files from %s into %s", n, root, c.Path(flagDB))
	return nil
}
