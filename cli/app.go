// Package cli contains the vidseg command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagConfig = "config"
	flagDebug  = "debug"
	flagNum    = "num"
	flagRoot   = "root"
	flagDB     = "db"
)

var app = &cli.App{
	Name:            "vidseg",
	Usage:           "inspect video segmentation datasets and their loading pipelines",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "manifest",
			Usage:  "load the configured dataset and print its clips",
			Action: ManifestAction,
		},
		{
			Name:  "inspect",
			Usage: "run the pipeline on the first samples and print shapes and per-channel statistics",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  flagNum,
					Value: 1,
					Usage: "number of samples to load",
				},
			},
			Action: InspectAction,
		},
		{
			Name:   "registry",
			Usage:  "list registered datasets, transforms and file client backends",
			Action: RegistryAction,
		},
		{
			Name:      "pack",
			Usage:     "copy a directory of frames into a sqlite blob store readable by the sqlite file client",
			UsageText: "vidseg pack --root <dir> --db <file>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagRoot,
					Required: true,
					Usage:    "directory to pack",
				},
				&cli.PathFlag{
					Name:     flagDB,
					Required: true,
					Usage:    "sqlite database to write",
				},
			},
			Action: PackAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
