// Package main is the vidseg command itself.
package main

import (
	"os"

	"github.com/vidseg/vidseg/cli"
	"github.com/vidseg/vidseg/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("vidseg").Error(err)
		os.Exit(1)
	}
}
