// Package datasets enumerates the samples of a video segmentation dataset from a split manifest
// and runs each through a data pipeline.
package datasets

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vidseg/vidseg/fileclient"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/utils"
)

// maxManifestLine bounds the length of one manifest line. Long clips list thousands of frames.
const maxManifestLine = 16 << 20

// A Clip is one manifest entry: a directory holding rgb/, depth/ and mask/ subdirectories and
// the ordered frame filenames to read from them.
type Clip struct {
	// Dir is the clip directory as written in the manifest.
	Dir      string
	BaseDir  string
	RGBDir   string
	DepthDir string
	MaskDir  string
	Frames   []string
	// SegMap is the mask of the first frame. Empty when the dataset has no annotations.
	SegMap string
}

func subdir(base, name string) string {
	return filepath.Join(base, name) + string(filepath.Separator)
}

// NewClip builds the clip entry for clipDir under imgDir.
func NewClip(imgDir, clipDir string, frames []string, withAnnotations bool) Clip {
	base := filepath.Join(imgDir, clipDir)
	clip := Clip{
		Dir:      clipDir,
		BaseDir:  base,
		RGBDir:   subdir(base, "rgb"),
		DepthDir: subdir(base, "depth"),
		MaskDir:  subdir(base, "mask"),
		Frames:   frames,
	}
	if withAnnotations {
		clip.SegMap = filepath.Join(clip.MaskDir, frames[0])
	}
	return clip
}

// ImgInfo returns the image record handed to the pipeline.
func (c Clip) ImgInfo() sample.ImgInfo {
	return sample.ImgInfo{
		Folder:      c.RGBDir,
		Frames:      append([]string(nil), c.Frames...),
		DepthFolder: c.DepthDir,
	}
}

// AnnInfo returns the annotation record, or nil when the clip has none.
func (c Clip) AnnInfo() *sample.AnnInfo {
	if c.SegMap == "" {
		return nil
	}
	return &sample.AnnInfo{SegMap: c.SegMap}
}

// A Manifest is the ordered list of clips of a split.
type Manifest []Clip

// String renders the manifest as a table.
func (m Manifest) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Clip", "Frames", "First Frame", "Mask"})
	for i, clip := range m {
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			clip.Dir,
			len(clip.Frames),
			clip.Frames[0],
			clip.SegMap,
		})
	}
	return t.Render()
}

// ParseManifest reads one clip per non-blank line: the clip directory followed by its frame
// filenames, separated by whitespace. source names the input in errors.
func ParseManifest(r io.Reader, source, imgDir string, withAnnotations bool) (Manifest, error) {
	var manifest Manifest
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxManifestLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 {
			return nil, utils.NewFormatError(source, lineNum, "clip %q lists no frames", fields[0])
		}
		manifest = append(manifest, NewClip(imgDir, fields[0], fields[1:], withAnnotations))
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.NewFormatError(source, lineNum+1, "%v", err)
	}
	return manifest, nil
}

// LoadManifest reads the split file at path through client and parses it.
func LoadManifest(
	ctx context.Context,
	client fileclient.Client,
	path, imgDir string,
	withAnnotations bool,
	logger logging.Logger,
) (Manifest, error) {
	if path == "" {
		return nil, utils.NewConfigurationError("split", "a split file is required")
	}
	data, err := client.Get(ctx, path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	manifest, err := ParseManifest(bytes.NewReader(data), path, imgDir, withAnnotations)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loaded %d images", len(manifest))
	return manifest, nil
}
