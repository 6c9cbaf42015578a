package fileclient

import (
	"context"
	"io"
	"os"
	"path/filepath"

	goutils "go.viam.com/utils"
	"gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/utils"
)

func init() {
	RegisterBackend("disk", openDisk)
}

// DiskConfig configures the disk backend.
type DiskConfig struct {
	// Root is prepended to relative paths. Absolute paths are read as is.
	Root string `json:"root,omitempty"`
}

// BillyClient reads files from a billy filesystem.
type BillyClient struct {
	fs billy.Filesystem
	// resolve turns a requested path into one the filesystem accepts.
	resolve func(string) (string, error)
}

// NewBillyClient returns a client over fs. Paths are passed through unchanged.
func NewBillyClient(fs billy.Filesystem) *BillyClient {
	return &BillyClient{fs: fs, resolve: func(p string) (string, error) { return p, nil }}
}

func openDisk(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Client, error) {
	conf, err := config.TransformAttributeMap[*DiskConfig](attributes)
	if err != nil {
		return nil, err
	}
	root := conf.Root
	return &BillyClient{
		fs: osfs.New(""),
		resolve: func(p string) (string, error) {
			if !filepath.IsAbs(p) && root != "" {
				p = filepath.Join(root, p)
			}
			return filepath.Abs(p)
		},
	}, nil
}

// Get reads the whole file at path.
func (bc *BillyClient) Get(ctx context.Context, path string) ([]byte, error) {
	resolved, err := bc.resolve(path)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	f, err := bc.fs.Open(resolved)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, utils.NewIOError(path, err)
	}
	return data, nil
}

// Exists reports whether path is present.
func (bc *BillyClient) Exists(ctx context.Context, path string) (bool, error) {
	resolved, err := bc.resolve(path)
	if err != nil {
		return false, utils.NewIOError(path, err)
	}
	if _, err := bc.fs.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, utils.NewIOError(path, err)
	}
	return true, nil
}

// Filesystem returns the underlying filesystem.
func (bc *BillyClient) Filesystem() billy.Filesystem {
	return bc.fs
}

// Close is a no-op.
func (bc *BillyClient) Close() error {
	return nil
}
