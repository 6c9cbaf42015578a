package pipeline

import (
	"context"
	"fmt"
	"testing"

	"go.viam.com/test"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gorgonia.org/tensor"

	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/registry"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/testutils"
	"github.com/vidseg/vidseg/utils"
)

var fixtureCount int

// newFixture returns an in-memory file client config holding clipA with the given frames.
func newFixture(t *testing.T, frames []string, opts testutils.ClipOptions) utils.AttributeMap {
	t.Helper()
	fs := memfs.New()
	testutils.WriteClip(t, fs, "/data", "clipA", frames, opts)
	fixtureCount++
	return testutils.RegisterMemoryBackend(fmt.Sprintf("pipeline-fixture-%d", fixtureCount), fs)
}

func clipInfo(frames ...string) sample.ImgInfo {
	return sample.ImgInfo{Folder: "/data/clipA/rgb/", Frames: frames, DepthFolder: "/data/clipA/depth/"}
}

func valueAt(t *testing.T, d *tensor.Dense, coords ...int) interface{} {
	t.Helper()
	v, err := d.At(coords...)
	test.That(t, err, test.ShouldBeNil)
	return v
}

func TestLoadImageEvalWithDepth(t *testing.T) {
	logger := logging.NewTestLogger(t)
	files := newFixture(t, []string{"f1.png", "f2.png", "f3.png"},
		testutils.ClipOptions{Width: 4, Height: 3, Depth: true})

	lif, err := NewLoadImageFromFile(utils.AttributeMap{"is_train": false, "file_client": files}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, lif.Close(context.Background()), test.ShouldBeNil) }()

	res, err := lif.Apply(context.Background(), sample.NewResults(clipInfo("f1.png", "f2.png", "f3.png"), nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Filename.Frames, test.ShouldResemble, []string{"f1.png"})
	test.That(t, res.Filename.Folder, test.ShouldEqual, "/data/clipA/rgb/")
	test.That(t, res.OriFilename.Frames, test.ShouldResemble, []string{"f1.png", "f2.png", "f3.png"})

	test.That(t, res.Img, test.ShouldHaveLength, 1)
	test.That(t, res.Depth, test.ShouldHaveLength, 1)
	test.That(t, res.OriImg, test.ShouldHaveLength, 1)
	test.That(t, res.Channels(), test.ShouldEqual, 4)
	test.That(t, res.Img[0].Shape(), test.ShouldResemble, tensor.Shape{3, 4, 4})
	test.That(t, res.Img[0].Dtype(), test.ShouldResemble, tensor.Float32)
	test.That(t, res.OriImg[0].Shape(), test.ShouldResemble, tensor.Shape{3, 4, 3})
	test.That(t, res.ImgShape, test.ShouldResemble, tensor.Shape{3, 4, 3})
	test.That(t, res.OriShape, test.ShouldResemble, res.ImgShape)
	test.That(t, res.PadShape, test.ShouldResemble, res.ImgShape)
	test.That(t, res.ScaleFactor, test.ShouldEqual, 1.0)
	test.That(t, res.ImgNormCfg, test.ShouldResemble, sample.IdentityNorm(4))

	// cv2 decoding is BGR; pixel (x=1, y=2) of frame 0 is R=1 G=2 B=0, depth 1000+x
	test.That(t, valueAt(t, res.Img[0], 2, 1, 0), test.ShouldEqual, float32(0))
	test.That(t, valueAt(t, res.Img[0], 2, 1, 1), test.ShouldEqual, float32(2))
	test.That(t, valueAt(t, res.Img[0], 2, 1, 2), test.ShouldEqual, float32(1))
	test.That(t, valueAt(t, res.Img[0], 2, 1, 3), test.ShouldEqual, float32(1001))
	test.That(t, valueAt(t, res.OriImg[0], 2, 1, 2), test.ShouldEqual, uint8(1))
	test.That(t, res.Depth[0].Dtype(), test.ShouldResemble, tensor.Uint16)
}

func TestLoadImageWithoutDepth(t *testing.T) {
	logger := logging.NewTestLogger(t)
	files := newFixture(t, []string{"f1.png", "f2.png"}, testutils.ClipOptions{Width: 4, Height: 3, Depth: true})

	for _, tc := range []struct {
		name  string
		attrs utils.AttributeMap
		info  sample.ImgInfo
	}{
		{"no depth folder", utils.AttributeMap{}, sample.ImgInfo{Folder: "/data/clipA/rgb/", Frames: []string{"f1.png", "f2.png"}}},
		{"depth disabled", utils.AttributeMap{"load_depth": false}, clipInfo("f1.png", "f2.png")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc.attrs["file_client"] = files
			tc.attrs["imdecode_backend"] = "pillow"
			tc.attrs["seed"] = 11
			lif, err := NewLoadImageFromFile(tc.attrs, logger)
			test.That(t, err, test.ShouldBeNil)
			res, err := lif.Apply(context.Background(), sample.NewResults(tc.info, nil))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Img, test.ShouldHaveLength, 2)
			test.That(t, res.Depth, test.ShouldBeEmpty)
			test.That(t, res.OriImg, test.ShouldBeNil)
			for _, img := range res.Img {
				test.That(t, img.Shape(), test.ShouldResemble, tensor.Shape{3, 4, 3})
				test.That(t, img.Dtype(), test.ShouldResemble, tensor.Uint8)
			}
			test.That(t, res.Channels(), test.ShouldEqual, 3)
			test.That(t, res.ImgNormCfg, test.ShouldResemble, sample.IdentityNorm(3))
			test.That(t, lif.Close(context.Background()), test.ShouldBeNil)
		})
	}
}

func TestLoadImageTrainShortClip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	files := newFixture(t, []string{"f1.png", "f2.png"}, testutils.ClipOptions{Width: 4, Height: 3, Depth: true})

	attrs := utils.AttributeMap{"load_num": 3, "step_limit": 1, "seed": 5, "file_client": files}
	lif, err := NewLoadImageFromFile(attrs, logger)
	test.That(t, err, test.ShouldBeNil)
	twin, err := NewLoadImageFromFile(attrs, logger)
	test.That(t, err, test.ShouldBeNil)

	for i := 0; i < 10; i++ {
		res, err := lif.Apply(context.Background(), sample.NewResults(clipInfo("f1.png", "f2.png"), nil))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Filename.Frames, test.ShouldHaveLength, 3)
		for _, fn := range res.Filename.Frames {
			test.That(t, fn, test.ShouldBeIn, []string{"f1.png", "f2.png"})
		}
		test.That(t, res.Img, test.ShouldHaveLength, 3)
		test.That(t, res.Channels(), test.ShouldEqual, 4)

		same, err := twin.Apply(context.Background(), sample.NewResults(clipInfo("f1.png", "f2.png"), nil))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, same.Filename.Frames, test.ShouldResemble, res.Filename.Frames)
	}
}

func TestLoadImagePortrait(t *testing.T) {
	logger := logging.NewTestLogger(t)
	files := newFixture(t, []string{"f1.png"}, testutils.ClipOptions{Width: 2, Height: 5, Depth: true})

	lif, err := NewLoadImageFromFile(utils.AttributeMap{
		"is_train": false, "to_float32": true, "use_gauss_blur": true, "blur_sigma": 0.5, "file_client": files,
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	res, err := lif.Apply(context.Background(), sample.NewResults(clipInfo("f1.png"), nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.OriImg[0].Shape(), test.ShouldResemble, tensor.Shape{2, 5, 3})
	test.That(t, res.OriImg[0].Dtype(), test.ShouldResemble, tensor.Float32)
	test.That(t, res.Depth[0].Shape(), test.ShouldResemble, tensor.Shape{2, 5})
	test.That(t, res.Img[0].Shape(), test.ShouldResemble, tensor.Shape{2, 5, 4})
	// depth of stored pixel (x=1, y=3) lands at (1, 3) after the transpose
	test.That(t, valueAt(t, res.Img[0], 1, 3, 3), test.ShouldEqual, float32(1001))

	// red ramps 0, 1 across the stored width; blurring the float frame leaves a fraction at x=0
	red, ok := valueAt(t, res.OriImg[0], 0, 2, 2).(float32)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, red, test.ShouldBeGreaterThan, 0)
	test.That(t, red, test.ShouldBeLessThan, 0.5)
}

func TestLoadImageMissingFiles(t *testing.T) {
	logger := logging.NewTestLogger(t)
	files := newFixture(t, []string{"f1.png", "f2.png"}, testutils.ClipOptions{Width: 4, Height: 3})

	lif, err := NewLoadImageFromFile(utils.AttributeMap{"is_train": false, "file_client": files}, logger)
	test.That(t, err, test.ShouldBeNil)

	// depth folder named but no depth frames written
	_, err = lif.Apply(context.Background(), sample.NewResults(clipInfo("f1.png", "f2.png"), nil))
	test.That(t, utils.IsIOError(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "/data/clipA/depth/f1.png")

	_, err = lif.Apply(context.Background(), sample.NewResults(sample.ImgInfo{
		Folder: "/data/clipA/rgb/", Frames: []string{"f9.png"},
	}, nil))
	test.That(t, utils.IsIOError(err), test.ShouldBeTrue)

	_, err = lif.Apply(context.Background(), sample.NewResults(sample.ImgInfo{Folder: "/data/clipA/rgb/"}, nil))
	test.That(t, utils.IsFormatError(err), test.ShouldBeTrue)
}

func TestLoadImageConfig(t *testing.T) {
	logger := logging.NewTestLogger(t)
	lif, err := NewLoadImageFromFile(nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lif.Config().LoadNum, test.ShouldEqual, 2)
	test.That(t, lif.Config().StepLimit, test.ShouldEqual, 1)
	test.That(t, lif.Config().IsTrain, test.ShouldBeTrue)
	test.That(t, lif.Config().LoadDepth, test.ShouldBeTrue)
	test.That(t, lif.String(), test.ShouldEqual,
		"LoadImageFromFile(load_num=2,step_limit=1,is_train=true,to_float32=false,color_type='color',imdecode_backend='cv2')")

	for _, attrs := range []utils.AttributeMap{
		{"load_num": 0},
		{"step_limit": -1},
		{"blur_sigma": 0},
		{"color_type": "anydepth"},
		{"imdecode_backend": "turbojpeg"},
		{"load_nmu": 2},
		{"file_client": map[string]interface{}{"backend": "petrel"}},
	} {
		_, err := NewLoadImageFromFile(attrs, logger)
		test.That(t, utils.IsConfigurationError(err), test.ShouldBeTrue)
	}
}

func TestTransformsRegistered(t *testing.T) {
	for _, name := range []string{LoadImageFromFileName, LoadAnnotationsName} {
		reg := registry.TransformLookup(name)
		test.That(t, reg, test.ShouldNotBeNil)
		tr, err := reg.Constructor(context.Background(), utils.AttributeMap{}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.Close(context.Background()), test.ShouldBeNil)
	}
}
