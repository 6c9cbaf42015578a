package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/utils"
)

const exampleConfig = `{
	"dataset": {
		"type": "ArticulatedDataset",
		"data_root": "${VIDSEG_TEST_ROOT}",
		"img_dir": "clips",
		"ann_dir": "clips",
		"split": "train.txt",
		"pipeline": [
			{"type": "LoadImageFromFile", "attributes": {"load_num": 3, "step_limit": 2}},
			{"type": "LoadAnnotations"}
		]
	}
}`

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("VIDSEG_TEST_ROOT", "/data/articulated")

	fn := filepath.Join(t.TempDir(), "vidseg.json")
	test.That(t, os.WriteFile(fn, []byte(exampleConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, fn)
	test.That(t, cfg.Dataset.Type, test.ShouldEqual, "ArticulatedDataset")
	test.That(t, cfg.Dataset.DataRoot, test.ShouldEqual, "/data/articulated")
	test.That(t, cfg.Dataset.Pipeline, test.ShouldHaveLength, 2)
	test.That(t, cfg.Dataset.Pipeline[0].Attributes["load_num"], test.ShouldEqual, 3.0)
	test.That(t, cfg.Dataset.Pipeline[1].Attributes, test.ShouldBeNil)
}

func TestFromReaderValidation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for name, body := range map[string]string{
		"no type":       `{"dataset": {"img_dir": "x"}}`,
		"no img_dir":    `{"dataset": {"type": "ArticulatedDataset"}}`,
		"untyped stage": `{"dataset": {"type": "ArticulatedDataset", "img_dir": "x", "pipeline": [{}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromReader(context.Background(), "", strings.NewReader(body), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, utils.IsConfigurationError(err), test.ShouldBeTrue)
		})
	}

	_, err := FromReader(context.Background(), "", strings.NewReader("{"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode Config")
}

type loaderAttrs struct {
	LoadNum   int                `json:"load_num"`
	StepLimit int                `json:"step_limit"`
	IsTrain   bool               `json:"is_train"`
	Seed      *int64             `json:"seed,omitempty"`
	Client    utils.AttributeMap `json:"file_client,omitempty"`
}

func TestDecodeAttributesKeepsDefaults(t *testing.T) {
	conf := loaderAttrs{LoadNum: 2, StepLimit: 1, IsTrain: true}
	err := DecodeAttributes(utils.AttributeMap{
		"step_limit":  4.0,
		"seed":        7,
		"file_client": map[string]interface{}{"backend": "disk"},
	}, &conf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.LoadNum, test.ShouldEqual, 2)
	test.That(t, conf.StepLimit, test.ShouldEqual, 4)
	test.That(t, conf.IsTrain, test.ShouldBeTrue)
	test.That(t, *conf.Seed, test.ShouldEqual, int64(7))
	test.That(t, conf.Client.String("backend"), test.ShouldEqual, "disk")
}

func TestDecodeAttributesRejectsUnknown(t *testing.T) {
	var conf loaderAttrs
	err := DecodeAttributes(utils.AttributeMap{"load_nmu": 3}, &conf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, utils.IsConfigurationError(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "load_nmu")
}

func TestTransformAttributeMap(t *testing.T) {
	conf, err := TransformAttributeMap[*loaderAttrs](utils.AttributeMap{"load_num": 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.LoadNum, test.ShouldEqual, 5)

	val, err := TransformAttributeMap[loaderAttrs](utils.AttributeMap{"is_train": true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, val.IsTrain, test.ShouldBeTrue)
}
