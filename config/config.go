// Package config defines the structures that configure a dataset and its data pipeline.
package config

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vidseg/vidseg/utils"
)

// A Config describes the dataset to build.
type Config struct {
	ConfigFilePath string  `json:"-"`
	Dataset        Dataset `json:"dataset"`
}

// Dataset holds the generic dataset options handed to a registered dataset constructor.
type Dataset struct {
	Type string `json:"type"`

	DataRoot string `json:"data_root,omitempty"`
	ImgDir   string `json:"img_dir"`
	AnnDir   string `json:"ann_dir,omitempty"`
	Split    string `json:"split,omitempty"`
	TestMode bool   `json:"test_mode,omitempty"`

	// IndexMode selects how samples are enumerated. Only "manifest" is supported.
	IndexMode string `json:"index_mode,omitempty"`

	// FileClient configures how the dataset reads its split file.
	FileClient utils.AttributeMap `json:"file_client,omitempty"`

	Pipeline []Transform `json:"pipeline"`
}

// Transform names a registered pipeline stage and its attributes.
type Transform struct {
	Type       string             `json:"type"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate() error {
	return cfg.Dataset.Validate("dataset")
}

// Validate ensures the dataset config names a type, an image directory and well formed
// pipeline stages.
func (ds *Dataset) Validate(path string) error {
	if ds.Type == "" {
		return NewFieldRequiredError(path, "type")
	}
	if ds.ImgDir == "" {
		return NewFieldRequiredError(path, "img_dir")
	}
	for i, tr := range ds.Pipeline {
		if tr.Type == "" {
			return NewFieldRequiredError(fmt.Sprintf("%s.pipeline.%d", path, i), "type")
		}
	}
	return nil
}

// NewFieldRequiredError returns an error for a required field that is missing.
func NewFieldRequiredError(path, field string) error {
	return errors.Wrapf(utils.NewConfigurationError(field, "field is required"), "error validating %q", path)
}
