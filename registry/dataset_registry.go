package registry

import (
	"context"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/sample"
)

// A CreateDataset builds a dataset from its config and the already constructed pipeline.
type CreateDataset func(
	ctx context.Context,
	conf config.Dataset,
	pipeline sample.Transform,
	logger logging.Logger,
) (sample.Dataset, error)

// Dataset stores a Dataset constructor (mandatory).
type Dataset struct {
	RegDebugInfo
	Constructor CreateDataset
}

var datasetRegistry = make(map[string]Dataset)

// RegisterDataset registers a dataset type to a registration.
func RegisterDataset(name string, creator Dataset) {
	creator.RegistrarLoc = getCallerName()
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := datasetRegistry[name]; old {
		panic(errors.Errorf("trying to register two datasets with the same name: %s", name))
	}
	if creator.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for dataset: %s", name))
	}
	datasetRegistry[name] = creator
}

// DatasetLookup looks up a dataset registration by name. nil is returned if
// there is no registration.
func DatasetLookup(name string) *Dataset {
	registration, ok := RegisteredDatasets()[name]
	if ok {
		return &registration
	}
	return nil
}

// RegisteredDatasets returns a copy of the registered datasets.
func RegisteredDatasets() map[string]Dataset {
	registryMu.RLock()
	defer registryMu.RUnlock()
	copied, err := copystructure.Copy(datasetRegistry)
	if err != nil {
		panic(err)
	}
	return copied.(map[string]Dataset)
}
