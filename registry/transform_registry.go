package registry

import (
	"context"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"

	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/sample"
	"github.com/vidseg/vidseg/utils"
)

// A CreateTransform builds a pipeline stage from its attributes.
type CreateTransform func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (sample.Transform, error)

// Transform stores a Transform constructor (mandatory).
type Transform struct {
	RegDebugInfo
	Constructor CreateTransform
}

var transformRegistry = make(map[string]Transform)

// RegisterTransform registers a pipeline stage type to a registration.
func RegisterTransform(name string, creator Transform) {
	creator.RegistrarLoc = getCallerName()
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := transformRegistry[name]; old {
		panic(errors.Errorf("trying to register two transforms with the same name: %s", name))
	}
	if creator.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for transform: %s", name))
	}
	transformRegistry[name] = creator
}

// TransformLookup looks up a transform registration by name. nil is returned if
// there is no registration.
func TransformLookup(name string) *Transform {
	registration, ok := RegisteredTransforms()[name]
	if ok {
		return &registration
	}
	return nil
}

// RegisteredTransforms returns a copy of the registered transforms.
func RegisteredTransforms() map[string]Transform {
	registryMu.RLock()
	defer registryMu.RUnlock()
	copied, err := copystructure.Copy(transformRegistry)
	if err != nil {
		panic(err)
	}
	return copied.(map[string]Transform)
}
