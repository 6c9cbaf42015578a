package config

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/vidseg/vidseg/utils"
)

// DecodeAttributes decodes attributes into out, which must be a pointer. Fields already set on out
// act as defaults for absent attributes; unknown attributes are an error.
func DecodeAttributes(attributes utils.AttributeMap, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return utils.NewConfigurationError("attributes", "%v", err)
	}
	return nil
}

// TransformAttributeMap uses an attribute map to transform attributes to the preferred type.
func TransformAttributeMap[T any](attributes utils.AttributeMap) (T, error) {
	var out T

	var forResult interface{}
	toT := reflect.TypeOf(out)
	if toT == nil {
		// nothing to transform
		return out, nil
	}
	if toT.Kind() == reflect.Ptr {
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	if err := DecodeAttributes(attributes, forResult); err != nil {
		return out, err
	}
	return out, nil
}
