package utils

import "sort"

// AssertType attempts to assert that the given interface argument is
// the given type parameter.
func AssertType[T any](from interface{}) (T, error) {
	var zero T
	asserted, ok := from.(T)
	if !ok {
		return zero, NewUnexpectedTypeError[T](from)
	}
	return asserted, nil
}

// AttributeMap is a loosely typed set of options, as found in a JSON config, that a registered
// constructor converts into its native config type.
type AttributeMap map[string]interface{}

// Has returns whether the given attribute exists.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the string attribute or "" if it is absent or not a string.
func (am AttributeMap) String(name string) string {
	s, _ := am[name].(string)
	return s
}

// Keys returns the attribute names in sorted order.
func (am AttributeMap) Keys() []string {
	keys := make([]string, 0, len(am))
	for k := range am {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
