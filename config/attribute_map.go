// Package config holds the untyped attribute maps tasks are configured from and the helpers that
// turn them into typed configuration structs.
package config

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// An AttributeMap is a convenience wrapper for pulling out typed information from a map.
type AttributeMap map[string]interface{}

// Has returns whether or not the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// Keys returns the keys of the map in sorted order.
func (am AttributeMap) Keys() []string {
	keys := make([]string, 0, len(am))
	for k := range am {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a shallow copy of the map without the given keys.
func (am AttributeMap) Without(keys ...string) AttributeMap {
	out := make(AttributeMap, len(am))
	for k, v := range am {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// String attempts to return a string present in the map with
// the given name; returns an empty string otherwise.
func (am AttributeMap) String(name string) string {
	if am == nil {
		return ""
	}
	x := am[name]
	if x == nil {
		return ""
	}

	if s, ok := x.(string); ok {
		return s
	}

	panic(fmt.Errorf("wanted a string for (%s) but got (%v) %T", name, x, x))
}

// TryString is String without the panic: a missing key returns "", a non-string value is an error.
func (am AttributeMap) TryString(name string) (string, error) {
	x, ok := am[name]
	if !ok || x == nil {
		return "", nil
	}
	s, ok := x.(string)
	if !ok {
		return "", errors.Errorf("%q must be a string, got (%v) %T", name, x, x)
	}
	return s, nil
}

// Bool attempts to return a boolean present in the map with
// the given name; returns the given default otherwise.
func (am AttributeMap) Bool(name string, def bool) bool {
	if am == nil {
		return def
	}
	x := am[name]
	if x == nil {
		return def
	}

	if b, ok := x.(bool); ok {
		return b
	}

	panic(fmt.Errorf("wanted a bool for (%s) but got (%v) %T", name, x, x))
}

// Float64 attempts to return a float64 present in the map with
// the given name; returns the given default otherwise. Integers are widened.
func (am AttributeMap) Float64(name string, def float64) float64 {
	if am == nil {
		return def
	}
	x := am[name]
	if x == nil {
		return def
	}

	switch v := x.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}

	panic(fmt.Errorf("wanted a float64 for (%s) but got (%v) %T", name, x, x))
}

// TryFloat64 is Float64 without the panic: a missing key or a non-numeric value is an error.
func (am AttributeMap) TryFloat64(name string) (float64, error) {
	x, ok := am[name]
	if !ok || x == nil {
		return 0, errors.Errorf("missing %q", name)
	}
	var f float64
	if err := mapstructure.WeakDecode(x, &f); err != nil {
		return 0, errors.Wrapf(err, "%q", name)
	}
	return f, nil
}

// Float64Slice attempts to return a slice of float64s present in the map with the given name.
func (am AttributeMap) Float64Slice(name string) []float64 {
	if am == nil {
		return nil
	}
	x := am[name]
	if x == nil {
		return nil
	}
	var out []float64
	if err := mapstructure.Decode(x, &out); err != nil {
		panic(fmt.Errorf("wanted a []float64 for (%s) but got (%v) %T", name, x, x))
	}
	return out
}

// AttributeMapSlice attempts to return a list of nested attribute maps present in the map with
// the given name.
func (am AttributeMap) AttributeMapSlice(name string) ([]AttributeMap, error) {
	x, ok := am[name]
	if !ok {
		return nil, nil
	}
	var out []AttributeMap
	if err := mapstructure.Decode(x, &out); err != nil {
		return nil, errors.Wrapf(err, "wanted a list of maps for (%s) but got %T", name, x)
	}
	return out, nil
}

// Map attempts to return a nested attribute map present in the map with the given name.
func (am AttributeMap) Map(name string) (AttributeMap, error) {
	x, ok := am[name]
	if !ok {
		return nil, nil
	}
	var out AttributeMap
	if err := mapstructure.Decode(x, &out); err != nil {
		return nil, errors.Wrapf(err, "wanted a map for (%s) but got %T", name, x)
	}
	return out, nil
}

// Decode fills to, a pointer to a struct with json tags, from the map. Numeric types are coerced
// so that configs produced by json or yaml decoders can be consumed alike. Embedded structs are
// flattened into their parent.
func (am AttributeMap) Decode(to interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           to,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(am)
}
