package config

import (
	"testing"

	"go.viam.com/test"
)

var sampleAttributeMap = AttributeMap{
	"ok_boolean_false":  false,
	"ok_boolean_true":   true,
	"bad_boolean_true":  "true",
	"good_float":        1.5,
	"good_int_as_float": 3,
	"bad_float":         "1.5x",
	"good_float_slice":  []interface{}{1, 2.5, 3},
	"bad_float_slice":   "this is not a slice",
	"name":              "left_foot",
	"nested": []interface{}{
		map[string]interface{}{"force": 10.0},
		map[string]interface{}{"copError": 0.01},
	},
}

func TestAttributeMap(t *testing.T) {
	test.That(t, sampleAttributeMap.Bool("ok_boolean_true", false), test.ShouldBeTrue)
	test.That(t, sampleAttributeMap.Bool("ok_boolean_false", true), test.ShouldBeFalse)
	test.That(t, func() { sampleAttributeMap.Bool("bad_boolean_true", false) }, test.ShouldPanic)
	test.That(t, sampleAttributeMap.Bool("junk_key", true), test.ShouldBeTrue)

	test.That(t, sampleAttributeMap.Float64("good_float", 0), test.ShouldEqual, 1.5)
	test.That(t, sampleAttributeMap.Float64("good_int_as_float", 0), test.ShouldEqual, 3.)
	test.That(t, sampleAttributeMap.Float64("junk_key", 7), test.ShouldEqual, 7.)
	test.That(t, func() { sampleAttributeMap.Float64("name", 0) }, test.ShouldPanic)

	test.That(t, sampleAttributeMap.String("name"), test.ShouldEqual, "left_foot")
	test.That(t, sampleAttributeMap.String("junk_key"), test.ShouldEqual, "")
	test.That(t, sampleAttributeMap.Has("name"), test.ShouldBeTrue)
	test.That(t, sampleAttributeMap.Has("junk_key"), test.ShouldBeFalse)

	test.That(t, sampleAttributeMap.Float64Slice("good_float_slice"), test.ShouldResemble, []float64{1, 2.5, 3})
	test.That(t, func() { sampleAttributeMap.Float64Slice("bad_float_slice") }, test.ShouldPanic)
}

func TestTryFloat64(t *testing.T) {
	f, err := sampleAttributeMap.TryFloat64("good_int_as_float")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f, test.ShouldEqual, 3.)

	_, err = sampleAttributeMap.TryFloat64("junk_key")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = sampleAttributeMap.TryFloat64("bad_float")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWithout(t *testing.T) {
	am := AttributeMap{"type": "cop", "completion": map[string]interface{}{"timeout": 1}}
	trimmed := am.Without("completion", "junk_key")
	test.That(t, trimmed, test.ShouldResemble, AttributeMap{"type": "cop"})
	test.That(t, am.Has("completion"), test.ShouldBeTrue)
}

func TestTryString(t *testing.T) {
	s, err := sampleAttributeMap.TryString("name")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldEqual, "left_foot")

	s, err = sampleAttributeMap.TryString("junk_key")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldEqual, "")

	_, err = sampleAttributeMap.TryString("good_float")
	test.That(t, err, test.ShouldBeError, `"good_float" must be a string, got (1.5) float64`)
}

func TestAttributeMapSlice(t *testing.T) {
	nested, err := sampleAttributeMap.AttributeMapSlice("nested")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(nested), test.ShouldEqual, 2)
	test.That(t, nested[0].Float64("force", 0), test.ShouldEqual, 10.)
	test.That(t, nested[1].Has("copError"), test.ShouldBeTrue)

	none, err := sampleAttributeMap.AttributeMapSlice("junk_key")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldBeNil)

	_, err = sampleAttributeMap.AttributeMapSlice("name")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMap(t *testing.T) {
	cfg := AttributeMap{"completion": map[string]interface{}{"timeout": 2.0}, "name": "x"}
	completion, err := cfg.Map("completion")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, completion.Float64("timeout", 0), test.ShouldEqual, 2.)

	none, err := cfg.Map("missing")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldBeNil)

	_, err = cfg.Map("name")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeEmbedded(t *testing.T) {
	type Base struct {
		Surface string `json:"surface"`
	}
	type derived struct {
		Base
		MinPressure float64 `json:"minPressure"`
	}
	var conf derived
	err := AttributeMap{"surface": "RightFoot", "minPressure": 2}.Decode(&conf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Surface, test.ShouldEqual, "RightFoot")
	test.That(t, conf.MinPressure, test.ShouldEqual, 2.)
}

func TestDecode(t *testing.T) {
	type surfaceConf struct {
		Surface   string    `json:"surface"`
		Stiffness float64   `json:"stiffness"`
		Force     []float64 `json:"force"`
	}
	var conf surfaceConf
	err := AttributeMap{"surface": "LeftFoot", "stiffness": "5", "force": []interface{}{1, 2, 3}}.Decode(&conf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, surfaceConf{Surface: "LeftFoot", Stiffness: 5, Force: []float64{1, 2, 3}})

	err = AttributeMap{"surfce": "LeftFoot"}.Decode(&conf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "surfce")

	test.That(t, AttributeMap{"b": 1, "a": 2}.Keys(), test.ShouldResemble, []string{"a", "b"})
}
