package gui

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/wbcontrol/wbc/logging"
)

func TestStateBuilder(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	sb := NewStateBuilder(logger)

	cop := []float64{0, 0}
	enabled := false
	zeroed := 0
	path := []string{"Tasks", "cop_hrp_LeftFoot"}
	sb.AddElement(path,
		Label("surface", func() string { return "LeftFoot" }),
		ArrayInput("targetCoP", []string{"x", "y"}, func() []float64 { return cop }, func(v []float64) { cop = v }),
		Checkbox("enabled", func() bool { return enabled }, func() { enabled = !enabled }),
		Button("Set to zero", func() { zeroed++ }),
	)
	sb.AddElement(append(path, "Admittance"),
		ArrayLabel("force", []string{"x", "y", "z"}, func() []float64 { return []float64{0, 0, 1e-4} }),
	)
	sb.AddElement(path, Label("surface", func() string { return "duplicate" }))
	test.That(t, logs.FilterMessage("GUI element already exists, ignoring").Len(), test.ShouldEqual, 1)

	test.That(t, sb.HasElement(path, "targetCoP"), test.ShouldBeTrue)
	test.That(t, sb.HasElement(path, "force"), test.ShouldBeFalse)
	test.That(t, sb.HasCategory(append(path, "Admittance")), test.ShouldBeTrue)

	test.That(t, sb.Handle(path, "targetCoP", []interface{}{0.02, "-0.01"}), test.ShouldBeNil)
	test.That(t, cop, test.ShouldResemble, []float64{0.02, -0.01})
	test.That(t, sb.Handle(path, "targetCoP", []float64{1}), test.ShouldNotBeNil)
	test.That(t, cop, test.ShouldResemble, []float64{0.02, -0.01})

	test.That(t, sb.Handle(path, "enabled", nil), test.ShouldBeNil)
	test.That(t, enabled, test.ShouldBeTrue)
	test.That(t, sb.Handle(path, "Set to zero", nil), test.ShouldBeNil)
	test.That(t, zeroed, test.ShouldEqual, 1)
	test.That(t, sb.Handle(path, "surface", "x"), test.ShouldNotBeNil)

	err := sb.Handle(path, "missing", nil)
	test.That(t, errors.Is(err, ErrNoSuchElement), test.ShouldBeTrue)
	err = sb.Handle([]string{"Tasks", "other"}, "targetCoP", nil)
	test.That(t, errors.Is(err, ErrNoSuchElement), test.ShouldBeTrue)

	state := sb.State()
	test.That(t, len(state.Categories), test.ShouldEqual, 1)
	task := state.Categories[0].Categories[0]
	test.That(t, task.Name, test.ShouldEqual, "cop_hrp_LeftFoot")
	test.That(t, task.Elements[0], test.ShouldResemble, ElementState{Name: "surface", Kind: "label", Value: "LeftFoot"})
	test.That(t, task.Elements[1].Value, test.ShouldResemble, []float64{0.02, -0.01})
	test.That(t, task.Elements[2].Value, test.ShouldEqual, true)
	test.That(t, task.Categories[0].Elements[0].Kind, test.ShouldEqual, "array_label")

	_, err = json.Marshal(state)
	test.That(t, err, test.ShouldBeNil)

	sb.RemoveCategory(path)
	test.That(t, sb.HasCategory(path), test.ShouldBeFalse)
	test.That(t, sb.HasCategory(append(path, "Admittance")), test.ShouldBeFalse)
	test.That(t, sb.HasCategory([]string{"Tasks"}), test.ShouldBeTrue)
	sb.RemoveCategory([]string{"Nothing", "here"})
}
