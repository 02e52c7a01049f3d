package tasks

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/contact/fake"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/gui"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
)

func newTestCoPTask(t *testing.T) (*CoPTask, *fake.Robot, fake.Robots) {
	t.Helper()
	robot, robots := newTestRobots()
	task, err := NewCoPTask(robots, 0, "LeftFoot", testDt, DefaultStiffness, DefaultWeight, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return task, robot, robots
}

func TestCoPTaskConstruction(t *testing.T) {
	task, _, robots := newTestCoPTask(t)
	test.That(t, task.Name(), test.ShouldEqual, "cop_hrp_LeftFoot")
	test.That(t, task.Type(), test.ShouldEqual, "cop")
	test.That(t, task.MinPressure(), test.ShouldEqual, DefaultMinPressure)
	test.That(t, task.TargetCoP(), test.ShouldResemble, r2.Point{})
	test.That(t, task.TargetForce(), test.ShouldResemble, r3.Vector{})

	_, err := NewCoPTask(robots, 0, "Head", testDt, DefaultStiffness, DefaultWeight, logging.NewTestLogger(t))
	test.That(t, errors.Is(err, contact.ErrNoForceSensor), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "HEAD_LINK1")

	_, err = NewCoPTask(robots, 0, "RightFoot", testDt, DefaultStiffness, DefaultWeight, logging.NewTestLogger(t))
	test.That(t, errors.Is(err, contact.ErrUnknownSurface), test.ShouldBeTrue)

	test.That(t, task.SetMinPressure(0), test.ShouldNotBeNil)
	test.That(t, task.SetMinPressure(math.NaN()), test.ShouldNotBeNil)
	test.That(t, task.SetMinPressure(5), test.ShouldBeNil)
	test.That(t, task.MinPressure(), test.ShouldEqual, 5.)
}

func TestCoPFrameConversion(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)

	task.SetTargetCoP(r2.Point{X: 1, Y: 2})
	copW, err := task.TargetCoPW(robots)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, copW, test.ShouldResemble, r3.Vector{X: 1, Y: 2})

	pose := spatialmath.NewPose(r3.Vector{Z: 1}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	robot.Surfaces["LeftFoot"].Pose = pose
	task.SetTargetCoP(r2.Point{X: 1})
	copW, err = task.TargetCoPW(robots)
	test.That(t, err, test.ShouldBeNil)

	// Translation plus the lever arm rotated by the surface orientation.
	rot := pose.Orientation().RotationMatrix()
	expected := pose.Point().Add(rot.Mul(r3.Vector{X: 1}))
	test.That(t, spatialmath.R3VectorAlmostEqual(copW, expected, 1e-12), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(copW, r3.Vector{Y: 1, Z: 1}, 1e-12), test.ShouldBeTrue)

	// Measured CoP queries are passed through.
	robot.Surfaces["LeftFoot"].CoP = r2.Point{X: 0.01, Y: -0.02}
	measured, err := task.MeasuredCoP(robots)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, measured, test.ShouldResemble, r2.Point{X: 0.01, Y: -0.02})
	measuredW, err := task.MeasuredCoPW(robots)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(measuredW, r3.Vector{X: 0.02, Y: 0.01, Z: 1}, 1e-12), test.ShouldBeTrue)
}

func TestCoPWrenchDerivation(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 100}, r3.Vector{})

	task.SetTargetForce(r3.Vector{Z: 100})
	task.SetTargetCoP(r2.Point{X: 0.05})
	// Targets are only combined at the next Update.
	test.That(t, task.TargetWrench().IsZero(), test.ShouldBeTrue)

	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.TargetWrench().Force, test.ShouldResemble, r3.Vector{Z: 100})
	test.That(t, task.TargetWrench().Moment, test.ShouldResemble, r3.Vector{Y: 5})
	test.That(t, task.WrenchError(), test.ShouldResemble, spatialmath.NewWrench(r3.Vector{}, r3.Vector{Y: -5}))
}

func TestCoPDegeneracy(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	gain := NewAdmittanceGain(r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1})
	task.SetAdmittance(gain)
	task.SetTargetForce(r3.Vector{Z: 100})
	task.SetTargetCoP(r2.Point{X: 0.05})
	startOrientation := task.TargetPose().Orientation()

	// Foot in the air: moments are not tracked, force still is.
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 0.5}, r3.Vector{X: 3, Y: 4})
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.PressureOK(), test.ShouldBeFalse)
	test.That(t, task.EffectiveAdmittance().RotationalBlockIsZero(), test.ShouldBeTrue)
	test.That(t, task.Admittance().Equal(gain), test.ShouldBeTrue)
	test.That(t, task.RefVelB().Angular, test.ShouldResemble, r3.Vector{})
	test.That(t, task.RefVelB().Linear.Z, test.ShouldAlmostEqual, 0.01*(0.5-100))
	test.That(t, spatialmath.OrientationAlmostEqual(task.TargetPose().Orientation(), startOrientation), test.ShouldBeTrue)

	// Contact: the configured gain is back without any call.
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 200}, r3.Vector{X: 3, Y: 4})
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.PressureOK(), test.ShouldBeTrue)
	test.That(t, task.EffectiveAdmittance().Equal(gain), test.ShouldBeTrue)
	test.That(t, task.RefVelB().Angular.X, test.ShouldAlmostEqual, 0.3)
	test.That(t, task.RefVelB().Angular.Y, test.ShouldAlmostEqual, -0.1)

	// Exactly at the threshold counts as pressed.
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: DefaultMinPressure}, r3.Vector{})
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.PressureOK(), test.ShouldBeTrue)
}

func TestCoPDegeneracyClearsFilteredRotation(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	task.SetAdmittance(NewAdmittanceGain(r3.Vector{}, r3.Vector{X: 0.1, Y: 0.1}))
	task.SetVelFilterGain(0.5)
	task.SetTargetForce(r3.Vector{Z: 100})

	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 100}, r3.Vector{X: 3})
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.PressureOK(), test.ShouldBeTrue)
	test.That(t, task.RefVelB().Angular.X, test.ShouldAlmostEqual, 0.15)

	// The first cycle under the minimum pressure stops rotating the target at once.
	orientation := task.TargetPose().Orientation()
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 0.1}, r3.Vector{X: 3})
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.PressureOK(), test.ShouldBeFalse)
	test.That(t, task.RefVelB().Angular, test.ShouldResemble, r3.Vector{})
	test.That(t, spatialmath.OrientationAlmostEqual(task.TargetPose().Orientation(), orientation), test.ShouldBeTrue)
}

func TestCoPRename(t *testing.T) {
	task, _, _ := newTestCoPTask(t)
	logger := logging.NewTestLogger(t)
	recorder := ftdc.NewLogger(&bytes.Buffer{}, logger)
	sb := gui.NewStateBuilder(logger)
	task.AddToLogger(recorder)
	task.AddToGUI(sb)

	task.SetName("left")
	test.That(t, task.Name(), test.ShouldEqual, "left")
	test.That(t, recorder.HasEntry("left_target_cop"), test.ShouldBeTrue)
	test.That(t, recorder.HasEntry("left_target_pose"), test.ShouldBeTrue)
	test.That(t, recorder.HasEntry("cop_hrp_LeftFoot_target_cop"), test.ShouldBeFalse)
	test.That(t, recorder.HasEntry("cop_hrp_LeftFoot_target_pose"), test.ShouldBeFalse)
	test.That(t, sb.HasCategory([]string{"Tasks", "cop_hrp_LeftFoot"}), test.ShouldBeFalse)
	test.That(t, sb.HasElement([]string{"Tasks", "left"}, "targetCoP"), test.ShouldBeTrue)
	test.That(t, sb.HasElement([]string{"Tasks", "left"}, "stiffness"), test.ShouldBeTrue)

	task.RemoveFromLogger(recorder)
	task.RemoveFromGUI(sb)
	test.That(t, recorder.Entries(), test.ShouldBeEmpty)
	test.That(t, sb.HasCategory([]string{"Tasks", "left"}), test.ShouldBeFalse)

	// Nothing is published again once retracted.
	task.SetName("again")
	test.That(t, recorder.Entries(), test.ShouldBeEmpty)
	test.That(t, sb.HasCategory([]string{"Tasks", "again"}), test.ShouldBeFalse)
}

func TestCoPReset(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	task.SetAdmittance(NewAdmittanceGain(r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}, r3.Vector{X: 0.1, Y: 0.1}))
	task.SetTargetForce(r3.Vector{Z: 300})
	task.SetTargetCoP(r2.Point{X: 0.02, Y: 0.01})
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 250}, r3.Vector{X: 1})
	for i := 0; i < 5; i++ {
		test.That(t, task.Update(robots), test.ShouldBeNil)
	}
	test.That(t, task.TargetWrench().IsZero(), test.ShouldBeFalse)

	measuredPose := spatialmath.NewPose(r3.Vector{X: 0.3, Y: 0.1}, spatialmath.ExpMap(r3.Vector{Z: -0.4}))
	robot.Surfaces["LeftFoot"].Pose = measuredPose
	for i := 0; i < 2; i++ {
		test.That(t, task.Reset(robots), test.ShouldBeNil)
		test.That(t, task.TargetWrench().IsZero(), test.ShouldBeTrue)
		test.That(t, task.TargetCoP(), test.ShouldResemble, r2.Point{})
		test.That(t, task.TargetForce(), test.ShouldResemble, r3.Vector{})
		test.That(t, spatialmath.PoseAlmostEqual(task.TargetPose(), measuredPose), test.ShouldBeTrue)
		test.That(t, task.RefVelB(), test.ShouldResemble, spatialmath.Twist{})
	}
}

func TestCoPZeroTargetWrench(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 300}, r3.Vector{})
	task.SetTargetForce(r3.Vector{X: 5, Z: 300})
	task.SetTargetCoP(r2.Point{X: 0.05, Y: 0.02})
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.TargetWrench().IsZero(), test.ShouldBeFalse)

	task.SetZeroTargetWrench()
	test.That(t, task.TargetWrench().IsZero(), test.ShouldBeTrue)
	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, task.TargetWrench().Force, test.ShouldResemble, r3.Vector{})
	test.That(t, task.TargetWrench().Moment, test.ShouldResemble, r3.Vector{})
	test.That(t, task.TargetCoP(), test.ShouldResemble, r2.Point{})
	test.That(t, task.TargetForce(), test.ShouldResemble, r3.Vector{})
}

func TestCoPCompletion(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	task.SetTargetCoP(r2.Point{X: 0.01})
	task.SetTargetForce(r3.Vector{Z: 400})
	robot.Surfaces["LeftFoot"].CoP = r2.Point{X: 0.012}
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 390}, r3.Vector{})

	criteria, err := task.BuildCompletionCriteria(testDt, config.AttributeMap{"copError": 0.005, "force": 20})
	test.That(t, err, test.ShouldBeNil)
	done, msg := criteria(task, robots)
	test.That(t, done, test.ShouldBeTrue)
	test.That(t, msg, test.ShouldEqual, "copError, force")

	for _, cfg := range []config.AttributeMap{
		{"copError": 0.001, "force": 20},
		{"copError": 0.005, "force": 5},
		{"copError": 0.001, "force": 5},
	} {
		criteria, err := task.BuildCompletionCriteria(testDt, cfg)
		test.That(t, err, test.ShouldBeNil)
		done, _ := criteria(task, robots)
		test.That(t, done, test.ShouldBeFalse)
	}

	// Errors are computed from the snapshot handed to the predicate.
	criteria, err = task.BuildCompletionCriteria(testDt, config.AttributeMap{"copError": 0.001})
	test.That(t, err, test.ShouldBeNil)
	done, _ = criteria(task, robots)
	test.That(t, done, test.ShouldBeFalse)
	robot.Surfaces["LeftFoot"].CoP = r2.Point{X: 0.0105}
	done, msg = criteria(task, robots)
	test.That(t, done, test.ShouldBeTrue)
	test.That(t, msg, test.ShouldEqual, "copError")

	// The admittance criteria are still available.
	criteria, err = task.BuildCompletionCriteria(testDt, config.AttributeMap{"wrench": 100})
	test.That(t, err, test.ShouldBeNil)
	done, _ = criteria(task, robots)
	test.That(t, done, test.ShouldBeTrue)

	_, err = task.BuildCompletionCriteria(testDt, config.AttributeMap{"copError": -1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = task.BuildCompletionCriteria(testDt, config.AttributeMap{"force": "lots"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCoPTelemetry(t *testing.T) {
	task, robot, robots := newTestCoPTask(t)
	robot.Surfaces["LeftFoot"].Wrench = spatialmath.NewWrench(r3.Vector{Z: 100}, r3.Vector{})
	task.SetTargetCoP(r2.Point{X: 0.02})
	task.SetTargetForce(r3.Vector{Z: 100})

	var buf bytes.Buffer
	recorder := ftdc.NewLogger(&buf, logging.NewTestLogger(t))
	task.AddToLogger(recorder)
	test.That(t, recorder.Entries(), test.ShouldResemble, []string{
		"cop_hrp_LeftFoot_target_pose",
		"cop_hrp_LeftFoot_eval",
		"cop_hrp_LeftFoot_ref_vel",
		"cop_hrp_LeftFoot_target_wrench",
		"cop_hrp_LeftFoot_measured_wrench",
		"cop_hrp_LeftFoot_wrench_error",
		"cop_hrp_LeftFoot_admittance",
		"cop_hrp_LeftFoot_target_cop",
		"cop_hrp_LeftFoot_measured_cop",
		"cop_hrp_LeftFoot_target_copW",
		"cop_hrp_LeftFoot_measured_copW",
		"cop_hrp_LeftFoot_target_force",
		"cop_hrp_LeftFoot_pressure_ok",
	})

	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, recorder.Record(time.Unix(1, 0)), test.ShouldBeNil)
	task.RemoveFromLogger(recorder)
	test.That(t, recorder.Entries(), test.ShouldBeEmpty)
	test.That(t, recorder.Flush(), test.ShouldBeNil)

	data, err := ftdc.Parse(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(data), test.ShouldEqual, 1)
	pressed, ok := data[0].Value("cop_hrp_LeftFoot_pressure_ok.0")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pressed, test.ShouldEqual, 1.)
	moment, ok := data[0].Value("cop_hrp_LeftFoot_target_wrench.4")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, moment, test.ShouldEqual, 2.)
	copX, ok := data[0].Value("cop_hrp_LeftFoot_target_copW.0")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, copX, test.ShouldEqual, 0.02)
}

func TestCoPGUI(t *testing.T) {
	task, _, robots := newTestCoPTask(t)
	sb := gui.NewStateBuilder(logging.NewTestLogger(t))
	task.AddToGUI(sb)
	category := []string{"Tasks", "cop_hrp_LeftFoot"}
	for _, name := range []string{"surface", "stiffness", "admittance", "targetCoP", "targetForce", "measuredCoP", "Zero target wrench"} {
		test.That(t, sb.HasElement(category, name), test.ShouldBeTrue)
	}

	test.That(t, sb.Handle(category, "targetCoP", []interface{}{0.01, -0.01}), test.ShouldBeNil)
	test.That(t, task.TargetCoP(), test.ShouldResemble, r2.Point{X: 0.01, Y: -0.01})
	test.That(t, sb.Handle(category, "targetForce", []float64{0, 0, 350}), test.ShouldBeNil)
	test.That(t, task.TargetForce(), test.ShouldResemble, r3.Vector{Z: 350})
	test.That(t, sb.Handle(category, "admittance", []float64{0, 0, 0.01, 0.1, 0.1, 0}), test.ShouldBeNil)
	test.That(t, task.Admittance().Couple(), test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.1})
	test.That(t, sb.Handle(category, "stiffness", []float64{20}), test.ShouldBeNil)
	test.That(t, task.Stiffness(), test.ShouldEqual, 20.)

	test.That(t, task.Update(robots), test.ShouldBeNil)
	test.That(t, sb.Handle(category, "Zero target wrench", nil), test.ShouldBeNil)
	test.That(t, task.TargetCoP(), test.ShouldResemble, r2.Point{})
	test.That(t, task.TargetWrench().IsZero(), test.ShouldBeTrue)

	task.RemoveFromGUI(sb)
	test.That(t, sb.HasCategory(category), test.ShouldBeFalse)
}
