package sim

import (
	"bytes"
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/control"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/tasks"
)

// copTaskConfig tracks a CoP off the sole centre with 400N. Moments are reported as force x
// lever arm, so a positive rotation about y moves the CoP forward and the couple gains that
// close the loop are negative.
func copTaskConfig() config.AttributeMap {
	return config.AttributeMap{
		"type":      "cop",
		"name":      "foot",
		"surface":   "LeftFoot",
		"stiffness": 20,
		"admittance": map[string]interface{}{
			"force":  []interface{}{0, 0, 5e-5},
			"couple": []interface{}{-0.04, -0.01, 0},
		},
		"targetCoP":   []interface{}{0.02, -0.01},
		"targetForce": []interface{}{0, 0, 400},
		"completion": map[string]interface{}{
			"copError": 0.001,
			"force":    20,
		},
	}
}

func TestCoPClosedLoop(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	// The foot starts 5mm above the ground.
	world, robot := newTestWorld(t, 0.005)

	var buf bytes.Buffer
	recorder := ftdc.NewLogger(&buf, logger)
	mockClock := clock.NewMock()
	loop, err := control.NewLoop(ctx, logger, control.Config{
		Frequency: 200,
		Tasks:     []config.AttributeMap{copTaskConfig()},
	}, world, control.Options{Clock: mockClock, Recorder: recorder})
	test.That(t, err, test.ShouldBeNil)

	task, ok := loop.Task("foot")
	test.That(t, ok, test.ShouldBeTrue)
	cop := task.(*tasks.CoPTask)

	// Falling towards the ground, moments are not tracked.
	test.That(t, loop.Step(ctx), test.ShouldBeNil)
	test.That(t, cop.PressureOK(), test.ShouldBeFalse)
	test.That(t, cop.RefVelB().Angular, test.ShouldResemble, r3.Vector{})
	test.That(t, cop.RefVelB().Linear.Z, test.ShouldBeLessThan, 0)

	for i := 1; i < 1000; i++ {
		mockClock.Add(loop.Period())
		test.That(t, loop.Step(ctx), test.ShouldBeNil)
	}
	test.That(t, world.Time(), test.ShouldAlmostEqual, 5)
	test.That(t, cop.PressureOK(), test.ShouldBeTrue)

	measured := robot.CoP("LeftFoot")
	test.That(t, measured.Sub(r2.Point{X: 0.02, Y: -0.01}).Norm(), test.ShouldBeLessThan, 1e-4)
	test.That(t, robot.SurfaceWrench("LeftFoot").Force.Z, test.ShouldAlmostEqual, 400, 0.5)
	test.That(t, robot.SurfacePose("LeftFoot").Point().Z, test.ShouldBeLessThan, 0)
	// Converged: the correction has died out.
	test.That(t, cop.RefVelB().Norm(), test.ShouldBeLessThan, 1e-4)

	status, err := loop.Status("foot")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status.Done, test.ShouldBeTrue)
	test.That(t, status.Criteria, test.ShouldEqual, "copError, force")
	test.That(t, loop.Done(), test.ShouldBeTrue)

	test.That(t, recorder.NumRecorded(), test.ShouldEqual, 1000)
	test.That(t, recorder.Flush(), test.ShouldBeNil)
	data, err := ftdc.Parse(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(data), test.ShouldEqual, 1000)
	pressed, ok := data[0].Value("foot_pressure_ok.0")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pressed, test.ShouldEqual, 0.)
	pressed, ok = data[999].Value("foot_pressure_ok.0")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pressed, test.ShouldEqual, 1.)
	test.That(t, data[999].ConvertedTime().Sub(data[0].ConvertedTime()), test.ShouldEqual, 999*loop.Period())
}

func TestForceOnlyClosedLoop(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	world, robot := newTestWorld(t, 0.002)

	loop, err := control.NewLoop(ctx, logger, control.Config{Frequency: 200}, world, control.Options{})
	test.That(t, err, test.ShouldBeNil)
	task, err := tasks.NewAdmittanceTask(world, 0, "LeftFoot", loop.GetConfig().Dt(), 20, tasks.DefaultWeight, logger)
	test.That(t, err, test.ShouldBeNil)
	task.SetAdmittance(tasks.NewAdmittanceGain(r3.Vector{Z: 5e-5}, r3.Vector{}))
	task.SetTargetWrench(spatialmath.NewWrench(r3.Vector{Z: 250}, r3.Vector{}))
	test.That(t, loop.AddTask(task, nil), test.ShouldBeNil)

	for i := 0; i < 1000; i++ {
		test.That(t, loop.Step(ctx), test.ShouldBeNil)
	}
	test.That(t, robot.SurfaceWrench("LeftFoot").Force.Z, test.ShouldAlmostEqual, 250, 0.5)
	test.That(t, robot.SurfacePose("LeftFoot").Point().Z, test.ShouldAlmostEqual, -0.0025, 1e-5)
	// Without criteria the loop never reports done.
	test.That(t, loop.Done(), test.ShouldBeFalse)
}
