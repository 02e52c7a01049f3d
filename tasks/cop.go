package tasks

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/gui"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
)

// CoPTask is an admittance task whose objective is a center of pressure and a force in the surface
// frame rather than a raw wrench. While the measured normal force is under the minimum pressure
// the CoP is undefined and only the force is tracked.
type CoPTask struct {
	admittanceCore
	cop *copWrench

	// Values of the last Update, for telemetry.
	surfacePose  spatialmath.Pose
	measuredCoP  r2.Point
	measuredCoPW r3.Vector
	wasPressed   bool
}

// NewCoPTask creates a CoP task on a surface whose body has a force sensor. The task starts reset:
// holding the current surface pose with a zero target CoP and force.
func NewCoPTask(
	robots contact.Robots,
	robotIndex int,
	surface string,
	dt, stiffness, weight float64,
	logger logging.Logger,
) (*CoPTask, error) {
	t := &CoPTask{cop: newCoPWrench(DefaultMinPressure), surfacePose: spatialmath.NewZeroPose()}
	t.self = t
	if err := t.setup(taskCoP, robots, robotIndex, surface, dt, stiffness, weight, t.cop, logger); err != nil {
		return nil, err
	}
	t.target = func() spatialmath.Wrench { return CoPWrench(t.cop.cop, t.cop.force) }
	if err := t.readMeasurements(robots); err != nil {
		return nil, err
	}
	return t, nil
}

// Reset holds the current surface pose and zeroes the target CoP, force and wrench.
func (t *CoPTask) Reset(robots contact.Robots) error {
	if err := t.admittanceCore.Reset(robots); err != nil {
		return err
	}
	t.wasPressed = false
	return t.readMeasurements(robots)
}

// Update derives the target wrench from the target CoP and force, then runs the admittance law.
func (t *CoPTask) Update(robots contact.Robots) error {
	if err := t.admittanceCore.Update(robots); err != nil {
		return err
	}
	if pressed := t.cop.pressureOK; pressed != t.wasPressed {
		t.logger.Debugw("contact pressure changed",
			"task", t.name,
			"pressed", pressed,
			"normalForce", t.law.measuredWrench.Force.Z,
			"minPressure", t.cop.minPressure)
		t.wasPressed = pressed
	}
	return t.readMeasurements(robots)
}

func (t *CoPTask) readMeasurements(robots contact.Robots) error {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return err
	}
	t.surfacePose = robot.SurfacePose(t.ref.Surface)
	t.measuredCoP = robot.CoP(t.ref.Surface)
	t.measuredCoPW = robot.CoPW(t.ref.Surface)
	return nil
}

// TargetCoP returns the target CoP in the surface frame.
func (t *CoPTask) TargetCoP() r2.Point {
	return t.cop.cop
}

// SetTargetCoP sets the target CoP in the surface frame. It is combined with the target force at
// the next Update.
func (t *CoPTask) SetTargetCoP(cop r2.Point) {
	t.cop.cop = cop
}

// TargetForce returns the target force in the surface frame.
func (t *CoPTask) TargetForce() r3.Vector {
	return t.cop.force
}

// SetTargetForce sets the target force in the surface frame. It is combined with the target CoP at
// the next Update.
func (t *CoPTask) SetTargetForce(force r3.Vector) {
	t.cop.force = force
}

// TargetWrench returns the wrench derived at the last Update, in the surface frame.
func (t *CoPTask) TargetWrench() spatialmath.Wrench {
	return t.law.targetWrench
}

// SetZeroTargetWrench zeroes the target CoP, force and wrench.
func (t *CoPTask) SetZeroTargetWrench() {
	t.cop.cop = r2.Point{}
	t.cop.force = r3.Vector{}
	t.law.targetWrench = spatialmath.Wrench{}
}

// MinPressure returns the normal force under which moments are not tracked.
func (t *CoPTask) MinPressure() float64 {
	return t.cop.minPressure
}

// SetMinPressure sets the normal force under which moments are not tracked.
func (t *CoPTask) SetMinPressure(minPressure float64) error {
	if !(minPressure > 0) {
		return errors.Errorf("minimum pressure must be positive, got %v", minPressure)
	}
	t.cop.minPressure = minPressure
	return nil
}

// PressureOK reports whether the last Update saw enough normal force to track the CoP.
func (t *CoPTask) PressureOK() bool {
	return t.cop.pressureOK
}

// TargetCoPW maps the target CoP to the world frame through the current surface pose.
func (t *CoPTask) TargetCoPW(robots contact.Robots) (r3.Vector, error) {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return r3.Vector{}, err
	}
	return surfaceToWorld(robot.SurfacePose(t.ref.Surface), t.cop.cop), nil
}

// MeasuredCoP queries the CoP in the surface frame.
func (t *CoPTask) MeasuredCoP(robots contact.Robots) (r2.Point, error) {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return r2.Point{}, err
	}
	return robot.CoP(t.ref.Surface), nil
}

// MeasuredCoPW queries the CoP in the world frame.
func (t *CoPTask) MeasuredCoPW(robots contact.Robots) (r3.Vector, error) {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return r3.Vector{}, err
	}
	return robot.CoPW(t.ref.Surface), nil
}

// surfaceToWorld maps a point of the surface plane to the world frame.
func surfaceToWorld(pose spatialmath.Pose, cop r2.Point) r3.Vector {
	return spatialmath.TransformPoint(pose, r3.Vector{X: cop.X, Y: cop.Y})
}

// AddToLogger publishes the admittance entries and the CoP entries.
func (t *CoPTask) AddToLogger(logger *ftdc.Logger) {
	t.admittanceCore.AddToLogger(logger)
	logger.AddLogEntry(t.name+"_target_cop", t, func() []float64 { return r2Values(t.cop.cop) })
	logger.AddLogEntry(t.name+"_measured_cop", t, func() []float64 { return r2Values(t.measuredCoP) })
	logger.AddLogEntry(t.name+"_target_copW", t, func() []float64 {
		return r3Values(surfaceToWorld(t.surfacePose, t.cop.cop))
	})
	logger.AddLogEntry(t.name+"_measured_copW", t, func() []float64 { return r3Values(t.measuredCoPW) })
	logger.AddLogEntry(t.name+"_target_force", t, func() []float64 { return r3Values(t.cop.force) })
	logger.AddLogEntry(t.name+"_pressure_ok", t, func() []float64 { return boolValue(t.cop.pressureOK) })
}

// RemoveFromLogger retracts everything AddToLogger published.
func (t *CoPTask) RemoveFromLogger(logger *ftdc.Logger) {
	t.admittanceCore.RemoveFromLogger(logger)
	logger.RemoveLogEntries(t)
}

// AddToGUI publishes the task under Tasks/<name>.
func (t *CoPTask) AddToGUI(sb *gui.StateBuilder) {
	t.addToGUI(sb)
	sb.AddElement(guiCategory(t.name),
		gui.ArrayInput("targetCoP", xyLabels,
			func() []float64 { return r2Values(t.cop.cop) },
			func(v []float64) { t.SetTargetCoP(valuesToR2(v)) }),
		gui.ArrayInput("targetForce", xyzLabels,
			func() []float64 { return r3Values(t.cop.force) },
			func(v []float64) { t.SetTargetForce(valuesToR3(v)) }),
		gui.ArrayLabel("measuredCoP", xyLabels, func() []float64 { return r2Values(t.measuredCoP) }),
		gui.Label("pressure", func() string {
			if t.cop.pressureOK {
				return "ok"
			}
			return "too low, moments not tracked"
		}),
		gui.Button("Zero target wrench", t.SetZeroTargetWrench),
	)
}

// BuildCompletionCriteria supports the generic keys, "wrench", "copError" and "force". The CoP and
// force errors are recomputed from the snapshot.
func (t *CoPTask) BuildCompletionCriteria(dt float64, cfg config.AttributeMap) (CompletionCriteria, error) {
	return buildCompletionCriteria(dt, cfg, t.Type(), t.copCriterion)
}

func (t *CoPTask) copCriterion(key string, cfg config.AttributeMap) (criterion, bool, error) {
	switch key {
	case "copError":
		limit, err := threshold(cfg, key)
		if err != nil {
			return nil, true, err
		}
		return func(_ MetaTask, robots contact.Robots) (bool, string) {
			measured, err := t.MeasuredCoP(robots)
			if err != nil {
				return false, ""
			}
			return t.cop.cop.Sub(measured).Norm() <= limit, "copError"
		}, true, nil
	case "force":
		limit, err := threshold(cfg, key)
		if err != nil {
			return nil, true, err
		}
		return func(_ MetaTask, robots contact.Robots) (bool, string) {
			measured, err := t.MeasuredWrench(robots)
			if err != nil {
				return false, ""
			}
			return t.cop.force.Sub(measured.Force).Norm() <= limit, "force"
		}, true, nil
	default:
		return t.wrenchCriterion(key, cfg)
	}
}
