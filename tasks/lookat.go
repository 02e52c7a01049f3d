package tasks

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/gui"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/utils"
)

// Defaults of a LookAtTask.
const (
	DefaultLookAtStiffness = 2.0
	DefaultLookAtWeight    = 500.0
)

// LookAtTask turns a gaze vector fixed in a surface frame towards a world position. Only the
// orientation of the surface is driven.
type LookAtTask struct {
	name      string
	ref       contact.SurfaceRef
	stiffness float64
	weight    float64

	bodyVector r3.Vector
	target     r3.Vector

	rotation *spatialmath.RotationMatrix
	actual   r3.Vector
	desired  r3.Vector
	speed    spatialmath.Twist

	pub    publication
	logger logging.Logger
}

// NewLookAtTask returns a task looking along the current gaze of the surface. bodyVector is
// expressed in the surface frame and normalized.
func NewLookAtTask(
	robots contact.Robots,
	robotIndex int,
	surface string,
	bodyVector r3.Vector,
	stiffness, weight float64,
	logger logging.Logger,
) (*LookAtTask, error) {
	if !utils.IsFinite(bodyVector.X, bodyVector.Y, bodyVector.Z) || bodyVector.Norm() == 0 {
		return nil, errors.Errorf("lookat task needs a finite non-zero gaze vector, got %v", bodyVector)
	}
	ref, err := contact.LookupSurface(robots, robotIndex, surface)
	if err != nil {
		return nil, err
	}
	t := &LookAtTask{
		ref:        ref,
		stiffness:  stiffness,
		weight:     weight,
		bodyVector: bodyVector.Normalize(),
		logger:     logger,
	}
	t.name = defaultName(t.Type(), ref)
	if err := t.Reset(robots); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the task name.
func (t *LookAtTask) Name() string {
	return t.name
}

// SetName renames the task. Published telemetry and GUI entries move to the new name.
func (t *LookAtTask) SetName(name string) {
	t.pub.rename(t, func() { t.name = name })
}

// Type returns "lookat".
func (t *LookAtTask) Type() string {
	return string(taskLookAt)
}

// Surface returns the controlled surface.
func (t *LookAtTask) Surface() contact.SurfaceRef {
	return t.ref
}

// Reset targets the point one meter along the current gaze, so the task starts without error.
func (t *LookAtTask) Reset(robots contact.Robots) error {
	pose, err := t.read(robots)
	if err != nil {
		return err
	}
	t.target = pose.Point().Add(t.actual)
	t.desired = t.actual
	return nil
}

// Update reads the surface pose and recomputes the gaze towards the target.
func (t *LookAtTask) Update(robots contact.Robots) error {
	pose, err := t.read(robots)
	if err != nil {
		return err
	}
	// A target on the surface origin has no direction; the current gaze is kept.
	if dir := t.target.Sub(pose.Point()); dir.Norm() > 1e-9 {
		t.desired = dir.Normalize()
	} else {
		t.desired = t.actual
	}
	return nil
}

// read updates the gaze from the surface pose and returns that pose.
func (t *LookAtTask) read(robots contact.Robots) (spatialmath.Pose, error) {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return nil, err
	}
	pose := robot.SurfacePose(t.ref.Surface)
	t.rotation = pose.Orientation().RotationMatrix()
	t.actual = t.rotation.Mul(t.bodyVector)
	t.speed = robot.SurfaceVelocity(t.ref.Surface)
	return pose, nil
}

// Target returns the world position to look at.
func (t *LookAtTask) Target() r3.Vector {
	return t.target
}

// SetTarget sets the world position to look at. It takes effect at the next Update.
func (t *LookAtTask) SetTarget(pos r3.Vector) {
	t.target = pos
}

// BodyVector returns the unit gaze vector in the surface frame.
func (t *LookAtTask) BodyVector() r3.Vector {
	return t.bodyVector
}

// ActualVector returns the gaze in the world frame as of the last Update.
func (t *LookAtTask) ActualVector() r3.Vector {
	return t.actual
}

// TargetVector returns the unit direction from the surface to the target as of the last Update.
func (t *LookAtTask) TargetVector() r3.Vector {
	return t.desired
}

// Stiffness returns the proportional gain on the gaze error.
func (t *LookAtTask) Stiffness() float64 {
	return t.stiffness
}

// SetStiffness sets the proportional gain on the gaze error.
func (t *LookAtTask) SetStiffness(stiffness float64) {
	t.stiffness = stiffness
}

// Weight returns the task weight in the solver.
func (t *LookAtTask) Weight() float64 {
	return t.weight
}

// SetWeight sets the task weight in the solver.
func (t *LookAtTask) SetWeight(weight float64) {
	t.weight = weight
}

// EvalVector returns the target direction minus the actual gaze, in the world frame.
func (t *LookAtTask) EvalVector() []float64 {
	return r3Values(t.desired.Sub(t.actual))
}

// Eval returns the norm of EvalVector.
func (t *LookAtTask) Eval() float64 {
	return t.desired.Sub(t.actual).Norm()
}

// Speed returns the norm of the surface velocity.
func (t *LookAtTask) Speed() float64 {
	return t.speed.Norm()
}

// DesiredVelocity rotates the gaze towards the target, about their common normal, in the surface
// frame. The surface does not translate.
func (t *LookAtTask) DesiredVelocity() spatialmath.Twist {
	if t.rotation == nil {
		return spatialmath.Twist{}
	}
	w := t.actual.Cross(t.desired).Mul(t.stiffness)
	return spatialmath.Twist{Angular: t.rotation.Transpose().Mul(w)}
}

// AddToLogger publishes the target position and both gaze vectors.
func (t *LookAtTask) AddToLogger(logger *ftdc.Logger) {
	t.pub.logger = logger
	logger.AddLogEntry(t.name+"_target", t, func() []float64 { return r3Values(t.target) })
	logger.AddLogEntry(t.name+"_target_vector", t, func() []float64 { return r3Values(t.desired) })
	logger.AddLogEntry(t.name+"_actual_vector", t, func() []float64 { return r3Values(t.actual) })
	logger.AddLogEntry(t.name+"_eval", t, t.EvalVector)
}

// RemoveFromLogger retracts everything AddToLogger published.
func (t *LookAtTask) RemoveFromLogger(logger *ftdc.Logger) {
	t.pub.logger = nil
	logger.RemoveLogEntries(t)
}

// AddToGUI publishes the surface, gains and target position under Tasks/<name>.
func (t *LookAtTask) AddToGUI(sb *gui.StateBuilder) {
	t.pub.gui = sb
	sb.AddElement(guiCategory(t.name),
		gui.Label("surface", t.ref.String),
		gui.ArrayInput("target", xyzLabels,
			func() []float64 { return r3Values(t.target) },
			func(v []float64) { t.SetTarget(valuesToR3(v)) }),
		gui.ArrayInput("stiffness", []string{"stiffness"},
			func() []float64 { return []float64{t.stiffness} },
			func(v []float64) { t.SetStiffness(v[0]) }),
		gui.ArrayLabel("actual vector", xyzLabels, func() []float64 { return r3Values(t.actual) }),
		gui.ArrayLabel("target vector", xyzLabels, func() []float64 { return r3Values(t.desired) }),
	)
}

// RemoveFromGUI retracts the task's category.
func (t *LookAtTask) RemoveFromGUI(sb *gui.StateBuilder) {
	t.pub.gui = nil
	sb.RemoveCategory(guiCategory(t.name))
}

// BuildCompletionCriteria supports the generic keys: timeout, eval and speed.
func (t *LookAtTask) BuildCompletionCriteria(dt float64, cfg config.AttributeMap) (CompletionCriteria, error) {
	return buildCompletionCriteria(dt, cfg, t.Type(), nil)
}
