package tasks

import (
	"gonum.org/v1/gonum/floats"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/gui"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
)

// Defaults for the pose tracking part of every surface task.
const (
	DefaultStiffness = 5.0
	DefaultWeight    = 1000.0
)

// TransformTask tracks a target pose for a surface frame. It computes the pose error and the
// surface velocity it asks the solver for, a proportional term plus a feed-forward velocity
// expressed in the surface frame.
type TransformTask struct {
	name      string
	ref       contact.SurfaceRef
	stiffness float64
	weight    float64

	target  spatialmath.Pose
	refVelB spatialmath.Twist

	current spatialmath.Pose
	eval    []float64
	speed   spatialmath.Twist

	pub    publication
	logger logging.Logger
}

// NewTransformTask returns a task holding the current pose of the surface.
func NewTransformTask(
	robots contact.Robots,
	robotIndex int,
	surface string,
	stiffness, weight float64,
	logger logging.Logger,
) (*TransformTask, error) {
	ref, err := contact.LookupSurface(robots, robotIndex, surface)
	if err != nil {
		return nil, err
	}
	t := newTransformTask(ref, stiffness, weight, logger)
	t.name = defaultName(t.Type(), ref)
	if err := t.Reset(robots); err != nil {
		return nil, err
	}
	return t, nil
}

func newTransformTask(ref contact.SurfaceRef, stiffness, weight float64, logger logging.Logger) *TransformTask {
	return &TransformTask{
		ref:       ref,
		stiffness: stiffness,
		weight:    weight,
		target:    spatialmath.NewZeroPose(),
		current:   spatialmath.NewZeroPose(),
		eval:      make([]float64, 6),
		logger:    logger,
	}
}

// Name returns the task name.
func (t *TransformTask) Name() string {
	return t.name
}

// SetName renames the task. Published telemetry and GUI entries move to the new name.
func (t *TransformTask) SetName(name string) {
	t.pub.rename(t, func() { t.name = name })
}

// Type returns "transform".
func (t *TransformTask) Type() string {
	return string(taskTransform)
}

// Surface returns the controlled surface.
func (t *TransformTask) Surface() contact.SurfaceRef {
	return t.ref
}

// Reset sets the target to the current surface pose and clears the feed-forward velocity.
func (t *TransformTask) Reset(robots contact.Robots) error {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return err
	}
	t.current = robot.SurfacePose(t.ref.Surface)
	t.target = t.current
	t.refVelB = spatialmath.Twist{}
	t.eval = make([]float64, 6)
	t.speed = robot.SurfaceVelocity(t.ref.Surface)
	return nil
}

// Update reads the surface pose and velocity and computes the pose error.
func (t *TransformTask) Update(robots contact.Robots) error {
	robot, err := t.ref.Resolve(robots)
	if err != nil {
		return err
	}
	t.current = robot.SurfacePose(t.ref.Surface)
	t.eval = spatialmath.PoseDelta(t.current, t.target)
	t.speed = robot.SurfaceVelocity(t.ref.Surface)
	return nil
}

// Target returns the target pose.
func (t *TransformTask) Target() spatialmath.Pose {
	return t.target
}

// SetTarget sets the target pose.
func (t *TransformTask) SetTarget(target spatialmath.Pose) {
	t.target = target
}

// RefVelB returns the feed-forward velocity in the surface frame.
func (t *TransformTask) RefVelB() spatialmath.Twist {
	return t.refVelB
}

// SetRefVelB sets the feed-forward velocity in the surface frame.
func (t *TransformTask) SetRefVelB(v spatialmath.Twist) {
	t.refVelB = v
}

// Stiffness returns the proportional gain on the pose error.
func (t *TransformTask) Stiffness() float64 {
	return t.stiffness
}

// SetStiffness sets the proportional gain on the pose error.
func (t *TransformTask) SetStiffness(stiffness float64) {
	t.stiffness = stiffness
}

// Weight returns the task weight in the solver.
func (t *TransformTask) Weight() float64 {
	return t.weight
}

// SetWeight sets the task weight in the solver.
func (t *TransformTask) SetWeight(weight float64) {
	t.weight = weight
}

// EvalVector returns the pose error of the last Update, translation then rotation vector, in the
// surface frame.
func (t *TransformTask) EvalVector() []float64 {
	out := make([]float64, len(t.eval))
	copy(out, t.eval)
	return out
}

// Eval returns the norm of the pose error.
func (t *TransformTask) Eval() float64 {
	return floats.Norm(t.eval, 2)
}

// Speed returns the norm of the surface velocity.
func (t *TransformTask) Speed() float64 {
	return t.speed.Norm()
}

// DesiredVelocity returns stiffness times the pose error plus the feed-forward velocity.
func (t *TransformTask) DesiredVelocity() spatialmath.Twist {
	v := t.refVelB.Vector()
	for i := range v {
		v[i] += t.stiffness * t.eval[i]
	}
	return spatialmath.Twist{
		Linear:  valuesToR3(v[:3]),
		Angular: valuesToR3(v[3:]),
	}
}

// AddToLogger publishes the target pose, the pose error and the feed-forward velocity.
func (t *TransformTask) AddToLogger(logger *ftdc.Logger) {
	t.pub.logger = logger
	logger.AddLogEntry(t.name+"_target_pose", t, func() []float64 { return poseValues(t.target) })
	logger.AddLogEntry(t.name+"_eval", t, t.EvalVector)
	logger.AddLogEntry(t.name+"_ref_vel", t, func() []float64 { return t.refVelB.Vector() })
}

// RemoveFromLogger retracts everything AddToLogger published.
func (t *TransformTask) RemoveFromLogger(logger *ftdc.Logger) {
	t.pub.logger = nil
	logger.RemoveLogEntries(t)
}

// AddToGUI publishes the surface, gains and target under Tasks/<name>.
func (t *TransformTask) AddToGUI(sb *gui.StateBuilder) {
	t.pub.gui = sb
	sb.AddElement(guiCategory(t.name),
		gui.Label("surface", t.ref.String),
		gui.ArrayInput("stiffness", []string{"stiffness"},
			func() []float64 { return []float64{t.stiffness} },
			func(v []float64) { t.SetStiffness(v[0]) }),
		gui.ArrayInput("weight", []string{"weight"},
			func() []float64 { return []float64{t.weight} },
			func(v []float64) { t.SetWeight(v[0]) }),
		gui.ArrayLabel("target", poseLabels, func() []float64 { return poseValues(t.target) }),
		gui.ArrayLabel("eval", poseLabels, t.EvalVector),
	)
}

// RemoveFromGUI retracts the task's category.
func (t *TransformTask) RemoveFromGUI(sb *gui.StateBuilder) {
	t.pub.gui = nil
	sb.RemoveCategory(guiCategory(t.name))
}

// BuildCompletionCriteria supports the generic keys: timeout, eval and speed.
func (t *TransformTask) BuildCompletionCriteria(dt float64, cfg config.AttributeMap) (CompletionCriteria, error) {
	return buildCompletionCriteria(dt, cfg, t.Type(), nil)
}
