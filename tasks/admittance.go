package tasks

import (
	"math"

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

// admittanceLaw turns the wrench error of a cycle into a velocity correction in the surface frame.
type admittanceLaw struct {
	gain          AdmittanceGain
	velFilterGain float64
	maxLinearVel  r3.Vector
	maxAngularVel r3.Vector

	targetWrench   spatialmath.Wrench
	measuredWrench spatialmath.Wrench
	wrenchError    spatialmath.Wrench
	effectiveGain  AdmittanceGain
	correction     spatialmath.Twist
}

func newAdmittanceLaw() admittanceLaw {
	inf := math.Inf(1)
	return admittanceLaw{
		maxLinearVel:  r3.Vector{X: inf, Y: inf, Z: inf},
		maxAngularVel: r3.Vector{X: inf, Y: inf, Z: inf},
	}
}

func (l *admittanceLaw) reset() {
	l.targetWrench = spatialmath.Wrench{}
	l.measuredWrench = spatialmath.Wrench{}
	l.wrenchError = spatialmath.Wrench{}
	l.effectiveGain = l.gain
	l.correction = spatialmath.Twist{}
}

// step computes the correction K * (measured - target), saturates it axis by axis and low-pass
// filters it with the previous correction.
func (l *admittanceLaw) step(measured spatialmath.Wrench, source WrenchSource) spatialmath.Twist {
	l.measuredWrench = measured
	l.targetWrench, l.effectiveGain = source.Next(measured, l.gain)
	l.wrenchError = measured.Sub(l.targetWrench)

	raw := l.effectiveGain.Apply(l.wrenchError)
	if l.effectiveGain.RotationalBlockIsZero() {
		// No angular correction is filtered in from the cycles before.
		l.correction.Angular = r3.Vector{}
	}
	raw.Linear = clampVector(raw.Linear, l.maxLinearVel)
	raw.Angular = clampVector(raw.Angular, l.maxAngularVel)

	g := l.velFilterGain
	l.correction = spatialmath.Twist{
		Linear:  l.correction.Linear.Mul(g).Add(raw.Linear.Mul(1 - g)),
		Angular: l.correction.Angular.Mul(g).Add(raw.Angular.Mul(1 - g)),
	}
	return l.correction
}

func clampVector(v, limit r3.Vector) r3.Vector {
	return r3.Vector{
		X: utils.Clamp(v.X, -limit.X, limit.X),
		Y: utils.Clamp(v.Y, -limit.Y, limit.Y),
		Z: utils.Clamp(v.Z, -limit.Z, limit.Z),
	}
}

// admittanceCore is the part shared by AdmittanceTask and CoPTask: a pose task on the surface whose
// target is moved every cycle by the admittance law, fed by a WrenchSource.
type admittanceCore struct {
	typ  taskType
	ref  contact.SurfaceRef
	dt   float64
	name string

	transform *TransformTask
	law       admittanceLaw
	source    WrenchSource
	// target returns the wrench the source tracks right now, for completion criteria.
	target func() spatialmath.Wrench
	// self is the task embedding the core, republished on rename.
	self MetaTask
	pub  publication

	logger logging.Logger
}

func (c *admittanceCore) setup(
	typ taskType,
	robots contact.Robots,
	robotIndex int,
	surface string,
	dt, stiffness, weight float64,
	source WrenchSource,
	logger logging.Logger,
) error {
	if dt <= 0 {
		return errors.Errorf("%s task needs a positive dt, got %v", typ, dt)
	}
	ref, err := contact.NewSurfaceRef(robots, robotIndex, surface)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s task", typ)
	}
	c.typ = typ
	c.ref = ref
	c.dt = dt
	c.name = defaultName(string(typ), ref)
	c.transform = newTransformTask(ref, stiffness, weight, logger)
	c.transform.SetName(c.name)
	c.law = newAdmittanceLaw()
	c.source = source
	c.logger = logger
	return c.Reset(robots)
}

// Name returns the task name.
func (c *admittanceCore) Name() string {
	return c.name
}

// SetName renames the task. Published telemetry and GUI entries move to the new name.
func (c *admittanceCore) SetName(name string) {
	c.pub.rename(c.self, func() {
		c.name = name
		c.transform.SetName(name)
	})
}

// Type returns the task type.
func (c *admittanceCore) Type() string {
	return string(c.typ)
}

// Surface returns the controlled surface.
func (c *admittanceCore) Surface() contact.SurfaceRef {
	return c.ref
}

// Dt returns the control period in seconds.
func (c *admittanceCore) Dt() float64 {
	return c.dt
}

// Reset sets the target pose to the measured surface pose and zeroes the target wrench and every
// filter.
func (c *admittanceCore) Reset(robots contact.Robots) error {
	if err := c.transform.Reset(robots); err != nil {
		return err
	}
	c.law.reset()
	c.source.Reset()
	return nil
}

// Update runs the admittance law on the measured wrench and moves the target pose by the
// resulting correction.
func (c *admittanceCore) Update(robots contact.Robots) error {
	robot, err := c.ref.Resolve(robots)
	if err != nil {
		return err
	}
	vel := c.law.step(robot.SurfaceWrench(c.ref.Surface), c.source)
	c.transform.SetTarget(spatialmath.IntegrateBody(c.transform.Target(), vel, c.dt))
	c.transform.SetRefVelB(vel)
	return c.transform.Update(robots)
}

// TargetPose returns the pose the surface is commanded to.
func (c *admittanceCore) TargetPose() spatialmath.Pose {
	return c.transform.Target()
}

// Admittance returns the configured gain.
func (c *admittanceCore) Admittance() AdmittanceGain {
	return c.law.gain
}

// SetAdmittance sets the configured gain. It takes effect at the next Update.
func (c *admittanceCore) SetAdmittance(gain AdmittanceGain) {
	c.law.gain = gain
}

// EffectiveAdmittance returns the gain applied during the last Update.
func (c *admittanceCore) EffectiveAdmittance() AdmittanceGain {
	return c.law.effectiveGain
}

// MeasuredWrench queries the surface wrench from the snapshot.
func (c *admittanceCore) MeasuredWrench(robots contact.Robots) (spatialmath.Wrench, error) {
	robot, err := c.ref.Resolve(robots)
	if err != nil {
		return spatialmath.Wrench{}, err
	}
	return robot.SurfaceWrench(c.ref.Surface), nil
}

// WrenchError returns measured minus target wrench as of the last Update.
func (c *admittanceCore) WrenchError() spatialmath.Wrench {
	return c.law.wrenchError
}

// RefVelB returns the velocity correction of the last Update, in the surface frame.
func (c *admittanceCore) RefVelB() spatialmath.Twist {
	return c.law.correction
}

// VelFilterGain returns the low-pass gain on the correction.
func (c *admittanceCore) VelFilterGain() float64 {
	return c.law.velFilterGain
}

// SetVelFilterGain sets the low-pass gain on the correction, clamped to [0, 1]. Zero disables
// filtering.
func (c *admittanceCore) SetVelFilterGain(g float64) {
	c.law.velFilterGain = utils.Clamp(g, 0, 1)
}

// MaxLinearVel returns the per axis bound on the linear correction.
func (c *admittanceCore) MaxLinearVel() r3.Vector {
	return c.law.maxLinearVel
}

// SetMaxLinearVel bounds the linear correction axis by axis.
func (c *admittanceCore) SetMaxLinearVel(v r3.Vector) {
	c.law.maxLinearVel = v
}

// MaxAngularVel returns the per axis bound on the angular correction.
func (c *admittanceCore) MaxAngularVel() r3.Vector {
	return c.law.maxAngularVel
}

// SetMaxAngularVel bounds the angular correction axis by axis.
func (c *admittanceCore) SetMaxAngularVel(v r3.Vector) {
	c.law.maxAngularVel = v
}

// Stiffness returns the pose task stiffness.
func (c *admittanceCore) Stiffness() float64 {
	return c.transform.Stiffness()
}

// SetStiffness sets the pose task stiffness.
func (c *admittanceCore) SetStiffness(stiffness float64) {
	c.transform.SetStiffness(stiffness)
}

// Weight returns the pose task weight.
func (c *admittanceCore) Weight() float64 {
	return c.transform.Weight()
}

// SetWeight sets the pose task weight.
func (c *admittanceCore) SetWeight(weight float64) {
	c.transform.SetWeight(weight)
}

// Eval returns the norm of the pose task error.
func (c *admittanceCore) Eval() float64 {
	return c.transform.Eval()
}

// Speed returns the norm of the surface velocity.
func (c *admittanceCore) Speed() float64 {
	return c.transform.Speed()
}

// DesiredVelocity returns the surface velocity the pose task asks for.
func (c *admittanceCore) DesiredVelocity() spatialmath.Twist {
	return c.transform.DesiredVelocity()
}

// AddToLogger publishes the pose task entries and the wrench entries.
func (c *admittanceCore) AddToLogger(logger *ftdc.Logger) {
	c.pub.logger = logger
	c.transform.AddToLogger(logger)
	logger.AddLogEntry(c.name+"_target_wrench", c, func() []float64 { return c.law.targetWrench.Vector() })
	logger.AddLogEntry(c.name+"_measured_wrench", c, func() []float64 { return c.law.measuredWrench.Vector() })
	logger.AddLogEntry(c.name+"_wrench_error", c, func() []float64 { return c.law.wrenchError.Vector() })
	logger.AddLogEntry(c.name+"_admittance", c, func() []float64 { return c.law.gain.Diagonal() })
}

// RemoveFromLogger retracts everything AddToLogger published.
func (c *admittanceCore) RemoveFromLogger(logger *ftdc.Logger) {
	c.pub.logger = nil
	c.transform.RemoveFromLogger(logger)
	logger.RemoveLogEntries(c)
}

// addToGUI publishes the pose task elements and the admittance settings.
func (c *admittanceCore) addToGUI(sb *gui.StateBuilder) {
	c.pub.gui = sb
	c.transform.AddToGUI(sb)
	sb.AddElement(guiCategory(c.name),
		gui.ArrayInput("admittance", wrenchLabels, func() []float64 { return c.law.gain.Diagonal() }, func(v []float64) {
			c.SetAdmittance(NewAdmittanceGain(valuesToR3(v[:3]), valuesToR3(v[3:])))
		}),
		gui.ArrayInput("velFilterGain", []string{"gain"},
			func() []float64 { return []float64{c.law.velFilterGain} },
			func(v []float64) { c.SetVelFilterGain(v[0]) }),
		gui.ArrayLabel("measured wrench", wrenchLabels, func() []float64 { return c.law.measuredWrench.Vector() }),
		gui.ArrayLabel("wrench error", wrenchLabels, func() []float64 { return c.law.wrenchError.Vector() }),
	)
}

// RemoveFromGUI retracts the task's category.
func (c *admittanceCore) RemoveFromGUI(sb *gui.StateBuilder) {
	c.pub.gui = nil
	c.transform.RemoveFromGUI(sb)
}

// wrenchCriterion understands "wrench", either a bound on the norm of the wrench error or six
// per component bounds where null skips the component. The error is recomputed from the snapshot.
func (c *admittanceCore) wrenchCriterion(key string, cfg config.AttributeMap) (criterion, bool, error) {
	if key != "wrench" {
		return nil, false, nil
	}
	switch cfg[key].(type) {
	case []interface{}, []float64:
	default:
		limit, err := threshold(cfg, key)
		if err != nil {
			return nil, true, err
		}
		return func(_ MetaTask, robots contact.Robots) (bool, string) {
			measured, err := c.MeasuredWrench(robots)
			if err != nil {
				return false, ""
			}
			return measured.Sub(c.target()).Norm() <= limit, "wrench"
		}, true, nil
	}
	limits, err := componentThresholds(cfg, key, 6)
	if err != nil {
		return nil, true, err
	}
	return func(_ MetaTask, robots contact.Robots) (bool, string) {
		measured, err := c.MeasuredWrench(robots)
		if err != nil {
			return false, ""
		}
		e := measured.Sub(c.target()).Vector()
		for i, limit := range limits {
			if !math.IsNaN(limit) && math.Abs(e[i]) > limit {
				return false, ""
			}
		}
		return true, "wrench"
	}, true, nil
}

// componentThresholds reads a list of n non-negative bounds. Null entries become NaN.
func componentThresholds(cfg config.AttributeMap, key string, n int) ([]float64, error) {
	var raw []interface{}
	switch v := cfg[key].(type) {
	case []interface{}:
		raw = v
	case []float64:
		for _, f := range v {
			raw = append(raw, f)
		}
	default:
		return nil, errors.Errorf("completion criteria %q must be a number or a list of %d numbers, got %T", key, n, v)
	}
	if len(raw) != n {
		return nil, errors.Errorf("completion criteria %q needs %d values, got %d", key, n, len(raw))
	}
	out := make([]float64, n)
	for i, item := range raw {
		if item == nil {
			out[i] = math.NaN()
			continue
		}
		v, err := config.AttributeMap{key: item}.TryFloat64(key)
		if err != nil {
			return nil, err
		}
		if v < 0 || math.IsNaN(v) {
			return nil, errors.Errorf("completion criteria %q must be non-negative, got %v", key, v)
		}
		out[i] = v
	}
	return out, nil
}

// AdmittanceTask moves a surface so that its measured contact wrench tracks a target wrench.
type AdmittanceTask struct {
	admittanceCore
	direct *directWrench
}

// NewAdmittanceTask creates an admittance task on a surface whose body has a force sensor. The
// task starts reset: holding the current surface pose with a zero target wrench and a zero gain.
func NewAdmittanceTask(
	robots contact.Robots,
	robotIndex int,
	surface string,
	dt, stiffness, weight float64,
	logger logging.Logger,
) (*AdmittanceTask, error) {
	t := &AdmittanceTask{direct: &directWrench{}}
	t.self = t
	if err := t.setup(taskAdmittance, robots, robotIndex, surface, dt, stiffness, weight, t.direct, logger); err != nil {
		return nil, err
	}
	t.target = t.TargetWrench
	return t, nil
}

// TargetWrench returns the wrench to track, in the surface frame.
func (t *AdmittanceTask) TargetWrench() spatialmath.Wrench {
	return t.direct.target
}

// SetTargetWrench sets the wrench to track, in the surface frame.
func (t *AdmittanceTask) SetTargetWrench(w spatialmath.Wrench) {
	t.direct.target = w
}

// AddToGUI publishes the task under Tasks/<name>.
func (t *AdmittanceTask) AddToGUI(sb *gui.StateBuilder) {
	t.addToGUI(sb)
	sb.AddElement(guiCategory(t.name),
		gui.ArrayInput("targetWrench", wrenchLabels, func() []float64 { return t.direct.target.Vector() },
			func(v []float64) { t.SetTargetWrench(spatialmath.NewWrench(valuesToR3(v[:3]), valuesToR3(v[3:]))) }),
	)
}

// BuildCompletionCriteria supports the generic keys and "wrench".
func (t *AdmittanceTask) BuildCompletionCriteria(dt float64, cfg config.AttributeMap) (CompletionCriteria, error) {
	return buildCompletionCriteria(dt, cfg, t.Type(), t.wrenchCriterion)
}
