package tasks

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/utils"
)

// SurfaceConfig holds the attributes shared by every surface task.
type SurfaceConfig struct {
	Type       string   `json:"type"`
	Name       string   `json:"name,omitempty"`
	Surface    string   `json:"surface"`
	RobotIndex int      `json:"robotIndex"`
	Stiffness  *float64 `json:"stiffness,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *SurfaceConfig) Validate(path string) error {
	var errs error
	if cfg.Surface == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "surface"))
	}
	if cfg.RobotIndex < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("robotIndex must be non-negative, got %d", cfg.RobotIndex)))
	}
	errs = multierr.Append(errs, nonNegative(path, "stiffness", cfg.Stiffness))
	errs = multierr.Append(errs, nonNegative(path, "weight", cfg.Weight))
	return errs
}

func (cfg *SurfaceConfig) stiffness() float64 {
	return cfg.stiffnessOr(DefaultStiffness)
}

func (cfg *SurfaceConfig) stiffnessOr(def float64) float64 {
	if cfg.Stiffness == nil {
		return def
	}
	return *cfg.Stiffness
}

func (cfg *SurfaceConfig) weight() float64 {
	return cfg.weightOr(DefaultWeight)
}

func (cfg *SurfaceConfig) weightOr(def float64) float64 {
	if cfg.Weight == nil {
		return def
	}
	return *cfg.Weight
}

// PoseConfig is a translation and a rotation vector in radians.
type PoseConfig struct {
	Translation []float64 `json:"translation"`
	Rotation    []float64 `json:"rotation,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *PoseConfig) Validate(path string) error {
	return multierr.Combine(
		vectorLength(path, "translation", cfg.Translation, 3, true),
		vectorLength(path, "rotation", cfg.Rotation, 3, false),
	)
}

// Pose returns the configured pose.
func (cfg *PoseConfig) Pose() spatialmath.Pose {
	var o spatialmath.Orientation
	if len(cfg.Rotation) == 3 {
		o = spatialmath.ExpMap(valuesToR3(cfg.Rotation))
	}
	return spatialmath.NewPose(valuesToR3(cfg.Translation), o)
}

// TransformConfig configures a TransformTask.
type TransformConfig struct {
	SurfaceConfig
	Target *PoseConfig `json:"target,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *TransformConfig) Validate(path string) error {
	errs := cfg.SurfaceConfig.Validate(path)
	if cfg.Target != nil {
		errs = multierr.Append(errs, cfg.Target.Validate(path+".target"))
	}
	return errs
}

// LookAtConfig configures a LookAtTask. Target is a world position; without it the task looks
// along the current gaze.
type LookAtConfig struct {
	SurfaceConfig
	BodyVector []float64 `json:"bodyVector"`
	Target     []float64 `json:"target,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *LookAtConfig) Validate(path string) error {
	errs := cfg.SurfaceConfig.Validate(path)
	errs = multierr.Append(errs, vectorLength(path, "bodyVector", cfg.BodyVector, 3, true))
	if len(cfg.BodyVector) == 3 && floats.Norm(cfg.BodyVector, 2) == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("bodyVector must be non-zero")))
	}
	errs = multierr.Append(errs, vectorLength(path, "target", cfg.Target, 3, false))
	return errs
}

// VectorPairConfig is a force part and a couple part of 3 values each.
type VectorPairConfig struct {
	Force  []float64 `json:"force"`
	Couple []float64 `json:"couple"`
}

// Validate ensures all parts of the config are valid.
func (cfg *VectorPairConfig) Validate(path string) error {
	return multierr.Combine(
		vectorLength(path, "force", cfg.Force, 3, false),
		vectorLength(path, "couple", cfg.Couple, 3, false),
	)
}

func (cfg *VectorPairConfig) vectors() (r3.Vector, r3.Vector) {
	var force, couple r3.Vector
	if len(cfg.Force) == 3 {
		force = valuesToR3(cfg.Force)
	}
	if len(cfg.Couple) == 3 {
		couple = valuesToR3(cfg.Couple)
	}
	return force, couple
}

// AdmittanceConfig configures an AdmittanceTask.
type AdmittanceConfig struct {
	SurfaceConfig
	// Dt overrides the controller period, in seconds.
	Dt            *float64          `json:"dt,omitempty"`
	Admittance    *VectorPairConfig `json:"admittance,omitempty"`
	TargetWrench  *VectorPairConfig `json:"targetWrench,omitempty"`
	VelFilterGain *float64          `json:"velFilterGain,omitempty"`
	MaxLinearVel  []float64         `json:"maxLinearVel,omitempty"`
	MaxAngularVel []float64         `json:"maxAngularVel,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *AdmittanceConfig) Validate(path string) error {
	errs := cfg.SurfaceConfig.Validate(path)
	if cfg.Dt != nil && !(*cfg.Dt > 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("dt must be positive, got %v", *cfg.Dt)))
	}
	if cfg.Admittance != nil {
		errs = multierr.Append(errs, cfg.Admittance.Validate(path+".admittance"))
	}
	if cfg.TargetWrench != nil {
		errs = multierr.Append(errs, cfg.TargetWrench.Validate(path+".targetWrench"))
	}
	if g := cfg.VelFilterGain; g != nil && (*g < 0 || *g >= 1 || math.IsNaN(*g)) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("velFilterGain must be in [0, 1), got %v", *g)))
	}
	errs = multierr.Append(errs, positiveVector(path, "maxLinearVel", cfg.MaxLinearVel))
	errs = multierr.Append(errs, positiveVector(path, "maxAngularVel", cfg.MaxAngularVel))
	return errs
}

// apply sets everything but the target wrench on the task.
func (cfg *AdmittanceConfig) apply(c *admittanceCore) {
	if cfg.Name != "" {
		c.SetName(cfg.Name)
	}
	if cfg.Admittance != nil {
		c.SetAdmittance(NewAdmittanceGain(cfg.Admittance.vectors()))
	}
	if cfg.VelFilterGain != nil {
		c.SetVelFilterGain(*cfg.VelFilterGain)
	}
	if len(cfg.MaxLinearVel) == 3 {
		c.SetMaxLinearVel(valuesToR3(cfg.MaxLinearVel))
	}
	if len(cfg.MaxAngularVel) == 3 {
		c.SetMaxAngularVel(valuesToR3(cfg.MaxAngularVel))
	}
}

func (cfg *AdmittanceConfig) dt(controllerDt float64) float64 {
	if cfg.Dt == nil {
		return controllerDt
	}
	return *cfg.Dt
}

// CoPConfig configures a CoPTask. The target wrench is derived from TargetCoP and TargetForce and
// cannot be set directly.
type CoPConfig struct {
	AdmittanceConfig
	TargetCoP   []float64 `json:"targetCoP,omitempty"`
	TargetForce []float64 `json:"targetForce,omitempty"`
	MinPressure *float64  `json:"minPressure,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *CoPConfig) Validate(path string) error {
	errs := cfg.AdmittanceConfig.Validate(path)
	if cfg.TargetWrench != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("targetWrench cannot be set on a cop task, use targetCoP and targetForce")))
	}
	errs = multierr.Append(errs, vectorLength(path, "targetCoP", cfg.TargetCoP, 2, false))
	errs = multierr.Append(errs, vectorLength(path, "targetForce", cfg.TargetForce, 3, false))
	if p := cfg.MinPressure; p != nil && !(*p > 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("minPressure must be positive, got %v", *p)))
	}
	return errs
}

func (cfg *CoPConfig) targetCoP() r2.Point {
	if len(cfg.TargetCoP) != 2 {
		return r2.Point{}
	}
	return valuesToR2(cfg.TargetCoP)
}

func nonNegative(path, field string, v *float64) error {
	if v == nil || (*v >= 0 && utils.IsFinite(*v)) {
		return nil
	}
	return utils.NewConfigValidationError(path, errors.Errorf("%s must be finite and non-negative, got %v", field, *v))
}

func vectorLength(path, field string, v []float64, n int, required bool) error {
	if v == nil && !required {
		return nil
	}
	if len(v) != n {
		return utils.NewConfigValidationError(path,
			errors.Errorf("%s must have %d values, got %d", field, n, len(v)))
	}
	if !utils.IsFinite(v...) {
		return utils.NewConfigValidationError(path, errors.Errorf("%s must be finite, got %v", field, v))
	}
	return nil
}

func positiveVector(path, field string, v []float64) error {
	if v == nil {
		return nil
	}
	if err := vectorLength(path, field, v, 3, true); err != nil {
		return err
	}
	for i, x := range v {
		if !(x > 0) {
			return utils.NewConfigValidationError(path,
				errors.Errorf("%s[%d] must be positive, got %v", field, i, x))
		}
	}
	return nil
}
