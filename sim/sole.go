package sim

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/tasks"
	"github.com/wbcontrol/wbc/utils"
)

// Sole is a rectangular contact patch in the surface plane, centred on the surface origin. The
// ground reaction is the sum of spring-damper forces at a grid of sample points.
type Sole struct {
	// HalfLength is along the surface x axis and HalfWidth along y, in meters.
	HalfLength float64 `json:"halfLength"`
	HalfWidth  float64 `json:"halfWidth"`
	// Stiffness (N/m) and Damping (N.s/m) are for the whole sole and split evenly between samples.
	Stiffness float64 `json:"stiffness"`
	Damping   float64 `json:"damping"`
	// Samples is the number of sample points per side.
	Samples int `json:"samples"`
}

// DefaultSole is roughly a humanoid foot on a stiff floor.
var DefaultSole = Sole{
	HalfLength: 0.1,
	HalfWidth:  0.05,
	Stiffness:  1e5,
	Damping:    1e3,
	Samples:    5,
}

// Validate ensures all parts of the config are valid.
func (s *Sole) Validate(path string) error {
	var errs error
	if !(s.HalfLength > 0) || !(s.HalfWidth > 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("sole half sizes must be positive, got %v x %v", s.HalfLength, s.HalfWidth)))
	}
	if !(s.Stiffness > 0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("stiffness must be positive, got %v", s.Stiffness)))
	}
	if s.Damping < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("damping must be non-negative, got %v", s.Damping)))
	}
	if s.Samples < 2 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("samples must be at least 2, got %d", s.Samples)))
	}
	return errs
}

// points returns the sample points in the surface frame.
func (s *Sole) points() []r3.Vector {
	pts := make([]r3.Vector, 0, s.Samples*s.Samples)
	step := func(half float64, i int) float64 {
		return -half + 2*half*float64(i)/float64(s.Samples-1)
	}
	for i := 0; i < s.Samples; i++ {
		for j := 0; j < s.Samples; j++ {
			pts = append(pts, r3.Vector{X: step(s.HalfLength, i), Y: step(s.HalfWidth, j)})
		}
	}
	return pts
}

// reaction is the ground reaction on one surface.
type reaction struct {
	wrench spatialmath.Wrench
	cop    r2.Point
	copW   r3.Vector
	// penetrating is the number of sample points under the ground.
	penetrating int
}

// groundReaction computes the wrench the ground at height ground applies to the sole, in the
// surface frame. pose is surface to world and vel is the world frame velocity of the surface
// origin. Moments are reported as force x lever arm, the convention tasks.CoPWrench uses, so
// that the CoP of the reaction is tasks.CoPFromWrench of it.
func (s *Sole) groundReaction(pose spatialmath.Pose, vel spatialmath.Twist, ground float64) reaction {
	pts := s.points()
	k := s.Stiffness / float64(len(pts))
	c := s.Damping / float64(len(pts))
	worldToSurface := pose.Orientation().RotationMatrix().Transpose()
	origin := pose.Point()

	var out reaction
	for _, pt := range pts {
		pw := spatialmath.TransformPoint(pose, pt)
		depth := ground - pw.Z
		if depth <= 0 {
			continue
		}
		out.penetrating++
		pointVel := vel.Linear.Add(vel.Angular.Cross(pw.Sub(origin)))
		fz := k*depth - c*pointVel.Z
		if fz <= 0 {
			continue
		}
		f := worldToSurface.Mul(r3.Vector{Z: fz})
		out.wrench = out.wrench.Add(spatialmath.NewWrench(f, f.Cross(pt)))
	}
	if cop, ok := tasks.CoPFromWrench(out.wrench); ok && out.wrench.Force.Z > 0 {
		out.cop = cop
	}
	out.copW = spatialmath.TransformPoint(pose, r3.Vector{X: out.cop.X, Y: out.cop.Y})
	return out
}
