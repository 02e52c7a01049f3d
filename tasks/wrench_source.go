package tasks

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/wbcontrol/wbc/spatialmath"
)

// DefaultMinPressure is the normal force, in newtons, under which the CoP is considered undefined.
const DefaultMinPressure = 1.0

// WrenchSource supplies the admittance law with the wrench to track and the gain to apply, given
// the wrench measured this cycle and the configured gain.
type WrenchSource interface {
	Next(measured spatialmath.Wrench, gain AdmittanceGain) (spatialmath.Wrench, AdmittanceGain)
	Reset()
}

// directWrench tracks a wrench set by the user with the configured gain.
type directWrench struct {
	target spatialmath.Wrench
}

func (s *directWrench) Next(_ spatialmath.Wrench, gain AdmittanceGain) (spatialmath.Wrench, AdmittanceGain) {
	return s.target, gain
}

func (s *directWrench) Reset() {
	s.target = spatialmath.Wrench{}
}

// copWrench derives the wrench from a target CoP and force, and drops moment tracking while the
// contact is not pressed.
type copWrench struct {
	cop         r2.Point
	force       r3.Vector
	minPressure float64

	pressureOK bool
}

func newCoPWrench(minPressure float64) *copWrench {
	return &copWrench{minPressure: minPressure}
}

func (s *copWrench) Next(measured spatialmath.Wrench, gain AdmittanceGain) (spatialmath.Wrench, AdmittanceGain) {
	s.pressureOK = measured.Force.Z >= s.minPressure
	return CoPWrench(s.cop, s.force), EffectiveGain(gain, measured.Force.Z, s.minPressure)
}

func (s *copWrench) Reset() {
	s.cop = r2.Point{}
	s.force = r3.Vector{}
	s.pressureOK = false
}

// CoPWrench returns the surface wrench with the given force whose moment places the CoP at cop:
// moment = force x (cop.X, cop.Y, 0).
func CoPWrench(cop r2.Point, force r3.Vector) spatialmath.Wrench {
	return spatialmath.NewWrench(force, force.Cross(r3.Vector{X: cop.X, Y: cop.Y}))
}

// CoPFromWrench is the inverse of CoPWrench for a wrench with a non-zero normal force. It returns
// false when the normal force is zero.
func CoPFromWrench(w spatialmath.Wrench) (r2.Point, bool) {
	if w.Force.Z == 0 {
		return r2.Point{}, false
	}
	return r2.Point{X: w.Moment.Y / w.Force.Z, Y: -w.Moment.X / w.Force.Z}, true
}
