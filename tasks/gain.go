package tasks

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/wbcontrol/wbc/spatialmath"
)

// AdmittanceGain maps a wrench error laid out as [force; moment] to a velocity correction laid out
// as [linear; angular]. A zero on an axis leaves that axis open loop. The zero value is the zero
// gain.
type AdmittanceGain struct {
	m *mat.Dense
}

// NewAdmittanceGain returns a block diagonal gain: force error drives linear velocity axis by axis,
// moment error drives angular velocity axis by axis.
func NewAdmittanceGain(force, couple r3.Vector) AdmittanceGain {
	return AdmittanceGain{m: mat.NewDense(6, 6, []float64{
		force.X, 0, 0, 0, 0, 0,
		0, force.Y, 0, 0, 0, 0,
		0, 0, force.Z, 0, 0, 0,
		0, 0, 0, couple.X, 0, 0,
		0, 0, 0, 0, couple.Y, 0,
		0, 0, 0, 0, 0, couple.Z,
	})}
}

// NewAdmittanceGainFromMatrix copies a full 6x6 gain.
func NewAdmittanceGainFromMatrix(m mat.Matrix) (AdmittanceGain, error) {
	if r, c := m.Dims(); r != 6 || c != 6 {
		return AdmittanceGain{}, errors.Errorf("admittance gain must be 6x6, got %dx%d", r, c)
	}
	return AdmittanceGain{m: mat.DenseCopyOf(m)}, nil
}

// At returns the gain from wrench component j to velocity component i.
func (g AdmittanceGain) At(i, j int) float64 {
	if g.m == nil {
		return 0
	}
	return g.m.At(i, j)
}

// Force returns the diagonal of the force to linear velocity block.
func (g AdmittanceGain) Force() r3.Vector {
	return r3.Vector{X: g.At(0, 0), Y: g.At(1, 1), Z: g.At(2, 2)}
}

// Couple returns the diagonal of the moment to angular velocity block.
func (g AdmittanceGain) Couple() r3.Vector {
	return r3.Vector{X: g.At(3, 3), Y: g.At(4, 4), Z: g.At(5, 5)}
}

// Diagonal returns the six diagonal entries, force block first.
func (g AdmittanceGain) Diagonal() []float64 {
	f, c := g.Force(), g.Couple()
	return []float64{f.X, f.Y, f.Z, c.X, c.Y, c.Z}
}

// Matrix returns a copy of the full gain.
func (g AdmittanceGain) Matrix() *mat.Dense {
	if g.m == nil {
		return mat.NewDense(6, 6, nil)
	}
	return mat.DenseCopyOf(g.m)
}

// Apply returns the velocity correction K * w.
func (g AdmittanceGain) Apply(w spatialmath.Wrench) spatialmath.Twist {
	if g.m == nil {
		return spatialmath.Twist{}
	}
	var v mat.VecDense
	v.MulVec(g.m, w.VecDense())
	return spatialmath.TwistFromVector(&v)
}

// RotationalBlockIsZero reports whether rows and columns 3 to 5 are all zero, i.e. the gain
// neither produces angular velocity nor reacts to moments.
func (g AdmittanceGain) RotationalBlockIsZero() bool {
	for i := 0; i < 6; i++ {
		for j := 3; j < 6; j++ {
			if g.At(i, j) != 0 || g.At(j, i) != 0 {
				return false
			}
		}
	}
	return true
}

// Equal reports whether both gains have the same entries.
func (g AdmittanceGain) Equal(o AdmittanceGain) bool {
	return mat.Equal(g.Matrix(), o.Matrix())
}

// EffectiveGain returns the gain to use for a cycle given the measured normal force. Below
// minPressure the CoP is undefined, so rows and columns 3 to 5 are zeroed and only force is
// tracked. At or above minPressure the gain is returned unmodified.
func EffectiveGain(gain AdmittanceGain, normalForce, minPressure float64) AdmittanceGain {
	if normalForce >= minPressure {
		return gain
	}
	m := gain.Matrix()
	for i := 0; i < 6; i++ {
		for j := 3; j < 6; j++ {
			m.Set(i, j, 0)
			m.Set(j, i, 0)
		}
	}
	return AdmittanceGain{m: m}
}
