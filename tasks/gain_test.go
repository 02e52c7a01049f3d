package tasks

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/wbcontrol/wbc/spatialmath"
)

func fullGain(t *testing.T) AdmittanceGain {
	t.Helper()
	data := make([]float64, 36)
	for i := range data {
		data[i] = float64(i + 1)
	}
	gain, err := NewAdmittanceGainFromMatrix(mat.NewDense(6, 6, data))
	test.That(t, err, test.ShouldBeNil)
	return gain
}

func TestAdmittanceGain(t *testing.T) {
	gain := NewAdmittanceGain(r3.Vector{X: 0.01, Y: 0.02, Z: 0.03}, r3.Vector{X: 0.1, Y: 0.2})
	test.That(t, gain.Force(), test.ShouldResemble, r3.Vector{X: 0.01, Y: 0.02, Z: 0.03})
	test.That(t, gain.Couple(), test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.2})
	test.That(t, gain.Diagonal(), test.ShouldResemble, []float64{0.01, 0.02, 0.03, 0.1, 0.2, 0})
	test.That(t, gain.At(0, 1), test.ShouldEqual, 0.)

	v := gain.Apply(spatialmath.NewWrench(r3.Vector{X: 100, Y: 100, Z: 100}, r3.Vector{X: 1, Y: 1, Z: 1}))
	test.That(t, v.Linear.X, test.ShouldAlmostEqual, 1.)
	test.That(t, v.Linear.Y, test.ShouldAlmostEqual, 2.)
	test.That(t, v.Linear.Z, test.ShouldAlmostEqual, 3.)
	test.That(t, v.Angular, test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.2})

	var zero AdmittanceGain
	test.That(t, zero.Apply(spatialmath.NewWrench(r3.Vector{X: 1}, r3.Vector{Y: 1})), test.ShouldResemble, spatialmath.Twist{})
	test.That(t, zero.RotationalBlockIsZero(), test.ShouldBeTrue)
	test.That(t, zero.Equal(NewAdmittanceGain(r3.Vector{}, r3.Vector{})), test.ShouldBeTrue)

	_, err := NewAdmittanceGainFromMatrix(mat.NewDense(3, 3, nil))
	test.That(t, err, test.ShouldBeError, "admittance gain must be 6x6, got 3x3")
}

func TestAdmittanceGainFullMatrix(t *testing.T) {
	gain := fullGain(t)
	// Row 0 is 1..6, so a unit moment about z contributes 6 to the x linear velocity.
	v := gain.Apply(spatialmath.NewWrench(r3.Vector{}, r3.Vector{Z: 1}))
	test.That(t, v.Linear.X, test.ShouldEqual, 6.)
	test.That(t, v.Angular.Z, test.ShouldEqual, 36.)

	m := gain.Matrix()
	m.Set(0, 0, -1)
	test.That(t, gain.At(0, 0), test.ShouldEqual, 1.)
}

func TestEffectiveGain(t *testing.T) {
	gain := fullGain(t)
	const minPressure = 1.0

	for _, normalForce := range []float64{-50, -1e-9, 0, 0.5, 0.999999} {
		effective := EffectiveGain(gain, normalForce, minPressure)
		test.That(t, effective.RotationalBlockIsZero(), test.ShouldBeTrue)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				test.That(t, effective.At(i, j), test.ShouldEqual, gain.At(i, j))
			}
		}
		// The configured gain is left alone.
		test.That(t, gain.At(5, 5), test.ShouldEqual, 36.)
	}

	for _, normalForce := range []float64{1, 1.000001, 400, 1e6} {
		effective := EffectiveGain(gain, normalForce, minPressure)
		test.That(t, effective.Equal(gain), test.ShouldBeTrue)
		test.That(t, effective.RotationalBlockIsZero(), test.ShouldBeFalse)
	}

	diag := NewAdmittanceGain(r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1})
	effective := EffectiveGain(diag, 0, 5)
	test.That(t, effective.Force(), test.ShouldResemble, diag.Force())
	test.That(t, effective.Couple(), test.ShouldResemble, r3.Vector{})
}
