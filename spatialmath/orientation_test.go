package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.AxisAngles(), test.ShouldResemble, NewR4AA())
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	rm := zero.RotationMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				test.That(t, rm.At(i, j), test.ShouldEqual, 1.)
			} else {
				test.That(t, rm.At(i, j), test.ShouldEqual, 0.)
			}
		}
	}
}

func TestQuaternions(t *testing.T) {
	qq45x := quaternion(q45x)
	test.That(t, qq45x.AxisAngles().Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, qq45x.AxisAngles().RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, qq45x.AxisAngles().RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, qq45x.AxisAngles().RZ, test.ShouldAlmostEqual, aa45x.RZ)
	test.That(t, QuaternionAlmostEqual(aa45x.Quaternion(), q45x, 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(Flip(q45x), q45x, 1e-9), test.ShouldBeTrue)
}

func TestRotationMatrixRoundTrip(t *testing.T) {
	for _, aa := range []*R4AA{
		{Theta: 0.3, RX: 1, RY: 2, RZ: 3},
		{Theta: math.Pi - 1e-3, RX: 1, RY: 0, RZ: 0},
		{Theta: math.Pi - 1e-3, RX: 0, RY: 1, RZ: 0},
		{Theta: math.Pi - 1e-3, RX: 0, RY: 0, RZ: 1},
		{Theta: 2.5, RX: -1, RY: 1, RZ: 0.5},
	} {
		q := aa.Quaternion()
		rm := QuatToRotationMatrix(q)
		test.That(t, QuaternionAlmostEqual(rm.Quaternion(), q, 1e-9), test.ShouldBeTrue)

		v := r3.Vector{X: 0.1, Y: -2, Z: 3}
		test.That(t, R3VectorAlmostEqual(rm.Mul(v), RotateVector(q, v), 1e-12), test.ShouldBeTrue)
		test.That(t, R3VectorAlmostEqual(rm.Transpose().Mul(rm.Mul(v)), v, 1e-12), test.ShouldBeTrue)
	}

	_, err := NewRotationMatrix([]float64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)
	rm, err := NewRotationMatrix([]float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rm.AxisAngles().Theta, test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, rm.AxisAngles().RZ, test.ShouldAlmostEqual, 1.)
	test.That(t, rm.Col(0), test.ShouldResemble, r3.Vector{X: 0, Y: 1, Z: 0})
	test.That(t, rm.Dense().At(0, 1), test.ShouldEqual, -1.)
}

func TestOrientationBetween(t *testing.T) {
	a := &R4AA{Theta: 0.2, RZ: 1}
	b := &R4AA{Theta: 0.5, RZ: 1}
	between := OrientationBetween(a, b)
	test.That(t, between.AxisAngles().Theta, test.ShouldAlmostEqual, 0.3)
	test.That(t, between.AxisAngles().RZ, test.ShouldAlmostEqual, 1.)
	test.That(t, OrientationAlmostEqual(OrientationInverse(a), &R4AA{Theta: -0.2, RZ: 1}), test.ShouldBeTrue)
}

func TestR3ToR4(t *testing.T) {
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())
	aa := R3ToR4(r3.Vector{X: 0, Y: 0.5, Z: 0})
	test.That(t, aa.Theta, test.ShouldAlmostEqual, 0.5)
	test.That(t, aa.RY, test.ShouldAlmostEqual, 1.)
	test.That(t, aa.ToR3().Y, test.ShouldAlmostEqual, 0.5)

	zeroAxis := &R4AA{Theta: 1}
	zeroAxis.Normalize()
	test.That(t, zeroAxis.RZ, test.ShouldEqual, 1.)
}
