package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// AngularVelocity contains angular velocity in rad/s across x/y/z axes.
type AngularVelocity r3.Vector

// OrientationToAngularVel calculates the constant angular velocity that produces the orientation
// change o over a time difference dt.
func OrientationToAngularVel(o Orientation, dt float64) AngularVelocity {
	rv := o.AxisAngles().ToR3()
	return AngularVelocity{X: rv.X / dt, Y: rv.Y / dt, Z: rv.Z / dt}
}

// ExpMap returns the rotation whose rotation vector (axis scaled by angle) is rv.
func ExpMap(rv r3.Vector) Orientation {
	q := quaternion(quat.Exp(quat.Number{Imag: rv.X / 2, Jmag: rv.Y / 2, Kmag: rv.Z / 2}))
	return &q
}

// LogMap returns the rotation vector of o. It is the inverse of ExpMap for angles in [0, pi].
func LogMap(o Orientation) r3.Vector {
	return o.AxisAngles().ToR3()
}
