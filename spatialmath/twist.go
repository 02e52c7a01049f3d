package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Twist is a spatial velocity: linear velocity of the frame origin followed by angular velocity.
type Twist struct {
	Linear  r3.Vector `json:"linear"`
	Angular r3.Vector `json:"angular"`
}

// TwistFromVector builds a twist from a 6-vector laid out as [linear; angular].
func TwistFromVector(v mat.Vector) Twist {
	return Twist{
		Linear:  r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)},
		Angular: r3.Vector{X: v.AtVec(3), Y: v.AtVec(4), Z: v.AtVec(5)},
	}
}

// Vector returns the twist as a 6-vector laid out as [linear; angular].
func (t Twist) Vector() []float64 {
	return []float64{t.Linear.X, t.Linear.Y, t.Linear.Z, t.Angular.X, t.Angular.Y, t.Angular.Z}
}

// Norm is the euclidean norm of the 6-vector.
func (t Twist) Norm() float64 {
	return math.Sqrt(t.Linear.Norm2() + t.Angular.Norm2())
}

// IntegrateBody advances a pose by a twist expressed in the pose's own frame, held constant over dt.
// Translation advances linearly along the rotated linear velocity; rotation advances by the
// exponential map of the angular velocity scaled by dt.
func IntegrateBody(p Pose, t Twist, dt float64) Pose {
	q := p.Orientation().Quaternion()
	dq := ExpMap(t.Angular.Mul(dt)).Quaternion()
	return &basicPose{
		point:       p.Point().Add(RotateVector(q, t.Linear.Mul(dt))),
		orientation: Normalize(quat.Mul(q, dq)),
	}
}
