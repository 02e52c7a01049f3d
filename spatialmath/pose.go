package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform: the position of a frame's origin and its orientation, both
// expressed in the parent frame. For surface poses the parent frame is the world.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basicPose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewPose constructs a pose from a point and an orientation. A nil orientation means no rotation.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basicPose{point: p, orientation: Normalize(o.Quaternion())}
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return &basicPose{orientation: quat.Number{Real: 1}}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(p r3.Vector) Pose {
	return &basicPose{point: p, orientation: quat.Number{Real: 1}}
}

// NewPoseFromOrientation returns a pure rotation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

func (p *basicPose) Point() r3.Vector {
	return p.point
}

func (p *basicPose) Orientation() Orientation {
	q := quaternion(p.orientation)
	return &q
}

func (p *basicPose) String() string {
	aa := QuatToR4AA(p.orientation)
	return fmt.Sprintf("{X:%.6f Y:%.6f Z:%.6f Theta:%.6f RX:%.6f RY:%.6f RZ:%.6f}",
		p.point.X, p.point.Y, p.point.Z, aa.Theta, aa.RX, aa.RY, aa.RZ)
}

// Compose returns the transform a followed by b, expressed in a's parent frame.
func Compose(a, b Pose) Pose {
	qa := a.Orientation().Quaternion()
	return &basicPose{
		point:       a.Point().Add(RotateVector(qa, b.Point())),
		orientation: Normalize(quat.Mul(qa, b.Orientation().Quaternion())),
	}
}

// PoseInverse returns the inverse transform.
func PoseInverse(p Pose) Pose {
	qi := quat.Conj(p.Orientation().Quaternion())
	return &basicPose{
		point:       RotateVector(qi, p.Point()).Mul(-1),
		orientation: qi,
	}
}

// PoseBetween returns the transform from a to b, expressed in a's frame.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint maps a point expressed in the pose's frame into the parent frame.
func TransformPoint(p Pose, v r3.Vector) r3.Vector {
	return p.Point().Add(RotateVector(p.Orientation().Quaternion(), v))
}

// PoseDelta returns the 6D error of b relative to a, expressed in a's frame:
// the translation of PoseBetween(a, b) followed by its rotation vector.
func PoseDelta(a, b Pose) []float64 {
	between := PoseBetween(a, b)
	pt := between.Point()
	rv := between.Orientation().AxisAngles().ToR3()
	return []float64{pt.X, pt.Y, pt.Z, rv.X, rv.Y, rv.Z}
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same, within
// epsilon for both the point and the quaternion components.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) &&
		QuaternionAlmostEqual(a.Orientation().Quaternion(), b.Orientation().Quaternion(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vector objects component-wise.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	d := a.Sub(b)
	return d.X <= epsilon && d.X >= -epsilon &&
		d.Y <= epsilon && d.Y >= -epsilon &&
		d.Z <= epsilon && d.Z >= -epsilon
}
