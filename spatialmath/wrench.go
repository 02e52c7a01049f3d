package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Wrench is a force and a moment acting at the origin of the frame they are expressed in.
// As a 6-vector it is laid out as [force; moment].
type Wrench struct {
	Force  r3.Vector `json:"force"`
	Moment r3.Vector `json:"moment"`
}

// NewWrench returns the wrench made of the given force and moment.
func NewWrench(force, moment r3.Vector) Wrench {
	return Wrench{Force: force, Moment: moment}
}

// WrenchFromVector builds a wrench from a 6-vector laid out as [force; moment].
func WrenchFromVector(v mat.Vector) Wrench {
	return Wrench{
		Force:  r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)},
		Moment: r3.Vector{X: v.AtVec(3), Y: v.AtVec(4), Z: v.AtVec(5)},
	}
}

// Vector returns the wrench as a 6-vector laid out as [force; moment].
func (w Wrench) Vector() []float64 {
	return []float64{w.Force.X, w.Force.Y, w.Force.Z, w.Moment.X, w.Moment.Y, w.Moment.Z}
}

// VecDense returns the wrench as a gonum vector.
func (w Wrench) VecDense() *mat.VecDense {
	return mat.NewVecDense(6, w.Vector())
}

// Add returns w + o.
func (w Wrench) Add(o Wrench) Wrench {
	return Wrench{Force: w.Force.Add(o.Force), Moment: w.Moment.Add(o.Moment)}
}

// Sub returns w - o.
func (w Wrench) Sub(o Wrench) Wrench {
	return Wrench{Force: w.Force.Sub(o.Force), Moment: w.Moment.Sub(o.Moment)}
}

// Norm is the euclidean norm of the 6-vector.
func (w Wrench) Norm() float64 {
	return math.Sqrt(w.Force.Norm2() + w.Moment.Norm2())
}

// IsZero reports whether every component is exactly zero.
func (w Wrench) IsZero() bool {
	return w == Wrench{}
}

// WrenchAlmostEqual compares two wrenches component-wise.
func WrenchAlmostEqual(a, b Wrench, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Force, b.Force, epsilon) && R3VectorAlmostEqual(a.Moment, b.Moment, epsilon)
}
