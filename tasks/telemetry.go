package tasks

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/wbcontrol/wbc/spatialmath"
)

// poseValues flattens a pose as translation followed by rotation vector.
func poseValues(p spatialmath.Pose) []float64 {
	if p == nil {
		return make([]float64, 6)
	}
	pt := p.Point()
	rv := spatialmath.LogMap(p.Orientation())
	return []float64{pt.X, pt.Y, pt.Z, rv.X, rv.Y, rv.Z}
}

func r3Values(v r3.Vector) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

func r2Values(p r2.Point) []float64 {
	return []float64{p.X, p.Y}
}

func boolValue(b bool) []float64 {
	if b {
		return []float64{1}
	}
	return []float64{0}
}

func valuesToR3(v []float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func valuesToR2(v []float64) r2.Point {
	return r2.Point{X: v[0], Y: v[1]}
}

var (
	xyzLabels    = []string{"x", "y", "z"}
	xyLabels     = []string{"x", "y"}
	wrenchLabels = []string{"fx", "fy", "fz", "cx", "cy", "cz"}
	poseLabels   = []string{"x", "y", "z", "rx", "ry", "rz"}
)
