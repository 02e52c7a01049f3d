package tasks

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/wbcontrol/wbc/spatialmath"
)

func TestCoPWrench(t *testing.T) {
	w := CoPWrench(r2.Point{X: 0.05}, r3.Vector{Z: 100})
	test.That(t, w.Force, test.ShouldResemble, r3.Vector{Z: 100})
	test.That(t, w.Moment, test.ShouldResemble, r3.Vector{Y: 5})

	w = CoPWrench(r2.Point{Y: 0.02}, r3.Vector{Z: 100})
	test.That(t, w.Moment, test.ShouldResemble, r3.Vector{X: -2})

	w = CoPWrench(r2.Point{X: 0.3, Y: -0.7}, r3.Vector{})
	test.That(t, w.IsZero(), test.ShouldBeTrue)

	cop, ok := CoPFromWrench(CoPWrench(r2.Point{X: 0.03, Y: -0.01}, r3.Vector{Z: 250}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cop.X, test.ShouldAlmostEqual, 0.03)
	test.That(t, cop.Y, test.ShouldAlmostEqual, -0.01)

	_, ok = CoPFromWrench(spatialmath.Wrench{})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestWrenchSources(t *testing.T) {
	gain := NewAdmittanceGain(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 1, Y: 1, Z: 1})

	direct := &directWrench{target: spatialmath.NewWrench(r3.Vector{Z: 10}, r3.Vector{})}
	target, effective := direct.Next(spatialmath.Wrench{}, gain)
	test.That(t, target, test.ShouldResemble, direct.target)
	test.That(t, effective.Equal(gain), test.ShouldBeTrue)
	direct.Reset()
	test.That(t, direct.target.IsZero(), test.ShouldBeTrue)

	cop := newCoPWrench(DefaultMinPressure)
	cop.cop = r2.Point{X: 0.05}
	cop.force = r3.Vector{Z: 100}

	target, effective = cop.Next(spatialmath.NewWrench(r3.Vector{Z: 0.5}, r3.Vector{}), gain)
	test.That(t, cop.pressureOK, test.ShouldBeFalse)
	test.That(t, effective.RotationalBlockIsZero(), test.ShouldBeTrue)
	test.That(t, target.Moment, test.ShouldResemble, r3.Vector{Y: 5})

	_, effective = cop.Next(spatialmath.NewWrench(r3.Vector{Z: 1}, r3.Vector{}), gain)
	test.That(t, cop.pressureOK, test.ShouldBeTrue)
	test.That(t, effective.Equal(gain), test.ShouldBeTrue)

	cop.Reset()
	test.That(t, cop.cop, test.ShouldResemble, r2.Point{})
	test.That(t, cop.force, test.ShouldResemble, r3.Vector{})
	test.That(t, cop.minPressure, test.ShouldEqual, DefaultMinPressure)
}
