// Package fake is an in-memory contact.Robots for tests and tools. Values are set directly and
// returned verbatim.
package fake

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/spatialmath"
)

// Surface holds everything the fake reports about one surface.
type Surface struct {
	Body     string
	Pose     spatialmath.Pose
	Velocity spatialmath.Twist
	Wrench   spatialmath.Wrench
	CoP      r2.Point
	// CoPW is derived from Pose and CoP when nil.
	CoPW *r3.Vector
}

// Robot implements a fake contact.Robot.
type Robot struct {
	RobotName    string
	Surfaces     map[string]*Surface
	ForceSensors map[string]bool
}

// NewRobot returns a robot with one surface on one sensed body, posed at the world origin.
func NewRobot(name, body, surface string) *Robot {
	return &Robot{
		RobotName:    name,
		Surfaces:     map[string]*Surface{surface: {Body: body, Pose: spatialmath.NewZeroPose()}},
		ForceSensors: map[string]bool{body: true},
	}
}

// Surface returns the named surface, creating it on an unsensed body of the same name if needed.
func (r *Robot) Surface(name string) *Surface {
	s, ok := r.Surfaces[name]
	if !ok {
		s = &Surface{Body: name, Pose: spatialmath.NewZeroPose()}
		r.Surfaces[name] = s
	}
	return s
}

// Name returns the robot name.
func (r *Robot) Name() string {
	return r.RobotName
}

// HasSurface reports whether the surface was defined.
func (r *Robot) HasSurface(surface string) bool {
	_, ok := r.Surfaces[surface]
	return ok
}

// SurfaceBody returns the body the surface is attached to.
func (r *Robot) SurfaceBody(surface string) (string, error) {
	s, ok := r.Surfaces[surface]
	if !ok {
		return "", contact.NewUnknownSurfaceError(r.RobotName, surface)
	}
	return s.Body, nil
}

// BodyHasForceSensor reports whether the body was marked as sensed.
func (r *Robot) BodyHasForceSensor(body string) bool {
	return r.ForceSensors[body]
}

// SurfacePose returns the stored pose.
func (r *Robot) SurfacePose(surface string) spatialmath.Pose {
	return r.Surface(surface).Pose
}

// SurfaceVelocity returns the stored velocity.
func (r *Robot) SurfaceVelocity(surface string) spatialmath.Twist {
	return r.Surface(surface).Velocity
}

// SurfaceWrench returns the stored wrench.
func (r *Robot) SurfaceWrench(surface string) spatialmath.Wrench {
	return r.Surface(surface).Wrench
}

// CoP returns the stored CoP.
func (r *Robot) CoP(surface string) r2.Point {
	return r.Surface(surface).CoP
}

// CoPW returns the stored world CoP, or the surface CoP mapped through the surface pose.
func (r *Robot) CoPW(surface string) r3.Vector {
	s := r.Surface(surface)
	if s.CoPW != nil {
		return *s.CoPW
	}
	return spatialmath.TransformPoint(s.Pose, r3.Vector{X: s.CoP.X, Y: s.CoP.Y})
}

// Robots implements contact.Robots over a slice.
type Robots []contact.Robot

// Robot returns the indexed robot.
func (rs Robots) Robot(index int) (contact.Robot, error) {
	if index < 0 || index >= len(rs) {
		return nil, contact.NewRobotIndexError(index, len(rs))
	}
	return rs[index], nil
}

// Len returns the number of robots.
func (rs Robots) Len() int {
	return len(rs)
}
