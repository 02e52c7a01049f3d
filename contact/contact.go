// Package contact defines the read-only view of the robot model and its contact sensors that tasks
// query every control cycle. The view is owned by the caller and handed to each Reset and Update;
// tasks never hold on to it between calls.
package contact

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/wbcontrol/wbc/spatialmath"
)

// Robot is one robot of the controller's robot set as of the current cycle.
type Robot interface {
	Name() string

	HasSurface(surface string) bool
	// SurfaceBody returns the name of the body the surface is attached to.
	SurfaceBody(surface string) (string, error)
	// BodyHasForceSensor reports whether a force/torque sensor measures the wrench on the body.
	BodyHasForceSensor(body string) bool

	// SurfacePose is the transform from the surface frame to the world frame.
	SurfacePose(surface string) spatialmath.Pose
	// SurfaceVelocity is the velocity of the surface frame, expressed in the world frame.
	SurfaceVelocity(surface string) spatialmath.Twist
	// SurfaceWrench is the measured contact wrench expressed in the surface frame.
	SurfaceWrench(surface string) spatialmath.Wrench
	// CoP is the measured center of pressure in the surface frame.
	CoP(surface string) r2.Point
	// CoPW is the measured center of pressure in the world frame.
	CoPW(surface string) r3.Vector
}

// Robots is the set of robots known to the controller, indexed from 0.
type Robots interface {
	Robot(index int) (Robot, error)
	Len() int
}

// SurfaceRef identifies the controlled robot, body and named surface frame.
type SurfaceRef struct {
	RobotIndex int
	RobotName  string
	Body       string
	Surface    string
}

// LookupSurface resolves a surface on the indexed robot.
func LookupSurface(robots Robots, robotIndex int, surface string) (SurfaceRef, error) {
	robot, err := robots.Robot(robotIndex)
	if err != nil {
		return SurfaceRef{}, err
	}
	if !robot.HasSurface(surface) {
		return SurfaceRef{}, NewUnknownSurfaceError(robot.Name(), surface)
	}
	body, err := robot.SurfaceBody(surface)
	if err != nil {
		return SurfaceRef{}, err
	}
	return SurfaceRef{RobotIndex: robotIndex, RobotName: robot.Name(), Body: body, Surface: surface}, nil
}

// NewSurfaceRef resolves a surface like LookupSurface and also checks that its body carries a
// force sensor.
func NewSurfaceRef(robots Robots, robotIndex int, surface string) (SurfaceRef, error) {
	ref, err := LookupSurface(robots, robotIndex, surface)
	if err != nil {
		return SurfaceRef{}, err
	}
	robot, err := robots.Robot(robotIndex)
	if err != nil {
		return SurfaceRef{}, err
	}
	if !robot.BodyHasForceSensor(ref.Body) {
		return SurfaceRef{}, NewNoForceSensorError(ref.RobotName, ref.Body, surface)
	}
	return ref, nil
}

// Resolve returns the robot the surface belongs to in this cycle's robot set.
func (s SurfaceRef) Resolve(robots Robots) (Robot, error) {
	return robots.Robot(s.RobotIndex)
}

func (s SurfaceRef) String() string {
	return fmt.Sprintf("%s/%s", s.RobotName, s.Surface)
}
