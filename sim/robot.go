package sim

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/spatialmath"
)

// surface is one simulated contact surface. It is kinematic: its pose follows the commanded
// velocity exactly and the ground reaction is computed from the resulting pose.
type surface struct {
	name   string
	body   string
	sensor bool
	sole   Sole
	pose   spatialmath.Pose
	// velocity is in the world frame.
	velocity spatialmath.Twist
	reaction reaction
}

// Robot is a simulated robot made of independent contact surfaces.
type Robot struct {
	name     string
	surfaces map[string]*surface
	// order keeps the surfaces in insertion order for deterministic stepping.
	order []string
}

// NewRobot returns a robot without surfaces.
func NewRobot(name string) *Robot {
	return &Robot{name: name, surfaces: map[string]*surface{}}
}

// AddSurface adds a surface on body at pose. sensor tells whether the body carries a force
// sensor. The ground reaction of a new surface is computed when the robot joins a world, or at the
// next step.
func (r *Robot) AddSurface(name, body string, sensor bool, pose spatialmath.Pose, sole Sole) error {
	if _, ok := r.surfaces[name]; ok {
		return errors.Errorf("robot %q already has a surface %q", r.name, name)
	}
	if err := sole.Validate(name); err != nil {
		return err
	}
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	r.surfaces[name] = &surface{name: name, body: body, sensor: sensor, sole: sole, pose: pose}
	r.order = append(r.order, name)
	return nil
}

// SetSurfacePose teleports a surface. Its velocity is zeroed.
func (r *Robot) SetSurfacePose(name string, pose spatialmath.Pose) error {
	s, ok := r.surfaces[name]
	if !ok {
		return contact.NewUnknownSurfaceError(r.name, name)
	}
	s.pose = pose
	s.velocity = spatialmath.Twist{}
	return nil
}

func (r *Robot) surface(name string) *surface {
	s, ok := r.surfaces[name]
	if !ok {
		return &surface{pose: spatialmath.NewZeroPose()}
	}
	return s
}

// Name returns the robot name.
func (r *Robot) Name() string {
	return r.name
}

// HasSurface reports whether the surface exists.
func (r *Robot) HasSurface(name string) bool {
	_, ok := r.surfaces[name]
	return ok
}

// SurfaceBody returns the body of the surface.
func (r *Robot) SurfaceBody(name string) (string, error) {
	s, ok := r.surfaces[name]
	if !ok {
		return "", contact.NewUnknownSurfaceError(r.name, name)
	}
	return s.body, nil
}

// BodyHasForceSensor reports whether any surface on the body was declared with a sensor.
func (r *Robot) BodyHasForceSensor(body string) bool {
	for _, s := range r.surfaces {
		if s.body == body && s.sensor {
			return true
		}
	}
	return false
}

// SurfacePose returns the surface pose in the world.
func (r *Robot) SurfacePose(name string) spatialmath.Pose {
	return r.surface(name).pose
}

// SurfaceVelocity returns the surface velocity in the world frame.
func (r *Robot) SurfaceVelocity(name string) spatialmath.Twist {
	return r.surface(name).velocity
}

// SurfaceWrench returns the ground reaction in the surface frame.
func (r *Robot) SurfaceWrench(name string) spatialmath.Wrench {
	return r.surface(name).reaction.wrench
}

// CoP returns the CoP of the ground reaction in the surface frame.
func (r *Robot) CoP(name string) r2.Point {
	return r.surface(name).reaction.cop
}

// CoPW returns the CoP of the ground reaction in the world frame.
func (r *Robot) CoPW(name string) r3.Vector {
	return r.surface(name).reaction.copW
}
