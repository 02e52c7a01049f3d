// Package sim is a small kinematic contact simulator. Surfaces follow the velocity their tasks
// ask for and a flat, horizontal ground pushes back with spring-damper forces sampled over a
// rectangular sole. It stands in for the solver and the robot when exercising the tasks in
// closed loop.
package sim

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/tasks"
)

// World holds the robots and the ground. It implements contact.Robots and the state source and
// actuator interfaces of a control loop.
type World struct {
	mu     sync.Mutex
	robots []*Robot
	ground float64
	time   float64
	logger logging.Logger
}

// NewWorld returns a world whose ground is the horizontal plane at height ground.
func NewWorld(ground float64, logger logging.Logger, robots ...*Robot) *World {
	w := &World{robots: robots, ground: ground, logger: logger}
	w.refresh()
	return w
}

// AddRobot adds a robot and returns its index.
func (w *World) AddRobot(r *Robot) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.robots = append(w.robots, r)
	w.refresh()
	return len(w.robots) - 1
}

// Robot returns the indexed robot.
func (w *World) Robot(index int) (contact.Robot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.robots) {
		return nil, contact.NewRobotIndexError(index, len(w.robots))
	}
	return w.robots[index], nil
}

// Len returns the number of robots.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.robots)
}

// Time returns the simulated time in seconds.
func (w *World) Time() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.time
}

// Robots returns the world itself. Its values only change in Apply and Step, which the loop calls
// between two snapshots.
func (w *World) Robots(ctx context.Context) (contact.Robots, error) {
	return w, nil
}

// Apply moves every surface driven by a task with the velocity the task asks for, then advances
// the simulation by dt. Tasks that do not drive a surface are ignored. When several tasks drive
// the same surface the last one wins.
func (w *World) Apply(ctx context.Context, dt float64, ts []tasks.MetaTask) error {
	commands := map[contact.SurfaceRef]spatialmath.Twist{}
	for _, t := range ts {
		commander, ok := t.(tasks.SurfaceCommander)
		if !ok {
			continue
		}
		commands[commander.Surface()] = commander.DesiredVelocity()
	}
	return w.Step(dt, commands)
}

// Step integrates the commanded surface velocities, expressed in the surface frames, over dt and
// recomputes the ground reactions. Surfaces without a command stay still.
func (w *World) Step(dt float64, commands map[contact.SurfaceRef]spatialmath.Twist) error {
	if !(dt > 0) {
		return errors.Errorf("simulation step needs a positive dt, got %v", dt)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range w.robots {
		for _, s := range r.surfaces {
			s.velocity = spatialmath.Twist{}
		}
	}
	for ref, vel := range commands {
		if ref.RobotIndex < 0 || ref.RobotIndex >= len(w.robots) {
			return contact.NewRobotIndexError(ref.RobotIndex, len(w.robots))
		}
		r := w.robots[ref.RobotIndex]
		s, ok := r.surfaces[ref.Surface]
		if !ok {
			return contact.NewUnknownSurfaceError(r.name, ref.Surface)
		}
		rot := s.pose.Orientation().RotationMatrix()
		s.velocity = spatialmath.Twist{Linear: rot.Mul(vel.Linear), Angular: rot.Mul(vel.Angular)}
		s.pose = spatialmath.IntegrateBody(s.pose, vel, dt)
	}
	w.time += dt
	w.refresh()
	return nil
}

// refresh recomputes every ground reaction and logs contact changes.
func (w *World) refresh() {
	for _, r := range w.robots {
		for _, name := range r.order {
			s := r.surfaces[name]
			wasTouching := s.reaction.penetrating > 0
			s.reaction = s.sole.groundReaction(s.pose, s.velocity, w.ground)
			if touching := s.reaction.penetrating > 0; touching != wasTouching && w.logger != nil {
				w.logger.Debugw("contact changed",
					"robot", r.name, "surface", name, "touching", touching, "time", w.time)
			}
		}
	}
}
