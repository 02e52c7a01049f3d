package contact

import (
	"github.com/pkg/errors"
)

var (
	// ErrNoForceSensor is returned when the body a task controls has no force/torque sensor.
	ErrNoForceSensor = errors.New("no force sensor attached to body")
	// ErrUnknownSurface is returned when a surface name does not exist on the robot.
	ErrUnknownSurface = errors.New("unknown surface")
	// ErrRobotIndex is returned when a robot index is out of range.
	ErrRobotIndex = errors.New("robot index out of range")
)

// NewNoForceSensorError is used when a task is built on a surface whose body cannot measure contact.
func NewNoForceSensorError(robot, body, surface string) error {
	return errors.Wrapf(ErrNoForceSensor, "robot %q body %q (surface %q)", robot, body, surface)
}

// NewUnknownSurfaceError is used when a surface name is not defined for a robot.
func NewUnknownSurfaceError(robot, surface string) error {
	return errors.Wrapf(ErrUnknownSurface, "robot %q has no surface %q", robot, surface)
}

// NewRobotIndexError is used when a robot index is outside [0, n).
func NewRobotIndexError(index, n int) error {
	return errors.Wrapf(ErrRobotIndex, "index %d, have %d robots", index, n)
}
