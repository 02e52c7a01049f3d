// Package tasks implements the control objectives a whole-body controller blends every cycle:
// surface pose tracking, wrench admittance and CoP admittance, plus their completion criteria and
// a config-driven loader.
//
// Tasks are single threaded. The controller calls Update once per cycle with the robot snapshot of
// that cycle; tasks keep no reference to it between calls.
package tasks

import (
	"fmt"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/gui"
	"github.com/wbcontrol/wbc/spatialmath"
)

// MetaTask is the lifecycle every task exposes to the controller.
type MetaTask interface {
	Name() string
	SetName(name string)
	Type() string

	// Reset resynchronises targets with the current robot state and clears internal memory.
	Reset(robots contact.Robots) error
	// Update runs one control cycle.
	Update(robots contact.Robots) error

	// AddToLogger and RemoveFromLogger publish and retract telemetry entries named after the task.
	AddToLogger(logger *ftdc.Logger)
	RemoveFromLogger(logger *ftdc.Logger)
	// AddToGUI and RemoveFromGUI publish and retract the task's GUI category.
	AddToGUI(sb *gui.StateBuilder)
	RemoveFromGUI(sb *gui.StateBuilder)

	BuildCompletionCriteria(dt float64, cfg config.AttributeMap) (CompletionCriteria, error)

	// Eval is the norm of the task error as of the last Update.
	Eval() float64
	// Speed is the norm of the controlled frame's velocity as of the last Update.
	Speed() float64
}

// SurfaceCommander is implemented by tasks that drive a surface frame. A solver, or a simulator
// standing in for one, moves the surface with DesiredVelocity.
type SurfaceCommander interface {
	Surface() contact.SurfaceRef
	// DesiredVelocity is the surface velocity, in the surface frame, that the task asks for.
	DesiredVelocity() spatialmath.Twist
}

func defaultName(typ string, ref contact.SurfaceRef) string {
	return fmt.Sprintf("%s_%s_%s", typ, ref.RobotName, ref.Surface)
}

func guiCategory(name string) []string {
	return []string{"Tasks", name}
}

// publication remembers where a task published its telemetry and GUI elements, so that a rename
// moves them instead of leaving entries under the old name.
type publication struct {
	logger *ftdc.Logger
	gui    *gui.StateBuilder
}

// rename retracts task from where it is published, calls setName and publishes it again.
func (p publication) rename(task MetaTask, setName func()) {
	if p.logger != nil {
		task.RemoveFromLogger(p.logger)
	}
	if p.gui != nil {
		task.RemoveFromGUI(p.gui)
	}
	setName()
	if p.logger != nil {
		task.AddToLogger(p.logger)
	}
	if p.gui != nil {
		task.AddToGUI(p.gui)
	}
}
