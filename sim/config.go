package sim

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/tasks"
	"github.com/wbcontrol/wbc/utils"
)

// SurfaceConfig describes one simulated surface.
type SurfaceConfig struct {
	Name   string `json:"name"`
	Body   string `json:"body"`
	Sensor bool   `json:"forceSensor"`
	// Pose is the initial surface pose in the world, identity when omitted.
	Pose *tasks.PoseConfig `json:"pose,omitempty"`
	// Sole defaults to DefaultSole.
	Sole *Sole `json:"sole,omitempty"`
}

// RobotConfig describes one simulated robot.
type RobotConfig struct {
	Name     string          `json:"name"`
	Surfaces []SurfaceConfig `json:"surfaces"`
}

// Config describes a simulated world.
type Config struct {
	// Ground is the height of the ground plane.
	Ground float64       `json:"ground"`
	Robots []RobotConfig `json:"robots"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	for i, r := range cfg.Robots {
		robotPath := fmt.Sprintf("%s.robots.%d", path, i)
		if r.Name == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(robotPath, "name"))
		}
		for j, s := range r.Surfaces {
			surfacePath := fmt.Sprintf("%s.surfaces.%d", robotPath, j)
			if s.Name == "" {
				errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(surfacePath, "name"))
			}
			if s.Body == "" {
				errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(surfacePath, "body"))
			}
			if s.Pose != nil {
				errs = multierr.Append(errs, s.Pose.Validate(surfacePath+".pose"))
			}
			if s.Sole != nil {
				errs = multierr.Append(errs, s.Sole.Validate(surfacePath+".sole"))
			}
		}
	}
	return errs
}

// NewWorldFromConfig builds the world described by cfg.
func NewWorldFromConfig(cfg Config, logger logging.Logger) (*World, error) {
	if err := cfg.Validate("world"); err != nil {
		return nil, err
	}
	robots := make([]*Robot, 0, len(cfg.Robots))
	for _, rc := range cfg.Robots {
		r := NewRobot(rc.Name)
		for _, sc := range rc.Surfaces {
			sole := DefaultSole
			if sc.Sole != nil {
				sole = *sc.Sole
			}
			pose := spatialmath.NewZeroPose()
			if sc.Pose != nil {
				pose = sc.Pose.Pose()
			}
			if err := r.AddSurface(sc.Name, sc.Body, sc.Sensor, pose, sole); err != nil {
				return nil, err
			}
		}
		robots = append(robots, r)
	}
	return NewWorld(cfg.Ground, logger, robots...), nil
}
