package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/control"
	"github.com/wbcontrol/wbc/sim"
	"github.com/wbcontrol/wbc/tasks"
)

// scenario is a simulated world and the control loop that drives it.
type scenario struct {
	World sim.Config     `json:"world"`
	Loop  control.Config `json:"loop"`
}

// Validate ensures all parts of the config are valid.
func (s *scenario) Validate() error {
	return multierr.Combine(s.World.Validate("world"), s.Loop.Validate("loop"))
}

// defaultScenario drops a foot from 5mm onto the ground and shifts its CoP forward and to the
// right under 400N.
func defaultScenario() scenario {
	return scenario{
		World: sim.Config{
			Robots: []sim.RobotConfig{{
				Name: "hrp",
				Surfaces: []sim.SurfaceConfig{{
					Name:   "LeftFoot",
					Body:   "LLEG_LINK5",
					Sensor: true,
					Pose:   &tasks.PoseConfig{Translation: []float64{0, 0.1, 0.005}},
				}},
			}},
		},
		Loop: control.Config{
			Frequency: 200,
			Tasks: []config.AttributeMap{{
				"type":      "cop",
				"name":      "left_foot_cop",
				"surface":   "LeftFoot",
				"stiffness": 20.0,
				"admittance": map[string]interface{}{
					"force":  []interface{}{0.0, 0.0, 5e-5},
					"couple": []interface{}{-0.04, -0.01, 0.0},
				},
				"targetCoP":   []interface{}{0.02, -0.01},
				"targetForce": []interface{}{0.0, 0.0, 400.0},
				"completion": map[string]interface{}{
					"OR": []interface{}{
						map[string]interface{}{"copError": 0.001, "force": 20.0},
						map[string]interface{}{"timeout": 10.0},
					},
				},
			}},
		},
	}
}

// readScenario reads a scenario file. Comments and trailing commas are allowed.
func readScenario(path string) (scenario, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, err
	}
	var attrs config.AttributeMap
	if err := json5.Unmarshal(raw, &attrs); err != nil {
		return scenario{}, errors.Wrapf(err, "cannot parse %q", path)
	}
	var s scenario
	if err := attrs.Decode(&s); err != nil {
		return scenario{}, errors.Wrapf(err, "cannot decode %q", path)
	}
	if err := s.Validate(); err != nil {
		return scenario{}, err
	}
	return s, nil
}
