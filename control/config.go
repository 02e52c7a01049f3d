package control

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/utils"
)

// MaxFrequency is the fastest loop rate accepted, in Hz.
const MaxFrequency = 1000.0

// Config describes a control loop and the tasks it starts with.
type Config struct {
	// Frequency is the loop rate in Hz.
	Frequency float64 `json:"frequency"`
	// Tasks are decoded with tasks.Load, in order. A "completion" attribute is optional.
	Tasks []config.AttributeMap `json:"tasks,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if !(cfg.Frequency > 0) || cfg.Frequency > MaxFrequency {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("frequency must be in (0, %v] Hz, got %v", MaxFrequency, cfg.Frequency)))
	}
	for idx, task := range cfg.Tasks {
		for _, key := range []string{"type", "name"} {
			if _, err := task.TryString(key); err != nil {
				errs = multierr.Append(errs, utils.NewConfigValidationError(taskPath(path, idx), err))
			}
		}
		if typ, err := task.TryString("type"); err == nil && typ == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(
				taskPath(path, idx), "type"))
		}
	}
	return errs
}

// Period returns the loop period.
func (cfg Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / cfg.Frequency)
}

// Dt returns the loop period in seconds, as tasks expect it.
func (cfg Config) Dt() float64 {
	return 1 / cfg.Frequency
}

func taskPath(path string, idx int) string {
	if path == "" {
		return fmt.Sprintf("tasks.%d", idx)
	}
	return fmt.Sprintf("%s.tasks.%d", path, idx)
}
