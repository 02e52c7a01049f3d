package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestConfigValidationErrors(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("tasks.0", "surface")
	test.That(t, err.Error(), test.ShouldEqual, `error validating "tasks.0": "surface" is required`)

	cause := errors.New("must be positive")
	err = NewConfigValidationError("tasks.1", cause)
	test.That(t, errors.Is(err, cause), test.ShouldBeTrue)
	test.That(t, err, test.ShouldBeError, `error validating "tasks.1": must be positive`)
}
