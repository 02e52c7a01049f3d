package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v2"
)

// scenarioSchema describes scenario files. Task entries are free-form: their keys depend on the
// task type.
func scenarioSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&scenario{})
}

func schemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(scenarioSchema(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}
