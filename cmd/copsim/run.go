package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/wbcontrol/wbc/control"
	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/sim"
)

// doneCheckInterval is how often a realtime run checks for completion.
const doneCheckInterval = 50 * time.Millisecond

func runAction(c *cli.Context, logger logging.Logger) error {
	s := defaultScenario()
	if path := c.String(scenarioFlag); path != "" {
		var err error
		if s, err = readScenario(path); err != nil {
			return err
		}
	}

	//nolint:gosec
	f, err := os.Create(c.String(outFlag))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var clk clock.Clock
	if c.Bool(realtimeFlag) {
		clk = clock.New()
	}
	loop, err := runScenario(c.Context, s, f, c.Duration(durationFlag), clk, logger)
	if err != nil {
		return err
	}
	return printSummary(c.App.Writer, loop)
}

// runScenario builds the world and loop of s and runs the loop for at most duration or until all
// tasks with completion criteria are done. A nil clk steps the loop back to back on a mock clock;
// otherwise the loop runs in the background on clk.
func runScenario(
	ctx context.Context,
	s scenario,
	out io.Writer,
	duration time.Duration,
	clk clock.Clock,
	logger logging.Logger,
) (*control.Loop, error) {
	world, err := sim.NewWorldFromConfig(s.World, logger.Sublogger("sim"))
	if err != nil {
		return nil, err
	}
	recorder := ftdc.NewLogger(out, logger.Sublogger("ftdc"))

	realtime := clk != nil
	var mock *clock.Mock
	if !realtime {
		mock = clock.NewMock()
		clk = mock
	}
	loop, err := control.NewLoop(ctx, logger.Sublogger("loop"), s.Loop, world, control.Options{
		Clock:    clk,
		Recorder: recorder,
	})
	if err != nil {
		return nil, err
	}

	if realtime {
		err = runRealtime(ctx, loop, clk, duration)
	} else {
		err = runStepped(ctx, loop, mock, duration)
	}
	if err != nil {
		return nil, err
	}
	if err := recorder.Flush(); err != nil {
		return nil, errors.Wrap(err, "cannot write the recording")
	}
	logger.Infow("run finished",
		"ticks", loop.Ticks(), "simulated", time.Duration(world.Time()*float64(time.Second)), "records", recorder.NumRecorded())
	return loop, nil
}

func runStepped(ctx context.Context, loop *control.Loop, mock *clock.Mock, duration time.Duration) error {
	steps := int(duration / loop.Period())
	for i := 0; i < steps && !loop.Done(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := loop.Step(ctx); err != nil {
			return err
		}
		mock.Add(loop.Period())
	}
	return nil
}

func runRealtime(ctx context.Context, loop *control.Loop, clk clock.Clock, duration time.Duration) error {
	deadline := clk.Timer(duration)
	defer deadline.Stop()
	check := clk.Ticker(doneCheckInterval)
	defer check.Stop()

	if err := loop.Start(); err != nil {
		return err
	}
	defer loop.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-check.C:
			if loop.Done() {
				return nil
			}
		}
	}
}

func printSummary(w io.Writer, loop *control.Loop) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Task", "Type", "Done", "Criteria", "Tick"})
	for _, task := range loop.Tasks() {
		status, err := loop.Status(task.Name())
		if err != nil {
			return err
		}
		if status.Done {
			t.AppendRow(table.Row{task.Name(), task.Type(), "yes", status.Criteria, status.Tick})
		} else {
			t.AppendRow(table.Row{task.Name(), task.Type(), "no", "", ""})
		}
	}
	_, err := fmt.Fprintf(w, "%s\n%d ticks at %v Hz\n", t.Render(), loop.Ticks(), loop.Frequency())
	return err
}
