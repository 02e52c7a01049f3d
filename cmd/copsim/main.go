// Package main is copsim, a command line tool that drives contact tasks against a simulated
// world, records their telemetry and renders the recordings.
package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/wbcontrol/wbc/logging"
)

const (
	debugFlag    = "debug"
	logFileFlag  = "log-file"
	scenarioFlag = "scenario"
	outFlag      = "out"
	durationFlag = "duration"
	realtimeFlag = "realtime"
	metricFlag   = "metric"
	dirFlag      = "dir"
	htmlFlag     = "html"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger logging.Logger
	var logFile io.Closer
	return &cli.App{
		Name:  "copsim",
		Usage: "run center of pressure tasks in simulation and inspect their recordings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  logFileFlag,
				Usage: "also write JSON logs to this file, rotated by size",
			},
		},
		Before: func(c *cli.Context) error {
			level := logging.INFO
			if c.Bool(debugFlag) {
				level = logging.DEBUG
			}
			if path := c.String(logFileFlag); path != "" {
				logger, logFile = logging.NewFileLogger("copsim", path, level)
				return nil
			}
			if level == logging.DEBUG {
				logger = logging.NewDebugLogger("copsim")
			} else {
				logger = logging.NewLogger("copsim")
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			err := logFile.Close()
			logFile = nil
			return err
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "step a scenario and record its telemetry",
				UsageText: "copsim run [--scenario <file>] [--out <file>] [--duration <duration>] [--realtime]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  scenarioFlag,
						Usage: "JSON scenario with \"world\" and \"loop\" sections, a single foot CoP task when omitted",
					},
					&cli.StringFlag{
						Name:  outFlag,
						Value: "copsim.ftdc",
						Usage: "recording output file",
					},
					&cli.DurationFlag{
						Name:  durationFlag,
						Value: 5 * time.Second,
						Usage: "simulated time after which the run stops if the tasks have not completed",
					},
					&cli.BoolFlag{
						Name:  realtimeFlag,
						Usage: "tick on the wall clock instead of as fast as possible",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:      "dump",
				Usage:     "print a recording as CSV",
				UsageText: "copsim dump [--metric <prefix>...] <file>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  metricFlag,
						Usage: "only print metrics starting with this prefix",
					},
				},
				Action: func(c *cli.Context) error {
					return dumpAction(c, logger)
				},
			},
			{
				Name:      "stats",
				Usage:     "print min, max, mean and standard deviation of each metric of a recording",
				UsageText: "copsim stats [--metric <prefix>...] <file>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  metricFlag,
						Usage: "only summarize metrics starting with this prefix",
					},
				},
				Action: func(c *cli.Context) error {
					return statsAction(c, logger)
				},
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of scenario files",
				Action: schemaAction,
			},
			{
				Name:      "plot",
				Usage:     "render one PNG per log entry of a recording, or a single HTML page",
				UsageText: "copsim plot [--dir <dir>] [--html] [--metric <prefix>...] <file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  dirFlag,
						Value: ".",
						Usage: "output directory",
					},
					&cli.BoolFlag{
						Name:  htmlFlag,
						Usage: "write interactive charts to <dir>/plots.html instead of PNGs",
					},
					&cli.StringSliceFlag{
						Name:  metricFlag,
						Usage: "only plot metrics starting with this prefix",
					},
				},
				Action: func(c *cli.Context) error {
					return plotAction(c, logger)
				},
			},
		},
	}
}
