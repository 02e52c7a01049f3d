package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/logging"
)

// metricStats summarizes one metric over a recording.
type metricStats struct {
	Name   string
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Last   float64
}

func statsAction(c *cli.Context, logger logging.Logger) error {
	data, err := readRecording(c, logger)
	if err != nil {
		return err
	}
	summary, err := summarize(data, selectMetrics(ftdc.MetricNames(data), c.StringSlice(metricFlag)))
	if err != nil {
		return err
	}
	return writeStats(c.App.Writer, summary)
}

// summarize computes the statistics of each metric. Metrics without samples are skipped.
func summarize(data []ftdc.FlatDatum, metrics []string) ([]metricStats, error) {
	out := make([]metricStats, 0, len(metrics))
	for _, name := range metrics {
		_, values := ftdc.Series(data, name)
		if len(values) == 0 {
			continue
		}
		s := metricStats{Name: name, Count: len(values), Last: values[len(values)-1]}
		var err error
		if s.Min, err = stats.Min(values); err != nil {
			return nil, errors.Wrapf(err, "metric %q", name)
		}
		if s.Max, err = stats.Max(values); err != nil {
			return nil, errors.Wrapf(err, "metric %q", name)
		}
		if s.Mean, err = stats.Mean(values); err != nil {
			return nil, errors.Wrapf(err, "metric %q", name)
		}
		if s.StdDev, err = stats.StandardDeviation(values); err != nil {
			return nil, errors.Wrapf(err, "metric %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func writeStats(w io.Writer, summary []metricStats) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Count", "Min", "Max", "Mean", "StdDev", "Last"})
	for _, s := range summary {
		t.AppendRow(table.Row{
			s.Name, s.Count,
			fmt.Sprintf("%.6g", s.Min), fmt.Sprintf("%.6g", s.Max),
			fmt.Sprintf("%.6g", s.Mean), fmt.Sprintf("%.6g", s.StdDev),
			fmt.Sprintf("%.6g", s.Last),
		})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
