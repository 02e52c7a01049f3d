package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/logging"
)

func plotAction(c *cli.Context, logger logging.Logger) error {
	data, err := readRecording(c, logger)
	if err != nil {
		return err
	}
	dir := c.String(dirFlag)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	metrics := selectMetrics(ftdc.MetricNames(data), c.StringSlice(metricFlag))
	if c.Bool(htmlFlag) {
		file := filepath.Join(dir, "plots.html")
		if err := writeHTMLFile(file, data, metrics); err != nil {
			return err
		}
		logger.Infow("plots written", "files", []string{file})
		return nil
	}
	files, err := plotEntries(data, metrics, dir)
	if err != nil {
		return err
	}
	logger.Infow("plots written", "files", files)
	return nil
}

// groupByEntry groups metric names by log entry, in order of first appearance.
func groupByEntry(metrics []string) ([]string, map[string][]string) {
	var entries []string
	byEntry := make(map[string][]string)
	for _, name := range metrics {
		entry := ftdc.EntryName(name)
		if _, ok := byEntry[entry]; !ok {
			entries = append(entries, entry)
		}
		byEntry[entry] = append(byEntry[entry], name)
	}
	return entries, byEntry
}

// componentName is the part of a metric name after its entry name.
func componentName(name string) string {
	return strings.TrimPrefix(name, ftdc.EntryName(name)+".")
}

// plotEntries renders the metrics of each log entry against time in <dir>/<entry>.png and returns
// the written files.
func plotEntries(data []ftdc.FlatDatum, metrics []string, dir string) ([]string, error) {
	entries, byEntry := groupByEntry(metrics)
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		p := plot.New()
		p.Title.Text = entry
		p.X.Label.Text = "time (s)"
		p.Legend.Top = true
		for i, name := range byEntry[entry] {
			if err := addSeries(p, data, name, i); err != nil {
				return files, err
			}
		}
		file := filepath.Join(dir, fileName(entry)+".png")
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return files, errors.Wrapf(err, "cannot save plot of %q", entry)
		}
		files = append(files, file)
	}
	return files, nil
}

func addSeries(p *plot.Plot, data []ftdc.FlatDatum, name string, colorIdx int) error {
	times, values := ftdc.Series(data, name)
	if len(times) == 0 {
		return nil
	}
	start := data[0].ConvertedTime()
	pts := make(plotter.XYs, len(times))
	for i := range times {
		pts[i] = plotter.XY{X: times[i].Sub(start).Seconds(), Y: values[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "cannot plot %q", name)
	}
	line.Color = plotutil.Color(colorIdx)
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(componentName(name), line)
	return nil
}

func fileName(entry string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == filepath.Separator {
			return '_'
		}
		return r
	}, entry)
}
