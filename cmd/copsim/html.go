package main

import (
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/wbcontrol/wbc/ftdc"
)

func writeHTMLFile(path string, data []ftdc.FlatDatum, metrics []string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return writeHTML(f, data, metrics)
}

// writeHTML renders one interactive line chart per log entry on a single page.
func writeHTML(w io.Writer, data []ftdc.FlatDatum, metrics []string) error {
	page := components.NewPage()
	page.PageTitle = "copsim"
	if len(data) == 0 {
		return page.Render(w)
	}
	start := data[0].ConvertedTime()
	entries, byEntry := groupByEntry(metrics)
	for _, entry := range entries {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: entry}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
			charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "time (s)", NameLocation: "middle", NameGap: 25}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
		)
		for _, name := range byEntry[entry] {
			times, values := ftdc.Series(data, name)
			points := make([]opts.LineData, len(times))
			for i := range times {
				points[i] = opts.LineData{Value: []interface{}{times[i].Sub(start).Seconds(), values[i]}}
			}
			line.AddSeries(componentName(name), points)
		}
		page.AddCharts(line)
	}
	return page.Render(w)
}
