package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/wbcontrol/wbc/ftdc"
	"github.com/wbcontrol/wbc/logging"
)

func readRecording(c *cli.Context, logger logging.Logger) ([]ftdc.FlatDatum, error) {
	if c.NArg() != 1 {
		return nil, errors.New("expected exactly one recording file")
	}
	//nolint:gosec
	f, err := os.Open(c.Args().First())
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	data, err := ftdc.ParseWithLogger(f, logger.Sublogger("ftdc"))
	if err != nil {
		// A recording cut short by a crash still has its leading datums.
		if len(data) == 0 {
			return nil, err
		}
		logger.Warnw("recording is truncated", "datums", len(data), "error", err)
	}
	return data, nil
}

// selectMetrics keeps the names starting with one of prefixes, or all names without prefixes.
func selectMetrics(names, prefixes []string) []string {
	if len(prefixes) == 0 {
		return names
	}
	var out []string
	for _, name := range names {
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func dumpAction(c *cli.Context, logger logging.Logger) error {
	data, err := readRecording(c, logger)
	if err != nil {
		return err
	}
	return writeCSV(c.App.Writer, data, selectMetrics(ftdc.MetricNames(data), c.StringSlice(metricFlag)))
}

// writeCSV writes one row per datum with the time in seconds since the first datum. Metrics absent
// from a datum's schema are left empty.
func writeCSV(w io.Writer, data []ftdc.FlatDatum, metrics []string) error {
	out := csv.NewWriter(w)
	if err := out.Write(append([]string{"time"}, metrics...)); err != nil {
		return err
	}
	row := make([]string, len(metrics)+1)
	for idx := range data {
		row[0] = strconv.FormatFloat(elapsed(data, idx), 'f', -1, 64)
		for col, name := range metrics {
			row[col+1] = ""
			if value, ok := data[idx].Value(name); ok {
				row[col+1] = strconv.FormatFloat(value, 'g', -1, 64)
			}
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// elapsed returns the seconds between the first datum and datum idx.
func elapsed(data []ftdc.FlatDatum, idx int) float64 {
	return data[idx].ConvertedTime().Sub(data[0].ConvertedTime()).Seconds()
}
