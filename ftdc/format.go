package ftdc

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/logging"
)

// epsilon is a small value for determining whether a float is 0.0.
const epsilon = 1e-12

// schemaByte marks the start of a schema document.
const schemaByte = 0x1

type schema struct {
	// fieldOrder is the flattened list of metric names, "<entry>.<component>". Diff bits and
	// values are written in this order.
	fieldOrder []string
}

// writeSchema writes down names for metrics in the form of a json array. All subsequent calls to
// `writeDatum` assume this header until the next call to `writeSchema`. The format is described
// in `doc.go`.
func writeSchema(fields []string, output io.Writer) error {
	if _, err := output.Write([]byte{schemaByte}); err != nil {
		return errors.Wrap(err, "error writing schema byte")
	}

	// `json.Encoder.Encode` appends a newline. The newline is part of the format and parsers read
	// over it.
	if err := json.NewEncoder(output).Encode(fields); err != nil {
		return errors.Wrap(err, "error writing schema")
	}
	return nil
}

// writeDatum writes the diff bits, the time and the changed values of one reading.
//
// `len(curr)` must be positive. `prev` may be empty, in which case every metric is diffed against
// zero. Otherwise `len(prev)` must equal `len(curr)`.
func writeDatum(time int64, prev, curr []float64, output io.Writer) error {
	numPts := len(curr)
	if len(prev) != 0 && numPts != len(prev) {
		return errors.Errorf("bad input sizes. prev: %v curr: %v", len(prev), len(curr))
	}

	diffs := make([]float64, numPts)
	if len(prev) == 0 {
		copy(diffs, curr)
	} else {
		for idx := range curr {
			diffs[idx] = curr[idx] - prev[idx]
		}
	}

	// One bit per metric plus the leading document identifier bit, rounded up to whole bytes.
	numBits := numPts + 1
	numBytes := 1 + ((numBits - 1) / 8)

	diffBits := make([]byte, numBytes)
	for diffIdx, diff := range diffs {
		// Bit 0 of the first byte is the document identifier, which is 0 for a metric document.
		bitIdx := diffIdx + 1
		if changed(diff) {
			diffBits[bitIdx/8] |= 1 << (bitIdx % 8)
		}
	}

	if _, err := output.Write(diffBits); err != nil {
		return errors.Wrap(err, "error writing diff bits")
	}
	if err := binary.Write(output, binary.BigEndian, time); err != nil {
		return errors.Wrap(err, "error writing time")
	}
	for idx, diff := range diffs {
		if changed(diff) {
			if err := binary.Write(output, binary.BigEndian, curr[idx]); err != nil {
				return errors.Wrap(err, "error writing values")
			}
		}
	}
	return nil
}

// changed reports whether a diff must be written. NaN never compares equal to its previous value.
func changed(diff float64) bool {
	return math.IsNaN(diff) || math.Abs(diff) > epsilon
}

// FlatDatum is one recorded cycle: a time and every metric of the schema active at that time.
// Metric names join the entry name and the component index with a dot, e.g:
//
// [ Reading{"cop_hrp_LeftFoot_target_cop.0", 0.01}, Reading{"cop_hrp_LeftFoot_target_cop.1", 0} ].
type FlatDatum struct {
	// Time is a 64 bit integer representing nanoseconds since the epoch.
	Time     int64
	Readings []Reading
}

// Reading is a "fully qualified" metric name paired with a value.
type Reading struct {
	MetricName string
	Value      float64
}

// ConvertedTime turns the `Time` int64 value in nanoseconds since the epoch into a `time.Time`
// object in the UTC timezone.
func (flatDatum *FlatDatum) ConvertedTime() time.Time {
	return time.Unix(0, flatDatum.Time).UTC()
}

// Value returns the reading for a metric name, if this datum has it.
func (flatDatum *FlatDatum) Value(metricName string) (float64, bool) {
	for _, reading := range flatDatum.Readings {
		if reading.MetricName == metricName {
			return reading.Value, true
		}
	}
	return 0, false
}

// Series collects the (time, value) points of one metric across datums. Datums recorded under a
// schema without the metric are skipped.
func Series(data []FlatDatum, metricName string) ([]time.Time, []float64) {
	var times []time.Time
	var values []float64
	for idx := range data {
		if value, ok := data[idx].Value(metricName); ok {
			times = append(times, data[idx].ConvertedTime())
			values = append(values, value)
		}
	}
	return times, values
}

// MetricNames returns every metric name seen in the data, in order of first appearance.
func MetricNames(data []FlatDatum) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, datum := range data {
		for _, reading := range datum.Readings {
			if _, ok := seen[reading.MetricName]; !ok {
				seen[reading.MetricName] = struct{}{}
				names = append(names, reading.MetricName)
			}
		}
	}
	return names
}

// EntryName returns the entry part of a fully qualified metric name.
func EntryName(metricName string) string {
	if idx := strings.LastIndex(metricName, "."); idx >= 0 {
		return metricName[:idx]
	}
	return metricName
}

// Parse reads the entire contents from `rawReader`. If an error occurs, the datums parsed up until
// the error are returned along with the error.
func Parse(rawReader io.Reader) ([]FlatDatum, error) {
	logger := logging.NewLogger("ftdc")
	logger.SetLevel(logging.ERROR)
	return ParseWithLogger(rawReader, logger)
}

// ParseWithLogger parses with a logger for output.
func ParseWithLogger(rawReader io.Reader, logger logging.Logger) ([]FlatDatum, error) {
	ret := make([]FlatDatum, 0)

	// prevValues are the values the next diff bits are applied to. They are reset when the schema
	// changes.
	var prevValues []float64

	reader := bufio.NewReader(rawReader)
	var schema *schema
	for {
		peek, err := reader.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ret, err
		}

		// A metric document always has a zero first bit, and a schema document is a full 0x01
		// byte.
		if peek[0] == schemaByte {
			//nolint:errcheck
			reader.ReadByte()

			schema, reader, err = readSchema(reader)
			if err != nil {
				return ret, err
			}
			logger.Debugw("Schema", "fields", schema.fieldOrder)
			prevValues = nil
			continue
		} else if schema == nil {
			return nil, errors.New("first byte of FTDC data must be the magic 0x1 representing a new schema")
		}

		diffedFieldsIndexes, err := readDiffBits(reader, schema)
		if err != nil {
			return ret, err
		}

		var dataTime int64
		if err = binary.Read(reader, binary.BigEndian, &dataTime); err != nil {
			return ret, errors.Wrap(err, "error reading time")
		}

		data, err := readData(reader, schema, diffedFieldsIndexes, prevValues)
		if err != nil {
			return ret, errors.Wrap(err, "error reading data")
		}
		logger.Debugw("Read data", "time", dataTime, "changed", schema.FieldNamesForIndexes(diffedFieldsIndexes))

		prevValues = data
		ret = append(ret, FlatDatum{
			Time:     dataTime,
			Readings: schema.Zip(data),
		})
	}

	return ret, nil
}

// readSchema expects to be positioned on the opening bracket of a json list of strings. It returns
// the schema and a reader positioned on the first byte of the next document.
func readSchema(reader *bufio.Reader) (*schema, *bufio.Reader, error) {
	decoder := json.NewDecoder(reader)
	var fields []string
	if err := decoder.Decode(&fields); err != nil {
		return nil, nil, errors.Wrap(err, "error reading schema")
	}

	// The decoder may have buffered bytes past the end of the json list.
	retReader := bufio.NewReader(io.MultiReader(decoder.Buffered(), reader))

	// The encoder's trailing newline is not consumed by the decoder.
	ch, err := retReader.ReadByte()
	if err != nil {
		return nil, nil, errors.Wrap(err, "error reading schema terminator")
	}
	if ch != '\n' {
		return nil, nil, errors.Errorf("schema not terminated by a newline, got %#x", ch)
	}

	return &schema{fieldOrder: fields}, retReader, nil
}

// readDiffBits returns the indexes into the schema of the metrics that changed. The first byte is
// shared with the document identifier bit, so it carries at most seven diff bits.
func readDiffBits(reader *bufio.Reader, schema *schema) ([]int, error) {
	numBits := len(schema.fieldOrder) + 1
	numBytes := 1 + ((numBits - 1) / 8)

	diffBytes := make([]byte, numBytes)
	if _, err := io.ReadFull(reader, diffBytes); err != nil {
		return nil, errors.Wrap(err, "error reading diff bits")
	}

	var ret []int
	for fieldIdx := range schema.fieldOrder {
		bitIdx := fieldIdx + 1
		if diffBytes[bitIdx/8]&(1<<(bitIdx%8)) > 0 {
			ret = append(ret, fieldIdx)
		}
	}
	return ret, nil
}

// readData returns the full set of values for a reading. Metrics without a diff bit keep their
// previous value, or zero right after a schema document.
func readData(reader *bufio.Reader, schema *schema, diffedFields []int, prevValues []float64) ([]float64, error) {
	if prevValues != nil && len(prevValues) != len(schema.fieldOrder) {
		return nil, errors.Errorf("mismatched previous values and schema size. prev: %d schema: %d",
			len(prevValues), len(schema.fieldOrder))
	}

	ret := make([]float64, len(schema.fieldOrder))
	if prevValues != nil {
		copy(ret, prevValues)
	}
	for _, fieldIdx := range diffedFields {
		if err := binary.Read(reader, binary.BigEndian, &ret[fieldIdx]); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Zip pairs up the metric names of the schema with their values.
func (schema *schema) Zip(data []float64) []Reading {
	ret := make([]Reading, len(schema.fieldOrder))
	for fieldIdx, metricName := range schema.fieldOrder {
		ret[fieldIdx] = Reading{metricName, data[fieldIdx]}
	}
	return ret
}

// FieldNamesForIndexes maps the integers to their string form as defined in the schema.
func (schema *schema) FieldNamesForIndexes(fieldIdxs []int) []string {
	ret := make([]string, len(fieldIdxs))
	for idx, fieldIdx := range fieldIdxs {
		ret[idx] = schema.fieldOrder[fieldIdx]
	}
	return ret
}
