package ftdc

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/wbcontrol/wbc/logging"
)

// Provider returns the current values of a log entry. It is called once per Record. The number of
// values may change between calls, which starts a new schema.
type Provider func() []float64

type entry struct {
	name     string
	source   any
	provider Provider
}

// Logger records named telemetry entries once per control cycle. Entries are added and removed by
// their owners at runtime; every change of the entry set is written out as a new schema document.
type Logger struct {
	mu      sync.Mutex
	entries []entry
	out     *bufio.Writer
	logger  logging.Logger

	// fields and widths describe the last schema written. dirty is set when the entry set changes.
	fields []string
	widths []int
	dirty  bool
	prev   []float64

	numRecorded int
}

// NewLogger returns a Logger writing to w. Output is buffered until Flush.
func NewLogger(w io.Writer, logger logging.Logger) *Logger {
	return &Logger{
		out:    bufio.NewWriter(w),
		logger: logger,
		dirty:  true,
	}
}

// AddLogEntry registers a provider under name. source identifies the owner for RemoveLogEntries
// and is usually a pointer to it. Adding a name that is already registered is logged and ignored.
func (l *Logger) AddLogEntry(name string, source any, provider Provider) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexOf(name) >= 0 {
		l.logger.Warnw("log entry already exists, ignoring", "name", name)
		return
	}
	l.entries = append(l.entries, entry{name: name, source: source, provider: provider})
	l.dirty = true
}

// RemoveLogEntry removes the entry registered under name, if any.
func (l *Logger) RemoveLogEntry(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx := l.indexOf(name); idx >= 0 {
		l.entries = slices.Delete(l.entries, idx, idx+1)
		l.dirty = true
	}
}

// RemoveLogEntries removes every entry added with the given source.
func (l *Logger) RemoveLogEntries(source any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.entries)
	l.entries = slices.DeleteFunc(l.entries, func(e entry) bool {
		return e.source == source
	})
	if len(l.entries) != before {
		l.dirty = true
	}
}

// HasEntry reports whether name is registered.
func (l *Logger) HasEntry(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexOf(name) >= 0
}

// Entries returns the registered entry names in registration order.
func (l *Logger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, len(l.entries))
	for idx, e := range l.entries {
		names[idx] = e.name
	}
	return names
}

// NumRecorded returns how many datums have been written.
func (l *Logger) NumRecorded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numRecorded
}

func (l *Logger) indexOf(name string) int {
	return slices.IndexFunc(l.entries, func(e entry) bool {
		return e.name == name
	})
}

// Record evaluates every provider and writes one datum stamped with t. A cycle with no values is
// not written.
func (l *Logger) Record(t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	widths := make([]int, len(l.entries))
	values := make([]float64, 0, len(l.prev))
	for idx, e := range l.entries {
		vals := e.provider()
		widths[idx] = len(vals)
		values = append(values, vals...)
	}
	if len(values) == 0 {
		return nil
	}

	if l.dirty || !slices.Equal(widths, l.widths) {
		fields := make([]string, 0, len(values))
		for idx, e := range l.entries {
			for component := 0; component < widths[idx]; component++ {
				fields = append(fields, fmt.Sprintf("%s.%d", e.name, component))
			}
		}
		if !slices.Equal(fields, l.fields) {
			if err := writeSchema(fields, l.out); err != nil {
				return err
			}
			l.fields = fields
			l.prev = nil
		}
		l.widths = widths
		l.dirty = false
	}

	if err := writeDatum(t.UnixNano(), l.prev, values, l.out); err != nil {
		return err
	}
	l.prev = values
	l.numRecorded++
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Flush()
}
