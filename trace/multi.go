package trace

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/unit"
)

// Format names a trace file format.
type Format string

// Supported formats.
const (
	FormatVCD    Format = "vcd"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
	FormatNone   Format = "none"
)

// ParseFormats parses a comma separated list such as "vcd,csv".
func ParseFormats(s string) ([]Format, error) {
	var formats []Format

	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))

		switch f {
		case FormatVCD, FormatCSV, FormatSQLite, FormatNone:
			formats = append(formats, f)
		case "":
		default:
			return nil, errors.Wrapf(ErrUnknownFormat, "%q", part)
		}
	}

	if len(formats) == 0 {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", s)
	}

	return formats, nil
}

type boundSink struct {
	sink Sink
	dest string
}

// MultiSink fans every call out to several sinks.
type MultiSink struct {
	sinks []boundSink
}

// NewMultiSink creates an empty MultiSink.
func NewMultiSink() *MultiSink {
	return &MultiSink{}
}

// Add registers a sink. A non-empty dest overrides the destination passed to
// Open for that sink.
func (m *MultiSink) Add(s Sink, dest string) *MultiSink {
	m.sinks = append(m.sinks, boundSink{sink: s, dest: dest})
	return m
}

// Len returns the number of sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Open opens all sinks. If one fails, the ones already opened are closed.
func (m *MultiSink) Open(dest string) error {
	for i, b := range m.sinks {
		d := dest
		if b.dest != "" {
			d = b.dest
		}

		if err := b.sink.Open(d); err != nil {
			for _, opened := range m.sinks[:i] {
				_ = opened.sink.Close()
			}

			return err
		}
	}

	return nil
}

// RecordAll records into every sink and stops at the first failure.
func (m *MultiSink) RecordAll(t timing.VTimeInStep) error {
	for _, b := range m.sinks {
		if err := b.sink.RecordAll(t); err != nil {
			return err
		}
	}

	return nil
}

// Close closes every sink and returns the first error.
func (m *MultiSink) Close() error {
	var first error

	for _, b := range m.sinks {
		if err := b.sink.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// NopSink discards everything.
type NopSink struct{}

// Open does nothing.
func (NopSink) Open(string) error { return nil }

// RecordAll does nothing.
func (NopSink) RecordAll(timing.VTimeInStep) error { return nil }

// Close does nothing.
func (NopSink) Close() error { return nil }

type named interface {
	Name() string
}

// NewSink builds the sinks for the requested formats. Each sink writes next
// to path, with the extension of its format. VCD files use the timescale ts
// and, when the probe has a name, that name as the top-level scope.
func NewSink(
	probe unit.Probe,
	path string,
	ts timing.Timescale,
	formats ...Format,
) Sink {
	if path == "" {
		path = DefaultVCDFile
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	multi := NewMultiSink()

	for _, f := range formats {
		switch f {
		case FormatVCD:
			dest := path
			if filepath.Ext(path) != ".vcd" {
				dest = base + ".vcd"
			}

			vcd := NewVCDSink(probe).WithTimescale(ts)
			if n, ok := probe.(named); ok && n.Name() != "" {
				vcd.WithScope(n.Name())
			}

			multi.Add(vcd, dest)
		case FormatCSV:
			multi.Add(NewCSVSink(probe), base+".csv")
		case FormatSQLite:
			multi.Add(NewSQLiteSink(probe), base)
		}
	}

	if multi.Len() == 0 {
		return NopSink{}
	}

	return multi
}
