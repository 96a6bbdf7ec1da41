package trace

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/unit"
)

type csvRow struct {
	time  timing.VTimeInStep
	name  string
	value uint64
}

// CSVSink stores value changes as rows of a CSV file.
type CSVSink struct {
	lifecycle

	sampler *sampler

	path       string
	file       *os.File
	writer     *bufio.Writer
	rows       []csvRow
	bufferSize int
}

// NewCSVSink creates a sink for all the signals of the probe.
func NewCSVSink(probe unit.Probe) *CSVSink {
	return &CSVSink{
		sampler:    newSampler(probe),
		bufferSize: 1000,
	}
}

// Path returns the file the sink writes to. It is empty before Open.
func (s *CSVSink) Path() string {
	return s.path
}

// Open creates the CSV file. If the file already exists, it will be
// overwritten.
func (s *CSVSink) Open(dest string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if dest == "" {
		dest = defaultName()
	}

	if !strings.HasSuffix(dest, ".csv") {
		dest += ".csv"
	}

	file, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "creating trace %s", dest)
	}

	s.path = dest
	s.file = file
	s.writer = bufio.NewWriter(file)
	s.opened = true

	fmt.Fprintf(s.writer, "Time, Signal, Value\n")
	fmt.Fprintf(os.Stderr, "Tracing signals to: %s\n", dest)

	atexit.Register(func() { _ = s.Close() })

	return nil
}

// RecordAll buffers one row per changed signal.
func (s *CSVSink) RecordAll(t timing.VTimeInStep) error {
	if err := s.checkRecord(); err != nil {
		return err
	}

	changes, err := s.sampler.sample(t)
	if err != nil {
		return err
	}

	for _, c := range changes {
		s.rows = append(s.rows, csvRow{time: t, name: c.Signal.Name, value: c.Value})
	}

	if len(s.rows) >= s.bufferSize {
		return s.flush()
	}

	return nil
}

func (s *CSVSink) flush() error {
	for _, r := range s.rows {
		fmt.Fprintf(s.writer, "%d, %s, 0x%x\n", r.time, r.name, r.value)
	}

	s.rows = nil

	return errors.Wrapf(s.writer.Flush(), "writing trace %s", s.path)
}

// Close flushes the buffered rows and closes the file.
func (s *CSVSink) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	if !s.opened {
		return nil
	}

	if err := s.flush(); err != nil {
		_ = s.file.Close()
		return err
	}

	return errors.Wrapf(s.file.Close(), "closing trace %s", s.path)
}
