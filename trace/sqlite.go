package trace

import (
	"os"

	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/datarecording"
	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/unit"
)

// Table names written by SQLiteSink.
const (
	SignalTable = "signals"
	ChangeTable = "value_changes"
)

// SignalRow describes one traced signal.
type SignalRow struct {
	Name  string
	Width int
}

// ChangeRow is one value change.
type ChangeRow struct {
	Time   int64
	Signal string
	Value  int64
}

// SQLiteSink records value changes into a SQLite database so that traces can
// be queried.
type SQLiteSink struct {
	lifecycle

	sampler  *sampler
	recorder *datarecording.SQLiteWriter
}

// NewSQLiteSink creates a sink for all the signals of the probe.
func NewSQLiteSink(probe unit.Probe) *SQLiteSink {
	return &SQLiteSink{
		sampler: newSampler(probe),
	}
}

// Path returns the database file. It is empty before Open.
func (s *SQLiteSink) Path() string {
	if s.recorder == nil {
		return ""
	}

	return s.recorder.Filename()
}

// Open creates the database, replacing an older one with the same name, and
// stores the signal list.
func (s *SQLiteSink) Open(dest string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if dest == "" {
		dest = defaultName()
	}

	recorder := datarecording.NewSQLiteWriter(dest)

	err := os.Remove(recorder.Filename())
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "replacing trace %s", recorder.Filename())
	}

	if err := recorder.Init(); err != nil {
		return err
	}

	recorder.CreateTable(SignalTable, SignalRow{})
	recorder.CreateTable(ChangeTable, ChangeRow{})

	for _, sig := range s.sampler.signals {
		recorder.InsertData(SignalTable, SignalRow{Name: sig.Name, Width: sig.Width})
	}

	s.recorder = recorder
	s.opened = true

	return nil
}

// RecordAll inserts one row per changed signal.
func (s *SQLiteSink) RecordAll(t timing.VTimeInStep) error {
	if err := s.checkRecord(); err != nil {
		return err
	}

	changes, err := s.sampler.sample(t)
	if err != nil {
		return err
	}

	for _, c := range changes {
		s.recorder.InsertData(ChangeTable, ChangeRow{
			Time:   int64(t),
			Signal: c.Signal.Name,
			Value:  int64(c.Value),
		})
	}

	return nil
}

// Close flushes the rows and closes the database.
func (s *SQLiteSink) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	if !s.opened {
		return nil
	}

	return s.recorder.Close()
}
