// Package trace writes the signal activity of a unit to waveform and table
// files.
//
// A sink is opened once, records every signal at each timestamp the harness
// advances to, and is closed once. Timestamps must be strictly increasing.
package trace

import (
	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/unit"
)

// Errors reported by sinks.
var (
	ErrSinkClosed       = errors.New("trace: sink is closed")
	ErrSinkNotOpen      = errors.New("trace: sink is not open")
	ErrSinkAlreadyOpen  = errors.New("trace: sink is already open")
	ErrTimeNotIncreased = errors.New("trace: timestamp did not increase")
	ErrUnknownFormat    = errors.New("trace: unknown format")
)

// defaultName is the file name, without extension, of a CSV or SQLite trace
// opened without a destination.
func defaultName() string {
	return "backendtb_trace_" + xid.New().String()
}

// A Sink persists signal values over time.
type Sink interface {
	// Open creates the destination. An empty destination selects the sink's
	// default file name.
	Open(dest string) error

	// RecordAll samples every signal of the unit at time t.
	RecordAll(t timing.VTimeInStep) error

	// Close flushes and releases the destination. Closing a closed sink is a
	// no-op.
	Close() error
}

// A Change is a signal whose value differs from the previous record.
type Change struct {
	Signal unit.Signal
	Value  uint64
}

// sampler remembers the last recorded values and reports the differences.
type sampler struct {
	probe   unit.Probe
	signals []unit.Signal
	last    []uint64
	started bool
	lastT   timing.VTimeInStep
}

func newSampler(probe unit.Probe) *sampler {
	if probe == nil {
		panic("trace: probe is nil")
	}

	signals := probe.Signals()

	return &sampler{
		probe:   probe,
		signals: signals,
		last:    make([]uint64, len(signals)),
	}
}

// sample reads all signals. The first call returns every signal, later calls
// return only the ones that changed.
func (s *sampler) sample(t timing.VTimeInStep) ([]Change, error) {
	if s.started && t <= s.lastT {
		return nil, errors.Wrapf(ErrTimeNotIncreased,
			"time %d after %d", t, s.lastT)
	}

	var changes []Change

	for i, sig := range s.signals {
		v, err := s.probe.Value(sig.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "sampling %s", sig.Name)
		}

		v = mask(v, sig.Width)

		if s.started && v == s.last[i] {
			continue
		}

		s.last[i] = v
		changes = append(changes, Change{Signal: sig, Value: v})
	}

	s.started = true
	s.lastT = t

	return changes, nil
}

func mask(v uint64, width int) uint64 {
	if width <= 0 || width >= 64 {
		return v
	}

	return v & (uint64(1)<<uint(width) - 1)
}

// lifecycle tracks the open/closed state shared by all file sinks.
type lifecycle struct {
	opened bool
	closed bool
}

func (l *lifecycle) checkOpen() error {
	if l.opened {
		return ErrSinkAlreadyOpen
	}

	if l.closed {
		return ErrSinkClosed
	}

	return nil
}

func (l *lifecycle) checkRecord() error {
	if l.closed {
		return ErrSinkClosed
	}

	if !l.opened {
		return ErrSinkNotOpen
	}

	return nil
}
