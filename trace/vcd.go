package trace

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/unit"
)

// DefaultVCDFile is the file a VCD sink writes when no destination is given.
const DefaultVCDFile = "backend.vcd"

// VCDSink writes a value change dump that waveform viewers can open.
type VCDSink struct {
	lifecycle

	scope     string
	timescale timing.Timescale
	sampler   *sampler
	ids       map[string]string

	path   string
	file   *os.File
	writer *bufio.Writer
}

// NewVCDSink creates a sink for all the signals of the probe.
func NewVCDSink(probe unit.Probe) *VCDSink {
	return &VCDSink{
		scope:     "backend",
		timescale: timing.DefaultTimescale,
		sampler:   newSampler(probe),
	}
}

// WithScope sets the name of the top-level scope.
func (s *VCDSink) WithScope(name string) *VCDSink {
	s.scope = name
	return s
}

// WithTimescale sets the duration of one step.
func (s *VCDSink) WithTimescale(ts timing.Timescale) *VCDSink {
	s.timescale = ts
	return s
}

// Path returns the file the sink writes to. It is empty before Open.
func (s *VCDSink) Path() string {
	return s.path
}

// Open creates the file, overwriting any previous dump, and writes the
// header.
func (s *VCDSink) Open(dest string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := s.timescale.Validate(); err != nil {
		return err
	}

	if dest == "" {
		dest = DefaultVCDFile
	}

	file, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "creating trace %s", dest)
	}

	s.path = dest
	s.file = file
	s.writer = bufio.NewWriter(file)
	s.opened = true

	fmt.Fprintf(os.Stderr, "Tracing signals to: %s\n", dest)

	s.writeHeader()

	return nil
}

func (s *VCDSink) writeHeader() {
	w := s.writer

	fmt.Fprintf(w, "$version\n\tbackendtb\n$end\n")
	fmt.Fprintf(w, "$timescale %s $end\n", s.timescale)
	fmt.Fprintf(w, "$scope module %s $end\n", s.scope)

	s.ids = make(map[string]string, len(s.sampler.signals))

	var groups []string
	members := make(map[string][]unit.Signal)

	for i, sig := range s.sampler.signals {
		s.ids[sig.Name] = identifier(i)

		group, _, nested := strings.Cut(sig.Name, ".")
		if !nested {
			s.writeVar(sig, sig.Name)
			continue
		}

		if _, seen := members[group]; !seen {
			groups = append(groups, group)
		}

		members[group] = append(members[group], sig)
	}

	for _, group := range groups {
		fmt.Fprintf(w, "$scope module %s $end\n", group)

		for _, sig := range members[group] {
			s.writeVar(sig, strings.TrimPrefix(sig.Name, group+"."))
		}

		fmt.Fprintf(w, "$upscope $end\n")
	}

	fmt.Fprintf(w, "$upscope $end\n")
	fmt.Fprintf(w, "$enddefinitions $end\n")
}

func (s *VCDSink) writeVar(sig unit.Signal, ref string) {
	if sig.Width > 1 {
		ref = fmt.Sprintf("%s [%d:0]", ref, sig.Width-1)
	}

	fmt.Fprintf(s.writer, "$var wire %d %s %s $end\n",
		sig.Width, s.ids[sig.Name], ref)
}

// RecordAll writes a timestamp followed by every value that changed since
// the previous record. The first record dumps all values.
func (s *VCDSink) RecordAll(t timing.VTimeInStep) error {
	if err := s.checkRecord(); err != nil {
		return err
	}

	first := !s.sampler.started

	changes, err := s.sampler.sample(t)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.writer, "#%d\n", t)

	if first {
		fmt.Fprintf(s.writer, "$dumpvars\n")
	}

	for _, c := range changes {
		s.writeValue(c)
	}

	if first {
		fmt.Fprintf(s.writer, "$end\n")
	}

	return nil
}

func (s *VCDSink) writeValue(c Change) {
	id := s.ids[c.Signal.Name]

	if c.Signal.Width <= 1 {
		fmt.Fprintf(s.writer, "%d%s\n", c.Value, id)
		return
	}

	fmt.Fprintf(s.writer, "b%b %s\n", c.Value, id)
}

// Close flushes the dump and closes the file.
func (s *VCDSink) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	if !s.opened {
		return nil
	}

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return errors.Wrapf(err, "flushing trace %s", s.path)
	}

	return errors.Wrapf(s.file.Close(), "closing trace %s", s.path)
}

// identifier returns the short printable code of the i-th variable.
func identifier(i int) string {
	const first, span = '!', '~' - '!' + 1

	var b []byte

	for {
		b = append(b, byte(first+i%span))

		i /= span
		if i == 0 {
			break
		}

		i--
	}

	return string(b)
}
