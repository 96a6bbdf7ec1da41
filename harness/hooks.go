package harness

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sarchlab/backendtb/datarecording"
	"github.com/sarchlab/backendtb/hooking"
)

// WritebackPrinter prints every valid writeback.
type WritebackPrinter struct {
	out io.Writer
}

// NewWritebackPrinter creates a printer that writes to out. A nil out prints
// to the standard output.
func NewWritebackPrinter(out io.Writer) *WritebackPrinter {
	if out == nil {
		out = os.Stdout
	}

	return &WritebackPrinter{out: out}
}

// Func prints "ALU wrote back: <hex>".
func (p *WritebackPrinter) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosWriteback {
		return
	}

	o := ctx.Item.(Observation)
	fmt.Fprintf(p.out, "ALU wrote back: %x\n", o.Data)
}

// WritebackCollector keeps every valid writeback. It can be read while the
// harness runs.
type WritebackCollector struct {
	lock         sync.Mutex
	observations []Observation
}

// Func stores the observation.
func (c *WritebackCollector) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosWriteback {
		return
	}

	c.lock.Lock()
	c.observations = append(c.observations, ctx.Item.(Observation))
	c.lock.Unlock()
}

// Observations returns a copy of the collected observations.
func (c *WritebackCollector) Observations() []Observation {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make([]Observation, len(c.observations))
	copy(out, c.observations)

	return out
}

// Last returns the most recent observation for a register.
func (c *WritebackCollector) Last(reg uint8) (Observation, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := len(c.observations) - 1; i >= 0; i-- {
		if c.observations[i].DestReg == reg {
			return c.observations[i], true
		}
	}

	return Observation{}, false
}

// Table names written by ObservationRecorder.
const (
	WritebackTable = "writebacks"
	PhaseTable     = "phases"
)

type writebackRow struct {
	Time    int64
	Cycle   int64
	Phase   string
	DestReg int
	Data    int64
}

type phaseRow struct {
	Time     int64
	Phase    string
	Previous string
}

// ObservationRecorder stores writebacks and phase changes in a data recorder.
type ObservationRecorder struct {
	recorder datarecording.DataRecorder
}

// NewObservationRecorder creates the tables it needs in r.
func NewObservationRecorder(r datarecording.DataRecorder) *ObservationRecorder {
	r.CreateTable(WritebackTable, writebackRow{})
	r.CreateTable(PhaseTable, phaseRow{})

	return &ObservationRecorder{recorder: r}
}

// Func records writebacks and phase changes.
func (r *ObservationRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosWriteback:
		o := ctx.Item.(Observation)
		r.recorder.InsertData(WritebackTable, writebackRow{
			Time:    int64(o.Time),
			Cycle:   int64(o.Cycle),
			Phase:   o.Phase.String(),
			DestReg: int(o.DestReg),
			Data:    int64(o.Data),
		})
	case HookPosPhaseChange:
		h := ctx.Domain.(*Harness)
		r.recorder.InsertData(PhaseTable, phaseRow{
			Time:     int64(h.CurrentTime()),
			Phase:    ctx.Item.(Phase).String(),
			Previous: ctx.Detail.(Phase).String(),
		})

		if ctx.Item.(Phase) == PhaseDone {
			r.recorder.Flush()
		}
	}
}
