package harness

import (
	"github.com/sarchlab/backendtb/hooking"
	"github.com/sarchlab/backendtb/timing"
	"github.com/sarchlab/backendtb/trace"
	"github.com/sarchlab/backendtb/unit"
	"github.com/sarchlab/backendtb/uop"
)

// Builder can build harnesses.
type Builder struct {
	unit       unit.Unit
	encoder    uop.Encoder
	sink       trace.Sink
	traceDest  string
	resetWidth int
	budget     int
	program    []uop.Entry
	hooks      []hooking.Hook
}

// MakeBuilder creates a Builder with the scalar-port defaults: a 4 step reset,
// a 100 step budget, no trace and an empty program.
func MakeBuilder() Builder {
	return Builder{
		sink:       trace.NopSink{},
		resetWidth: 4,
		budget:     100,
	}
}

// WithUnit sets the unit to drive.
func (b Builder) WithUnit(u unit.Unit) Builder {
	b.unit = u
	return b
}

// WithEncoder sets the instruction encoder.
func (b Builder) WithEncoder(e uop.Encoder) Builder {
	b.encoder = e
	return b
}

// WithSink sets the trace sink and the destination it is opened with.
func (b Builder) WithSink(s trace.Sink, dest string) Builder {
	b.sink = s
	b.traceDest = dest

	return b
}

// WithResetWidth sets the number of steps the reset line is held.
func (b Builder) WithResetWidth(steps int) Builder {
	b.resetWidth = steps
	return b
}

// WithBudget sets the maximum number of run loop steps.
func (b Builder) WithBudget(steps int) Builder {
	b.budget = steps
	return b
}

// WithProgram sets the drive program.
func (b Builder) WithProgram(entries ...uop.Entry) Builder {
	b.program = append([]uop.Entry(nil), entries...)
	return b
}

// WithHook registers a hook on the built harness.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), h)
	return b
}

// Build creates a harness. It panics if no unit is given.
func (b Builder) Build(name string) *Harness {
	if b.unit == nil {
		panic("harness: a unit is required")
	}

	encoder := b.encoder
	if encoder == nil {
		var err error

		encoder, err = uop.NewEncoder(uop.ModeScalarPort, uop.DefaultSettleLatency)
		if err != nil {
			panic(err)
		}
	}

	sink := b.sink
	if sink == nil {
		sink = trace.NopSink{}
	}

	h := &Harness{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		clock:        timing.NewClock(),
		adapter:      unit.NewAdapter(b.unit),
		encoder:      encoder,
		sink:         sink,
		traceDest:    b.traceDest,
		resetWidth:   b.resetWidth,
		budget:       b.budget,
		program:      b.program,
	}

	for _, hook := range b.hooks {
		h.AcceptHook(hook)
	}

	return h
}
