package backend

import (
	"github.com/sarchlab/backendtb/state"
	"github.com/sarchlab/backendtb/uop"
)

// Builder can build backend models.
type Builder struct {
	mode       uop.Mode
	queueDepth int
	resetRegs  map[uint8]uint32
}

// MakeBuilder returns a Builder for a scalar-port backend.
func MakeBuilder() Builder {
	return Builder{
		mode:       uop.ModeScalarPort,
		queueDepth: DefaultQueueDepth,
	}
}

// WithMode sets the instruction interface of the backend.
func (b Builder) WithMode(mode uop.Mode) Builder {
	b.mode = mode
	return b
}

// WithQueueDepth sets how many queue-slot records may wait for issue.
func (b Builder) WithQueueDepth(depth int) Builder {
	b.queueDepth = depth
	return b
}

// WithResetValue sets the value register r takes while reset is held.
func (b Builder) WithResetValue(r uint8, value uint32) Builder {
	regs := make(map[uint8]uint32, len(b.resetRegs)+1)
	for k, v := range b.resetRegs {
		regs[k] = v
	}
	regs[r] = value

	b.resetRegs = regs

	return b
}

// Build creates a new Model.
func (b Builder) Build(name string) *Model {
	if b.queueDepth < uop.NumQueueSlots {
		panic("backend: queue depth must hold at least one full set of slots")
	}

	m := &Model{
		name:       name,
		mode:       b.mode,
		queueDepth: b.queueDepth,
		flops:      state.NewManager(),
		inputs:     make(map[string]uint64),
	}

	for _, p := range inputPorts(b.mode) {
		m.inputs[p] = 0
	}
	m.order = signalOrder(b.mode)

	initial := &Core{}
	for r, v := range b.resetRegs {
		if r >= uop.ZeroReg {
			panic("backend: reset value for a non-architectural register")
		}
		initial.Regs[r] = v
	}

	if err := m.flops.Register(coreKey, initial); err != nil {
		panic(err)
	}

	if err := m.refreshView(); err != nil {
		panic(err)
	}

	return m
}
