package unit

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/uop"
)

// An Adapter sits between the harness and a Unit. It masks values to their
// declared port widths, remembers what was last driven on each input and turns
// unit failures into wrapped errors.
type Adapter struct {
	unit   Unit
	inputs map[string]uint64
	evals  uint64
}

// NewAdapter wraps u.
func NewAdapter(u Unit) *Adapter {
	if u == nil {
		panic("unit: cannot adapt a nil unit")
	}

	return &Adapter{
		unit:   u,
		inputs: make(map[string]uint64),
	}
}

// SetInput drives one input port.
func (a *Adapter) SetInput(port string, value uint64) error {
	if w, ok := uop.PortWidth(port); ok {
		value = uop.Mask(value, w)
	}

	if err := a.unit.SetInput(port, value); err != nil {
		return errors.Wrapf(err, "set %s=0x%x", port, value)
	}

	a.inputs[port] = value

	return nil
}

// Apply drives a batch of assignments in order. It stops at the first failure.
func (a *Adapter) Apply(assignments []uop.Assignment) error {
	for _, as := range assignments {
		if err := a.SetInput(as.Port, as.Value); err != nil {
			return err
		}
	}

	return nil
}

// EvalStep evaluates the unit once.
func (a *Adapter) EvalStep() error {
	a.evals++

	if err := a.unit.Eval(); err != nil {
		return &EvalFault{Eval: a.evals, Err: err}
	}

	return nil
}

// ReadOutput reads one port of the unit.
func (a *Adapter) ReadOutput(port string) (uint64, error) {
	v, err := a.unit.ReadOutput(port)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", port)
	}

	return v, nil
}

// IsFinished reports the unit's finish flag.
func (a *Adapter) IsFinished() bool {
	return a.unit.Finished()
}

// Writeback samples the writeback announcement.
func (a *Adapter) Writeback() (Writeback, error) {
	valid, err := a.ReadOutput(uop.PortWritebackValid)
	if err != nil {
		return Writeback{}, err
	}

	dest, err := a.ReadOutput(uop.PortWritebackDest)
	if err != nil {
		return Writeback{}, err
	}

	data, err := a.ReadOutput(uop.PortWritebackData)
	if err != nil {
		return Writeback{}, err
	}

	return Writeback{
		Valid:   valid != 0,
		DestReg: uint8(dest),
		Data:    uint32(data),
	}, nil
}

// Input returns the value last driven on a port by this adapter.
func (a *Adapter) Input(port string) (uint64, bool) {
	v, ok := a.inputs[port]
	return v, ok
}

// Evals returns how many times the unit has been evaluated.
func (a *Adapter) Evals() uint64 {
	return a.evals
}
