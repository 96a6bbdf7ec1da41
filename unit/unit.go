// Package unit defines how the harness talks to the evaluated hardware unit.
//
// The unit is a black box. The harness pushes named values into its input
// ports, asks it to evaluate, and reads its output ports. Anything that can do
// that, a behavioural model or a test double, can be driven by the harness.
package unit

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors reported by units and adapters.
var (
	ErrUnknownPort = errors.New("unit: unknown port")
	ErrNotInput    = errors.New("unit: port is not an input")
	ErrEvalFault   = errors.New("unit: evaluation fault")
)

// EvalFault is the error of a failed evaluation. It matches ErrEvalFault with
// errors.Is, and errors.Cause returns the cause reported by the unit.
type EvalFault struct {
	Eval uint64
	Err  error
}

func (f *EvalFault) Error() string {
	return fmt.Sprintf("%v at eval #%d: %v", ErrEvalFault, f.Eval, f.Err)
}

// Cause returns the error reported by the unit.
func (f *EvalFault) Cause() error { return f.Err }

// Unwrap returns the error reported by the unit.
func (f *EvalFault) Unwrap() error { return f.Err }

// Is reports whether target is ErrEvalFault.
func (f *EvalFault) Is(target error) bool { return target == ErrEvalFault }

// IsEvalFault reports whether err comes from a failed evaluation.
func IsEvalFault(err error) bool {
	var f *EvalFault
	return errors.As(err, &f)
}

// A Unit is a stateful evaluator with named ports.
type Unit interface {
	// SetInput drives an input port. The value takes effect at the next Eval.
	SetInput(port string, value uint64) error

	// Eval settles the unit for the current input values.
	Eval() error

	// ReadOutput returns the current value of a port.
	ReadOutput(port string) (uint64, error)

	// Finished reports whether the unit has signalled completion.
	Finished() bool
}

// A Signal is one traceable wire or bus of a unit.
type Signal struct {
	Name  string
	Width int
}

// A Probe exposes every traceable signal of a unit.
type Probe interface {
	// Signals lists the signals in a stable order.
	Signals() []Signal

	// Value returns the current value of a signal.
	Value(name string) (uint64, error)
}

// Writeback is the writeback announcement sampled from the unit.
type Writeback struct {
	Valid   bool
	DestReg uint8
	Data    uint32
}
