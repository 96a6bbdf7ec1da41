// Package uop describes the micro-operations a harness injects into the
// backend and turns them into port assignments.
//
// Two instruction interfaces exist across backend variants. The queue-slot
// interface presents up to NumQueueSlots positional records per cycle. The
// scalar-port interface presents one instruction per issue cycle on a flat set
// of ports. An Encoder hides the difference from the sequencer.
package uop

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Opcode identifies the operation of a micro-op.
type Opcode uint8

// Opcodes understood by the backend.
const (
	OpNOP Opcode = 0x00
	OpADD Opcode = 0x10
	OpSUB Opcode = 0x11
	OpAND Opcode = 0x12
	OpORR Opcode = 0x13
	OpEOR Opcode = 0x14
	OpLSL Opcode = 0x15
	OpLSR Opcode = 0x16
	OpMVZ Opcode = 0x20
	OpHLT Opcode = 0x3f
)

var opcodeNames = map[Opcode]string{
	OpNOP: "NOP",
	OpADD: "ADD",
	OpSUB: "SUB",
	OpAND: "AND",
	OpORR: "ORR",
	OpEOR: "EOR",
	OpLSL: "LSL",
	OpLSR: "LSR",
	OpMVZ: "MVZ",
	OpHLT: "HLT",
}

// ErrUnknownOpcode is returned when a mnemonic does not name an opcode.
var ErrUnknownOpcode = errors.New("uop: unknown opcode")

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}

	return fmt.Sprintf("OP_%02X", uint8(o))
}

// WritesRegister reports whether the operation produces a register result.
func (o Opcode) WritesRegister() bool {
	switch o {
	case OpNOP, OpHLT:
		return false
	}

	_, known := opcodeNames[o]

	return known
}

// ParseOpcode converts a mnemonic such as "add" or "MVZ" to an Opcode.
func ParseOpcode(s string) (Opcode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for op, n := range opcodeNames {
		if n == name {
			return op, nil
		}
	}

	return OpNOP, errors.Wrapf(ErrUnknownOpcode, "%q", s)
}
