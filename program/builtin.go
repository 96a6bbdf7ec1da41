package program

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/uop"
)

// ErrUnknownProgram is returned when a built-in program name is not known.
var ErrUnknownProgram = errors.New("program: unknown built-in program")

var builtins = map[string]func() *Program{
	"add-halt":       AddHalt,
	"sub-flags":      SubFlags,
	"queue-add-halt": QueueAddHalt,
}

// AddHalt moves 0xf into x1, adds 0xf into x2 and halts. The ADD writes back
// 0x1e.
func AddHalt() *Program {
	return &Program{
		Name: "add-halt",
		Mode: uop.ModeScalarPort,
		Entries: []uop.Entry{
			uop.ScalarEntry(uop.Scalar{Opcode: uop.OpMVZ, DestReg: 1, Imm: 0xf}),
			uop.ScalarEntry(uop.Scalar{Opcode: uop.OpADD, DestReg: 2, SrcReg: 1, Imm: 0xf, PC: 4}),
			uop.ScalarEntry(uop.Scalar{Opcode: uop.OpHLT, PC: 8}),
		},
	}
}

// SubFlags subtracts 0xf twice from 1 with the flags written. It does not
// halt.
func SubFlags() *Program {
	return &Program{
		Name: "sub-flags",
		Mode: uop.ModeScalarPort,
		Entries: []uop.Entry{
			uop.ScalarEntry(uop.Scalar{Opcode: uop.OpMVZ, DestReg: 1, Imm: 0x1}),
			uop.ScalarEntry(uop.Scalar{
				Opcode: uop.OpSUB, DestReg: 2, SrcReg: 1, Imm: 0xf, SetFlags: true, PC: 4,
			}),
			uop.ScalarEntry(uop.Scalar{
				Opcode: uop.OpSUB, DestReg: 3, SrcReg: 2, Imm: 0xf, SetFlags: true, PC: 8,
			}),
		},
	}
}

// QueueAddHalt is AddHalt presented as one batch of queue slots.
func QueueAddHalt() *Program {
	return &Program{
		Name: "queue-add-halt",
		Mode: uop.ModeQueueSlot,
		Entries: []uop.Entry{
			uop.SlotEntry(
				uop.QueueSlot{
					Valid: true, Opcode: uop.OpMVZ, Imm: 0xf,
					Src1Reg: uop.ZeroReg, Src2Reg: uop.ZeroReg,
					DestReg: 1, FlagsReg: uop.ZeroReg,
				},
				uop.QueueSlot{
					Valid: true, Opcode: uop.OpADD, PC: 4, Imm: 0xf,
					Src1Reg: 1, Src2Reg: uop.ZeroReg,
					DestReg: 2, FlagsReg: uop.ZeroReg,
				},
				uop.QueueSlot{
					Valid: true, Opcode: uop.OpHLT, PC: 8,
					Src1Reg: uop.ZeroReg, Src2Reg: uop.ZeroReg,
					DestReg: uop.ZeroReg, FlagsReg: uop.ZeroReg,
				},
			),
		},
	}
}

// Builtin returns a fresh copy of a built-in program.
func Builtin(name string) (*Program, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProgram, "%q", name)
	}

	return f(), nil
}

// BuiltinNames lists the built-in programs.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
