package uop

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrRegisterOutOfRange is returned when a register index does not name an
// architectural register.
var ErrRegisterOutOfRange = errors.New("uop: register index out of range")

// QueueSlot is one positional record of the instruction queue.
type QueueSlot struct {
	Valid    bool
	Opcode   Opcode
	PC       uint32
	Imm      uint32
	Src1Reg  uint8
	Src2Reg  uint8
	DestReg  uint8
	FlagsReg uint8
}

// Validate rejects register indices that the backend cannot address.
func (s QueueSlot) Validate() error {
	return checkRegs(map[string]uint8{
		"src1":  s.Src1Reg,
		"src2":  s.Src2Reg,
		"dest":  s.DestReg,
		"flags": s.FlagsReg,
	})
}

func (s QueueSlot) String() string {
	if !s.Valid {
		return "-"
	}

	return fmt.Sprintf("%s x%d, x%d, x%d, #0x%x @0x%x",
		s.Opcode, s.DestReg, s.Src1Reg, s.Src2Reg, s.Imm, s.PC)
}

// Scalar is one instruction of the scalar-port interface.
type Scalar struct {
	Opcode         Opcode
	DestReg        uint8
	SrcReg         uint8
	Imm            uint32
	ShiftAmount    uint8
	SetFlags       bool
	OperandBSelect uint8
	PC             uint32
}

// Operand B selections of the scalar-port interface.
const (
	OperandBImm uint8 = 0
	OperandBReg uint8 = 1
)

// Validate rejects register indices that the backend cannot address.
func (s Scalar) Validate() error {
	return checkRegs(map[string]uint8{
		"dest": s.DestReg,
		"src":  s.SrcReg,
	})
}

func (s Scalar) String() string {
	flags := ""
	if s.SetFlags {
		flags = "S"
	}

	switch s.Opcode {
	case OpNOP, OpHLT:
		return s.Opcode.String()
	case OpMVZ:
		return fmt.Sprintf("MVZ x%d, #0x%x, lsl #%d",
			s.DestReg, s.Imm, 16*int(s.ShiftAmount))
	}

	if s.OperandBSelect == OperandBReg {
		return fmt.Sprintf("%s%s x%d, x%d, x%d",
			s.Opcode, flags, s.DestReg, s.SrcReg, s.SrcReg)
	}

	return fmt.Sprintf("%s%s x%d, x%d, #0x%x",
		s.Opcode, flags, s.DestReg, s.SrcReg, s.Imm)
}

func checkRegs(regs map[string]uint8) error {
	for _, name := range []string{"src", "src1", "src2", "dest", "flags"} {
		r, ok := regs[name]
		if !ok {
			continue
		}

		if int(r) >= NumArchRegs {
			return errors.Wrapf(ErrRegisterOutOfRange, "%s register x%d", name, r)
		}
	}

	return nil
}

// An Entry is one element of a drive program. In scalar-port mode it carries
// exactly one Scalar instruction. In queue-slot mode it carries up to
// NumQueueSlots records, where Slots[i] is presented in queue slot i.
type Entry struct {
	Label  string
	Scalar *Scalar
	Slots  []QueueSlot
}

func (e Entry) String() string {
	if e.Scalar != nil {
		return e.Scalar.String()
	}

	s := "["
	for i, slot := range e.Slots {
		if i > 0 {
			s += " | "
		}
		s += slot.String()
	}

	return s + "]"
}

// ScalarEntry wraps a scalar instruction into an Entry.
func ScalarEntry(s Scalar) Entry {
	return Entry{Scalar: &s}
}

// SlotEntry wraps queue-slot records into an Entry.
func SlotEntry(slots ...QueueSlot) Entry {
	return Entry{Slots: slots}
}
