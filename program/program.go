// Package program loads drive programs: ordered lists of instructions that
// the harness presents to the backend after reset.
//
// Programs are written in YAML. A scalar-port program lists one instruction
// per entry:
//
//	name: add-halt
//	mode: scalar
//	entries:
//	  - {op: MVZ, dest: 1, imm: 0xf}
//	  - {op: ADD, dest: 2, src: 1, imm: 0xf}
//	  - {op: HLT}
//
// A queue-slot program lists up to four slots per entry:
//
//	name: queue-add-halt
//	mode: queue
//	entries:
//	  - slots:
//	      - {op: MVZ, dest: 1, imm: 0xf}
//	      - {op: ADD, dest: 2, src1: 1, imm: 0xf}
//	      - {op: HLT}
//
// Queue slots that leave src2 or flags out use x31, which selects the
// immediate as the second operand and leaves the flags untouched.
package program

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/backendtb/uop"
)

// ErrInvalidProgram is returned for programs that cannot be driven.
var ErrInvalidProgram = errors.New("program: invalid program")

// A Program is a named drive program for one instruction interface.
type Program struct {
	Name    string
	Mode    uop.Mode
	Entries []uop.Entry
}

// Validate encodes every entry once and reports the first failure.
func (p *Program) Validate() error {
	enc, err := uop.NewEncoder(p.Mode, uop.DefaultSettleLatency)
	if err != nil {
		return errors.Wrapf(ErrInvalidProgram, "%s: %v", p.Name, err)
	}

	for i, e := range p.Entries {
		if _, err := enc.Encode(e); err != nil {
			return errors.Wrapf(err, "program %s, entry %d", p.Name, i)
		}
	}

	return nil
}

type document struct {
	Name    string      `yaml:"name"`
	Mode    string      `yaml:"mode"`
	Entries []entryNode `yaml:"entries"`
}

type entryNode struct {
	Label string `yaml:"label"`

	Op       string     `yaml:"op"`
	Dest     uint8      `yaml:"dest"`
	Src      uint8      `yaml:"src"`
	Imm      uint32     `yaml:"imm"`
	Shift    uint8      `yaml:"shift"`
	SetFlags bool       `yaml:"set_flags"`
	OperandB string     `yaml:"operand_b"`
	PC       uint32     `yaml:"pc"`
	Slots    []slotNode `yaml:"slots"`
}

type slotNode struct {
	Valid *bool  `yaml:"valid"`
	Op    string `yaml:"op"`
	PC    uint32 `yaml:"pc"`
	Imm   uint32 `yaml:"imm"`
	Src1  uint8  `yaml:"src1"`
	Src2  *uint8 `yaml:"src2"`
	Dest  uint8  `yaml:"dest"`
	Flags *uint8 `yaml:"flags"`
}

// Parse decodes a YAML program and validates it.
func Parse(data []byte) (*Program, error) {
	var doc document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidProgram, "%v", err)
	}

	if doc.Mode == "" {
		doc.Mode = uop.ModeScalarPort.String()
	}

	mode, err := uop.ParseMode(doc.Mode)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidProgram, "%v", err)
	}

	p := &Program{Name: doc.Name, Mode: mode}

	for i, n := range doc.Entries {
		e, err := n.toEntry(mode)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}

		p.Entries = append(p.Entries, e)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Load reads and parses a YAML program file. Programs without a name are
// named after the file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading program %s", path)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	if p.Name == "" {
		p.Name = path
	}

	return p, nil
}

func (n entryNode) toEntry(mode uop.Mode) (uop.Entry, error) {
	switch mode {
	case uop.ModeScalarPort:
		if len(n.Slots) > 0 {
			return uop.Entry{}, errors.Wrap(ErrInvalidProgram,
				"slots are not allowed in a scalar program")
		}

		s, err := n.toScalar()
		if err != nil {
			return uop.Entry{}, err
		}

		e := uop.ScalarEntry(s)
		e.Label = n.Label

		return e, nil
	default:
		if n.Op != "" {
			return uop.Entry{}, errors.Wrap(ErrInvalidProgram,
				"queue programs list instructions under slots")
		}

		slots := make([]uop.QueueSlot, 0, len(n.Slots))
		for i, sn := range n.Slots {
			s, err := sn.toSlot()
			if err != nil {
				return uop.Entry{}, errors.Wrapf(err, "slot %d", i)
			}

			slots = append(slots, s)
		}

		e := uop.SlotEntry(slots...)
		e.Label = n.Label

		return e, nil
	}
}

func (n entryNode) toScalar() (uop.Scalar, error) {
	op, err := uop.ParseOpcode(n.Op)
	if err != nil {
		return uop.Scalar{}, err
	}

	sel := uop.OperandBImm

	switch strings.ToLower(n.OperandB) {
	case "", "imm":
	case "reg":
		sel = uop.OperandBReg
	default:
		return uop.Scalar{}, errors.Wrapf(ErrInvalidProgram,
			"operand_b must be imm or reg, got %q", n.OperandB)
	}

	return uop.Scalar{
		Opcode:         op,
		DestReg:        n.Dest,
		SrcReg:         n.Src,
		Imm:            n.Imm,
		ShiftAmount:    n.Shift,
		SetFlags:       n.SetFlags,
		OperandBSelect: sel,
		PC:             n.PC,
	}, nil
}

func (n slotNode) toSlot() (uop.QueueSlot, error) {
	op, err := uop.ParseOpcode(n.Op)
	if err != nil {
		return uop.QueueSlot{}, err
	}

	s := uop.QueueSlot{
		Valid:    true,
		Opcode:   op,
		PC:       n.PC,
		Imm:      n.Imm,
		Src1Reg:  n.Src1,
		Src2Reg:  uop.ZeroReg,
		DestReg:  n.Dest,
		FlagsReg: uop.ZeroReg,
	}

	if n.Valid != nil {
		s.Valid = *n.Valid
	}

	if n.Src2 != nil {
		s.Src2Reg = *n.Src2
	}

	if n.Flags != nil {
		s.FlagsReg = *n.Flags
	}

	return s, nil
}
