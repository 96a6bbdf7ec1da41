package uop

import (
	"strings"

	"github.com/pkg/errors"
)

// Errors returned by encoders.
var (
	ErrUnknownMode          = errors.New("uop: unknown encoding mode")
	ErrWrongForm            = errors.New("uop: entry does not match the encoding mode")
	ErrEmptyEntry           = errors.New("uop: entry carries no instruction")
	ErrTooManySlots         = errors.New("uop: entry carries more records than queue slots")
	ErrInvalidSettleLatency = errors.New("uop: settle latency must be a whole number of clock periods")
)

// DefaultSettleLatency is the number of steps an instruction's inputs are held
// before the next instruction may overwrite them. Two steps cover one full
// clock period, so the backend sees exactly one rising edge per instruction.
const DefaultSettleLatency = 2

// Mode selects the instruction interface of the backend variant.
type Mode int

// Supported encoding modes.
const (
	ModeScalarPort Mode = iota
	ModeQueueSlot
)

func (m Mode) String() string {
	switch m {
	case ModeScalarPort:
		return "scalar"
	case ModeQueueSlot:
		return "queue"
	default:
		return "unknown"
	}
}

// ParseMode accepts "scalar" or "queue".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar", "scalar-port":
		return ModeScalarPort, nil
	case "queue", "queue-slot":
		return ModeQueueSlot, nil
	}

	return 0, errors.Wrapf(ErrUnknownMode, "%q", s)
}

// Assignment sets one input port to a value.
type Assignment struct {
	Port  string
	Value uint64
}

// An Encoder turns drive program entries into port assignments. Encoding is a
// pure function of the entry: values wider than their port are masked to the
// port width, register indices beyond the register file are rejected.
type Encoder interface {
	// Mode returns the instruction interface this encoder targets.
	Mode() Mode

	// Encode returns the assignments that present the entry to the backend.
	Encode(e Entry) ([]Assignment, error)

	// Idle returns the assignments that present no instruction at all.
	Idle() []Assignment

	// SettleLatency is the number of steps to hold an entry's inputs.
	SettleLatency() int
}

// NewEncoder creates the encoder for a mode. The settle latency must be a
// positive even number of steps so that every entry starts on the same clock
// phase and is held across whole clock periods.
func NewEncoder(mode Mode, settleLatency int) (Encoder, error) {
	if settleLatency < 2 || settleLatency%2 != 0 {
		return nil, errors.Wrapf(ErrInvalidSettleLatency, "got %d steps", settleLatency)
	}

	switch mode {
	case ModeScalarPort:
		return scalarPortEncoder{settle: settleLatency}, nil
	case ModeQueueSlot:
		return queueSlotEncoder{settle: settleLatency}, nil
	}

	return nil, errors.Wrapf(ErrUnknownMode, "mode %d", int(mode))
}

func assign(port string, v uint64) Assignment {
	w, ok := PortWidth(port)
	if !ok {
		panic("uop: no width declared for port " + port)
	}

	return Assignment{Port: port, Value: Mask(v, w)}
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}

type scalarPortEncoder struct {
	settle int
}

func (scalarPortEncoder) Mode() Mode { return ModeScalarPort }

func (e scalarPortEncoder) SettleLatency() int { return e.settle }

func (scalarPortEncoder) Encode(entry Entry) ([]Assignment, error) {
	if len(entry.Slots) > 0 {
		return nil, errors.Wrap(ErrWrongForm, "queue slots given to scalar-port encoder")
	}

	s := entry.Scalar
	if s == nil {
		return nil, ErrEmptyEntry
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return []Assignment{
		assign(PortOpcode, uint64(s.Opcode)),
		assign(PortDestReg, uint64(s.DestReg)),
		assign(PortSrcReg, uint64(s.SrcReg)),
		assign(PortImm, uint64(s.Imm)),
		assign(PortShiftAmount, uint64(s.ShiftAmount)),
		assign(PortSetFlags, boolToU64(s.SetFlags)),
		assign(PortOperandBSel, uint64(s.OperandBSelect)),
		assign(PortPC, uint64(s.PC)),
	}, nil
}

func (scalarPortEncoder) Idle() []Assignment {
	idle := make([]Assignment, 0, len(ScalarPorts))
	for _, p := range ScalarPorts {
		idle = append(idle, assign(p, 0))
	}

	return idle
}

type queueSlotEncoder struct {
	settle int
}

func (queueSlotEncoder) Mode() Mode { return ModeQueueSlot }

func (e queueSlotEncoder) SettleLatency() int { return e.settle }

func (queueSlotEncoder) Encode(entry Entry) ([]Assignment, error) {
	if entry.Scalar != nil {
		return nil, errors.Wrap(ErrWrongForm, "scalar instruction given to queue-slot encoder")
	}

	if len(entry.Slots) == 0 {
		return nil, ErrEmptyEntry
	}

	if len(entry.Slots) > NumQueueSlots {
		return nil, errors.Wrapf(ErrTooManySlots, "%d records", len(entry.Slots))
	}

	out := make([]Assignment, 0, NumQueueSlots*len(SlotFields))
	for i := 0; i < NumQueueSlots; i++ {
		if i >= len(entry.Slots) || !entry.Slots[i].Valid {
			out = append(out, assign(QueueSlotPort(i, SlotValid), 0))
			continue
		}

		s := entry.Slots[i]
		if err := s.Validate(); err != nil {
			return nil, errors.Wrapf(err, "slot %d", i)
		}

		out = append(out,
			assign(QueueSlotPort(i, SlotValid), 1),
			assign(QueueSlotPort(i, SlotOpcode), uint64(s.Opcode)),
			assign(QueueSlotPort(i, SlotPC), uint64(s.PC)),
			assign(QueueSlotPort(i, SlotImm), uint64(s.Imm)),
			assign(QueueSlotPort(i, SlotSrc1Reg), uint64(s.Src1Reg)),
			assign(QueueSlotPort(i, SlotSrc2Reg), uint64(s.Src2Reg)),
			assign(QueueSlotPort(i, SlotDestReg), uint64(s.DestReg)),
			assign(QueueSlotPort(i, SlotFlagsReg), uint64(s.FlagsReg)),
		)
	}

	return out, nil
}

func (queueSlotEncoder) Idle() []Assignment {
	idle := make([]Assignment, 0, NumQueueSlots)
	for i := 0; i < NumQueueSlots; i++ {
		idle = append(idle, assign(QueueSlotPort(i, SlotValid), 0))
	}

	return idle
}
