// Package backend provides a behavioural model of the pipelined processor
// backend the harness drives.
//
// The model honours the same port contract as the hardware: a clock and an
// active-low reset, one of the two instruction interfaces, a writeback
// announcement and a finish flag. Internally it is a three stage pipeline
// (issue, execute, writeback) whose registers only change on rising clock
// edges. Results are written to the register file in the execute stage, so no
// forwarding logic is needed.
package backend

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sarchlab/backendtb/state"
	"github.com/sarchlab/backendtb/unit"
	"github.com/sarchlab/backendtb/uop"
)

// Errors reported by Eval.
var (
	ErrIllegalOpcode = errors.New("backend: illegal opcode")
	ErrQueueOverflow = errors.New("backend: instruction queue overflow")
)

// DefaultQueueDepth is how many latched queue-slot records may wait for issue.
const DefaultQueueDepth = 16

// SettleLatency is how many steps an instruction must be presented. The
// backend latches its instruction inputs on every rising edge, so an entry
// held for longer than one clock period is issued again.
const SettleLatency = uop.DefaultSettleLatency

const coreKey = "core"

// Inst is an instruction held in a pipeline register.
type Inst struct {
	Valid    bool
	Opcode   uint8
	Dest     uint8
	Src1     uint8
	Src2     uint8
	Imm      uint32
	Shift    uint8
	SetFlags bool
	UseImm   bool
	PC       uint32
}

// Result is the output of the execute stage.
type Result struct {
	Valid     bool
	WritesReg bool
	Halt      bool
	Dest      uint8
	Data      uint32
	PC        uint32
}

// Core holds every flip-flop of the model.
type Core struct {
	Regs     [uop.NumArchRegs]uint32
	NZCV     uint8
	Pending  []Inst
	Issue    Inst
	Exec     Result
	WB       Result
	Stopped  bool
	Finished bool
	Retired  uint64
}

// Model is a behavioural backend implementing unit.Unit and unit.Probe.
type Model struct {
	name       string
	mode       uop.Mode
	queueDepth int

	flops   *state.Manager
	view    *Core
	inputs  map[string]uint64
	order   []unit.Signal
	prevClk bool
}

// Name returns the name of the model. Trace sinks use it as the scope name.
func (m *Model) Name() string {
	return m.name
}

// Mode returns the instruction interface the model exposes.
func (m *Model) Mode() uop.Mode {
	return m.mode
}

// SetInput drives an input port.
func (m *Model) SetInput(port string, value uint64) error {
	if _, ok := m.inputs[port]; !ok {
		if m.isOutput(port) {
			return errors.Wrapf(unit.ErrNotInput, "%s", port)
		}

		return errors.Wrapf(unit.ErrUnknownPort, "%s", port)
	}

	w, _ := uop.PortWidth(port)
	m.inputs[port] = uop.Mask(value, w)

	return nil
}

// Eval settles the model. The pipeline advances only when the clock input has
// risen since the previous evaluation.
func (m *Model) Eval() error {
	clk := m.inputs[uop.PortClock] != 0
	rising := clk && !m.prevClk
	m.prevClk = clk

	if !rising {
		return nil
	}

	if m.inputs[uop.PortReset] == 0 {
		return m.reset()
	}

	return m.tick()
}

func (m *Model) reset() error {
	if err := m.flops.Reset(); err != nil {
		return err
	}

	return m.refreshView()
}

func (m *Model) tick() error {
	staged, err := m.flops.Stage(coreKey)
	if err != nil {
		return err
	}

	next := staged.(*Core)
	cur := m.view

	next.WB = cur.Exec
	if next.WB.Valid {
		next.Retired++
	}
	if next.WB.Halt {
		next.Finished = true
	}

	next.Exec, err = m.execute(cur.Issue, next)
	if err != nil {
		m.flops.DiscardAll()
		return err
	}

	if err := m.latch(next); err != nil {
		m.flops.DiscardAll()
		return err
	}

	m.flops.CommitAll()

	return m.refreshView()
}

func (m *Model) refreshView() error {
	v, err := m.flops.Load(coreKey)
	if err != nil {
		return err
	}

	m.view = v.(*Core)

	return nil
}

func (m *Model) execute(in Inst, next *Core) (Result, error) {
	if !in.Valid {
		return Result{}, nil
	}

	op := uop.Opcode(in.Opcode)
	switch op {
	case uop.OpNOP:
		return Result{}, nil
	case uop.OpHLT:
		next.Stopped = true
		return Result{Valid: true, Halt: true, PC: in.PC}, nil
	}

	a := readReg(next, in.Src1)
	b := in.Imm << (16 * uint32(in.Shift))
	if !in.UseImm {
		b = readReg(next, in.Src2)
	}

	res, flags, ok := alu(op, a, b)
	if !ok {
		return Result{}, errors.Wrapf(ErrIllegalOpcode, "0x%02x at pc 0x%x", in.Opcode, in.PC)
	}

	if in.Dest != uop.ZeroReg {
		next.Regs[in.Dest] = res
	}
	if in.SetFlags {
		next.NZCV = flags
	}

	return Result{
		Valid:     true,
		WritesReg: true,
		Dest:      in.Dest,
		Data:      res,
		PC:        in.PC,
	}, nil
}

func readReg(c *Core, r uint8) uint32 {
	if r == uop.ZeroReg {
		return 0
	}

	return c.Regs[r]
}

func (m *Model) latch(next *Core) error {
	next.Issue = Inst{}
	if next.Stopped {
		next.Pending = nil
		return nil
	}

	switch m.mode {
	case uop.ModeScalarPort:
		next.Issue = m.latchScalar()
	case uop.ModeQueueSlot:
		for i := 0; i < uop.NumQueueSlots; i++ {
			in, ok := m.latchSlot(i)
			if !ok {
				continue
			}

			if len(next.Pending) >= m.queueDepth {
				return errors.Wrapf(ErrQueueOverflow, "depth %d", m.queueDepth)
			}
			next.Pending = append(next.Pending, in)
		}

		if len(next.Pending) > 0 {
			next.Issue = next.Pending[0]
			next.Pending = next.Pending[1:]
		}
	}

	return nil
}

func (m *Model) latchScalar() Inst {
	op := m.inputs[uop.PortOpcode]

	return Inst{
		Valid:    op != uint64(uop.OpNOP),
		Opcode:   uint8(op),
		Dest:     uint8(m.inputs[uop.PortDestReg]),
		Src1:     uint8(m.inputs[uop.PortSrcReg]),
		Src2:     uint8(m.inputs[uop.PortSrcReg]),
		Imm:      uint32(m.inputs[uop.PortImm]),
		Shift:    uint8(m.inputs[uop.PortShiftAmount]),
		SetFlags: m.inputs[uop.PortSetFlags] != 0,
		UseImm:   m.inputs[uop.PortOperandBSel] == uint64(uop.OperandBImm),
		PC:       uint32(m.inputs[uop.PortPC]),
	}
}

func (m *Model) latchSlot(i int) (Inst, bool) {
	field := func(f string) uint64 {
		return m.inputs[uop.QueueSlotPort(i, f)]
	}

	if field(uop.SlotValid) == 0 {
		return Inst{}, false
	}

	src2 := uint8(field(uop.SlotSrc2Reg))

	return Inst{
		Valid:    true,
		Opcode:   uint8(field(uop.SlotOpcode)),
		Dest:     uint8(field(uop.SlotDestReg)),
		Src1:     uint8(field(uop.SlotSrc1Reg)),
		Src2:     src2,
		Imm:      uint32(field(uop.SlotImm)),
		SetFlags: field(uop.SlotFlagsReg) != uop.ZeroReg,
		UseImm:   src2 == uop.ZeroReg,
		PC:       uint32(field(uop.SlotPC)),
	}, true
}

// Finished reports whether a halt instruction has reached writeback.
func (m *Model) Finished() bool {
	return m.view.Finished
}

// ReadOutput returns the value of any port or internal signal of the model.
func (m *Model) ReadOutput(port string) (uint64, error) {
	return m.Value(port)
}

// Signals lists every traceable signal: inputs, outputs, then the register
// file.
func (m *Model) Signals() []unit.Signal {
	return m.order
}

// Value returns the current value of a signal.
func (m *Model) Value(name string) (uint64, error) {
	if v, ok := m.inputs[name]; ok {
		return v, nil
	}

	wb := m.view.WB
	switch name {
	case uop.PortWritebackValid:
		return boolToU64(wb.Valid && wb.WritesReg), nil
	case uop.PortWritebackDest:
		return uint64(wb.Dest), nil
	case uop.PortWritebackData:
		return uint64(wb.Data), nil
	case uop.PortFlags:
		return uint64(m.view.NZCV), nil
	case uop.PortFinish:
		return boolToU64(m.view.Finished), nil
	}

	var r int
	if n, err := fmt.Sscanf(name, "regs.x%d", &r); err == nil && n == 1 &&
		r >= 0 && r < uop.ZeroReg {
		return uint64(m.view.Regs[r]), nil
	}

	return 0, errors.Wrapf(unit.ErrUnknownPort, "%s", name)
}

// Reg returns the architectural value of register r.
func (m *Model) Reg(r uint8) uint32 {
	return readReg(m.view, r)
}

// Flags returns the NZCV flags.
func (m *Model) Flags() uint8 {
	return m.view.NZCV
}

// Retired returns the number of instructions that reached writeback.
func (m *Model) Retired() uint64 {
	return m.view.Retired
}

func (m *Model) isOutput(port string) bool {
	for _, o := range outputPorts {
		if o == port {
			return true
		}
	}

	return false
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}

var outputPorts = []string{
	uop.PortWritebackValid,
	uop.PortWritebackDest,
	uop.PortWritebackData,
	uop.PortFlags,
	uop.PortFinish,
}

func inputPorts(mode uop.Mode) []string {
	ports := []string{uop.PortClock, uop.PortReset}

	switch mode {
	case uop.ModeScalarPort:
		ports = append(ports, uop.ScalarPorts...)
	case uop.ModeQueueSlot:
		for i := 0; i < uop.NumQueueSlots; i++ {
			for _, f := range uop.SlotFields {
				ports = append(ports, uop.QueueSlotPort(i, f))
			}
		}
	}

	return ports
}

func signalOrder(mode uop.Mode) []unit.Signal {
	var signals []unit.Signal

	for _, p := range inputPorts(mode) {
		w, _ := uop.PortWidth(p)
		signals = append(signals, unit.Signal{Name: p, Width: w})
	}

	for _, p := range outputPorts {
		w, _ := uop.PortWidth(p)
		signals = append(signals, unit.Signal{Name: p, Width: w})
	}

	regs := make([]unit.Signal, 0, uop.ZeroReg)
	for r := 0; r < uop.ZeroReg; r++ {
		regs = append(regs, unit.Signal{Name: fmt.Sprintf("regs.x%d", r), Width: 32})
	}

	return append(signals, regs...)
}

var (
	_ unit.Unit  = (*Model)(nil)
	_ unit.Probe = (*Model)(nil)
)
