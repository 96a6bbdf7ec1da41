package uop

import "fmt"

// NumQueueSlots is the number of instruction queue slots presented per cycle.
const NumQueueSlots = 4

// NumArchRegs is the number of architectural integer registers.
const NumArchRegs = 32

// ZeroReg reads as zero. As a flags register it means "do not write NZCV".
const ZeroReg = 31

// Names of the control ports every backend variant has.
const (
	PortClock = "clk_in"
	PortReset = "rst_N_in"
)

// Names of the scalar-port instruction interface.
const (
	PortOpcode      = "uopcode"
	PortDestReg     = "dst_ri"
	PortSrcReg      = "src_ri"
	PortImm         = "imm_ri"
	PortShiftAmount = "hw_ri"
	PortSetFlags    = "set_nzcv_ri"
	PortOperandBSel = "valb_sel"
	PortPC          = "pc"
)

// Fields of one instruction queue slot.
const (
	SlotValid    = "valid"
	SlotOpcode   = "uop_code"
	SlotPC       = "pc"
	SlotImm      = "imm"
	SlotSrc1Reg  = "r1_arch"
	SlotSrc2Reg  = "r2_arch"
	SlotDestReg  = "dest_arch"
	SlotFlagsReg = "nzcv_arch"
)

// Names of the observation ports.
const (
	PortWritebackValid = "alu_wb_out.valid"
	PortWritebackDest  = "alu_wb_out.dest"
	PortWritebackData  = "alu_wb_out.data"
	PortFlags          = "nzcv"
	PortFinish         = "finish"
)

// SlotFields lists the fields of a queue slot in declaration order.
var SlotFields = []string{
	SlotValid, SlotOpcode, SlotPC, SlotImm,
	SlotSrc1Reg, SlotSrc2Reg, SlotDestReg, SlotFlagsReg,
}

// ScalarPorts lists the scalar-port instruction interface in declaration order.
var ScalarPorts = []string{
	PortOpcode, PortDestReg, PortSrcReg, PortImm,
	PortShiftAmount, PortSetFlags, PortOperandBSel, PortPC,
}

var portWidths = map[string]int{
	PortClock:          1,
	PortReset:          1,
	PortOpcode:         8,
	PortDestReg:        5,
	PortSrcReg:         5,
	PortImm:            32,
	PortShiftAmount:    2,
	PortSetFlags:       1,
	PortOperandBSel:    2,
	PortPC:             32,
	PortWritebackValid: 1,
	PortWritebackDest:  5,
	PortWritebackData:  32,
	PortFlags:          4,
	PortFinish:         1,
}

var slotFieldWidths = map[string]int{
	SlotValid:    1,
	SlotOpcode:   8,
	SlotPC:       32,
	SlotImm:      32,
	SlotSrc1Reg:  5,
	SlotSrc2Reg:  5,
	SlotDestReg:  5,
	SlotFlagsReg: 5,
}

// QueueSlotPort returns the port name of one field of a queue slot, for
// example "instr_queue[0].valid".
func QueueSlotPort(slot int, field string) string {
	return fmt.Sprintf("instr_queue[%d].%s", slot, field)
}

// PortWidth returns the bit width of a named port. The second return value is
// false if the port is not part of any backend variant.
func PortWidth(port string) (int, bool) {
	if w, ok := portWidths[port]; ok {
		return w, true
	}

	var slot int
	var field string
	n, err := fmt.Sscanf(port, "instr_queue[%d].%s", &slot, &field)
	if err != nil || n != 2 || slot < 0 || slot >= NumQueueSlots {
		return 0, false
	}

	w, ok := slotFieldWidths[field]

	return w, ok
}

// Mask truncates v to width bits.
func Mask(v uint64, width int) uint64 {
	if width >= 64 {
		return v
	}

	return v & (1<<uint(width) - 1)
}
