package backend

import "github.com/sarchlab/backendtb/uop"

// NZCV flag bits as presented on the nzcv port.
const (
	FlagV uint8 = 1 << iota
	FlagC
	FlagZ
	FlagN
)

func addWithCarry(a, b uint32, carry uint32) (uint32, uint8) {
	sum64 := uint64(a) + uint64(b) + uint64(carry)
	res := uint32(sum64)

	var flags uint8
	if res&0x80000000 != 0 {
		flags |= FlagN
	}
	if res == 0 {
		flags |= FlagZ
	}
	if sum64>>32 != 0 {
		flags |= FlagC
	}
	if (a^res)&(b^res)&0x80000000 != 0 {
		flags |= FlagV
	}

	return res, flags
}

func logicFlags(res uint32) uint8 {
	var flags uint8
	if res&0x80000000 != 0 {
		flags |= FlagN
	}
	if res == 0 {
		flags |= FlagZ
	}

	return flags
}

// alu computes one operation. The boolean result is false for opcodes the
// backend does not implement.
func alu(op uop.Opcode, a, b uint32) (uint32, uint8, bool) {
	switch op {
	case uop.OpADD:
		res, flags := addWithCarry(a, b, 0)
		return res, flags, true
	case uop.OpSUB:
		res, flags := addWithCarry(a, ^b, 1)
		return res, flags, true
	case uop.OpAND:
		res := a & b
		return res, logicFlags(res), true
	case uop.OpORR:
		res := a | b
		return res, logicFlags(res), true
	case uop.OpEOR:
		res := a ^ b
		return res, logicFlags(res), true
	case uop.OpLSL:
		res := a << (b & 31)
		return res, logicFlags(res), true
	case uop.OpLSR:
		res := a >> (b & 31)
		return res, logicFlags(res), true
	case uop.OpMVZ:
		return b, logicFlags(b), true
	}

	return 0, 0, false
}
