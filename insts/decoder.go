// Package insts provides RV32IM instruction definitions and decoding.
package insts

// Decoder decodes RV32IM machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32IM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32IM instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Raw:     word,
		Opcode:  uint8(word & 0x7F),
		Funct3:  uint8((word >> 12) & 0x7),
		Funct7:  uint8((word >> 25) & 0x7F),
		Rd:      uint8((word >> 7) & 0x1F),
		Rs1:     uint8((word >> 15) & 0x1F),
		Rs2:     uint8((word >> 20) & 0x1F),
		CSRAddr: uint16((word >> 20) & 0xFFF),
	}

	switch inst.Opcode {
	case OpcodeOp, OpcodeOp32:
		inst.Category = CategoryALU
		inst.Type = TypeR
	case OpcodeOpImm:
		inst.Category = CategoryALU
		inst.Type = TypeI
		inst.Imm = immI(word)
	case OpcodeLUI, OpcodeAUIPC:
		inst.Category = CategoryALU
		inst.Type = TypeU
		inst.Imm = immU(word)
	case OpcodeLoad:
		inst.Category = CategoryLoad
		inst.Type = TypeI
		inst.Imm = immI(word)
	case OpcodeStore:
		inst.Category = CategoryStore
		inst.Type = TypeS
		inst.Imm = immS(word)
	case OpcodeBranch:
		inst.Category = CategoryBranch
		inst.Type = TypeB
		inst.Imm = immB(word)
	case OpcodeJAL:
		inst.Category = CategoryJump
		inst.Type = TypeJ
		inst.Imm = immJ(word)
	case OpcodeJALR:
		inst.Category = CategoryJump
		inst.Type = TypeI
		inst.Imm = immI(word)
	case OpcodeSystem:
		inst.Imm = immI(word)
		switch inst.Funct3 {
		case 0x0:
			inst.Category = CategorySystem
			inst.Type = TypeI
		case 0x1, 0x2, 0x3:
			inst.Category = CategoryCSR
			inst.Type = TypeCSR
		case 0x5, 0x6, 0x7:
			inst.Category = CategoryCSRImm
			inst.Type = TypeCSR
		default:
			inst.Category = CategoryIllegal
		}
	case OpcodeMiscMem:
		// FENCE / FENCE.I ride the SYSTEM execution path.
		inst.Category = CategorySystem
		inst.Type = TypeI
		inst.Imm = immI(word)
	case OpcodeCustom0:
		inst.Category = CategoryCustom
		inst.Type = TypeR
	default:
		inst.Category = CategoryIllegal
	}

	return inst
}

// immI extracts the I-type immediate: bits [31:20], sign-extended.
func immI(word uint32) int32 {
	return int32(word) >> 20
}

// immS extracts the S-type immediate: imm[11:5] in bits [31:25],
// imm[4:0] in bits [11:7], sign-extended.
func immS(word uint32) int32 {
	return (int32(word)>>25)<<5 | int32((word>>7)&0x1F)
}

// immB extracts the B-type immediate: imm[12|10:5] in bits [31:25],
// imm[4:1|11] in bits [11:7], sign-extended. Bit 0 is always zero.
func immB(word uint32) int32 {
	imm := (int32(word) >> 31) << 12
	imm |= int32((word>>25)&0x3F) << 5
	imm |= int32((word>>8)&0xF) << 1
	imm |= int32((word>>7)&0x1) << 11
	return imm
}

// immU extracts the U-type immediate: bits [31:12] kept in place.
func immU(word uint32) int32 {
	return int32(word & 0xFFFFF000)
}

// immJ extracts the J-type immediate: imm[20|10:1|11|19:12] in bits
// [31:12], sign-extended. Bit 0 is always zero.
func immJ(word uint32) int32 {
	imm := (int32(word) >> 31) << 20
	imm |= int32((word>>21)&0x3FF) << 1
	imm |= int32((word>>20)&0x1) << 11
	imm |= int32((word>>12)&0xFF) << 12
	return imm
}
