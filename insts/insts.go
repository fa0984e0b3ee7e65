// Package insts provides RV32IM instruction definitions and decoding.
package insts

// Category classifies an instruction by the execution path it takes
// through the tile core.
type Category uint8

// Instruction categories.
const (
	CategoryIllegal Category = iota
	CategoryALU
	CategoryLoad
	CategoryStore
	CategoryBranch
	CategoryJump
	CategorySystem
	CategoryCSR
	CategoryCSRImm
	CategoryCustom
)

// Type represents an RV32 encoding format.
type Type uint8

// Encoding formats.
const (
	TypeUnknown Type = iota
	TypeR
	TypeI
	TypeS
	TypeB
	TypeU
	TypeJ
	TypeCSR
)

// Major opcodes (bits [6:0]).
const (
	OpcodeLoad    = 0x03
	OpcodeCustom0 = 0x0B // reserved for accelerator dispatch
	OpcodeMiscMem = 0x0F // FENCE, FENCE.I
	OpcodeOpImm   = 0x13
	OpcodeAUIPC   = 0x17
	OpcodeStore   = 0x23
	OpcodeOp      = 0x33
	OpcodeLUI     = 0x37
	OpcodeOp32    = 0x3B // MULW alias space
	OpcodeBranch  = 0x63
	OpcodeJALR    = 0x67
	OpcodeJAL     = 0x6F
	OpcodeSystem  = 0x73
)

// System-instruction subtypes, selected by the 12-bit I-immediate when
// funct3 == 0 under the SYSTEM opcode.
const (
	SysECALL  = 0x000
	SysEBREAK = 0x001
	SysURET   = 0x002
	SysSRET   = 0x102
	SysMRET   = 0x302
)

// Instruction represents a decoded RV32IM instruction.
type Instruction struct {
	Raw uint32 // original instruction word

	Category Category
	Type     Type

	Opcode uint8 // bits [6:0]
	Funct3 uint8 // bits [14:12]
	Funct7 uint8 // bits [31:25]
	Rd     uint8 // bits [11:7]
	Rs1    uint8 // bits [19:15]
	Rs2    uint8 // bits [24:20]

	// Imm is the sign-extended immediate for the instruction's encoding
	// type. U-type keeps the immediate in bits [31:12].
	Imm int32

	// CSRAddr is the raw 12-bit upper-immediate field. For CSR and
	// CSR-immediate instructions it names the CSR; for SYSTEM
	// instructions with funct3 == 0 it selects the subtype
	// (SysECALL, SysEBREAK, SysMRET, ...).
	CSRAddr uint16
}
