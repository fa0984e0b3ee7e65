package tile

import "github.com/emilitronic/smarc/insts"

// Per-opcode execution helpers and the category dispatchers that select
// them. All register writes go through WriteReg, which drops rd == 0.
// Unsupported funct3/funct7 combinations under a known major opcode raise
// an illegal-instruction trap.

// executeALU dispatches arithmetic, logical, shift, and upper-immediate
// instructions.
func (t *Tile) executeALU(in *insts.Instruction, currPC uint32) {
	t.arithCount++
	switch in.Type {
	case insts.TypeI:
		switch in.Funct3 {
		case 0x0:
			t.execADDI(in)
		case 0x1:
			if in.Funct7 == 0x00 {
				t.execSLLI(in)
			} else {
				t.RequestIllegalInstruction()
			}
		case 0x2:
			t.execSLTI(in)
		case 0x3:
			t.execSLTIU(in)
		case 0x4:
			t.execXORI(in)
		case 0x5:
			switch in.Funct7 {
			case 0x00:
				t.execSRLI(in)
			case 0x20:
				t.execSRAI(in)
			default:
				t.RequestIllegalInstruction()
			}
		case 0x6:
			t.execORI(in)
		case 0x7:
			t.execANDI(in)
		}
	case insts.TypeR:
		if in.Opcode == insts.OpcodeOp32 {
			if in.Funct3 == 0x0 && in.Funct7 == 0x01 {
				t.execMULW(in)
			} else {
				t.RequestIllegalInstruction()
			}
			return
		}
		t.executeOp(in)
	case insts.TypeU:
		if in.Opcode == insts.OpcodeLUI {
			t.execLUI(in)
		} else {
			t.execAUIPC(in, currPC)
		}
	}
}

// executeOp handles the R-type OP opcode, including the M extension on
// funct7 == 0x01.
func (t *Tile) executeOp(in *insts.Instruction) {
	switch in.Funct3 {
	case 0x0:
		switch in.Funct7 {
		case 0x00:
			t.addCount++
			t.execADD(in)
		case 0x20:
			t.addCount++ // count subs as adds
			t.execSUB(in)
		case 0x01:
			t.mulCount++
			t.execMUL(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x1:
		switch in.Funct7 {
		case 0x00:
			t.execSLL(in)
		case 0x01:
			t.execMULH(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x2:
		switch in.Funct7 {
		case 0x00:
			t.execSLT(in)
		case 0x01:
			t.execMULHSU(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x3:
		switch in.Funct7 {
		case 0x00:
			t.execSLTU(in)
		case 0x01:
			t.execMULHU(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x4:
		switch in.Funct7 {
		case 0x00:
			t.execXOR(in)
		case 0x01:
			t.execDIV(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x5:
		switch in.Funct7 {
		case 0x00:
			t.execSRL(in)
		case 0x20:
			t.execSRA(in)
		case 0x01:
			t.execDIVU(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x6:
		switch in.Funct7 {
		case 0x00:
			t.execOR(in)
		case 0x01:
			t.execREM(in)
		default:
			t.RequestIllegalInstruction()
		}
	case 0x7:
		switch in.Funct7 {
		case 0x00:
			t.execAND(in)
		case 0x01:
			t.execREMU(in)
		default:
			t.RequestIllegalInstruction()
		}
	}
}

// executeSystem handles ECALL/EBREAK/trap returns and the fences.
// It reports whether the PC advance must be suppressed.
func (t *Tile) executeSystem(in *insts.Instruction) bool {
	if in.Opcode == insts.OpcodeSystem {
		switch in.CSRAddr {
		case insts.SysECALL:
			t.execECALL()
		case insts.SysEBREAK:
			t.execEBREAK()
		case insts.SysURET, insts.SysSRET, insts.SysMRET:
			t.execMRET()
		default:
			t.RequestIllegalInstruction()
		}
		return true
	}
	// OpcodeMiscMem: FENCE and FENCE.I are no-ops on this single-hart
	// in-order core.
	switch in.Funct3 {
	case 0x0, 0x1:
	default:
		t.RequestIllegalInstruction()
	}
	return false
}

// executeLoad computes the effective address and, in timed mode, issues
// the read request and installs the dmem stall latch. It reports whether
// the tick may continue to the commit phases.
func (t *Tile) executeLoad(in *insts.Instruction, nextPC uint32) bool {
	t.loadCount++
	base := int32(t.Reg(uint32(in.Rs1)))
	addr := uint32(base + in.Imm)

	if t.memModel == MemIdeal {
		word := t.memPort.Read32(addr &^ uint32(0x3))
		var value uint32
		switch in.Funct3 {
		case 0x0: // LB
			shift := (addr & 0x3) * 8
			value = uint32(int32(int8(word >> shift)))
		case 0x1: // LH
			checkAligned(addr, 2, "LH")
			shift := (addr & 0x2) * 8
			value = uint32(int32(int16(word >> shift)))
		case 0x2: // LW
			checkAligned(addr, 4, "LW")
			value = word
		case 0x4: // LBU
			shift := (addr & 0x3) * 8
			value = (word >> shift) & 0xFF
		case 0x5: // LHU
			checkAligned(addr, 2, "LHU")
			shift := (addr & 0x2) * 8
			value = (word >> shift) & 0xFFFF
		default:
			t.RequestIllegalInstruction()
			return true
		}
		t.WriteReg(uint32(in.Rd), value)
		return true
	}

	var op dmemOp
	switch in.Funct3 {
	case 0x0:
		op = dmemLB
	case 0x1:
		checkAligned(addr, 2, "LH")
		op = dmemLH
	case 0x2:
		checkAligned(addr, 4, "LW")
		op = dmemLW
	case 0x4:
		op = dmemLBU
	case 0x5:
		checkAligned(addr, 2, "LHU")
		op = dmemLHU
	default:
		t.RequestIllegalInstruction()
		return true
	}
	if !t.memPort.CanRequest() {
		return false
	}
	t.memPort.RequestRead32(addr &^ uint32(0x3))
	t.dmemWait = true
	t.dmemOp = op
	t.dmemRMWIssued = false
	t.dmemRd = in.Rd
	t.dmemAddr = addr
	t.dmemStoreData = 0
	t.dmemStoreMask = 0
	t.dmemStoreShift = 0
	t.dmemNextPC = nextPC
	return false
}

// executeStore computes the effective address and, in timed mode, issues
// the first transaction: a write for SW, or the read phase of the
// read-modify-write sequence that synthesizes SB/SH on the word-only
// port. It reports whether the tick may continue to the commit phases.
func (t *Tile) executeStore(in *insts.Instruction, nextPC uint32) bool {
	t.storeCount++
	base := int32(t.Reg(uint32(in.Rs1)))
	addr := uint32(base + in.Imm)
	data := t.Reg(uint32(in.Rs2))
	aligned := addr &^ uint32(0x3)

	if t.memModel == MemIdeal {
		switch in.Funct3 {
		case 0x0: // SB
			shift := (addr & 0x3) * 8
			mask := uint32(0xFF) << shift
			prior := t.memPort.Read32(aligned)
			t.memPort.Write32(aligned, (prior&^mask)|((data<<shift)&mask))
		case 0x1: // SH
			checkAligned(addr, 2, "SH")
			shift := (addr & 0x2) * 8
			mask := uint32(0xFFFF) << shift
			prior := t.memPort.Read32(aligned)
			t.memPort.Write32(aligned, (prior&^mask)|((data<<shift)&mask))
		case 0x2: // SW
			checkAligned(addr, 4, "SW")
			t.memPort.Write32(aligned, data)
		default:
			t.RequestIllegalInstruction()
		}
		return true
	}

	if in.Funct3 > 0x2 {
		t.RequestIllegalInstruction()
		return true
	}
	if !t.memPort.CanRequest() {
		return false
	}

	t.dmemWait = true
	t.dmemRd = 0
	t.dmemAddr = addr
	t.dmemNextPC = nextPC
	t.dmemRMWIssued = false

	switch in.Funct3 {
	case 0x0:
		// Word-only port: SB runs as a timed read-modify-write pair.
		t.dmemOp = dmemSB
		t.dmemStoreData = data & 0xFF
		t.dmemStoreShift = (addr & 0x3) * 8
		t.dmemStoreMask = 0xFF << t.dmemStoreShift
		t.memPort.RequestRead32(aligned)
	case 0x1:
		checkAligned(addr, 2, "SH")
		// Word-only port: SH runs as a timed read-modify-write pair.
		t.dmemOp = dmemSH
		t.dmemStoreData = data & 0xFFFF
		t.dmemStoreShift = (addr & 0x2) * 8
		t.dmemStoreMask = 0xFFFF << t.dmemStoreShift
		t.memPort.RequestRead32(aligned)
	case 0x2:
		checkAligned(addr, 4, "SW")
		t.dmemOp = dmemSW
		t.dmemStoreData = data
		t.dmemStoreShift = 0
		t.dmemStoreMask = 0xFFFFFFFF
		t.memPort.RequestWrite32(aligned, data)
	}
	return false
}

// executeBranch evaluates the branch condition and returns the next PC.
func (t *Tile) executeBranch(in *insts.Instruction, currPC, nextPC uint32) uint32 {
	t.branchCount++
	taken := false
	switch in.Funct3 {
	case 0x0:
		taken = t.execBEQ(in)
	case 0x1:
		taken = t.execBNE(in)
	case 0x4:
		taken = t.execBLT(in)
	case 0x5:
		taken = t.execBGE(in)
	case 0x6:
		taken = t.execBLTU(in)
	case 0x7:
		taken = t.execBGEU(in)
	default:
		t.RequestIllegalInstruction()
		return nextPC
	}
	if taken {
		t.branchTakenCount++
		return uint32(int32(currPC) + in.Imm)
	}
	return nextPC
}

// executeCSR dispatches register-operand CSR instructions.
func (t *Tile) executeCSR(in *insts.Instruction) {
	switch in.Funct3 {
	case 0x1:
		t.execCSRRW(in)
	case 0x2:
		t.execCSRRS(in)
	case 0x3:
		t.execCSRRC(in)
	}
}

// executeCSRImm dispatches immediate-operand CSR instructions.
func (t *Tile) executeCSRImm(in *insts.Instruction) {
	switch in.Funct3 {
	case 0x5:
		t.execCSRRWI(in)
	case 0x6:
		t.execCSRRSI(in)
	case 0x7:
		t.execCSRRCI(in)
	}
}

// RV32I base, R-type.

func (t *Tile) execADD(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))+t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execSUB(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))-t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execXOR(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))^t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execOR(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))|t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execAND(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))&t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execSLT(in *insts.Instruction) {
	if int32(t.Reg(uint32(in.Rs1))) < int32(t.Reg(uint32(in.Rs2))) {
		t.WriteReg(uint32(in.Rd), 1)
	} else {
		t.WriteReg(uint32(in.Rd), 0)
	}
}

func (t *Tile) execSLTU(in *insts.Instruction) {
	if t.Reg(uint32(in.Rs1)) < t.Reg(uint32(in.Rs2)) {
		t.WriteReg(uint32(in.Rd), 1)
	} else {
		t.WriteReg(uint32(in.Rd), 0)
	}
}

func (t *Tile) execSLL(in *insts.Instruction) {
	shamt := t.Reg(uint32(in.Rs2)) & 0x1F
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))<<shamt)
}

func (t *Tile) execSRL(in *insts.Instruction) {
	shamt := t.Reg(uint32(in.Rs2)) & 0x1F
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))>>shamt)
}

func (t *Tile) execSRA(in *insts.Instruction) {
	shamt := t.Reg(uint32(in.Rs2)) & 0x1F
	t.WriteReg(uint32(in.Rd), uint32(int32(t.Reg(uint32(in.Rs1)))>>shamt))
}

// RV32I base, I-type.

func (t *Tile) execADDI(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), uint32(int32(t.Reg(uint32(in.Rs1)))+in.Imm))
}

func (t *Tile) execSLLI(in *insts.Instruction) {
	shamt := uint32(in.Imm) & 0x1F
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))<<shamt)
}

func (t *Tile) execSRLI(in *insts.Instruction) {
	shamt := uint32(in.Imm) & 0x1F
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))>>shamt)
}

func (t *Tile) execSRAI(in *insts.Instruction) {
	shamt := uint32(in.Imm) & 0x1F
	t.WriteReg(uint32(in.Rd), uint32(int32(t.Reg(uint32(in.Rs1)))>>shamt))
}

func (t *Tile) execSLTI(in *insts.Instruction) {
	if int32(t.Reg(uint32(in.Rs1))) < in.Imm {
		t.WriteReg(uint32(in.Rd), 1)
	} else {
		t.WriteReg(uint32(in.Rd), 0)
	}
}

func (t *Tile) execSLTIU(in *insts.Instruction) {
	if t.Reg(uint32(in.Rs1)) < uint32(in.Imm) {
		t.WriteReg(uint32(in.Rd), 1)
	} else {
		t.WriteReg(uint32(in.Rd), 0)
	}
}

func (t *Tile) execXORI(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))^uint32(in.Imm))
}

func (t *Tile) execORI(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))|uint32(in.Imm))
}

func (t *Tile) execANDI(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))&uint32(in.Imm))
}

// RV32I base, U-type.

func (t *Tile) execLUI(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), uint32(in.Imm))
}

// execAUIPC uses the instruction's own PC, not the post-increment value.
func (t *Tile) execAUIPC(in *insts.Instruction, currPC uint32) {
	t.WriteReg(uint32(in.Rd), currPC+uint32(in.Imm))
}

// RV32I base, B-type condition evaluators.

func (t *Tile) execBEQ(in *insts.Instruction) bool {
	return t.Reg(uint32(in.Rs1)) == t.Reg(uint32(in.Rs2))
}

func (t *Tile) execBNE(in *insts.Instruction) bool {
	return t.Reg(uint32(in.Rs1)) != t.Reg(uint32(in.Rs2))
}

func (t *Tile) execBLT(in *insts.Instruction) bool {
	return int32(t.Reg(uint32(in.Rs1))) < int32(t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execBGE(in *insts.Instruction) bool {
	return int32(t.Reg(uint32(in.Rs1))) >= int32(t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execBLTU(in *insts.Instruction) bool {
	return t.Reg(uint32(in.Rs1)) < t.Reg(uint32(in.Rs2))
}

func (t *Tile) execBGEU(in *insts.Instruction) bool {
	return t.Reg(uint32(in.Rs1)) >= t.Reg(uint32(in.Rs2))
}

// RV32I base, J-type and JALR.

// execJAL writes the link register and returns the jump target.
func (t *Tile) execJAL(in *insts.Instruction, currPC uint32) uint32 {
	t.WriteReg(uint32(in.Rd), currPC+4)
	return uint32(int32(currPC) + in.Imm)
}

// execJALR reads rs1 before writing the link register so that
// jalr rd, rd, imm resolves against the old value. The target's bit 0 is
// cleared.
func (t *Tile) execJALR(in *insts.Instruction, currPC uint32) uint32 {
	target := uint32(int32(t.Reg(uint32(in.Rs1)))+in.Imm) &^ uint32(1)
	t.WriteReg(uint32(in.Rd), currPC+4)
	return target
}

// System and trap flow.

// execECALL requests an environment-call trap whose cause reflects the
// privilege mode at the point of the call.
func (t *Tile) execECALL() {
	switch t.privMode {
	case PrivUser:
		t.RequestTrap(TrapEnvironmentCallFromUMode)
	case PrivSupervisor:
		t.RequestTrap(TrapEnvironmentCallFromSMode)
	default:
		t.RequestTrap(TrapEnvironmentCallFromMMode)
	}
}

func (t *Tile) execEBREAK() {
	t.RequestTrap(TrapBreakpoint)
}

func (t *Tile) execMRET() {
	t.ResumeFromTrap()
}

// Zicsr.

func (t *Tile) execCSRRW(in *insts.Instruction) {
	addr := uint32(in.CSRAddr)
	if in.Rd != 0 {
		t.WriteReg(uint32(in.Rd), t.ReadCSR(addr))
	}
	t.WriteCSR(addr, t.Reg(uint32(in.Rs1)))
}

func (t *Tile) execCSRRS(in *insts.Instruction) {
	addr := uint32(in.CSRAddr)
	old := t.ReadCSR(addr)
	if in.Rd != 0 {
		t.WriteReg(uint32(in.Rd), old)
	}
	if in.Rs1 != 0 {
		t.WriteCSR(addr, old|t.Reg(uint32(in.Rs1)))
	}
}

func (t *Tile) execCSRRC(in *insts.Instruction) {
	addr := uint32(in.CSRAddr)
	old := t.ReadCSR(addr)
	if in.Rd != 0 {
		t.WriteReg(uint32(in.Rd), old)
	}
	if in.Rs1 != 0 {
		t.WriteCSR(addr, old&^t.Reg(uint32(in.Rs1)))
	}
}

func (t *Tile) execCSRRWI(in *insts.Instruction) {
	addr := uint32(in.CSRAddr)
	if in.Rd != 0 {
		t.WriteReg(uint32(in.Rd), t.ReadCSR(addr))
	}
	t.WriteCSR(addr, uint32(in.Rs1))
}

func (t *Tile) execCSRRSI(in *insts.Instruction) {
	addr := uint32(in.CSRAddr)
	old := t.ReadCSR(addr)
	if in.Rd != 0 {
		t.WriteReg(uint32(in.Rd), old)
	}
	if in.Rs1 != 0 {
		t.WriteCSR(addr, old|uint32(in.Rs1))
	}
}

func (t *Tile) execCSRRCI(in *insts.Instruction) {
	addr := uint32(in.CSRAddr)
	old := t.ReadCSR(addr)
	if in.Rd != 0 {
		t.WriteReg(uint32(in.Rd), old)
	}
	if in.Rs1 != 0 {
		t.WriteCSR(addr, old&^uint32(in.Rs1))
	}
}

// M extension.

func (t *Tile) execMUL(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))*t.Reg(uint32(in.Rs2)))
}

// execMULW keeps the low-32 multiply behavior of the encoding's RV64
// namesake: the result is identical to MUL.
func (t *Tile) execMULW(in *insts.Instruction) {
	t.WriteReg(uint32(in.Rd), t.Reg(uint32(in.Rs1))*t.Reg(uint32(in.Rs2)))
}

func (t *Tile) execMULH(in *insts.Instruction) {
	a := int64(int32(t.Reg(uint32(in.Rs1))))
	b := int64(int32(t.Reg(uint32(in.Rs2))))
	t.WriteReg(uint32(in.Rd), uint32((a*b)>>32))
}

func (t *Tile) execMULHU(in *insts.Instruction) {
	a := uint64(t.Reg(uint32(in.Rs1)))
	b := uint64(t.Reg(uint32(in.Rs2)))
	t.WriteReg(uint32(in.Rd), uint32((a*b)>>32))
}

func (t *Tile) execMULHSU(in *insts.Instruction) {
	a := int64(int32(t.Reg(uint32(in.Rs1))))
	b := int64(t.Reg(uint32(in.Rs2)))
	t.WriteReg(uint32(in.Rd), uint32((a*b)>>32))
}

func (t *Tile) execDIV(in *insts.Instruction) {
	a := int32(t.Reg(uint32(in.Rs1)))
	b := int32(t.Reg(uint32(in.Rs2)))
	switch {
	case b == 0:
		t.WriteReg(uint32(in.Rd), 0xFFFFFFFF)
	case a == -0x80000000 && b == -1:
		t.WriteReg(uint32(in.Rd), 0x80000000)
	default:
		t.WriteReg(uint32(in.Rd), uint32(a/b))
	}
}

func (t *Tile) execDIVU(in *insts.Instruction) {
	a := t.Reg(uint32(in.Rs1))
	b := t.Reg(uint32(in.Rs2))
	if b == 0 {
		t.WriteReg(uint32(in.Rd), 0xFFFFFFFF)
	} else {
		t.WriteReg(uint32(in.Rd), a/b)
	}
}

func (t *Tile) execREM(in *insts.Instruction) {
	a := int32(t.Reg(uint32(in.Rs1)))
	b := int32(t.Reg(uint32(in.Rs2)))
	switch {
	case b == 0:
		t.WriteReg(uint32(in.Rd), uint32(a))
	case a == -0x80000000 && b == -1:
		t.WriteReg(uint32(in.Rd), 0)
	default:
		t.WriteReg(uint32(in.Rd), uint32(a%b))
	}
}

func (t *Tile) execREMU(in *insts.Instruction) {
	a := t.Reg(uint32(in.Rs1))
	b := t.Reg(uint32(in.Rs2))
	if b == 0 {
		t.WriteReg(uint32(in.Rd), a)
	} else {
		t.WriteReg(uint32(in.Rd), a%b)
	}
}

// Custom-0 accelerator dispatch.

func (t *Tile) execCustom0(in *insts.Instruction) {
	if t.accelPort == nil {
		t.RequestIllegalInstruction()
		return
	}
	result, writeRd := t.accelPort.Execute(t.Reg(uint32(in.Rs1)), t.Reg(uint32(in.Rs2)))
	if writeRd {
		t.WriteReg(uint32(in.Rd), result)
	}
}

// checkAligned panics on a natural-alignment violation. Misaligned
// accesses indicate a broken test program, not an architectural trap, in
// this core.
func checkAligned(addr, align uint32, op string) {
	if addr&(align-1) != 0 {
		panic("tile: " + op + " requires aligned address")
	}
}
