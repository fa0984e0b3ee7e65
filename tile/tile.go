// Package tile implements the SMARC RV32IM tile core: a cycle-accurate
// state machine that fetches, decodes, and executes instructions through a
// request/response memory port, takes machine-mode traps, and exposes
// thread-context save/restore.
package tile

import (
	"github.com/emilitronic/smarc/insts"
	"github.com/emilitronic/smarc/internal/logging"
	"github.com/emilitronic/smarc/mem"
)

// MemModel selects the fetch/data path. Timed is the cycle-accurate
// default using the port's request/response channel; Ideal is a
// functional sanity mode that reads and writes synchronously with no
// stalls.
type MemModel int

// Memory models.
const (
	MemTimed MemModel = iota
	MemIdeal
)

// dmemOp names the data-memory operation a stall is waiting on.
type dmemOp int

const (
	dmemNone dmemOp = iota
	dmemLB
	dmemLBU
	dmemLH
	dmemLHU
	dmemLW
	dmemSB
	dmemSH
	dmemSW
)

// AccelPort is the capability set a custom-0 accelerator exposes to the
// tile. Execute receives the rs1 and rs2 operand values and returns the
// result to write back; writeRd false suppresses the register write. The
// accelerator may touch memory synchronously through its own port handle;
// the accesses count as part of the instruction's cycle.
type AccelPort interface {
	Execute(rs1, rs2 uint32) (result uint32, writeRd bool)
}

// Tile is the RV32IM core.
type Tile struct {
	memPort   mem.Port
	accelPort AccelPort
	decoder   *insts.Decoder
	log       *logging.Logger
	memModel  MemModel

	pc        uint32
	lastPC    uint32
	lastInstr uint32
	regs      [32]uint32

	// Instruction-fetch latch. At most one of ifetchWait/ifetchValid is
	// true.
	ifetchWait  bool
	ifetchValid bool
	ifetchWord  uint32

	// Data-memory stall latch. Never waiting at the same time as the
	// fetch latch.
	dmemWait       bool
	dmemOp         dmemOp
	dmemRMWIssued  bool
	dmemRd         uint8
	dmemAddr       uint32
	dmemStoreData  uint32
	dmemStoreMask  uint32
	dmemStoreShift uint32
	dmemNextPC     uint32

	halted   bool
	exited   bool
	exitCode uint32

	instCount        uint64
	arithCount       uint64
	addCount         uint64
	mulCount         uint64
	loadCount        uint64
	storeCount       uint64
	branchCount      uint64
	branchTakenCount uint64

	trapCSRs trapCSRState
	csrs     map[uint32]uint32

	trapPending       bool
	pendingTrap       TrapCause
	pcOverridePending bool
	pcOverrideValue   uint32
	privMode          PrivMode

	// Trap observation for external collaborators (debugger).
	trapCount     uint64
	lastTrapCause TrapCause
}

// Option is a functional option for configuring a Tile.
type Option func(*Tile)

// WithMemModel selects the fetch/data path model.
func WithMemModel(m MemModel) Option {
	return func(t *Tile) {
		t.memModel = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tile) {
		t.log = l
	}
}

// NewTile creates a tile core in its reset state: PC 0, registers zero,
// Machine mode, timed memory model.
func NewTile(opts ...Option) *Tile {
	t := &Tile{
		decoder:     insts.NewDecoder(),
		log:         logging.Default(),
		csrs:        map[uint32]uint32{},
		privMode:    PrivMachine,
		pendingTrap: TrapEnvironmentCallFromUMode,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AttachMemory connects the memory port the core fetches and loads/stores
// through.
func (t *Tile) AttachMemory(p mem.Port) { t.memPort = p }

// AttachAccelerator connects the custom-0 accelerator.
func (t *Tile) AttachAccelerator(a AccelPort) { t.accelPort = a }

// Memory returns the attached memory port.
func (t *Tile) Memory() mem.Port { return t.memPort }

// Accelerator returns the attached accelerator.
func (t *Tile) Accelerator() AccelPort { return t.accelPort }

// Tick advances the core by one cycle.
func (t *Tile) Tick() {
	if t.halted {
		return
	}
	if t.memPort == nil {
		t.lastPC = t.pc
		t.lastInstr = 0
		return
	}

	t.memPort.Cycle()

	// Resolve an in-flight instruction fetch.
	if t.ifetchWait {
		if !t.memPort.RespValid() {
			return
		}
		t.ifetchWord = t.memPort.RespData()
		t.memPort.RespConsume()
		t.ifetchValid = true
		t.ifetchWait = false
	}

	// Resolve an in-flight data access.
	if t.dmemWait {
		if !t.memPort.RespValid() {
			return
		}
		resp := t.memPort.RespData()
		t.memPort.RespConsume()
		t.completeDmem(resp)
		return
	}

	// Fetch.
	currPC := t.pc
	var instr uint32
	if t.memModel == MemIdeal {
		t.ifetchWait = false
		t.ifetchValid = false
		instr = t.memPort.Read32(currPC)
	} else {
		if !t.ifetchValid {
			if !t.memPort.CanRequest() {
				return
			}
			t.memPort.RequestRead32(currPC)
			t.ifetchWait = true
			t.lastPC = currPC
			t.lastInstr = 0
			return
		}
		instr = t.ifetchWord
		t.ifetchValid = false
	}
	t.lastPC = currPC
	t.lastInstr = instr
	t.log.Debugf("pc=0x%08x instr=0x%08x", currPC, instr)

	nextPC := currPC + 4
	advancePC := true

	// Decode and execute.
	decoded := t.decoder.Decode(instr)
	t.instCount++
	switch decoded.Category {
	case insts.CategoryALU:
		t.executeALU(decoded, currPC)
	case insts.CategorySystem:
		if t.executeSystem(decoded) {
			advancePC = false
		}
	case insts.CategoryLoad:
		if !t.executeLoad(decoded, nextPC) {
			return
		}
	case insts.CategoryStore:
		if !t.executeStore(decoded, nextPC) {
			return
		}
	case insts.CategoryJump:
		if decoded.Type == insts.TypeJ {
			nextPC = t.execJAL(decoded, currPC)
		} else if decoded.Funct3 != 0 {
			t.RequestIllegalInstruction()
		} else {
			nextPC = t.execJALR(decoded, currPC)
		}
	case insts.CategoryCSR:
		t.executeCSR(decoded)
	case insts.CategoryCSRImm:
		t.executeCSRImm(decoded)
	case insts.CategoryBranch:
		nextPC = t.executeBranch(decoded, currPC, nextPC)
	case insts.CategoryCustom:
		t.execCustom0(decoded)
	default:
		t.RequestIllegalInstruction()
	}

	// Take a latched trap.
	if t.trapPending {
		t.RaiseTrap(t.pendingTrap)
		return
	}
	// Let MRET jump to mepc.
	if t.pcOverridePending {
		t.pcOverridePending = false
		t.pc = t.pcOverrideValue
		t.regs[0] = 0
		return
	}
	t.regs[0] = 0
	if advancePC {
		t.pc = nextPC
	} else {
		t.pc = currPC
	}
}

// completeDmem finishes a stalled data access: writes the register file
// for loads, issues the write phase of a sub-word read-modify-write
// store, and applies the next PC once the access fully retires.
func (t *Tile) completeDmem(respData uint32) {
	switch t.dmemOp {
	case dmemLW:
		t.WriteReg(uint32(t.dmemRd), respData)
	case dmemLB:
		shift := (t.dmemAddr & 0x3) * 8
		b := int8(respData >> shift)
		t.WriteReg(uint32(t.dmemRd), uint32(int32(b)))
	case dmemLBU:
		shift := (t.dmemAddr & 0x3) * 8
		t.WriteReg(uint32(t.dmemRd), (respData>>shift)&0xFF)
	case dmemLH:
		shift := (t.dmemAddr & 0x2) * 8
		h := int16(respData >> shift)
		t.WriteReg(uint32(t.dmemRd), uint32(int32(h)))
	case dmemLHU:
		shift := (t.dmemAddr & 0x2) * 8
		t.WriteReg(uint32(t.dmemRd), (respData>>shift)&0xFFFF)
	case dmemSW:
		// Write already drained; nothing to retire into registers.
	case dmemSB, dmemSH:
		if !t.dmemRMWIssued {
			merged := (respData &^ t.dmemStoreMask) |
				((t.dmemStoreData << t.dmemStoreShift) & t.dmemStoreMask)
			if !t.memPort.CanRequest() {
				panic("tile: SB/SH read-modify-write phase requires a request slot")
			}
			t.memPort.RequestWrite32(t.dmemAddr&^uint32(0x3), merged)
			t.dmemRMWIssued = true
			t.dmemStoreData = merged
			// Still part of the same in-order store; the PC commits
			// only when the write response arrives.
			return
		}
	case dmemNone:
		panic("tile: completeDmem called with no active dmem op")
	}

	t.pc = t.dmemNextPC
	t.dmemWait = false
	t.dmemOp = dmemNone
	t.dmemRMWIssued = false
	t.dmemRd = 0
	t.dmemAddr = 0
	t.dmemStoreData = 0
	t.dmemStoreMask = 0
	t.dmemStoreShift = 0
	t.dmemNextPC = 0
	t.regs[0] = 0
}

// Reset returns the core to its power-on state.
func (t *Tile) Reset() {
	t.pc = 0
	t.lastPC = 0
	t.lastInstr = 0
	t.regs = [32]uint32{}
	t.ifetchWait = false
	t.ifetchValid = false
	t.ifetchWord = 0
	t.dmemWait = false
	t.dmemOp = dmemNone
	t.dmemRMWIssued = false
	t.dmemRd = 0
	t.dmemAddr = 0
	t.dmemStoreData = 0
	t.dmemStoreMask = 0
	t.dmemStoreShift = 0
	t.dmemNextPC = 0
	t.halted = false
	t.exited = false
	t.exitCode = 0
	t.instCount = 0
	t.arithCount = 0
	t.addCount = 0
	t.mulCount = 0
	t.loadCount = 0
	t.storeCount = 0
	t.branchCount = 0
	t.branchTakenCount = 0
	t.trapPending = false
	t.pendingTrap = TrapEnvironmentCallFromUMode
	t.pcOverridePending = false
	t.pcOverrideValue = 0
	t.privMode = PrivMachine
	t.trapCSRs = trapCSRState{}
	t.csrs = map[uint32]uint32{}
	t.trapCount = 0
	t.lastTrapCause = 0
}

// PC returns the program counter.
func (t *Tile) PC() uint32 { return t.pc }

// SetPC forces the program counter, discarding any queued override.
func (t *Tile) SetPC(pc uint32) {
	t.pc = pc
	t.pcOverridePending = false
}

// LastPC returns the address of the most recently fetched instruction.
func (t *Tile) LastPC() uint32 { return t.lastPC }

// LastInstr returns the most recently fetched instruction word.
func (t *Tile) LastInstr() uint32 { return t.lastInstr }

// Reg reads a register; out-of-range indices read as zero.
func (t *Tile) Reg(idx uint32) uint32 {
	if idx >= 32 {
		return 0
	}
	return t.regs[idx]
}

// WriteReg writes a register. Writes to x0 and out-of-range indices are
// dropped.
func (t *Tile) WriteReg(idx, value uint32) {
	if idx == 0 || idx >= 32 {
		return
	}
	t.regs[idx] = value
	t.log.Debugf("x%d <= 0x%x", idx, value)
}

// Halted reports whether the core has stopped.
func (t *Tile) Halted() bool { return t.halted }

// Halt stops the core; no further fetch, execute, or memory requests are
// issued.
func (t *Tile) Halt() {
	t.halted = true
	t.log.Debugf("halted")
}

// HasExited reports whether the running program finished intentionally.
func (t *Tile) HasExited() bool { return t.exited }

// ExitCode returns the recorded exit code.
func (t *Tile) ExitCode() uint32 { return t.exitCode }

// RequestExit records a normal program exit and halts the core. The exit
// syscall itself is detected by the external harness on trap entry.
func (t *Tile) RequestExit(code uint32) {
	t.exitCode = code
	t.exited = true
	t.halted = true
}

// InstCount returns the number of instructions that committed decode.
func (t *Tile) InstCount() uint64 { return t.instCount }

// ArithCount returns the number of ALU-category instructions.
func (t *Tile) ArithCount() uint64 { return t.arithCount }

// AddCount returns the number of ADD/SUB instructions.
func (t *Tile) AddCount() uint64 { return t.addCount }

// MulCount returns the number of MUL instructions.
func (t *Tile) MulCount() uint64 { return t.mulCount }

// LoadCount returns the number of load instructions.
func (t *Tile) LoadCount() uint64 { return t.loadCount }

// StoreCount returns the number of store instructions.
func (t *Tile) StoreCount() uint64 { return t.storeCount }

// BranchCount returns the number of branch instructions.
func (t *Tile) BranchCount() uint64 { return t.branchCount }

// BranchTakenCount returns the number of branches whose direction was
// taken.
func (t *Tile) BranchTakenCount() uint64 { return t.branchTakenCount }

// TrapCount returns the number of traps taken since reset. Collaborators
// compare successive values to observe trap entries.
func (t *Tile) TrapCount() uint64 { return t.trapCount }

// LastTrapCause returns the cause of the most recently taken trap.
func (t *Tile) LastTrapCause() TrapCause { return t.lastTrapCause }
