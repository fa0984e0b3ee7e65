package tile

// TrapCause identifies why a trap was taken, using the RV32 mcause
// encodings.
type TrapCause uint32

// Trap causes.
const (
	TrapIllegalInstruction       TrapCause = 2
	TrapBreakpoint               TrapCause = 3
	TrapEnvironmentCallFromUMode TrapCause = 8
	TrapEnvironmentCallFromSMode TrapCause = 9
	TrapEnvironmentCallFromMMode TrapCause = 11
)

// PrivMode tracks the current privilege level alongside the trap CSRs.
type PrivMode uint32

// Privilege modes.
const (
	PrivUser       PrivMode = 0
	PrivSupervisor PrivMode = 1
	PrivMachine    PrivMode = 3
)

// Machine-mode CSR addresses.
const (
	CSRMstatus = 0x300
	CSRMtvec   = 0x305
	CSRMepc    = 0x341
	CSRMcause  = 0x342
)

// mstatus bit layout.
const (
	MstatusMIE           = uint32(1) << 3
	MstatusMPIE          = uint32(1) << 7
	MstatusMPPShift      = 11
	MstatusMPPMask       = uint32(3) << MstatusMPPShift
	MstatusMPPUser       = uint32(0) << MstatusMPPShift
	MstatusMPPSupervisor = uint32(1) << MstatusMPPShift
	MstatusMPPMachine    = uint32(3) << MstatusMPPShift
)

// trapCSRState keeps the hot machine-mode CSRs in named fields; the long
// tail lives in the Tile's sparse map.
type trapCSRState struct {
	mstatus uint32
	mtvec   uint32
	mepc    uint32
	mcause  uint32
}

func encodeMPP(mode PrivMode) uint32 {
	switch mode {
	case PrivMachine:
		return MstatusMPPMachine
	case PrivSupervisor:
		return MstatusMPPSupervisor
	default:
		return MstatusMPPUser
	}
}

func decodeMPP(mstatus uint32) PrivMode {
	switch (mstatus & MstatusMPPMask) >> MstatusMPPShift {
	case 3:
		return PrivMachine
	case 1:
		return PrivSupervisor
	default:
		return PrivUser
	}
}

// ReadCSR returns the value of a CSR. Unknown addresses route through the
// sparse map and read as zero until written.
func (t *Tile) ReadCSR(addr uint32) uint32 {
	switch addr {
	case CSRMstatus:
		return t.trapCSRs.mstatus
	case CSRMtvec:
		return t.trapCSRs.mtvec
	case CSRMepc:
		return t.trapCSRs.mepc
	case CSRMcause:
		return t.trapCSRs.mcause
	}
	return t.csrs[addr]
}

// WriteCSR stores a CSR value, routing unknown addresses to the sparse
// map.
func (t *Tile) WriteCSR(addr, value uint32) {
	switch addr {
	case CSRMstatus:
		t.trapCSRs.mstatus = value
	case CSRMtvec:
		t.trapCSRs.mtvec = value
	case CSRMepc:
		t.trapCSRs.mepc = value
	case CSRMcause:
		t.trapCSRs.mcause = value
	default:
		t.csrs[addr] = value
	}
	t.log.Debugf("csr[0x%x] <= 0x%x", addr, value)
}

// Mstatus returns the machine status register.
func (t *Tile) Mstatus() uint32 { return t.trapCSRs.mstatus }

// Mtvec returns the trap vector base.
func (t *Tile) Mtvec() uint32 { return t.trapCSRs.mtvec }

// Mepc returns the trap return address.
func (t *Tile) Mepc() uint32 { return t.trapCSRs.mepc }

// Mcause returns the cause of the most recent trap.
func (t *Tile) Mcause() uint32 { return t.trapCSRs.mcause }

// PrivMode returns the current privilege mode.
func (t *Tile) PrivMode() PrivMode { return t.privMode }

// RequestTrap latches a trap cause to be taken at the end of the current
// tick.
func (t *Tile) RequestTrap(cause TrapCause) {
	t.trapPending = true
	t.pendingTrap = cause
}

// RequestIllegalInstruction latches an illegal-instruction trap.
func (t *Tile) RequestIllegalInstruction() {
	t.RequestTrap(TrapIllegalInstruction)
}

// TrapPending reports whether a trap is latched for this tick.
func (t *Tile) TrapPending() bool { return t.trapPending }

// PendingTrapCause returns the latched cause.
func (t *Tile) PendingTrapCause() TrapCause { return t.pendingTrap }

// RaiseTrap enters the trap handler: records mepc/mcause, pushes the
// privilege mode and interrupt-enable state into mstatus, and redirects
// the PC to mtvec (direct vectoring; mode bits are ignored).
func (t *Tile) RaiseTrap(cause TrapCause) {
	t.trapPending = false
	t.trapCSRs.mepc = t.lastPC
	t.trapCSRs.mcause = uint32(cause)

	prevMode := t.privMode
	mstatus := t.trapCSRs.mstatus
	mie := mstatus & MstatusMIE
	mstatus &^= MstatusMPIE
	if mie != 0 {
		mstatus |= MstatusMPIE
	}
	mstatus &^= MstatusMIE
	mstatus = (mstatus &^ MstatusMPPMask) | encodeMPP(prevMode)
	t.trapCSRs.mstatus = mstatus

	t.pcOverridePending = false
	t.log.Debugf("trap: cause=%d mtvec=0x%x mepc=0x%x",
		uint32(cause), t.trapCSRs.mtvec, t.trapCSRs.mepc)
	t.pc = t.trapCSRs.mtvec
	t.regs[0] = 0
	t.privMode = PrivMachine

	t.trapCount++
	t.lastTrapCause = cause
}

// ResumeFromTrap implements MRET: queues a PC override to mepc, restores
// MIE from MPIE, sets MPIE, and pops the privilege mode out of MPP, which
// is then cleared to User.
func (t *Tile) ResumeFromTrap() {
	t.pcOverridePending = true
	t.pcOverrideValue = t.trapCSRs.mepc

	mstatus := t.trapCSRs.mstatus
	mpie := mstatus & MstatusMPIE
	mstatus &^= MstatusMIE
	if mpie != 0 {
		mstatus |= MstatusMIE
	}
	mstatus |= MstatusMPIE
	t.privMode = decodeMPP(mstatus)
	mstatus = (mstatus &^ MstatusMPPMask) | MstatusMPPUser
	t.trapCSRs.mstatus = mstatus
	t.log.Debugf("mret -> pc=0x%x", t.pcOverrideValue)
}
