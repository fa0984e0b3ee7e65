package debugger

import (
	"fmt"
	"io"

	"github.com/emilitronic/smarc/tile"
)

// Memory flags the bundled trap handlers leave behind; the postmortem
// checks read them back to prove the handlers ran.
const (
	EcallFlagAddr       = 0x0104
	BreakpointFlagAddr  = 0x0108
	EcallFlagValue      = 0xDEAD
	BreakpointFlagValue = 0xBEEF
)

// VerifyPostmortem checks the invariants a program that did not exit
// cleanly must still satisfy, and writes a summary to out. The first
// violated check is returned as an error.
func VerifyPostmortem(s *State, out io.Writer) error {
	// Trap coverage: at least one breakpoint and one ecall trap across
	// threads.
	anyBreakpoint := false
	anyEcall := false
	for t := 0; t < MaxThreads; t++ {
		anyBreakpoint = anyBreakpoint || s.SawBreakpointTrap[t]
		anyEcall = anyEcall || s.SawEcallTrap[t]
	}
	if !anyBreakpoint {
		return fmt.Errorf("postmortem: breakpoint trap was not observed")
	}
	if !anyEcall {
		return fmt.Errorf("postmortem: ecall trap was not observed")
	}

	// Every recorded mepc must be 4-byte aligned.
	for t := 0; t < MaxThreads; t++ {
		if s.SawBreakpointTrap[t] && s.BreakpointMEPC[t]&0x3 != 0 {
			return fmt.Errorf("postmortem: breakpoint mepc 0x%08x misaligned", s.BreakpointMEPC[t])
		}
		if s.SawEcallTrap[t] && s.EcallMEPC[t]&0x3 != 0 {
			return fmt.Errorf("postmortem: ecall mepc 0x%08x misaligned", s.EcallMEPC[t])
		}
	}

	// The handlers must have left their memory flags behind.
	breakpointFlag := s.Mem.Read32(BreakpointFlagAddr)
	ecallFlag := s.Mem.Read32(EcallFlagAddr)
	if breakpointFlag != BreakpointFlagValue {
		return fmt.Errorf("postmortem: breakpoint flag at 0x%04x is 0x%x, want 0x%x",
			BreakpointFlagAddr, breakpointFlag, BreakpointFlagValue)
	}
	if ecallFlag != EcallFlagValue {
		return fmt.Errorf("postmortem: ecall flag at 0x%04x is 0x%x, want 0x%x",
			EcallFlagAddr, ecallFlag, EcallFlagValue)
	}

	// Handler-entry status: mstatus.MPP holds the previous mode
	// (Machine), and x0 is still zero.
	mstatus := s.Tile.Mstatus()
	if mstatus&tile.MstatusMPPMask != tile.MstatusMPPMachine {
		return fmt.Errorf("postmortem: mstatus.MPP does not hold Machine (mstatus=0x%08x)", mstatus)
	}
	if s.Tile.Reg(0) != 0 {
		return fmt.Errorf("postmortem: x0 is 0x%x, must remain zero", s.Tile.Reg(0))
	}

	fmt.Fprintf(out, "Cycle count: %d breakpoint flag=0x%x ecall flag=0x%x\n",
		s.Cycle+1, breakpointFlag, ecallFlag)
	fmt.Fprintf(out, "Trap summary:")
	for t := 0; t < MaxThreads; t++ {
		if s.SawBreakpointTrap[t] {
			fmt.Fprintf(out, " [T%d] breakpoint mepc=0x%x", t, s.BreakpointMEPC[t])
		}
		if s.SawEcallTrap[t] {
			fmt.Fprintf(out, " [T%d] ecall mepc=0x%x", t, s.EcallMEPC[t])
		}
	}
	fmt.Fprintf(out, " mcause=0x%x mstatus=0x%x\n", s.Tile.Mcause(), mstatus)
	return nil
}
