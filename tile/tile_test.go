package tile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emilitronic/smarc/mem"
	"github.com/emilitronic/smarc/tile"
)

var _ = Describe("Tile", func() {
	Describe("loads and stores through the timed port", func() {
		It("should stall LW across the memory latency and still retire", func() {
			soc := newTimedSoC(3)
			soc.port.Write32(0x200, 0xCAFEBABE)
			soc.load(0, program(
				li(1, 0x200),
				lw(2, 1, 0),
				ecall,
			))

			Expect(soc.runUntilEcall(1000)).To(BeTrue())
			Expect(soc.core.Reg(2)).To(Equal(uint32(0xCAFEBABE)))
		})

		It("should extract and extend sub-word loads", func() {
			soc := newTimedSoC(1)
			soc.port.Write32(0x200, 0x80FF7F01)
			soc.load(0, program(
				li(1, 0x200),
				lb(2, 1, 0),  // 0x01
				lb(3, 1, 3),  // 0x80 -> sign-extended
				lbu(4, 1, 3), // 0x80 -> zero-extended
				lh(5, 1, 2),  // 0x80FF -> sign-extended
				lhu(6, 1, 2), // 0x80FF -> zero-extended
				lh(7, 1, 0),  // 0x7F01
				ecall,
			))

			Expect(soc.runUntilEcall(1000)).To(BeTrue())
			Expect(soc.core.Reg(2)).To(Equal(uint32(0x01)))
			Expect(soc.core.Reg(3)).To(Equal(uint32(0xFFFFFF80)))
			Expect(soc.core.Reg(4)).To(Equal(uint32(0x80)))
			Expect(soc.core.Reg(5)).To(Equal(uint32(0xFFFF80FF)))
			Expect(soc.core.Reg(6)).To(Equal(uint32(0x80FF)))
			Expect(soc.core.Reg(7)).To(Equal(uint32(0x7F01)))
		})

		It("should synthesize SB/SH as read-modify-write on the word port", func() {
			soc := newTimedSoC(2)
			soc.load(0, program(
				li(1, 0x200),
				sw(0, 1, 0),
				li(2, 0xAA), sb(2, 1, 0),
				li(3, 0x55), sb(3, 1, 1),
				li(4, 0xCC33), sh(4, 1, 2),
				lw(5, 1, 0),
				ecall,
			))

			Expect(soc.runUntilEcall(2000)).To(BeTrue())
			Expect(soc.core.Reg(5)).To(Equal(uint32(0xCC3355AA)))
			Expect(soc.port.Read32(0x200)).To(Equal(uint32(0xCC3355AA)))
		})

		It("should write byte lane 1 of word zero as 0x0000AA00", func() {
			soc := newTimedSoC(1)
			soc.load(0x100, program(
				li(2, 0xAA),
				sb(2, 0, 1),
				ecall,
			))
			soc.core.SetPC(0x100)

			Expect(soc.runUntilEcall(1000)).To(BeTrue())
			Expect(soc.port.Read32(0)).To(Equal(uint32(0x0000AA00)))
		})

		It("should keep the RMW pair atomic with respect to fetches", func() {
			dram := mem.NewDRAM(64*1024, 0)
			rec := &portRecorder{inner: mem.NewTimedPort(mem.NewDRAMPort(dram), 2)}
			core := tile.NewTile()
			core.AttachMemory(rec)
			soc := &testSoC{dram: dram, port: rec, core: core}
			soc.load(0, program(
				li(1, 0x200),
				li(2, 0xAB),
				sb(2, 1, 2),
				ecall,
			))

			Expect(soc.runUntilEcall(1000)).To(BeTrue())

			// The read half of the SB pair must be followed immediately
			// by its write half: no fetch or other request in between.
			found := false
			for i, req := range rec.log {
				if req.write && req.addr == 0x200 {
					found = true
					Expect(i).To(BeNumerically(">", 0))
					prev := rec.log[i-1]
					Expect(prev.write).To(BeFalse())
					Expect(prev.addr).To(Equal(uint32(0x200)))
				}
			}
			Expect(found).To(BeTrue())
		})

		It("should observe a store from the immediately following load", func() {
			soc := newTimedSoC(2)
			soc.load(0, program(
				li(1, 0x200),
				li(2, 0x11223344),
				sw(2, 1, 0),
				lw(3, 1, 0),
				addi(4, 3, 1),
				ecall,
			))

			Expect(soc.runUntilEcall(2000)).To(BeTrue())
			Expect(soc.core.Reg(3)).To(Equal(uint32(0x11223344)))
			Expect(soc.core.Reg(4)).To(Equal(uint32(0x11223345)))
		})
	})

	Describe("fetch timing", func() {
		It("should take two ticks per instruction on an immediate port", func() {
			soc := newDirectSoC()
			soc.load(0, program(addi(1, 0, 5), ecall))

			ticks, ok := soc.ticksUntilTrap(100)
			Expect(ok).To(BeTrue())
			Expect(ticks).To(Equal(4))
		})

		It("should stretch fetches by the timed-port latency", func() {
			soc := newTimedSoC(2)
			soc.load(0, program(addi(1, 0, 5), ecall))

			ticks, ok := soc.ticksUntilTrap(100)
			Expect(ok).To(BeTrue())
			Expect(ticks).To(Equal(6))
		})

		It("should not issue anything once halted", func() {
			soc := newDirectSoC()
			soc.load(0, program(addi(1, 0, 5), ecall))
			soc.core.Halt()

			pc := soc.core.PC()
			for i := 0; i < 10; i++ {
				soc.core.Tick()
			}
			Expect(soc.core.PC()).To(Equal(pc))
			Expect(soc.core.InstCount()).To(BeZero())
		})

		It("should idle without a memory port", func() {
			core := tile.NewTile()
			core.Tick()

			Expect(core.PC()).To(BeZero())
			Expect(core.InstCount()).To(BeZero())
		})
	})

	Describe("traps", func() {
		// Handler that advances mepc past the trapping instruction.
		handler := program(
			csrrs(5, tile.CSRMepc, 0),
			addi(5, 5, 4),
			csrrw(0, tile.CSRMepc, 5),
			mret,
		)

		It("should take EBREAK to mtvec with cause 3", func() {
			soc := newDirectSoC()
			soc.load(0, program(
				li(1, 0x80),
				csrrw(0, tile.CSRMtvec, 1),
				ebreak,
			))

			cause, ok := soc.runUntilTrap(1000)
			Expect(ok).To(BeTrue())
			Expect(cause).To(Equal(tile.TrapBreakpoint))
			Expect(soc.core.Mcause()).To(Equal(uint32(3)))
			Expect(soc.core.PC()).To(Equal(uint32(0x80)))
			Expect(soc.core.Mepc()).To(Equal(uint32(8)))
			Expect(soc.core.PrivMode()).To(Equal(tile.PrivMachine))
			Expect(soc.core.Mstatus() & tile.MstatusMPPMask).
				To(Equal(tile.MstatusMPPMachine))
		})

		It("should select the environment-call cause from the privilege mode", func() {
			soc := newDirectSoC()
			soc.load(0, program(ecall))

			cause, ok := soc.runUntilTrap(100)
			Expect(ok).To(BeTrue())
			Expect(cause).To(Equal(tile.TrapEnvironmentCallFromMMode))
			Expect(soc.core.Mcause()).To(Equal(uint32(11)))
		})

		It("should raise IllegalInstruction for unknown encodings", func() {
			soc := newDirectSoC()
			soc.load(0, []uint32{0x00000000})

			cause, ok := soc.runUntilTrap(100)
			Expect(ok).To(BeTrue())
			Expect(cause).To(Equal(tile.TrapIllegalInstruction))
			Expect(soc.core.Mepc()).To(Equal(uint32(0)))
		})

		It("should raise IllegalInstruction for unsupported funct combinations", func() {
			soc := newDirectSoC()
			// OP with funct7=0x7F is not RV32IM.
			soc.load(0, []uint32{encR(0x33, 1, 0x0, 1, 2, 0x7F)})

			cause, ok := soc.runUntilTrap(100)
			Expect(ok).To(BeTrue())
			Expect(cause).To(Equal(tile.TrapIllegalInstruction))
		})

		It("should clear MIE on entry and restore state on MRET", func() {
			soc := newDirectSoC()
			soc.load(0x80, handler)
			soc.load(0, program(
				li(1, 0x80),
				csrrw(0, tile.CSRMtvec, 1),
				csrrsi(0, tile.CSRMstatus, 0x8), // set MIE
				ebreak,                          // at 12
				addi(2, 0, 7),                   // resumed here
				ecall,
			))

			cause, ok := soc.runUntilTrap(1000)
			Expect(ok).To(BeTrue())
			Expect(cause).To(Equal(tile.TrapBreakpoint))
			// Entry: MPIE <- MIE, MIE cleared, MPP <- Machine.
			Expect(soc.core.Mstatus() & tile.MstatusMIE).To(BeZero())
			Expect(soc.core.Mstatus() & tile.MstatusMPIE).NotTo(BeZero())

			// Step until the instruction after the ebreak has retired
			// (PC 20), before the trailing ecall traps and rewrites mstatus.
			for i := 0; i < 1000 && soc.core.PC() != 20; i++ {
				soc.core.Tick()
			}
			Expect(soc.core.PC()).To(Equal(uint32(20)))
			// MRET ran: resumed past the ebreak, MIE restored from MPIE,
			// privilege back to Machine, MPP cleared to User.
			Expect(soc.core.Reg(2)).To(Equal(uint32(7)))
			Expect(soc.core.Mstatus() & tile.MstatusMIE).NotTo(BeZero())
			Expect(soc.core.Mstatus() & tile.MstatusMPIE).NotTo(BeZero())
			Expect(soc.core.PrivMode()).To(Equal(tile.PrivMachine))
			Expect(soc.core.Mstatus() & tile.MstatusMPPMask).
				To(Equal(tile.MstatusMPPUser))
		})

		It("should produce identical trap state from identical pre-state", func() {
			for i := 0; i < 2; i++ {
				soc := newDirectSoC()
				soc.load(0, program(
					li(1, 0x40),
					csrrw(0, tile.CSRMtvec, 1),
					ebreak,
				))
				cause, ok := soc.runUntilTrap(1000)
				Expect(ok).To(BeTrue())
				Expect(cause).To(Equal(tile.TrapBreakpoint))
				Expect(soc.core.Mcause()).To(Equal(uint32(3)))
				Expect(soc.core.PC()).To(Equal(uint32(0x40)))
			}
		})
	})

	Describe("counters", func() {
		It("should account every committed instruction exactly once", func() {
			soc := newDirectSoC()
			soc.load(0, program(
				addi(1, 0, 0x20), // alu
				add(2, 1, 1),     // alu, add
				sub(3, 2, 1),     // alu, add (subs count as adds)
				mul(4, 1, 1),     // alu, mul
				lw(5, 1, 0),      // load
				sw(5, 1, 0),      // store
				beq(1, 2, 8),     // branch, not taken
				bne(1, 2, 8),     // branch, taken (skips one alu)
				addi(6, 0, 99),
				jal(7, 4),        // jump
				ecall,            // system
			))

			Expect(soc.runUntilEcall(2000)).To(BeTrue())
			Expect(soc.core.InstCount()).To(Equal(uint64(10)))
			Expect(soc.core.ArithCount()).To(Equal(uint64(4)))
			Expect(soc.core.AddCount()).To(Equal(uint64(2)))
			Expect(soc.core.MulCount()).To(Equal(uint64(1)))
			Expect(soc.core.LoadCount()).To(Equal(uint64(1)))
			Expect(soc.core.StoreCount()).To(Equal(uint64(1)))
			Expect(soc.core.BranchCount()).To(Equal(uint64(2)))
			Expect(soc.core.BranchTakenCount()).To(Equal(uint64(1)))
			// Category counters sum to the instruction count.
			sum := soc.core.ArithCount() + soc.core.LoadCount() +
				soc.core.StoreCount() + soc.core.BranchCount() +
				2 // jal + ecall
			Expect(sum).To(Equal(soc.core.InstCount()))
		})
	})

	Describe("thread contexts", func() {
		It("should round-trip a context through a fresh core", func() {
			soc := newDirectSoC()
			soc.load(0, program(
				li(1, 0xABCD0123),
				addi(2, 0, 42),
				ecall,
			))
			Expect(soc.runUntilEcall(1000)).To(BeTrue())

			var saved tile.ThreadContext
			soc.core.SaveContext(&saved)

			fresh := tile.NewTile()
			fresh.LoadContext(&saved)
			var again tile.ThreadContext
			fresh.SaveContext(&again)

			Expect(again).To(Equal(saved))
		})

		It("should force x0 to zero and clear the exit latches on load", func() {
			core := tile.NewTile()
			core.RequestExit(3)
			Expect(core.Halted()).To(BeTrue())

			ctx := tile.ThreadContext{PC: 0x40}
			ctx.Regs[0] = 0xFFFF // must not survive
			ctx.Regs[5] = 7
			core.LoadContext(&ctx)

			Expect(core.PC()).To(Equal(uint32(0x40)))
			Expect(core.Reg(0)).To(BeZero())
			Expect(core.Reg(5)).To(Equal(uint32(7)))
			Expect(core.Halted()).To(BeFalse())
			Expect(core.HasExited()).To(BeFalse())
			Expect(core.ExitCode()).To(BeZero())
		})
	})

	Describe("timed versus ideal memory", func() {
		It("should agree on architectural state for a timing-independent program", func() {
			prog := program(
				li(1, 0x200),
				sw(0, 1, 0),
				li(2, 0xAA), sb(2, 1, 0),
				li(3, 0x55), sb(3, 1, 1),
				li(4, 0xCC33), sh(4, 1, 2),
				lw(5, 1, 0),
				lbu(6, 1, 1),
				lh(7, 1, 2),
				ecall,
			)

			timed := newTimedSoC(2)
			timed.load(0, prog)
			Expect(timed.runUntilEcall(5000)).To(BeTrue())

			ideal := newIdealSoC()
			ideal.load(0, prog)
			Expect(ideal.runUntilEcall(5000)).To(BeTrue())

			for r := uint32(0); r < 32; r++ {
				Expect(timed.core.Reg(r)).To(Equal(ideal.core.Reg(r)),
					"register x%d", r)
			}
			Expect(timed.port.Read32(0x200)).To(Equal(ideal.port.Read32(0x200)))
			Expect(timed.core.InstCount()).To(Equal(ideal.core.InstCount()))
		})
	})

	Describe("reset", func() {
		It("should return to the power-on state", func() {
			soc := newDirectSoC()
			soc.load(0, program(
				li(1, 0x40),
				csrrw(0, tile.CSRMtvec, 1),
				addi(2, 0, 9),
				ebreak,
			))
			_, ok := soc.runUntilTrap(1000)
			Expect(ok).To(BeTrue())

			soc.core.Reset()
			Expect(soc.core.PC()).To(BeZero())
			Expect(soc.core.Reg(1)).To(BeZero())
			Expect(soc.core.Reg(2)).To(BeZero())
			Expect(soc.core.Mtvec()).To(BeZero())
			Expect(soc.core.Mcause()).To(BeZero())
			Expect(soc.core.InstCount()).To(BeZero())
			Expect(soc.core.TrapCount()).To(BeZero())
			Expect(soc.core.PrivMode()).To(Equal(tile.PrivMachine))
		})
	})
})
