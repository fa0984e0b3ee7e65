package tile

// ThreadContext is a cooperative architectural snapshot: the PC and the
// 32 general registers. The core has no notion of threads beyond
// snapshot and restore; contexts are rotated by the external debugger or
// harness between logical quanta.
type ThreadContext struct {
	PC     uint32
	Regs   [32]uint32
	Active bool
}

// SaveContext copies the PC and register file into out. x0 is forced to
// zero in the snapshot.
func (t *Tile) SaveContext(out *ThreadContext) {
	out.PC = t.pc
	out.Regs = t.regs
	out.Regs[0] = 0
}

// LoadContext applies a snapshot: PC and registers are restored with x0
// forced to zero, and the halt/exit latches are cleared so the restored
// thread can run.
func (t *Tile) LoadContext(in *ThreadContext) {
	t.pc = in.PC
	t.regs = in.Regs
	t.regs[0] = 0
	t.halted = false
	t.exited = false
	t.exitCode = 0
}
