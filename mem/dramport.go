package mem

// DRAMPort adapts a DRAM to the Port interface. Port address 0 maps to
// the DRAM base. Timed requests complete in the same call: the response is
// latched immediately and stays until consumed, so the port still honors
// the single-outstanding contract.
type DRAMPort struct {
	dram      *DRAM
	respValid bool
	respData  uint32
}

// NewDRAMPort creates a direct adapter over dram.
func NewDRAMPort(dram *DRAM) *DRAMPort {
	if dram == nil {
		panic("mem: DRAMPort requires a backing DRAM")
	}
	return &DRAMPort{dram: dram}
}

// Read32 reads a word from the DRAM immediately.
func (p *DRAMPort) Read32(addr uint32) uint32 {
	return p.dram.Read32(p.dram.Base() + uint64(addr))
}

// Write32 writes a word to the DRAM immediately.
func (p *DRAMPort) Write32(addr, value uint32) {
	p.dram.Write32(p.dram.Base()+uint64(addr), value)
}

// Cycle is a no-op; the direct adapter has no latency to model.
func (p *DRAMPort) Cycle() {}

// CanRequest reports whether the response latch is free.
func (p *DRAMPort) CanRequest() bool {
	return !p.respValid
}

// RequestRead32 completes the read immediately and latches the response.
func (p *DRAMPort) RequestRead32(addr uint32) {
	if !p.CanRequest() {
		panic("mem: DRAMPort read request issued while busy")
	}
	p.respData = p.Read32(addr)
	p.respValid = true
}

// RequestWrite32 completes the write immediately and latches a zero
// response.
func (p *DRAMPort) RequestWrite32(addr, value uint32) {
	if !p.CanRequest() {
		panic("mem: DRAMPort write request issued while busy")
	}
	p.Write32(addr, value)
	p.respData = 0
	p.respValid = true
}

// RespValid reports whether a response is latched.
func (p *DRAMPort) RespValid() bool { return p.respValid }

// RespData returns the latched response data.
func (p *DRAMPort) RespData() uint32 { return p.respData }

// RespConsume frees the response latch.
func (p *DRAMPort) RespConsume() { p.respValid = false }
