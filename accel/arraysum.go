// Package accel provides the accelerators that plug into the SMARC SoC:
// the custom-0 array-sum unit dispatched by the tile core, and the
// standalone vector-add unit from the NN-accelerator bring-up. Each
// accelerator holds an explicit handle to the memory port it targets,
// passed at construction.
package accel

import "github.com/emilitronic/smarc/mem"

// ArraySum sums a contiguous array of 32-bit words. The tile dispatches
// it through custom-0 with rs1 = base address and rs2 = length in words;
// the sum is written back to rd.
type ArraySum struct {
	port mem.Port
}

// NewArraySum creates an array-sum accelerator backed by port.
func NewArraySum(port mem.Port) *ArraySum {
	if port == nil {
		panic("accel: ArraySum requires a memory port")
	}
	return &ArraySum{port: port}
}

// Execute reads rs2 words starting at rs1 through the synchronous port
// path and returns their sum. The accesses count as part of the
// dispatching instruction's cycle.
func (a *ArraySum) Execute(rs1, rs2 uint32) (uint32, bool) {
	var sum uint32
	for i := uint32(0); i < rs2; i++ {
		sum += a.port.Read32(rs1 + i*4)
	}
	return sum, true
}
