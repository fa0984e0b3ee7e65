// Package mem provides the memory hierarchy of the SMARC tile SoC: the
// backing DRAM model and the ports the tile core and host-side helpers use
// to reach it.
//
// A Port carries two independent channels:
//
//   - Synchronous Read32/Write32 helpers for the loader, debugger, and
//     accelerators. They act on the backing store immediately and never
//     disturb the timed channel.
//   - A timed request/response channel driven by Cycle(), with at most one
//     transaction outstanding at any time.
package mem

// Port is the capability set the tile core consumes. Implementations must
// hold at most one transaction in flight; issuing a request while
// CanRequest() is false is a caller bug and panics.
type Port interface {
	// Read32 reads a word from the backing store immediately.
	Read32(addr uint32) uint32

	// Write32 writes a word to the backing store immediately.
	Write32(addr, value uint32)

	// Cycle advances the port by one time step.
	Cycle()

	// CanRequest reports whether a new timed request may be issued:
	// nothing in flight and no response latched.
	CanRequest() bool

	// RequestRead32 initiates a timed read transaction.
	RequestRead32(addr uint32)

	// RequestWrite32 initiates a timed write transaction.
	RequestWrite32(addr, value uint32)

	// RespValid reports whether a response is latched.
	RespValid() bool

	// RespData returns the latched response data. Write transactions
	// respond with 0.
	RespData() uint32

	// RespConsume dismisses the latched response, freeing the port for
	// the next request. Write responses must be consumed too.
	RespConsume()
}
