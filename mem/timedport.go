package mem

// TimedPort sits in front of a backing Port and forces each timed
// transaction to take a fixed number of cycles before the response
// appears. The synchronous Read32/Write32 path passes straight through,
// so loaders, debuggers, and accelerators see no delay.
//
// A request issued on cycle t with latency L produces a valid response no
// earlier than cycle t+L. Latency 0 still requires one Cycle() call: the
// request cycle and the service cycle are distinct.
type TimedPort struct {
	backing Port
	latency int

	inFlight bool
	isWrite  bool
	reqAddr  uint32
	reqWData uint32
	cnt      int

	respValid bool
	respData  uint32
}

// NewTimedPort wraps backing with a fixed latency in cycles. Negative
// latencies clamp to zero.
func NewTimedPort(backing Port, latency int) *TimedPort {
	if backing == nil {
		panic("mem: TimedPort requires a backing port")
	}
	if latency < 0 {
		latency = 0
	}
	return &TimedPort{backing: backing, latency: latency}
}

// SetLatency changes the latency applied to subsequent requests.
// In-flight transactions keep their original countdown.
func (p *TimedPort) SetLatency(v int) {
	if v < 0 {
		v = 0
	}
	p.latency = v
}

// Latency returns the configured latency in cycles.
func (p *TimedPort) Latency() int { return p.latency }

// Read32 bypasses the timed channel and reads the backing store.
func (p *TimedPort) Read32(addr uint32) uint32 {
	return p.backing.Read32(addr)
}

// Write32 bypasses the timed channel and writes the backing store.
func (p *TimedPort) Write32(addr, value uint32) {
	p.backing.Write32(addr, value)
}

// Cycle advances the countdown and services the transaction when it
// matures: writes drain to the backing store, reads latch their data.
func (p *TimedPort) Cycle() {
	if p.inFlight && p.cnt > 0 {
		p.cnt--
	}
	if p.inFlight && p.cnt == 0 && !p.respValid {
		if p.isWrite {
			p.backing.Write32(p.reqAddr, p.reqWData)
			p.respData = 0
		} else {
			p.respData = p.backing.Read32(p.reqAddr)
		}
		p.respValid = true
		p.inFlight = false
	}
}

// CanRequest reports whether a new request may be issued.
func (p *TimedPort) CanRequest() bool {
	return !p.inFlight && !p.respValid
}

// RequestRead32 starts a timed read of addr.
func (p *TimedPort) RequestRead32(addr uint32) {
	if !p.CanRequest() {
		panic("mem: TimedPort read request issued while busy")
	}
	p.inFlight = true
	p.isWrite = false
	p.reqAddr = addr
	p.cnt = p.latency
}

// RequestWrite32 starts a timed write of value to addr.
func (p *TimedPort) RequestWrite32(addr, value uint32) {
	if !p.CanRequest() {
		panic("mem: TimedPort write request issued while busy")
	}
	p.inFlight = true
	p.isWrite = true
	p.reqAddr = addr
	p.reqWData = value
	p.cnt = p.latency
}

// RespValid reports whether a response is latched.
func (p *TimedPort) RespValid() bool { return p.respValid }

// RespData returns the latched response data.
func (p *TimedPort) RespData() uint32 { return p.respData }

// RespConsume frees the response latch.
func (p *TimedPort) RespConsume() { p.respValid = false }
