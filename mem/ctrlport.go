package mem

// CtrlPort is a queued memory controller in front of a backing Port.
// Unlike TimedPort it holds a whole pipeline of aging requests:
//
//   - each accepted request carries its own latency countdown;
//   - stores can be acknowledged "posted" (as soon as they are queued) or
//     non-posted (only when they drain to the backing store);
//   - a read that hits a still-queued store forwards the store data
//     instead of going to the backing store.
//
// Toward the core it keeps the Port contract: one outstanding request,
// one response latch.
type CtrlPort struct {
	backing Port
	latency int
	posted  bool

	queue []ctrlReq

	// Core-side transaction state. At most one of pendingRead,
	// pendingWrite, forward is active at a time.
	pendingRead  bool
	pendingWrite bool
	forward      bool
	forwardData  uint32

	respValid bool
	respData  uint32
}

type ctrlReq struct {
	write bool
	addr  uint32
	wdata uint32
	cnt   int
}

// NewCtrlPort creates a queued controller over backing with the given
// per-request latency. Writes are posted by default.
func NewCtrlPort(backing Port, latency int) *CtrlPort {
	if backing == nil {
		panic("mem: CtrlPort requires a backing port")
	}
	if latency < 0 {
		latency = 0
	}
	return &CtrlPort{backing: backing, latency: latency, posted: true}
}

// SetPostedWrites selects posted (ack on accept) or non-posted (ack on
// drain) store acknowledgement.
func (p *CtrlPort) SetPostedWrites(en bool) { p.posted = en }

// SetLatency changes the latency applied to subsequently accepted
// requests; queued requests keep their countdowns.
func (p *CtrlPort) SetLatency(v int) {
	if v < 0 {
		v = 0
	}
	p.latency = v
}

// WritesEmpty reports whether no stores remain queued. Fence helpers use
// this to wait for the store pipeline to drain.
func (p *CtrlPort) WritesEmpty() bool {
	for _, q := range p.queue {
		if q.write {
			return false
		}
	}
	return true
}

// Read32 bypasses the queue and reads the backing store.
func (p *CtrlPort) Read32(addr uint32) uint32 {
	return p.backing.Read32(addr)
}

// Write32 bypasses the queue and writes the backing store.
func (p *CtrlPort) Write32(addr, value uint32) {
	p.backing.Write32(addr, value)
}

// Cycle ages the queue, drains the front entry when its countdown hits
// zero, and latches whichever core-side response became ready.
func (p *CtrlPort) Cycle() {
	for i := range p.queue {
		if p.queue[i].cnt > 0 {
			p.queue[i].cnt--
		}
	}

	if len(p.queue) > 0 && p.queue[0].cnt == 0 {
		head := p.queue[0]
		p.queue = p.queue[1:]
		if head.write {
			p.backing.Write32(head.addr, head.wdata)
			if p.pendingWrite && !p.posted && !p.respValid {
				p.respData = 0
				p.respValid = true
				p.pendingWrite = false
			}
		} else if !p.respValid {
			p.respData = p.backing.Read32(head.addr)
			p.respValid = true
			p.pendingRead = false
		}
	}

	if p.forward && !p.respValid {
		p.respData = p.forwardData
		p.respValid = true
		p.forward = false
	}
	if p.pendingWrite && p.posted && !p.respValid {
		p.respData = 0
		p.respValid = true
		p.pendingWrite = false
	}
}

// CanRequest reports whether a new request may be issued.
func (p *CtrlPort) CanRequest() bool {
	return !p.respValid && !p.pendingRead && !p.pendingWrite && !p.forward
}

// RequestRead32 starts a read of addr. A hit against a queued store
// forwards that store's data; the queued store still drains to the
// backing store.
func (p *CtrlPort) RequestRead32(addr uint32) {
	if !p.CanRequest() {
		panic("mem: CtrlPort read request issued while busy")
	}
	if data, ok := p.findPendingStore(addr); ok {
		p.forward = true
		p.forwardData = data
		return
	}
	p.queue = append(p.queue, ctrlReq{addr: addr, cnt: p.latency})
	p.pendingRead = true
}

// RequestWrite32 queues a store of value to addr.
func (p *CtrlPort) RequestWrite32(addr, value uint32) {
	if !p.CanRequest() {
		panic("mem: CtrlPort write request issued while busy")
	}
	p.queue = append(p.queue, ctrlReq{write: true, addr: addr, wdata: value, cnt: p.latency})
	p.pendingWrite = true
}

// RespValid reports whether a response is latched.
func (p *CtrlPort) RespValid() bool { return p.respValid }

// RespData returns the latched response data.
func (p *CtrlPort) RespData() uint32 { return p.respData }

// RespConsume frees the response latch.
func (p *CtrlPort) RespConsume() { p.respValid = false }

// findPendingStore scans newest-first for a queued store to the same
// word.
func (p *CtrlPort) findPendingStore(addr uint32) (uint32, bool) {
	for i := len(p.queue) - 1; i >= 0; i-- {
		if p.queue[i].write && p.queue[i].addr == addr {
			return p.queue[i].wdata, true
		}
	}
	return 0, false
}
