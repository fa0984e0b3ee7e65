package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emilitronic/smarc/mem"
)

var _ = Describe("CtrlPort", func() {
	var (
		dram *mem.DRAM
		port *mem.CtrlPort
	)

	newPort := func(latency int) *mem.CtrlPort {
		dram = mem.NewDRAM(16*1024, 0)
		return mem.NewCtrlPort(mem.NewDRAMPort(dram), latency)
	}

	It("should deliver reads with the configured latency", func() {
		port = newPort(2)
		port.Write32(0x40, 0x1234)

		port.RequestRead32(0x40)
		port.Cycle()
		Expect(port.RespValid()).To(BeFalse())
		port.Cycle()
		Expect(port.RespValid()).To(BeTrue())
		Expect(port.RespData()).To(Equal(uint32(0x1234)))
	})

	It("should acknowledge posted writes before they drain", func() {
		port = newPort(3)

		port.RequestWrite32(0x80, 0xAA)
		port.Cycle()
		// Ack arrives while the store is still queued.
		Expect(port.RespValid()).To(BeTrue())
		Expect(port.RespData()).To(Equal(uint32(0)))
		Expect(port.WritesEmpty()).To(BeFalse())
		Expect(port.Read32(0x80)).To(Equal(uint32(0)))

		port.RespConsume()
		port.Cycle()
		port.Cycle()
		Expect(port.WritesEmpty()).To(BeTrue())
		Expect(port.Read32(0x80)).To(Equal(uint32(0xAA)))
	})

	It("should hold the non-posted write ack until the drain", func() {
		port = newPort(2)
		port.SetPostedWrites(false)

		port.RequestWrite32(0x80, 0xBB)
		port.Cycle()
		Expect(port.RespValid()).To(BeFalse())
		port.Cycle()
		Expect(port.RespValid()).To(BeTrue())
		Expect(port.Read32(0x80)).To(Equal(uint32(0xBB)))
		Expect(port.WritesEmpty()).To(BeTrue())
	})

	It("should forward a read that hits a queued store", func() {
		port = newPort(4)

		port.RequestWrite32(0x100, 0xCAFE)
		port.Cycle()
		port.RespConsume() // posted ack

		// The store is still aging in the queue; the read must see its
		// data without touching the backing store.
		port.RequestRead32(0x100)
		port.Cycle()
		Expect(port.RespValid()).To(BeTrue())
		Expect(port.RespData()).To(Equal(uint32(0xCAFE)))

		port.RespConsume()
		for i := 0; i < 4; i++ {
			port.Cycle()
		}
		Expect(port.Read32(0x100)).To(Equal(uint32(0xCAFE)))
	})

	It("should keep the single-outstanding contract toward the core", func() {
		port = newPort(2)

		port.RequestRead32(0x0)
		Expect(port.CanRequest()).To(BeFalse())
		Expect(func() { port.RequestRead32(0x4) }).To(Panic())

		port.Cycle()
		port.Cycle()
		Expect(port.RespValid()).To(BeTrue())
		Expect(port.CanRequest()).To(BeFalse())
		port.RespConsume()
		Expect(port.CanRequest()).To(BeTrue())
	})
})
