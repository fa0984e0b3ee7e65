package mem

import "encoding/binary"

// DefaultDRAMSize is the capacity used by the SoC bring-up.
const DefaultDRAMSize = 256 * 1024 * 1024

// DRAM models a flat little-endian byte-addressable store. Address
// baseAddr maps to byte 0 of the array. Reads below the base or past the
// end zero-fill the destination; out-of-range writes are dropped. A bump
// cursor provides host-side allocation with no alignment rounding and no
// free.
type DRAM struct {
	data     []byte
	baseAddr uint64
	nextAddr uint64
}

// NewDRAM creates a DRAM of the given capacity whose byte 0 sits at base.
func NewDRAM(size int, base uint64) *DRAM {
	return &DRAM{
		data:     make([]byte, size),
		baseAddr: base,
	}
}

// Base returns the physical address mapped to byte 0.
func (d *DRAM) Base() uint64 { return d.baseAddr }

// Size returns the capacity in bytes.
func (d *DRAM) Size() uint64 { return uint64(len(d.data)) }

// Alloc returns the current bump cursor as a physical address and
// advances it by the requested byte count. There is no deallocation and
// no out-of-memory check.
func (d *DRAM) Alloc(bytes uint64) uint64 {
	addr := d.baseAddr + d.nextAddr
	d.nextAddr += bytes
	return addr
}

// ResetAlloc rewinds the bump cursor to the base of the array.
func (d *DRAM) ResetAlloc() { d.nextAddr = 0 }

// Read copies len(dst) bytes starting at addr into dst. Any access that
// falls below the base or past the end zero-fills the whole destination.
func (d *DRAM) Read(addr uint64, dst []byte) {
	if addr < d.baseAddr {
		zero(dst)
		return
	}
	off := addr - d.baseAddr
	n := uint64(len(dst))
	if off > uint64(len(d.data)) || n > uint64(len(d.data))-off {
		zero(dst)
		return
	}
	copy(dst, d.data[off:off+n])
}

// Write copies src into the array starting at addr. Out-of-range writes
// are dropped.
func (d *DRAM) Write(addr uint64, src []byte) {
	if addr < d.baseAddr {
		return
	}
	off := addr - d.baseAddr
	n := uint64(len(src))
	if off > uint64(len(d.data)) || n > uint64(len(d.data))-off {
		return
	}
	copy(d.data[off:off+n], src)
}

// Read8 reads one byte.
func (d *DRAM) Read8(addr uint64) uint8 {
	var buf [1]byte
	d.Read(addr, buf[:])
	return buf[0]
}

// Read16 reads a little-endian halfword.
func (d *DRAM) Read16(addr uint64) uint16 {
	var buf [2]byte
	d.Read(addr, buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

// Read32 reads a little-endian word.
func (d *DRAM) Read32(addr uint64) uint32 {
	var buf [4]byte
	d.Read(addr, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// Read64 reads a little-endian doubleword.
func (d *DRAM) Read64(addr uint64) uint64 {
	var buf [8]byte
	d.Read(addr, buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Write8 writes one byte.
func (d *DRAM) Write8(addr uint64, v uint8) {
	d.Write(addr, []byte{v})
}

// Write16 writes a little-endian halfword.
func (d *DRAM) Write16(addr uint64, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	d.Write(addr, buf[:])
}

// Write32 writes a little-endian word.
func (d *DRAM) Write32(addr uint64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	d.Write(addr, buf[:])
}

// Write64 writes a little-endian doubleword.
func (d *DRAM) Write64(addr uint64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.Write(addr, buf[:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
