// Package loader loads flat little-endian binary images into a memory
// port. A flat binary is a raw byte image with no headers, placed at a
// fixed base address.
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/emilitronic/smarc/mem"
)

// ErrEmptyImage is returned when the binary file contains no bytes.
var ErrEmptyImage = errors.New("loader: empty binary image")

// LoadFlatBin reads the file at path and writes it into port starting at
// base: four bytes at a time, packed LSB-first into 32-bit words. A final
// partial word is padded with zeros on the high side and written as well.
// Returns the total number of bytes read (not words written).
func LoadFlatBin(path string, port mem.Port, base uint32) (uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("loader: %w", err)
	}
	if len(buf) == 0 {
		return 0, ErrEmptyImage
	}

	addr := base
	i := 0
	for ; i+4 <= len(buf); i, addr = i+4, addr+4 {
		w := uint32(buf[i]) |
			uint32(buf[i+1])<<8 |
			uint32(buf[i+2])<<16 |
			uint32(buf[i+3])<<24
		port.Write32(addr, w)
	}

	if i < len(buf) {
		var w uint32
		for shift := 0; i < len(buf); i, shift = i+1, shift+8 {
			w |= uint32(buf[i]) << shift
		}
		port.Write32(addr, w)
	}

	return uint32(len(buf)), nil
}
