package gf16

import "encoding/binary"

// MulAdd accumulates c*src into dst, treating both as little-endian 16-bit words.
// dst must be at least as long as src; a trailing odd byte of src is ignored.
func (t *Table) MulAdd(dst, src []byte, c uint16) {
	if c == 0 {
		return
	}

	n := len(src) &^ 1
	if c == 1 {
		for i := 0; i < n; i++ {
			dst[i] ^= src[i]
		}
		return
	}

	lc := uint32(t.log[c])
	for i := 0; i < n; i += 2 {
		w := binary.LittleEndian.Uint16(src[i:])
		if w == 0 {
			continue
		}

		sum := uint32(t.log[w]) + lc
		if sum >= Limit {
			sum -= Limit
		}

		p := t.antilog[sum]
		dst[i] ^= byte(p)
		dst[i+1] ^= byte(p >> 8)
	}
}
