package par2

import (
	"bytes"
	"errors"
	"io"
)

// HasMagicBytes checks if the provided data starts with the PAR2 magic signature.
func HasMagicBytes(data []byte) bool {
	if len(data) < len(MagicBytes) {
		return false
	}

	for i := range MagicBytes {
		if data[i] != MagicBytes[i] {
			return false
		}
	}

	return true
}

// ContainsSignature reports whether a packet signature occurs anywhere in the
// first size bytes of r. A file whose leading packet is damaged still counts.
func ContainsSignature(r io.ReaderAt, size int64) (bool, error) {
	buf := make([]byte, scanWindow)
	overlap := int64(len(MagicBytes) - 1)

	for pos := int64(0); pos < size; {
		n, err := r.ReadAt(buf[:min(int64(len(buf)), size-pos)], pos)
		if (pos == 0 && HasMagicBytes(buf[:n])) || bytes.Contains(buf[:n], MagicBytes[:]) {
			return true, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		if n == 0 || int64(n) <= overlap {
			break
		}
		pos += int64(n) - overlap
	}

	return false, nil
}
