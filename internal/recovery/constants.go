package recovery

import "github.com/javi11/parchive/internal/gf16"

const (
	// MaxSlices is the number of distinct slice constants the field offers.
	MaxSlices = 32768

	// MaxExponent is the largest usable recovery exponent.
	MaxExponent = gf16.Limit - 1
)

// degenerate reports whether 2^n fails to generate the whole field.
func degenerate(n uint32) bool {
	return n%3 == 0 || n%5 == 0 || n%17 == 0 || n%257 == 0
}

// sliceLogs returns the base-2 logarithms of the constants of the first n
// slices: the positive integers that are not multiples of 3, 5, 17 or 257.
func sliceLogs(n int) []uint32 {
	logs := make([]uint32, 0, n)
	for l := uint32(1); len(logs) < n; l++ {
		if !degenerate(l) {
			logs = append(logs, l)
		}
	}
	return logs
}

// coefficient is the factor slice log l contributes to the recovery slice with
// exponent e: (2^l)^e.
func coefficient(t *gf16.Table, l, e uint32) uint16 {
	return t.Exp(uint32((uint64(l) * uint64(e)) % gf16.Limit))
}

func sliceCount(length, sliceSize int64) int {
	return int((length + sliceSize - 1) / sliceSize)
}
