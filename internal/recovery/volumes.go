package recovery

import "github.com/javi11/parchive/internal/par2"

// planVolumes splits count exponents starting at 1 into volumes of 1, 2, 4, ...
// slices. The last volume takes whatever remains.
func planVolumes(count int) []par2.ExponentRange {
	var volumes []par2.ExponentRange

	first, size := uint32(1), 1
	for remaining := count; remaining > 0; {
		n := min(size, remaining)
		volumes = append(volumes, par2.ExponentRange{First: first, Last: first + uint32(n) - 1})

		first += uint32(n)
		remaining -= n
		size *= 2
	}

	return volumes
}
