package recovery

import (
	"testing"

	"github.com/javi11/parchive/internal/gf16"
	"github.com/javi11/parchive/internal/par2"
	"github.com/stretchr/testify/assert"
)

func TestSliceLogs(t *testing.T) {
	assert.Equal(t, []uint32{1, 2, 4, 7, 8, 11, 13, 14, 16, 19}, sliceLogs(10))

	logs := sliceLogs(MaxSlices)
	assert.Len(t, logs, MaxSlices)
	for _, l := range logs {
		assert.False(t, degenerate(l))
		assert.Less(t, l, uint32(gf16.Limit))
	}
}

func TestCoefficient(t *testing.T) {
	tbl := gf16.Default

	for _, l := range sliceLogs(8) {
		c := tbl.Exp(l)
		for e := uint32(0); e < 5; e++ {
			assert.Equal(t, tbl.Pow(c, e), coefficient(tbl, l, e), "l=%d e=%d", l, e)
		}
	}
}

func TestSliceCount(t *testing.T) {
	assert.Equal(t, 0, sliceCount(0, 4))
	assert.Equal(t, 1, sliceCount(1, 4))
	assert.Equal(t, 1, sliceCount(4, 4))
	assert.Equal(t, 2, sliceCount(5, 4))
}

func TestPlanVolumes(t *testing.T) {
	assert.Empty(t, planVolumes(0))
	assert.Equal(t, []par2.ExponentRange{{First: 1, Last: 1}}, planVolumes(1))
	assert.Equal(t, []par2.ExponentRange{
		{First: 1, Last: 1},
		{First: 2, Last: 3},
		{First: 4, Last: 6},
	}, planVolumes(6))
	assert.Equal(t, []par2.ExponentRange{
		{First: 1, Last: 1},
		{First: 2, Last: 3},
		{First: 4, Last: 7},
		{First: 8, Last: 10},
	}, planVolumes(10))
}
