package gf16

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_KnownValues(t *testing.T) {
	table := NewTable(Generator)

	assert.Equal(t, uint16(127), table.Add(15, 112))
	assert.Equal(t, uint16(720), table.Mul(15, 112))

	q, err := table.Div(15, 112)
	require.NoError(t, err)
	assert.Equal(t, uint16(17076), q)

	assert.Equal(t, uint16(85), table.Pow(15, 2))
}

func TestTable_FieldLaws(t *testing.T) {
	table := Default
	samples := []uint16{0, 1, 2, 3, 15, 112, 255, 256, 4097, 32768, 40000, 65534, 65535}

	for _, a := range samples {
		assert.Equal(t, uint16(0), table.Add(a, a))
		assert.Equal(t, a, table.Mul(a, 1))
		assert.Equal(t, uint16(0), table.Mul(a, 0))
		assert.Equal(t, uint16(1), table.Pow(a, 0))

		for _, b := range samples {
			assert.Equal(t, table.Add(a, b), table.Add(b, a))
			assert.Equal(t, table.Mul(a, b), table.Mul(b, a))
			assert.Equal(t, table.Add(a, b), table.Sub(a, b))

			if b == 0 {
				continue
			}
			q, err := table.Div(table.Mul(a, b), b)
			require.NoError(t, err)
			assert.Equal(t, a, q, "div(mul(%d,%d),%d)", a, b, b)
		}
	}
}

func TestTable_DivideByZero(t *testing.T) {
	_, err := Default.Div(7, 0)
	assert.ErrorIs(t, err, ErrDivideByZero)

	_, err = Default.Inv(0)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestTable_PowMatchesRepeatedMul(t *testing.T) {
	for _, a := range []uint16{0, 2, 15, 65535} {
		acc := uint16(1)
		for e := uint32(0); e < 20; e++ {
			assert.Equal(t, acc, Default.Pow(a, e), "pow(%d,%d)", a, e)
			acc = Default.Mul(acc, a)
		}
	}

	assert.Equal(t, Default.Pow(2, 70000), Default.Exp(70000))
}

func TestTable_MulAdd(t *testing.T) {
	src := []byte{0x0f, 0x00, 0x70, 0x00, 0x00, 0x00, 0x01}
	dst := make([]byte, len(src))

	Default.MulAdd(dst, src, 112)
	assert.Equal(t, []byte{0xd0, 0x02}, dst[:2]) // 15*112 = 720
	assert.Equal(t, Default.Mul(112, 112), uint16(dst[2])|uint16(dst[3])<<8)
	assert.Equal(t, []byte{0, 0, 0}, dst[4:])

	// Adding the same product again cancels it out.
	Default.MulAdd(dst, src, 112)
	assert.Equal(t, make([]byte, len(src)), dst)

	Default.MulAdd(dst, src, 1)
	assert.Equal(t, src[:6], dst[:6])
}
