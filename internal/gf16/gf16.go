// Package gf16 implements arithmetic over GF(2^16) using log/antilog tables.
package gf16

import "errors"

const (
	// Generator is the PAR2 generator polynomial x^16 + x^12 + x^3 + x + 1.
	Generator = 0x1100B

	// Limit is the order of the multiplicative group; log(0) is stored as Limit.
	Limit = 65535
)

var ErrDivideByZero = errors.New("gf16: divide by zero")

// Table holds the log and antilog tables for one generator polynomial.
type Table struct {
	log     [Limit + 1]uint16
	antilog [Limit + 1]uint16
}

// Default is the table for the PAR2 generator polynomial.
var Default = NewTable(Generator)

// NewTable builds the log/antilog tables by repeated doubling of 1, reducing by poly.
func NewTable(poly uint32) *Table {
	t := &Table{}

	b := uint32(1)
	for l := range Limit {
		t.log[b] = uint16(l)
		t.antilog[l] = uint16(b)

		b <<= 1
		if b&0x10000 != 0 {
			b ^= poly
		}
	}

	t.log[0] = Limit
	t.antilog[Limit] = 0

	return t
}

func (t *Table) Add(a, b uint16) uint16 {
	return a ^ b
}

func (t *Table) Sub(a, b uint16) uint16 {
	return a ^ b
}

func (t *Table) Mul(a, b uint16) uint16 {
	if a == 0 || b == 0 {
		return 0
	}

	sum := uint32(t.log[a]) + uint32(t.log[b])
	if sum >= Limit {
		sum -= Limit
	}

	return t.antilog[sum]
}

func (t *Table) Div(a, b uint16) (uint16, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == 0 {
		return 0, nil
	}

	diff := int32(t.log[a]) - int32(t.log[b])
	if diff < 0 {
		diff += Limit
	}

	return t.antilog[diff], nil
}

// Inv returns the multiplicative inverse of a.
func (t *Table) Inv(a uint16) (uint16, error) {
	return t.Div(1, a)
}

func (t *Table) Pow(a uint16, e uint32) uint16 {
	if a == 0 {
		if e == 0 {
			return 1
		}
		return 0
	}

	return t.antilog[(uint64(t.log[a])*uint64(e))%Limit]
}

// Exp returns 2^e.
func (t *Table) Exp(e uint32) uint16 {
	return t.antilog[e%Limit]
}

// Log returns the discrete logarithm of a; Log(0) is Limit.
func (t *Table) Log(a uint16) uint16 {
	return t.log[a]
}
