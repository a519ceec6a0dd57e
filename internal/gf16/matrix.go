package gf16

import (
	"errors"
	"fmt"
)

var ErrSingularMatrix = errors.New("gf16: matrix is singular")

// Matrix is a dense row-major matrix of field elements.
type Matrix [][]uint16

func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]uint16, cols)
	}
	return m
}

func (m Matrix) Clone() Matrix {
	c := make(Matrix, len(m))
	for i := range m {
		c[i] = append([]uint16(nil), m[i]...)
	}
	return c
}

// Invert returns the inverse of a square matrix using Gauss-Jordan elimination.
// The receiver is left untouched.
func (t *Table) Invert(m Matrix) (Matrix, error) {
	n := len(m)
	for i := range m {
		if len(m[i]) != n {
			return nil, fmt.Errorf("gf16: matrix is not square (%dx%d)", n, len(m[i]))
		}
	}

	a := m.Clone()
	inv := NewMatrix(n, n)
	for i := range n {
		inv[i][i] = 1
	}

	for col := range n {
		pivot := -1
		for i := col; i < n; i++ {
			if a[i][col] != 0 {
				pivot = i
				break
			}
		}
		if pivot == -1 {
			return nil, ErrSingularMatrix
		}

		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			inv[col], inv[pivot] = inv[pivot], inv[col]
		}

		// Normalize the pivot row.
		if p := a[col][col]; p != 1 {
			pinv, err := t.Inv(p)
			if err != nil {
				return nil, err
			}
			for j := range n {
				a[col][j] = t.Mul(a[col][j], pinv)
				inv[col][j] = t.Mul(inv[col][j], pinv)
			}
		}

		for i := range n {
			if i == col || a[i][col] == 0 {
				continue
			}
			f := a[i][col]
			for j := range n {
				a[i][j] ^= t.Mul(f, a[col][j])
				inv[i][j] ^= t.Mul(f, inv[col][j])
			}
		}
	}

	return inv, nil
}

// Echelon accumulates rows in reduced form so callers can test new rows for
// linear independence one at a time.
type Echelon struct {
	t      *Table
	rows   [][]uint16
	pivots []int
}

func (t *Table) NewEchelon() *Echelon {
	return &Echelon{t: t}
}

func (e *Echelon) Rank() int {
	return len(e.rows)
}

// Add reduces row against the rows already accepted and keeps it when it is
// independent of them. It reports whether the row was accepted.
func (e *Echelon) Add(row []uint16) bool {
	r := append([]uint16(nil), row...)

	for i, base := range e.rows {
		pc := e.pivots[i]
		if r[pc] == 0 {
			continue
		}
		f := r[pc]
		for j := pc; j < len(r); j++ {
			r[j] ^= e.t.Mul(f, base[j])
		}
	}

	pc := -1
	for j, v := range r {
		if v != 0 {
			pc = j
			break
		}
	}
	if pc == -1 {
		return false
	}

	pinv, _ := e.t.Inv(r[pc])
	for j := pc; j < len(r); j++ {
		r[j] = e.t.Mul(r[j], pinv)
	}

	e.rows = append(e.rows, r)
	e.pivots = append(e.pivots, pc)

	return true
}
