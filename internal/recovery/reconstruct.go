package recovery

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"slices"

	"github.com/javi11/parchive/internal/gf16"
	"github.com/javi11/parchive/internal/resource"
	"github.com/javi11/parchive/internal/slogutil"
	"golang.org/x/sync/errgroup"
)

// lostSlice is one source slice that has to be rebuilt.
type lostSlice struct {
	file  *sourceFile
	index int
	data  []byte
}

// Reconstruct rebuilds every damaged or missing slice found by the last
// verification and writes it back in place. Oversized files are truncated to
// their recorded length.
func (s *Set) Reconstruct(ctx context.Context) (err error) {
	ctx, end, err := s.begin(ctx, "reconstruct", StateReconstructing, StateVerified)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			end(StateVerified)
			return
		}
		end(StateReconstructed)
	}()

	ctx = slogutil.With(ctx, "set", s.name)

	required := s.required.Load()
	if available := int64(len(s.recovery)); required > available {
		return &InsufficientRecoveryError{Required: required, Available: available}
	}

	var lost []*lostSlice
	total := 0
	for _, f := range s.order {
		if !f.recoverable {
			continue
		}
		total += len(f.checks.Checksums)
		for i, st := range f.slices {
			if st != StatusOK {
				lost = append(lost, &lostSlice{file: f, index: i})
			}
		}
	}

	if len(lost) > 0 {
		s.log.InfoContext(ctx, "Reconstructing slices", "slices", len(lost), "recovery_slices", len(s.recovery))

		if err := s.solve(ctx, lost, sliceLogs(total)); err != nil {
			return err
		}
	}

	for _, f := range s.order {
		if f.Status() == StatusOK {
			continue
		}
		if !f.recoverable && f.desc.Length > 0 {
			s.log.WarnContext(ctx, "File cannot be repaired", "file", f.desc.Name)
			continue
		}
		if err := s.rewrite(ctx, f, lost); err != nil {
			return err
		}
	}

	s.required.Store(0)
	s.log.InfoContext(ctx, "Reconstruction completed", "slices", len(lost))

	return nil
}

// solve fills the data of every lost slice. logs holds the slice constant of
// every slice of the recovery matrix.
func (s *Set) solve(ctx context.Context, lost []*lostSlice, logs []uint32) error {
	m := len(lost)
	sliceSize := s.main.SliceSize

	missing := make([]uint32, m)
	isLost := make(map[int]bool, m)
	for k, ls := range lost {
		g := ls.file.firstSlice + ls.index
		missing[k] = logs[g]
		isLost[g] = true
	}

	// Pick recovery slices whose rows over the lost slices are independent.
	exponents := make([]uint32, 0, len(s.recovery))
	for e := range s.recovery {
		exponents = append(exponents, e)
	}
	slices.Sort(exponents)

	ech := s.table.NewEchelon()
	chosen := make([]uint32, 0, m)
	a := make(gf16.Matrix, 0, m)
	for _, e := range exponents {
		row := make([]uint16, m)
		for k, l := range missing {
			row[k] = coefficient(s.table, l, e)
		}
		if ech.Add(row) {
			chosen = append(chosen, e)
			a = append(a, row)
			if len(chosen) == m {
				break
			}
		}
	}
	if len(chosen) < m {
		return &InsufficientRecoveryError{Required: int64(m), Available: int64(len(chosen))}
	}

	inv, err := s.table.Invert(a)
	if err != nil {
		return fmt.Errorf("failed to invert recovery matrix: %w", err)
	}

	rhs := make([][]byte, m)
	for r, e := range chosen {
		rhs[r] = make([]byte, sliceSize)
		if _, err := io.ReadFull(s.recovery[e].Payload(), rhs[r]); err != nil {
			return fmt.Errorf("failed to read recovery slice %d: %w", e, err)
		}
	}

	// Remove the contribution of every intact slice.
	buf := make([]byte, sliceSize)
	coefs := make([]uint16, m)
	for _, f := range s.order {
		if !f.recoverable {
			continue
		}
		for i := range f.checks.Checksums {
			g := f.firstSlice + i
			if isLost[g] {
				continue
			}
			if _, err := readSlice(f.stream, buf, i, f.desc.Length); err != nil {
				return err
			}
			for r, e := range chosen {
				coefs[r] = coefficient(s.table, logs[g], e)
			}
			if err := accumulate(ctx, s.table, rhs, buf, coefs, s.maxWorkers); err != nil {
				return err
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.maxWorkers))

	for k, ls := range lost {
		g.Go(func() error {
			out := make([]byte, sliceSize)
			for r := range rhs {
				if err := ctx.Err(); err != nil {
					return err
				}
				s.table.MulAdd(out, rhs[r], inv[k][r])
			}

			if md5.Sum(out) != ls.file.checks.Checksums[ls.index].MD5 {
				return fmt.Errorf("%w: %s slice %d", ErrRepairMismatch, ls.file.desc.Name, ls.index)
			}

			ls.data = out
			return nil
		})
	}

	return g.Wait()
}

// rewrite writes the rebuilt slices of f in place and trims it to its
// recorded length.
func (s *Set) rewrite(ctx context.Context, f *sourceFile, lost []*lostSlice) error {
	if f.stream != nil {
		if err := f.stream.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", f.locator, err)
		}
		f.stream = nil
	}

	stream, err := s.resolver.OpenForWrite(ctx, f.locator)
	if err != nil {
		return fmt.Errorf("failed to open %s for repair: %w", f.locator, err)
	}
	f.stream = stream

	sliceSize := s.main.SliceSize
	for _, ls := range lost {
		if ls.file != f {
			continue
		}

		off := int64(ls.index) * sliceSize
		n := min(sliceSize, f.desc.Length-off)
		section := resource.NewSectionStream(stream, off, n)
		if _, err := section.Write(ls.data[:n]); err != nil {
			return fmt.Errorf("failed to write slice %d of %s: %w", ls.index, f.locator, err)
		}
		f.slices[ls.index] = StatusOK
	}

	if err := stream.Truncate(f.desc.Length); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", f.locator, err)
	}
	if err := stream.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", f.locator, err)
	}

	f.oversize = false
	f.setStatus(StatusOK)
	s.log.InfoContext(ctx, "File repaired", "file", f.desc.Name, "status", StatusOK.String())

	return nil
}
