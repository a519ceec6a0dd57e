package recovery

import (
	"context"

	"github.com/javi11/parchive/internal/gf16"
	"golang.org/x/sync/errgroup"
)

// accumulate adds coefs[j]*src into dst[j] for every j, splitting the outputs
// across at most workers goroutines. Each goroutine owns a disjoint range of dst.
func accumulate(ctx context.Context, t *gf16.Table, dst [][]byte, src []byte, coefs []uint16, workers int) error {
	if len(dst) == 0 {
		return nil
	}

	workers = max(1, min(workers, len(dst)))
	if workers == 1 {
		for j := range dst {
			t.MulAdd(dst[j], src, coefs[j])
		}
		return ctx.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(dst) + workers - 1) / workers

	for lo := 0; lo < len(dst); lo += chunk {
		hi := min(lo+chunk, len(dst))
		g.Go(func() error {
			for j := lo; j < hi; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				t.MulAdd(dst[j], src, coefs[j])
			}
			return nil
		})
	}

	return g.Wait()
}
