package recovery

import (
	"context"
	"crypto/md5"
	"fmt"

	"github.com/google/uuid"
	"github.com/javi11/parchive/internal/slogutil"
	"github.com/javi11/parchive/internal/taskgroup"
)

// Verify checks every source file against its slice checksums, one task per
// file. A cancelled verification leaves the set Ready and its statuses
// indeterminate.
func (s *Set) Verify(ctx context.Context) (err error) {
	ctx, end, err := s.begin(ctx, "verify", StateVerifying, StateReady, StateVerified, StateReconstructed)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			end(StateReady)
			return
		}
		end(StateVerified)
	}()

	ctx = slogutil.With(ctx, "set", s.name)
	s.required.Store(0)

	byTask := make(map[uuid.UUID]*sourceFile, len(s.order))
	group := taskgroup.New(
		taskgroup.WithMaxWorkers(s.maxWorkers),
		taskgroup.WithProgress(s.reporter),
		taskgroup.WithLogger(s.log),
		taskgroup.OnTaskCompleted(func(res taskgroup.Result) {
			f := byTask[res.TaskID]
			if res.Err != nil {
				return
			}
			info := s.fileInfo(f)
			s.log.InfoContext(ctx, "File verified", "file", info.Name, "status", info.Status.String())
			for _, fn := range s.onFileVerified {
				fn(info)
			}
		}),
	)

	for _, f := range s.order {
		id, err := group.Add(func(ctx context.Context, report func(done, total int64)) error {
			return s.verifyFile(ctx, f, report)
		})
		if err != nil {
			return err
		}
		byTask[id] = f
	}

	group.Start(ctx)
	if err := group.Wait(context.Background()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sum := s.summary()
	s.log.InfoContext(ctx, "Verification completed",
		"files", sum.Files,
		"damaged", sum.Damaged,
		"missing", sum.Missing,
		"required_recovery_slices", sum.RequiredRecoverySlices,
		"available_recovery_slices", sum.AvailableRecoverySlices)

	s.once.Do(func() { close(s.completed) })
	for _, fn := range s.onVerified {
		fn(sum)
	}

	return nil
}

// verifyFile hashes the slices of one file in order. It is the only writer of
// f.status and f.slices while it runs.
func (s *Set) verifyFile(ctx context.Context, f *sourceFile, report func(done, total int64)) error {
	count := len(f.checks.Checksums)
	f.slices = make([]Status, count)
	f.oversize = false

	if f.stream == nil {
		for i := range f.slices {
			f.slices[i] = StatusMissing
		}
		s.addRequired(f, count)
		f.setStatus(StatusMissing)
		report(1, 1)
		return nil
	}

	f.setStatus(StatusUnknown)

	info, err := f.stream.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", f.locator, err)
	}
	f.oversize = info.Size() > f.desc.Length

	sliceSize := s.main.SliceSize
	buf := make([]byte, sliceSize)
	bad := 0

	for i := range count {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := readSlice(f.stream, buf, i, f.desc.Length)
		if err != nil {
			return err
		}

		want := min(sliceSize, f.desc.Length-int64(i)*sliceSize)
		switch {
		case n == 0:
			f.slices[i] = StatusMissing
		case int64(n) < want || md5.Sum(buf) != f.checks.Checksums[i].MD5:
			f.slices[i] = StatusDamaged
		default:
			f.slices[i] = StatusOK
		}

		if f.slices[i] != StatusOK {
			bad++
		}
		report(int64(i+1), int64(count))
	}

	s.addRequired(f, bad)

	if bad > 0 || f.oversize {
		f.setStatus(StatusDamaged)
	} else {
		f.setStatus(StatusOK)
	}

	return nil
}

// addRequired counts unusable slices of f. Files outside the recovery matrix
// cannot be repaired and do not consume recovery slices.
func (s *Set) addRequired(f *sourceFile, n int) {
	if n == 0 {
		return
	}
	if !f.recoverable {
		s.log.Warn("File is not covered by recovery data", "file", f.desc.Name, "bad_slices", n)
		return
	}
	s.required.Add(int64(n))
}
