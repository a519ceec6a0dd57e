package recovery

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/javi11/parchive/internal/gf16"
	"github.com/javi11/parchive/internal/par2"
	"github.com/javi11/parchive/internal/progress"
	"github.com/javi11/parchive/internal/resource"
)

// DefaultCreator is written into the Creator packet when none is configured.
const DefaultCreator = "parchive"

// CreateOptions configures a new recovery set.
type CreateOptions struct {
	// Name is the base name of the recovery files.
	Name string

	// Dir is the locator of the directory the recovery files are written to.
	Dir string

	SliceSize      int64
	RecoverySlices int
	Creator        string
	MaxWorkers     int
	Logger         *slog.Logger

	// Progress receives the fraction of source slices encoded, keyed by TaskID.
	Progress progress.Reporter
	TaskID   uuid.UUID
}

// CreateResult describes a newly written recovery set.
type CreateResult struct {
	SetID         par2.RecoverySetID
	Files         []*par2.FileDescriptionPacket
	SourceSlices  int
	RecoveryFiles []string
}

type sourceState struct {
	src    SourceFile
	stream resource.Stream
	length int64
	head   [16]byte
	id     par2.FileID
}

// Create computes recovery slices for sources and writes the index file and
// recovery volumes into opts.Dir.
func Create(ctx context.Context, resolver *resource.Resolver, opts CreateOptions, sources []SourceFile) (*CreateResult, error) {
	if err := par2.ValidateSliceSize(opts.SliceSize); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if opts.RecoverySlices < 0 || opts.RecoverySlices > MaxExponent {
		return nil, fmt.Errorf("%w: %d recovery slices requested", ErrTooManySlices, opts.RecoverySlices)
	}
	if opts.Name == "" {
		return nil, errors.New("recovery: set name is required")
	}
	if opts.Creator == "" {
		opts.Creator = DefaultCreator
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default().With("component", "recovery-encoder")
	}

	states, err := openSources(ctx, resolver, sources)
	defer func() {
		for _, s := range states {
			s.stream.Close()
		}
	}()
	if err != nil {
		return nil, err
	}

	// Slices are numbered in FileID order.
	sort.Slice(states, func(i, j int) bool {
		return bytes.Compare(states[i].id[:], states[j].id[:]) < 0
	})

	total := 0
	for _, s := range states {
		total += sliceCount(s.length, opts.SliceSize)
	}
	if total > MaxSlices {
		return nil, fmt.Errorf("%w: %d source slices (maximum %d)", ErrTooManySlices, total, MaxSlices)
	}

	log.InfoContext(ctx, "Creating recovery set",
		"name", opts.Name,
		"files", len(states),
		"source_slices", total,
		"recovery_slices", opts.RecoverySlices,
		"slice_size", opts.SliceSize)

	enc := &encoder{
		table:     gf16.Default,
		sliceSize: opts.SliceSize,
		logs:      sliceLogs(total),
		workers:   opts.MaxWorkers,
		tracker:   progress.NewTracker(opts.Progress, opts.TaskID, 0, 1),
		recovery:  make([][]byte, opts.RecoverySlices),
		exponents: make([]uint32, opts.RecoverySlices),
	}
	for j := range enc.recovery {
		enc.recovery[j] = make([]byte, opts.SliceSize)
		enc.exponents[j] = uint32(j + 1)
	}

	descs := make([]*par2.FileDescriptionPacket, 0, len(states))
	checks := make([]*par2.SliceChecksumPacket, 0, len(states))
	var recoveryIDs, emptyIDs []par2.FileID

	for _, s := range states {
		desc, check, err := enc.encodeFile(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", s.src.Name, err)
		}

		descs = append(descs, desc)
		checks = append(checks, check)
		if s.length > 0 {
			recoveryIDs = append(recoveryIDs, s.id)
		} else {
			emptyIDs = append(emptyIDs, s.id)
		}
	}

	main, err := par2.NewMainPacket(opts.SliceSize, recoveryIDs, emptyIDs)
	if err != nil {
		return nil, err
	}
	setID, err := main.SetID()
	if err != nil {
		return nil, err
	}

	critical := []par2.Packet{main}
	for i := range descs {
		critical = append(critical, descs[i], checks[i])
	}
	critical = append(critical, &par2.CreatorPacket{Client: opts.Creator})

	result := &CreateResult{
		SetID:        setID,
		Files:        descs,
		SourceSlices: total,
	}

	index := resource.Join(opts.Dir, par2.IndexFileName(opts.Name))
	if err := writeRecoveryFile(ctx, resolver, index, setID, critical, nil); err != nil {
		return nil, err
	}
	result.RecoveryFiles = append(result.RecoveryFiles, index)

	for _, vol := range planVolumes(opts.RecoverySlices) {
		slices := make([]par2.Packet, 0, vol.Count())
		for e := vol.First; e <= vol.Last; e++ {
			slices = append(slices, &par2.RecoverySlicePacket{Exponent: e, Data: enc.recovery[e-1]})
		}

		locator := resource.Join(opts.Dir, par2.VolumeFileName(opts.Name, vol.First, uint32(vol.Count())))
		if err := writeRecoveryFile(ctx, resolver, locator, setID, critical, slices); err != nil {
			return nil, err
		}
		result.RecoveryFiles = append(result.RecoveryFiles, locator)
	}

	log.InfoContext(ctx, "Recovery set created", "name", opts.Name, "set_id", setID.String(), "files", len(result.RecoveryFiles))

	return result, nil
}

func openSources(ctx context.Context, resolver *resource.Resolver, sources []SourceFile) ([]*sourceState, error) {
	states := make([]*sourceState, 0, len(sources))
	seen := make(map[par2.FileID]string)

	for _, src := range sources {
		stream, err := resolver.OpenForRead(ctx, src.Locator)
		if err != nil {
			return states, fmt.Errorf("failed to open source %s: %w", src.Locator, err)
		}
		s := &sourceState{src: src, stream: stream}
		states = append(states, s)

		info, err := stream.Stat()
		if err != nil {
			return states, fmt.Errorf("failed to stat source %s: %w", src.Locator, err)
		}
		s.length = info.Size()

		if s.head, err = hash16k(stream); err != nil {
			return states, err
		}
		s.id = par2.ComputeFileID(s.head, s.length, src.Name)

		if prev, dup := seen[s.id]; dup {
			return states, fmt.Errorf("recovery: %s and %s are the same file", prev, src.Locator)
		}
		seen[s.id] = src.Locator
	}

	return states, nil
}

type encoder struct {
	table     *gf16.Table
	sliceSize int64
	logs      []uint32
	next      int
	workers   int
	tracker   *progress.Tracker
	recovery  [][]byte
	exponents []uint32
}

// encodeFile streams one file through the recovery accumulators and returns
// its description and slice checksums.
func (e *encoder) encodeFile(ctx context.Context, s *sourceState) (*par2.FileDescriptionPacket, *par2.SliceChecksumPacket, error) {
	count := sliceCount(s.length, e.sliceSize)
	buf := make([]byte, e.sliceSize)
	coefs := make([]uint16, len(e.exponents))

	whole := md5.New()
	check := &par2.SliceChecksumPacket{FileID: s.id, Checksums: make([]par2.SliceChecksum, count)}

	for i := range count {
		n, err := readSlice(s.stream, buf, i, s.length)
		if err != nil {
			return nil, nil, err
		}

		whole.Write(buf[:n])
		check.Checksums[i] = par2.SliceChecksum{MD5: md5.Sum(buf), CRC32: crc32.ChecksumIEEE(buf)}

		l := e.logs[e.next]
		e.next++
		for j, exp := range e.exponents {
			coefs[j] = coefficient(e.table, l, exp)
		}

		if err := accumulate(ctx, e.table, e.recovery, buf, coefs, e.workers); err != nil {
			return nil, nil, err
		}
		e.tracker.Update(int64(e.next), int64(len(e.logs)))
	}

	desc := &par2.FileDescriptionPacket{
		FileID:  s.id,
		Hash16k: s.head,
		Length:  s.length,
		Name:    s.src.Name,
	}
	copy(desc.Hash[:], whole.Sum(nil))

	return desc, check, nil
}

func writeRecoveryFile(ctx context.Context, resolver *resource.Resolver, locator string, setID par2.RecoverySetID, critical, slices []par2.Packet) error {
	stream, err := resolver.OpenForWrite(ctx, locator)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", locator, err)
	}
	defer stream.Close()

	if err := stream.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", locator, err)
	}

	w := par2.NewWriter(stream, nil)
	for _, p := range slices {
		if _, err := w.WritePacket(setID, p); err != nil {
			return fmt.Errorf("failed to write %s: %w", locator, err)
		}
	}
	for _, p := range critical {
		if _, err := w.WritePacket(setID, p); err != nil {
			return fmt.Errorf("failed to write %s: %w", locator, err)
		}
	}

	return stream.Sync()
}
