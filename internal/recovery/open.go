package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/javi11/parchive/internal/par2"
	"github.com/javi11/parchive/internal/resource"
	"github.com/javi11/parchive/internal/slogutil"
)

type loadedFile struct {
	rf     par2.RecoveryFile
	frames []*par2.Frame
}

// Open loads the packets of files, merges them into one recovery set and
// locates the source files. On failure every stream opened so far is released.
func (s *Set) Open(ctx context.Context, files []par2.RecoveryFile) (err error) {
	ctx, end, err := s.begin(ctx, "open", StateLoading, StateUninitialized)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = s.release()
			end(StateFailed)
			return
		}
		end(StateReady)
	}()

	if len(files) == 0 {
		return ErrNoRecoveryFiles
	}

	s.name = files[0].Name
	for _, rf := range files[1:] {
		if rf.Name != s.name {
			return fmt.Errorf("%w: %q and %q", ErrMixedSets, s.name, rf.Name)
		}
	}

	ctx = slogutil.With(ctx, "set", s.name)

	loaded := make([]loadedFile, 0, len(files))
	for _, rf := range files {
		frames, err := s.loadFile(ctx, rf)
		if errors.Is(err, os.ErrNotExist) {
			s.log.WarnContext(ctx, "Recovery file not found", "file", rf.Locator)
			continue
		}
		if err != nil {
			return err
		}
		loaded = append(loaded, loadedFile{rf: rf, frames: frames})
	}

	if err := s.merge(ctx, loaded); err != nil {
		return err
	}

	if s.sourceDir == "" {
		s.sourceDir = resource.Dir(files[0].Locator)
	}

	if err := s.locateSources(ctx); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "Recovery set opened",
		"set_id", s.setID.String(),
		"files", len(s.order),
		"slice_size", s.main.SliceSize,
		"recovery_slices", len(s.recovery))

	return nil
}

func (s *Set) loadFile(ctx context.Context, rf par2.RecoveryFile) ([]*par2.Frame, error) {
	stream, err := s.resolver.OpenForRead(ctx, rf.Locator)
	if err != nil {
		return nil, err
	}
	s.streams = append(s.streams, stream)

	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to size %s: %w", rf.Locator, err)
	}

	var frames []*par2.Frame
	index, err := par2.NewScanner(stream, size, nil).Scan(ctx, func(f *par2.Frame) error {
		frames = append(frames, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rf.Locator, err)
	}

	s.log.DebugContext(ctx, "Scanned recovery file", "file", rf.Locator, "packets", index.Len(), "decoded", len(frames))

	return frames, nil
}

// merge builds the set from the decoded packets. The first valid Main packet
// fixes the set ID; packets of other sets are ignored.
func (s *Set) merge(ctx context.Context, loaded []loadedFile) error {
	for _, lf := range loaded {
		for _, f := range lf.frames {
			m, ok := f.Packet.(*par2.MainPacket)
			if !ok {
				continue
			}
			id, err := m.SetID()
			if err != nil || id != f.Header.SetID {
				s.log.DebugContext(ctx, "Ignoring main packet with mismatching set id", "file", lf.rf.Locator, "offset", f.Offset)
				continue
			}
			s.main, s.setID = m, id
			break
		}
		if s.main != nil {
			break
		}
	}

	if s.main == nil {
		return ErrNoMainPacket
	}

	descs := make(map[par2.FileID]*par2.FileDescriptionPacket)
	checks := make(map[par2.FileID]*par2.SliceChecksumPacket)
	foreign := 0

	for _, lf := range loaded {
		for _, f := range lf.frames {
			if f.Header.SetID != s.setID {
				foreign++
				continue
			}

			switch p := f.Packet.(type) {
			case *par2.FileDescriptionPacket:
				if _, dup := descs[p.FileID]; !dup {
					descs[p.FileID] = p
				}
			case *par2.SliceChecksumPacket:
				if _, dup := checks[p.FileID]; !dup {
					checks[p.FileID] = p
				}
			case *par2.RecoverySlicePacket:
				if p.Size() != s.main.SliceSize {
					s.log.DebugContext(ctx, "Ignoring recovery slice of wrong size", "exponent", p.Exponent, "size", p.Size())
					continue
				}
				if _, dup := s.recovery[p.Exponent]; !dup {
					s.recovery[p.Exponent] = p
				}
			case *par2.CreatorPacket:
				if s.creator == "" {
					s.creator = p.Client
				}
			}
		}
	}

	if foreign > 0 {
		s.log.WarnContext(ctx, "Ignored packets from another recovery set", "count", foreign)
	}

	next := 0
	for i, id := range s.main.FileIDs() {
		desc, ok := descs[id]
		if !ok {
			return fmt.Errorf("%w: no description for file %s", ErrIncompleteSet, id)
		}

		check, ok := checks[id]
		count := sliceCount(desc.Length, s.main.SliceSize)
		if !ok {
			if count > 0 {
				return fmt.Errorf("%w: no slice checksums for %s", ErrIncompleteSet, desc.Name)
			}
			check = &par2.SliceChecksumPacket{FileID: id}
		}
		if len(check.Checksums) != count {
			return fmt.Errorf("%w: %s has %d slice checksums, expected %d", ErrIncompleteSet, desc.Name, len(check.Checksums), count)
		}

		f := &sourceFile{desc: desc, checks: check}
		if i < len(s.main.RecoveryFileIDs) {
			f.recoverable = true
			f.firstSlice = next
			next += count
		}

		s.files[id] = f
		s.order = append(s.order, f)
	}

	if next > MaxSlices {
		return fmt.Errorf("%w: %d source slices", ErrTooManySlices, next)
	}

	return nil
}
