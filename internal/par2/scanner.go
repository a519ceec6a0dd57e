package par2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const scanWindow = 64 * 1024

// Scanner finds packets in a stream by searching for the magic signature.
type Scanner struct {
	r    io.ReaderAt
	size int64
	reg  *Registry
	log  *slog.Logger
}

func NewScanner(r io.ReaderAt, size int64, reg *Registry) *Scanner {
	if reg == nil {
		reg = DefaultRegistry
	}

	return &Scanner{
		r:    r,
		size: size,
		reg:  reg,
		log:  slog.Default().With("component", "par2-scanner"),
	}
}

// Scan walks the whole stream and calls fn for every packet that decodes.
// Candidates that fail validation are skipped one byte at a time so a false
// signature inside opaque data cannot hide a real packet behind it.
// Unsupported packets are indexed but not passed to fn.
func (s *Scanner) Scan(ctx context.Context, fn func(*Frame) error) (*Index, error) {
	index := &Index{}
	buf := make([]byte, scanWindow)

	pos := int64(0)
	for pos+HeaderSize <= s.size {
		if err := ctx.Err(); err != nil {
			return index, err
		}

		n, err := s.r.ReadAt(buf, pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return index, fmt.Errorf("failed to read at offset %d: %w", pos, err)
		}
		if n < len(MagicBytes) {
			break
		}

		i := bytes.Index(buf[:n], MagicBytes[:])
		if i < 0 {
			pos += int64(n - len(MagicBytes) + 1)
			continue
		}

		candidate := pos + int64(i)
		frame, err := ReadPacketAt(s.r, candidate, s.size, s.reg)

		var unsupported *UnsupportedPacketError
		switch {
		case err == nil:
			index.Add(IndexEntry{Offset: candidate, Length: int64(frame.Header.Length), Type: frame.Header.Type})
			if fn != nil {
				if err := fn(frame); err != nil {
					return index, err
				}
			}
			pos = frame.End()
		case errors.As(err, &unsupported):
			header, herr := readHeaderAt(s.r, candidate)
			if herr != nil {
				return index, herr
			}
			s.log.DebugContext(ctx, "Skipping unsupported packet", "offset", candidate, "type", unsupported.Type.String())
			index.Add(IndexEntry{Offset: candidate, Length: int64(header.Length), Type: header.Type})
			pos = candidate + int64(header.Length)
		case IsSkippable(err):
			s.log.DebugContext(ctx, "Skipping invalid packet candidate", "offset", candidate, "error", err)
			pos = candidate + 1
		default:
			return index, err
		}
	}

	return index, nil
}
