package resource

import (
	"errors"
	"io"
)

// SectionStream is a bounded view of [off, off+n) of an underlying stream.
// Seeks outside the view clamp to its bounds; reads and writes stop at its end.
type SectionStream struct {
	r     io.ReaderAt
	w     io.WriterAt
	base  int64
	limit int64
	pos   int64
}

var errNotWritable = errors.New("resource: section is not writable")

// NewSectionStream wraps s. Writes are allowed when s implements io.WriterAt.
func NewSectionStream(s io.ReaderAt, off, n int64) *SectionStream {
	w, _ := s.(io.WriterAt)
	return &SectionStream{r: s, w: w, base: off, limit: off + n}
}

// Length is the size of the view.
func (s *SectionStream) Length() int64 {
	return s.limit - s.base
}

// Position is the cursor relative to the start of the view.
func (s *SectionStream) Position() int64 {
	return s.pos
}

func (s *SectionStream) clamp(pos int64) int64 {
	return max(0, min(pos, s.Length()))
}

func (s *SectionStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += s.pos
	case io.SeekEnd:
		offset += s.Length()
	default:
		return s.pos, errors.New("resource: invalid whence")
	}

	s.pos = s.clamp(offset)

	return s.pos, nil
}

func (s *SectionStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *SectionStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= s.Length() {
		return 0, io.EOF
	}

	short := false
	if rem := s.Length() - off; int64(len(p)) > rem {
		p = p[:rem]
		short = true
	}

	n, err := s.r.ReadAt(p, s.base+off)
	if err == nil && short {
		err = io.EOF
	}

	return n, err
}

// Write writes as much of p as fits in the view and reports io.ErrShortWrite
// when the rest would cross its end.
func (s *SectionStream) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, errNotWritable
	}

	short := false
	if rem := s.Length() - s.pos; int64(len(p)) > rem {
		p = p[:rem]
		short = true
	}

	n, err := s.w.WriteAt(p, s.base+s.pos)
	s.pos += int64(n)

	if err == nil && short {
		err = io.ErrShortWrite
	}

	return n, err
}
