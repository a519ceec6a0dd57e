package par2

import (
	"fmt"
	"io"
)

// Writer appends or overwrites packets on a stream and keeps its index current.
type Writer struct {
	w     io.WriteSeeker
	index *Index
}

// NewWriter wraps w. index holds the packets already present, as returned by a
// Scanner; nil means the stream holds none.
func NewWriter(w io.WriteSeeker, index *Index) *Writer {
	if index == nil {
		index = &Index{}
	}
	return &Writer{w: w, index: index}
}

// WritePacket writes p at the current cursor. Indexed packets whose bytes are
// overwritten are dropped from the index.
func (pw *Writer) WritePacket(setID RecoverySetID, p Packet) (Header, error) {
	header, raw, err := EncodePacket(setID, p)
	if err != nil {
		return Header{}, err
	}

	off, err := pw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return Header{}, err
	}

	if _, err := pw.w.Write(raw); err != nil {
		return Header{}, fmt.Errorf("failed to write %s packet: %w", p.Type().String(), err)
	}

	pw.index.Drop(off, int64(len(raw)))
	pw.index.Add(IndexEntry{Offset: off, Length: int64(len(raw)), Type: header.Type})

	return header, nil
}

func (pw *Writer) Index() *Index {
	return pw.index
}
