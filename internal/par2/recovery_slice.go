package par2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// RecoverySlicePacket holds the parity data for one exponent.
// Packets read from a stream keep a reference to their body instead of loading it.
type RecoverySlicePacket struct {
	Exponent uint32

	// Data is the recovery payload of a packet built for writing.
	Data []byte

	body *io.SectionReader
}

func (p *RecoverySlicePacket) Type() PacketType { return PacketTypeRecoverySlice }

// Size is the length of the recovery payload.
func (p *RecoverySlicePacket) Size() int64 {
	if p.body != nil {
		return p.body.Size()
	}
	return int64(len(p.Data))
}

// Payload returns a reader over the recovery payload.
func (p *RecoverySlicePacket) Payload() *io.SectionReader {
	if p.body != nil {
		return io.NewSectionReader(p.body, 0, p.body.Size())
	}
	return io.NewSectionReader(bytes.NewReader(p.Data), 0, int64(len(p.Data)))
}

func (p *RecoverySlicePacket) MarshalBody() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4+p.Size()))
	_ = binary.Write(buf, binary.LittleEndian, p.Exponent)

	if _, err := io.Copy(buf, p.Payload()); err != nil {
		return nil, fmt.Errorf("failed to read recovery payload: %w", err)
	}

	return buf.Bytes(), nil
}

func parseRecoverySlicePacket(body *io.SectionReader) (Packet, error) {
	if body.Size() < 4 {
		return nil, fmt.Errorf("%w: recovery slice body of %d bytes", ErrInvalidPacket, body.Size())
	}

	p := &RecoverySlicePacket{}
	if err := binary.Read(body, binary.LittleEndian, &p.Exponent); err != nil {
		return nil, fmt.Errorf("failed to read exponent: %w", err)
	}

	p.body = io.NewSectionReader(body, 4, body.Size()-4)

	return p, nil
}
