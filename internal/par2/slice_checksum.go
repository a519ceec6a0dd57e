package par2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// SliceChecksum is the expected MD5 and CRC32 of one zero-padded slice.
type SliceChecksum struct {
	MD5   [16]byte
	CRC32 uint32
}

// SliceChecksumPacket (IFSC) lists the slice checksums of one file in slice order.
type SliceChecksumPacket struct {
	FileID    FileID
	Checksums []SliceChecksum
}

const sliceChecksumEntrySize = 20

func (p *SliceChecksumPacket) Type() PacketType { return PacketTypeIFSC }

func (p *SliceChecksumPacket) MarshalBody() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+sliceChecksumEntrySize*len(p.Checksums)))
	buf.Write(p.FileID[:])
	for _, c := range p.Checksums {
		buf.Write(c.MD5[:])
		_ = binary.Write(buf, binary.LittleEndian, c.CRC32)
	}
	return buf.Bytes(), nil
}

func parseSliceChecksumPacket(body *io.SectionReader) (Packet, error) {
	if body.Size() < 16 || (body.Size()-16)%sliceChecksumEntrySize != 0 {
		return nil, fmt.Errorf("%w: slice checksum body of %d bytes", ErrInvalidPacket, body.Size())
	}

	p := &SliceChecksumPacket{
		Checksums: make([]SliceChecksum, (body.Size()-16)/sliceChecksumEntrySize),
	}

	if _, err := io.ReadFull(body, p.FileID[:]); err != nil {
		return nil, fmt.Errorf("failed to read file id: %w", err)
	}

	if err := binary.Read(body, binary.LittleEndian, p.Checksums); err != nil {
		return nil, fmt.Errorf("failed to read slice checksums: %w", err)
	}

	return p, nil
}
