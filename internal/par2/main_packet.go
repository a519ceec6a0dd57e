package par2

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MainPacket carries the set parameters.
type MainPacket struct {
	SliceSize          int64
	RecoveryFileIDs    []FileID
	NonRecoveryFileIDs []FileID
}

// NewMainPacket validates sliceSize and builds a Main packet.
func NewMainPacket(sliceSize int64, recovery, nonRecovery []FileID) (*MainPacket, error) {
	if err := ValidateSliceSize(sliceSize); err != nil {
		return nil, err
	}

	return &MainPacket{
		SliceSize:          sliceSize,
		RecoveryFileIDs:    recovery,
		NonRecoveryFileIDs: nonRecovery,
	}, nil
}

func ValidateSliceSize(sliceSize int64) error {
	if sliceSize <= 0 || sliceSize%4 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSliceSize, sliceSize)
	}
	return nil
}

func (m *MainPacket) Type() PacketType { return PacketTypeMain }

func (m *MainPacket) MarshalBody() ([]byte, error) {
	if err := ValidateSliceSize(m.SliceSize); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, 12+16*(len(m.RecoveryFileIDs)+len(m.NonRecoveryFileIDs))))
	_ = binary.Write(buf, binary.LittleEndian, uint64(m.SliceSize))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(m.RecoveryFileIDs)))
	for _, id := range m.RecoveryFileIDs {
		buf.Write(id[:])
	}
	for _, id := range m.NonRecoveryFileIDs {
		buf.Write(id[:])
	}

	return buf.Bytes(), nil
}

// SetID derives the recovery set ID, the MD5 of the packet body.
func (m *MainPacket) SetID() (RecoverySetID, error) {
	body, err := m.MarshalBody()
	if err != nil {
		return RecoverySetID{}, err
	}
	return md5.Sum(body), nil
}

// FileIDs lists recovery files first, then non-recovery files.
func (m *MainPacket) FileIDs() []FileID {
	ids := make([]FileID, 0, len(m.RecoveryFileIDs)+len(m.NonRecoveryFileIDs))
	ids = append(ids, m.RecoveryFileIDs...)
	return append(ids, m.NonRecoveryFileIDs...)
}

func parseMainPacket(body *io.SectionReader) (Packet, error) {
	if body.Size() < 12 {
		return nil, fmt.Errorf("%w: main packet body too small: %d bytes", ErrInvalidPacket, body.Size())
	}

	var fixed struct {
		SliceSize uint64
		Count     uint32
	}
	if err := binary.Read(body, binary.LittleEndian, &fixed); err != nil {
		return nil, fmt.Errorf("failed to read main packet: %w", err)
	}

	if fixed.SliceSize > math.MaxInt64 {
		return nil, fmt.Errorf("%w: slice size %d", ErrTooLargeNumber, fixed.SliceSize)
	}

	m := &MainPacket{SliceSize: int64(fixed.SliceSize)}
	if err := ValidateSliceSize(m.SliceSize); err != nil {
		return nil, err
	}

	remaining := body.Size() - 12
	if remaining%16 != 0 || int64(fixed.Count)*16 > remaining {
		return nil, fmt.Errorf("%w: main packet lists %d files in %d bytes", ErrInvalidPacket, fixed.Count, remaining)
	}

	ids, err := readFileIDs(body, remaining/16)
	if err != nil {
		return nil, err
	}

	m.RecoveryFileIDs = ids[:fixed.Count]
	m.NonRecoveryFileIDs = ids[fixed.Count:]

	return m, nil
}

func readFileIDs(r io.Reader, n int64) ([]FileID, error) {
	ids := make([]FileID, n)
	for i := range ids {
		if _, err := io.ReadFull(r, ids[i][:]); err != nil {
			return nil, fmt.Errorf("failed to read file id: %w", err)
		}
	}
	return ids, nil
}
