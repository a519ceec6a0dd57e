package par2

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// FileDescriptionPacket describes one source file.
// Reference: https://github.com/akalin/gopar/blob/main/par2/file_description_packet.go
type FileDescriptionPacket struct {
	FileID  FileID
	Hash    [16]byte // MD5 of the whole file
	Hash16k [16]byte // MD5 of the first 16KiB
	Length  int64
	Name    string
}

const fileDescFixedSize = 56

// ComputeFileID derives the identifier of a file from its fingerprint, length and name.
func ComputeFileID(hash16k [16]byte, length int64, name string) FileID {
	h := md5.New()
	h.Write(hash16k[:])
	_ = binary.Write(h, binary.LittleEndian, uint64(length))
	h.Write([]byte(name))

	var id FileID
	copy(id[:], h.Sum(nil))

	return id
}

func (d *FileDescriptionPacket) Type() PacketType { return PacketTypeFileDesc }

func (d *FileDescriptionPacket) MarshalBody() ([]byte, error) {
	if d.Length < 0 {
		return nil, fmt.Errorf("%w: negative file length %d", ErrTooLargeNumber, d.Length)
	}

	name := []byte(d.Name)
	padded := (len(name) + 3) &^ 3

	buf := bytes.NewBuffer(make([]byte, 0, fileDescFixedSize+padded))
	buf.Write(d.FileID[:])
	buf.Write(d.Hash[:])
	buf.Write(d.Hash16k[:])
	_ = binary.Write(buf, binary.LittleEndian, uint64(d.Length))
	buf.Write(name)
	buf.Write(make([]byte, padded-len(name)))

	return buf.Bytes(), nil
}

func parseFileDescriptionPacket(body *io.SectionReader) (Packet, error) {
	if body.Size() < fileDescFixedSize {
		return nil, fmt.Errorf("%w: file description packet too small: %d bytes", ErrInvalidPacket, body.Size())
	}

	var fixed struct {
		FileID  FileID
		Hash    [16]byte
		Hash16k [16]byte
		Length  uint64
	}
	if err := binary.Read(body, binary.LittleEndian, &fixed); err != nil {
		return nil, fmt.Errorf("failed to read file description: %w", err)
	}

	if fixed.Length > math.MaxInt64 {
		return nil, fmt.Errorf("%w: file length %d", ErrTooLargeNumber, fixed.Length)
	}

	name := make([]byte, body.Size()-fileDescFixedSize)
	if _, err := io.ReadFull(body, name); err != nil {
		return nil, fmt.Errorf("failed to read filename: %w", err)
	}

	return &FileDescriptionPacket{
		FileID:  fixed.FileID,
		Hash:    fixed.Hash,
		Hash16k: fixed.Hash16k,
		Length:  int64(fixed.Length),
		Name:    string(bytes.TrimRight(name, "\x00")),
	}, nil
}
