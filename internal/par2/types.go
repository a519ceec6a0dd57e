package par2

import (
	"bytes"
	"encoding/hex"
)

// PacketType identifies the payload kind of a packet.
type PacketType [16]byte

func (t PacketType) String() string {
	return string(bytes.TrimRight(bytes.ReplaceAll(t[:], []byte{0}, []byte{' '}), " "))
}

// FileID identifies a source file: MD5(Hash16k || Length || Filename).
type FileID [16]byte

func (id FileID) String() string {
	return hex.EncodeToString(id[:])
}

// RecoverySetID is the MD5 of the Main packet body shared by every packet of a set.
type RecoverySetID [16]byte

func (id RecoverySetID) String() string {
	return hex.EncodeToString(id[:])
}

// PAR2 packet type identifiers
// Reference: https://github.com/akalin/gopar/blob/main/par2/packet.go
var (
	// PacketTypeMain is "PAR 2.0\0Main\0\0\0\0"
	PacketTypeMain = PacketType{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'M', 'a', 'i', 'n', 0, 0, 0, 0}

	// PacketTypeFileDesc is "PAR 2.0\0FileDesc"
	PacketTypeFileDesc = PacketType{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'F', 'i', 'l', 'e', 'D', 'e', 's', 'c'}

	// PacketTypeIFSC is "PAR 2.0\0IFSC\0\0\0\0"
	PacketTypeIFSC = PacketType{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'I', 'F', 'S', 'C', 0, 0, 0, 0}

	// PacketTypeRecoverySlice is "PAR 2.0\0RecvSlic"
	PacketTypeRecoverySlice = PacketType{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'R', 'e', 'c', 'v', 'S', 'l', 'i', 'c'}

	// PacketTypeCreator is "PAR 2.0\0Creator\0"
	PacketTypeCreator = PacketType{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'C', 'r', 'e', 'a', 't', 'o', 'r', 0}
)

// MagicBytes is the PAR2 magic signature "PAR2\0PKT"
var MagicBytes = [8]byte{'P', 'A', 'R', '2', 0, 'P', 'K', 'T'}

// Header is the 64-byte frame every packet starts with.
type Header struct {
	Magic    [8]byte
	Length   uint64 // header + body, multiple of 4
	Checksum [16]byte
	SetID    RecoverySetID
	Type     PacketType
}

// BodyLength is the number of bytes following the header.
func (h *Header) BodyLength() int64 {
	return int64(h.Length) - HeaderSize
}

const (
	// HeaderSize is the size of the packet header in bytes
	HeaderSize = 64

	// Hash16kSize is how much of a file its Hash16k covers.
	Hash16kSize = 16 * 1024
)
