package par2

import (
	"bytes"
	"crypto/md5"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSetID = RecoverySetID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

func encode(t *testing.T, p Packet) []byte {
	t.Helper()
	_, raw, err := EncodePacket(testSetID, p)
	require.NoError(t, err)
	return raw
}

func TestReadPacketAt_RoundTrip(t *testing.T) {
	fileID := ComputeFileID(md5.Sum([]byte("abc")), 3, "a.txt")

	tests := []struct {
		name   string
		packet Packet
	}{
		{
			name: "main",
			packet: &MainPacket{
				SliceSize:          1024,
				RecoveryFileIDs:    []FileID{fileID, {9}},
				NonRecoveryFileIDs: []FileID{{7}},
			},
		},
		{
			name: "file description",
			packet: &FileDescriptionPacket{
				FileID:  fileID,
				Hash:    md5.Sum([]byte("abc")),
				Hash16k: md5.Sum([]byte("abc")),
				Length:  3,
				Name:    "a.txt",
			},
		},
		{
			name: "slice checksums",
			packet: &SliceChecksumPacket{
				FileID: fileID,
				Checksums: []SliceChecksum{
					{MD5: md5.Sum([]byte("one")), CRC32: 0xdeadbeef},
					{MD5: md5.Sum([]byte("two")), CRC32: 42},
				},
			},
		},
		{
			name:   "creator",
			packet: &CreatorPacket{Client: "parchive"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := encode(t, tt.packet)

			frame, err := ReadPacketAt(bytes.NewReader(raw), 0, int64(len(raw)), nil)
			require.NoError(t, err)

			assert.Equal(t, tt.packet, frame.Packet)
			assert.Equal(t, testSetID, frame.Header.SetID)
			assert.Equal(t, tt.packet.Type(), frame.Header.Type)
			assert.Equal(t, int64(len(raw)), frame.End())
		})
	}
}

func TestReadPacketAt_RecoverySliceIsLazy(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF, 0x01}, 16)
	raw := encode(t, &RecoverySlicePacket{Exponent: 7, Data: payload})

	frame, err := ReadPacketAt(bytes.NewReader(raw), 0, int64(len(raw)), nil)
	require.NoError(t, err)

	slice, ok := frame.Packet.(*RecoverySlicePacket)
	require.True(t, ok)
	assert.Equal(t, uint32(7), slice.Exponent)
	assert.Nil(t, slice.Data)
	assert.Equal(t, int64(len(payload)), slice.Size())

	got, err := io.ReadAll(slice.Payload())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadPacketAt_Corruption(t *testing.T) {
	raw := encode(t, &CreatorPacket{Client: "parchive"})

	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"bad magic", func(b []byte) { b[0] = 'X' }},
		{"body flipped", func(b []byte) { b[HeaderSize] ^= 0xFF }},
		{"set id flipped", func(b []byte) { b[32] ^= 0x01 }},
		{"length not multiple of 4", func(b []byte) { b[8] += 1 }},
		{"length below header", func(b []byte) { b[8] = 8 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), raw...)
			tt.mutate(b)

			_, err := ReadPacketAt(bytes.NewReader(b), 0, int64(len(b)), nil)
			assert.ErrorIs(t, err, ErrInvalidPacket)
			assert.True(t, IsSkippable(err))
		})
	}
}

func TestReadPacketAt_TooLargeLength(t *testing.T) {
	raw := encode(t, &CreatorPacket{Client: "x"})
	copy(raw[8:16], []byte{0, 0, 0, 0, 0, 0, 0, 0x80})

	_, err := ReadPacketAt(bytes.NewReader(raw), 0, int64(len(raw)), nil)
	assert.ErrorIs(t, err, ErrTooLargeNumber)
}

func TestReadPacketAt_Unsupported(t *testing.T) {
	raw := encode(t, &CreatorPacket{Client: "x"})
	reg := NewRegistry()

	_, err := ReadPacketAt(bytes.NewReader(raw), 0, int64(len(raw)), reg)

	var unsupported *UnsupportedPacketError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, PacketTypeCreator, unsupported.Type)
	assert.True(t, IsSkippable(err))
}

func TestReader_Next(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(encode(t, &CreatorPacket{Client: "first"}))
	stream.Write(encode(t, &CreatorPacket{Client: "second"}))

	reg := NewRegistry()
	require.NoError(t, reg.Register(PacketTypeCreator, parseCreatorPacket))

	r := bytes.NewReader(stream.Bytes())
	pr := NewReader(r, reg)

	first, err := pr.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", first.Packet.(*CreatorPacket).Client)

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, first.End(), pos)

	second, err := pr.Next()
	require.NoError(t, err)
	assert.Equal(t, "second", second.Packet.(*CreatorPacket).Client)

	_, err = pr.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_SkipsUnsupportedBody(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(encode(t, &MainPacket{SliceSize: 4}))
	stream.Write(encode(t, &CreatorPacket{Client: "kept"}))

	reg := NewRegistry()
	require.NoError(t, reg.Register(PacketTypeCreator, parseCreatorPacket))

	pr := NewReader(bytes.NewReader(stream.Bytes()), reg)

	_, err := pr.Next()
	assert.True(t, IsUnsupported(err))

	frame, err := pr.Next()
	require.NoError(t, err)
	assert.Equal(t, "kept", frame.Packet.(*CreatorPacket).Client)
}

func TestMainPacket_Validation(t *testing.T) {
	_, err := NewMainPacket(0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSliceSize)

	_, err = NewMainPacket(6, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSliceSize)

	m, err := NewMainPacket(8, []FileID{{1}}, nil)
	require.NoError(t, err)

	id, err := m.SetID()
	require.NoError(t, err)
	body, _ := m.MarshalBody()
	assert.Equal(t, RecoverySetID(md5.Sum(body)), id)

	// A body claiming more files than it holds is rejected.
	raw := encode(t, m)
	raw[HeaderSize+8] = 5
	sum, _ := Checksum(testSetID, PacketTypeMain, bytes.NewReader(raw[HeaderSize:]))
	copy(raw[16:32], sum[:])

	_, err = ReadPacketAt(bytes.NewReader(raw), 0, int64(len(raw)), nil)
	assert.ErrorIs(t, err, ErrInvalidPacket)
}

func TestFileDescriptionPacket_NameIsPadded(t *testing.T) {
	body, err := (&FileDescriptionPacket{Name: "abcde", Length: 1}).MarshalBody()
	require.NoError(t, err)
	assert.Len(t, body, fileDescFixedSize+8)

	_, err = (&FileDescriptionPacket{Length: -1}).MarshalBody()
	assert.ErrorIs(t, err, ErrTooLargeNumber)
}

func TestRegistry_Duplicate(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	err = reg.Register(PacketTypeMain, parseMainPacket)
	assert.ErrorIs(t, err, ErrInitialization)

	for _, typ := range []PacketType{PacketTypeMain, PacketTypeFileDesc, PacketTypeIFSC, PacketTypeRecoverySlice, PacketTypeCreator} {
		_, ok := DefaultRegistry.Lookup(typ)
		assert.True(t, ok, typ.String())
	}
}

func TestPacketType_String(t *testing.T) {
	assert.Equal(t, "PAR 2.0 Main", PacketTypeMain.String())
	assert.Equal(t, "PAR 2.0 RecvSlic", PacketTypeRecoverySlice.String())
}
