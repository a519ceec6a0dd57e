package par2

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileDescriptions(t *testing.T) {
	a := &FileDescriptionPacket{Length: 10, Name: "a.bin"}
	a.FileID = ComputeFileID(a.Hash16k, a.Length, a.Name)
	b := &FileDescriptionPacket{Length: 20, Name: "dir/b.bin"}
	b.FileID = ComputeFileID(b.Hash16k, b.Length, b.Name)

	var data []byte
	data = append(data, encode(t, a)...)
	data = append(data, []byte("junk between packets")...)
	data = append(data, encode(t, &CreatorPacket{Client: "x"})...)
	data = append(data, encode(t, b)...)
	data = append(data, encode(t, a)...)

	descs, err := ReadFileDescriptions(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "a.bin", descs[0].Name)
	assert.Equal(t, "dir/b.bin", descs[1].Name)
}

func TestHasMagicBytes(t *testing.T) {
	assert.True(t, HasMagicBytes(MagicBytes[:]))
	assert.True(t, HasMagicBytes([]byte("PAR2\x00PKTmore")))
	assert.False(t, HasMagicBytes([]byte("PAR3\x00PKT")))
	assert.False(t, HasMagicBytes([]byte("PAR2")))
	assert.False(t, HasMagicBytes([]byte("PAR2\x00PKX")))
}

func TestContainsSignature(t *testing.T) {
	packet := encode(t, &CreatorPacket{Client: "x"})

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"at start", packet, true},
		{"damaged head, later packet", append([]byte("XAR2\x00PKT garbage"), packet...), true},
		{"across window boundary", append(make([]byte, scanWindow-3), packet...), true},
		{"none", []byte("not a recovery file at all"), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := ContainsSignature(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, found)
		})
	}
}
