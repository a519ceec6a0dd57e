package resource

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSection() *SectionStream {
	data := []byte("Test data")
	return NewSectionStream(bytes.NewReader(data), 4, int64(len(data)-4))
}

func TestSectionStream_Length(t *testing.T) {
	s := newTestSection()
	assert.Equal(t, int64(5), s.Length())
	assert.Equal(t, int64(0), s.Position())
}

func TestSectionStream_Seek(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		whence int
		want   int64
	}{
		{"middle", 2, io.SeekStart, 2},
		{"past end", 6, io.SeekStart, 5},
		{"before start", -1, io.SeekStart, 0},
		{"from end", -2, io.SeekEnd, 3},
		{"current past end", 100, io.SeekCurrent, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSection()
			pos, err := s.Seek(tt.offset, tt.whence)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pos)
			assert.Equal(t, tt.want, s.Position())
		})
	}
}

func TestSectionStream_Read(t *testing.T) {
	s := newTestSection()

	buf := make([]byte, s.Length())
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, " data", string(buf))

	_, err = s.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSectionStream_ReadMoreThanAvailable(t *testing.T) {
	s := newTestSection()

	buf := make([]byte, s.Length()+1)
	n, err := io.ReadFull(s, buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, len(buf)-1, n)
}

func TestSectionStream_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("/w.bin")
	require.NoError(t, err)
	_, err = f.Write([]byte("Test data"))
	require.NoError(t, err)

	s := NewSectionStream(f, 4, 5)

	n, err := s.Write([]byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), s.Position())

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	n, err = s.Write([]byte("ABCDEFG"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 5, n)
	assert.Equal(t, s.Length(), s.Position())

	got := make([]byte, 9)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, "TestABCDE", string(got))
}

func TestSectionStream_ReadOnly(t *testing.T) {
	s := newTestSection()
	_, err := s.Write([]byte("x"))
	assert.Error(t, err)
}
