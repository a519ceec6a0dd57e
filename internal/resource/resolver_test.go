package resource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		locator string
		scheme  string
		path    string
	}{
		{"/tmp/a.par2", "file", "/tmp/a.par2"},
		{"file:///tmp/a.par2", "file", "/tmp/a.par2"},
		{"MEM:///set/a.par2", "mem", "/set/a.par2"},
		{"s3+https://bucket/key", "s3+https", "bucket/key"},
		{`C:\data\a.par2`, "file", `C:\data\a.par2`},
		{"1abc://x", "file", "1abc://x"},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			scheme, p := Split(tt.locator)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.path, p)
		})
	}
}

func TestDirJoinRel(t *testing.T) {
	assert.Equal(t, "mem:///set", Dir("mem:///set/a.par2"))
	assert.Equal(t, "mem:///set/sub/b.bin", Join("mem:///set", "sub/b.bin"))
	assert.Equal(t, filepath.Join("/data", "x.bin"), Join("/data", "x.bin"))

	rel, err := Rel("mem:///set", "mem:///set/sub/b.bin")
	require.NoError(t, err)
	assert.Equal(t, "sub/b.bin", rel)
}

func TestResolver_UnsupportedScheme(t *testing.T) {
	r := NewResolver()

	_, err := r.OpenForRead(context.Background(), "ftp://host/file")

	var unsupported *UnsupportedSchemeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "ftp", unsupported.Scheme)
}

func TestResolver_MemoryScheme(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewResolver()
	r.Register(SchemeMemory, fs)
	ctx := context.Background()

	w, err := r.OpenForWrite(ctx, "mem:///set/dir/out.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rd, err := r.OpenForRead(ctx, "mem:///set/dir/out.bin")
	require.NoError(t, err)
	defer rd.Close()

	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Reopening for write keeps existing content.
	w, err = r.OpenForWrite(ctx, "mem:///set/dir/out.bin")
	require.NoError(t, err)
	info, err := w.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size())
	require.NoError(t, w.Close())

	_, err = r.OpenForRead(ctx, "mem:///set/missing.bin")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolver_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "local.bin")

	r := NewResolver(WithRetry(1, 0))

	w, err := r.OpenForWrite(context.Background(), target)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rd, err := r.OpenForRead(context.Background(), "file://"+target)
	require.NoError(t, err)
	defer rd.Close()

	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}
