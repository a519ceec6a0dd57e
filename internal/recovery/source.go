package recovery

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"

	"github.com/javi11/parchive/internal/par2"
)

// SourceFile is a file to protect. Name is the slash-separated path stored in
// the recovery set, relative to the directory the recovery files live in.
type SourceFile struct {
	Locator string
	Name    string
}

// hash16k is the MD5 of the first 16KiB of r, or of all of it when shorter.
func hash16k(r io.ReaderAt) ([16]byte, error) {
	buf := make([]byte, par2.Hash16kSize)

	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return [16]byte{}, fmt.Errorf("failed to read file head: %w", err)
	}

	return md5.Sum(buf[:n]), nil
}

// readSlice fills buf with slice i of a file of the given length, zero padding
// past the end of the file. It returns the number of file bytes read.
func readSlice(r io.ReaderAt, buf []byte, i int, length int64) (int, error) {
	sliceSize := int64(len(buf))
	off := int64(i) * sliceSize
	want := min(sliceSize, length-off)
	if want <= 0 {
		clear(buf)
		return 0, nil
	}

	n, err := r.ReadAt(buf[:want], off)
	clear(buf[n:])

	// Some filesystems report reads starting past the end as unexpected EOF.
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("failed to read slice %d: %w", i, err)
	}

	return n, nil
}
