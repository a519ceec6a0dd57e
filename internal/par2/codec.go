package par2

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Packet is a decoded packet body.
type Packet interface {
	Type() PacketType
	MarshalBody() ([]byte, error)
}

// Frame is a packet together with the header it was read from and its stream offset.
type Frame struct {
	Header Header
	Offset int64
	Packet Packet
}

// End is the offset of the first byte after the packet.
func (f *Frame) End() int64 {
	return f.Offset + int64(f.Header.Length)
}

// ReadStream is the random-access view the codec needs from a recovery file.
type ReadStream interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

func readHeaderAt(r io.ReaderAt, off int64) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := r.ReadAt(buf[:], off); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: truncated header at offset %d", ErrInvalidPacket, off)
		}
		return Header{}, fmt.Errorf("failed to read packet header: %w", err)
	}

	var header Header
	if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, &header); err != nil {
		return Header{}, fmt.Errorf("failed to decode packet header: %w", err)
	}

	if header.Magic != MagicBytes {
		return Header{}, fmt.Errorf("%w: bad magic signature", ErrInvalidPacket)
	}

	if header.Length > math.MaxInt64 {
		return Header{}, fmt.Errorf("%w: packet length %d", ErrTooLargeNumber, header.Length)
	}

	if header.Length < HeaderSize {
		return Header{}, fmt.Errorf("%w: packet length %d (minimum %d)", ErrInvalidPacket, header.Length, HeaderSize)
	}

	if header.Length%4 != 0 {
		return Header{}, fmt.Errorf("%w: packet length %d is not a multiple of 4", ErrInvalidPacket, header.Length)
	}

	return header, nil
}

// Checksum computes MD5(setID || type || body).
func Checksum(setID RecoverySetID, t PacketType, body io.Reader) ([16]byte, error) {
	h := md5.New()
	h.Write(setID[:])
	h.Write(t[:])

	if _, err := io.Copy(h, body); err != nil {
		return [16]byte{}, err
	}

	var sum [16]byte
	copy(sum[:], h.Sum(nil))

	return sum, nil
}

// ReadPacketAt decodes the packet starting at off. size is the total stream size.
// The checksum is verified before the body is handed to its parser.
func ReadPacketAt(r io.ReaderAt, off, size int64, reg *Registry) (*Frame, error) {
	header, err := readHeaderAt(r, off)
	if err != nil {
		return nil, err
	}

	if int64(header.Length) > size-off {
		return nil, fmt.Errorf("%w: packet at %d extends past end of stream", ErrInvalidPacket, off)
	}

	body := io.NewSectionReader(r, off+HeaderSize, header.BodyLength())

	sum, err := Checksum(header.SetID, header.Type, body)
	if err != nil {
		return nil, fmt.Errorf("failed to read packet body: %w", err)
	}
	if sum != header.Checksum {
		return nil, fmt.Errorf("%w: verification failed at offset %d", ErrInvalidPacket, off)
	}

	if reg == nil {
		reg = DefaultRegistry
	}

	parse, ok := reg.Lookup(header.Type)
	if !ok {
		return nil, &UnsupportedPacketError{Type: header.Type}
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	packet, err := parse(body)
	if err != nil {
		return nil, err
	}

	return &Frame{Header: header, Offset: off, Packet: packet}, nil
}

// Reader reads packets sequentially from a stream.
type Reader struct {
	r   ReadStream
	reg *Registry
}

func NewReader(r ReadStream, reg *Registry) *Reader {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Reader{r: r, reg: reg}
}

// Next reads the packet at the current cursor. On success, and for unsupported
// packets, the cursor is left at the end of the packet. On any other error the
// cursor is left where it was.
func (pr *Reader) Next() (*Frame, error) {
	off, err := pr.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	size, err := pr.r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	if off >= size {
		_, _ = pr.r.Seek(off, io.SeekStart)
		return nil, io.EOF
	}

	frame, err := ReadPacketAt(pr.r, off, size, pr.reg)
	switch {
	case err == nil:
		_, err = pr.r.Seek(frame.End(), io.SeekStart)
		return frame, err
	case IsUnsupported(err):
		// The header validated, so its length is trustworthy.
		header, _ := readHeaderAt(pr.r, off)
		if _, serr := pr.r.Seek(off+int64(header.Length), io.SeekStart); serr != nil {
			return nil, serr
		}
		return nil, err
	default:
		_, _ = pr.r.Seek(off, io.SeekStart)
		return nil, err
	}
}

// EncodePacket frames p with setID into a complete packet.
func EncodePacket(setID RecoverySetID, p Packet) (Header, []byte, error) {
	body, err := p.MarshalBody()
	if err != nil {
		return Header{}, nil, err
	}

	if len(body)%4 != 0 {
		return Header{}, nil, fmt.Errorf("%w: body length %d is not a multiple of 4", ErrInvalidPacket, len(body))
	}

	sum, err := Checksum(setID, p.Type(), bytes.NewReader(body))
	if err != nil {
		return Header{}, nil, err
	}

	header := Header{
		Magic:    MagicBytes,
		Length:   uint64(HeaderSize + len(body)),
		Checksum: sum,
		SetID:    setID,
		Type:     p.Type(),
	}

	buf := bytes.NewBuffer(make([]byte, 0, header.Length))
	if err := binary.Write(buf, binary.LittleEndian, &header); err != nil {
		return Header{}, nil, err
	}
	buf.Write(body)

	return header, buf.Bytes(), nil
}
