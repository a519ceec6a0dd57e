package par2

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPacket    = errors.New("par2: invalid packet")
	ErrTooLargeNumber   = errors.New("par2: number too large")
	ErrInvalidSliceSize = errors.New("par2: slice size must be positive and a multiple of 4")
	ErrInitialization   = errors.New("par2: packet registry initialization failed")
	ErrNotRecoveryFile  = errors.New("par2: not a recovery file name")
)

// UnsupportedPacketError is returned for a well-formed packet whose type has no parser.
type UnsupportedPacketError struct {
	Type PacketType
}

func (e *UnsupportedPacketError) Error() string {
	return fmt.Sprintf("par2: unsupported packet type %q", e.Type.String())
}

// IsUnsupported reports whether err carries an UnsupportedPacketError.
func IsUnsupported(err error) bool {
	var unsupported *UnsupportedPacketError
	return errors.As(err, &unsupported)
}

// IsSkippable reports whether err describes a single bad or foreign packet.
// Scans skip past these instead of aborting.
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrInvalidPacket) ||
		errors.Is(err, ErrTooLargeNumber) ||
		errors.Is(err, ErrInvalidSliceSize) ||
		IsUnsupported(err)
}
