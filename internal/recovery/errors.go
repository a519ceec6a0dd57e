package recovery

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecoveryFiles = errors.New("recovery: no recovery files given")
	ErrMixedSets       = errors.New("recovery: recovery files belong to more than one set")
	ErrNoMainPacket    = errors.New("recovery: no main packet found")
	ErrIncompleteSet   = errors.New("recovery: recovery set is missing critical packets")
	ErrInvalidState    = errors.New("recovery: operation not allowed in current state")
	ErrClosed          = errors.New("recovery: set is closed")
	ErrNoSources       = errors.New("recovery: no source files given")
	ErrTooManySlices   = errors.New("recovery: too many slices")
	ErrRepairMismatch  = errors.New("recovery: reconstructed slice does not match its checksum")
)

// InsufficientRecoveryError reports that a set lacks the redundancy to repair.
type InsufficientRecoveryError struct {
	Required  int64
	Available int64
}

func (e *InsufficientRecoveryError) Error() string {
	return fmt.Sprintf("recovery: %d recovery slices required, %d usable", e.Required, e.Available)
}

func stateError(op string, s State) error {
	if s == StateClosed {
		return fmt.Errorf("cannot %s: %w", op, ErrClosed)
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s)
}
