package recovery

// State is the lifecycle stage of a Set.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
	StateVerifying
	StateVerified
	StateReconstructing
	StateReconstructed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateVerifying:
		return "verifying"
	case StateVerified:
		return "verified"
	case StateReconstructing:
		return "reconstructing"
	case StateReconstructed:
		return "reconstructed"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Status describes a source file or one of its slices.
type Status int32

const (
	StatusUnknown Status = iota
	StatusOK
	StatusDamaged
	StatusMissing
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOK:
		return "ok"
	case StatusDamaged:
		return "damaged"
	case StatusMissing:
		return "missing"
	default:
		return "invalid"
	}
}
