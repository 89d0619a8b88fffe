package merkle

import "errors"

var (
	ErrEmptyInput           = errors.New("merkle: tree has no items")
	ErrNotFound             = errors.New("merkle: leaf not found")
	ErrIndexOutOfRange      = errors.New("merkle: index out of range")
	ErrCapacityExceeded     = errors.New("merkle: tree capacity exceeded")
	ErrInvalidConfiguration = errors.New("merkle: invalid configuration")
	ErrDuplicateValue       = errors.New("merkle: duplicate value")
	ErrValuePresent         = errors.New("merkle: value present")
	ErrUncommitted          = errors.New("merkle: leaves changed since the last recompute")
	ErrBadDigestSize        = errors.New("merkle: digest has the wrong size")
	ErrProofEncoding        = errors.New("merkle: malformed proof encoding")
)

// IsCapacity reports whether err means the tree is exhausted. Callers can
// grow the tree and retry.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsStructural reports whether err was caused by the shape of the input
// rather than by the state of the tree.
func IsStructural(err error) bool {
	for _, target := range []error{
		ErrEmptyInput,
		ErrIndexOutOfRange,
		ErrInvalidConfiguration,
		ErrDuplicateValue,
		ErrBadDigestSize,
		ErrProofEncoding,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
