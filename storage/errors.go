package storage

import "errors"

var (
	// ErrNotFound: no backend holds a block for the requested state or seal CID.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidCID: the CID is undefined or not a CIDv1 raw sha2-256 id.
	ErrInvalidCID = errors.New("storage: invalid cid")
	// ErrCIDMismatch: stored or received bytes do not hash to the CID they
	// were filed under, so the snapshot or seal cannot be trusted.
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	// ErrImmutable: a Put found different bytes already filed under the same
	// CID. Snapshots and seals are written once and never replaced.
	ErrImmutable = errors.New("storage: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsIntegrity reports whether err means a stored block no longer matches its CID.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrCIDMismatch) || errors.Is(err, ErrImmutable)
}
