package store

import "errors"

// Sentinel errors returned by PersistentMap operations. Callers in the
// fileindex package treat any of these as a StorageError and escalate the
// owning index to REQUIRES_REBUILD rather than propagating them to a
// caller mid-query.
var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("store: key not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store: closed")

	// ErrCorruptHeader is returned when the version header cannot be parsed.
	ErrCorruptHeader = errors.New("store: corrupt header")

	// ErrCorruptRecord is returned when a record line cannot be parsed.
	ErrCorruptRecord = errors.New("store: corrupt record")

	// ErrCorruptIndex is returned when an index line cannot be parsed.
	ErrCorruptIndex = errors.New("store: corrupt index")

	// ErrDecodeField wraps a failure decoding a key or value field.
	ErrDecodeField = errors.New("store: field decode failed")

	// ErrKeyTooLarge is returned when an encoded key exceeds MaxKeySize.
	ErrKeyTooLarge = errors.New("store: encoded key exceeds maximum size")
)
