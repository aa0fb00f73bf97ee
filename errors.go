// Package fileindex provides a persistent, file-based inverted-index
// engine maintaining many named indices mapping keys to values, each
// value annotated with the set of file ids it was extracted from.
package fileindex

import "errors"

// Sentinel errors returned by the package's public operations.
var (
	// ErrStorage wraps an underlying PersistentMap I/O failure. Query-time
	// occurrences are logged and swallowed to an empty result, with the
	// owning index scheduled for rebuild.
	ErrStorage = errors.New("fileindex: storage error")

	// ErrVersionMismatch names a version mismatch between an extension and
	// its on-disk layout. The registry does not return it: a mismatch wipes
	// the index and marks it REQUIRES_REBUILD instead.
	ErrVersionMismatch = errors.New("fileindex: index version mismatch")

	// ErrCorruptionDetected names an index whose on-disk state failed
	// validation. The registry does not return it: corruption marks the
	// index REQUIRES_REBUILD instead.
	ErrCorruptionDetected = errors.New("fileindex: index corruption detected")

	// ErrNotReady is returned by query operations against an index that
	// has not completed its initial build.
	ErrNotReady = errors.New("fileindex: index not ready")

	// ErrCancelled is returned when a query observes its context
	// cancelled while waiting on a drain or rebuild.
	ErrCancelled = errors.New("fileindex: operation cancelled")

	// ErrIllegalFileID names an input id the collector never assigned. No
	// operation in this package checks input ids or returns it.
	ErrIllegalFileID = errors.New("fileindex: illegal file id")

	// ErrFatalShutdown is returned by RegisterIndex and by the query
	// operations once the registry has been disposed.
	ErrFatalShutdown = errors.New("fileindex: registry has been shut down")

	// ErrUnknownIndex is returned by Lookup when no extension registered
	// the requested IndexId.
	ErrUnknownIndex = errors.New("fileindex: unknown index id")
)
