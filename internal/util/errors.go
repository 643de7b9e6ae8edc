package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrUnsupported indicates a file format or operation is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrCorrupt indicates a file is corrupt or unreadable
	ErrCorrupt = errors.New("corrupt file")

	// ErrConflict indicates a destination file conflict
	ErrConflict = errors.New("destination conflict")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPermission indicates a permission error
	ErrPermission = errors.New("permission denied")

	// ErrDiskFull indicates insufficient disk space
	ErrDiskFull = errors.New("disk full")

	// ErrParseRecovered indicates a query parse failure that was recovered
	// via the free-word fallback rather than propagated (spec §7).
	ErrParseRecovered = errors.New("query parse recovered")

	// ErrInferenceFailed indicates a chunk's inference call failed and its
	// embeddings were discarded (spec §7).
	ErrInferenceFailed = errors.New("inference failed")

	// ErrBootstrap indicates a critical startup condition (missing
	// runtime dependency, unwritable data directory) that aborts startup
	// rather than degrading (spec §7).
	ErrBootstrap = errors.New("bootstrap error")
)
