package expiringmap

import "errors"

var (
	// ErrUnsupportedOperation is returned by the bulk and view operations that
	// have no well-defined semantics over a self-expiring map.
	// Use Snapshot to enumerate entries.
	ErrUnsupportedOperation = errors.New("unsupported operation on expiring map")

	// ErrInvalidTTL is returned when an entry is put with a zero or negative time to live.
	ErrInvalidTTL = errors.New("time to live must be positive")
)
