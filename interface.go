package expiringmap

// KeyConstraint is an interface for key constraints.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// Entry is a key-value pair.
type Entry[K KeyConstraint, V ValueConstraint] struct {
	// Key is the key of the entry.
	Key K

	// Value is the value associated with the key.
	Value V
}

// Cleaner is an interface for containers that can be swept on demand.
// Implementations must be thread-safe.
type Cleaner interface {
	// Cleanup removes every entry whose time to live has elapsed
	// and returns the number of removed entries.
	Cleanup() int
}
