package expiry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Registry holds the current record of every live key.
type Registry[K comparable] struct {
	mu      sync.RWMutex
	records map[K]*Record[K]
	version atomic.Uint64
}

// NewRegistry creates an empty registry with room for capacity keys.
func NewRegistry[K comparable](capacity int) *Registry[K] {
	return &Registry[K]{
		records: make(map[K]*Record[K], capacity),
	}
}

// Register creates a new record for key and installs it as the current one.
// The previous record, if any, is returned so that the caller can retire it.
// Installation and capture of the previous record are atomic.
func (r *Registry[K]) Register(key K, ttl time.Duration, now time.Time) (current, previous *Record[K]) {
	current = NewRecord(key, r.version.Add(1), ttl, now)

	r.mu.Lock()
	defer r.mu.Unlock()

	previous = r.records[key]
	r.records[key] = current
	return current, previous
}

// Lookup returns the current record for key.
func (r *Registry[K]) Lookup(key K) (*Record[K], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	return rec, ok
}

// Retire removes rec if it is still the current record for its key.
// Records are matched by version; a superseded record reports false and
// leaves the newer one in place.
func (r *Registry[K]) Retire(rec *Record[K]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.records[rec.key]; !ok || cur.Version() != rec.Version() {
		return false
	}
	delete(r.records, rec.key)
	return true
}

// Delete removes and returns the current record for key.
func (r *Registry[K]) Delete(key K) *Record[K] {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.records[key]
	delete(r.records, key)
	return rec
}

// Len returns the number of registered keys.
func (r *Registry[K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}

// Clear removes every record. Versions keep increasing across Clear.
func (r *Registry[K]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.records)
}
