package expiringmap

import (
	"iter"
	"time"
)

// Snapshot is an immutable copy of the live entries of a Map at one point in time.
// It never expires entries and is safe for concurrent use.
type Snapshot[K KeyConstraint, V ValueConstraint] struct {
	entries map[K]V
	takenAt time.Time
	cloner  ValueCloner[V]
}

// TakenAt returns the time the snapshot was taken.
func (s *Snapshot[K, V]) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot[K, V]) Len() int {
	return len(s.entries)
}

// Get returns a copy of the value of key in the snapshot.
func (s *Snapshot[K, V]) Get(key K) (V, bool) {
	v, ok := s.entries[key]
	if !ok {
		return v, false
	}
	return s.cloner.CloneValue(v), true
}

// All returns an iterator over the entries in unspecified order.
func (s *Snapshot[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for k, v := range s.entries {
			if !yield(k, s.cloner.CloneValue(v)) {
				return
			}
		}
	}
}

// Keys returns an iterator over the keys in unspecified order.
func (s *Snapshot[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.entries {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over the values in unspecified order.
func (s *Snapshot[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range s.entries {
			if !yield(s.cloner.CloneValue(v)) {
				return
			}
		}
	}
}
