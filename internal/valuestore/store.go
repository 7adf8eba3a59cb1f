package valuestore

import (
	"sync"
)

type bucket[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

// Store is a concurrent key/value table.
// Keys are distributed across buckets, each guarded by its own lock, so
// operations on keys in different buckets do not contend.
type Store[K comparable, V any] struct {
	buckets []*bucket[K, V]
	options options[K, V]
}

// New creates an empty store.
func New[K comparable, V any](opts ...Option[K, V]) *Store[K, V] {
	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}

	perBucket := (options.capacity + options.bucketsSize - 1) / options.bucketsSize
	buckets := make([]*bucket[K, V], options.bucketsSize)
	for i := range buckets {
		buckets[i] = &bucket[K, V]{m: make(map[K]V, perBucket)}
	}
	return &Store[K, V]{
		buckets: buckets,
		options: options,
	}
}

// resolveBucket returns the bucket that corresponds to the given key.
func (s *Store[K, V]) resolveBucket(key K) *bucket[K, V] {
	if len(s.buckets) == 1 {
		return s.buckets[0]
	}
	return s.buckets[uint(s.options.hashKey(key))%uint(len(s.buckets))]
}

// Get returns the value stored for key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	b := s.resolveBucket(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.m[key]
	return v, ok
}

// Put stores value for key and returns the value it replaced, if any.
func (s *Store[K, V]) Put(key K, value V) (prev V, existed bool) {
	b := s.resolveBucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, existed = b.m[key]
	b.m[key] = value
	return prev, existed
}

// Remove deletes key and returns the value it held, if any.
func (s *Store[K, V]) Remove(key K) (V, bool) {
	b := s.resolveBucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.m[key]
	if ok {
		delete(b.m, key)
	}
	return v, ok
}

// ContainsKey reports whether key is stored.
func (s *Store[K, V]) ContainsKey(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// ContainsValue reports whether any key holds a value equal to value.
// It scans every bucket.
func (s *Store[K, V]) ContainsValue(value V) bool {
	found := false
	s.Range(func(_ K, v V) bool {
		found = s.options.equal(v, value)
		return !found
	})
	return found
}

// Len returns the number of stored keys.
func (s *Store[K, V]) Len() int {
	n := 0
	for _, b := range s.buckets {
		b.mu.RLock()
		n += len(b.m)
		b.mu.RUnlock()
	}
	return n
}

// Clear removes every key.
// Buckets are locked in order and held until all of them are empty.
func (s *Store[K, V]) Clear() {
	for _, b := range s.buckets {
		b.mu.Lock()
		defer b.mu.Unlock()
	}
	for _, b := range s.buckets {
		clear(b.m)
	}
}

// Range calls f for each stored pair until f returns false.
// Each bucket is read-locked while it is visited; f must not modify the store.
func (s *Store[K, V]) Range(f func(K, V) bool) {
	for _, b := range s.buckets {
		if !rangeBucket(b, f) {
			return
		}
	}
}

func rangeBucket[K comparable, V any](b *bucket[K, V], f func(K, V) bool) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for k, v := range b.m {
		if !f(k, v) {
			return false
		}
	}
	return true
}
