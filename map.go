package expiringmap

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/karupanerura/expiring-map/internal/delayqueue"
	"github.com/karupanerura/expiring-map/internal/expiry"
	"github.com/karupanerura/expiring-map/internal/panicutil"
	"github.com/karupanerura/expiring-map/internal/valuestore"
)

// NoExpiration is the time to live of entries that never expire.
const NoExpiration time.Duration = math.MaxInt64

// Map is a key/value map whose entries expire after a per-entry time to live.
//
// Expired entries are discovered lazily: every method first removes the
// entries whose time to live has elapsed, then does its own work. Without any
// method call nothing is removed; use intervalsweeper to reclaim memory of an
// idle map. An entry is guaranteed to vanish no later than its time to live
// after its last renewal (once the map is touched again), never to survive
// exactly that long, so a key reported by ContainsKey may already be gone by
// the next Get.
//
// All methods are safe for concurrent use.
type Map[K KeyConstraint, V ValueConstraint] struct {
	// mu is held exclusively by operations that change which keys are live
	// (put, remove, sweep, clear) and shared by the others, so the store, the
	// registry and the queue are always observed in lock-step.
	mu       sync.RWMutex
	store    *valuestore.Store[K, V]
	registry *expiry.Registry[K]
	queue    *delayqueue.Queue[*expiry.Record[K]]

	defaultTTL time.Duration
	clock      Clock
	cloner     ValueCloner[V]
	onExpire   func(Entry[K, V])
	onError    func(error)
}

var _ Cleaner = (*Map[uint8, struct{}])(nil)

// New creates an empty map.
func New[K KeyConstraint, V ValueConstraint](opts ...Option[K, V]) *Map[K, V] {
	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}

	size := options.presize()
	storeOptions := append([]valuestore.Option[K, V]{valuestore.WithInitialCapacity[K, V](size)}, options.storeOptions...)
	return &Map[K, V]{
		store:      valuestore.New(storeOptions...),
		registry:   expiry.NewRegistry[K](size),
		queue:      delayqueue.New[*expiry.Record[K]](size),
		defaultTTL: options.defaultTTL,
		clock:      options.clock,
		cloner:     options.cloner,
		onExpire:   options.onExpire,
		onError:    options.onError,
	}
}

// Len returns the number of live entries.
func (m *Map[K, V]) Len() int {
	m.sweepAt(m.clock.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	// one record per stored key, counted without visiting every bucket
	return m.registry.Len()
}

// IsEmpty reports whether the map has no live entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// ContainsKey reports whether key has a live entry. It does not renew the entry.
func (m *Map[K, V]) ContainsKey(key K) bool {
	now := m.clock.Now()
	m.sweepAt(now)

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.registry.Lookup(key)
	return ok && !rec.Due(now) && m.store.ContainsKey(key)
}

// ContainsValue reports whether any live entry holds value.
// It scans the whole map.
func (m *Map[K, V]) ContainsValue(value V) bool {
	m.sweepAt(m.clock.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.ContainsValue(value)
}

// Get returns the value associated with key and renews the entry, so that its
// time to live starts over.
func (m *Map[K, V]) Get(key K) (V, bool) {
	now := m.clock.Now()
	m.sweepAt(now)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.renewLocked(key, now) {
		var zero V
		return zero, false
	}
	v, ok := m.store.Get(key)
	if !ok {
		return v, false
	}
	return m.cloner.CloneValue(v), true
}

// Put associates value with key using the default time to live.
// It returns the value previously associated with key, if any.
func (m *Map[K, V]) Put(key K, value V) (V, bool) {
	return m.put(key, value, m.defaultTTL)
}

// PutWithTTL associates value with key for the given time to live.
// It returns the value previously associated with key, if any.
// A zero or negative ttl is rejected with ErrInvalidTTL and nothing is stored.
func (m *Map[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (V, bool, error) {
	if ttl <= 0 {
		var zero V
		return zero, false, fmt.Errorf("%w: got %v", ErrInvalidTTL, ttl)
	}

	prev, existed := m.put(key, value, ttl)
	return prev, existed, nil
}

func (m *Map[K, V]) put(key K, value V, ttl time.Duration) (prev V, existed bool) {
	value = m.cloner.CloneValue(value)

	var expired []Entry[K, V]
	defer func() { m.notifyExpired(expired) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	expired = m.drainLocked(now)

	rec, superseded := m.registry.Register(key, ttl, now)
	if superseded != nil {
		superseded.Expire()
		m.queue.Remove(superseded)
	}
	if ttl != NoExpiration {
		m.queue.Offer(rec, rec.Deadline())
	}
	return m.store.Put(key, value)
}

// Remove deletes the entry of key and returns its value, if any.
// The key is gone as soon as Remove returns.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	var expired []Entry[K, V]
	defer func() { m.notifyExpired(expired) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	expired = m.drainLocked(m.clock.Now())

	v, ok := m.store.Remove(key)
	if rec := m.registry.Delete(key); rec != nil {
		rec.Expire()
		m.queue.Remove(rec)
	}
	return v, ok
}

// Renew restarts the time to live of the entry of key.
// It reports whether the key has a live entry.
func (m *Map[K, V]) Renew(key K) bool {
	now := m.clock.Now()
	m.sweepAt(now)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.renewLocked(key, now)
}

// renewLocked renews the record of key unless it is already due at now.
// The caller must hold mu.
func (m *Map[K, V]) renewLocked(key K, now time.Time) bool {
	rec, ok := m.registry.Lookup(key)
	if !ok || !rec.Renew(now) {
		return false
	}
	if rec.TTL() != NoExpiration {
		m.queue.Update(rec, rec.Deadline())
	}
	return true
}

// Clear removes every entry. Cleared entries are not reported to the expiration handler.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue.Clear()
	m.registry.Clear()
	m.store.Clear()
}

// Cleanup removes every entry whose time to live has elapsed and returns the
// number of removed entries. Every other method does this implicitly.
func (m *Map[K, V]) Cleanup() int {
	return m.sweepAt(m.clock.Now())
}

// Snapshot returns an immutable point-in-time copy of the live entries.
// Values are copied with the configured ValueCloner.
func (m *Map[K, V]) Snapshot() *Snapshot[K, V] {
	now := m.clock.Now()
	m.sweepAt(now)

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make(map[K]V, m.store.Len())
	m.store.Range(func(k K, v V) bool {
		entries[k] = m.cloner.CloneValue(v)
		return true
	})
	return &Snapshot[K, V]{
		entries: entries,
		takenAt: now,
		cloner:  m.cloner,
	}
}

// PutAll is not supported and always returns ErrUnsupportedOperation.
// Put entries one by one instead.
func (m *Map[K, V]) PutAll(map[K]V) error {
	return fmt.Errorf("%w: PutAll", ErrUnsupportedOperation)
}

// KeySet is not supported and always returns ErrUnsupportedOperation.
// Use Snapshot to enumerate keys.
func (m *Map[K, V]) KeySet() ([]K, error) {
	return nil, fmt.Errorf("%w: KeySet", ErrUnsupportedOperation)
}

// Values is not supported and always returns ErrUnsupportedOperation.
// Use Snapshot to enumerate values.
func (m *Map[K, V]) Values() ([]V, error) {
	return nil, fmt.Errorf("%w: Values", ErrUnsupportedOperation)
}

// EntrySet is not supported and always returns ErrUnsupportedOperation.
// Use Snapshot to enumerate entries.
func (m *Map[K, V]) EntrySet() ([]Entry[K, V], error) {
	return nil, fmt.Errorf("%w: EntrySet", ErrUnsupportedOperation)
}

// sweepAt removes the entries due at now and reports them to the expiration handler.
// The exclusive lock is only taken when something is due.
// Callers pass the same reading they use afterwards, so nothing that was due
// when the sweep ran can be renewed or returned by the rest of the operation.
func (m *Map[K, V]) sweepAt(now time.Time) int {
	if !m.queue.HasDue(now) {
		return 0
	}

	expired := func() []Entry[K, V] {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.drainLocked(now)
	}()
	m.notifyExpired(expired)
	return len(expired)
}

// drainLocked pops every record due at now and drops the entries they still own.
// The caller must hold mu exclusively.
func (m *Map[K, V]) drainLocked(now time.Time) []Entry[K, V] {
	var expired []Entry[K, V]
	for {
		rec, ok := m.queue.PollDue(now)
		if !ok {
			return expired
		}

		if !rec.Due(now) {
			// the queued deadline is older than a renewal of the record
			m.queue.Offer(rec, rec.Deadline())
			continue
		}
		if !m.registry.Retire(rec) {
			continue // superseded by a newer record of the same key
		}
		if v, ok := m.store.Remove(rec.Key()); ok {
			expired = append(expired, Entry[K, V]{Key: rec.Key(), Value: v})
		}
	}
}

// notifyExpired calls the expiration handler for each entry.
// It must be called without holding mu.
func (m *Map[K, V]) notifyExpired(expired []Entry[K, V]) {
	if m.onExpire == nil {
		return
	}
	for _, e := range expired {
		panicutil.Report(func() { m.onExpire(e) }, m.onError)
	}
}
