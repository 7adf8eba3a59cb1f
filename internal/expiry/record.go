package expiry

import (
	"math"
	"sync/atomic"
	"time"
)

// Never is the deadline of records that do not expire by time.
var Never = time.Unix(0, math.MaxInt64)

// Record tracks when one registration of a key is due to expire.
// The touch time and the expired flag may be changed concurrently with reads.
type Record[K comparable] struct {
	key     K
	version uint64
	ttl     time.Duration

	// touched is the creation or last renewal time. It keeps the monotonic
	// reading of the clock, so deadlines do not follow wall clock steps.
	touched atomic.Pointer[time.Time]
	expired atomic.Bool
}

// NewRecord creates a record for key touched at now.
func NewRecord[K comparable](key K, version uint64, ttl time.Duration, now time.Time) *Record[K] {
	r := &Record[K]{key: key, version: version, ttl: ttl}
	r.touched.Store(&now)
	return r
}

// Key returns the key the record belongs to.
func (r *Record[K]) Key() K {
	return r.key
}

// Version returns the stamp assigned at creation.
// A later registration of the same key always carries a greater version.
func (r *Record[K]) Version() uint64 {
	return r.version
}

// TTL returns the time to live of the record.
func (r *Record[K]) TTL() time.Duration {
	return r.ttl
}

// Deadline returns the time at which the record becomes due.
// An expired record has the zero time as its deadline; a record with the
// maximum time to live returns Never.
func (r *Record[K]) Deadline() time.Time {
	if r.expired.Load() {
		return time.Time{}
	}
	return r.deadlineFrom(*r.touched.Load())
}

func (r *Record[K]) deadlineFrom(touched time.Time) time.Time {
	if r.ttl == math.MaxInt64 {
		return Never
	}
	return touched.Add(r.ttl)
}

// Remaining returns the time left until the record is due.
// It is math.MinInt64 once the record has been expired explicitly.
func (r *Record[K]) Remaining(now time.Time) time.Duration {
	if r.expired.Load() {
		return math.MinInt64
	}
	return r.Deadline().Sub(now)
}

// Due reports whether the record is due at now.
func (r *Record[K]) Due(now time.Time) bool {
	return r.Remaining(now) <= 0
}

// Renew moves the touch time forward to now.
// It fails for expired records and for records already due at now, so a
// renewal never revives an entry whose time to live has elapsed.
// The touch time never moves backwards, so concurrent renewals keep the latest one.
func (r *Record[K]) Renew(now time.Time) bool {
	for {
		if r.expired.Load() {
			return false
		}

		cur := r.touched.Load()
		if !r.deadlineFrom(*cur).After(now) {
			return false
		}
		if !now.After(*cur) || r.touched.CompareAndSwap(cur, &now) {
			return true
		}
	}
}

// Expire marks the record as due regardless of its TTL.
func (r *Record[K]) Expire() {
	r.expired.Store(true)
}
