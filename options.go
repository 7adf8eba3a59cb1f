package expiringmap

import (
	"math"
	"time"

	"github.com/karupanerura/expiring-map/internal/valuestore"
)

// Option is the interface for the options of the Map.
type Option[K KeyConstraint, V ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K KeyConstraint, V ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithDefaultTTL sets the time to live used by Put.
// The ttl must be positive; use NoExpiration for entries that never expire.
// The default is NoExpiration.
func WithDefaultTTL[K KeyConstraint, V ValueConstraint](ttl time.Duration) Option[K, V] {
	if ttl <= 0 {
		panic("default ttl must be positive")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.defaultTTL = ttl
	})
}

// WithInitialCapacity sets the number of entries the map pre-allocates room for.
// It is a sizing hint and has no effect on behavior.
func WithInitialCapacity[K KeyConstraint, V ValueConstraint](capacity int) Option[K, V] {
	if capacity < 0 {
		panic("capacity must not be negative")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.capacity = capacity
	})
}

// WithLoadFactor sets the expected fill ratio of the pre-allocated room.
// The map pre-allocates ceil(capacity / loadFactor) slots.
// It is a sizing hint and has no effect on behavior.
func WithLoadFactor[K KeyConstraint, V ValueConstraint](loadFactor float64) Option[K, V] {
	if !(loadFactor > 0) || math.IsInf(loadFactor, 0) {
		panic("loadFactor must be a positive finite number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.loadFactor = loadFactor
	})
}

// WithBucketsSize sets the number of lock buckets of the value store.
// The number of buckets must be a natural number.
func WithBucketsSize[K KeyConstraint, V ValueConstraint](bucketsSize int) Option[K, V] {
	storeOption := valuestore.WithBucketsSize[K, V](bucketsSize)
	return optionFunc[K, V](func(o *options[K, V]) {
		o.storeOptions = append(o.storeOptions, storeOption)
	})
}

// WithKeyHash sets the key hash function used to pick the lock bucket of a key.
func WithKeyHash[K KeyConstraint, V ValueConstraint](f func(K) int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.storeOptions = append(o.storeOptions, valuestore.WithKeyHash[K, V](f))
	})
}

// WithValueEqual sets the equality used by ContainsValue.
// The default compares values with reflect.DeepEqual.
func WithValueEqual[K KeyConstraint, V ValueConstraint](equal func(a, b V) bool) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.storeOptions = append(o.storeOptions, valuestore.WithValueEqual[K, V](equal))
	})
}

// WithClock sets the clock to the map.
func WithClock[K KeyConstraint, V ValueConstraint](clock Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = clock
	})
}

// WithCloner sets the value cloner to the map.
// The default value cloner is DefaultValueCloner.
func WithCloner[K KeyConstraint, V ValueConstraint](cloner ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cloner = cloner
	})
}

// WithExpirationHandler sets a function that is called with every entry the map
// drops because its time to live elapsed. Entries dropped by Remove, by an
// overwrite or by Clear are not reported.
// The handler is called after the map lock is released, on the goroutine that
// triggered the sweep.
func WithExpirationHandler[K KeyConstraint, V ValueConstraint](onExpire func(Entry[K, V])) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.onExpire = onExpire
	})
}

// WithErrorHandler sets a function that receives panics recovered from the
// expiration handler, as *panics.ErrRecovered errors.
// Without an error handler such panics are discarded.
func WithErrorHandler[K KeyConstraint, V ValueConstraint](onError func(error)) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.onError = onError
	})
}

type options[K KeyConstraint, V ValueConstraint] struct {
	defaultTTL   time.Duration
	capacity     int
	loadFactor   float64
	clock        Clock
	cloner       ValueCloner[V]
	onExpire     func(Entry[K, V])
	onError      func(error)
	storeOptions []valuestore.Option[K, V]
}

func defaultOptions[K KeyConstraint, V ValueConstraint]() options[K, V] {
	return options[K, V]{
		defaultTTL: NoExpiration,
		loadFactor: 1,
		clock:      SystemClock,
		cloner:     DefaultValueCloner[V](),
	}
}

// presize returns the number of slots to pre-allocate.
func (o *options[K, V]) presize() int {
	n := math.Ceil(float64(o.capacity) / o.loadFactor)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
