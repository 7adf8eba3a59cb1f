package valuestore

import (
	"reflect"

	"github.com/karupanerura/expiring-map/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in the store.
var DefaultBucketsSize = 32

// Option is the interface for the options of the store.
type Option[K comparable, V any] interface {
	apply(*options[K, V])
}

type optionFunc[K comparable, V any] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithKeyHash sets the function used to pick the bucket of a key.
func WithKeyHash[K comparable, V any](f func(K) int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.hashKey = f
	})
}

// WithBucketsSize sets the number of buckets in the store.
// The number of buckets must be a natural number.
func WithBucketsSize[K comparable, V any](bucketsSize int) Option[K, V] {
	if bucketsSize <= 0 {
		panic("bucketsSize must be natural number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.bucketsSize = bucketsSize
	})
}

// WithInitialCapacity pre-allocates room for capacity entries across all buckets.
func WithInitialCapacity[K comparable, V any](capacity int) Option[K, V] {
	if capacity < 0 {
		panic("capacity must not be negative")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.capacity = capacity
	})
}

// WithValueEqual sets the equality used by ContainsValue.
func WithValueEqual[K comparable, V any](equal func(a, b V) bool) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.equal = equal
	})
}

type options[K comparable, V any] struct {
	hashKey     func(K) int
	bucketsSize int
	capacity    int
	equal       func(a, b V) bool
}

func defaultOptions[K comparable, V any]() options[K, V] {
	return options[K, V]{
		hashKey:     keyhash.For[K](),
		bucketsSize: DefaultBucketsSize,
		equal: func(a, b V) bool {
			return reflect.DeepEqual(a, b)
		},
	}
}
