// Package keyhash builds bucket hash functions for comparable key types.
package keyhash

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"hash/maphash"
	"math"
	"sync"
	"unsafe"

	"github.com/goccy/go-reflect"
)

const (
	// intSize is the size of an int in bits.
	intSize = 32 << (^uint(0) >> 63)
)

var (
	// registryMutex guards registry.
	registryMutex sync.RWMutex

	// registry caches the built hash functions by type identity.
	registry = map[uintptr]any{}

	// compositeSeed seeds hashing of keys that are not a basic kind.
	compositeSeed = maphash.MakeSeed()
)

// For returns a hash function for keys of type K.
// Named types hash like their underlying kind, so a `type UserID int64` key
// distributes exactly like an int64 key. Keys of composite kinds (structs,
// arrays, pointers, interfaces, channels) are hashed with hash/maphash and are
// only stable within the current process.
func For[K comparable]() func(K) int {
	id := reflect.TypeID((*K)(nil))

	registryMutex.RLock()
	f, ok := registry[id]
	registryMutex.RUnlock()
	if ok {
		return f.(func(K) int)
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()
	if f, ok := registry[id]; ok {
		return f.(func(K) int)
	}

	h := build[K]()
	registry[id] = h
	return h
}

// build chooses an encoding from the kind of K.
func build[K comparable]() func(K) int {
	var zero K
	switch reflect.TypeOf((*K)(nil)).Elem().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return integerHash[K](unsafe.Sizeof(zero))

	case reflect.Bool:
		return func(k K) int {
			var b [1]byte
			if *(*bool)(unsafe.Pointer(&k)) {
				b[0] = 1
			}
			return sum(b[:])
		}

	case reflect.Float32:
		return func(k K) int {
			f := *(*float32)(unsafe.Pointer(&k))
			if f == 0 {
				f = 0 // -0 == +0
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
			return sum(b[:])
		}

	case reflect.Float64:
		return func(k K) int {
			f := *(*float64)(unsafe.Pointer(&k))
			if f == 0 {
				f = 0
			}
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
			return sum(b[:])
		}

	case reflect.String:
		return func(k K) int {
			s := *(*string)(unsafe.Pointer(&k))
			return sum(unsafe.Slice(unsafe.StringData(s), len(s)))
		}

	default:
		return func(k K) int {
			return int(maphash.Comparable(compositeSeed, k))
		}
	}
}

// integerHash encodes integer kinds big-endian using their in-memory width.
func integerHash[K comparable](width uintptr) func(K) int {
	switch width {
	case 1:
		return func(k K) int {
			b := [1]byte{*(*uint8)(unsafe.Pointer(&k))}
			return sum(b[:])
		}
	case 2:
		return func(k K) int {
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], *(*uint16)(unsafe.Pointer(&k)))
			return sum(b[:])
		}
	case 4:
		return func(k K) int {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], *(*uint32)(unsafe.Pointer(&k)))
			return sum(b[:])
		}
	default:
		return func(k K) int {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], *(*uint64)(unsafe.Pointer(&k)))
			return sum(b[:])
		}
	}
}

// hasherPool holds FNV-1a hashers sized to the platform int.
var hasherPool = sync.Pool{
	New: func() any {
		if intSize == 32 {
			return fnv.New32a()
		}
		return fnv.New64a()
	},
}

// sum computes the FNV-1a hash of b.
func sum(b []byte) int {
	h := hasherPool.Get().(hash.Hash)
	defer func() {
		h.Reset()
		hasherPool.Put(h)
	}()

	_, _ = h.Write(b)
	switch h := h.(type) {
	case hash.Hash64:
		return int(h.Sum64())
	case hash.Hash32:
		return int(h.Sum32())
	default:
		panic("unreachable")
	}
}
