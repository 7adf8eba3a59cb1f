// storetest package provides generic test cases for value store implementations.
package storetest

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/karupanerura/expiring-map/internal/valuestore"
	"golang.org/x/sync/errgroup"
)

// BenchmarkPut benchmarks the Put method of the store.
func BenchmarkPut[K comparable, V any](b *testing.B, store *valuestore.Store[K, V], keys []K) {
	var zero V
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Put(keys[i%len(keys)], zero)
	}
}

type pair struct {
	Key   uint8
	Value int8
}

var patterns = []pair{
	{0, 1},
	{1, 2},
	{2, 3},
	{3, 4},
	{4, 5},
	{251, 124},
	{252, 125},
	{253, 126},
	{254, 127},
	{255, -128},
}

// TestConsistency checks that concurrent writers and readers observe every committed pair.
func TestConsistency(t *testing.T, provider func() *valuestore.Store[uint8, int8]) {
	t.Run("Consistency", func(t *testing.T) {
		t.Parallel()

		t.Run("PutAndGet", func(t *testing.T) {
			t.Parallel()

			store := provider()
			shuffled := shuffle(patterns)

			var eg errgroup.Group
			for _, p := range shuffled {
				p := p
				eg.Go(func() error {
					if v, ok := store.Get(p.Key); ok {
						return fmt.Errorf("unexpected exists value %d for key %d", v, p.Key)
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			for _, p := range shuffled {
				p := p
				eg.Go(func() error {
					if _, existed := store.Put(p.Key, p.Value); existed {
						return fmt.Errorf("key %d should be new", p.Key)
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			got := make([]pair, len(shuffled))
			for i, p := range shuffled {
				i := i
				p := p
				eg.Go(func() error {
					v, ok := store.Get(p.Key)
					if !ok {
						return fmt.Errorf("key %d should exist", p.Key)
					}
					got[i] = pair{Key: p.Key, Value: v}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			if df := cmp.Diff(shuffled, got); df != "" {
				t.Errorf("pairs diff=%s", df)
			}
			if n := store.Len(); n != len(shuffled) {
				t.Errorf("expected %d keys, got %d", len(shuffled), n)
			}
		})

		t.Run("PutReturnsPrevious", func(t *testing.T) {
			t.Parallel()

			store := provider()
			store.Put(1, 10)
			prev, existed := store.Put(1, 20)
			if !existed || prev != 10 {
				t.Errorf("expected previous value 10, got %d (existed=%v)", prev, existed)
			}
			if v, _ := store.Get(1); v != 20 {
				t.Errorf("expected overwritten value 20, got %d", v)
			}
		})

		t.Run("RemoveAndClear", func(t *testing.T) {
			t.Parallel()

			store := provider()
			for _, p := range patterns {
				store.Put(p.Key, p.Value)
			}

			v, ok := store.Remove(251)
			if !ok || v != 124 {
				t.Errorf("expected removed value 124, got %d (ok=%v)", v, ok)
			}
			if _, ok := store.Remove(251); ok {
				t.Error("second remove should report absence")
			}
			if store.ContainsKey(251) {
				t.Error("removed key should be gone")
			}
			if !store.ContainsValue(-128) {
				t.Error("value -128 should be found")
			}
			if store.ContainsValue(124) {
				t.Error("removed value 124 should not be found")
			}

			store.Clear()
			if n := store.Len(); n != 0 {
				t.Errorf("expected empty store, got %d", n)
			}
			for _, p := range patterns {
				if store.ContainsKey(p.Key) {
					t.Errorf("key %d should be cleared", p.Key)
				}
			}
		})

		t.Run("Range", func(t *testing.T) {
			t.Parallel()

			store := provider()
			for _, p := range patterns {
				store.Put(p.Key, p.Value)
			}

			var mu sync.Mutex
			seen := map[uint8]int8{}
			store.Range(func(k uint8, v int8) bool {
				mu.Lock()
				defer mu.Unlock()
				seen[k] = v
				return true
			})

			want := map[uint8]int8{}
			for _, p := range patterns {
				want[p.Key] = p.Value
			}
			if df := cmp.Diff(want, seen); df != "" {
				t.Errorf("range diff=%s", df)
			}

			visited := 0
			store.Range(func(uint8, int8) bool {
				visited++
				return false
			})
			if visited != 1 {
				t.Errorf("Range must stop when f returns false, visited %d", visited)
			}
		})
	})
}

func shuffle(src []pair) []pair {
	dst := make([]pair, len(src))
	copy(dst, src)
	rand.Shuffle(len(dst), func(i, j int) {
		dst[i], dst[j] = dst[j], dst[i]
	})
	return dst
}
