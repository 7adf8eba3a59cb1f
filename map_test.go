package expiringmap_test

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	expiringmap "github.com/karupanerura/expiring-map"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMap(clock expiringmap.Clock, opts ...expiringmap.Option[string, int]) *expiringmap.Map[string, int] {
	return expiringmap.New(append([]expiringmap.Option[string, int]{
		expiringmap.WithClock[string, int](clock),
		expiringmap.WithDefaultTTL[string, int](100 * time.Millisecond),
	}, opts...)...)
}

func TestMap_TTLBounds(t *testing.T) {
	t.Parallel()

	t.Run("LowerBound", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		m := newTestMap(clock)
		m.Put("k", 1)

		clock.Advance(99 * time.Millisecond)
		if !m.ContainsKey("k") {
			t.Error("entry must be present before its time to live elapses")
		}
		if m.Len() != 1 {
			t.Errorf("unexpected length: %d", m.Len())
		}
	})

	t.Run("UpperBound", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		m := newTestMap(clock)
		m.Put("k", 1)

		clock.Advance(100 * time.Millisecond)
		if m.ContainsKey("k") {
			t.Error("entry must be absent once its time to live elapsed")
		}
		if _, ok := m.Get("k"); ok {
			t.Error("expired entry must not be returned")
		}
		if !m.IsEmpty() {
			t.Error("map should be empty")
		}
	})

	t.Run("PerEntryTTL", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		m := newTestMap(clock)
		if _, _, err := m.PutWithTTL("short", 1, 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		if _, _, err := m.PutWithTTL("long", 2, time.Second); err != nil {
			t.Fatal(err)
		}

		clock.Advance(10 * time.Millisecond)
		if m.ContainsKey("short") {
			t.Error("short-lived entry should be gone")
		}
		if !m.ContainsKey("long") {
			t.Error("long-lived entry should survive")
		}
	})
}

func TestMap_GetRenews(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)
	m.Put("k", 1)

	clock.Advance(60 * time.Millisecond)
	if v, ok := m.Get("k"); !ok || v != 1 {
		t.Fatalf("Get() = (%v, %v), want (1, true)", v, ok)
	}

	clock.Advance(60 * time.Millisecond)
	if !m.ContainsKey("k") {
		t.Error("entry must survive 60ms after renewal")
	}

	clock.Advance(50 * time.Millisecond)
	if m.ContainsKey("k") {
		t.Error("entry must be gone 110ms after renewal")
	}
}

// steppingClock advances by step on every reading, like a caller that is
// descheduled between its own clock reads.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func TestMap_GetUsesOneClockReading(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: base, step: 50 * time.Millisecond}
	m := newTestMap(clock)

	m.Put("k", 1) // base, due at +100ms

	// +50ms: still live, renewed until +150ms
	if v, ok := m.Get("k"); !ok || v != 1 {
		t.Fatalf("Get() = (%v, %v), want (1, true)", v, ok)
	}
	// +100ms
	if !m.ContainsKey("k") {
		t.Error("entry must be present 50ms after renewal")
	}
	// +150ms
	if m.ContainsKey("k") {
		t.Error("entry must be gone 100ms after its last renewal")
	}
	// +200ms
	if _, ok := m.Get("k"); ok {
		t.Error("expired entry must not be returned or revived")
	}
}

func TestMap_RenewAtDeadline(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: base, step: 100 * time.Millisecond}
	m := newTestMap(clock)

	m.Put("k", 1) // base, due at +100ms

	// +100ms: the deadline itself; the entry is gone, not renewed
	if m.Renew("k") {
		t.Error("an entry must not be renewed at its deadline")
	}
	// +200ms
	if _, ok := m.Get("k"); ok {
		t.Error("expired entry must not be returned")
	}
}

func TestMap_Renew(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)
	m.Put("k", 1)

	if m.Renew("missing") {
		t.Error("renewing a missing key should report false")
	}

	clock.Advance(90 * time.Millisecond)
	if !m.Renew("k") {
		t.Fatal("renewing a live key should report true")
	}

	clock.Advance(90 * time.Millisecond)
	if !m.ContainsKey("k") {
		t.Error("renewed entry must survive")
	}

	clock.Advance(10 * time.Millisecond)
	if m.Renew("k") {
		t.Error("an expired key cannot be renewed")
	}
}

func TestMap_ContainsKeyDoesNotRenew(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)
	m.Put("k", 1)

	clock.Advance(60 * time.Millisecond)
	m.ContainsKey("k")
	clock.Advance(40 * time.Millisecond)
	if m.ContainsKey("k") {
		t.Error("ContainsKey must not extend the time to live")
	}
}

func TestMap_Overwrite(t *testing.T) {
	t.Parallel()

	t.Run("ReturnsPrevious", func(t *testing.T) {
		t.Parallel()

		m := newTestMap(newManualClock())
		if prev, ok := m.Put("k", 1); ok {
			t.Errorf("first put returned previous value %v", prev)
		}
		if prev, ok := m.Put("k", 2); !ok || prev != 1 {
			t.Errorf("Put() = (%v, %v), want (1, true)", prev, ok)
		}
		if v, _ := m.Get("k"); v != 2 {
			t.Errorf("Get() = %v, want 2", v)
		}
	})

	t.Run("OldTTLDoesNotLeak", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		m := newTestMap(clock)
		if _, _, err := m.PutWithTTL("k", 1, 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		if _, _, err := m.PutWithTTL("k", 2, time.Second); err != nil {
			t.Fatal(err)
		}

		clock.Advance(500 * time.Millisecond)
		if v, ok := m.Get("k"); !ok || v != 2 {
			t.Errorf("Get() = (%v, %v), want (2, true)", v, ok)
		}
	})

	t.Run("ShorterTTLWins", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		m := newTestMap(clock)
		if _, _, err := m.PutWithTTL("k", 1, time.Second); err != nil {
			t.Fatal(err)
		}
		if _, _, err := m.PutWithTTL("k", 2, 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}

		clock.Advance(10 * time.Millisecond)
		if m.ContainsKey("k") {
			t.Error("entry should expire by the time to live of the latest put")
		}
	})

	t.Run("ExpiredPreviousIsNotReturned", func(t *testing.T) {
		t.Parallel()

		clock := newManualClock()
		m := newTestMap(clock)
		m.Put("k", 1)

		clock.Advance(time.Second)
		if prev, ok := m.Put("k", 2); ok {
			t.Errorf("expired value %v must not be returned as previous", prev)
		}
	})
}

func TestMap_Remove(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	var expired []expiringmap.Entry[string, int]
	m := newTestMap(clock, expiringmap.WithExpirationHandler(func(e expiringmap.Entry[string, int]) {
		expired = append(expired, e)
	}))
	m.Put("k", 1)

	if v, ok := m.Remove("k"); !ok || v != 1 {
		t.Errorf("Remove() = (%v, %v), want (1, true)", v, ok)
	}
	if m.ContainsKey("k") {
		t.Error("removed key must be absent immediately")
	}
	if _, ok := m.Remove("k"); ok {
		t.Error("removing twice should report false")
	}

	clock.Advance(time.Second)
	m.Cleanup()
	if len(expired) != 0 {
		t.Errorf("removed entries must not be reported as expired: %+v", expired)
	}
}

func TestMap_Clear(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)
	for i := range 10 {
		m.Put(fmt.Sprint(i), i)
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("unexpected length after clear: %d", m.Len())
	}
	for i := range 10 {
		if m.ContainsKey(fmt.Sprint(i)) {
			t.Errorf("key %d survived clear", i)
		}
	}

	m.Put("new", 1)
	clock.Advance(50 * time.Millisecond)
	if !m.ContainsKey("new") {
		t.Error("map should be usable after clear")
	}
}

func TestMap_ContainsValue(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)
	m.Put("a", 1)
	if _, _, err := m.PutWithTTL("b", 2, time.Second); err != nil {
		t.Fatal(err)
	}

	if !m.ContainsValue(1) || !m.ContainsValue(2) {
		t.Error("live values should be found")
	}
	if m.ContainsValue(3) {
		t.Error("absent value should not be found")
	}

	clock.Advance(100 * time.Millisecond)
	if m.ContainsValue(1) {
		t.Error("expired value should not be found")
	}
}

func TestMap_UnsupportedOperations(t *testing.T) {
	t.Parallel()

	m := newTestMap(newManualClock())
	m.Put("a", 1)

	if err := m.PutAll(map[string]int{"b": 2}); !errors.Is(err, expiringmap.ErrUnsupportedOperation) {
		t.Errorf("PutAll() error = %v", err)
	}
	if _, err := m.KeySet(); !errors.Is(err, expiringmap.ErrUnsupportedOperation) {
		t.Errorf("KeySet() error = %v", err)
	}
	if _, err := m.Values(); !errors.Is(err, expiringmap.ErrUnsupportedOperation) {
		t.Errorf("Values() error = %v", err)
	}
	if _, err := m.EntrySet(); !errors.Is(err, expiringmap.ErrUnsupportedOperation) {
		t.Errorf("EntrySet() error = %v", err)
	}

	if m.Len() != 1 || m.ContainsKey("b") {
		t.Error("unsupported operations must not change the map")
	}
}

func TestMap_InvalidTTL(t *testing.T) {
	t.Parallel()

	m := newTestMap(newManualClock())
	m.Put("k", 1)

	for _, ttl := range []time.Duration{0, -time.Second} {
		_, _, err := m.PutWithTTL("k", 2, ttl)
		if !errors.Is(err, expiringmap.ErrInvalidTTL) {
			t.Errorf("PutWithTTL(%v) error = %v", ttl, err)
		}
	}
	if v, _ := m.Get("k"); v != 1 {
		t.Errorf("rejected put must not change the value, got %v", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for non-positive default ttl")
		}
	}()
	expiringmap.WithDefaultTTL[string, int](0)
}

func TestMap_NoExpiration(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := expiringmap.New(expiringmap.WithClock[string, int](clock))
	m.Put("forever", 1)
	if _, _, err := m.PutWithTTL("explicit", 2, expiringmap.NoExpiration); err != nil {
		t.Fatal(err)
	}

	clock.Advance(100 * 365 * 24 * time.Hour)
	if !m.ContainsKey("forever") || !m.ContainsKey("explicit") {
		t.Error("entries without expiration must survive")
	}
	if n := m.Cleanup(); n != 0 {
		t.Errorf("Cleanup() = %d, want 0", n)
	}
}

func TestMap_ExpirationHandler(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	var mu sync.Mutex
	var expired []expiringmap.Entry[string, int]
	m := newTestMap(clock, expiringmap.WithExpirationHandler(func(e expiringmap.Entry[string, int]) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, e)
	}))
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)
	m.Put("a", 10) // the superseded value is not reported

	clock.Advance(100 * time.Millisecond)
	if n := m.Cleanup(); n != 3 {
		t.Errorf("Cleanup() = %d, want 3", n)
	}
	if n := m.Cleanup(); n != 0 {
		t.Errorf("second Cleanup() = %d, want 0", n)
	}

	mu.Lock()
	defer mu.Unlock()
	slices.SortFunc(expired, func(a, b expiringmap.Entry[string, int]) int {
		return a.Value - b.Value
	})
	want := []expiringmap.Entry[string, int]{
		{Key: "b", Value: 2},
		{Key: "c", Value: 3},
		{Key: "a", Value: 10},
	}
	if df := cmp.Diff(want, expired); df != "" {
		t.Errorf("expired entries diff=%s", df)
	}
}

func TestMap_ExpirationHandlerMayReenter(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	var m *expiringmap.Map[string, int]
	m = newTestMap(clock, expiringmap.WithExpirationHandler(func(e expiringmap.Entry[string, int]) {
		// the handler runs outside the map lock
		if _, _, err := m.PutWithTTL(e.Key+"-tombstone", e.Value, time.Hour); err != nil {
			t.Error(err)
		}
	}))
	m.Put("k", 1)

	clock.Advance(100 * time.Millisecond)
	if m.ContainsKey("k") {
		t.Error("k should be expired")
	}
	if v, ok := m.Get("k-tombstone"); !ok || v != 1 {
		t.Errorf("Get() = (%v, %v), want (1, true)", v, ok)
	}
}

func TestMap_ExpirationHandlerPanic(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	var errs []error
	m := newTestMap(clock,
		expiringmap.WithExpirationHandler(func(e expiringmap.Entry[string, int]) {
			panic(e.Key)
		}),
		expiringmap.WithErrorHandler[string, int](func(err error) {
			errs = append(errs, err)
		}),
	)
	m.Put("a", 1)
	m.Put("b", 2)

	clock.Advance(100 * time.Millisecond)
	if n := m.Cleanup(); n != 2 {
		t.Errorf("Cleanup() = %d, want 2", n)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 recovered panics, got %+v", errs)
	}
	for _, err := range errs {
		var recovered *panics.ErrRecovered
		if !errors.As(err, &recovered) {
			t.Errorf("unexpected error type %T", err)
		}
	}
	if !m.IsEmpty() {
		t.Error("panicking handler must not keep entries alive")
	}
}

func TestMap_Snapshot(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)
	m.Put("a", 1)
	if _, _, err := m.PutWithTTL("b", 2, time.Second); err != nil {
		t.Fatal(err)
	}
	clock.Advance(100 * time.Millisecond)

	snapshot := m.Snapshot()
	if !snapshot.TakenAt().Equal(clock.Now()) {
		t.Errorf("unexpected snapshot time %v", snapshot.TakenAt())
	}

	got := map[string]int{}
	for k, v := range snapshot.All() {
		got[k] = v
	}
	if df := cmp.Diff(map[string]int{"b": 2}, got); df != "" {
		t.Errorf("snapshot diff=%s", df)
	}

	m.Put("c", 3)
	m.Remove("b")
	if snapshot.Len() != 1 {
		t.Errorf("snapshot must not change with the map, len=%d", snapshot.Len())
	}
	if v, ok := snapshot.Get("b"); !ok || v != 2 {
		t.Errorf("Get() = (%v, %v), want (2, true)", v, ok)
	}
	if keys := slices.Collect(snapshot.Keys()); !slices.Equal(keys, []string{"b"}) {
		t.Errorf("unexpected keys %v", keys)
	}
	if values := slices.Collect(snapshot.Values()); !slices.Equal(values, []int{2}) {
		t.Errorf("unexpected values %v", values)
	}
}

type counter struct {
	N int
}

func (c *counter) Clone() *counter {
	return &counter{N: c.N}
}

func TestMap_ClonesValues(t *testing.T) {
	t.Parallel()

	m := expiringmap.New[string, *counter]()
	original := &counter{N: 1}
	m.Put("k", original)
	original.N = 2

	got, _ := m.Get("k")
	if got.N != 1 {
		t.Errorf("stored value must not share state with the caller, got %d", got.N)
	}
	got.N = 3

	again, _ := m.Get("k")
	if again.N != 1 {
		t.Errorf("returned value must not share state with the map, got %d", again.N)
	}
}

func TestMap_Options(t *testing.T) {
	t.Parallel()

	m := expiringmap.New(
		expiringmap.WithInitialCapacity[int, []int](100),
		expiringmap.WithLoadFactor[int, []int](0.75),
		expiringmap.WithBucketsSize[int, []int](4),
		expiringmap.WithKeyHash[int, []int](func(k int) int { return k }),
		expiringmap.WithCloner[int, []int](expiringmap.ValueClonerFunc[[]int](slices.Clone[[]int])),
		expiringmap.WithValueEqual[int, []int](slices.Equal[[]int]),
	)
	for i := range 100 {
		m.Put(i, []int{i, i})
	}
	if m.Len() != 100 {
		t.Errorf("unexpected length %d", m.Len())
	}
	if !m.ContainsValue([]int{42, 42}) {
		t.Error("value should be found by custom equality")
	}

	for _, f := range []func(){
		func() { expiringmap.WithInitialCapacity[int, int](-1) },
		func() { expiringmap.WithLoadFactor[int, int](0) },
		func() { expiringmap.WithBucketsSize[int, int](0) },
	} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic for invalid option")
				}
			}()
			f()
		}()
	}
}

func TestMap_Concurrent(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock, expiringmap.WithBucketsSize[string, int](4))

	var eg errgroup.Group
	for w := range 8 {
		eg.Go(func() error {
			for i := range 200 {
				key := fmt.Sprintf("%d-%d", w, i%20)
				if i%3 == 0 {
					if _, _, err := m.PutWithTTL(key, i, time.Duration(i%5+1)*10*time.Millisecond); err != nil {
						return err
					}
				} else {
					m.Put(key, i)
				}
				m.Get(key)
				if i%7 == 0 {
					m.Remove(key)
				}
				clock.Advance(time.Millisecond)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Second)
	if !m.IsEmpty() {
		t.Errorf("all entries should expire eventually, %d left", m.Len())
	}
}

func TestMap_ConcurrentPutSameKey(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	m := newTestMap(clock)

	var wg conc.WaitGroup
	for i := range 64 {
		wg.Go(func() {
			m.Put("k", i)
			m.Renew("k")
		})
	}
	wg.Wait()

	if m.Len() != 1 {
		t.Fatalf("unexpected length %d", m.Len())
	}

	// exactly one record of the key may survive; it expires with the entry
	clock.Advance(100 * time.Millisecond)
	if n := m.Cleanup(); n != 1 {
		t.Errorf("Cleanup() = %d, want 1", n)
	}
	if !m.IsEmpty() {
		t.Error("map should be empty")
	}
}
