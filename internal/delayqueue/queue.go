package delayqueue

import (
	"container/heap"
	"sync"
	"time"
)

// Queue is a priority queue of items ordered by their deadline, soonest first.
// Each item is held at most once; offering an item that is already queued
// moves it to its new deadline.
// It is safe for concurrent use.
type Queue[T comparable] struct {
	mu    sync.Mutex
	h     entries[T]
	index map[T]*entry[T]
}

// New creates an empty queue with room for capacity items.
func New[T comparable](capacity int) *Queue[T] {
	return &Queue[T]{
		h:     make(entries[T], 0, capacity),
		index: make(map[T]*entry[T], capacity),
	}
}

// Offer inserts the item with the given deadline, or moves it there if it is already queued.
func (q *Queue[T]) Offer(item T, deadline time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.index[item]; ok {
		e.deadline = deadline
		heap.Fix(&q.h, e.pos)
		return
	}

	e := &entry[T]{item: item, deadline: deadline}
	q.index[item] = e
	heap.Push(&q.h, e)
}

// Update moves a queued item to a new deadline.
// It returns false without queueing anything if the item is not in the queue.
func (q *Queue[T]) Update(item T, deadline time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.index[item]
	if !ok {
		return false
	}
	e.deadline = deadline
	heap.Fix(&q.h, e.pos)
	return true
}

// Remove drops the item from the queue. It reports whether the item was queued.
func (q *Queue[T]) Remove(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.index[item]
	if !ok {
		return false
	}
	heap.Remove(&q.h, e.pos)
	delete(q.index, item)
	return true
}

// PollDue pops the earliest item if its deadline is not after now.
// It never waits: when nothing is due it returns the zero value and false.
func (q *Queue[T]) PollDue(now time.Time) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 || q.h[0].deadline.After(now) {
		var zero T
		return zero, false
	}

	e := heap.Pop(&q.h).(*entry[T])
	delete(q.index, e.item)
	return e.item, true
}

// HasDue reports whether the earliest item is due at now.
func (q *Queue[T]) HasDue(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.h) != 0 && !q.h[0].deadline.After(now)
}

// Clear drops every queued item.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.h)
	q.h = q.h[:0]
	clear(q.index)
}

type entry[T comparable] struct {
	item     T
	deadline time.Time
	pos      int
}

// entries implements heap.Interface.
type entries[T comparable] []*entry[T]

func (h entries[T]) Len() int           { return len(h) }
func (h entries[T]) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h entries[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *entries[T]) Push(x any) {
	e := x.(*entry[T])
	e.pos = len(*h)
	*h = append(*h, e)
}

func (h *entries[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.pos = -1
	*h = old[:n-1]
	return e
}
