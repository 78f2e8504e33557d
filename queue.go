package reqsched

import (
	"slices"
)

const initialQueueCapacity = 64

// orderedQueue is the container behind both scheduler queues.
//
// With a nil less function it keeps insertion order (the active queue).
// With a less function it keeps items sorted, inserting new items after
// all items that compare equal, so ties stay in insertion order (the
// pending queue).
//
// The queue is not safe for concurrent use; it is owned by the scheduler
// loop.
type orderedQueue[T any] struct {
	items []T
	less  func(a, b T) bool
}

// newOrderedQueue returns a sorted queue, or an append-only one when less
// is nil.
func newOrderedQueue[T any](less func(a, b T) bool) *orderedQueue[T] {
	return &orderedQueue[T]{
		items: make([]T, 0, initialQueueCapacity),
		less:  less,
	}
}

// newPendingQueue orders records by priority, then by insertion sequence.
func newPendingQueue() *orderedQueue[*Request] {
	return newOrderedQueue(func(a, b *Request) bool {
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.seq < b.seq
	})
}

func newActiveQueue() *orderedQueue[*Request] {
	return newOrderedQueue[*Request](nil)
}

// Len returns the number of queued items.
func (q *orderedQueue[T]) Len() int { return len(q.items) }

// Put inserts an item, keeping the queue order.
func (q *orderedQueue[T]) Put(item T) {
	if q.less == nil {
		q.items = append(q.items, item)
		return
	}
	// first index whose element is strictly greater than item
	i, _ := slices.BinarySearchFunc(q.items, item, func(e, t T) int {
		if q.less(t, e) {
			return 1
		}
		return -1
	})
	q.items = slices.Insert(q.items, i, item)
}

// Shift removes and returns the head of the queue.
func (q *orderedQueue[T]) Shift() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.DeleteAt(0), true
}

// At returns the item at idx.
func (q *orderedQueue[T]) At(idx int) T { return q.items[idx] }

// ForEach calls fn for every item from tail to head. Walking backwards makes
// DeleteAt(idx) safe from inside fn. Returning false stops the scan.
func (q *orderedQueue[T]) ForEach(fn func(item T, idx int) bool) {
	for i := len(q.items) - 1; i >= 0; i-- {
		if i >= len(q.items) {
			continue
		}
		if !fn(q.items[i], i) {
			return
		}
	}
}

// DeleteAt removes the item at idx and returns it.
func (q *orderedQueue[T]) DeleteAt(idx int) T {
	item := q.items[idx]
	var zero T
	copy(q.items[idx:], q.items[idx+1:])
	q.items[len(q.items)-1] = zero
	q.items = q.items[:len(q.items)-1]
	return item
}

// Remove deletes the first item matching pred.
func (q *orderedQueue[T]) Remove(pred func(T) bool) (T, bool) {
	if i := slices.IndexFunc(q.items, pred); i >= 0 {
		return q.DeleteAt(i), true
	}
	var zero T
	return zero, false
}

// Sort re-establishes the order after sort keys were mutated in place.
// It is a no-op for insertion-ordered queues.
func (q *orderedQueue[T]) Sort() {
	if q.less == nil {
		return
	}
	slices.SortStableFunc(q.items, func(a, b T) int {
		switch {
		case q.less(a, b):
			return -1
		case q.less(b, a):
			return 1
		default:
			return 0
		}
	})
}

// Drain removes and returns all items in queue order.
func (q *orderedQueue[T]) Drain() []T {
	out := slices.Clone(q.items)
	clear(q.items)
	q.items = q.items[:0]
	return out
}
