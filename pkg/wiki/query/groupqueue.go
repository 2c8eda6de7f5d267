package query

// GroupQueue hands out fixed-size, order-preserving batches of a read-only
// backing slice.
type GroupQueue[T any] struct {
	items     []T
	batchSize int
	start     int
	end       int
}

// NewGroupQueue creates a queue over items. The slice is not modified.
// A batchSize below 1 is treated as 1.
func NewGroupQueue[T any](items []T, batchSize int) *GroupQueue[T] {
	if batchSize < 1 {
		batchSize = 1
	}
	return &GroupQueue[T]{
		items:     items,
		batchSize: batchSize,
		end:       batchSize,
	}
}

// HasMore reports whether unconsumed elements remain.
func (q *GroupQueue[T]) HasMore() bool {
	return q.start < len(q.items)
}

// Poll returns up to batchSize elements and advances the cursor by a full
// stride. It returns an empty slice once the queue is exhausted.
func (q *GroupQueue[T]) Poll() []T {
	if !q.HasMore() {
		return []T{}
	}

	end := q.end
	if end > len(q.items) {
		end = len(q.items)
	}
	batch := q.items[q.start:end:end]

	q.start += q.batchSize
	q.end += q.batchSize
	return batch
}
