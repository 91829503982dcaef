package bus

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-memory implementation of Queue for testing
type MemoryQueue struct {
	mu     sync.Mutex
	items  [][]byte
	signal chan struct{}
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{signal: make(chan struct{}, 1)}
}

// Compile-time interface check
var _ Queue = (*MemoryQueue)(nil)

// Push appends values to the queue
func (q *MemoryQueue) Push(ctx context.Context, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	q.mu.Lock()
	for _, v := range values {
		cp := make([]byte, len(v))
		copy(cp, v)
		q.items = append(q.items, cp)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// PopWait removes the head of the queue, waiting up to timeout
func (q *MemoryQueue) PopWait(ctx context.Context, timeout time.Duration) ([]byte, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			head := q.items[0]
			q.items = q.items[1:]
			// Keep the signal hot while items remain so concurrent
			// waiters are not stranded.
			if len(q.items) > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return head, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-q.signal:
		}
	}
}

// Len returns the current queue depth
func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
