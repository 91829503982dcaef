// Package bus provides the FIFO queues the workers communicate through.
//
// Two queues exist: the inbound ingest queue (fed by the simulator or the
// ingestion API) and the decisions queue (bet events awaiting scoring).
// Both are plain Redis lists; the pipeline only needs push and a blocking
// pop with a timeout, which is what bounds every worker's wait.
package bus

import (
	"context"
	"time"
)

// Queue names shared with external producers.
const (
	IngestEvents   = "ingest:events"
	DecisionsQueue = "decisions:queue"
)

// Queue is a FIFO byte queue.
type Queue interface {
	// Push appends values to the tail of the queue, preserving order.
	Push(ctx context.Context, values ...[]byte) error

	// PopWait removes and returns the head of the queue, blocking up to
	// timeout. A nil value with a nil error means the wait timed out.
	PopWait(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Len returns the current queue depth.
	Len(ctx context.Context) (int64, error)
}
