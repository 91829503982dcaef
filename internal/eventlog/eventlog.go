// Package eventlog persists every raw event for offline training and audit.
//
// The log is append-only and idempotent on (run_id, player_id, event_ts),
// so an at-least-once producer can replay a batch without creating
// duplicate rows.
package eventlog

import (
	"context"
	"time"
)

// Record is one raw event row.
type Record struct {
	RunID     string
	PlayerID  int64
	EventType string
	Payload   []byte // original JSON, untouched
	EventTS   time.Time
}

// Store appends raw event batches.
type Store interface {
	InsertBatch(ctx context.Context, records []*Record) error

	// Count returns the number of logged events for a run. Used by
	// the ops surface and tests.
	Count(ctx context.Context, runID string) (int64, error)
}
