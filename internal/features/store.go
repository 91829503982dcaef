package features

import (
	"context"
	"time"
)

// Store persists per-player rolling state with an expiry.
type Store interface {
	// Get returns the player's state, or nil if none exists (or it
	// expired — same thing from the aggregator's point of view).
	Get(ctx context.Context, playerID int64) (*PlayerState, error)

	// Put upserts the state and refreshes its time-to-live.
	Put(ctx context.Context, state *PlayerState, ttl time.Duration) error
}
