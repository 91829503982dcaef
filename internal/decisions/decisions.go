// Package decisions defines the append-only audit log of scoring outcomes.
package decisions

import (
	"context"
	"time"
)

// Actions a scoring cycle can take for a player.
const (
	ActionOfferSent = "offer_sent"
	ActionNoAction  = "no_action"
)

// Decision is one scored-player outcome. Immutable once written.
type Decision struct {
	ID               string    `json:"id"`
	PlayerID         int64     `json:"player_id"`
	ChurnScore       float64   `json:"churn_score"`
	ModelVersion     string    `json:"model_version"`
	FeatureTimestamp time.Time `json:"feature_timestamp"`
	Action           string    `json:"action"`
	Reason           string    `json:"reason"`
}

// Store appends decision batches.
type Store interface {
	InsertBatch(ctx context.Context, decisions []*Decision) error

	// ListRecent returns up to limit decisions, newest first. Consumed
	// by the ops surface; reporting tooling reads the table directly.
	ListRecent(ctx context.Context, limit int) ([]*Decision, error)
}
