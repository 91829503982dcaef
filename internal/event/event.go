// Package event defines the raw event shape pulled off the ingest queue.
//
// Producers (the simulator or the ingestion API) guarantee only player_id
// and type. Everything else is event-type specific; fields a bet event
// carries are modeled here and left at their zero value for other types.
package event

import (
	"encoding/json"
	"errors"
	"time"
)

// Event types the pipeline knows about. Unknown types are still written to
// the durable log but are ignored by the aggregator.
const (
	TypeBet           = "bet_event"
	TypePlayerChurned = "player_churned"
)

var (
	ErrMissingPlayerID = errors.New("event missing player_id")
	ErrBadPayload      = errors.New("event payload is not valid JSON")
)

// RawEvent is one inbound event. Immutable once parsed; the original JSON
// is retained for the durable log so nothing is lost to re-serialization.
type RawEvent struct {
	PlayerID  int64  `json:"player_id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`

	// Bet event fields
	GameType          string  `json:"game_type,omitempty"`
	BetAmount         float64 `json:"bet_amount,omitempty"`
	Won               bool    `json:"won,omitempty"`
	Payout            float64 `json:"payout,omitempty"`
	NetResult         float64 `json:"net_result,omitempty"`
	EmotionalState    string  `json:"emotional_state,omitempty"`
	ConsecutiveLosses int     `json:"consecutive_losses,omitempty"`
	ConsecutiveWins   int     `json:"consecutive_wins,omitempty"`
	CurrentBankroll   float64 `json:"current_bankroll,omitempty"`
	BetsThisSession   int     `json:"bets_this_session,omitempty"`
	IsAtRisk          bool    `json:"is_at_risk,omitempty"`

	raw []byte
}

// Parse decodes an event from its queue payload. Events without a type are
// treated as bet events, matching the producer contract.
func Parse(data []byte) (*RawEvent, error) {
	var ev RawEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, ErrBadPayload
	}
	if ev.PlayerID <= 0 {
		return nil, ErrMissingPlayerID
	}
	if ev.Type == "" {
		ev.Type = TypeBet
	}
	ev.raw = data
	return &ev, nil
}

// Raw returns the original queue payload.
func (e *RawEvent) Raw() []byte {
	return e.raw
}

// IsBet reports whether this event is scoring-relevant.
func (e *RawEvent) IsBet() bool {
	return e.Type == TypeBet
}

// Time parses the event's self-reported timestamp. The simulator emits bare
// ISO timestamps without a zone; those are read as UTC. If the timestamp is
// absent or unparseable, fallback is returned.
func (e *RawEvent) Time(fallback time.Time) time.Time {
	if e.Timestamp == "" {
		return fallback
	}
	if ts, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		return ts
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999", e.Timestamp, time.UTC); err == nil {
		return ts
	}
	return fallback
}
