// Package features maintains per-player rolling behavioral state.
//
// One compact record exists per player, exclusively owned by the scoring
// worker's aggregation loop. The record lives in a keyed store with a 24h
// expiry: a player silent for a day is simply treated as fresh on their
// next event.
package features

import (
	"strconv"

	"github.com/mdresser/churnpipe/internal/event"
)

// Emotional-state codes, matching the encoding the classifier was
// trained with.
var emotionalStateCodes = map[string]int{
	"neutral":    0,
	"winning":    1,
	"tilting":    2,
	"bored":      3,
	"recovering": 4,
}

// EncodeEmotionalState maps a producer-reported emotional state to its
// numeric code. Unknown labels encode as neutral.
func EncodeEmotionalState(label string) int {
	return emotionalStateCodes[label]
}

// PlayerState is the rolling behavioral record for one player.
//
// Session counters only grow while a session lasts; the sole signal for a
// session boundary is the event's own bets_this_session echo dropping
// below the stored one.
type PlayerState struct {
	PlayerID int64

	// Session-scoped counters, reset at each session boundary.
	BetsInSession       int
	SessionTotalWagered float64
	SessionNetPnL       float64
	SessionWins         int

	// Echo of the event's self-reported counter, kept for boundary
	// detection only.
	BetsThisSession int

	// Latest observed per-event values.
	EmotionalState    int
	ConsecutiveLosses int
	ConsecutiveWins   int
	CurrentBankroll   float64
	IsAtRisk          bool

	// Lifetime counters.
	SessionsCompleted     int
	InterventionsReceived int
}

// NewPlayerState returns the empty default state for a player.
func NewPlayerState(playerID int64) *PlayerState {
	return &PlayerState{PlayerID: playerID}
}

// DetectSessionBoundary reports whether an event's self-reported
// bets-this-session counter signals a new session: the counter went
// backwards while the stored value was non-zero.
//
// This heuristic is the upstream contract. It is fragile under event
// reordering; keeping it in one pure function makes it swappable if the
// ordering guarantees ever change.
func DetectSessionBoundary(prevBets, eventBets int) bool {
	return eventBets < prevBets && prevBets > 0
}

// Apply folds one bet event into the state. It returns true when the
// event opened a new session.
func (s *PlayerState) Apply(ev *event.RawEvent) bool {
	boundary := DetectSessionBoundary(s.BetsThisSession, ev.BetsThisSession)
	if boundary {
		s.SessionsCompleted++
		s.BetsInSession = 0
		s.SessionTotalWagered = 0
		s.SessionNetPnL = 0
		s.SessionWins = 0
	}

	s.BetsInSession++
	s.SessionTotalWagered += ev.BetAmount
	s.SessionNetPnL += ev.NetResult
	if ev.Won {
		s.SessionWins++
	}

	s.BetsThisSession = ev.BetsThisSession
	s.EmotionalState = EncodeEmotionalState(ev.EmotionalState)
	s.ConsecutiveLosses = ev.ConsecutiveLosses
	s.ConsecutiveWins = ev.ConsecutiveWins
	s.CurrentBankroll = ev.CurrentBankroll
	s.IsAtRisk = ev.IsAtRisk

	return boundary
}

// Due reports whether the player just crossed a scoring-eligibility
// boundary (every nth bet in the session).
func (s *PlayerState) Due(n int) bool {
	return n > 0 && s.BetsInSession%n == 0
}

// Snapshot returns a copy safe to hand to the scoring cycle while the
// aggregator keeps mutating the original.
func (s *PlayerState) Snapshot() *PlayerState {
	cp := *s
	return &cp
}

// Hash field names, shared with the external intervention executor which
// increments interventions_received in place.
const (
	fieldBetsInSession         = "bets_in_session"
	fieldSessionTotalWagered   = "session_total_wagered"
	fieldSessionNetPnL         = "session_net_pnl"
	fieldSessionWins           = "session_wins"
	fieldBetsThisSession       = "bets_this_session"
	fieldEmotionalState        = "emotional_state"
	fieldConsecutiveLosses     = "consecutive_losses"
	fieldConsecutiveWins       = "consecutive_wins"
	fieldCurrentBankroll       = "current_bankroll"
	fieldIsAtRisk              = "is_at_risk"
	fieldSessionsCompleted     = "sessions_completed"
	fieldInterventionsReceived = "interventions_received"
)

// ToMap encodes the state as a string map for the keyed store.
func (s *PlayerState) ToMap() map[string]string {
	bool01 := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}
	return map[string]string{
		fieldBetsInSession:         strconv.Itoa(s.BetsInSession),
		fieldSessionTotalWagered:   strconv.FormatFloat(s.SessionTotalWagered, 'f', -1, 64),
		fieldSessionNetPnL:         strconv.FormatFloat(s.SessionNetPnL, 'f', -1, 64),
		fieldSessionWins:           strconv.Itoa(s.SessionWins),
		fieldBetsThisSession:       strconv.Itoa(s.BetsThisSession),
		fieldEmotionalState:        strconv.Itoa(s.EmotionalState),
		fieldConsecutiveLosses:     strconv.Itoa(s.ConsecutiveLosses),
		fieldConsecutiveWins:       strconv.Itoa(s.ConsecutiveWins),
		fieldCurrentBankroll:       strconv.FormatFloat(s.CurrentBankroll, 'f', -1, 64),
		fieldIsAtRisk:              bool01(s.IsAtRisk),
		fieldSessionsCompleted:     strconv.Itoa(s.SessionsCompleted),
		fieldInterventionsReceived: strconv.Itoa(s.InterventionsReceived),
	}
}

// FromMap decodes a state record. Missing or malformed fields decode to
// zero so a partially-written record never poisons the player.
func FromMap(playerID int64, m map[string]string) *PlayerState {
	atoi := func(k string) int {
		v, _ := strconv.Atoi(m[k])
		return v
	}
	atof := func(k string) float64 {
		v, _ := strconv.ParseFloat(m[k], 64)
		return v
	}
	return &PlayerState{
		PlayerID:              playerID,
		BetsInSession:         atoi(fieldBetsInSession),
		SessionTotalWagered:   atof(fieldSessionTotalWagered),
		SessionNetPnL:         atof(fieldSessionNetPnL),
		SessionWins:           atoi(fieldSessionWins),
		BetsThisSession:       atoi(fieldBetsThisSession),
		EmotionalState:        atoi(fieldEmotionalState),
		ConsecutiveLosses:     atoi(fieldConsecutiveLosses),
		ConsecutiveWins:       atoi(fieldConsecutiveWins),
		CurrentBankroll:       atof(fieldCurrentBankroll),
		IsAtRisk:              m[fieldIsAtRisk] == "1",
		SessionsCompleted:     atoi(fieldSessionsCompleted),
		InterventionsReceived: atoi(fieldInterventionsReceived),
	}
}
