package scoring

import (
	"github.com/mdresser/churnpipe/internal/features"
)

// FeatureNames is the canonical feature order, matching the order the
// classifier was trained with. Model artifacts are validated against this
// list on load; never reorder it without retraining.
var FeatureNames = []string{
	"emotional_state",
	"consecutive_losses",
	"consecutive_wins",
	"session_loss_pct",
	"bankroll_pct_remaining",
	"win_rate",
	"avg_bet_ratio",
	"sessions_completed",
	"bets_in_session",
	"sessions_since_last_big_event",
	"is_at_risk",
	"net_profit_loss_normalized",
	"interventions_received",
}

// BuildRow derives one feature row from a state snapshot, in FeatureNames
// order. Ratios degrade to 0 when their denominator is 0; a fresh or
// zero-wagered player never produces a NaN.
func BuildRow(st *features.PlayerState) []float64 {
	bets := float64(st.BetsInSession)
	wagered := st.SessionTotalWagered
	net := st.SessionNetPnL

	var sessionLossPct, winRate, avgBetRatio, netNormalized float64
	if wagered > 0 {
		loss := -net
		if loss < 0 {
			loss = 0
		}
		sessionLossPct = loss / wagered
		netNormalized = net / wagered
	}
	if bets > 0 {
		winRate = float64(st.SessionWins) / bets
		avgBetRatio = wagered / bets
	}

	atRisk := 0.0
	if st.IsAtRisk {
		atRisk = 1.0
	}

	return []float64{
		float64(st.EmotionalState),
		float64(st.ConsecutiveLosses),
		float64(st.ConsecutiveWins),
		sessionLossPct,
		st.CurrentBankroll,
		winRate,
		avgBetRatio,
		float64(st.SessionsCompleted),
		bets,
		0, // sessions_since_last_big_event: not tracked online, trained as 0
		atRisk,
		netNormalized,
		float64(st.InterventionsReceived),
	}
}
