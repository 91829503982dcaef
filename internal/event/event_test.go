package event

import (
	"errors"
	"testing"
	"time"
)

func TestParse_BetEvent(t *testing.T) {
	payload := []byte(`{
		"player_id": 7,
		"type": "bet_event",
		"timestamp": "2025-11-03T10:15:00.123456",
		"game_type": "slot",
		"bet_amount": 10.5,
		"won": true,
		"payout": 21.0,
		"net_result": 10.5,
		"emotional_state": "tilting",
		"consecutive_wins": 3,
		"current_bankroll": 480.25,
		"bets_this_session": 4,
		"is_at_risk": true
	}`)

	ev, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if ev.PlayerID != 7 {
		t.Errorf("PlayerID = %d, want 7", ev.PlayerID)
	}
	if !ev.IsBet() {
		t.Error("IsBet() = false, want true")
	}
	if ev.BetAmount != 10.5 || ev.NetResult != 10.5 {
		t.Errorf("amounts = %v/%v, want 10.5/10.5", ev.BetAmount, ev.NetResult)
	}
	if ev.EmotionalState != "tilting" {
		t.Errorf("EmotionalState = %q, want tilting", ev.EmotionalState)
	}
	if string(ev.Raw()) != string(payload) {
		t.Error("Raw() should return the original payload unmodified")
	}
}

func TestParse_DefaultsTypeToBet(t *testing.T) {
	ev, err := Parse([]byte(`{"player_id": 3}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Type != TypeBet {
		t.Errorf("Type = %q, want %q", ev.Type, TypeBet)
	}
}

func TestParse_UnknownTypeAccepted(t *testing.T) {
	ev, err := Parse([]byte(`{"player_id": 3, "type": "jackpot_spin"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.IsBet() {
		t.Error("unknown type should not be scoring-relevant")
	}
}

func TestParse_MissingPlayerID(t *testing.T) {
	_, err := Parse([]byte(`{"type": "bet_event"}`))
	if !errors.Is(err, ErrMissingPlayerID) {
		t.Errorf("err = %v, want ErrMissingPlayerID", err)
	}
}

func TestParse_BadJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	if !errors.Is(err, ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}

func TestTime(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   string
		want time.Time
	}{
		{"rfc3339", "2025-11-03T10:15:00Z", time.Date(2025, 11, 3, 10, 15, 0, 0, time.UTC)},
		{"bare iso", "2025-11-03T10:15:00.500000", time.Date(2025, 11, 3, 10, 15, 0, 500000000, time.UTC)},
		{"empty", "", fallback},
		{"garbage", "yesterday-ish", fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &RawEvent{PlayerID: 1, Timestamp: tt.ts}
			if got := ev.Time(fallback); !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
		})
	}
}
