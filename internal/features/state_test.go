package features

import (
	"context"
	"testing"
	"time"

	"github.com/mdresser/churnpipe/internal/event"
)

func betEvent(playerID int64, betsThisSession int, amount float64, won bool) *event.RawEvent {
	net := -amount
	if won {
		net = amount
	}
	return &event.RawEvent{
		PlayerID:        playerID,
		Type:            event.TypeBet,
		BetAmount:       amount,
		Won:             won,
		NetResult:       net,
		BetsThisSession: betsThisSession,
		EmotionalState:  "neutral",
	}
}

func TestApply_FreshPlayer(t *testing.T) {
	st := NewPlayerState(42)
	boundary := st.Apply(betEvent(42, 1, 10, true))

	if boundary {
		t.Error("first event must not be a session boundary")
	}
	if st.SessionsCompleted != 0 {
		t.Errorf("SessionsCompleted = %d, want 0", st.SessionsCompleted)
	}
	if st.BetsInSession != 1 || st.SessionWins != 1 {
		t.Errorf("counters = %d bets / %d wins, want 1/1", st.BetsInSession, st.SessionWins)
	}
	if st.SessionTotalWagered != 10 || st.SessionNetPnL != 10 {
		t.Errorf("wagered/pnl = %v/%v, want 10/10", st.SessionTotalWagered, st.SessionNetPnL)
	}
}

func TestDetectSessionBoundary(t *testing.T) {
	tests := []struct {
		prev, curr int
		want       bool
	}{
		{0, 1, false},  // fresh player
		{3, 4, false},  // session continues
		{3, 3, false},  // no movement
		{3, 1, true},   // counter reset: new session
		{1, 0, true},   // reset to zero
		{0, 0, false},  // nothing stored, nothing reported
		{10, 11, false},
	}

	for _, tt := range tests {
		if got := DetectSessionBoundary(tt.prev, tt.curr); got != tt.want {
			t.Errorf("DetectSessionBoundary(%d, %d) = %v, want %v", tt.prev, tt.curr, got, tt.want)
		}
	}
}

func TestApply_SessionBoundaryResetsOnce(t *testing.T) {
	st := NewPlayerState(1)

	// bets_this_session sequence [1,2,3,1,2]: boundary exactly at the
	// fourth event.
	seq := []int{1, 2, 3, 1, 2}
	boundaries := 0
	for _, bets := range seq {
		if st.Apply(betEvent(1, bets, 5, false)) {
			boundaries++
		}
	}

	if boundaries != 1 {
		t.Errorf("boundaries = %d, want exactly 1", boundaries)
	}
	if st.SessionsCompleted != 1 {
		t.Errorf("SessionsCompleted = %d, want 1", st.SessionsCompleted)
	}
	// Two events since the reset.
	if st.BetsInSession != 2 {
		t.Errorf("BetsInSession = %d, want 2", st.BetsInSession)
	}
	if st.SessionTotalWagered != 10 {
		t.Errorf("SessionTotalWagered = %v, want 10", st.SessionTotalWagered)
	}
}

func TestDue_ExactlyEveryNth(t *testing.T) {
	st := NewPlayerState(1)

	var dueAt []int
	for i := 1; i <= 35; i++ {
		st.Apply(betEvent(1, i, 1, false))
		if st.Due(10) {
			dueAt = append(dueAt, i)
		}
	}

	want := []int{10, 20, 30}
	if len(dueAt) != len(want) {
		t.Fatalf("due at %v, want %v", dueAt, want)
	}
	for i := range want {
		if dueAt[i] != want[i] {
			t.Fatalf("due at %v, want %v", dueAt, want)
		}
	}
}

func TestEncodeEmotionalState(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"neutral", 0},
		{"winning", 1},
		{"tilting", 2},
		{"bored", 3},
		{"recovering", 4},
		{"ecstatic", 0}, // unknown label encodes as neutral
	}
	for _, tt := range tests {
		if got := EncodeEmotionalState(tt.label); got != tt.want {
			t.Errorf("EncodeEmotionalState(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestMapRoundTrip(t *testing.T) {
	st := &PlayerState{
		PlayerID:              9,
		BetsInSession:         12,
		SessionTotalWagered:   123.45,
		SessionNetPnL:         -20.5,
		SessionWins:           5,
		BetsThisSession:       12,
		EmotionalState:        2,
		ConsecutiveLosses:     4,
		CurrentBankroll:       879.5,
		IsAtRisk:              true,
		SessionsCompleted:     3,
		InterventionsReceived: 1,
	}

	got := FromMap(9, st.ToMap())
	if *got != *st {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, st)
	}
}

func TestFromMap_PartialRecord(t *testing.T) {
	st := FromMap(5, map[string]string{
		"bets_in_session": "7",
		"session_wins":    "oops",
	})
	if st.BetsInSession != 7 {
		t.Errorf("BetsInSession = %d, want 7", st.BetsInSession)
	}
	if st.SessionWins != 0 {
		t.Errorf("malformed field should decode to 0, got %d", st.SessionWins)
	}
}

func TestSnapshot_Isolated(t *testing.T) {
	st := NewPlayerState(1)
	st.Apply(betEvent(1, 1, 10, true))

	snap := st.Snapshot()
	st.Apply(betEvent(1, 2, 10, false))

	if snap.BetsInSession != 1 {
		t.Errorf("snapshot mutated: BetsInSession = %d, want 1", snap.BetsInSession)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	st := NewPlayerState(3)
	st.BetsInSession = 4
	if err := store.Put(ctx, st, 24*time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, 3)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v; want state", got, err)
	}

	// A day later the record is stale and the player is fresh again.
	now = now.Add(25 * time.Hour)
	got, err = store.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expired state should read as nil")
	}
}
