package decisions

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_InsertAndListRecent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Now().UTC()
	batch := []*Decision{
		{ID: "dec_1", PlayerID: 1, ChurnScore: 0.2, Action: ActionNoAction, FeatureTimestamp: base},
		{ID: "dec_2", PlayerID: 2, ChurnScore: 0.7, Action: ActionOfferSent, FeatureTimestamp: base.Add(time.Minute)},
	}
	if err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != "dec_2" {
		t.Errorf("first = %s, want dec_2", got[0].ID)
	}
}

func TestMemoryStore_ListRecentStableWithinCycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// One scoring cycle: every decision shares the feature timestamp.
	ts := time.Now().UTC()
	store.InsertBatch(ctx, []*Decision{
		{ID: "dec_c", PlayerID: 3, FeatureTimestamp: ts},
		{ID: "dec_a", PlayerID: 1, FeatureTimestamp: ts},
		{ID: "dec_b", PlayerID: 2, FeatureTimestamp: ts},
	})

	for call := 0; call < 3; call++ {
		got, err := store.ListRecent(ctx, 10)
		if err != nil {
			t.Fatalf("ListRecent: %v", err)
		}
		for i, want := range []string{"dec_a", "dec_b", "dec_c"} {
			if got[i].ID != want {
				t.Fatalf("call %d: got[%d] = %s, want %s", call, i, got[i].ID, want)
			}
		}
	}
}

func TestMemoryStore_ListRecentLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 5; i++ {
		store.InsertBatch(ctx, []*Decision{{ID: "dec", PlayerID: int64(i)}})
	}

	got, _ := store.ListRecent(ctx, 3)
	if len(got) != 3 {
		t.Errorf("got %d decisions, want 3", len(got))
	}
}
