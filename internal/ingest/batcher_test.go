package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mdresser/churnpipe/internal/bus"
	"github.com/mdresser/churnpipe/internal/controlplane"
	"github.com/mdresser/churnpipe/internal/eventlog"
)

// failingLog is an event log whose inserts always fail.
type failingLog struct{}

func (failingLog) InsertBatch(context.Context, []*eventlog.Record) error {
	return errors.New("database unavailable")
}
func (failingLog) Count(context.Context, string) (int64, error) { return 0, nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func betPayload(playerID int64, betsThisSession int) []byte {
	p, _ := json.Marshal(map[string]any{
		"player_id":         playerID,
		"type":              "bet_event",
		"timestamp":         time.Now().UTC().Format(time.RFC3339Nano),
		"bet_amount":        10.0,
		"bets_this_session": betsThisSession,
	})
	return p
}

type harness struct {
	in      *bus.MemoryQueue
	out     *bus.MemoryQueue
	log     *eventlog.MemoryStore
	kv      *controlplane.MemoryKV
	batcher *Batcher
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

func startBatcher(t *testing.T, log eventlog.Store, batchSize int, batchTimeout time.Duration) *harness {
	t.Helper()

	h := &harness{
		in:  bus.NewMemoryQueue(),
		out: bus.NewMemoryQueue(),
		kv:  controlplane.NewMemoryKV(),
	}
	if ms, ok := log.(*eventlog.MemoryStore); ok {
		h.log = ms
	}
	h.kv.Set(context.Background(), controlplane.KeyCurrentRunID, "run-test")

	h.batcher = NewBatcher(h.in, h.out, log, controlplane.NewClient(h.kv),
		testLogger(), batchSize, batchTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done.Add(1)
	go func() {
		defer h.done.Done()
		h.batcher.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		h.done.Wait()
	})
	return h
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBatcher_SizeTriggeredFlush(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryStore()
	h := startBatcher(t, log, 5, time.Minute) // timeout effectively off

	for i := 1; i <= 5; i++ {
		h.in.Push(ctx, betPayload(int64(i), 1))
	}

	waitFor(t, 2*time.Second, func() bool {
		n, _ := log.Count(ctx, "run-test")
		return n == 5
	})

	// All five were bet events, so all five were forwarded in order.
	for i := 1; i <= 5; i++ {
		v, err := h.out.PopWait(ctx, time.Second)
		if err != nil || v == nil {
			t.Fatalf("forwarded event %d missing: %v", i, err)
		}
		var got map[string]any
		json.Unmarshal(v, &got)
		if int64(got["player_id"].(float64)) != int64(i) {
			t.Errorf("forwarded out of order: got player %v at position %d", got["player_id"], i)
		}
	}
}

func TestBatcher_TimeoutTriggeredFlush(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryStore()
	h := startBatcher(t, log, 50, 100*time.Millisecond)

	// Well under the size threshold; only the timeout can flush these.
	for i := 1; i <= 10; i++ {
		h.in.Push(ctx, betPayload(int64(i), 1))
	}

	start := time.Now()
	waitFor(t, time.Second, func() bool {
		n, _ := log.Count(ctx, "run-test")
		return n == 10
	})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("flush took %v, expected within the timeout bound", elapsed)
	}
}

func TestBatcher_OnlyBetEventsForwarded(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryStore()
	h := startBatcher(t, log, 3, 50*time.Millisecond)

	churn, _ := json.Marshal(map[string]any{
		"player_id": 2, "type": "player_churned",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	h.in.Push(ctx, betPayload(1, 1))
	h.in.Push(ctx, churn)
	h.in.Push(ctx, betPayload(3, 1))

	// Everything reaches the durable log...
	waitFor(t, time.Second, func() bool {
		n, _ := log.Count(ctx, "run-test")
		return n == 3
	})

	// ...but only the two bet events are forwarded.
	waitFor(t, time.Second, func() bool {
		n, _ := h.out.Len(ctx)
		return n == 2
	})
}

func TestBatcher_MalformedEventDropped(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryStore()
	h := startBatcher(t, log, 2, 50*time.Millisecond)

	h.in.Push(ctx, []byte(`{not json`))
	h.in.Push(ctx, betPayload(1, 1))

	waitFor(t, time.Second, func() bool {
		n, _ := log.Count(ctx, "run-test")
		return n == 1
	})
}

func TestBatcher_InsertFailureDoesNotCrashOrBlockForwarding(t *testing.T) {
	ctx := context.Background()
	h := startBatcher(t, failingLog{}, 2, 50*time.Millisecond)

	h.in.Push(ctx, betPayload(1, 1))
	h.in.Push(ctx, betPayload(2, 2))

	// Forwarding is independent of the failed insert.
	waitFor(t, time.Second, func() bool {
		n, _ := h.out.Len(ctx)
		return n == 2
	})

	if !h.batcher.Running() {
		t.Error("batcher should survive insert failures")
	}
}

func TestBatcher_RunRotationPickedUpNextFlush(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryStore()
	h := startBatcher(t, log, 1, 50*time.Millisecond)

	h.in.Push(ctx, betPayload(1, 1))
	waitFor(t, time.Second, func() bool {
		n, _ := log.Count(ctx, "run-test")
		return n == 1
	})

	// Simulator rotates the run; the very next flush tags the new run.
	h.kv.Set(ctx, controlplane.KeyCurrentRunID, "run-next")
	h.in.Push(ctx, betPayload(2, 1))

	waitFor(t, time.Second, func() bool {
		n, _ := log.Count(ctx, "run-next")
		return n == 1
	})
}

func TestBatcher_MintsRunIDWhenAbsent(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryStore()

	h := &harness{
		in:  bus.NewMemoryQueue(),
		out: bus.NewMemoryQueue(),
		kv:  controlplane.NewMemoryKV(),
	}
	b := NewBatcher(h.in, h.out, log, controlplane.NewClient(h.kv),
		testLogger(), 1, 50*time.Millisecond)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.Start(runCtx)

	h.in.Push(ctx, betPayload(1, 1))

	waitFor(t, time.Second, func() bool {
		minted, _ := h.kv.Get(ctx, controlplane.KeyCurrentRunID)
		if minted == "" {
			return false
		}
		n, _ := log.Count(ctx, minted)
		return n == 1
	})
}

func TestBatcher_StopExitsLoop(t *testing.T) {
	h := startBatcher(t, eventlog.NewMemoryStore(), 10, 20*time.Millisecond)

	waitFor(t, time.Second, func() bool { return h.batcher.Running() })
	h.batcher.Stop()
	waitFor(t, time.Second, func() bool { return !h.batcher.Running() })

	// Idempotent: a second Stop must not panic.
	h.batcher.Stop()
}
