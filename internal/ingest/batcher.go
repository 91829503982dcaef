// Package ingest drains the inbound event queue and amortizes write cost.
//
// One logical worker pulls events off the ingest queue, accumulates a
// batch, and flushes it two ways at once: the whole batch goes to the
// durable raw event log, and the scoring-relevant subset is forwarded to
// the decisions queue. A flush fires when the batch is full or when the
// batch timeout elapses, whichever comes first — the timeout is what
// bounds ingestion latency under low traffic.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mdresser/churnpipe/internal/bus"
	"github.com/mdresser/churnpipe/internal/controlplane"
	"github.com/mdresser/churnpipe/internal/event"
	"github.com/mdresser/churnpipe/internal/eventlog"
	"github.com/mdresser/churnpipe/internal/metrics"
)

// Batcher is the ingestion worker.
type Batcher struct {
	in      bus.Queue
	out     bus.Queue
	log     eventlog.Store
	control *controlplane.Client
	logger  *slog.Logger

	batchSize    int
	batchTimeout time.Duration

	stop      chan struct{}
	stopOnce  sync.Once
	running   atomic.Bool
	flushes   atomic.Int64
	lastRunID atomic.Value // string; fallback when the control plane is unreadable
	now       func() time.Time
}

// NewBatcher creates the ingestion worker.
func NewBatcher(in, out bus.Queue, log eventlog.Store, control *controlplane.Client,
	logger *slog.Logger, batchSize int, batchTimeout time.Duration) *Batcher {
	return &Batcher{
		in:           in,
		out:          out,
		log:          log,
		control:      control,
		logger:       logger,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		stop:         make(chan struct{}),
		now:          time.Now,
	}
}

// Running reports whether the worker loop is active.
func (b *Batcher) Running() bool {
	return b.running.Load()
}

// Flushes returns the number of completed flush cycles.
func (b *Batcher) Flushes() int64 {
	return b.flushes.Load()
}

// Start runs the ingestion loop until ctx is cancelled or Stop is called.
// Call in a goroutine. The in-memory batch is dropped on shutdown.
func (b *Batcher) Start(ctx context.Context) {
	b.running.Store(true)
	defer b.running.Store(false)

	b.logger.Info("ingestion batcher started",
		"batch_size", b.batchSize, "batch_timeout", b.batchTimeout)

	var batch []*event.RawEvent
	lastFlush := b.now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		default:
		}

		// The pop timeout doubles as the flush clock: even with no
		// traffic, the loop wakes often enough to honor the bound.
		payload, err := b.in.PopWait(ctx, b.batchTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("ingest queue pop failed", "error", err)
			continue
		}

		if payload != nil {
			ev, perr := event.Parse(payload)
			if perr != nil {
				metrics.MalformedEvents.Inc()
				b.logger.Warn("dropping malformed event", "error", perr)
			} else {
				batch = append(batch, ev)
				metrics.EventsIngested.Inc()
			}
		}

		if len(batch) > 0 &&
			(len(batch) >= b.batchSize || b.now().Sub(lastFlush) >= b.batchTimeout) {
			b.flush(ctx, batch)
			batch = nil
			lastFlush = b.now()
		}
	}
}

// Stop signals the worker to stop. The loop never blocks on the stop
// channel, so the signal must be a close, not a send. Safe to call
// more than once.
func (b *Batcher) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// flush persists the batch and forwards bet events, concurrently. The two
// side effects are independent: a failed log insert loses this batch's
// rows (logged, no in-line retry) but does not hold back forwarding, and
// vice versa.
func (b *Batcher) flush(ctx context.Context, batch []*event.RawEvent) {
	started := b.now()
	runID := b.resolveRunID(ctx)

	records := make([]*eventlog.Record, len(batch))
	var bets [][]byte
	for i, ev := range batch {
		records[i] = &eventlog.Record{
			RunID:     runID,
			PlayerID:  ev.PlayerID,
			EventType: ev.Type,
			Payload:   ev.Raw(),
			EventTS:   ev.Time(started),
		}
		if ev.IsBet() {
			bets = append(bets, ev.Raw())
		}
	}

	var g errgroup.Group
	var insertErr, forwardErr error

	g.Go(func() error {
		if insertErr = b.log.InsertBatch(ctx, records); insertErr != nil {
			b.logger.Error("raw event batch lost", "error", insertErr, "count", len(records))
		}
		return nil
	})
	g.Go(func() error {
		if len(bets) == 0 {
			return nil
		}
		if forwardErr = b.out.Push(ctx, bets...); forwardErr != nil {
			b.logger.Error("forward to decisions queue failed", "error", forwardErr, "count", len(bets))
			return nil
		}
		metrics.EventsForwarded.Add(float64(len(bets)))
		return nil
	})
	_ = g.Wait()

	result := "ok"
	if insertErr != nil || forwardErr != nil {
		result = "error"
	}
	metrics.BatchFlushes.WithLabelValues(result).Inc()
	metrics.FlushDuration.Observe(b.now().Sub(started).Seconds())
	b.flushes.Add(1)

	b.logger.Debug("flushed batch",
		"events", len(batch), "forwarded", len(bets), "run_id", runID, "result", result)
}

// resolveRunID re-reads the run identifier so a run rotation mid-stream is
// honored on the next flush. On a control-plane error it falls back to the
// last-known id; a batch with a stale run tag beats a lost batch.
func (b *Batcher) resolveRunID(ctx context.Context) string {
	runID, err := b.control.RunID(ctx)
	if err != nil {
		if last, ok := b.lastRunID.Load().(string); ok && last != "" {
			b.logger.Warn("run id unavailable, using last known", "error", err, "run_id", last)
			return last
		}
		b.logger.Warn("run id unavailable, tagging batch as unknown", "error", err)
		return "unknown"
	}
	b.lastRunID.Store(runID)
	return runID
}

// SampleQueueDepth updates the ingest queue depth gauge. Called by the
// ops surface rather than the hot loop.
func (b *Batcher) SampleQueueDepth(ctx context.Context) error {
	n, err := b.in.Len(ctx)
	if err != nil {
		return fmt.Errorf("ingest queue depth: %w", err)
	}
	metrics.QueueDepth.WithLabelValues(bus.IngestEvents).Set(float64(n))
	return nil
}
