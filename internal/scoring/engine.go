// Package scoring runs the feature aggregator and the batch scoring
// engine. The two share one worker because scoring must see
// freshly-aggregated state.
//
// The loop cycles IDLE → COLLECTING → SCORING: bet events coming off the
// decisions queue are folded into per-player state, players crossing the
// every-Nth-bet boundary join the due-set, and every batch window the
// whole due-set is scored in one classifier call against the live
// threshold. The threshold is re-read from the control plane each cycle;
// the model is hot-swapped between cycles when the reload flag is set.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdresser/churnpipe/internal/bus"
	"github.com/mdresser/churnpipe/internal/classifier"
	"github.com/mdresser/churnpipe/internal/controlplane"
	"github.com/mdresser/churnpipe/internal/decisions"
	"github.com/mdresser/churnpipe/internal/event"
	"github.com/mdresser/churnpipe/internal/features"
	"github.com/mdresser/churnpipe/internal/idgen"
	"github.com/mdresser/churnpipe/internal/metrics"
	"github.com/mdresser/churnpipe/internal/retry"
)

// Bounded in-place retry for the state read in aggregate. Short; the
// worker loop is single-threaded and must keep draining the queue.
const (
	stateReadAttempts  = 3
	stateReadBaseDelay = 10 * time.Millisecond
)

// Config holds the engine's tunables.
type Config struct {
	ModelPath   string
	ScoreEveryN int
	BatchWindow time.Duration
	StateTTL    time.Duration
}

// Engine is the combined aggregation and scoring worker.
type Engine struct {
	queue   bus.Queue
	states  features.Store
	control *controlplane.Client
	log     decisions.Store
	logger  *slog.Logger
	cfg     Config

	// model is swapped whole on hot reload; the ops surface reads the
	// version concurrently.
	model atomic.Pointer[classifier.Model]

	// pending is the due-set for the current cycle: player id → freshest
	// snapshot. Touched only by the worker goroutine.
	pending map[int64]*features.PlayerState

	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	cycles   atomic.Int64
	now      func() time.Time
}

// NewEngine creates the scoring worker and loads the initial model
// artifact. A missing or corrupt artifact at startup is a hard error;
// only reloads are allowed to fail soft.
func NewEngine(queue bus.Queue, states features.Store, control *controlplane.Client,
	log decisions.Store, logger *slog.Logger, cfg Config) (*Engine, error) {

	model, err := classifier.Load(cfg.ModelPath, FeatureNames)
	if err != nil {
		return nil, fmt.Errorf("load initial model: %w", err)
	}

	e := &Engine{
		queue:   queue,
		states:  states,
		control: control,
		log:     log,
		logger:  logger,
		cfg:     cfg,
		pending: make(map[int64]*features.PlayerState),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	e.model.Store(model)

	logger.Info("model loaded",
		"version", model.Version(),
		"score_every_n", cfg.ScoreEveryN,
		"batch_window", cfg.BatchWindow)
	return e, nil
}

// Running reports whether the worker loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Cycles returns the number of completed scoring cycles.
func (e *Engine) Cycles() int64 {
	return e.cycles.Load()
}

// ModelVersion returns the active model's version label.
func (e *Engine) ModelVersion() string {
	return e.model.Load().Version()
}

// Start runs the aggregate-and-score loop until ctx is cancelled or Stop
// is called. Call in a goroutine. The in-memory due-set is dropped on
// shutdown.
func (e *Engine) Start(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)

	e.logger.Info("scoring engine started", "model_version", e.ModelVersion())

	lastScored := e.now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		default:
		}

		payload, err := e.queue.PopWait(ctx, e.cfg.BatchWindow)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Warn("decisions queue pop failed", "error", err)
			continue
		}
		if payload != nil {
			e.aggregate(ctx, payload)
		}

		// Reload check is independent of the scoring cycle; a swap takes
		// effect on the next cycle, never mid-cycle.
		if e.control.ConsumeModelReload(ctx) {
			e.reloadModel()
		}

		if len(e.pending) > 0 && e.now().Sub(lastScored) >= e.cfg.BatchWindow {
			e.scoreBatch(ctx)
			lastScored = e.now()
		}
	}
}

// Stop signals the worker to stop. The loop never blocks on the stop
// channel, so the signal must be a close, not a send. Safe to call
// more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// aggregate folds one queued event into the player's rolling state and
// snapshots the player into the due-set when they cross the scoring
// boundary. A malformed event is dropped; it cannot corrupt stored state.
func (e *Engine) aggregate(ctx context.Context, payload []byte) {
	ev, err := event.Parse(payload)
	if err != nil {
		metrics.MalformedEvents.Inc()
		e.logger.Warn("dropping malformed event", "error", err)
		return
	}
	if !ev.IsBet() {
		return
	}

	// The event is already off the queue, so a dropped read loses the
	// state update for good. Retry in place rather than re-queueing:
	// re-queueing would reorder the player's events and boundary
	// detection depends on their order.
	var st *features.PlayerState
	err = retry.Do(ctx, stateReadAttempts, stateReadBaseDelay, func() error {
		var rerr error
		st, rerr = e.states.Get(ctx, ev.PlayerID)
		return rerr
	})
	if err != nil {
		e.logger.Warn("player state unavailable, dropping event",
			"player_id", ev.PlayerID, "error", err)
		return
	}
	if st == nil {
		st = features.NewPlayerState(ev.PlayerID)
	}

	if st.Apply(ev) {
		metrics.SessionBoundaries.Inc()
	}
	metrics.EventsAggregated.Inc()

	if err := e.states.Put(ctx, st, e.cfg.StateTTL); err != nil {
		e.logger.Warn("player state persist failed",
			"player_id", ev.PlayerID, "error", err)
	}

	if st.Due(e.cfg.ScoreEveryN) {
		// Last snapshot per player wins: scoring uses the freshest state
		// available at cycle time, not the state at due-trigger time.
		e.pending[ev.PlayerID] = st.Snapshot()
		metrics.DuePlayers.Set(float64(len(e.pending)))
	}
}

// scoreBatch scores every due player in one classifier call and appends
// one decision per player.
func (e *Engine) scoreBatch(ctx context.Context) {
	started := e.now()
	threshold := e.control.Threshold(ctx)
	model := e.model.Load()

	ids := make([]int64, 0, len(e.pending))
	rows := make([][]float64, 0, len(e.pending))
	for id, snap := range e.pending {
		ids = append(ids, id)
		rows = append(rows, BuildRow(snap))
	}

	scores := model.PredictProba(rows)
	featureTS := started.UTC()

	batch := make([]*decisions.Decision, len(ids))
	for i, id := range ids {
		score := scores[i]
		action := decisions.ActionNoAction
		if score >= threshold {
			action = decisions.ActionOfferSent
			e.logger.Info("churn alert",
				"player_id", id, "score", fmt.Sprintf("%.3f", score), "action", action)
		}
		batch[i] = &decisions.Decision{
			ID:               idgen.WithPrefix("dec_"),
			PlayerID:         id,
			ChurnScore:       score,
			ModelVersion:     model.Version(),
			FeatureTimestamp: featureTS,
			Action:           action,
			Reason:           fmt.Sprintf("score=%.3f", score),
		}
		metrics.Decisions.WithLabelValues(action).Inc()
	}

	result := "ok"
	if err := e.log.InsertBatch(ctx, batch); err != nil {
		result = "error"
		e.logger.Error("decision batch lost", "error", err, "count", len(batch))
	} else {
		e.logger.Debug("scored players",
			"count", len(batch), "threshold", threshold, "model_version", model.Version())
	}

	// The due-set clears either way; a lost batch is a logged gap, not a
	// rescore.
	e.pending = make(map[int64]*features.PlayerState)
	metrics.DuePlayers.Set(0)
	metrics.ScoringCycles.WithLabelValues(result).Inc()
	metrics.ScoringDuration.Observe(e.now().Sub(started).Seconds())
	e.cycles.Add(1)
}

// reloadModel swaps in a fresh artifact for the next cycle. Failure keeps
// the previous model active.
func (e *Engine) reloadModel() {
	model, err := classifier.Load(e.cfg.ModelPath, FeatureNames)
	if err != nil {
		metrics.ModelReloads.WithLabelValues("error").Inc()
		e.logger.Error("model reload failed, keeping previous", "error", err)
		return
	}
	e.model.Store(model)
	metrics.ModelReloads.WithLabelValues("ok").Inc()
	e.logger.Info("model hot-reloaded", "version", model.Version())
}
