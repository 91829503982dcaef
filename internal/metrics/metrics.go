// Package metrics provides Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsIngested counts events pulled off the ingest queue.
	EventsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "events_ingested_total",
			Help:      "Total events drained from the ingest queue.",
		},
	)

	// BatchFlushes counts ingestion batch flushes by result.
	BatchFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "batch_flushes_total",
			Help:      "Total ingestion batch flushes by result.",
		},
		[]string{"result"},
	)

	// EventsForwarded counts bet events forwarded to the decisions queue.
	EventsForwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "events_forwarded_total",
			Help:      "Total scoring-relevant events forwarded downstream.",
		},
	)

	// FlushDuration observes flush latency.
	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "churnpipe",
			Name:      "flush_duration_seconds",
			Help:      "Ingestion batch flush duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EventsAggregated counts events folded into player state.
	EventsAggregated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "events_aggregated_total",
			Help:      "Total events applied to per-player feature state.",
		},
	)

	// MalformedEvents counts events dropped during parsing.
	MalformedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "malformed_events_total",
			Help:      "Total malformed events dropped.",
		},
	)

	// SessionBoundaries counts detected session boundaries.
	SessionBoundaries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "session_boundaries_total",
			Help:      "Total session boundaries detected.",
		},
	)

	// ScoringCycles counts scoring cycles by result.
	ScoringCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "scoring_cycles_total",
			Help:      "Total scoring cycles by result.",
		},
		[]string{"result"},
	)

	// Decisions counts emitted decisions by action.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "decisions_total",
			Help:      "Total decisions emitted by action.",
		},
		[]string{"action"},
	)

	// ScoringDuration observes scoring cycle latency.
	ScoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "churnpipe",
			Name:      "scoring_duration_seconds",
			Help:      "Batch scoring cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ModelReloads counts hot-reload attempts by result.
	ModelReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "churnpipe",
			Name:      "model_reloads_total",
			Help:      "Total model hot-reload attempts by result.",
		},
		[]string{"result"},
	)

	// QueueDepth tracks observed queue depths by queue name.
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "churnpipe",
			Name:      "queue_depth",
			Help:      "Last observed depth of the named queue.",
		},
		[]string{"queue"},
	)

	// DuePlayers tracks the size of the current due-set.
	DuePlayers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "churnpipe",
			Name:      "due_players",
			Help:      "Players currently awaiting the next scoring cycle.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsIngested,
		BatchFlushes,
		EventsForwarded,
		FlushDuration,
		EventsAggregated,
		MalformedEvents,
		SessionBoundaries,
		ScoringCycles,
		Decisions,
		ScoringDuration,
		ModelReloads,
		QueueDepth,
		DuePlayers,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
