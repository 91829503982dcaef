// Package pipeline wires the stores and workers together and owns their
// lifecycle. All handles are created here and injected; no package holds
// lazily-initialized global state.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/mdresser/churnpipe/internal/bus"
	"github.com/mdresser/churnpipe/internal/config"
	"github.com/mdresser/churnpipe/internal/controlplane"
	"github.com/mdresser/churnpipe/internal/decisions"
	"github.com/mdresser/churnpipe/internal/eventlog"
	"github.com/mdresser/churnpipe/internal/features"
	"github.com/mdresser/churnpipe/internal/health"
	"github.com/mdresser/churnpipe/internal/ingest"
	"github.com/mdresser/churnpipe/internal/logging"
	"github.com/mdresser/churnpipe/internal/opsserver"
	"github.com/mdresser/churnpipe/internal/retry"
	"github.com/mdresser/churnpipe/internal/scoring"
)

const (
	connectAttempts  = 5
	connectBaseDelay = 500 * time.Millisecond
	shutdownTimeout  = 5 * time.Second
)

// Pipeline is the assembled process: two workers plus the ops surface.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger

	rdb *redis.Client
	db  *sql.DB // nil when running on in-memory logs

	control *controlplane.Client
	batcher *ingest.Batcher
	engine  *scoring.Engine
	ops     *opsserver.Server
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates an unstarted pipeline.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run connects to the backing stores, starts the workers, and blocks
// until ctx is cancelled, then shuts everything down. In-memory batches
// and due-sets are dropped on shutdown; the durable stores converge on
// restart because every write is idempotent on its key.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := p.connect(runCtx); err != nil {
		return err
	}
	defer p.closeStores()

	eventLog, decisionLog := p.buildLogs()

	p.control = controlplane.NewClient(controlplane.NewRedisKV(p.rdb))
	ingestQ := bus.NewRedisQueue(p.rdb, bus.IngestEvents)
	decisionsQ := bus.NewRedisQueue(p.rdb, bus.DecisionsQueue)
	states := features.NewRedisStore(p.rdb)

	p.batcher = ingest.NewBatcher(ingestQ, decisionsQ, eventLog, p.control,
		logging.ForWorker(p.logger, "ingest"), p.cfg.BatchSize, p.cfg.BatchTimeout)

	engine, err := scoring.NewEngine(decisionsQ, states, p.control, decisionLog,
		logging.ForWorker(p.logger, "scoring"), scoring.Config{
			ModelPath:   p.cfg.ModelPath,
			ScoreEveryN: p.cfg.ScoreEveryN,
			BatchWindow: p.cfg.BatchWindow,
			StateTTL:    p.cfg.StateTTL,
		})
	if err != nil {
		return err
	}
	p.engine = engine

	p.ops = opsserver.New(p.cfg.Port, p.healthRegistry(), p.stats, p.logger)

	go p.batcher.Start(runCtx)
	go p.engine.Start(runCtx)
	go p.ops.Start()

	p.logger.Info("pipeline running",
		"batch_size", p.cfg.BatchSize,
		"score_every_n", p.cfg.ScoreEveryN,
		"model_version", p.engine.ModelVersion())

	<-ctx.Done()
	p.shutdown()
	return nil
}

// connect establishes Redis and (optionally) Postgres connections,
// retrying while the backing stores come up.
func (p *Pipeline) connect(ctx context.Context) error {
	p.rdb = redis.NewClient(&redis.Options{
		Addr:     p.cfg.RedisAddr,
		Password: p.cfg.RedisPassword,
		DB:       p.cfg.RedisDB,
	})
	err := retry.Do(ctx, connectAttempts, connectBaseDelay, func() error {
		return p.rdb.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("connect to redis at %s: %w", p.cfg.RedisAddr, err)
	}

	if p.cfg.DatabaseURL == "" {
		p.logger.Warn("DATABASE_URL not set, using in-memory event and decision logs")
		return nil
	}

	db, err := sql.Open("postgres", p.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	if err := retry.Do(ctx, connectAttempts, connectBaseDelay, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return fmt.Errorf("connect to postgres: %w", err)
	}
	p.db = db
	return nil
}

func (p *Pipeline) buildLogs() (eventlog.Store, decisions.Store) {
	if p.db != nil {
		return eventlog.NewPostgresStore(p.db), decisions.NewPostgresStore(p.db)
	}
	return eventlog.NewMemoryStore(), decisions.NewMemoryStore()
}

func (p *Pipeline) healthRegistry() *health.Registry {
	reg := health.NewRegistry()
	reg.Register("redis", health.Ping(func(ctx context.Context) error {
		return p.rdb.Ping(ctx).Err()
	}))
	if p.db != nil {
		reg.Register("postgres", health.Ping(func(ctx context.Context) error {
			return p.db.PingContext(ctx)
		}))
	}
	reg.Register("workers", func(ctx context.Context) health.Status {
		if !p.batcher.Running() || !p.engine.Running() {
			return health.Status{Healthy: false, Detail: "worker loop not running"}
		}
		return health.Status{Healthy: true}
	})
	return reg
}

func (p *Pipeline) stats(ctx context.Context) map[string]any {
	_ = p.batcher.SampleQueueDepth(ctx)
	return map[string]any{
		"model_version":  p.engine.ModelVersion(),
		"threshold":      p.control.Threshold(ctx),
		"flushes":        p.batcher.Flushes(),
		"scoring_cycles": p.engine.Cycles(),
	}
}

func (p *Pipeline) shutdown() {
	p.logger.Info("shutting down")

	p.batcher.Stop()
	p.engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.ops.Shutdown(ctx); err != nil {
		p.logger.Warn("ops server shutdown", "error", err)
	}
}

func (p *Pipeline) closeStores() {
	if p.rdb != nil {
		_ = p.rdb.Close()
	}
	if p.db != nil {
		_ = p.db.Close()
	}
}
