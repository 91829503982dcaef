// Churnpipe - real-time churn scoring for casino event streams
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdresser/churnpipe/internal/config"
	"github.com/mdresser/churnpipe/internal/logging"
	"github.com/mdresser/churnpipe/internal/pipeline"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting churnpipe",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.LogLevel, "text")
	logger.Info("configuration loaded",
		"env", cfg.Env,
		"redis_addr", cfg.RedisAddr,
		"model_path", cfg.ModelPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
		os.Exit(1)
	}
}
