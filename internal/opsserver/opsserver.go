// Package opsserver exposes the pipeline's operational endpoints:
// liveness, readiness, Prometheus metrics, and a small stats snapshot.
// It is not a product API; external surfaces talk to the shared stores.
package opsserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdresser/churnpipe/internal/health"
	"github.com/mdresser/churnpipe/internal/metrics"
)

// StatsFunc returns a point-in-time snapshot of pipeline state.
type StatsFunc func(ctx context.Context) map[string]any

// Server serves the ops endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates the ops server.
func New(port string, registry *health.Registry, stats StatsFunc, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		healthy, statuses := registry.CheckAll(c.Request.Context())
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"healthy": healthy, "subsystems": statuses})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats(c.Request.Context()))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Shutdown is called. Call in a goroutine.
func (s *Server) Start() {
	s.logger.Info("ops server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("ops server error", "error", err)
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying handler. Test use only.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
