// Command searcher serves the ranking engine over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [--config configs/development.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "model", cfg.Ranking.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	eng, err := engine.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	warm := []ranker.Config{{Model: ranker.ModelVSM}, eng.Executor.Defaults().DefaultRanking}
	if err := eng.Warm(ctx, warm...); err != nil {
		slog.Error("failed to build scorers", "error", err)
		os.Exit(1)
	}
	eng.StartRetention(ctx, cfg.SearchLog.Retention, time.Hour)

	checker := health.NewChecker()
	eng.RegisterHealth(checker)

	opts := handler.Options{
		GroundTruth: eng.GroundTruth,
		Scorers:     eng.Scorers,
		Results:     eng.Results,
	}
	if eng.SearchLog != nil {
		opts.SearchLog = eng.SearchLog
	}
	h := handler.New(eng.Executor, opts)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *middleware.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
		go limiter.Cleanup(ctx, 5*time.Minute)
	}

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		middleware.Metrics(m),
		middleware.RateLimit(limiter),
		middleware.Tracing(tracing.NewTracer(cfg.Tracing.Enabled, cfg.Tracing.SampleRate)),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "documents", eng.Collection.Len())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
