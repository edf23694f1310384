// Command analytics consumes search events from Kafka, aggregates them in
// memory and serves the totals at GET /api/v1/analytics. When a search-log
// database is configured the aggregates are also snapshotted periodically.
//
// Usage:
//
//	go run ./cmd/analytics [--config configs/development.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/middleware"
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
	slog.Info("starting analytics service", "port", cfg.Analytics.Port, "topic", cfg.Kafka.Topic)

	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka.enabled=true")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	aggregator := analytics.NewAggregator(m)
	consumer := kafka.NewConsumer(cfg.Kafka, aggregator.Handler())
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	var snapshots *analytics.SnapshotStore
	if cfg.SearchLog.Driver != config.DriverNone {
		db, err := database.Open(ctx, cfg.SearchLog)
		if err != nil {
			slog.Error("failed to open snapshot database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		snapshots, err = analytics.NewSnapshotStore(ctx, db)
		if err != nil {
			slog.Error("failed to prepare snapshot store", "error", err)
			os.Exit(1)
		}
		snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		checker.Register("snapshots", health.PingCheck(db.Ping, true))
	}

	h := analytics.NewHandler(aggregator, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		middleware.Metrics(m),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
