// Command analytics starts the standalone analytics service.
//
// It consumes directory query and view events from Kafka, aggregates them
// in memory (query volume, latency percentiles, zero-result and top
// queries, most viewed restaurants), snapshots the aggregate to PostgreSQL,
// and serves it at GET /api/v1/analytics. Per-restaurant view counters are
// read from Redis.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/redis"
)

// main boots the analytics service: a Kafka consumer feeding the in-memory
// aggregator, the snapshot loop, and the HTTP API. Graceful shutdown is
// triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Analytics.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx, snapshot.Schema...); err != nil {
		slog.Error("failed to migrate snapshot schema", "error", err)
		os.Exit(1)
	}

	aggregator := analytics.NewAggregator()
	snapshots := snapshot.NewStore(db)
	if latest, err := snapshots.Latest(ctx); err == nil && latest != nil {
		slog.Info("previous snapshot found",
			"total_queries", latest.TotalQueries,
			"total_views", latest.TotalViews,
		)
	}
	go snapshots.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	defer consumer.Close()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	var views *analytics.ViewCounter
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, view counts disabled", "error", err)
	} else {
		defer redisClient.Close()
		views = analytics.NewViewCounter(redisClient, cfg.Redis.KeyPrefix)
	}

	checker := health.NewChecker()
	checker.Register("postgres", db.HealthCheck())
	checker.Register("kafka", kafka.BrokerCheck(cfg.Kafka.Brokers, false))
	if redisClient != nil {
		checker.Register("redis", redisClient.HealthCheck())
	}

	analyticsHandler := analytics.NewHandler(aggregator, views)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/views", analyticsHandler.Views)
	mux.HandleFunc("DELETE /api/v1/analytics/views", analyticsHandler.ResetViews)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

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
