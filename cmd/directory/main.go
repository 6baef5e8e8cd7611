// Command directory serves the restaurant directory API.
//
// It loads every restaurant from PostgreSQL into an in-memory cache with
// name, dish and combined inverted indices, answers suggest, search and
// nearby queries from it, runs the partner onboarding workflow, and
// publishes query analytics to Kafka. View counts go to Redis when it is
// reachable.
//
// Usage:
//
//	go run ./cmd/directory [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/maintenance"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/partner"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/query"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/resilience"
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
	slog.Info("starting restaurant directory", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var schema []string
	schema = append(schema, restaurant.Schema...)
	schema = append(schema, user.Schema...)
	schema = append(schema, partner.Schema...)
	if err := db.Migrate(ctx, schema...); err != nil {
		slog.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	var views *analytics.ViewCounter
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, view counting disabled", "error", err)
	} else {
		defer redisClient.Close()
		views = analytics.NewViewCounter(redisClient, cfg.Redis.KeyPrefix)
		slog.Info("view counting enabled", "addr", cfg.Redis.Addr)
	}

	var (
		collector *analytics.Collector
		producer  *kafka.Producer
	)
	if cfg.Analytics.Enabled {
		producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, analytics.CollectorConfig{
			BufferSize:    cfg.Analytics.BufferSize,
			BatchSize:     cfg.Analytics.BatchSize,
			FlushInterval: cfg.Analytics.FlushInterval,
		}, m)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	store := restaurant.NewPostgresStore(db)
	restaurants := cache.New(store, m)
	engine := query.New(restaurants, cfg.Search, m)

	breaker := resilience.NewCircuitBreaker("geocoder", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Geocoder.FailureThreshold,
		ResetTimeout:     cfg.Geocoder.ResetTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	geocoder := geo.NewLinkResolver(&http.Client{Timeout: cfg.Geocoder.Timeout}, breaker)

	users := user.NewService(user.NewPostgresStore(db))
	partners := partner.NewService(
		partner.NewPostgresEditStore(db),
		cache.NewWriter(store, restaurants),
		geocoder,
	)

	if cfg.Maintenance.Enabled {
		scheduler := maintenance.NewScheduler(restaurants, cfg.Maintenance.ResetInterval, cfg.Maintenance.WarmAfterReset)
		go scheduler.Run(ctx)
	}

	checker := health.NewChecker()
	checker.Register("postgres", db.HealthCheck())
	if redisClient != nil {
		checker.Register("redis", redisClient.HealthCheck())
	} else {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		})
	}
	if producer != nil {
		checker.Register("kafka", producer.HealthCheck(true))
	}
	checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
		if !restaurants.Loaded() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "indices not built"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d restaurants", restaurants.Stats().Restaurants)}
	})

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		defer limiter.Close()
	}

	h := handler.New(handler.Deps{
		Engine:   engine,
		Cache:    restaurants,
		Users:    users,
		Partners: partners,
		Views:    views,
		Events:   collector,
	})
	chain := router.New(h, router.Options{
		Users:          users,
		Limiter:        limiter,
		Health:         checker,
		Metrics:        m,
		AllowOrigins:   cfg.CORS.AllowOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	// Warm in the background so the listener is up for liveness probes;
	// readiness stays down until the indices are built.
	go func() {
		if _, err := restaurants.EnsureReady(ctx); err != nil {
			slog.Error("initial cache load failed", "error", err)
			return
		}
		slog.Info("restaurant cache warmed", "restaurants", restaurants.Stats().Restaurants)
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Handlers may still be tracking events after ListenAndServe returns,
	// so the collector is closed only once Shutdown has drained them.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("restaurant directory listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-drained

	slog.Info("restaurant directory stopped")
}
