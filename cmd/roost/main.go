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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	roosthttp "github.com/birdwork/roost/internal/adapter/http"
	"github.com/birdwork/roost/internal/adapter/llm"
	roostnats "github.com/birdwork/roost/internal/adapter/nats"
	roostotel "github.com/birdwork/roost/internal/adapter/otel"
	"github.com/birdwork/roost/internal/adapter/postgres"
	"github.com/birdwork/roost/internal/adapter/ristretto"
	"github.com/birdwork/roost/internal/adapter/sidecar"
	"github.com/birdwork/roost/internal/adapter/ws"
	"github.com/birdwork/roost/internal/config"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/logger"
	"github.com/birdwork/roost/internal/port/metrics"
	"github.com/birdwork/roost/internal/resilience"
	"github.com/birdwork/roost/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"accounts", len(cfg.Accounts),
		"max_concurrent", cfg.Orchestrator.MaxConcurrent,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := roostotel.Init(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	instruments, err := roostotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	dedupStore, err := ristretto.NewDedupCache(
		postgres.NewDedupStore(pool),
		cfg.Cache.MaxSizeMB*1024*1024,
		cfg.Cache.TTL,
	)
	if err != nil {
		return fmt.Errorf("dedup cache: %w", err)
	}
	defer dedupStore.Close()

	metricsStore := postgres.NewMetricsStore(pool, log)

	// NATS is optional: without a URL, events stay local.
	var publisher *roostnats.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = roostnats.Connect(ctx, cfg.NATS.URL, log)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = publisher.Close() }()
	}

	hub := ws.NewHub(log)

	sinks := metrics.Fanout{metricsStore, hub, instruments}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}

	// --- Platform and scoring backends ---

	platform := sidecar.NewClient(cfg.Sidecar)

	llmClient := llm.NewClient(cfg.Scorer)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Engine ---

	clock := service.SystemClock()
	limiter := service.NewRateLimiter()
	gate := service.NewRelevanceGate(llmClient)

	executor := service.NewPhaseExecutor(
		platform, gate, dedupStore, limiter, platform, llmClient, sinks, clock, log)
	runner := service.NewAccountRunner(platform, executor, limiter, cfg.Phases, clock, log)
	orch := service.NewOrchestrator(runner, cfg.Orchestrator, clock, log)
	orch.SetObservability(instruments)

	orch.AddOnComplete(func(agg report.Aggregate) {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsStore.SaveRun(saveCtx, agg); err != nil {
			log.Error("persist run report failed", "run", agg.RunID, "error", err)
		}
		if publisher != nil {
			if err := publisher.PublishRun(saveCtx, agg); err != nil {
				log.Warn("publish run report failed", "run", agg.RunID, "error", err)
			}
		}
		hub.BroadcastRunFinished(saveCtx, agg)
	})

	// --- HTTP ---

	handlers := roosthttp.NewHandlers(orch, cfg.ActiveAccounts(), metricsStore, log)

	r := chi.NewRouter()
	r.Use(roosthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(roosthttp.RequestID)
	r.Use(roosthttp.Logger)
	r.Use(roostotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	roosthttp.MountRoutes(r, handlers, hub)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
