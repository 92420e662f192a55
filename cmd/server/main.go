// Command server serves suggestion runs over HTTP.
//
// Clients drive outbound, external and inbound runs chunk by chunk and fetch
// the formatted suggestions once a run completes. When Kafka is enabled, run
// lifecycle events are published and POST /api/v1/runs queues whole runs for
// the worker.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml]
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/api"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/app"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/metrics"
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
	slog.Info("starting link suggestion server",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"kafka", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	// Kafka is optional: without it events are dropped and queued runs are
	// rejected.
	var (
		batchOpts []batch.Option
		publisher api.RunPublisher
		collector *events.Collector
	)
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	if cfg.Kafka.Enabled {
		eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunEvents)
		defer eventProducer.Close()
		collector = events.NewCollector(eventProducer, 100, 5*time.Second)
		collector.Start(collectorCtx)
		batchOpts = append(batchOpts, batch.WithEvents(collector))

		runProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunRequested)
		defer runProducer.Close()
		publisher = runProducer
	}

	a, err := app.New(ctx, cfg, app.Options{Metrics: m, Batch: batchOpts})
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var limiter *api.Limiter
	if cfg.RateLimit.Enabled {
		limiter = api.NewLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		defer limiter.Close()
	}

	cors := api.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSOrigins

	router := api.NewRouter(&api.Deps{
		Runner:         a.Orchestrator,
		Publisher:      publisher,
		Health:         a.Health,
		Metrics:        m,
		Limiter:        limiter,
		APIKeys:        cfg.Server.APIKeys,
		CORS:           cors,
		RequestTimeout: cfg.Server.RequestTimeout,
		Tracing:        cfg.Tracing.Enabled,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
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

	slog.Info("server listening", "addr", server.Addr, "api_keys", len(cfg.Server.APIKeys) > 0)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if collector != nil {
		stopCollector()
		collector.Close()
	}
	slog.Info("server stopped")
}
