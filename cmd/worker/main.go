// Command worker consumes queued run requests from Kafka and drives each run
// to completion chunk by chunk. Suggestions stay in the run state until a
// client fetches them through the server.
//
// Usage:
//
//	go run ./cmd/worker [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/app"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/events"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	maxIdle := flag.Int("max-idle", 3, "chunks without progress before a run is abandoned")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		slog.Error("the worker needs kafka; set kafka.enabled")
		os.Exit(1)
	}
	slog.Info("starting run worker",
		"topic", cfg.Kafka.Topics.RunRequested,
		"group", cfg.Kafka.ConsumerGroup,
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

	eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunEvents)
	defer eventProducer.Close()
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	collector := events.NewCollector(eventProducer, 100, 5*time.Second)
	collector.Start(collectorCtx)

	a, err := app.New(ctx, cfg, app.Options{
		Metrics: m,
		Batch:   []batch.Option{batch.WithEvents(collector)},
	})
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	w := worker.New(a.Orchestrator, *maxIdle)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RunRequested, w.Handle)

	slog.Info("run worker ready, consuming from kafka")
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	stopCollector()
	collector.Close()
	slog.Info("run worker stopped")
}
