// Command ingest consumes page-stored events from Kafka, parses each page
// into a long-lived corpus index and snapshots the index periodically.
//
// Usage:
//
//	go run ./cmd/ingest [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
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

	loc, err := cfg.Forum.Location()
	if err != nil {
		slog.Error("invalid forum timezone", "error", err)
		os.Exit(1)
	}

	idx, err := corpus.Load(cfg.Storage.SnapshotPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		idx = corpus.NewIndex()
		slog.Info("no snapshot found, starting with an empty index", "path", cfg.Storage.SnapshotPath)
	case err != nil:
		slog.Error("failed to load snapshot", "error", err)
		os.Exit(1)
	default:
		topics, users, posts := idx.Counts()
		slog.Info("snapshot loaded", "topics", topics, "users", users, "posts", posts)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	parser := extractor.New(cfg.Forum.BaseURL, loc, m)
	worker := ingest.NewWorker(rawstore.New(cfg.Storage.RawDir), parser, idx, cfg.Storage.SnapshotPath)
	snapshotsDone := worker.StartSnapshotLoop(ctx, cfg.Ingest.SnapshotInterval)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PagesCrawled, worker.HandleMessage())
	slog.Info("ingest worker started", "topic", cfg.Kafka.Topics.PagesCrawled, "group", cfg.Kafka.ConsumerGroup)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	<-snapshotsDone
	slog.Info("ingest worker stopped")
}
