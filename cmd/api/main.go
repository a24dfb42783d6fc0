// Command api serves stored user and topic profiles over HTTP.
//
// Profiles are read from PostgreSQL and optionally cached in Redis. The
// quote graph is served from the file written by `forumctl export-graph`.
//
// Usage:
//
//	go run ./cmd/api [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/api"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/profile"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/redis"
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
	slog.Info("starting profile api", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := profile.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to postgres")

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db, true))

	var profileCache *api.Cache
	if cfg.API.CacheEnabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, profile caching disabled", "error", err)
			checker.Register("redis", health.PingCheck(nil, false))
		} else {
			defer redisClient.Close()
			profileCache = api.NewCache(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient, false))
			slog.Info("profile cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	limiter := middleware.NewClientLimiter(cfg.API.RateLimitPerMinute)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := limiter.Sweep(10 * time.Minute); n > 0 {
					slog.Debug("rate limiter swept", "clients", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	h := api.NewHandler(store, profileCache, cfg.Storage.GraphPath, cfg.API.SearchLimit)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(h, checker, limiter, m, cfg.Server.WriteTimeout),
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

	slog.Info("profile api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("profile api stopped")
}
