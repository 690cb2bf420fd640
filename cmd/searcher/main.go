// Command searcher serves proximity queries over the sharded index written
// by the indexer. Segments flushed by the indexer are picked up on a timer.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup("searcher", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "num_shards", cfg.Indexer.NumShards)

	sections, err := section.NewRegistry(cfg.Sections)
	if err != nil {
		slog.Error("invalid section configuration", "error", err)
		os.Exit(1)
	}
	router, err := shard.NewRouter(cfg.Indexer, cfg.Search, sections)
	if err != nil {
		slog.Error("failed to create shard router", "error", err)
		os.Exit(1)
	}
	defer router.Close()
	slog.Info("shard router initialized", "data_dir", cfg.Indexer.DataDir)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer("searcher", cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
		m.ActiveShards.Set(float64(router.NumShards()))
	}

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reloadSegments(ctx, router, queryCache, m, cfg.Indexer.ReloadInterval)

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	aggregator := analytics.NewAggregator()
	analyticsConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.AnalyticsEvents,
		cfg.Kafka.ConsumerGroup+"-analytics",
		analytics.HandleEvent(aggregator),
	)
	go func() {
		if err := analyticsConsumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	analyticsH := analytics.NewHandler(aggregator)
	slog.Info("analytics aggregator started")

	checker := health.NewChecker("searcher")
	checker.Register("index_engine", health.Count("shards active", router.NumShards, 1, health.StatusDown))
	checker.Register("redis", health.Ping(false, func(ctx context.Context) error {
		if redisClient == nil {
			return errors.New("result cache not configured")
		}
		return redisClient.Ping(ctx)
	}))

	exec := executor.NewSharded(router.GetAllEngines(), cfg.Search.MaxWildcardExpansion)
	h := handler.New(exec, queryCache, collector, m, cfg.Search)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/explain", h.Explain)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// reloadSegments opens segments flushed by the indexer since the last tick.
// Cached results may be stale once new segments appear, so the cache is
// dropped whenever anything was loaded.
func reloadSegments(ctx context.Context, router *shard.Router, queryCache *cache.QueryCache, m *metrics.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loaded := router.ReloadAll()
			if m != nil {
				m.SegmentsReloaded.Add(float64(loaded))
				for id, eng := range router.GetAllEngines() {
					m.ShardDocCount.WithLabelValues(strconv.Itoa(id)).Set(float64(eng.DocCount()))
				}
			}
			if loaded == 0 {
				continue
			}
			slog.Info("new segments loaded", "count", loaded)
			if queryCache != nil {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Warn("cache invalidation after reload failed", "error", err)
				}
			}
		}
	}
}
