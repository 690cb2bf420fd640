// Command watcher matches every ingested document against the saved
// queries stored in PostgreSQL and publishes a match event per hit.
//
// Usage:
//
//	go run ./cmd/watcher [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/watcher"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("watcher", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting watcher service", "port", cfg.Server.Port)

	sections, err := section.NewRegistry(cfg.Sections)
	if err != nil {
		slog.Error("invalid section configuration", "error", err)
		os.Exit(1)
	}
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer("watcher", cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := watcher.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare saved query table", "error", err)
		os.Exit(1)
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryMatches)
	defer producer.Close()

	w := watcher.New(store, producer, sections, cfg.Search, cfg.Watcher, m)
	if err := w.Reload(ctx); err != nil {
		slog.Error("initial saved query load failed", "error", err)
		os.Exit(1)
	}
	w.StartReloadLoop(ctx, cfg.Watcher.ReloadInterval)

	docConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentIngest,
		cfg.Watcher.ConsumerGroup,
		w.HandleMessage(),
	)
	go func() {
		if err := docConsumer.Start(ctx); err != nil {
			slog.Error("document consumer error", "error", err)
		}
	}()
	slog.Info("watcher consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Watcher.ConsumerGroup,
		"matches_topic", cfg.Kafka.Topics.QueryMatches,
	)

	checker := health.NewChecker("watcher")
	checker.Register("postgres", health.Ping(true, db.Ping))
	checker.Register("saved_queries", health.Count("saved queries active", w.QueryCount, 1, health.StatusDegraded))

	h := watcher.NewHandler(store, w)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/saved-queries", h.List)
	mux.HandleFunc("POST /api/v1/saved-queries", h.Save)
	mux.HandleFunc("GET /api/v1/saved-queries/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/saved-queries/{id}", h.Delete)
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

	slog.Info("watcher service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("watcher service stopped")
}
