package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quotelab/quotesearch/internal/cache"
	"github.com/quotelab/quotesearch/internal/engine"
	"github.com/quotelab/quotesearch/internal/index"
	"github.com/quotelab/quotesearch/internal/ingest"
	"github.com/quotelab/quotesearch/internal/query"
	"github.com/quotelab/quotesearch/internal/server"
	"github.com/quotelab/quotesearch/internal/stats"
	"github.com/quotelab/quotesearch/internal/vector"
	"github.com/quotelab/quotesearch/pkg/config"
	"github.com/quotelab/quotesearch/pkg/health"
	"github.com/quotelab/quotesearch/pkg/kafka"
	"github.com/quotelab/quotesearch/pkg/logger"
	"github.com/quotelab/quotesearch/pkg/metrics"
	"github.com/quotelab/quotesearch/pkg/middleware"
	"github.com/quotelab/quotesearch/pkg/postgres"
	pkgredis "github.com/quotelab/quotesearch/pkg/redis"
	"github.com/quotelab/quotesearch/pkg/resilience"
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
	slog.Info("starting quotesearch", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		metricsServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
	}

	multipliers, err := buildMultipliers(cfg.Search.WeightMultipliers)
	if err != nil {
		slog.Error("invalid weight multipliers", "error", err)
		os.Exit(1)
	}
	eng, err := engine.New(engine.Config{
		Locale:            cfg.Search.Locale,
		DefaultCombinator: query.ParseCombinator(cfg.Search.DefaultCombinator, query.And),
		Multipliers:       multipliers,
		Workers:           cfg.Index.Workers,
	})
	if err != nil {
		slog.Error("failed to create search engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := connectPostgres(ctx, cfg)
	hydrate(ctx, cfg, eng, store)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		breaker := resilience.CircuitBreakerConfig{}
		if m != nil {
			breaker.OnStateChange = func(name string, state resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
			}
		}
		queryCache = cache.New(redisClient, pkgredis.IsNilError, cache.Options{
			TTL:     cfg.Redis.CacheTTL,
			Breaker: breaker,
		})
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	statsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
	defer statsProducer.Close()
	collector := stats.NewCollector(statsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	aggregator := stats.NewAggregator()
	statsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, aggregator.Handler())
	go func() {
		if err := statsConsumer.Start(ctx); err != nil {
			slog.Error("stats consumer error", "error", err)
		}
	}()
	statsHandler := stats.NewHandler(aggregator)

	invalidateProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate)
	defer invalidateProducer.Close()
	ingestSvc := ingest.New(ingest.Config{
		Engine:      eng,
		Store:       storeWriter(store),
		Weights:     cfg.Search.FieldWeights,
		Invalidator: invalidateProducer,
		Collector:   collector,
	})
	startConsumer(ctx, cfg, cfg.Kafka.Topics.QuoteUpserts, ingestSvc.HandleUpsert)
	startConsumer(ctx, cfg, cfg.Kafka.Topics.QuoteDeletes, ingestSvc.HandleDelete)
	if queryCache != nil {
		startConsumer(ctx, cfg, cfg.Kafka.Topics.CacheInvalidate, func(ctx context.Context, key, value []byte) error {
			return queryCache.Invalidate(ctx)
		})
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d docs, %d terms", eng.DocCount(), eng.TermCount()),
		}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if store == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
		}
		if err := store.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(eng, queryCache, collector, m, cfg.Search.FieldWeights, server.Limits{
		DefaultCombinator: query.ParseCombinator(cfg.Search.DefaultCombinator, query.And),
		DefaultThreshold:  cfg.Search.RankThreshold,
		DefaultLimit:      cfg.Search.DefaultLimit,
		MaxResults:        cfg.Search.MaxResults,
	})
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/stats", statsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Index.SnapshotPath != "" && cfg.Index.SnapshotInterval > 0 {
		go snapshotLoop(ctx, eng, m, cfg.Index.SnapshotPath, cfg.Index.SnapshotInterval)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		saveSnapshot(eng, m, cfg.Index.SnapshotPath)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("quotesearch listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("quotesearch stopped")
}

// buildMultipliers starts from the built-in weight table and applies the
// configured per-label overrides.
func buildMultipliers(overrides map[string]float64) (vector.Multipliers, error) {
	multipliers := vector.DefaultMultipliers()
	for label, mult := range overrides {
		w, err := vector.ParseWeight(label)
		if err != nil {
			return multipliers, err
		}
		multipliers[w] = mult
	}
	if err := multipliers.Validate(); err != nil {
		return multipliers, err
	}
	return multipliers, nil
}

// connectPostgres dials the quote store with retry. A missing database
// degrades the service (no hydration, no fallback corpus) instead of
// failing startup.
func connectPostgres(ctx context.Context, cfg *config.Config) *postgres.Client {
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		var connErr error
		client, connErr = postgres.New(cfg.Postgres)
		return connErr
	})
	if err != nil {
		slog.Warn("postgres unavailable, running without quote store", "error", err)
		return nil
	}
	store := postgres.NewQuoteStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure quotes schema", "error", err)
	}
	return client
}

// hydrate fills the index at startup: from the quotes table when the
// database is reachable, otherwise from the last snapshot.
func hydrate(ctx context.Context, cfg *config.Config, eng *engine.Engine, client *postgres.Client) {
	if client != nil {
		store := postgres.NewQuoteStore(client)
		var docs []index.Source
		err := store.ForEach(ctx, func(q postgres.Quote) error {
			docs = append(docs, index.Source{DocID: q.DocID(), Fields: q.Fields()})
			return nil
		})
		if err != nil {
			slog.Error("failed to read quotes for hydration", "error", err)
			return
		}
		start := time.Now()
		n, err := eng.BulkIndex(ctx, docs, cfg.Search.FieldWeights)
		if err != nil {
			slog.Error("bulk index failed", "error", err)
			return
		}
		slog.Info("index hydrated from postgres",
			"docs", n,
			"terms", eng.TermCount(),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return
	}
	if cfg.Index.SnapshotPath == "" {
		return
	}
	if _, err := os.Stat(cfg.Index.SnapshotPath); err != nil {
		slog.Info("no snapshot to load", "path", cfg.Index.SnapshotPath)
		return
	}
	if err := eng.LoadSnapshot(cfg.Index.SnapshotPath); err != nil {
		slog.Error("failed to load snapshot", "path", cfg.Index.SnapshotPath, "error", err)
		return
	}
	slog.Warn("hydrated from snapshot; fallback search has no raw documents until postgres returns")
}

// storeWriter adapts a possibly-nil client to the ingest interface.
// A typed nil inside a non-nil interface would defeat the consumer's
// nil checks.
func storeWriter(client *postgres.Client) ingest.QuoteWriter {
	if client == nil {
		return nil
	}
	return postgres.NewQuoteStore(client)
}

func startConsumer(ctx context.Context, cfg *config.Config, topic string, handler kafka.MessageHandler) {
	consumer := kafka.NewConsumer(cfg.Kafka, topic, handler)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "topic", topic, "error", err)
		}
	}()
}

func snapshotLoop(ctx context.Context, eng *engine.Engine, m *metrics.Metrics, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			saveSnapshot(eng, m, path)
		case <-ctx.Done():
			return
		}
	}
}

func saveSnapshot(eng *engine.Engine, m *metrics.Metrics, path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		slog.Error("failed to create snapshot dir", "path", path, "error", err)
		return
	}
	err := resilience.WithTimeout(context.Background(), 30*time.Second, "snapshot-save", func(ctx context.Context) error {
		return eng.SaveSnapshot(path)
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
		slog.Error("snapshot save failed", "path", path, "error", err)
	} else {
		slog.Info("snapshot saved", "path", path, "docs", eng.DocCount())
	}
	if m != nil {
		m.SnapshotSaveTotal.WithLabelValues(outcome).Inc()
	}
}
