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

	"github.com/mkravets/text-search-server/internal/docstore"
	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/internal/ingest"
	"github.com/mkravets/text-search-server/internal/service"
	"github.com/mkravets/text-search-server/pkg/config"
	"github.com/mkravets/text-search-server/pkg/health"
	"github.com/mkravets/text-search-server/pkg/kafka"
	"github.com/mkravets/text-search-server/pkg/logger"
	"github.com/mkravets/text-search-server/pkg/metrics"
	"github.com/mkravets/text-search-server/pkg/middleware"
	"github.com/mkravets/text-search-server/pkg/postgres"
	pkgredis "github.com/mkravets/text-search-server/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting text search server", "port", cfg.Server.Port)

	srv, err := engine.NewFromText(cfg.Engine.StopWords,
		engine.WithAccumulatorShards(cfg.Engine.AccumulatorShards))
	if err != nil {
		slog.Error("failed to create search engine", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	idx := service.NewIndex(srv, cfg.Engine.RequestWindow, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *docstore.Store
	var pgClient *postgres.Client
	pgClient, err = postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, running without persistence", "error", err)
		pgClient = nil
	} else {
		defer pgClient.Close()
		store = docstore.New(pgClient)
		warmStart(ctx, store, idx)
	}

	var queryCache *service.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = service.NewQueryCache(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var publisher *ingest.Publisher
	if store != nil || len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentUpdates)
		defer producer.Close()
		publisher = ingest.NewPublisher(store, producer)
	}

	// Updates published by other instances arrive over Kafka; upserts are
	// idempotent so replaying our own events is harmless.
	updateConsumer := ingest.NewConsumer(
		kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentUpdates, ingest.HandleMessage(idx)))
	go func() {
		if err := updateConsumer.Start(ctx); err != nil {
			slog.Error("update consumer stopped", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents indexed", idx.DocumentCount()),
		}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := pgClient.DB.PingContext(ctx); err != nil {
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

	h := service.NewHandler(idx, queryCache, publisher, m, cfg.Engine.PageSize)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSAllowOrigins
	}
	chain = middleware.CORS(corsCfg)(chain)
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
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("text search server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("text search server stopped")
}

// warmStart rebuilds the in-memory index from the document store. Rows the
// engine rejects are logged and skipped.
func warmStart(ctx context.Context, store *docstore.Store, idx *service.Index) {
	records, err := store.LoadAll(ctx)
	if err != nil {
		slog.Error("warm start failed, starting with empty index", "error", err)
		return
	}
	loaded := 0
	for _, rec := range records {
		if err := idx.Upsert(rec.ID, rec.Text, rec.Status, rec.Ratings); err != nil {
			slog.Warn("skipping stored document the index rejected", "doc_id", rec.ID, "error", err)
			continue
		}
		loaded++
	}
	slog.Info("warm start complete", "loaded", loaded, "skipped", len(records)-loaded)
}
