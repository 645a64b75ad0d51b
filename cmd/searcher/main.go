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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/resilience"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"max_query_length", cfg.Search.MaxQueryLength,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	pg, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	slog.Info("text index connected", "host", cfg.Postgres.Host, "table", cfg.Postgres.DocumentsTable)

	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{
		IsFailure: executor.IsBreakerFailure,
		OnStateChange: func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
	exec := executor.New(pg.DB, cfg.Postgres, breaker)

	var resultCache handler.ResultCache
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, cache.WithComputeTimeout(cfg.Server.WriteTimeout))
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.AnalyticsTopic)
	defer producer.Close()
	collector := analytics.NewCollector(producer, cfg.Kafka.AnalyticsBuffer, m.AnalyticsDroppedTotal.Inc)
	collector.Start(ctx)
	defer collector.Close()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.AnalyticsTopic, aggregator.HandleMessage)

	var snapshots *snapshot.Store
	var lister analytics.SnapshotLister
	if cfg.Analytics.SnapshotsEnabled {
		snapshots = snapshot.NewStore(pg.DB, cfg.Analytics.SnapshotTable)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
			snapshots = nil
		} else {
			lister = snapshots
		}
	}

	checker := health.NewChecker()
	checker.Register("postgres", health.Ping(true, pg.Ping))
	if redisClient != nil {
		checker.Register("redis", health.Ping(false, redisClient.Ping))
	} else {
		checker.Register("redis", health.Static(health.StatusDegraded, "unavailable, caching disabled"))
	}
	checker.Register("circuit_breaker", func(ctx context.Context) health.ComponentHealth {
		if s := breaker.GetState(); s != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: s.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	compiler := parser.NewCompiler(parser.Config{MaxQueryLength: cfg.Search.MaxQueryLength})
	h := handler.New(compiler, exec, resultCache, collector, m, cfg.Search)
	analyticsH := analytics.NewHandler(aggregator, lister)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/query/compile", h.Compile)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsH.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit > 0 {
		trusted, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
		if err != nil {
			return fmt.Errorf("server.trustedProxies: %w", err)
		}
		limiter = ratelimit.New(cfg.Server.RateLimit, time.Minute)
		chain = middleware.RateLimit(limiter, trusted)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return consumer.Start(gctx)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Port)
		})
	}
	if limiter != nil {
		g.Go(func() error {
			limiter.Cleanup(gctx, 5*time.Minute)
			return nil
		})
	}
	if snapshots != nil {
		g.Go(func() error {
			return snapshots.Run(gctx, aggregator.Stats, cfg.Analytics.SnapshotInterval)
		})
	}
	return g.Wait()
}
