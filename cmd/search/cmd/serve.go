package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taiga-forestry/multithreaded-search/internal/analytics"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/cache"
	"github.com/taiga-forestry/multithreaded-search/internal/searcher/handler"
	"github.com/taiga-forestry/multithreaded-search/pkg/health"
	"github.com/taiga-forestry/multithreaded-search/pkg/kafka"
	"github.com/taiga-forestry/multithreaded-search/pkg/middleware"
	pkgredis "github.com/taiga-forestry/multithreaded-search/pkg/redis"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over HTTP",
	Long: `serve starts the HTTP API immediately and builds the index in the
background. /health/ready reports 503 until the build has finished.

Endpoints:
  GET /api/v1/search?q=...&limit=...&pagerank=...
  GET /api/v1/documents/{title}
  GET /api/v1/index/stats
  GET /api/v1/cache/stats
  GET /api/v1/stats
  GET /health/live, /health/ready`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (default server.port)")
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := slog.Default().With("component", "serve")

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, pkgredis.IsNilError)
			// Entries from a previous process describe a different index.
			if err := queryCache.Invalidate(ctx); err != nil {
				log.Warn("flushing stale cache entries", "error", err)
			}
			log.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.SearchEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = producer
	}
	collector := analytics.NewCollector(aggregator, publisher, 10000, 100, 0)
	collector.Start(ctx)
	defer collector.Close()

	a, err := bootstrap(ctx, cfg, queryCache, collector)
	if err != nil {
		return err
	}
	defer a.close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if !a.service.Ready() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "building"}
		}
		st, _ := a.service.Stats()
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", st.Documents)}
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

	mux := http.NewServeMux()
	handler.New(a.service, cfg.Search.UsePageRank).Register(mux)
	mux.HandleFunc("GET /api/v1/stats", aggregator.StatsHandler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Run(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(a.metrics)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	buildErr := make(chan error, 1)
	go func() {
		if err := a.build(ctx); err != nil {
			buildErr <- err
			return
		}
		checker.SetReady(true)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-buildErr:
		log.Error("index build failed", "error", runErr)
	case runErr = <-serveErr:
		log.Error("server error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	log.Info("search service stopped")
	return runErr
}
