// Package main is the entry point for the API server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/whispr-campus/whispr/internal/api"
	"github.com/whispr-campus/whispr/internal/auth"
	"github.com/whispr-campus/whispr/internal/catalog"
	"github.com/whispr-campus/whispr/internal/config"
	"github.com/whispr-campus/whispr/internal/db"
	"github.com/whispr-campus/whispr/internal/feed"
	"github.com/whispr-campus/whispr/internal/health"
	"github.com/whispr-campus/whispr/internal/middleware"
	"github.com/whispr-campus/whispr/internal/review"
	"github.com/whispr-campus/whispr/internal/search"
	"github.com/whispr-campus/whispr/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Whispr API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	// Initialize logger
	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "whispr-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: "otlp-grpc",
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Repositories: Postgres when DATABASE_URL is set, in-memory otherwise
	var (
		catalogRepo catalog.Repository
		reviewRepo  review.Repository
		socialGraph review.SocialGraph
		dbChecker   api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		catalogRepo = catalog.NewPostgresRepository(conn, logger)
		pgReviews := review.NewPostgresRepository(conn, logger)
		reviewRepo = pgReviews
		socialGraph = pgReviews
		dbChecker = health.NewDBChecker(conn)
		logger.Info("using postgres repositories")
	} else {
		memCatalog := catalog.NewInMemoryRepository()
		memReviews := review.NewInMemoryRepository(memCatalog)
		catalogRepo = memCatalog
		reviewRepo = memReviews
		socialGraph = memReviews
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	// Redis for distributed rate limiting (optional)
	var (
		rateLimitStore middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	middlewareMetrics := middleware.NewMetrics()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		redisStore := middleware.NewRedisRateLimitStore(redisClient)
		redisStore.SetMetrics(middlewareMetrics)
		rateLimitStore = redisStore.Store()
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis rate limiting")
	} else {
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	searchMetrics := search.NewMetrics()
	feedMetrics := feed.NewMetrics()
	for _, reg := range []interface {
		Register(prometheus.Registerer) error
	}{middlewareMetrics, searchMetrics, feedMetrics} {
		if err := reg.Register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	// Core services
	coordinator := search.NewCoordinator(catalogRepo, reviewRepo, logger, searchMetrics)
	feedService := feed.NewService(reviewRepo, socialGraph, feed.SystemRand(), logger, feedMetrics)
	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	// Handlers
	searchHandlers := api.NewSearchHandlers(coordinator)
	feedHandlers := api.NewFeedHandlers(feedService)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:      dbChecker,
		RedisChecker:   redisChecker,
		MetricsEnabled: true,
	})

	handler := buildHandler(cfg, serverDeps{
		searchHandlers: searchHandlers,
		feedHandlers:   feedHandlers,
		healthHandlers: healthHandlers,
		jwtService:     jwtService,
		rateLimitStore: rateLimitStore,
		metrics:        middlewareMetrics,
		registry:       registry,
		logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracing", "error", err)
	}

	logger.Info("server stopped")
}

// serverDeps carries the wired collaborators buildHandler needs. Tests build
// it from in-memory repositories; main builds it from config.
type serverDeps struct {
	searchHandlers *api.SearchHandlers
	feedHandlers   *api.FeedHandlers
	healthHandlers *api.HealthHandlers
	jwtService     *auth.JWTService
	rateLimitStore middleware.RateLimitStore
	metrics        *middleware.Metrics
	registry       *prometheus.Registry
	logger         *slog.Logger
}

// buildHandler assembles the route table and the middleware chain:
// RequestID -> Profiling -> Tracing -> Logging -> CORS -> HTTPMetrics ->
// RateLimiter -> mux.
func buildHandler(cfg *config.Config, deps serverDeps) http.Handler {
	requireAuth := middleware.RequireAuth(deps.jwtService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", deps.searchHandlers.Search)
	mux.Handle("GET /feed", requireAuth(http.HandlerFunc(deps.feedHandlers.Feed)))
	mux.Handle("GET /feed/stats", requireAuth(http.HandlerFunc(deps.feedHandlers.Stats)))
	mux.HandleFunc("GET /health", deps.healthHandlers.Health)
	mux.HandleFunc("GET /health/ready", deps.healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"whispr-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	rateLimit := middleware.RateLimiter(deps.rateLimitStore, middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitPerMinute,
		WindowDuration:    time.Minute,
	}, middleware.UserKeyFunc(), deps.metrics)

	var handler http.Handler = rateLimit(mux)
	handler = middleware.HTTPMetrics(deps.metrics)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.Logging(deps.logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("whispr-api")(handler)
	}
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.ProfilingEnabled,
		Environment: cfg.Env,
	})(handler)
	handler = middleware.RequestID(handler)
	return handler
}
