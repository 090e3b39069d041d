package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/booklytics/bookscraper/internal/api"
	"github.com/booklytics/bookscraper/internal/cache"
	"github.com/booklytics/bookscraper/internal/config"
	"github.com/booklytics/bookscraper/internal/crawler"
	"github.com/booklytics/bookscraper/internal/database"
	"github.com/booklytics/bookscraper/internal/fetcher"
	"github.com/booklytics/bookscraper/internal/normalize"
	"github.com/booklytics/bookscraper/internal/ratelimit"
	"github.com/booklytics/bookscraper/internal/scraper"
)

func main() {
	// .env is optional, real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pipeline wiring: one politeness gate shared by every request.
	gate := ratelimit.NewGate(cfg.Scraper.MinDelay)
	httpClient := &http.Client{Timeout: cfg.Scraper.Timeout}
	f := fetcher.New(httpClient, gate, fetcher.Options{
		MaxRetries: cfg.Scraper.MaxRetries,
		UserAgent:  cfg.Scraper.UserAgent,
	}, logger)

	c, err := crawler.New(f, crawler.Options{
		BaseURL:       cfg.Catalog.BaseURL,
		DetailWorkers: cfg.Scraper.DetailWorkers,
	}, logger)
	if err != nil {
		logger.Error("failed to build crawler", "error", err)
		os.Exit(1)
	}

	normalizer := normalize.New(normalize.Options{Strict: cfg.Scraper.Strict})
	svc := scraper.NewService(c, normalizer, logger)

	// Optional Redis result cache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		resultCache := cache.New(redisClient, cfg.Redis.TTL, logger)
		svc.WithCache(resultCache, func(pages int) string {
			return cache.KeyFor(cfg.Catalog.BaseURL, pages, cfg.Scraper.UserAgent, strictPart(cfg.Scraper.Strict))
		})
		logger.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	// Optional Postgres persistence
	var repo *database.Repository
	if cfg.Database.DSN != "" {
		db, err := database.New(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		repo = database.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		svc.WithStore(repo)
		logger.Info("persistence enabled")
	}

	handlers := api.NewHandlers(svc, repo, cfg.Catalog.Pages, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", handlers.Routes)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting",
		"addr", server.Addr,
		"catalog", cfg.Catalog.BaseURL,
		"min_delay", gate.Delay())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func strictPart(strict bool) string {
	if strict {
		return "strict"
	}
	return "lenient"
}
