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

	"github.com/redis/go-redis/v9"

	"github.com/MereWhiplash/aria/internal/api"
	"github.com/MereWhiplash/aria/internal/app"
	"github.com/MereWhiplash/aria/internal/config"
	"github.com/MereWhiplash/aria/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Rate limiting (if enabled)
	var limiter *api.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter, err = newRateLimiter(ctx, cfg.RateLimit, log)
		if err != nil {
			return err
		}
		limiter.TrustProxyHeaders = cfg.Server.TrustProxyHeaders
	}

	handler := api.NewRouter(api.NewHandlers(svc, log), api.RouterConfig{
		Logger:         log,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout),
		RateLimiter:    limiter,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// ingestion embeds every chunk before responding
		WriteTimeout: time.Duration(cfg.Server.RequestTimeout) + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown error", "error", err)
		}

		close(done)
	}()

	log.Info("starting API server", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Info("server stopped")
	return nil
}

// newRateLimiter uses Redis when configured so every instance shares one
// counter; otherwise limits are per process.
func newRateLimiter(ctx context.Context, cfg config.RateLimitConfig, log *slog.Logger) (*api.RateLimiter, error) {
	window := time.Duration(cfg.Window)

	if cfg.RedisURL == "" {
		log.Info("rate limiting enabled", "backend", "memory", "requests", cfg.Requests, "window", window)
		return api.NewRateLimiter(cfg.Requests, window), nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("rate limiting enabled", "backend", "redis", "requests", cfg.Requests, "window", window)
	return api.NewRateLimiterWithStore(api.NewRedisLimitStore(rdb, cfg.Requests, window), log), nil
}
