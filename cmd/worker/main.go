package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
	"github.com/noah-isme/koffiee-storefront/internal/config"
	"github.com/noah-isme/koffiee-storefront/internal/lock"
	"github.com/noah-isme/koffiee-storefront/internal/obs"
	"github.com/noah-isme/koffiee-storefront/internal/resilience"
	"github.com/noah-isme/koffiee-storefront/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "storefront"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	backendClient := &backend.Client{
		BaseURL: cfg.BackendBaseURL,
		HTTP: resilience.HTTPClient{
			Client:      backend.NewHTTPClient(cfg.OutboundTimeout),
			Breaker:     resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).WithTarget("pos-backend"),
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      cfg.RetryJitterPercent,
			Timeout:     cfg.OutboundTimeout,
			Target:      "pos-backend",
			Logger:      &logger,
		},
		Logger: logger,
	}

	refresher := snapshot.Refresher{
		Source: &snapshot.Source{
			Cache:   snapshot.NewCache(redisClient, cfg.CatalogCacheTTL, snapshot.DefaultKey),
			Fetcher: backendClient,
			Logger:  logger,
		},
		Locker:   lock.Locker{R: redisClient, MaxWait: 100 * time.Millisecond},
		LockTTL:  cfg.SnapshotRefreshInterval,
		Interval: cfg.SnapshotRefreshInterval,
		Logger:   logger,
	}

	logger.Info().Dur("interval", cfg.SnapshotRefreshInterval).Msg("worker starting")
	if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
