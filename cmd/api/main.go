package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
	"github.com/noah-isme/koffiee-storefront/internal/checkout"
	"github.com/noah-isme/koffiee-storefront/internal/common"
	"github.com/noah-isme/koffiee-storefront/internal/config"
	"github.com/noah-isme/koffiee-storefront/internal/health"
	"github.com/noah-isme/koffiee-storefront/internal/lock"
	"github.com/noah-isme/koffiee-storefront/internal/obs"
	"github.com/noah-isme/koffiee-storefront/internal/ratelimit"
	"github.com/noah-isme/koffiee-storefront/internal/resilience"
	"github.com/noah-isme/koffiee-storefront/internal/security"
	"github.com/noah-isme/koffiee-storefront/internal/session"
	"github.com/noah-isme/koffiee-storefront/internal/snapshot"
	"github.com/noah-isme/koffiee-storefront/internal/storefront"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "koffiee-storefront",
			ServiceVersion: envOrDefault("APP_VERSION", ""),
			Environment:    cfg.AppEnv,
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio:  sampling,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	backendClient := newBackendClient(cfg, logger)

	snapshots := &snapshot.Source{
		Cache:   snapshot.NewCache(redisClient, cfg.CatalogCacheTTL, snapshot.DefaultKey),
		Fetcher: backendClient,
		Logger:  logger,
	}

	calculator := voucher.Calculator{Nominal: cfg.VoucherNominalPolicy}
	sessions := &session.Store{
		Client:  redisClient,
		TTL:     cfg.SessionTTL,
		Locker:  lock.Locker{R: redisClient, MaxWait: cfg.SessionLockWait},
		LockTTL: cfg.SessionLockTTL,
	}
	checkoutSvc := &checkout.Service{
		Backend:    backendClient,
		Features:   cfg.Shop.Features,
		Calculator: calculator,
		Logger:     logger,
	}
	storefrontHandler := &storefront.Handler{
		Svc: &storefront.Service{
			Snapshots:  snapshots,
			Sessions:   sessions,
			Orders:     checkoutSvc,
			Shop:       cfg.Shop,
			Calculator: calculator,
			Logger:     logger,
		},
		Logger: logger,
	}

	voucherLimiter, err := ratelimit.NewRedisLimiter(redisClient, "storefront:ratelimit:voucher", time.Minute, int64(cfg.VoucherAttemptsPerMinute))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise voucher limiter")
	}
	voucherLimit := ratelimit.Handler{
		Limiter: voucherLimiter,
		Key:     ratelimit.ClientKey("voucher"),
		Message: "Terlalu banyak percobaan kode voucher. Coba lagi sebentar.",
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("voucher_rate_limit_store_failed")
		},
		OnLimited: func(*http.Request) {
			if obs.VoucherAttemptsTotal != nil {
				obs.VoucherAttemptsTotal.WithLabelValues("code", "rate_limited").Inc()
			}
		},
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.Headers{
		Enable:     cfg.SecurityHeadersEnabled,
		HSTSMaxAge: envInt("SECURITY_HSTS_MAX_AGE", 0),
	}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	health.SetReady(true)
	healthHandler := health.Handler{
		Checker:        readinessChecker{redis: redisClient, backend: backendClient},
		RedisTimeout:   envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		BackendTimeout: envDurationMillis("HEALTH_READY_BACKEND_TIMEOUT_MS", 1000),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		storefrontHandler.Mount(v, storefront.Middlewares{
			VoucherLimit: voucherLimit.Middleware,
			Idempotency:  idem.Middleware,
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		// Warm the snapshot cache.
		if _, err := snapshots.Refresh(sigCtx); err != nil {
			logger.Warn().Err(err).Msg("snapshot_warmup_degraded")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-sigCtx.Done():
	}

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

// newBackendClient builds the POS client. Reads retry through the breaker;
// order creation shares the breaker but is sent exactly once.
func newBackendClient(cfg *config.Config, logger zerolog.Logger) *backend.Client {
	httpClient := backend.NewHTTPClient(cfg.OutboundTimeout)
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
		WithTarget("pos-backend").
		WithLogger(logger)
	reads := resilience.HTTPClient{
		Client:      httpClient,
		Breaker:     breaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPercent,
		Timeout:     cfg.OutboundTimeout,
		Target:      "pos-backend",
		Logger:      &logger,
	}
	orders := reads
	orders.MaxAttempts = 1
	orders.Target = "pos-backend-orders"
	return &backend.Client{
		BaseURL: cfg.BackendBaseURL,
		HTTP:    reads,
		Orders:  orders,
		Logger:  logger,
	}
}

type readinessChecker struct {
	redis   *redis.Client
	backend *backend.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingBackend(ctx context.Context, timeout time.Duration) error {
	if c.backend == nil {
		return errors.New("backend not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.backend.Ping(ctx)
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
