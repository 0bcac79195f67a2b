package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/koffiee-storefront/internal/shop"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	BackendBaseURL     string
	CORSAllowedOrigins []string

	SessionTTL              time.Duration
	SessionLockTTL          time.Duration
	SessionLockWait         time.Duration
	CatalogCacheTTL         time.Duration
	SnapshotRefreshInterval time.Duration
	IdempotencyTTL          time.Duration

	VoucherNominalPolicy     voucher.NominalPolicy
	VoucherAttemptsPerMinute int

	OutboundTimeout    time.Duration
	RetryMaxAttempts   int
	RetryBase          time.Duration
	RetryJitterPercent float64
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	Shop shop.Shop

	SecurityHeadersEnabled bool
	BodyLimitBytes         int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	policy, err := voucher.ParseNominalPolicy(k.String("VOUCHER_NOMINAL_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("VOUCHER_NOMINAL_POLICY: %w", err)
	}
	hours, err := parseHours(k)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		BackendBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("BACKEND_BASE_URL")), "/"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		SessionTTL:              parseDuration(k.String("SESSION_TTL"), "2h"),
		SessionLockTTL:          parseDuration(k.String("SESSION_LOCK_TTL"), "30s"),
		SessionLockWait:         parseDuration(k.String("SESSION_LOCK_WAIT"), "10s"),
		CatalogCacheTTL:         parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
		SnapshotRefreshInterval: parseDuration(k.String("SNAPSHOT_REFRESH_INTERVAL"), "5m"),
		IdempotencyTTL:          parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		VoucherNominalPolicy:     policy,
		VoucherAttemptsPerMinute: parseInt(k.String("VOUCHER_ATTEMPTS_PER_MINUTE"), 10),

		OutboundTimeout:    parseDuration(k.String("OUTBOUND_TIMEOUT"), "5s"),
		RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryJitterPercent: parseFloat(k.String("RETRY_JITTER_PERCENT"), 20) / 100,
		CircuitMinRequests: parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRate: parseFloat(k.String("CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		Shop: shop.Shop{
			Profile: shop.Profile{
				Name:        valueOrDefault(k.String("SHOP_NAME"), "Public Koffiee"),
				Tagline:     valueOrDefault(k.String("SHOP_TAGLINE"), "Premium Dark Roast Since 2024"),
				Description: valueOrDefault(k.String("SHOP_DESCRIPTION"), "Experience the finest artisanal coffee crafted with passion"),
				Phone:       valueOrDefault(k.String("SHOP_PHONE"), "+62 21 1234 5678"),
				Email:       valueOrDefault(k.String("SHOP_EMAIL"), "hello@publickoffiee.id"),
				Address:     valueOrDefault(k.String("SHOP_ADDRESS"), "Jl. Kopi Premium No. 88, Jakarta Selatan"),
				Social: map[string]string{
					"instagram": valueOrDefault(k.String("SHOP_INSTAGRAM"), "https://instagram.com/publickoffiee"),
					"facebook":  valueOrDefault(k.String("SHOP_FACEBOOK"), "https://facebook.com/publickoffiee"),
					"twitter":   valueOrDefault(k.String("SHOP_TWITTER"), "https://twitter.com/publickoffiee"),
				},
			},
			Features: shop.Features{
				QRIS:     parseBoolDefault(k.String("FEATURE_QRIS"), true),
				Cash:     parseBoolDefault(k.String("FEATURE_CASH"), true),
				Transfer: parseBoolDefault(k.String("FEATURE_TRANSFER"), false),
				EWallet:  parseBoolDefault(k.String("FEATURE_EWALLET"), false),
				Delivery: parseBoolDefault(k.String("FEATURE_DELIVERY"), true),
				Takeaway: parseBoolDefault(k.String("FEATURE_TAKEAWAY"), true),
			},
			Hours: hours,
		},

		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func parseHours(k *koanf.Koanf) (shop.Hours, error) {
	hours := shop.DefaultHours()
	if raw := strings.TrimSpace(k.String("HOURS_WEEKDAY")); raw != "" {
		w, err := shop.ParseWindow(raw)
		if err != nil {
			return shop.Hours{}, fmt.Errorf("HOURS_WEEKDAY: %w", err)
		}
		hours.Weekday = w
	}
	if raw := strings.TrimSpace(k.String("HOURS_WEEKEND")); raw != "" {
		w, err := shop.ParseWindow(raw)
		if err != nil {
			return shop.Hours{}, fmt.Errorf("HOURS_WEEKEND: %w", err)
		}
		hours.Weekend = w
	}
	if tz := strings.TrimSpace(k.String("SHOP_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return shop.Hours{}, fmt.Errorf("SHOP_TIMEZONE: %w", err)
		}
		hours.Location = loc
	}
	return hours, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
