package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koffiee-storefront/internal/shop"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":        "redis://localhost:6379/0",
		"BACKEND_BASE_URL": "https://pos.example/api/",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "https://pos.example/api", cfg.BackendBaseURL)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, voucher.NominalCapped, cfg.VoucherNominalPolicy)
	require.Equal(t, 10, cfg.VoucherAttemptsPerMinute)
	require.InDelta(t, 0.2, cfg.RetryJitterPercent, 1e-9)
	require.Equal(t, "Public Koffiee", cfg.Shop.Profile.Name)
	require.Equal(t, []string{"cash", "qris"}, cfg.Shop.Features.PaymentMethods())
	require.Equal(t, shop.Window{Open: 7 * 60, Close: 22 * 60}, cfg.Shop.Hours.Weekday)
	require.True(t, cfg.SecurityHeadersEnabled)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["VOUCHER_NOMINAL_POLICY"] = "uncapped"
	env["FEATURE_TRANSFER"] = "true"
	env["FEATURE_DELIVERY"] = "false"
	env["HOURS_WEEKEND"] = "09:00-21:30"
	env["SESSION_TTL"] = "45m"
	env["PORT"] = ":9090"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, voucher.NominalUncapped, cfg.VoucherNominalPolicy)
	require.True(t, cfg.Shop.Features.Transfer)
	require.Equal(t, []string{"pickup"}, cfg.Shop.Features.OrderTypes())
	require.Equal(t, "09:00-21:30", cfg.Shop.Hours.Weekend.String())
	require.Equal(t, 45*time.Minute, cfg.SessionTTL)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	env := baseEnv()
	env["VOUCHER_NOMINAL_POLICY"] = "generous"
	_, err := LoadForTests(env)
	require.ErrorIs(t, err, voucher.ErrUnknownPolicy)

	env = baseEnv()
	env["HOURS_WEEKDAY"] = "7am-10pm"
	_, err = LoadForTests(env)
	require.ErrorIs(t, err, shop.ErrInvalidWindow)
}

func TestLoadRequiresBackend(t *testing.T) {
	env := baseEnv()
	env["BACKEND_BASE_URL"] = ""
	_, err := LoadForTests(env)
	require.EqualError(t, err, "BACKEND_BASE_URL is required")
}
