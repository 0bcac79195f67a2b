package shop_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koffiee-storefront/internal/shop"
)

func TestParseWindow(t *testing.T) {
	w, err := shop.ParseWindow("07:00-22:00")
	require.NoError(t, err)
	require.Equal(t, shop.Window{Open: 420, Close: 1320}, w)
	require.Equal(t, "07:00-22:00", w.String())

	for _, bad := range []string{"", "07:00", "7-22", "25:00-22:00", "07:00-22:00-23:00"} {
		_, err := shop.ParseWindow(bad)
		require.True(t, errors.Is(err, shop.ErrInvalidWindow), bad)
	}
}

func TestHoursIsOpen(t *testing.T) {
	h := shop.DefaultHours()
	h.Location = time.FixedZone("WIB", 7*60*60)
	at := func(s string) time.Time {
		ts, err := time.ParseInLocation("2006-01-02 15:04", s, h.Location)
		require.NoError(t, err)
		return ts
	}

	require.False(t, h.IsOpen(at("2026-10-19 06:59")), "monday before opening")
	require.True(t, h.IsOpen(at("2026-10-19 07:00")), "monday at opening")
	require.False(t, h.IsOpen(at("2026-10-19 22:00")), "monday at closing")
	require.False(t, h.IsOpen(at("2026-10-18 07:30")), "sunday before opening")
	require.True(t, h.IsOpen(at("2026-10-18 22:30")), "sunday late")
	require.True(t, h.IsOpen(at("2026-10-18 23:30").Add(-time.Hour).UTC()), "converted from utc")
}

func TestWindowWrapsMidnight(t *testing.T) {
	w := shop.Window{Open: 20 * 60, Close: 2 * 60}
	require.True(t, w.Contains(23*60))
	require.True(t, w.Contains(60))
	require.False(t, w.Contains(12*60))
}

func TestFeatures(t *testing.T) {
	f := shop.Features{QRIS: true, Cash: true, Takeaway: true}
	require.Equal(t, []string{"cash", "qris"}, f.PaymentMethods())
	require.Equal(t, []string{"pickup"}, f.OrderTypes())
	require.True(t, f.AllowsPayment("qris"))
	require.False(t, f.AllowsPayment("transfer"))
	require.False(t, f.AllowsOrderType("delivery"))
}

func TestShopView(t *testing.T) {
	s := shop.Shop{
		Profile:  shop.Profile{Name: "Public Koffiee"},
		Features: shop.Features{Cash: true, Delivery: true},
		Hours:    shop.DefaultHours(),
	}
	v := s.View(time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC))
	require.Equal(t, "Public Koffiee", v.Profile.Name)
	require.Equal(t, "07:00-22:00", v.Hours.Weekday)
	require.True(t, v.OpenNow)
}
