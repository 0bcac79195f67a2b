package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/obs"
	"github.com/noah-isme/koffiee-storefront/internal/promo"
	"github.com/noah-isme/koffiee-storefront/internal/snapshot"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// ErrUnexpectedStatus is returned when a read endpoint answers outside 2xx.
var ErrUnexpectedStatus = errors.New("backend: unexpected status")

const (
	pathMenu       = "/menu"
	pathCategories = "/menu/categories/all"
	pathPromos     = "/promos/public/active"
	pathOrders     = "/orders"
	pathAppInfo    = "/settings/app/info"

	maxErrorBody = 4 << 10
)

// Doer executes outbound requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the POS backend. Reads go through HTTP; order submission
// uses Orders when set so it can run without retries.
type Client struct {
	BaseURL string
	HTTP    Doer
	Orders  Doer
	Logger  zerolog.Logger
}

// NewHTTPClient returns an http.Client whose transport emits client spans.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// FetchMenu lists menu items, optionally filtered by category slug. On
// failure it returns an empty list together with the error.
func (c *Client) FetchMenu(ctx context.Context, categorySlug string) ([]catalog.MenuItem, error) {
	query := url.Values{}
	if slug := strings.TrimSpace(categorySlug); slug != "" {
		query.Set("category", slug)
	}
	var payload struct {
		Items []wireMenuItem `json:"items"`
	}
	if err := c.getJSON(ctx, pathMenu, query, &payload); err != nil {
		return []catalog.MenuItem{}, fmt.Errorf("fetch menu: %w", err)
	}
	items := make([]catalog.MenuItem, 0, len(payload.Items))
	for _, raw := range payload.Items {
		items = append(items, raw.model())
	}
	return items, nil
}

// FetchCategories lists menu categories.
func (c *Client) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	var payload struct {
		Categories []wireCategory `json:"categories"`
	}
	if err := c.getJSON(ctx, pathCategories, nil, &payload); err != nil {
		return []catalog.Category{}, fmt.Errorf("fetch categories: %w", err)
	}
	out := make([]catalog.Category, 0, len(payload.Categories))
	for _, raw := range payload.Categories {
		out = append(out, raw.model())
	}
	return out, nil
}

// FetchPromos lists the active automated promotions and discounts.
func (c *Client) FetchPromos(ctx context.Context) ([]promo.Rule, []voucher.Rule, error) {
	var payload struct {
		Promotions []wirePromotion `json:"promotions"`
		Discounts  []wireDiscount  `json:"discounts"`
	}
	if err := c.getJSON(ctx, pathPromos, nil, &payload); err != nil {
		return []promo.Rule{}, []voucher.Rule{}, fmt.Errorf("fetch promos: %w", err)
	}
	promotions := make([]promo.Rule, 0, len(payload.Promotions))
	for _, raw := range payload.Promotions {
		promotions = append(promotions, raw.model())
	}
	discounts := make([]voucher.Rule, 0, len(payload.Discounts))
	for _, raw := range payload.Discounts {
		discounts = append(discounts, raw.model())
	}
	return promotions, discounts, nil
}

// FetchSnapshot gathers every read endpoint. Each failure leaves its list
// empty; the combined error reports which ones degraded.
func (c *Client) FetchSnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	ctx, end := obs.StartSpan(ctx, "backend", "backend.fetch_snapshot")
	var (
		snap = snapshot.Empty()
		errs error
		err  error
	)
	snap.Menu, err = c.FetchMenu(ctx, "")
	errs = multierr.Append(errs, err)
	snap.Categories, err = c.FetchCategories(ctx)
	errs = multierr.Append(errs, err)
	snap.Promotions, snap.Discounts, err = c.FetchPromos(ctx)
	errs = multierr.Append(errs, err)

	for _, e := range multierr.Errors(errs) {
		c.Logger.Warn().Err(e).Msg("backend_read_degraded")
	}
	end(errs)
	return snap, errs
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pathAppInfo, nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) (err error) {
	ctx, end := obs.StartSpan(ctx, "backend", "backend.get", attribute.String("backend.path", path))
	defer func() { end(err) }()

	if c == nil || c.HTTP == nil {
		return errors.New("backend: client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s", ErrUnexpectedStatus, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
