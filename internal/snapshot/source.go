package snapshot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/obs"
)

// Fetcher retrieves a fresh snapshot from the shop backend. A non-nil error
// alongside a snapshot means some lists were replaced by empty ones.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (Snapshot, error)
}

// Source serves the current snapshot from the cache and falls back to the
// backend on a miss. It never fails: the worst case is an empty snapshot.
type Source struct {
	Cache   *Cache
	Fetcher Fetcher
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Current returns the cached snapshot, fetching it on a miss.
func (s *Source) Current(ctx context.Context) Snapshot {
	if s == nil {
		return Empty()
	}
	snap, ok, err := s.Cache.Get(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("snapshot_cache_read_failed")
	}
	if ok {
		observeCache("hit")
		return snap
	}
	observeCache("miss")
	snap, _ = s.Refresh(ctx)
	return snap
}

// Refresh fetches from the backend and replaces the cached copy. Degraded
// fetches are returned but not cached so the next request tries again.
func (s *Source) Refresh(ctx context.Context) (Snapshot, error) {
	if s == nil || s.Fetcher == nil {
		return Empty(), nil
	}
	snap, err := s.Fetcher.FetchSnapshot(ctx)
	snap.FetchedAt = s.now()
	if err != nil {
		s.Logger.Warn().Err(err).Msg("snapshot_fetch_degraded")
		observeRefresh("degraded")
		return normalise(snap), err
	}
	if err := s.Cache.Set(ctx, snap); err != nil {
		s.Logger.Error().Err(err).Msg("snapshot_cache_write_failed")
		observeRefresh("cache_error")
		return normalise(snap), err
	}
	observeRefresh("ok")
	s.Logger.Debug().
		Int("menu_items", len(snap.Menu)).
		Int("promotions", len(snap.Promotions)).
		Int("discounts", len(snap.Discounts)).
		Msg("snapshot_refreshed")
	return normalise(snap), nil
}

func (s *Source) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalise(snap Snapshot) Snapshot {
	empty := Empty()
	if snap.Menu == nil {
		snap.Menu = empty.Menu
	}
	if snap.Categories == nil {
		snap.Categories = empty.Categories
	}
	if snap.Promotions == nil {
		snap.Promotions = empty.Promotions
	}
	if snap.Discounts == nil {
		snap.Discounts = empty.Discounts
	}
	return snap
}

func observeCache(result string) {
	if obs.SnapshotCacheTotal != nil {
		obs.SnapshotCacheTotal.WithLabelValues(result).Inc()
	}
}

func observeRefresh(result string) {
	if obs.SnapshotRefreshTotal != nil {
		obs.SnapshotRefreshTotal.WithLabelValues(result).Inc()
	}
}
