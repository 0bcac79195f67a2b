package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/lock"
)

const refreshLockKey = "storefront:snapshot:refresh"

// Refresher keeps the cached snapshot warm. Replicas share a lock so only
// one of them hits the backend per tick.
type Refresher struct {
	Source   *Source
	Locker   lock.Locker
	LockTTL  time.Duration
	Interval time.Duration
	Logger   zerolog.Logger
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r Refresher) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	r.RunOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single locked refresh. It reports whether this call
// did the refresh.
func (r Refresher) RunOnce(ctx context.Context) bool {
	ttl := r.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	refreshed := false
	err := r.Locker.WithLock(ctx, refreshLockKey, ttl, func(lockCtx context.Context) error {
		refreshed = true
		_, err := r.Source.Refresh(lockCtx)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrTimeout):
		r.Logger.Debug().Msg("snapshot_refresh_skipped")
	case errors.Is(err, context.Canceled):
	default:
		r.Logger.Warn().Err(err).Msg("snapshot_refresh_failed")
	}
	return refreshed
}
