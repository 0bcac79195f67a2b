package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is where the shared snapshot lives.
const DefaultKey = "storefront:snapshot:v1"

// Cache stores the snapshot as JSON in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

// NewCache constructs a cache helper. An empty key uses DefaultKey.
func NewCache(client *redis.Client, ttl time.Duration, key string) *Cache {
	if key == "" {
		key = DefaultKey
	}
	return &Cache{client: client, ttl: ttl, key: key}
}

// Get reports whether a snapshot was cached and decodes it.
func (c *Cache) Get(ctx context.Context) (Snapshot, bool, error) {
	if c == nil || c.client == nil {
		return Snapshot{}, false, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Set stores snap with the configured TTL.
func (c *Cache) Set(ctx context.Context, snap Snapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}
