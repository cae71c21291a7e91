// Package cache provides the Redis-backed effective-feature-set cache.
// Resolution is read-heavy (every permission-gated request consults the
// tenant's entitlements) while writes are rare, so a short TTL plus
// invalidation on write keeps the cache honest.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "stratus/pkg/domain"
)

const keyPrefix = "features:effective:"

// Redis caches effective feature sets as JSON blobs.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

// Get returns the cached set. Backend outages read as misses so the
// resolver can always fall through to the stores.
func (c *Redis) Get(ctx context.Context, tenantID id.TenantID) (map[string]string, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+tenantID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, nil
	}
	var features map[string]string
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, false, nil
	}
	return features, true, nil
}

func (c *Redis) Set(ctx context.Context, tenantID id.TenantID, features map[string]string) error {
	raw, err := json.Marshal(features)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+tenantID.String(), raw, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, tenantID id.TenantID) error {
	return c.client.Del(ctx, keyPrefix+tenantID.String()).Err()
}
