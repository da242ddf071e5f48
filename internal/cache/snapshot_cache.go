package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix     = "reorder:snapshot"
	snapshotScanBatchSize = 100
)

// SnapshotKey identifies one provider fetch. Product id order does not matter.
type SnapshotKey struct {
	Provider       string
	OrganizationID *int64
	LocationID     *int64
	ProductIDs     []int64
}

// SnapshotCache stores fetched reorder inputs so repeated requests over the same
// scope skip the warehouse queries.
type SnapshotCache interface {
	Get(ctx context.Context, key SnapshotKey) ([]reorder.Item, bool, error)
	Set(ctx context.Context, key SnapshotKey, items []reorder.Item) error
	Invalidate(ctx context.Context, key SnapshotKey) error
	InvalidateAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSnapshotCache struct{}

func NewSnapshotCache(cfg config.CacheConfig) (SnapshotCache, error) {
	if !cfg.Enabled {
		return &noopSnapshotCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSnapshotCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopSnapshotCache() SnapshotCache {
	return &noopSnapshotCache{}
}

func (c *redisSnapshotCache) Get(ctx context.Context, key SnapshotKey) ([]reorder.Item, bool, error) {
	payload, err := c.client.Get(ctx, buildSnapshotKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var items []reorder.Item
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false, fmt.Errorf("decode reorder snapshot cache: %w", err)
	}

	return items, true, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, key SnapshotKey, items []reorder.Item) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode reorder snapshot cache: %w", err)
	}

	if err := c.client.Set(ctx, buildSnapshotKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context, key SnapshotKey) error {
	if err := c.client.Del(ctx, buildSnapshotKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *redisSnapshotCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, snapshotKeyPrefix, snapshotScanBatchSize)
}

func (c *redisSnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (n *noopSnapshotCache) Get(ctx context.Context, key SnapshotKey) ([]reorder.Item, bool, error) {
	return nil, false, nil
}

func (n *noopSnapshotCache) Set(ctx context.Context, key SnapshotKey, items []reorder.Item) error {
	return nil
}

func (n *noopSnapshotCache) Invalidate(ctx context.Context, key SnapshotKey) error {
	return nil
}

func (n *noopSnapshotCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopSnapshotCache) Ping(ctx context.Context) error {
	return nil
}

func buildSnapshotKey(key SnapshotKey) string {
	provider := strings.ToLower(strings.TrimSpace(key.Provider))
	if provider == "" {
		provider = "default"
	}
	return fmt.Sprintf("%s:%s:%s", snapshotKeyPrefix, provider, snapshotScopeHash(key))
}

func snapshotScopeHash(key SnapshotKey) string {
	parts := []string{}

	if key.OrganizationID != nil {
		parts = append(parts, fmt.Sprintf("organization_id=%d", *key.OrganizationID))
	}
	if key.LocationID != nil {
		parts = append(parts, fmt.Sprintf("location_id=%d", *key.LocationID))
	}
	if len(key.ProductIDs) > 0 {
		parts = append(parts, "product_ids="+joinInt64s(key.ProductIDs))
	}

	if len(parts) == 0 {
		return "all"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinInt64s(values []int64) string {
	c := append([]int64(nil), values...)
	sort.Slice(c, func(i, j int) bool { return c[i] < c[j] })
	strs := make([]string, 0, len(c))
	for i, v := range c {
		if i > 0 && v == c[i-1] {
			continue
		}
		strs = append(strs, fmt.Sprintf("%d", v))
	}
	return strings.Join(strs, ",")
}
