package provider

import (
	"context"

	"github.com/andresuchdata/autopo-reorder/internal/cache"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/rs/zerolog/log"
)

// Cached wraps a provider with cache-aside reads. Cache failures are logged and
// never fail the fetch.
type Cached struct {
	inner MetricProvider
	cache cache.SnapshotCache
}

func NewCached(inner MetricProvider, snapshots cache.SnapshotCache) *Cached {
	if snapshots == nil {
		snapshots = cache.NewNoopSnapshotCache()
	}
	return &Cached{inner: inner, cache: snapshots}
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) snapshotKey(scope Scope) cache.SnapshotKey {
	return cache.SnapshotKey{
		Provider:       c.inner.Name(),
		OrganizationID: scope.OrganizationID,
		LocationID:     scope.LocationID,
		ProductIDs:     scope.ProductIDs,
	}
}

// Invalidate drops the snapshot cached for scope, or every snapshot when scope is nil.
func (c *Cached) Invalidate(ctx context.Context, scope *Scope) error {
	if scope == nil {
		return c.cache.InvalidateAll(ctx)
	}
	return c.cache.Invalidate(ctx, c.snapshotKey(*scope))
}

func (c *Cached) FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error) {
	key := c.snapshotKey(scope)

	if items, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return items, nil
	} else if err != nil {
		log.Warn().Err(err).Str("provider", c.inner.Name()).Msg("reorder: cache get snapshot failed")
	}

	items, err := c.inner.FetchInputs(ctx, scope)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, items); err != nil {
		log.Warn().Err(err).Str("provider", c.inner.Name()).Msg("reorder: cache set snapshot failed")
	}

	return items, nil
}
