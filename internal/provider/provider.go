// Package provider fetches the per-product reorder snapshots the engine consumes.
// Providers apply organization and location scoping; the engine never does.
package provider

import (
	"context"
	"errors"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
)

// ErrMartUnavailable is returned when the precomputed reorder mart does not exist.
var ErrMartUnavailable = errors.New("reorder mart unavailable")

// Scope narrows a fetch. Nil fields and an empty ProductIDs mean "all".
type Scope struct {
	OrganizationID *int64  `json:"organization_id,omitempty"`
	LocationID     *int64  `json:"location_id,omitempty"`
	ProductIDs     []int64 `json:"product_ids,omitempty"`
}

// MetricProvider supplies one consistent snapshot of reorder inputs per call.
type MetricProvider interface {
	Name() string
	FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error)
}

// filterByProducts keeps only the requested product ids. Used by providers that
// cannot push the filter into a query.
// Invalidator is implemented by providers that keep fetched snapshots. A nil scope
// means every snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context, scope *Scope) error
}

func filterByProducts(items []reorder.Item, ids []int64) []reorder.Item {
	if len(ids) == 0 {
		return items
	}
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]reorder.Item, 0, len(ids))
	for _, item := range items {
		if _, ok := wanted[item.Product.ProductID]; ok {
			out = append(out, item)
		}
	}
	return out
}
