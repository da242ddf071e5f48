package provider

import (
	"context"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
)

// StaticProvider serves a fixed snapshot. Organization and location are ignored.
type StaticProvider struct {
	name  string
	items []reorder.Item
}

func NewStaticProvider(name string, items []reorder.Item) *StaticProvider {
	if name == "" {
		name = "static"
	}
	return &StaticProvider{name: name, items: items}
}

func (p *StaticProvider) Name() string { return p.name }

func (p *StaticProvider) FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filtered := filterByProducts(p.items, scope.ProductIDs)
	out := make([]reorder.Item, len(filtered))
	copy(out, filtered)
	return out, nil
}
