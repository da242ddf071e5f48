package provider

import (
	"context"
	"errors"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/rs/zerolog/log"
)

// FallbackProvider reads from primary and switches to secondary when the primary
// reports ErrMartUnavailable, or on any error when anyError is set.
type FallbackProvider struct {
	primary   MetricProvider
	secondary MetricProvider
	anyError  bool
}

func NewFallbackProvider(primary, secondary MetricProvider, anyError bool) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary, anyError: anyError}
}

func (p *FallbackProvider) Name() string {
	return p.primary.Name() + "+" + p.secondary.Name()
}

func (p *FallbackProvider) FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error) {
	items, err := p.primary.FetchInputs(ctx, scope)
	if err == nil {
		return items, nil
	}
	if !p.anyError && !errors.Is(err, ErrMartUnavailable) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	log.Warn().Err(err).
		Str("provider", p.primary.Name()).
		Str("fallback", p.secondary.Name()).
		Msg("reorder: primary provider failed, using fallback")
	return p.secondary.FetchInputs(ctx, scope)
}
