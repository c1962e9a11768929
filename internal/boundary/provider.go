package boundary

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/cache"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// Provider supplies the canonical boundary set for one country and level.
type Provider interface {
	Boundaries(ctx context.Context, countryISO3 string, level model.AdminLevel) ([]model.BoundaryRecord, error)
}

// CachedProvider wraps a Provider with a caller-owned TTL cache so repeated
// alignment runs against the same level skip the backing store.
type CachedProvider struct {
	inner Provider
	cache *cache.BoundaryCache
}

// NewCachedProvider wraps inner with the given cache. A nil cache makes this
// a pass-through.
func NewCachedProvider(inner Provider, c *cache.BoundaryCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c}
}

// Boundaries returns the cached set when fresh, otherwise fetches from the
// inner provider and caches the result.
func (p *CachedProvider) Boundaries(ctx context.Context, countryISO3 string, level model.AdminLevel) ([]model.BoundaryRecord, error) {
	if p.cache != nil {
		if recs := p.cache.Get(countryISO3, level); recs != nil {
			return recs, nil
		}
	}

	recs, err := p.inner.Boundaries(ctx, countryISO3, level)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: fetch from provider")
	}

	if p.cache != nil && len(recs) > 0 {
		p.cache.Put(countryISO3, level, recs)
	}
	return recs, nil
}
