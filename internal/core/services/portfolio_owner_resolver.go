package services

import (
	"context"
	"time"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"

	"github.com/patrickmn/go-cache"
)

// CachedOwnerResolver memoizes portfolio -> owner lookups. Ownership of a
// portfolio does not change while it exists, so only misses hit the store.
type CachedOwnerResolver struct {
	portfolios ports.PortfolioRepository
	cache      *cache.Cache
}

func NewCachedOwnerResolver(portfolios ports.PortfolioRepository, ttl time.Duration) *CachedOwnerResolver {
	return &CachedOwnerResolver{
		portfolios: portfolios,
		cache:      cache.New(ttl, 2*ttl),
	}
}

func (r *CachedOwnerResolver) ResolveOwner(ctx context.Context, id domain.PortfolioID) (domain.UserID, error) {
	key := "portfolio_owner:" + string(id)
	if v, found := r.cache.Get(key); found {
		return v.(domain.UserID), nil
	}

	owner, err := r.portfolios.GetOwner(ctx, id)
	if err != nil {
		return "", err
	}
	r.cache.Set(key, owner, cache.DefaultExpiration)
	return owner, nil
}

var _ ports.PortfolioOwnerResolver = (*CachedOwnerResolver)(nil)
