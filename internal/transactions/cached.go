package transactions

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/cache"
	"github.com/rafaeljc/recommender/internal/ruleengine"
)

// Compile-time check to verify that CachedProvider implements ruleengine.QueryProvider.
var _ ruleengine.QueryProvider = (*CachedProvider)(nil)

// Source is the uncached aggregate backend.
type Source interface {
	CountByType(ctx context.Context, userID string, productType ruleengine.ProductType) (int64, error)
	SumByTypeAndDirection(ctx context.Context, userID string, productType ruleengine.ProductType, direction ruleengine.Direction) (decimal.Decimal, error)
}

// CachedProvider answers from the query cache and falls back to the source.
// HasProductType and IsActiveUserOfType share one cached count. Errors are
// never cached.
type CachedProvider struct {
	source Source
	cache  cache.QueryCache
}

// NewCachedProvider wraps source with the given cache.
func NewCachedProvider(source Source, c cache.QueryCache) *CachedProvider {
	if source == nil {
		panic("transactions: source cannot be nil")
	}
	if c == nil {
		panic("transactions: cache cannot be nil")
	}
	return &CachedProvider{source: source, cache: c}
}

func (p *CachedProvider) count(ctx context.Context, userID string, productType ruleengine.ProductType) (int64, error) {
	key := cache.QueryKey{UserID: userID, ProductType: productType, Kind: cache.KindTransactionCount}
	if v, ok := p.cache.Get(ctx, key); ok {
		return v.IntPart(), nil
	}

	n, err := p.source.CountByType(ctx, userID, productType)
	if err != nil {
		return 0, err
	}
	p.cache.Set(ctx, key, decimal.NewFromInt(n))
	return n, nil
}

func (p *CachedProvider) HasProductType(ctx context.Context, userID string, productType ruleengine.ProductType) (bool, error) {
	n, err := p.count(ctx, userID, productType)
	return n > 0, err
}

func (p *CachedProvider) IsActiveUserOfType(ctx context.Context, userID string, productType ruleengine.ProductType) (bool, error) {
	n, err := p.count(ctx, userID, productType)
	return n >= ruleengine.ActiveUserThreshold, err
}

func (p *CachedProvider) SumByTypeAndDirection(ctx context.Context, userID string, productType ruleengine.ProductType, direction ruleengine.Direction) (decimal.Decimal, error) {
	key := cache.QueryKey{UserID: userID, ProductType: productType, Kind: cache.SumKind(direction)}
	if v, ok := p.cache.Get(ctx, key); ok {
		return v, nil
	}

	sum, err := p.source.SumByTypeAndDirection(ctx, userID, productType, direction)
	if err != nil {
		return decimal.Zero, err
	}
	p.cache.Set(ctx, key, sum)
	return sum, nil
}
