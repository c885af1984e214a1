package rotation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotationlab/rotation-data/internal/api"
)

// ListCategories fetches the category list, renames the change fields, and
// replaces the persisted snapshot. A persistence failure is logged but does
// not fail the request: the snapshot is a cache tier, not the source of
// truth.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	raw, err := s.categoryList(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Category, len(raw))
	docs := make([]any, len(raw))
	for i, c := range raw {
		out[i] = toCategory(c)
		docs[i] = out[i]
	}

	if err := s.store.ReplaceAll(ctx, colCategories, docs); err != nil {
		s.logger.Error("failed to persist category snapshot", "count", len(docs), "err", err)
	}

	return out, nil
}

// ResolveCategory maps a human category name to the provider's category id.
// Matching is exact on the lower-cased name.
func (s *Service) ResolveCategory(ctx context.Context, name string) (CategoryRef, error) {
	raw, err := s.categoryList(ctx)
	if err != nil {
		return CategoryRef{}, err
	}

	needle := strings.ToLower(name)
	for _, c := range raw {
		if strings.ToLower(c.Name) == needle {
			return CategoryRef{ID: c.ID, Name: c.Name}, nil
		}
	}

	return CategoryRef{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
}

// CategoryDetail fetches a single category with its member coins.
func (s *Service) CategoryDetail(ctx context.Context, id string) (*api.CategoryDetail, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	detail, err := s.provider.Category(ctx, api.CategoryOptions{ID: id})
	s.providerCall("category", err)
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// TopTokens resolves a category by name and returns its top limit members
// by USD market cap, descending.
func (s *Service) TopTokens(ctx context.Context, name string, limit int) ([]TopToken, error) {
	ref, err := s.ResolveCategory(ctx, name)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 10
	}

	detail, err := s.CategoryDetail(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch members of %q: %w", ref.Name, err)
	}

	coins := make([]api.CategoryCoin, len(detail.Coins))
	copy(coins, detail.Coins)
	sort.Slice(coins, func(i, j int) bool {
		return coins[i].Quote["USD"].MarketCap > coins[j].Quote["USD"].MarketCap
	})

	if len(coins) > limit {
		coins = coins[:limit]
	}

	top := make([]TopToken, len(coins))
	for i, coin := range coins {
		usd := coin.Quote["USD"]
		top[i] = TopToken{
			ID:               coin.ID,
			Name:             coin.Name,
			Symbol:           coin.Symbol,
			Price:            usd.Price,
			MarketCap:        usd.MarketCap,
			Volume24h:        usd.Volume24h,
			PercentChange24h: usd.PercentChange24h,
		}
	}

	return top, nil
}

// categoryList returns the raw provider category list, cached under the
// category-metadata TTL.
func (s *Service) categoryList(ctx context.Context) ([]api.Category, error) {
	if cached, ok := s.categoryCache.Get(categoryListKey); ok {
		s.cacheHit("categories")
		return cached, nil
	}
	s.cacheMiss("categories")

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	raw, err := s.provider.Categories(ctx)
	s.providerCall("categories", err)
	if err != nil {
		return nil, err
	}

	s.categoryCache.Put(categoryListKey, raw)
	return raw, nil
}
