package rotation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/series"
	"github.com/rotationlab/rotation-data/internal/store"
)

// historyInterval is the point spacing requested for historical windows.
const historyInterval = "1d"

// CategoryHistory returns the normalized historical series for a category.
// Tiers: series TTL cache, then the persisted window if fetched within the
// freshness bound, then the provider (persist-replacing the window).
func (s *Service) CategoryHistory(ctx context.Context, id string, days int) (*CategorySeries, error) {
	key := "category:" + id + ":" + strconv.Itoa(days)

	if e, ok := s.seriesCache.Get(key); ok {
		s.cacheHit("series")
		return &CategorySeries{CategoryID: id, Days: days, FetchedAt: e.FetchedAt, Points: e.Points}, nil
	}
	s.cacheMiss("series")

	filter := store.Filter{"category_id": id, "days": days}

	var persisted CategorySeries
	err := s.store.FindOne(ctx, colCategoryHistory, filter,
		&store.Sort{Field: "fetched_at", Desc: true, AsTime: true}, &persisted)
	switch {
	case err == nil:
		if s.now().Sub(persisted.FetchedAt) <= s.cfg.Freshness {
			s.seriesCache.Put(key, seriesEntry{FetchedAt: persisted.FetchedAt, Points: persisted.Points})
			return &persisted, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		// A broken store tier degrades to a provider call.
		s.logger.Warn("category history lookup failed", "category_id", id, "err", err)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	detail, err := s.provider.Category(ctx, api.CategoryOptions{
		ID:        id,
		Interval:  historyInterval,
		Count:     days,
		TimeStart: s.now().AddDate(0, 0, -days),
	})
	s.providerCall("category_history", err)
	if err != nil {
		return nil, fmt.Errorf("fetch category history %s: %w", id, err)
	}

	fresh := CategorySeries{
		CategoryID: id,
		Days:       days,
		FetchedAt:  s.now().UTC(),
		Points:     series.Normalize(series.FromCategoryPoints(detail.PointsByTime)),
	}

	s.persistWindow(ctx, filter, fresh)
	s.seriesCache.Put(key, seriesEntry{FetchedAt: fresh.FetchedAt, Points: fresh.Points})

	return &fresh, nil
}

// persistWindow replaces the stored window for one (category, days) pair.
// Failures are logged: the store is a cache tier.
func (s *Service) persistWindow(ctx context.Context, filter store.Filter, doc CategorySeries) {
	if err := s.store.DeleteMany(ctx, colCategoryHistory, filter); err != nil {
		s.logger.Warn("failed to clear category history window", "category_id", doc.CategoryID, "err", err)
		return
	}
	if err := s.store.InsertMany(ctx, colCategoryHistory, []any{doc}); err != nil {
		s.logger.Warn("failed to persist category history window", "category_id", doc.CategoryID, "err", err)
	}
}

// CompareCategories fetches historical series for several categories in
// parallel. A failed category is logged and omitted; the comparison
// succeeds with whatever resolved.
func (s *Service) CompareCategories(ctx context.Context, ids []string, days int) ([]CategorySeries, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string]CategorySeries, len(ids))

	for _, id := range ids {
		g.Go(func() error {
			h, err := s.CategoryHistory(gctx, id, days)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("omitting category from comparison", "category_id", id, "err", err)
				return nil
			}
			mu.Lock()
			results[id] = *h
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]CategorySeries, 0, len(results))
	for _, id := range ids {
		if h, ok := results[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// TokensHistory resolves token metadata in batch, then fetches and
// normalizes each token's series in parallel. Every call still acquires its
// own rate-limit permit; a failed token is logged and omitted.
func (s *Service) TokensHistory(ctx context.Context, ids []int64, days int) ([]TokenHistory, error) {
	infos, err := s.tokens.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	histories := make([]TokenHistory, 0, len(infos))

	for id, info := range infos {
		g.Go(func() error {
			if err := s.limiter.Acquire(gctx); err != nil {
				return err
			}

			quotes, err := s.provider.QuotesHistorical(gctx, api.QuotesHistoricalOptions{
				ID:        id,
				Interval:  historyInterval,
				Count:     days,
				TimeStart: s.now().AddDate(0, 0, -days),
				Convert:   "USD",
			})
			s.providerCall("quotes_historical", err)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("omitting token from history batch", "token_id", id, "err", err)
				return nil
			}

			h := TokenHistory{
				Token:  info,
				Points: series.Normalize(series.FromQuotes(quotes, "USD")),
			}
			mu.Lock()
			histories = append(histories, h)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(histories, func(i, j int) bool {
		return histories[i].Token.ID < histories[j].Token.ID
	})
	return histories, nil
}

// RotationAnalysis returns the most recently stored analysis document.
func (s *Service) RotationAnalysis(ctx context.Context) (map[string]any, error) {
	var doc map[string]any
	err := s.store.FindOne(ctx, colRotationAnalysis, nil,
		&store.Sort{Field: "timestamp", Desc: true, AsTime: true}, &doc)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoAnalysis
		}
		return nil, fmt.Errorf("load rotation analysis: %w", err)
	}
	return doc, nil
}
