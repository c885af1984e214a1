// Package tokens resolves token ids to metadata, serving from cache where
// possible and coalescing misses into bounded batch calls.
package tokens

import (
	"context"
	"log/slog"
	"sort"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/cache"
)

// InfoProvider supplies token metadata in batches.
type InfoProvider interface {
	TokenInfo(ctx context.Context, ids []int64) (map[int64]api.TokenInfo, error)
}

// PermitSource grants permission for one upstream call.
type PermitSource interface {
	Acquire(ctx context.Context) error
}

// Fetcher resolves sets of token ids to metadata. Cached ids are served
// directly; the rest go upstream in chunks of at most api.MaxBatchIDs, each
// chunk behind one rate-limit permit.
type Fetcher struct {
	provider  InfoProvider
	limiter   PermitSource
	cache     *cache.Cache[int64, api.TokenInfo]
	logger    *slog.Logger
	batchSize int
}

// NewFetcher creates a Fetcher backed by the given provider, limiter and
// token-info cache.
func NewFetcher(provider InfoProvider, limiter PermitSource, c *cache.Cache[int64, api.TokenInfo], logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		provider:  provider,
		limiter:   limiter,
		cache:     c,
		logger:    logger,
		batchSize: api.MaxBatchIDs,
	}
}

// Fetch resolves the given ids to metadata. Ids in a failed batch are
// omitted from the result rather than failing the call; callers must treat
// a missing id as "metadata unavailable". Fetch returns an error only when
// the context is cancelled while waiting for a permit.
func (f *Fetcher) Fetch(ctx context.Context, ids []int64) (map[int64]api.TokenInfo, error) {
	result := make(map[int64]api.TokenInfo, len(ids))

	var missing []int64
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if info, ok := f.cache.Get(id); ok {
			result[id] = info
			continue
		}
		missing = append(missing, id)
	}

	// Stable batch composition regardless of input order.
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	for start := 0; start < len(missing); start += f.batchSize {
		end := start + f.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		if err := f.limiter.Acquire(ctx); err != nil {
			return result, err
		}

		infos, err := f.provider.TokenInfo(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			f.logger.Warn("token info batch failed, skipping",
				"ids", len(batch),
				"err", err,
			)
			continue
		}

		for id, info := range infos {
			f.cache.Put(id, info)
			result[id] = info
		}
	}

	return result, nil
}
