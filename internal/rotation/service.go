package rotation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/cache"
	"github.com/rotationlab/rotation-data/internal/metrics"
	"github.com/rotationlab/rotation-data/internal/series"
	"github.com/rotationlab/rotation-data/internal/store"
)

var (
	// ErrCategoryNotFound signals that no category's name matched.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrNoAnalysis signals that no rotation analysis has been stored yet.
	ErrNoAnalysis = errors.New("no analysis data available")
)

// Store collections.
const (
	colCategories       = "categories"
	colCategoryHistory  = "category_history"
	colRotationAnalysis = "rotation_analysis"
)

// Provider supplies upstream market data. Implemented by *api.Client.
type Provider interface {
	Categories(ctx context.Context) ([]api.Category, error)
	Category(ctx context.Context, opts api.CategoryOptions) (*api.CategoryDetail, error)
	QuotesHistorical(ctx context.Context, opts api.QuotesHistoricalOptions) ([]api.RawQuote, error)
}

// PermitSource grants permission for one upstream call.
type PermitSource interface {
	Acquire(ctx context.Context) error
}

// TokenResolver resolves token ids to metadata, tolerating partial failure.
// Implemented by *tokens.Fetcher.
type TokenResolver interface {
	Fetch(ctx context.Context, ids []int64) (map[int64]api.TokenInfo, error)
}

// Config holds orchestrator settings.
type Config struct {
	// Freshness is how long a persisted series window is served without a
	// provider call.
	Freshness time.Duration

	// Series cache (category historical windows; token series always go to
	// the provider).
	SeriesCacheCapacity int
	SeriesCacheTTL      time.Duration

	// Category-metadata cache.
	CategoryCacheCapacity int
	CategoryCacheTTL      time.Duration

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Freshness:             time.Hour,
		SeriesCacheCapacity:   1000,
		SeriesCacheTTL:        time.Hour,
		CategoryCacheCapacity: 100,
		CategoryCacheTTL:      5 * time.Minute,
	}
}

// seriesEntry is a cached historical window.
type seriesEntry struct {
	FetchedAt time.Time
	Points    []series.PricePoint
}

// categoryListKey is the single key under which the full category list is
// cached. The category cache is keyed by list, not per category, because
// resolution always scans the whole list.
const categoryListKey = "all"

// Service composes the pipeline.
type Service struct {
	cfg      Config
	provider Provider
	limiter  PermitSource
	store    store.Store
	tokens   TokenResolver
	logger   *slog.Logger

	categoryCache *cache.Cache[string, []api.Category]
	seriesCache   *cache.Cache[string, seriesEntry]

	now func() time.Time
}

// NewService creates the pipeline orchestrator.
func NewService(cfg Config, provider Provider, limiter PermitSource, st store.Store, tokens TokenResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:           cfg,
		provider:      provider,
		limiter:       limiter,
		store:         st,
		tokens:        tokens,
		logger:        logger,
		categoryCache: cache.New[string, []api.Category](cfg.CategoryCacheCapacity, cfg.CategoryCacheTTL),
		seriesCache:   cache.New[string, seriesEntry](cfg.SeriesCacheCapacity, cfg.SeriesCacheTTL),
		now:           time.Now,
	}
}

func (s *Service) cacheHit(name string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.CacheHitsTotal.WithLabelValues(name).Inc()
	}
}

func (s *Service) cacheMiss(name string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.CacheMissesTotal.WithLabelValues(name).Inc()
	}
}

func (s *Service) providerCall(endpoint string, err error) {
	if s.cfg.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.cfg.Metrics.ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}
