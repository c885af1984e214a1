package rotation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/store"
)

// fakeProvider scripts upstream responses.
type fakeProvider struct {
	categories     []api.Category
	categoriesErr  error
	categoriesHits int

	detail     *api.CategoryDetail
	detailErr  error
	detailHits int

	quotes     map[int64][]api.RawQuote
	quotesErr  map[int64]error
	quotesHits int
}

func (p *fakeProvider) Categories(ctx context.Context) ([]api.Category, error) {
	p.categoriesHits++
	return p.categories, p.categoriesErr
}

func (p *fakeProvider) Category(ctx context.Context, opts api.CategoryOptions) (*api.CategoryDetail, error) {
	p.detailHits++
	if p.detailErr != nil {
		return nil, p.detailErr
	}
	return p.detail, nil
}

func (p *fakeProvider) QuotesHistorical(ctx context.Context, opts api.QuotesHistoricalOptions) ([]api.RawQuote, error) {
	p.quotesHits++
	if err := p.quotesErr[opts.ID]; err != nil {
		return nil, err
	}
	return p.quotes[opts.ID], nil
}

// fakeLimiter counts granted permits.
type fakeLimiter struct {
	granted int
}

func (l *fakeLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.granted++
	return nil
}

// fakeTokens resolves every id to trivial metadata.
type fakeTokens struct {
	infos map[int64]api.TokenInfo
}

func (t *fakeTokens) Fetch(ctx context.Context, ids []int64) (map[int64]api.TokenInfo, error) {
	out := make(map[int64]api.TokenInfo)
	for _, id := range ids {
		if info, ok := t.infos[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

// memStore is an in-memory Store.
type memStore struct {
	collections map[string][]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string][]json.RawMessage)}
}

func (m *memStore) ReplaceAll(ctx context.Context, collection string, docs []any) error {
	m.collections[collection] = nil
	return m.InsertMany(ctx, collection, docs)
}

func (m *memStore) InsertMany(ctx context.Context, collection string, docs []any) error {
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		m.collections[collection] = append(m.collections[collection], raw)
	}
	return nil
}

func (m *memStore) DeleteMany(ctx context.Context, collection string, filter store.Filter) error {
	var kept []json.RawMessage
	for _, raw := range m.collections[collection] {
		if !matches(raw, filter) {
			kept = append(kept, raw)
		}
	}
	m.collections[collection] = kept
	return nil
}

func (m *memStore) FindOne(ctx context.Context, collection string, filter store.Filter, s *store.Sort, dest any) error {
	docs, err := m.FindMany(ctx, collection, filter, s)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return store.ErrNotFound
	}
	return json.Unmarshal(docs[0], dest)
}

func (m *memStore) FindMany(ctx context.Context, collection string, filter store.Filter, s *store.Sort) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for _, raw := range m.collections[collection] {
		if matches(raw, filter) {
			out = append(out, raw)
		}
	}
	if s != nil {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fieldString(out[i], s.Field), fieldString(out[j], s.Field)
			if s.Desc {
				return a > b
			}
			return a < b
		})
	}
	return out, nil
}

func matches(raw json.RawMessage, filter store.Filter) bool {
	if len(filter) == 0 {
		return true
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	for key, want := range filter {
		wantJSON, _ := json.Marshal(want)
		gotJSON, _ := json.Marshal(doc[key])
		if string(wantJSON) != string(gotJSON) {
			return false
		}
	}
	return true
}

func fieldString(raw json.RawMessage, field string) string {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	b, _ := json.Marshal(doc[field])
	return string(b)
}

func f(v float64) *float64 {
	return &v
}

func newTestService(p *fakeProvider, l *fakeLimiter, m *memStore, t *fakeTokens) *Service {
	if t == nil {
		t = &fakeTokens{}
	}
	svc := NewService(DefaultConfig(), p, l, m, t, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestResolveCategoryCaseInsensitive(t *testing.T) {
	p := &fakeProvider{categories: []api.Category{
		{ID: "m1", Name: "memes"},
		{ID: "d1", Name: "DeFi"},
	}}
	svc := newTestService(p, &fakeLimiter{}, newMemStore(), nil)

	ref, err := svc.ResolveCategory(context.Background(), "Memes")
	if err != nil {
		t.Fatalf("ResolveCategory failed: %v", err)
	}
	if ref.ID != "m1" {
		t.Errorf("ref.ID = %q, want m1", ref.ID)
	}
	if ref.Name != "memes" {
		t.Errorf("ref.Name = %q, want the stored casing", ref.Name)
	}
}

func TestResolveCategoryNotFound(t *testing.T) {
	p := &fakeProvider{categories: []api.Category{{ID: "m1", Name: "memes"}}}
	svc := newTestService(p, &fakeLimiter{}, newMemStore(), nil)

	_, err := svc.ResolveCategory(context.Background(), "gaming")
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("err = %v, want ErrCategoryNotFound", err)
	}
}

func TestCategoryListCached(t *testing.T) {
	p := &fakeProvider{categories: []api.Category{{ID: "m1", Name: "memes"}}}
	l := &fakeLimiter{}
	svc := newTestService(p, l, newMemStore(), nil)
	ctx := context.Background()

	if _, err := svc.ResolveCategory(ctx, "memes"); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if _, err := svc.ResolveCategory(ctx, "memes"); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}

	if p.categoriesHits != 1 {
		t.Errorf("provider hit %d times, want 1 (second resolve from cache)", p.categoriesHits)
	}
	if l.granted != 1 {
		t.Errorf("permits granted = %d, want 1", l.granted)
	}
}

func TestListCategoriesRenamesAndPersists(t *testing.T) {
	p := &fakeProvider{categories: []api.Category{{
		ID:              "m1",
		Name:            "memes",
		MarketCapChange: 1.5,
		VolumeChange:    -2.0,
		AvgPriceChange:  0.5,
	}}}
	m := newMemStore()
	svc := newTestService(p, &fakeLimiter{}, m, nil)

	cats, err := svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}

	if cats[0].MarketCapChange24h != 1.5 {
		t.Errorf("MarketCapChange24h = %v, want 1.5", cats[0].MarketCapChange24h)
	}
	if cats[0].VolumeChange24h != -2.0 {
		t.Errorf("VolumeChange24h = %v, want -2.0", cats[0].VolumeChange24h)
	}
	if cats[0].PriceChange24h != 0.5 {
		t.Errorf("PriceChange24h = %v, want 0.5", cats[0].PriceChange24h)
	}

	docs := m.collections[colCategories]
	if len(docs) != 1 {
		t.Fatalf("persisted %d docs, want 1", len(docs))
	}
	var doc map[string]any
	if err := json.Unmarshal(docs[0], &doc); err != nil {
		t.Fatalf("decode persisted doc: %v", err)
	}
	if doc["market_cap_change_24h"] != 1.5 {
		t.Errorf("persisted doc keeps renamed field, got %v", doc["market_cap_change_24h"])
	}
	if _, present := doc["market_cap_change"]; present {
		t.Error("persisted doc must not keep the provider field name")
	}
}

func TestListCategoriesReplacesSnapshot(t *testing.T) {
	p := &fakeProvider{categories: []api.Category{{ID: "m1", Name: "memes"}}}
	m := newMemStore()
	svc := newTestService(p, &fakeLimiter{}, m, nil)
	ctx := context.Background()

	stale := Category{ID: "old", Name: "gone"}
	if err := m.InsertMany(ctx, colCategories, []any{stale}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ListCategories(ctx); err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}

	docs := m.collections[colCategories]
	if len(docs) != 1 {
		t.Fatalf("snapshot holds %d docs, want full replace down to 1", len(docs))
	}
	if fieldString(docs[0], "id") != `"m1"` {
		t.Errorf("surviving doc id = %s, want m1", fieldString(docs[0], "id"))
	}
}

func TestTopTokensSortsByMarketCap(t *testing.T) {
	p := &fakeProvider{
		categories: []api.Category{{ID: "m1", Name: "memes"}},
		detail: &api.CategoryDetail{
			ID:   "m1",
			Name: "memes",
			Coins: []api.CategoryCoin{
				{ID: 1, Symbol: "SMALL", Quote: map[string]api.CoinQuote{"USD": {MarketCap: 10}}},
				{ID: 2, Symbol: "BIG", Quote: map[string]api.CoinQuote{"USD": {MarketCap: 1000}}},
				{ID: 3, Symbol: "MID", Quote: map[string]api.CoinQuote{"USD": {MarketCap: 100}}},
			},
		},
	}
	svc := newTestService(p, &fakeLimiter{}, newMemStore(), nil)

	top, err := svc.TopTokens(context.Background(), "Memes", 2)
	if err != nil {
		t.Fatalf("TopTokens failed: %v", err)
	}

	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top[0].Symbol != "BIG" || top[1].Symbol != "MID" {
		t.Errorf("top = [%s %s], want [BIG MID]", top[0].Symbol, top[1].Symbol)
	}
}

func TestCategoryHistoryServedFromFreshStore(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newMemStore()
	persisted := CategorySeries{
		CategoryID: "m1",
		Days:       30,
		FetchedAt:  now.Add(-30 * time.Minute),
	}
	if err := m.InsertMany(context.Background(), colCategoryHistory, []any{persisted}); err != nil {
		t.Fatal(err)
	}

	p := &fakeProvider{}
	l := &fakeLimiter{}
	svc := newTestService(p, l, m, nil)

	h, err := svc.CategoryHistory(context.Background(), "m1", 30)
	if err != nil {
		t.Fatalf("CategoryHistory failed: %v", err)
	}

	if p.detailHits != 0 {
		t.Errorf("provider hit %d times, want 0 for a fresh persisted window", p.detailHits)
	}
	if l.granted != 0 {
		t.Errorf("permits granted = %d, want 0", l.granted)
	}
	if !h.FetchedAt.Equal(persisted.FetchedAt) {
		t.Errorf("FetchedAt = %v, want the persisted window's", h.FetchedAt)
	}
}

func TestCategoryHistoryRefreshesStaleStore(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newMemStore()
	stale := CategorySeries{
		CategoryID: "m1",
		Days:       30,
		FetchedAt:  now.Add(-2 * time.Hour),
	}
	if err := m.InsertMany(context.Background(), colCategoryHistory, []any{stale}); err != nil {
		t.Fatal(err)
	}

	p := &fakeProvider{detail: &api.CategoryDetail{
		ID: "m1",
		PointsByTime: map[string]api.CategoryPoint{
			"2024-02-01T00:00:00Z": {MarketCap: f(1000)},
			"2024-02-02T00:00:00Z": {MarketCap: f(1100)},
		},
	}}
	l := &fakeLimiter{}
	svc := newTestService(p, l, m, nil)

	h, err := svc.CategoryHistory(context.Background(), "m1", 30)
	if err != nil {
		t.Fatalf("CategoryHistory failed: %v", err)
	}

	if p.detailHits != 1 {
		t.Errorf("provider hit %d times, want 1 for a stale window", p.detailHits)
	}
	if l.granted != 1 {
		t.Errorf("permits granted = %d, want 1", l.granted)
	}
	if len(h.Points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(h.Points))
	}
	if h.Points[1].PercentChange != 10.0 {
		t.Errorf("points[1].PercentChange = %v, want 10.0", h.Points[1].PercentChange)
	}

	// The stale window was replaced, not appended to.
	docs := m.collections[colCategoryHistory]
	if len(docs) != 1 {
		t.Errorf("persisted windows = %d, want 1 after replace", len(docs))
	}
}

func TestCategoryHistoryCacheHitSkipsStore(t *testing.T) {
	p := &fakeProvider{detail: &api.CategoryDetail{
		ID:           "m1",
		PointsByTime: map[string]api.CategoryPoint{"2024-02-01T00:00:00Z": {MarketCap: f(1000)}},
	}}
	l := &fakeLimiter{}
	svc := newTestService(p, l, newMemStore(), nil)
	ctx := context.Background()

	if _, err := svc.CategoryHistory(ctx, "m1", 30); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := svc.CategoryHistory(ctx, "m1", 30); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if p.detailHits != 1 {
		t.Errorf("provider hit %d times, want 1 (second call from TTL cache)", p.detailHits)
	}
}

func TestCompareCategoriesOmitsFailures(t *testing.T) {
	p := &fakeProvider{detailErr: errors.New("upstream 500")}
	m := newMemStore()

	// One category has a fresh persisted window, the other must go upstream
	// and fail.
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	good := CategorySeries{CategoryID: "good", Days: 7, FetchedAt: now.Add(-time.Minute)}
	if err := m.InsertMany(context.Background(), colCategoryHistory, []any{good}); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(p, &fakeLimiter{}, m, nil)

	out, err := svc.CompareCategories(context.Background(), []string{"good", "bad"}, 7)
	if err != nil {
		t.Fatalf("CompareCategories failed: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want the surviving category only", len(out))
	}
	if out[0].CategoryID != "good" {
		t.Errorf("out[0].CategoryID = %q, want good", out[0].CategoryID)
	}
}

func TestTokensHistoryPartialFailure(t *testing.T) {
	p := &fakeProvider{
		quotes: map[int64][]api.RawQuote{
			1: {
				{Timestamp: "2024-02-01T00:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: f(90)}}},
				{Timestamp: "2024-02-02T00:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: f(100)}}},
			},
		},
		quotesErr: map[int64]error{2: errors.New("upstream 500")},
	}
	tk := &fakeTokens{infos: map[int64]api.TokenInfo{
		1: {ID: 1, Symbol: "BTC", Name: "Bitcoin"},
		2: {ID: 2, Symbol: "LTC", Name: "Litecoin"},
	}}
	l := &fakeLimiter{}
	svc := newTestService(p, l, newMemStore(), tk)

	histories, err := svc.TokensHistory(context.Background(), []int64{1, 2}, 30)
	if err != nil {
		t.Fatalf("TokensHistory failed: %v", err)
	}

	if len(histories) != 1 {
		t.Fatalf("len(histories) = %d, want the surviving token only", len(histories))
	}
	if histories[0].Token.Symbol != "BTC" {
		t.Errorf("surviving token = %q, want BTC", histories[0].Token.Symbol)
	}
	if len(histories[0].Points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(histories[0].Points))
	}
	if histories[0].Points[1].PercentChange != 11.11 {
		t.Errorf("points[1].PercentChange = %v, want 11.11", histories[0].Points[1].PercentChange)
	}
	if l.granted != 2 {
		t.Errorf("permits granted = %d, want one per token", l.granted)
	}
}

func TestRotationAnalysis(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		svc := newTestService(&fakeProvider{}, &fakeLimiter{}, newMemStore(), nil)
		_, err := svc.RotationAnalysis(context.Background())
		if !errors.Is(err, ErrNoAnalysis) {
			t.Errorf("err = %v, want ErrNoAnalysis", err)
		}
	})

	t.Run("returns latest", func(t *testing.T) {
		m := newMemStore()
		ctx := context.Background()
		if err := m.InsertMany(ctx, colRotationAnalysis, []any{
			map[string]any{"timestamp": "2024-02-01T00:00:00Z", "leader": "defi"},
			map[string]any{"timestamp": "2024-03-01T00:00:00Z", "leader": "memes"},
		}); err != nil {
			t.Fatal(err)
		}

		svc := newTestService(&fakeProvider{}, &fakeLimiter{}, m, nil)
		doc, err := svc.RotationAnalysis(ctx)
		if err != nil {
			t.Fatalf("RotationAnalysis failed: %v", err)
		}
		if doc["leader"] != "memes" {
			t.Errorf("leader = %v, want the most recent document", doc["leader"])
		}
	})
}
