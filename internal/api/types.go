package api

// Category is one entry from the provider's category list.
type Category struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	NumTokens       int     `json:"num_tokens"`
	AvgPriceChange  float64 `json:"avg_price_change"`
	MarketCap       float64 `json:"market_cap"`
	MarketCapChange float64 `json:"market_cap_change"`
	Volume          float64 `json:"volume"`
	VolumeChange    float64 `json:"volume_change"`
	LastUpdated     string  `json:"last_updated"`
}

// categoriesResponse from GET /cryptocurrency/categories
type categoriesResponse struct {
	Data   []Category `json:"data"`
	Status statusInfo `json:"status"`
}

// TokenInfo is the provider's metadata for a single token.
// Immutable once fetched; identity is ID.
type TokenInfo struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// tokenInfoResponse from GET /cryptocurrency/info.
// The data object is keyed by the token id as a decimal string.
type tokenInfoResponse struct {
	Data   map[string]TokenInfo `json:"data"`
	Status statusInfo           `json:"status"`
}

// CategoryDetail from GET /cryptocurrency/category: the category's headline
// numbers plus its member coins and, when a historical window was requested,
// timestamp-keyed points.
type CategoryDetail struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	NumTokens       int     `json:"num_tokens"`
	AvgPriceChange  float64 `json:"avg_price_change"`
	MarketCap       float64 `json:"market_cap"`
	MarketCapChange float64 `json:"market_cap_change"`
	Volume          float64 `json:"volume"`
	VolumeChange    float64 `json:"volume_change"`
	LastUpdated     string  `json:"last_updated"`

	Coins []CategoryCoin `json:"coins"`

	// PointsByTime holds historical points keyed by ISO 8601 timestamp.
	// Only populated when the request carried a historical window.
	PointsByTime map[string]CategoryPoint `json:"points"`
}

// CategoryCoin is one member of a category.
type CategoryCoin struct {
	ID     int64                `json:"id"`
	Name   string               `json:"name"`
	Symbol string               `json:"symbol"`
	Slug   string               `json:"slug"`
	Quote  map[string]CoinQuote `json:"quote"`
}

// CoinQuote is a coin's current quote in one currency.
type CoinQuote struct {
	Price            float64 `json:"price"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
	PercentChange24h float64 `json:"percent_change_24h"`
}

// CategoryPoint is one timestamp-keyed historical point of a category.
// Pointer fields: the provider omits values it has no data for.
type CategoryPoint struct {
	MarketCap *float64 `json:"market_cap"`
	Volume    *float64 `json:"volume"`
}

// categoryResponse from GET /cryptocurrency/category
type categoryResponse struct {
	Data   CategoryDetail `json:"data"`
	Status statusInfo     `json:"status"`
}

// RawQuote is one raw historical quote entry for a token. Entries may arrive
// unordered and sparse; normalization happens in the series package.
type RawQuote struct {
	Timestamp string                `json:"timestamp"`
	Quote     map[string]QuoteValue `json:"quote"`
}

// QuoteValue is the per-currency part of a raw quote. Price is a pointer
// because the provider emits entries with the price missing.
type QuoteValue struct {
	Price     *float64 `json:"price"`
	Volume24h *float64 `json:"volume_24h"`
	Timestamp string   `json:"timestamp"`
}

// quotesHistoricalResponse from GET /cryptocurrency/quotes/historical
type quotesHistoricalResponse struct {
	Data struct {
		ID     int64      `json:"id"`
		Name   string     `json:"name"`
		Symbol string     `json:"symbol"`
		Quotes []RawQuote `json:"quotes"`
	} `json:"data"`
	Status statusInfo `json:"status"`
}
