package rotation

import (
	"time"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/series"
)

// Category is the served category representation. The provider's change
// fields are renamed with their 24h horizon made explicit.
type Category struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	NumTokens          int     `json:"num_tokens"`
	MarketCap          float64 `json:"market_cap"`
	Volume             float64 `json:"volume"`
	MarketCapChange24h float64 `json:"market_cap_change_24h"`
	VolumeChange24h    float64 `json:"volume_change_24h"`
	PriceChange24h     float64 `json:"price_change_24h"`
	LastUpdated        string  `json:"last_updated"`
}

// CategoryRef identifies a resolved category.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategorySeries is one persisted historical window of a category.
type CategorySeries struct {
	CategoryID string              `json:"category_id"`
	Days       int                 `json:"days"`
	FetchedAt  time.Time           `json:"fetched_at"`
	Points     []series.PricePoint `json:"points"`
}

// TopToken is one member of a category ranked by market cap.
type TopToken struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
	PercentChange24h float64 `json:"percent_change_24h"`
}

// TokenHistory pairs a token's metadata with its normalized series.
type TokenHistory struct {
	Token  api.TokenInfo       `json:"token"`
	Points []series.PricePoint `json:"points"`
}

func toCategory(c api.Category) Category {
	return Category{
		ID:                 c.ID,
		Name:               c.Name,
		Title:              c.Title,
		Description:        c.Description,
		NumTokens:          c.NumTokens,
		MarketCap:          c.MarketCap,
		Volume:             c.Volume,
		MarketCapChange24h: c.MarketCapChange,
		VolumeChange24h:    c.VolumeChange,
		PriceChange24h:     c.AvgPriceChange,
		LastUpdated:        c.LastUpdated,
	}
}
