// Package series normalizes raw provider time series into ordered price
// points with derived percent changes.
//
// The same algorithm serves token quote histories and category historical
// windows; only the conversion from the raw payload shape differs.
package series

import (
	"math"
	"sort"
	"time"

	"github.com/rotationlab/rotation-data/internal/api"
)

// PricePoint is one normalized point of a series.
type PricePoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Price         float64   `json:"price"`
	PercentChange float64   `json:"percent_change"`
}

// Observation is a surviving raw entry: a parseable timestamp with a value.
type Observation struct {
	Timestamp time.Time
	Price     float64
}

// Normalize sorts observations ascending by timestamp and derives each
// point's percent change against the previous surviving point, rounded to
// two decimals. The first point's change is zero. A point whose predecessor
// has price zero is skipped rather than producing an infinite change.
//
// Normalize is pure and deterministic: any input ordering of the same
// observations yields an identical output sequence.
func Normalize(obs []Observation) []PricePoint {
	if len(obs) == 0 {
		return nil
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	// Ties on timestamp break by price: overlapping provider windows can
	// repeat an instant, and the output must not depend on input order.
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Price < sorted[j].Price
	})

	points := make([]PricePoint, 0, len(sorted))
	for _, o := range sorted {
		if len(points) == 0 {
			points = append(points, PricePoint{Timestamp: o.Timestamp, Price: o.Price})
			continue
		}

		prev := points[len(points)-1].Price
		if prev == 0 {
			// Cannot derive a change against a zero price; drop the point
			// and keep walking.
			continue
		}

		points = append(points, PricePoint{
			Timestamp:     o.Timestamp,
			Price:         o.Price,
			PercentChange: round2((o.Price - prev) / prev * 100),
		})
	}

	return points
}

// FromQuotes converts raw token quotes into observations, dropping entries
// with an unparseable timestamp or without a quote in the given currency.
func FromQuotes(quotes []api.RawQuote, convert string) []Observation {
	obs := make([]Observation, 0, len(quotes))
	for _, q := range quotes {
		ts, err := parseTimestamp(q.Timestamp)
		if err != nil {
			continue
		}
		value, ok := q.Quote[convert]
		if !ok || value.Price == nil {
			continue
		}
		obs = append(obs, Observation{Timestamp: ts, Price: *value.Price})
	}
	return obs
}

// FromCategoryPoints converts a category's timestamp-keyed historical points
// into observations over market cap, dropping unparseable keys and points
// without a market cap.
func FromCategoryPoints(points map[string]api.CategoryPoint) []Observation {
	obs := make([]Observation, 0, len(points))
	for key, p := range points {
		ts, err := parseTimestamp(key)
		if err != nil {
			continue
		}
		if p.MarketCap == nil {
			continue
		}
		obs = append(obs, Observation{Timestamp: ts, Price: *p.MarketCap})
	}
	return obs
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	// Provider sometimes emits fractional seconds without a zone.
	return time.Parse("2006-01-02T15:04:05.999", s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
