package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// QuotesHistoricalOptions selects a token and a historical window.
// Exactly one of ID or Symbol must be set.
type QuotesHistoricalOptions struct {
	ID        int64
	Symbol    string
	Interval  string // e.g. "1h", "1d"
	Count     int
	TimeStart time.Time
	TimeEnd   time.Time
	Convert   string // defaults to "USD"
}

// QuotesHistorical fetches raw historical quotes for a single token.
// The returned entries are whatever the provider sent: possibly unordered,
// possibly missing prices.
func (c *Client) QuotesHistorical(ctx context.Context, opts QuotesHistoricalOptions) ([]RawQuote, error) {
	if opts.ID == 0 && opts.Symbol == "" {
		return nil, fmt.Errorf("get historical quotes: id or symbol is required")
	}

	query := url.Values{}
	if opts.ID != 0 {
		query.Set("id", strconv.FormatInt(opts.ID, 10))
	} else {
		query.Set("symbol", opts.Symbol)
	}
	if opts.Interval != "" {
		query.Set("interval", opts.Interval)
	}
	if opts.Count > 0 {
		query.Set("count", strconv.Itoa(opts.Count))
	}
	if !opts.TimeStart.IsZero() {
		query.Set("time_start", opts.TimeStart.UTC().Format(time.RFC3339))
	}
	if !opts.TimeEnd.IsZero() {
		query.Set("time_end", opts.TimeEnd.UTC().Format(time.RFC3339))
	}

	convert := opts.Convert
	if convert == "" {
		convert = "USD"
	}
	query.Set("convert", convert)

	var resp quotesHistoricalResponse
	if err := c.get(ctx, "/cryptocurrency/quotes/historical", query, &resp); err != nil {
		return nil, fmt.Errorf("get historical quotes: %w", err)
	}

	return resp.Data.Quotes, nil
}
