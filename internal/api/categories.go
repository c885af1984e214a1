package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Categories fetches the full category list.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp categoriesResponse
	if err := c.get(ctx, "/cryptocurrency/categories", nil, &resp); err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("get categories: %w: missing data", ErrMalformedPayload)
	}

	return resp.Data, nil
}

// CategoryOptions selects a category and an optional historical window.
type CategoryOptions struct {
	ID        string
	Interval  string // e.g. "1h", "1d"
	Count     int
	TimeStart time.Time
	TimeEnd   time.Time
}

// Category fetches a single category with its member coins. When Interval,
// Count or the time bounds are set, the response also carries
// timestamp-keyed historical points.
func (c *Client) Category(ctx context.Context, opts CategoryOptions) (*CategoryDetail, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("get category: id is required")
	}

	query := url.Values{}
	query.Set("id", opts.ID)
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

	var resp categoryResponse
	if err := c.get(ctx, "/cryptocurrency/category", query, &resp); err != nil {
		return nil, fmt.Errorf("get category %s: %w", opts.ID, err)
	}

	if resp.Data.ID == "" {
		return nil, fmt.Errorf("get category %s: %w: missing data", opts.ID, ErrMalformedPayload)
	}

	return &resp.Data, nil
}
