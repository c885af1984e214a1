// Package api provides the HTTP client for the upstream market-data provider.
//
// Endpoints used:
//   - /cryptocurrency/categories        full category list
//   - /cryptocurrency/category          category detail, members, historical points
//   - /cryptocurrency/info              token metadata, batched by comma-joined ids
//   - /cryptocurrency/quotes/historical per-token historical quotes
//
// Every request carries the API key in the X-CMC_PRO_API_KEY header and every
// response wraps its payload in a top-level "data" object. The client does not
// retry: call pacing is the rate limiter's job, and a failed call is abandoned
// for that item or batch.
package api
