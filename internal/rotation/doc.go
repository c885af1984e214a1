// Package rotation implements the category rotation pipeline: category
// resolution and the query shapes composing the rate limiter, the TTL
// caches, the batch token fetcher, the series normalizer, and the document
// store.
//
// Caching is two-tier: process-local TTL caches first, the persisted
// store's freshness window second, the provider last. Item-level upstream
// failures inside a batch are logged and the item omitted; whole-call
// failures (auth, category not found, absent payload) propagate typed.
package rotation
