// Package store provides the persisted document store backing the
// freshness-window cache tier.
//
// Documents are JSON blobs grouped into named collections on a single
// PostgreSQL table. Filters are top-level field equality (jsonb
// containment); sorts order by one document field. This is the second cache
// tier: process-local TTL caches first, this store's freshness window
// second, the provider last.
package store
