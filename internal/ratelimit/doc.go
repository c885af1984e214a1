// Package ratelimit enforces the provider's call quota with a sliding window.
//
// Every component that talks to the upstream provider must acquire a permit
// first. The limiter guarantees at most N permits in any trailing W window;
// it does not guarantee ordering among concurrently blocked callers.
package ratelimit
