package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. At most limit permits are
// granted within any trailing window; Acquire blocks until a permit is
// available or the context is cancelled.
type Limiter struct {
	mu     sync.Mutex
	calls  []time.Time // grant timestamps, oldest first
	limit  int
	window time.Duration

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	observer func(wait time.Duration)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWaitObserver registers a callback invoked with each wait duration
// before the limiter suspends a caller. Used for metrics.
func WithWaitObserver(fn func(wait time.Duration)) Option {
	return func(l *Limiter) {
		l.observer = fn
	}
}

// New creates a Limiter allowing at most limit calls per window.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  defaultSleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until a permit is granted. It returns an error only when
// ctx is cancelled; an abandoned wait records nothing.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.pruneLocked(now)

		if len(l.calls) < l.limit {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		// Window is full: wait until the oldest recorded call ages out,
		// then re-check. Another caller may win the freed slot first.
		wait := l.window - now.Sub(l.calls[0])
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if l.observer != nil {
			l.observer(wait)
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// InFlight returns the number of calls currently counted in the window.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now())
	return len(l.calls)
}

// pruneLocked drops recorded timestamps older than the window.
// Caller must hold mu.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
