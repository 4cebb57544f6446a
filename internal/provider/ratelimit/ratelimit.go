// Package ratelimit gates calls to a provider.Fetcher.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"quotewatch/internal/provider"
	"quotewatch/internal/quote"
)

// MinInterval wraps a fetcher and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	F        provider.Fetcher
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error) {
	if m.Interval > 0 {
		// reserve a slot so concurrent callers queue behind each other
		m.mu.Lock()
		now := time.Now()
		slot := m.next
		if slot.Before(now) {
			slot = now
		}
		m.next = slot.Add(m.Interval)
		m.mu.Unlock()

		if wait := time.Until(slot); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return m.F.Fetch(ctx, entries)
}

// TokenBucket wraps a fetcher and gates calls with a token bucket.
type TokenBucket struct {
	F       provider.Fetcher
	Limiter *rate.Limiter
}

// NewTokenBucket allows perMinute calls per minute with the given burst.
func NewTokenBucket(f provider.Fetcher, perMinute, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{F: f, Limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)}
}

func (t *TokenBucket) Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.F.Fetch(ctx, entries)
}

// Wrap picks a limiter for f: a token bucket when perMinute > 0, else a
// minimum interval when interval > 0, else f itself.
func Wrap(f provider.Fetcher, perMinute, burst int, interval time.Duration) provider.Fetcher {
	switch {
	case perMinute > 0:
		return NewTokenBucket(f, perMinute, burst)
	case interval > 0:
		return &MinInterval{F: f, Interval: interval}
	default:
		return f
	}
}
