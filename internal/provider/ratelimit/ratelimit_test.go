package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"quotewatch/internal/provider"
	"quotewatch/internal/quote"
)

func counting(n *atomic.Int32) provider.Fetcher {
	return provider.FetcherFunc(func(context.Context, []quote.WatchEntry) ([]quote.Quote, error) {
		n.Add(1)
		return []quote.Quote{{Identifier: "sh600519"}}, nil
	})
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	var n atomic.Int32
	m := &MinInterval{F: counting(&n), Interval: 30 * time.Millisecond}

	start := time.Now()
	for range 3 {
		if _, err := m.Fetch(t.Context(), nil); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if el := time.Since(start); el < 60*time.Millisecond {
		t.Fatalf("3 calls took %v, want >= 60ms", el)
	}
	if n.Load() != 3 {
		t.Fatalf("calls=%d", n.Load())
	}
}

func TestMinInterval_ContextCanceled(t *testing.T) {
	var n atomic.Int32
	m := &MinInterval{F: counting(&n), Interval: time.Hour}
	_, _ = m.Fetch(t.Context(), nil)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Fetch(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	if n.Load() != 1 {
		t.Fatalf("calls=%d", n.Load())
	}
}

func TestTokenBucket_BurstThenWait(t *testing.T) {
	var n atomic.Int32
	tb := NewTokenBucket(counting(&n), 60, 2)

	for range 2 {
		if _, err := tb.Fetch(t.Context(), nil); err != nil {
			t.Fatalf("burst fetch: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if _, err := tb.Fetch(ctx, nil); err == nil {
		t.Fatal("expected the third call to be limited")
	}
	if n.Load() != 2 {
		t.Fatalf("calls=%d", n.Load())
	}
}

func TestWrap(t *testing.T) {
	var n atomic.Int32
	f := counting(&n)
	if _, ok := Wrap(f, 10, 1, time.Second).(*TokenBucket); !ok {
		t.Fatal("want token bucket")
	}
	if _, ok := Wrap(f, 0, 0, time.Second).(*MinInterval); !ok {
		t.Fatal("want min interval")
	}
	if _, ok := Wrap(f, 0, 0, 0).(provider.FetcherFunc); !ok {
		t.Fatal("want passthrough")
	}
}
