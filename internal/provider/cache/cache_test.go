package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestFetch_LoadsOnlyMissing(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	s := New[string](time.Minute, 0)
	s.Now = clk.now

	var asked [][]string
	load := func(_ context.Context, keys []string) (map[string]string, error) {
		asked = append(asked, keys)
		out := make(map[string]string, len(keys))
		for _, k := range keys {
			out[k] = "name:" + k
		}
		return out, nil
	}

	got, err := s.Fetch(t.Context(), []string{"700.HK", "AAPL.US"}, load)
	if err != nil || len(got) != 2 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	got, err = s.Fetch(t.Context(), []string{"700.HK", "AAPL.US", "600519.SH", "600519.SH"}, load)
	if err != nil || len(got) != 3 || got["600519.SH"] != "name:600519.SH" {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if len(asked) != 2 || len(asked[1]) != 1 || asked[1][0] != "600519.SH" {
		t.Fatalf("asked=%v", asked)
	}

	// expiry forces a reload
	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := s.Get("700.HK"); ok {
		t.Fatal("expected expired entry")
	}
	_, _ = s.Fetch(t.Context(), []string{"700.HK"}, load)
	if len(asked) != 3 {
		t.Fatalf("asked=%v", asked)
	}
}

func TestFetch_ServesCachedSubsetOnError(t *testing.T) {
	s := New[int](time.Minute, 0)
	s.Set(map[string]int{"a": 1})
	boom := errors.New("boom")
	fail := func(context.Context, []string) (map[string]int, error) { return nil, boom }

	got, err := s.Fetch(t.Context(), []string{"a", "b"}, fail)
	if err != nil || len(got) != 1 || got["a"] != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}

	_, err = s.Fetch(t.Context(), []string{"b"}, fail)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestFetch_DisabledPassesThrough(t *testing.T) {
	s := New[int](0, 0)
	calls := 0
	load := func(_ context.Context, keys []string) (map[string]int, error) {
		calls++
		return map[string]int{"a": 1}, nil
	}
	_, _ = s.Fetch(t.Context(), []string{"a"}, load)
	_, _ = s.Fetch(t.Context(), []string{"a"}, load)
	if calls != 2 || s.Len() != 0 {
		t.Fatalf("calls=%d len=%d", calls, s.Len())
	}
}

func TestSet_CapsSize(t *testing.T) {
	s := New[int](time.Minute, 2)
	s.Set(map[string]int{"a": 1, "b": 2, "c": 3})
	if s.Len() != 2 {
		t.Fatalf("len=%d", s.Len())
	}
}
