package cache

import (
	"context"
	"testing"
	"time"

	"timed_trading_server/internal/domain"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewMemoryQuoteCache(func() time.Time { return now })

	quotes := map[string]domain.Quote{"bitcoin": {USD: 65000}}
	if err := cache.Set(context.Background(), "quotes:bitcoin", quotes, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, hit, err := cache.Get(context.Background(), "quotes:bitcoin")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got["bitcoin"].USD != 65000 {
		t.Fatalf("unexpected quote: %+v", got["bitcoin"])
	}

	now = now.Add(61 * time.Second)
	if _, hit, _ := cache.Get(context.Background(), "quotes:bitcoin"); hit {
		t.Fatalf("expired entry must miss")
	}
}

func TestMemoryCacheCopiesEntries(t *testing.T) {
	cache := NewMemoryQuoteCache(nil)

	quotes := map[string]domain.Quote{"bitcoin": {USD: 65000}}
	if err := cache.Set(context.Background(), "k", quotes, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	quotes["bitcoin"] = domain.Quote{USD: 1}

	got, hit, err := cache.Get(context.Background(), "k")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got["bitcoin"].USD != 65000 {
		t.Fatalf("cache must not alias caller maps: %+v", got["bitcoin"])
	}
}

func TestMemoryCacheReset(t *testing.T) {
	cache := NewMemoryQuoteCache(nil)

	if err := cache.Set(context.Background(), "k", map[string]domain.Quote{"bitcoin": {USD: 1}}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cache.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, hit, _ := cache.Get(context.Background(), "k"); hit {
		t.Fatalf("reset must flush entries")
	}
}
