package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"timed_trading_server/internal/domain"
)

// PriceProvider is what price consumers (dashboard, portfolio valuation)
// depend on.
type PriceProvider interface {
	LivePrices(ctx context.Context, ids []string) (map[string]domain.Quote, error)
}

// PriceService serves last-known market quotes through a TTL cache backed
// by the upstream quote source, throttled to a fixed per-second request
// budget. It is an explicitly constructed instance: cache, clock and
// limits are injected, and Reset restores a clean state.
type PriceService struct {
	quotes domain.QuoteSource
	cache  domain.QuoteCache
	clock  Clock
	ttl    time.Duration
	logger zerolog.Logger

	mu           sync.Mutex
	windowStart  time.Time
	requests     int
	maxPerWindow int
}

func NewPriceService(quotes domain.QuoteSource, cache domain.QuoteCache, clock Clock, ttl time.Duration, maxPerSecond int, logger zerolog.Logger) (*PriceService, error) {
	if quotes == nil {
		return nil, errors.New("quote source required")
	}
	if cache == nil {
		return nil, errors.New("quote cache required")
	}
	if clock == nil {
		clock = SystemClock()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxPerSecond <= 0 {
		maxPerSecond = 10
	}
	return &PriceService{
		quotes:       quotes,
		cache:        cache,
		clock:        clock,
		ttl:          ttl,
		maxPerWindow: maxPerSecond,
		logger:       logger.With().Str("component", "prices").Logger(),
	}, nil
}

// LivePrices returns quotes for the given provider ids, from cache when
// fresh, otherwise from the upstream source.
func (s *PriceService) LivePrices(ctx context.Context, ids []string) (map[string]domain.Quote, error) {
	if len(ids) == 0 {
		return nil, errors.New("at least one id required")
	}

	key := cacheKey(ids)
	if cached, hit, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("quote cache read failed")
	} else if hit {
		return cached, nil
	}

	if err := s.throttle(ctx); err != nil {
		return nil, err
	}

	quotes, err := s.quotes.SimplePrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	if err := s.cache.Set(ctx, key, quotes, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("quote cache write failed")
	}
	return quotes, nil
}

// Reset flushes the cache and the rate window.
func (s *PriceService) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.windowStart = time.Time{}
	s.requests = 0
	s.mu.Unlock()
	return s.cache.Reset(ctx)
}

// throttle blocks until the current one-second window has budget left.
func (s *PriceService) throttle(ctx context.Context) error {
	s.mu.Lock()
	now := s.clock.Now()
	if now.Sub(s.windowStart) >= time.Second {
		s.windowStart = now
		s.requests = 0
	}

	if s.requests >= s.maxPerWindow {
		wait := time.Second - now.Sub(s.windowStart)
		s.mu.Unlock()
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(wait):
			}
		}
		s.mu.Lock()
		s.windowStart = s.clock.Now()
		s.requests = 0
	}

	s.requests++
	s.mu.Unlock()
	return nil
}

func cacheKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return "quotes:" + strings.Join(sorted, ",")
}
