package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"timed_trading_server/internal/domain"
)

// manualClock drives countdown ticks and TTL checks deterministically.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time)}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// After fires immediately so backoff waits do not slow tests down.
func (c *manualClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *manualClock) latest() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

func (c *manualClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// sendTick delivers one tick and fails the test if nothing consumes it.
func sendTick(t *testing.T, ticker *manualTicker) {
	t.Helper()
	select {
	case ticker.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("tick was not consumed")
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never satisfied")
}

type fakeExecutionClient struct {
	mu      sync.Mutex
	result  domain.TradeResult
	err     error
	calls   int
	lastReq domain.ExecutionRequest
}

func (f *fakeExecutionClient) ExecuteTrade(_ context.Context, req domain.ExecutionRequest) (domain.TradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return domain.TradeResult{}, f.err
	}
	return f.result, nil
}

type fakeAccountClient struct {
	mu      sync.Mutex
	balance float64
	err     error
	calls   int
}

func (f *fakeAccountClient) Balance(context.Context, string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.balance, nil
}

func (f *fakeAccountClient) Verify(context.Context, string) (domain.Identity, error) {
	return domain.Identity{}, nil
}

func (f *fakeAccountClient) setBalance(v float64) {
	f.mu.Lock()
	f.balance = v
	f.mu.Unlock()
}

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.SettledTrade
	err     error
}

func (f *fakeJournal) RecordTrade(_ context.Context, trade domain.SettledTrade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, trade)
	return nil
}

func (f *fakeJournal) ListTrades(context.Context, string, int) ([]domain.SettledTrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SettledTrade, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeJournal) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}
