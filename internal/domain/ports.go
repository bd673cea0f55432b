package domain

import (
	"context"
	"time"
)

// ExecutionRequest is the payload sent to the remote trade-execution API.
type ExecutionRequest struct {
	UserID          string
	Direction       TradeDirection
	Asset           Asset
	Amount          float64
	DurationSeconds int
}

// ExecutionClient fires a trade at the remote execution API, which alone
// decides win/loss. The response is applied verbatim.
type ExecutionClient interface {
	ExecuteTrade(ctx context.Context, req ExecutionRequest) (TradeResult, error)
}

// Identity is what the external auth provider knows about a bearer token.
type Identity struct {
	UserID        string
	Authenticated bool
}

// AccountClient talks to the external account/auth provider.
type AccountClient interface {
	Balance(ctx context.Context, userID string) (float64, error)
	Verify(ctx context.Context, token string) (Identity, error)
}

// Quote is a last-known market price with 24h context.
type Quote struct {
	USD           float64
	MarketCapUSD  float64
	Volume24hUSD  float64
	Change24hPct  float64
	LastUpdatedAt int64
}

// QuoteSource fetches live quotes from a market-data provider.
type QuoteSource interface {
	SimplePrices(ctx context.Context, ids []string) (map[string]Quote, error)
}

// QuoteCache stores quote batches for a bounded time.
type QuoteCache interface {
	Get(ctx context.Context, key string) (map[string]Quote, bool, error)
	Set(ctx context.Context, key string, quotes map[string]Quote, ttl time.Duration) error
	Reset(ctx context.Context) error
}

// TradeJournal records settled trades for the history views. Writes are
// best-effort: a journal failure must not fail or repeat a settlement.
type TradeJournal interface {
	RecordTrade(ctx context.Context, trade SettledTrade) error
	ListTrades(ctx context.Context, userID string, limit int) ([]SettledTrade, error)
}
