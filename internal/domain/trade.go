package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	StatusIdle         SessionStatus = "idle"
	StatusSubmitting   SessionStatus = "submitting"
	StatusCountingDown SessionStatus = "counting_down"
	StatusSettled      SessionStatus = "settled"
	StatusCancelled    SessionStatus = "cancelled"
)

type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLose Outcome = "LOSE"
)

type AssetClass string

const (
	AssetClassCrypto AssetClass = "crypto"
	AssetClassForex  AssetClass = "forex"
	AssetClassGold   AssetClass = "gold"
)

type Asset struct {
	Symbol string
	Name   string
	Price  float64
	Class  AssetClass
}

// ExpirationOption is one entry of the fixed expiration catalog: a trade
// duration together with its payout and the stake band it accepts.
type ExpirationOption struct {
	Label           string
	DurationSeconds int
	PayoutPercent   float64
	MinStake        float64
	MaxStake        float64
}

// Stake bands are half-open [min, max): the boundary amount shared by two
// adjacent tiers belongs to the higher tier.
func (o ExpirationOption) AcceptsStake(amount float64) bool {
	return amount >= o.MinStake && amount < o.MaxStake
}

// EstimatedIncome is the stake plus the tier payout, i.e. what a winning
// trade returns for the given amount.
func (o ExpirationOption) EstimatedIncome(amount float64) float64 {
	stake := decimal.NewFromFloat(amount)
	payout := stake.Mul(decimal.NewFromFloat(o.PayoutPercent)).Div(decimal.NewFromInt(100))
	return stake.Add(payout).InexactFloat64()
}

var expirationCatalog = []ExpirationOption{
	{Label: "30s", DurationSeconds: 30, PayoutPercent: 12, MinStake: 500, MaxStake: 5_000},
	{Label: "60s", DurationSeconds: 60, PayoutPercent: 15, MinStake: 5_000, MaxStake: 20_000},
	{Label: "90s", DurationSeconds: 90, PayoutPercent: 18, MinStake: 20_000, MaxStake: 50_000},
	{Label: "120s", DurationSeconds: 120, PayoutPercent: 21, MinStake: 50_000, MaxStake: 90_000},
	{Label: "180s", DurationSeconds: 180, PayoutPercent: 24, MinStake: 90_000, MaxStake: 200_000},
	{Label: "360s", DurationSeconds: 360, PayoutPercent: 27, MinStake: 200_000, MaxStake: 1_000_000},
}

// ExpirationOptions returns the six-tier catalog ordered by increasing
// duration. The slice is a copy; callers may not mutate the catalog.
func ExpirationOptions() []ExpirationOption {
	out := make([]ExpirationOption, len(expirationCatalog))
	copy(out, expirationCatalog)
	return out
}

func DefaultExpiration() ExpirationOption {
	return expirationCatalog[0]
}

func FindExpiration(label string) (ExpirationOption, bool) {
	for _, opt := range expirationCatalog {
		if opt.Label == label {
			return opt, true
		}
	}
	return ExpirationOption{}, false
}

// TradeResult is the remote execution outcome. It is authoritative: the
// session never recomputes win/loss or payout math from it.
type TradeResult struct {
	TradeID           string
	Outcome           Outcome
	Amount            float64
	ReturnedAmount    float64
	ProfitLossAmount  float64
	ProfitLossPercent float64
	NewBalance        *float64
}

// TradeSession is one stake-and-wait cycle. Sessions live in memory only
// and never survive a restart; at most one is live per user.
type TradeSession struct {
	ID               string
	UserID           string
	Status           SessionStatus
	Direction        TradeDirection
	Asset            Asset
	Amount           float64
	Expiration       ExpirationOption
	RemainingSeconds int
	PendingResult    *TradeResult
	AppliedResult    *TradeResult
	OpenedAt         time.Time
	UpdatedAt        time.Time
}

// SettledTrade is the journal record written once per settlement.
type SettledTrade struct {
	TradeID           string
	UserID            string
	Symbol            string
	Direction         TradeDirection
	Outcome           Outcome
	Amount            float64
	ReturnedAmount    float64
	ProfitLossAmount  float64
	ProfitLossPercent float64
	DurationSeconds   int
	RawResult         []byte
	SettledAt         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
