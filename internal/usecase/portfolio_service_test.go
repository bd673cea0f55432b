package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"timed_trading_server/internal/domain"
)

func newPortfolioFixture(t *testing.T) (*PortfolioService, *fakeQuoteSource, *manualClock) {
	t.Helper()

	clock := newManualClock()
	source := &fakeQuoteSource{quotes: map[string]domain.Quote{
		"bitcoin":  {USD: 50000, Change24hPct: 10},
		"ethereum": {USD: 2500, Change24hPct: -5},
	}}
	svc, err := NewPortfolioService(source, clock)
	if err != nil {
		t.Fatalf("new portfolio service: %v", err)
	}
	return svc, source, clock
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestPortfolioAddAndValuation(t *testing.T) {
	svc, _, _ := newPortfolioFixture(t)

	asset, err := svc.AddAsset(NewAsset{
		CoinID:        "bitcoin",
		Symbol:        "BTC",
		Name:          "Bitcoin",
		Amount:        0.5,
		PurchasePrice: 45000,
	})
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	if asset.ID == "" || asset.CoinID != "bitcoin" {
		t.Fatalf("unexpected asset: %+v", asset)
	}

	values, err := svc.Valuation(context.Background())
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("expected one valued holding, got %d", len(values))
	}

	v := values[0]
	if !approx(v.TotalValue, 25000) {
		t.Fatalf("expected value 25000, got %f", v.TotalValue)
	}
	if !approx(v.PnL, 2500) {
		t.Fatalf("expected pnl 2500, got %f", v.PnL)
	}
	if !approx(v.PnLPercent, 2500.0/22500*100) {
		t.Fatalf("unexpected pnl percent %f", v.PnLPercent)
	}
	if !approx(v.AssetChange24h, 2500) {
		t.Fatalf("expected 24h change 2500, got %f", v.AssetChange24h)
	}
}

func TestPortfolioSummaryAndAllocation(t *testing.T) {
	svc, _, _ := newPortfolioFixture(t)

	if _, err := svc.AddAsset(NewAsset{CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 0.5, PurchasePrice: 45000}); err != nil {
		t.Fatalf("add btc: %v", err)
	}
	if _, err := svc.AddAsset(NewAsset{CoinID: "ethereum", Symbol: "ETH", Name: "Ethereum", Amount: 4, PurchasePrice: 2000}); err != nil {
		t.Fatalf("add eth: %v", err)
	}

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	// btc 25000 + eth 10000
	if !approx(summary.TotalValue, 35000) {
		t.Fatalf("expected total 35000, got %f", summary.TotalValue)
	}
	// +2500 btc, -500 eth
	if !approx(summary.Change24h, 2000) {
		t.Fatalf("expected 24h change 2000, got %f", summary.Change24h)
	}
	if !approx(summary.TotalValue24hAgo, 33000) {
		t.Fatalf("expected prior total 33000, got %f", summary.TotalValue24hAgo)
	}
	if !approx(summary.Change24hPercentage, 2000.0/33000*100) {
		t.Fatalf("unexpected 24h percentage %f", summary.Change24hPercentage)
	}

	if len(summary.Allocation) != 2 {
		t.Fatalf("expected two allocation rows, got %d", len(summary.Allocation))
	}
	if summary.Allocation[0].CoinID != "bitcoin" {
		t.Fatalf("allocation should be sorted by share, got %s first", summary.Allocation[0].CoinID)
	}
	if !approx(summary.Allocation[0].Percentage, 25000.0/35000*100) {
		t.Fatalf("unexpected btc share %f", summary.Allocation[0].Percentage)
	}
}

func TestPortfolioDegradedValuationOnProviderError(t *testing.T) {
	svc, source, _ := newPortfolioFixture(t)
	source.err = errors.New("upstream down")

	if _, err := svc.AddAsset(NewAsset{CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 1}); err != nil {
		t.Fatalf("add asset: %v", err)
	}

	values, err := svc.Valuation(context.Background())
	if err != nil {
		t.Fatalf("degraded valuation must not error: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("holdings must survive a failed fetch, got %d", len(values))
	}
	if values[0].TotalValue != 0 || values[0].CurrentPrice != 0 {
		t.Fatalf("degraded view should be zero-valued: %+v", values[0])
	}
	if values[0].Amount != 1 {
		t.Fatalf("amount lost in degraded view: %+v", values[0])
	}
}

func TestPortfolioUpdateAndRemove(t *testing.T) {
	svc, _, _ := newPortfolioFixture(t)

	asset, err := svc.AddAsset(NewAsset{CoinID: "ethereum", Symbol: "ETH", Name: "Ethereum", Amount: 2})
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}

	updated, err := svc.UpdateAmount(asset.ID, 3.5)
	if err != nil {
		t.Fatalf("update amount: %v", err)
	}
	if updated.Amount != 3.5 {
		t.Fatalf("expected amount 3.5, got %f", updated.Amount)
	}

	var verr *domain.ValidationError
	if _, err := svc.UpdateAmount(asset.ID, 0); !errors.As(err, &verr) {
		t.Fatalf("zero amount: expected validation error, got %v", err)
	}
	if _, err := svc.UpdateAmount("missing", 1); !errors.As(err, &verr) {
		t.Fatalf("unknown asset: expected validation error, got %v", err)
	}

	if !svc.RemoveAsset(asset.ID) {
		t.Fatalf("remove should report success")
	}
	if svc.RemoveAsset(asset.ID) {
		t.Fatalf("second remove should report absence")
	}
	if len(svc.Assets()) != 0 {
		t.Fatalf("portfolio should be empty")
	}
}

func TestPortfolioValidatesNewAssets(t *testing.T) {
	svc, _, _ := newPortfolioFixture(t)

	var verr *domain.ValidationError
	if _, err := svc.AddAsset(NewAsset{Symbol: "BTC", Amount: 1}); !errors.As(err, &verr) {
		t.Fatalf("missing coin id: expected validation error, got %v", err)
	}
	if _, err := svc.AddAsset(NewAsset{CoinID: "bitcoin", Amount: 0}); !errors.As(err, &verr) {
		t.Fatalf("non-positive amount: expected validation error, got %v", err)
	}
}

func TestPortfolioResetDiscardsHoldings(t *testing.T) {
	svc, _, _ := newPortfolioFixture(t)

	if _, err := svc.AddAsset(NewAsset{CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 1}); err != nil {
		t.Fatalf("add asset: %v", err)
	}
	svc.Reset()
	if len(svc.Assets()) != 0 {
		t.Fatalf("reset should discard every holding")
	}

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary after reset: %v", err)
	}
	if summary.TotalValue != 0 || len(summary.Assets) != 0 {
		t.Fatalf("summary should be empty after reset: %+v", summary)
	}
}
