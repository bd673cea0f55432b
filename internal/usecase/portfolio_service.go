package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"timed_trading_server/internal/domain"
)

// PortfolioService tracks dashboard holdings in memory and values them
// through the price service. Unlike the module-level store it replaces,
// the service is explicitly constructed with its clock and price source
// and offers an explicit Reset.
type PortfolioService struct {
	mu     sync.RWMutex
	assets map[string]domain.PortfolioAsset
	prices PriceProvider
	clock  Clock
}

func NewPortfolioService(prices PriceProvider, clock Clock) (*PortfolioService, error) {
	if prices == nil {
		return nil, errors.New("price provider required")
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &PortfolioService{
		assets: make(map[string]domain.PortfolioAsset),
		prices: prices,
		clock:  clock,
	}, nil
}

// NewAsset describes a holding to add.
type NewAsset struct {
	CoinID        string
	Symbol        string
	Name          string
	Amount        float64
	PurchasePrice float64
}

func (s *PortfolioService) AddAsset(input NewAsset) (domain.PortfolioAsset, error) {
	if input.CoinID == "" {
		return domain.PortfolioAsset{}, domain.NewValidationError("coin_id", "required")
	}
	if input.Amount <= 0 {
		return domain.PortfolioAsset{}, domain.NewValidationError("amount", "must be positive")
	}

	now := s.clock.Now()
	asset := domain.PortfolioAsset{
		ID:            input.CoinID + "_" + uuid.NewString(),
		CoinID:        input.CoinID,
		Symbol:        input.Symbol,
		Name:          input.Name,
		Amount:        input.Amount,
		PurchasePrice: input.PurchasePrice,
		PurchaseDate:  now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.assets[asset.ID] = asset
	s.mu.Unlock()
	return asset, nil
}

func (s *PortfolioService) UpdateAmount(assetID string, amount float64) (domain.PortfolioAsset, error) {
	if amount <= 0 {
		return domain.PortfolioAsset{}, domain.NewValidationError("amount", "must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return domain.PortfolioAsset{}, domain.NewValidationError("asset_id", "not found")
	}
	asset.Amount = amount
	asset.UpdatedAt = s.clock.Now()
	s.assets[assetID] = asset
	return asset, nil
}

func (s *PortfolioService) RemoveAsset(assetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[assetID]; !ok {
		return false
	}
	delete(s.assets, assetID)
	return true
}

func (s *PortfolioService) Assets() []domain.PortfolioAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PortfolioAsset, 0, len(s.assets))
	for _, asset := range s.assets {
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Valuation values every holding at the current quote. When the price
// fetch fails the holdings are still returned, zero-valued, so the
// dashboard can render a degraded view.
func (s *PortfolioService) Valuation(ctx context.Context) ([]domain.PortfolioValue, error) {
	assets := s.Assets()
	if len(assets) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(assets))
	ids := make([]string, 0, len(assets))
	for _, asset := range assets {
		if _, ok := seen[asset.CoinID]; ok {
			continue
		}
		seen[asset.CoinID] = struct{}{}
		ids = append(ids, asset.CoinID)
	}

	quotes, err := s.prices.LivePrices(ctx, ids)
	if err != nil {
		quotes = nil
	}

	values := make([]domain.PortfolioValue, 0, len(assets))
	for _, asset := range assets {
		quote := quotes[asset.CoinID]
		value := domain.PortfolioValue{
			AssetID:        asset.ID,
			CoinID:         asset.CoinID,
			Symbol:         asset.Symbol,
			Name:           asset.Name,
			Amount:         asset.Amount,
			CurrentPrice:   quote.USD,
			TotalValue:     asset.Amount * quote.USD,
			PurchasePrice:  asset.PurchasePrice,
			PriceChange24h: quote.Change24hPct,
			AssetChange24h: asset.Amount * quote.USD * quote.Change24hPct / 100,
		}
		if asset.PurchasePrice > 0 {
			cost := asset.Amount * asset.PurchasePrice
			value.PnL = value.TotalValue - cost
			value.PnLPercent = value.PnL / cost * 100
		}
		values = append(values, value)
	}
	return values, nil
}

// Summary aggregates the valuation into totals and allocation shares.
func (s *PortfolioService) Summary(ctx context.Context) (domain.PortfolioSummary, error) {
	values, err := s.Valuation(ctx)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}

	summary := domain.PortfolioSummary{
		Assets:      values,
		LastUpdated: s.clock.Now(),
	}
	if len(values) == 0 {
		return summary, nil
	}

	for _, v := range values {
		summary.TotalValue += v.TotalValue
		summary.Change24h += v.AssetChange24h
	}
	summary.TotalValue24hAgo = summary.TotalValue - summary.Change24h
	if summary.TotalValue24hAgo > 0 {
		summary.Change24hPercentage = summary.Change24h / summary.TotalValue24hAgo * 100
	}

	allocation := make([]domain.AssetAllocation, 0, len(values))
	for _, v := range values {
		share := domain.AssetAllocation{
			CoinID: v.CoinID,
			Symbol: v.Symbol,
			Name:   v.Name,
			Value:  v.TotalValue,
		}
		if summary.TotalValue > 0 {
			share.Percentage = v.TotalValue / summary.TotalValue * 100
		}
		allocation = append(allocation, share)
	}
	sort.Slice(allocation, func(i, j int) bool {
		return allocation[i].Percentage > allocation[j].Percentage
	})
	summary.Allocation = allocation

	return summary, nil
}

// Reset discards every holding.
func (s *PortfolioService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = make(map[string]domain.PortfolioAsset)
}
