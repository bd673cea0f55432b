package domain

import "time"

// PortfolioAsset is a holding tracked for the dashboard.
type PortfolioAsset struct {
	ID            string
	CoinID        string
	Symbol        string
	Name          string
	Amount        float64
	PurchasePrice float64
	PurchaseDate  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PortfolioValue is a holding valued at the current quote.
type PortfolioValue struct {
	AssetID        string
	CoinID         string
	Symbol         string
	Name           string
	Amount         float64
	CurrentPrice   float64
	TotalValue     float64
	PurchasePrice  float64
	PnL            float64
	PnLPercent     float64
	PriceChange24h float64
	AssetChange24h float64
}

type AssetAllocation struct {
	CoinID     string
	Symbol     string
	Name       string
	Percentage float64
	Value      float64
}

type PortfolioSummary struct {
	TotalValue          float64
	TotalValue24hAgo    float64
	Change24h           float64
	Change24hPercentage float64
	Assets              []PortfolioValue
	Allocation          []AssetAllocation
	LastUpdated         time.Time
}
