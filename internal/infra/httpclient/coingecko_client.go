package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"timed_trading_server/internal/domain"
)

// CoinGeckoClient fetches simple-price quotes from the CoinGecko API.
type CoinGeckoClient struct {
	client *resty.Client
	apiKey string
}

type simplePriceEntry struct {
	USD           float64 `json:"usd"`
	USDMarketCap  float64 `json:"usd_market_cap"`
	USD24hVol     float64 `json:"usd_24h_vol"`
	USD24hChange  float64 `json:"usd_24h_change"`
	LastUpdatedAt int64   `json:"last_updated_at"`
}

func NewCoinGeckoClient(baseURL, apiKey string, opts ...func(*resty.Client)) (*CoinGeckoClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)

	for _, opt := range opts {
		opt(client)
	}

	return &CoinGeckoClient{
		client: client,
		apiKey: apiKey,
	}, nil
}

func (c *CoinGeckoClient) SimplePrices(ctx context.Context, ids []string) (map[string]domain.Quote, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one id required")
	}

	var payload map[string]simplePriceEntry
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                     strings.Join(ids, ","),
			"vs_currencies":           "usd",
			"include_market_cap":      "true",
			"include_24hr_vol":        "true",
			"include_24hr_change":     "true",
			"include_last_updated_at": "true",
		}).
		SetResult(&payload)
	if c.apiKey != "" {
		req.SetQueryParam("x_cg_demo_api_key", c.apiKey)
	}

	resp, err := req.Get("/simple/price")
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	if resp.StatusCode() == 429 {
		return nil, fmt.Errorf("price provider rate limit exceeded")
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("price provider responded with status %d", resp.StatusCode())
	}

	quotes := make(map[string]domain.Quote, len(payload))
	for id, entry := range payload {
		quotes[id] = domain.Quote{
			USD:           entry.USD,
			MarketCapUSD:  entry.USDMarketCap,
			Volume24hUSD:  entry.USD24hVol,
			Change24hPct:  entry.USD24hChange,
			LastUpdatedAt: entry.LastUpdatedAt,
		}
	}
	return quotes, nil
}
