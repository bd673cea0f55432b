package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"timed_trading_server/internal/domain"
)

// ExecutionAPI submits trades to the remote execution service. The
// service alone decides the outcome; the response is returned verbatim.
type ExecutionAPI struct {
	client  *resty.Client
	baseURL string
}

type executeTradeRequest struct {
	UserID          string  `json:"user_id"`
	Symbol          string  `json:"symbol"`
	Direction       string  `json:"direction"`
	Amount          float64 `json:"amount"`
	DurationSeconds int     `json:"duration_seconds"`
}

type executeTradeResponse struct {
	TradeID           string   `json:"trade_id"`
	Status            string   `json:"status"`
	Amount            float64  `json:"amount"`
	ReturnedAmount    float64  `json:"returned_amount"`
	ProfitLossAmount  float64  `json:"profit_loss_amount"`
	ProfitLossPercent float64  `json:"profit_loss_percent"`
	NewBalance        *float64 `json:"new_balance,omitempty"`
}

func NewExecutionAPI(baseURL string, opts ...func(*resty.Client)) (*ExecutionAPI, error) {
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

	return &ExecutionAPI{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (e *ExecutionAPI) ExecuteTrade(ctx context.Context, req domain.ExecutionRequest) (domain.TradeResult, error) {
	payload := executeTradeRequest{
		UserID:          req.UserID,
		Symbol:          req.Asset.Symbol,
		Direction:       string(req.Direction),
		Amount:          req.Amount,
		DurationSeconds: req.DurationSeconds,
	}

	var result executeTradeResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/trades/execute")
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("execute trade: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return domain.TradeResult{}, fmt.Errorf("execution service responded with status %d", resp.StatusCode())
	}

	outcome, err := parseOutcome(result.Status)
	if err != nil {
		return domain.TradeResult{}, err
	}

	return domain.TradeResult{
		TradeID:           result.TradeID,
		Outcome:           outcome,
		Amount:            result.Amount,
		ReturnedAmount:    result.ReturnedAmount,
		ProfitLossAmount:  result.ProfitLossAmount,
		ProfitLossPercent: result.ProfitLossPercent,
		NewBalance:        result.NewBalance,
	}, nil
}

func parseOutcome(status string) (domain.Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "WIN":
		return domain.OutcomeWin, nil
	case "LOSE", "LOSS":
		return domain.OutcomeLose, nil
	default:
		return "", fmt.Errorf("unknown trade status %q", status)
	}
}
