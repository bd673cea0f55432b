package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"timed_trading_server/internal/domain"
)

// AccountAPI talks to the external account and auth provider for balance
// reads and bearer-token verification.
type AccountAPI struct {
	client  *resty.Client
	baseURL string
}

type balanceResponse struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
	Active bool   `json:"active"`
}

func NewAccountAPI(baseURL string, opts ...func(*resty.Client)) (*AccountAPI, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second)

	for _, opt := range opts {
		opt(client)
	}

	return &AccountAPI{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (a *AccountAPI) Balance(ctx context.Context, userID string) (float64, error) {
	var payload balanceResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("userID", userID).
		SetResult(&payload).
		Get("/accounts/{userID}/balance")
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return 0, fmt.Errorf("account service responded with status %d", resp.StatusCode())
	}

	return payload.Balance, nil
}

func (a *AccountAPI) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, domain.ErrAuthRequired
	}

	var payload verifyResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&payload).
		Get("/auth/verify")
	if err != nil {
		return domain.Identity{}, fmt.Errorf("verify token: %w", err)
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return domain.Identity{}, domain.ErrAuthRequired
	}
	if resp.StatusCode() >= 400 {
		return domain.Identity{}, fmt.Errorf("auth service responded with status %d", resp.StatusCode())
	}

	return domain.Identity{
		UserID:        payload.UserID,
		Authenticated: payload.Active,
	}, nil
}
