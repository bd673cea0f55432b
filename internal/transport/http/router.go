package http

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"

	"timed_trading_server/internal/domain"
	"timed_trading_server/internal/usecase"
)

type SessionService interface {
	Open(ctx context.Context, identity domain.Identity, asset domain.Asset, direction domain.TradeDirection, lastKnownBalance float64) (usecase.SessionView, error)
	Current(userID string) (usecase.SessionView, error)
	SelectAmount(userID string, amount float64) (usecase.SessionView, error)
	SelectExpiration(userID string, label string) (usecase.SessionView, error)
	Submit(ctx context.Context, identity domain.Identity) (usecase.SessionView, error)
	Cancel(userID string) (usecase.SessionView, error)
	Close(userID string) error
}

type PriceService interface {
	LivePrices(ctx context.Context, ids []string) (map[string]domain.Quote, error)
}

type PortfolioService interface {
	AddAsset(input usecase.NewAsset) (domain.PortfolioAsset, error)
	UpdateAmount(assetID string, amount float64) (domain.PortfolioAsset, error)
	RemoveAsset(assetID string) bool
	Assets() []domain.PortfolioAsset
	Summary(ctx context.Context) (domain.PortfolioSummary, error)
	Reset()
}

type Router struct {
	app       *fiber.App
	sessions  SessionService
	prices    PriceService
	portfolio PortfolioService
	journal   domain.TradeJournal
	accounts  domain.AccountClient
}

func New(sessions SessionService, prices PriceService, portfolio PortfolioService, journal domain.TradeJournal, accounts domain.AccountClient) *Router {
	app := fiber.New()

	r := &Router{
		app:       app,
		sessions:  sessions,
		prices:    prices,
		portfolio: portfolio,
		journal:   journal,
		accounts:  accounts,
	}

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/expirations", r.listExpirations)
	v1.Get("/market/prices", r.marketPrices)

	v1.Get("/portfolio", r.listPortfolio)
	v1.Get("/portfolio/summary", r.portfolioSummary)
	v1.Post("/portfolio/assets", r.addPortfolioAsset)
	v1.Put("/portfolio/assets/:asset_id", r.updatePortfolioAsset)
	v1.Delete("/portfolio/assets/:asset_id", r.removePortfolioAsset)
	v1.Delete("/portfolio", r.resetPortfolio)

	authed := v1.Group("", r.requireAuth)
	authed.Post("/sessions", r.openSession)
	authed.Get("/sessions/current", r.currentSession)
	authed.Put("/sessions/current/amount", r.selectAmount)
	authed.Put("/sessions/current/expiration", r.selectExpiration)
	authed.Post("/sessions/current/submit", r.submitTrade)
	authed.Post("/sessions/current/cancel", r.cancelTrade)
	authed.Delete("/sessions/current", r.closeSession)
	authed.Get("/trades", r.listTrades)

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return r
}

func (r *Router) App() *fiber.App {
	return r.app
}

// requireAuth verifies the bearer token against the account service and
// stores the resolved identity on the request.
func (r *Router) requireAuth(c *fiber.Ctx) error {
	if r.accounts == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "auth unavailable")
	}

	header := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return fiber.NewError(fiber.StatusUnauthorized, "bearer token required")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 5*time.Second)
	defer cancel()

	identity, err := r.accounts.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		return fiber.NewError(fiber.StatusBadGateway, "auth verification failed")
	}
	if !identity.Authenticated {
		return fiber.NewError(fiber.StatusUnauthorized, "token inactive")
	}

	c.Locals("identity", identity)
	return c.Next()
}

func callerIdentity(c *fiber.Ctx) domain.Identity {
	identity, _ := c.Locals("identity").(domain.Identity)
	return identity
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// mapDomainError translates service errors into transport status codes.
func mapDomainError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	var serr *domain.StateError
	var execErr *domain.ExecutionFailure

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.Is(err, domain.ErrAuthRequired):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.As(err, &serr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": serr.Error()})
	case errors.Is(err, domain.ErrNoActiveSession):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &execErr):
		return fiber.NewError(fiber.StatusBadGateway, execErr.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

type OpenSessionRequest struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Class            string  `json:"class"`
	Direction        string  `json:"direction"`
	LastKnownBalance float64 `json:"last_known_balance"`
}

type AmountRequest struct {
	Amount float64 `json:"amount"`
}

type ExpirationRequest struct {
	Label string `json:"label"`
}

type SessionResponse struct {
	ID               string               `json:"id"`
	Status           string               `json:"status"`
	Direction        string               `json:"direction"`
	Asset            AssetResponse        `json:"asset"`
	Amount           float64              `json:"amount"`
	Expiration       ExpirationResponse   `json:"expiration"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Balance          float64              `json:"balance"`
	EstimatedIncome  float64              `json:"estimated_income"`
	Result           *TradeResultResponse `json:"result,omitempty"`
	OpenedAt         time.Time            `json:"opened_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type AssetResponse struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Class  string  `json:"class"`
}

type ExpirationResponse struct {
	Label           string  `json:"label"`
	DurationSeconds int     `json:"duration_seconds"`
	PayoutPercent   float64 `json:"payout_percent"`
	MinStake        float64 `json:"min_stake"`
	MaxStake        float64 `json:"max_stake"`
}

type TradeResultResponse struct {
	TradeID           string   `json:"trade_id"`
	Outcome           string   `json:"outcome"`
	Amount            float64  `json:"amount"`
	ReturnedAmount    float64  `json:"returned_amount"`
	ProfitLossAmount  float64  `json:"profit_loss_amount"`
	ProfitLossPercent float64  `json:"profit_loss_percent"`
	NewBalance        *float64 `json:"new_balance,omitempty"`
}

func toSessionResponse(view usecase.SessionView) SessionResponse {
	resp := SessionResponse{
		ID:               view.ID,
		Status:           string(view.Status),
		Direction:        string(view.Direction),
		Asset:            toAssetResponse(view.Asset),
		Amount:           view.Amount,
		Expiration:       toExpirationResponse(view.Expiration),
		RemainingSeconds: view.RemainingSeconds,
		Balance:          view.Balance,
		EstimatedIncome:  view.EstimatedIncome,
		OpenedAt:         view.OpenedAt,
		UpdatedAt:        view.UpdatedAt,
	}
	if view.Result != nil {
		resp.Result = &TradeResultResponse{
			TradeID:           view.Result.TradeID,
			Outcome:           string(view.Result.Outcome),
			Amount:            view.Result.Amount,
			ReturnedAmount:    view.Result.ReturnedAmount,
			ProfitLossAmount:  view.Result.ProfitLossAmount,
			ProfitLossPercent: view.Result.ProfitLossPercent,
			NewBalance:        view.Result.NewBalance,
		}
	}
	return resp
}

func toAssetResponse(asset domain.Asset) AssetResponse {
	return AssetResponse{
		Symbol: asset.Symbol,
		Name:   asset.Name,
		Price:  asset.Price,
		Class:  string(asset.Class),
	}
}

func toExpirationResponse(opt domain.ExpirationOption) ExpirationResponse {
	return ExpirationResponse{
		Label:           opt.Label,
		DurationSeconds: opt.DurationSeconds,
		PayoutPercent:   opt.PayoutPercent,
		MinStake:        opt.MinStake,
		MaxStake:        opt.MaxStake,
	}
}

// openSession godoc
// @Summary Open a trade session for an asset
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body OpenSessionRequest true "Asset and direction"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /sessions [post]
func (r *Router) openSession(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	var req OpenSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if req.Symbol == "" {
		return fiber.NewError(fiber.StatusBadRequest, "symbol required")
	}

	asset := domain.Asset{
		Symbol: req.Symbol,
		Name:   req.Name,
		Price:  req.Price,
		Class:  domain.AssetClass(req.Class),
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	view, err := r.sessions.Open(ctx, callerIdentity(c), asset, domain.TradeDirection(req.Direction), req.LastKnownBalance)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(view))
}

// currentSession godoc
// @Summary Get the caller's live session
// @Tags sessions
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string
// @Router /sessions/current [get]
func (r *Router) currentSession(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	view, err := r.sessions.Current(callerIdentity(c).UserID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(toSessionResponse(view))
}

// selectAmount godoc
// @Summary Set the stake for the live session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body AmountRequest true "Stake amount"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /sessions/current/amount [put]
func (r *Router) selectAmount(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	view, err := r.sessions.SelectAmount(callerIdentity(c).UserID, req.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(toSessionResponse(view))
}

// selectExpiration godoc
// @Summary Pick an expiration tier for the live session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body ExpirationRequest true "Tier label"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /sessions/current/expiration [put]
func (r *Router) selectExpiration(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	var req ExpirationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	view, err := r.sessions.SelectExpiration(callerIdentity(c).UserID, req.Label)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(toSessionResponse(view))
}

// submitTrade godoc
// @Summary Submit the staged trade for execution
// @Tags sessions
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /sessions/current/submit [post]
func (r *Router) submitTrade(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 30*time.Second)
	defer cancel()

	view, err := r.sessions.Submit(ctx, callerIdentity(c))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(toSessionResponse(view))
}

// cancelTrade godoc
// @Summary Cancel the running countdown and refund the stake
// @Tags sessions
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /sessions/current/cancel [post]
func (r *Router) cancelTrade(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	view, err := r.sessions.Cancel(callerIdentity(c).UserID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(toSessionResponse(view))
}

// closeSession godoc
// @Summary Close the caller's session
// @Tags sessions
// @Produce json
// @Success 204
// @Router /sessions/current [delete]
func (r *Router) closeSession(c *fiber.Ctx) error {
	if r.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "session service unavailable")
	}

	if err := r.sessions.Close(callerIdentity(c).UserID); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// listExpirations godoc
// @Summary List the expiration tier catalog
// @Tags catalog
// @Produce json
// @Success 200 {array} ExpirationResponse
// @Router /expirations [get]
func (r *Router) listExpirations(c *fiber.Ctx) error {
	options := domain.ExpirationOptions()
	out := make([]ExpirationResponse, len(options))
	for i, opt := range options {
		out[i] = toExpirationResponse(opt)
	}
	return c.JSON(out)
}

// marketPrices godoc
// @Summary Fetch live quotes for the given provider ids
// @Tags market
// @Produce json
// @Param ids query string true "Comma-separated provider ids"
// @Success 200 {object} map[string]domain.Quote
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /market/prices [get]
func (r *Router) marketPrices(c *fiber.Ctx) error {
	if r.prices == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "price service unavailable")
	}

	raw := c.Query("ids")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "ids required")
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "ids required")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	quotes, err := r.prices.LivePrices(ctx, ids)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(quotes)
}

type NewAssetRequest struct {
	CoinID        string  `json:"coin_id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Amount        float64 `json:"amount"`
	PurchasePrice float64 `json:"purchase_price"`
}

// listPortfolio godoc
// @Summary List portfolio holdings
// @Tags portfolio
// @Produce json
// @Success 200 {array} domain.PortfolioAsset
// @Router /portfolio [get]
func (r *Router) listPortfolio(c *fiber.Ctx) error {
	if r.portfolio == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "portfolio service unavailable")
	}
	return c.JSON(r.portfolio.Assets())
}

// portfolioSummary godoc
// @Summary Aggregate portfolio valuation and allocation
// @Tags portfolio
// @Produce json
// @Success 200 {object} domain.PortfolioSummary
// @Failure 500 {object} map[string]string
// @Router /portfolio/summary [get]
func (r *Router) portfolioSummary(c *fiber.Ctx) error {
	if r.portfolio == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "portfolio service unavailable")
	}

	ctx, cancel := context.WithTimeout(userContext(c), 10*time.Second)
	defer cancel()

	summary, err := r.portfolio.Summary(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(summary)
}

// addPortfolioAsset godoc
// @Summary Add a holding to the portfolio
// @Tags portfolio
// @Accept json
// @Produce json
// @Param request body NewAssetRequest true "Holding"
// @Success 201 {object} domain.PortfolioAsset
// @Failure 400 {object} map[string]string
// @Router /portfolio/assets [post]
func (r *Router) addPortfolioAsset(c *fiber.Ctx) error {
	if r.portfolio == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "portfolio service unavailable")
	}

	var req NewAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	asset, err := r.portfolio.AddAsset(usecase.NewAsset{
		CoinID:        req.CoinID,
		Symbol:        req.Symbol,
		Name:          req.Name,
		Amount:        req.Amount,
		PurchasePrice: req.PurchasePrice,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(asset)
}

// updatePortfolioAsset godoc
// @Summary Change the amount of a holding
// @Tags portfolio
// @Accept json
// @Produce json
// @Param asset_id path string true "Asset ID"
// @Param request body AmountRequest true "New amount"
// @Success 200 {object} domain.PortfolioAsset
// @Failure 400 {object} map[string]string
// @Router /portfolio/assets/{asset_id} [put]
func (r *Router) updatePortfolioAsset(c *fiber.Ctx) error {
	if r.portfolio == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "portfolio service unavailable")
	}

	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	asset, err := r.portfolio.UpdateAmount(c.Params("asset_id"), req.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(asset)
}

// removePortfolioAsset godoc
// @Summary Remove a holding
// @Tags portfolio
// @Produce json
// @Param asset_id path string true "Asset ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /portfolio/assets/{asset_id} [delete]
func (r *Router) removePortfolioAsset(c *fiber.Ctx) error {
	if r.portfolio == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "portfolio service unavailable")
	}

	if !r.portfolio.RemoveAsset(c.Params("asset_id")) {
		return fiber.NewError(fiber.StatusNotFound, "asset not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// resetPortfolio godoc
// @Summary Discard every holding
// @Tags portfolio
// @Success 204
// @Router /portfolio [delete]
func (r *Router) resetPortfolio(c *fiber.Ctx) error {
	if r.portfolio == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "portfolio service unavailable")
	}
	r.portfolio.Reset()
	return c.SendStatus(fiber.StatusNoContent)
}

// listTrades godoc
// @Summary List the caller's settled trades
// @Tags trades
// @Produce json
// @Param limit query int false "Maximum number of trades"
// @Success 200 {array} domain.SettledTrade
// @Failure 500 {object} map[string]string
// @Router /trades [get]
func (r *Router) listTrades(c *fiber.Ctx) error {
	if r.journal == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "trade history unavailable")
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(userContext(c), 5*time.Second)
	defer cancel()

	trades, err := r.journal.ListTrades(ctx, callerIdentity(c).UserID, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(trades)
}
