package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"timed_trading_server/internal/domain"
)

// SessionService mediates the full lifecycle of timed trade sessions:
// open, amount/expiration selection, submission, countdown, settlement,
// cancellation. It guarantees the stake is debited at most once and the
// outcome is applied exactly once, and it keeps at most one live session
// per user. All transitions are serialized on one mutex, the Go rendition
// of the original single-threaded event model.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*liveSession

	exec     domain.ExecutionClient
	accounts domain.AccountClient
	journal  domain.TradeJournal
	clock    Clock
	logger   zerolog.Logger
}

type liveSession struct {
	session   domain.TradeSession
	ledger    *BalanceLedger
	countdown *Countdown
}

func NewSessionService(exec domain.ExecutionClient, accounts domain.AccountClient, journal domain.TradeJournal, clock Clock, logger zerolog.Logger) (*SessionService, error) {
	if exec == nil {
		return nil, errors.New("execution client required")
	}
	if accounts == nil {
		return nil, errors.New("account client required")
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &SessionService{
		sessions: make(map[string]*liveSession),
		exec:     exec,
		accounts: accounts,
		journal:  journal,
		clock:    clock,
		logger:   logger.With().Str("component", "session").Logger(),
	}, nil
}

// SessionView is the externally visible snapshot of a session. The pending
// result is deliberately absent: the outcome is revealed only after the
// countdown completes.
type SessionView struct {
	ID               string
	UserID           string
	Status           domain.SessionStatus
	Direction        domain.TradeDirection
	Asset            domain.Asset
	Amount           float64
	Expiration       domain.ExpirationOption
	RemainingSeconds int
	Balance          float64
	EstimatedIncome  float64
	Result           *domain.TradeResult
	OpenedAt         time.Time
	UpdatedAt        time.Time
}

// Open starts a clean idle session for the user, replacing any previous
// one. The displayed balance is seeded from the account service, falling
// back to the caller's last known value when the fetch fails.
func (s *SessionService) Open(ctx context.Context, identity domain.Identity, asset domain.Asset, direction domain.TradeDirection, lastKnownBalance float64) (SessionView, error) {
	if !identity.Authenticated || identity.UserID == "" {
		return SessionView{}, domain.ErrAuthRequired
	}
	if direction != domain.DirectionBuy && direction != domain.DirectionSell {
		return SessionView{}, domain.NewValidationError("direction", "must be buy or sell")
	}

	balance := lastKnownBalance
	if fetched, err := s.accounts.Balance(ctx, identity.UserID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", identity.UserID).Msg("balance fetch failed, using last known value")
	} else {
		balance = fetched
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[identity.UserID]; ok {
		s.discardLocked(existing)
		delete(s.sessions, identity.UserID)
	}

	now := s.clock.Now()
	ls := &liveSession{
		session: domain.TradeSession{
			ID:         uuid.NewString(),
			UserID:     identity.UserID,
			Status:     domain.StatusIdle,
			Direction:  direction,
			Asset:      asset,
			Expiration: domain.DefaultExpiration(),
			OpenedAt:   now,
			UpdatedAt:  now,
		},
		ledger: NewBalanceLedger(balance),
	}
	s.sessions[identity.UserID] = ls

	return s.viewLocked(ls), nil
}

func (s *SessionService) Current(userID string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[userID]
	if !ok {
		return SessionView{}, domain.ErrNoActiveSession
	}
	return s.viewLocked(ls), nil
}

// SelectAmount sets the stake. Valid only while idle; a non-positive value
// or one above the displayed balance is rejected without a transition.
func (s *SessionService) SelectAmount(userID string, amount float64) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[userID]
	if !ok {
		return SessionView{}, domain.ErrNoActiveSession
	}
	if ls.session.Status != domain.StatusIdle {
		return s.viewLocked(ls), &domain.StateError{Op: "select amount", Status: ls.session.Status}
	}
	if amount <= 0 {
		return s.viewLocked(ls), domain.NewValidationError("amount", "must be positive")
	}
	if amount > ls.ledger.Displayed() {
		return s.viewLocked(ls), domain.NewValidationError("amount", "exceeds available balance")
	}

	ls.session.Amount = amount
	ls.session.UpdatedAt = s.clock.Now()
	return s.viewLocked(ls), nil
}

// SelectExpiration replaces the expiration tier. Valid only while idle.
func (s *SessionService) SelectExpiration(userID string, label string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[userID]
	if !ok {
		return SessionView{}, domain.ErrNoActiveSession
	}
	if ls.session.Status != domain.StatusIdle {
		return s.viewLocked(ls), &domain.StateError{Op: "select expiration", Status: ls.session.Status}
	}

	opt, found := domain.FindExpiration(label)
	if !found {
		return s.viewLocked(ls), domain.NewValidationError("expiration", "unknown tier")
	}

	ls.session.Expiration = opt
	ls.session.UpdatedAt = s.clock.Now()
	return s.viewLocked(ls), nil
}

// Submit executes the trade. On success the result is held back, the stake
// is optimistically debited and the countdown starts; on failure the
// session reverts to idle with nothing debited.
func (s *SessionService) Submit(ctx context.Context, identity domain.Identity) (SessionView, error) {
	if !identity.Authenticated || identity.UserID == "" {
		return SessionView{}, domain.ErrAuthRequired
	}

	s.mu.Lock()
	ls, ok := s.sessions[identity.UserID]
	if !ok {
		s.mu.Unlock()
		return SessionView{}, domain.ErrNoActiveSession
	}
	if ls.session.Status != domain.StatusIdle {
		view := s.viewLocked(ls)
		s.mu.Unlock()
		return view, &domain.StateError{Op: "submit", Status: ls.session.Status}
	}
	if ls.session.Amount <= 0 {
		view := s.viewLocked(ls)
		s.mu.Unlock()
		return view, domain.NewValidationError("amount", "must be positive")
	}
	if !ls.session.Expiration.AcceptsStake(ls.session.Amount) {
		// The source catalog carries stake bands but never enforced them
		// against the entered amount; keep that behavior and only log.
		s.logger.Debug().
			Str("tier", ls.session.Expiration.Label).
			Float64("amount", ls.session.Amount).
			Msg("stake outside tier band")
	}

	sessionID := ls.session.ID
	ls.session.Status = domain.StatusSubmitting
	ls.session.UpdatedAt = s.clock.Now()
	req := domain.ExecutionRequest{
		UserID:          identity.UserID,
		Direction:       ls.session.Direction,
		Asset:           ls.session.Asset,
		Amount:          ls.session.Amount,
		DurationSeconds: ls.session.Expiration.DurationSeconds,
	}
	s.mu.Unlock()

	result, execErr := s.exec.ExecuteTrade(ctx, req)

	s.mu.Lock()
	ls, ok = s.sessions[identity.UserID]
	if !ok || ls.session.ID != sessionID {
		// Session was closed while the call was in flight; the result is
		// discarded and no debit was ever applied.
		s.mu.Unlock()
		return SessionView{}, domain.ErrNoActiveSession
	}

	if execErr != nil {
		ls.session.Status = domain.StatusIdle
		ls.session.UpdatedAt = s.clock.Now()
		view := s.viewLocked(ls)
		s.mu.Unlock()
		s.logger.Error().Err(execErr).Str("user_id", identity.UserID).Msg("trade execution failed")
		return view, &domain.ExecutionFailure{Err: execErr}
	}

	held := result
	ls.session.PendingResult = &held
	ls.ledger.Debit(ls.session.Amount)
	ls.session.Status = domain.StatusCountingDown
	ls.session.RemainingSeconds = ls.session.Expiration.DurationSeconds
	ls.session.UpdatedAt = s.clock.Now()

	userID := identity.UserID
	cd := NewCountdown(s.clock,
		func(remaining int) { s.noteTick(userID, sessionID, remaining) },
		func() { s.completeCountdown(userID, sessionID) },
	)
	ls.countdown = cd
	duration := ls.session.Expiration.DurationSeconds
	view := s.viewLocked(ls)
	s.mu.Unlock()

	s.logger.Info().
		Str("user_id", userID).
		Str("trade_id", result.TradeID).
		Float64("amount", req.Amount).
		Int("duration", duration).
		Msg("trade submitted")

	// Started outside the lock: the first tick callback re-enters the
	// service. A concurrent cancel/close has already disposed cd, making
	// this a no-op.
	cd.Start(duration)

	return view, nil
}

// Cancel aborts an in-flight countdown, refunds the optimistic debit and
// returns the session to idle. Valid only while counting down.
func (s *SessionService) Cancel(userID string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[userID]
	if !ok {
		return SessionView{}, domain.ErrNoActiveSession
	}
	if ls.session.Status != domain.StatusCountingDown {
		return s.viewLocked(ls), &domain.StateError{Op: "cancel", Status: ls.session.Status}
	}

	if ls.countdown != nil {
		ls.countdown.Dispose()
		ls.countdown = nil
	}
	ls.ledger.Refund()
	ls.session.PendingResult = nil
	ls.session.Amount = 0
	ls.session.RemainingSeconds = 0
	ls.session.Status = domain.StatusIdle
	ls.session.UpdatedAt = s.clock.Now()

	s.logger.Info().Str("user_id", userID).Msg("trade cancelled, stake refunded")
	return s.viewLocked(ls), nil
}

// Close discards the session from any state. A countdown in flight is
// cancelled with the same refund guarantee as Cancel; nothing else is
// credited or debited.
func (s *SessionService) Close(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	s.discardLocked(ls)
	delete(s.sessions, userID)
	return nil
}

// Sweep reaps sessions that have not moved for maxAge. Live countdowns are
// never reaped. Returns the number of sessions removed.
func (s *SessionService) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-maxAge)
	removed := 0
	for userID, ls := range s.sessions {
		if ls.session.Status == domain.StatusCountingDown || ls.session.Status == domain.StatusSubmitting {
			continue
		}
		if ls.session.UpdatedAt.After(cutoff) {
			continue
		}
		s.discardLocked(ls)
		delete(s.sessions, userID)
		removed++
	}
	return removed
}

// noteTick records countdown progress for the session view.
func (s *SessionService) noteTick(userID, sessionID string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[userID]
	if !ok || ls.session.ID != sessionID || ls.session.Status != domain.StatusCountingDown {
		return
	}
	ls.session.RemainingSeconds = remaining
}

// completeCountdown applies the settlement exactly once. A second
// invocation finds no pending result and is a no-op, never a crash.
func (s *SessionService) completeCountdown(userID, sessionID string) {
	s.mu.Lock()

	ls, ok := s.sessions[userID]
	if !ok || ls.session.ID != sessionID || ls.session.Status != domain.StatusCountingDown {
		s.mu.Unlock()
		return
	}

	pending := ls.session.PendingResult
	if pending == nil {
		s.mu.Unlock()
		return
	}
	ls.session.PendingResult = nil
	ls.session.AppliedResult = pending
	ls.ledger.Settle(*pending)
	ls.session.Status = domain.StatusSettled
	ls.session.RemainingSeconds = 0
	ls.session.UpdatedAt = s.clock.Now()

	raw, _ := json.Marshal(pending)
	record := domain.SettledTrade{
		TradeID:           pending.TradeID,
		UserID:            userID,
		Symbol:            ls.session.Asset.Symbol,
		Direction:         ls.session.Direction,
		Outcome:           pending.Outcome,
		Amount:            pending.Amount,
		ReturnedAmount:    pending.ReturnedAmount,
		ProfitLossAmount:  pending.ProfitLossAmount,
		ProfitLossPercent: pending.ProfitLossPercent,
		DurationSeconds:   ls.session.Expiration.DurationSeconds,
		RawResult:         raw,
		SettledAt:         ls.session.UpdatedAt,
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("user_id", userID).
		Str("trade_id", record.TradeID).
		Str("outcome", string(record.Outcome)).
		Msg("trade settled")

	if s.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.journal.RecordTrade(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("trade_id", record.TradeID).Msg("journal write failed")
		}
	}

	go s.refreshBalance(userID, sessionID)
}

// refreshBalance re-reads the authoritative balance after settlement to
// correct any drift between the applied result and the server.
func (s *SessionService) refreshBalance(userID, sessionID string) {
	b := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}

	for attempt := 0; attempt < 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		balance, err := s.accounts.Balance(ctx, userID)
		cancel()

		if err == nil {
			s.mu.Lock()
			if ls, ok := s.sessions[userID]; ok && ls.session.ID == sessionID {
				ls.ledger.Seed(balance)
			}
			s.mu.Unlock()
			return
		}

		s.logger.Warn().Err(err).Str("user_id", userID).Msg("post-settlement balance refresh failed")
		<-s.clock.After(b.Duration())
	}
}

// discardLocked disposes a session, honoring the cancel refund guarantee
// for an in-flight countdown.
func (s *SessionService) discardLocked(ls *liveSession) {
	if ls.countdown != nil {
		ls.countdown.Dispose()
		ls.countdown = nil
	}
	if ls.session.Status == domain.StatusCountingDown {
		ls.ledger.Refund()
		ls.session.PendingResult = nil
		ls.session.Status = domain.StatusCancelled
	}
}

func (s *SessionService) viewLocked(ls *liveSession) SessionView {
	view := SessionView{
		ID:               ls.session.ID,
		UserID:           ls.session.UserID,
		Status:           ls.session.Status,
		Direction:        ls.session.Direction,
		Asset:            ls.session.Asset,
		Amount:           ls.session.Amount,
		Expiration:       ls.session.Expiration,
		RemainingSeconds: ls.session.RemainingSeconds,
		Balance:          ls.ledger.Displayed(),
		OpenedAt:         ls.session.OpenedAt,
		UpdatedAt:        ls.session.UpdatedAt,
	}
	if ls.session.Amount > 0 {
		view.EstimatedIncome = ls.session.Expiration.EstimatedIncome(ls.session.Amount)
	}
	if ls.session.AppliedResult != nil {
		applied := *ls.session.AppliedResult
		view.Result = &applied
	}
	return view
}
