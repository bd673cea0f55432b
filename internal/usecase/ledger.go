package usecase

import (
	"github.com/shopspring/decimal"

	"timed_trading_server/internal/domain"
)

// BalanceLedger keeps the displayed balance consistent across optimistic
// local edits and server-confirmed state. The displayed value is always the
// last authoritative server balance minus at most one outstanding stake
// debit; settlement folds that debit in exactly once.
type BalanceLedger struct {
	server     decimal.Decimal
	pending    decimal.Decimal
	hasPending bool
}

func NewBalanceLedger(initial float64) *BalanceLedger {
	return &BalanceLedger{server: decimal.NewFromFloat(initial)}
}

// Displayed is the balance shown to the user.
func (l *BalanceLedger) Displayed() float64 {
	if l.hasPending {
		return l.server.Sub(l.pending).InexactFloat64()
	}
	return l.server.InexactFloat64()
}

// Seed replaces the authoritative server value, keeping any outstanding
// debit. Used at session open and by the post-settlement refresh.
func (l *BalanceLedger) Seed(balance float64) {
	l.server = decimal.NewFromFloat(balance)
}

// Debit applies the optimistic stake deduction. Only one debit may be
// outstanding at a time.
func (l *BalanceLedger) Debit(amount float64) bool {
	if l.hasPending {
		return false
	}
	l.pending = decimal.NewFromFloat(amount)
	l.hasPending = true
	return true
}

// Refund cancels the outstanding debit, restoring the pre-submit balance.
func (l *BalanceLedger) Refund() {
	l.pending = decimal.Zero
	l.hasPending = false
}

// Settle folds the outstanding debit and the trade outcome into the server
// balance. When the remote result carries an authoritative new balance it
// wins; otherwise the stake stays deducted and a win credits the returned
// amount. The debit is cleared either way, so the stake is never counted
// twice.
func (l *BalanceLedger) Settle(result domain.TradeResult) float64 {
	if result.NewBalance != nil {
		l.server = decimal.NewFromFloat(*result.NewBalance)
		l.Refund()
		return l.Displayed()
	}

	if l.hasPending {
		l.server = l.server.Sub(l.pending)
	}
	if result.Outcome == domain.OutcomeWin {
		l.server = l.server.Add(decimal.NewFromFloat(result.ReturnedAmount))
	}
	l.Refund()
	return l.Displayed()
}
