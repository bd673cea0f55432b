package usecase

import (
	"testing"

	"timed_trading_server/internal/domain"
)

func TestLedgerDebitAndRefund(t *testing.T) {
	ledger := NewBalanceLedger(1000)

	if !ledger.Debit(100) {
		t.Fatalf("debit rejected")
	}
	if got := ledger.Displayed(); got != 900 {
		t.Fatalf("expected 900 after debit, got %f", got)
	}

	if ledger.Debit(50) {
		t.Fatalf("second outstanding debit must be rejected")
	}

	ledger.Refund()
	if got := ledger.Displayed(); got != 1000 {
		t.Fatalf("expected exact restore to 1000, got %f", got)
	}
}

func TestLedgerSettleWin(t *testing.T) {
	ledger := NewBalanceLedger(1000)
	ledger.Debit(100)

	got := ledger.Settle(domain.TradeResult{
		Outcome:        domain.OutcomeWin,
		Amount:         100,
		ReturnedAmount: 112,
	})
	if got != 1012 {
		t.Fatalf("expected 1012 after win settlement, got %f", got)
	}
}

func TestLedgerSettleLose(t *testing.T) {
	ledger := NewBalanceLedger(1000)
	ledger.Debit(100)

	got := ledger.Settle(domain.TradeResult{
		Outcome: domain.OutcomeLose,
		Amount:  100,
	})
	if got != 900 {
		t.Fatalf("expected 900 after losing settlement, got %f", got)
	}
}

func TestLedgerSettleServerBalanceWins(t *testing.T) {
	ledger := NewBalanceLedger(1000)
	ledger.Debit(100)

	server := 955.5
	got := ledger.Settle(domain.TradeResult{
		Outcome:        domain.OutcomeWin,
		Amount:         100,
		ReturnedAmount: 112,
		NewBalance:     &server,
	})
	if got != 955.5 {
		t.Fatalf("authoritative new balance should win, got %f", got)
	}
}

func TestLedgerSeedKeepsPendingDebit(t *testing.T) {
	ledger := NewBalanceLedger(1000)
	ledger.Debit(100)

	ledger.Seed(2000)
	if got := ledger.Displayed(); got != 1900 {
		t.Fatalf("seed must keep the outstanding debit, got %f", got)
	}
}
