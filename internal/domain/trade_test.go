package domain

import (
	"math"
	"testing"
)

func TestExpirationCatalogOrdering(t *testing.T) {
	opts := ExpirationOptions()
	if len(opts) != 6 {
		t.Fatalf("expected 6 expiration tiers, got %d", len(opts))
	}

	for i := 1; i < len(opts); i++ {
		if opts[i].DurationSeconds <= opts[i-1].DurationSeconds {
			t.Fatalf("tier %q duration not increasing", opts[i].Label)
		}
		if opts[i].MinStake < opts[i-1].MinStake || opts[i].MaxStake < opts[i-1].MaxStake {
			t.Fatalf("tier %q stake band not increasing", opts[i].Label)
		}
	}
}

func TestStakeBandsHalfOpen(t *testing.T) {
	opt, ok := FindExpiration("30s")
	if !ok {
		t.Fatalf("30s tier missing")
	}

	if !opt.AcceptsStake(500) {
		t.Fatalf("min stake should be inclusive")
	}
	if opt.AcceptsStake(5000) {
		t.Fatalf("max stake should be exclusive")
	}
	if opt.AcceptsStake(499.99) {
		t.Fatalf("below-band stake accepted")
	}

	// The shared boundary belongs to the next tier.
	next, ok := FindExpiration("60s")
	if !ok {
		t.Fatalf("60s tier missing")
	}
	if !next.AcceptsStake(5000) {
		t.Fatalf("boundary stake should belong to the higher tier")
	}
}

func TestEstimatedIncome(t *testing.T) {
	opt := DefaultExpiration()
	if opt.PayoutPercent != 12 {
		t.Fatalf("unexpected default payout: %f", opt.PayoutPercent)
	}

	income := opt.EstimatedIncome(100)
	if math.Abs(income-112) > 1e-9 {
		t.Fatalf("expected income 112, got %f", income)
	}
}

func TestFindExpirationUnknownLabel(t *testing.T) {
	if _, ok := FindExpiration("45s"); ok {
		t.Fatalf("unknown label should not resolve")
	}
}
