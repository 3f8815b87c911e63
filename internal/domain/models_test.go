package domain

import "testing"

func TestDerivePricing(t *testing.T) {
	cases := []struct {
		capital int64
		qty     int
		srp     int64
	}{
		{10000, 3, 13000},
		{24500, 120, 31850},
		{15, 1, 20},  // 19.5 rounds up
		{11, 2, 14},  // 14.3 rounds down
		{0, 10, 0},
	}
	for _, tc := range cases {
		p := Product{Quantity: tc.qty, CapitalCents: tc.capital}
		p.DerivePricing()
		if p.SRPCents != tc.srp {
			t.Fatalf("capital %d: expected srp %d, got %d", tc.capital, tc.srp, p.SRPCents)
		}
		if p.TotalCapitalCents != int64(tc.qty)*tc.capital {
			t.Fatalf("capital %d: expected total %d, got %d", tc.capital, int64(tc.qty)*tc.capital, p.TotalCapitalCents)
		}
	}
}

func TestCartMergesLines(t *testing.T) {
	var cart Cart

	if !cart.Empty() {
		t.Fatalf("new cart should be empty")
	}

	if got := cart.AddLine("prod-a", 2); got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
	if got := cart.AddLine("prod-b", 1); got != 1 {
		t.Fatalf("expected quantity 1, got %d", got)
	}
	if got := cart.AddLine("prod-a", 3); got != 5 {
		t.Fatalf("expected merged quantity 5, got %d", got)
	}

	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Lines))
	}
	if cart.TotalItems() != 6 {
		t.Fatalf("expected 6 total items, got %d", cart.TotalItems())
	}
	if cart.Empty() {
		t.Fatalf("cart with lines should not be empty")
	}
}
