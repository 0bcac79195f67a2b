package voucher

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/koffiee-storefront/internal/cart"
)

func sampleLines() cart.Cart {
	return cart.Cart{
		{Key: "1:", ItemID: 1, CategoryID: 10, Quantity: 2, Price: 20_000},
		{Key: "2:", ItemID: 2, CategoryID: 20, Quantity: 1, Price: 15_000},
		{Key: "free:0:2", ItemID: 2, CategoryID: 20, Quantity: 1, Price: 0, IsFree: true},
	}
}

func TestDiscountNoRule(t *testing.T) {
	if got := (Calculator{}).Discount(nil, sampleLines()); got != 0 {
		t.Fatalf("expected 0 discount, got %d", got)
	}
}

func TestNominalCappedBySubtotal(t *testing.T) {
	rule := &Rule{Type: KindNominal, Value: decimal.NewFromInt(50_000)}
	lines := cart.Cart{{Key: "1:", ItemID: 1, Quantity: 1, Price: 30_000}}
	if got := (Calculator{Nominal: NominalCapped}).Discount(rule, lines); got != 30_000 {
		t.Fatalf("expected 30000 discount, got %d", got)
	}
	if got := (Calculator{Nominal: NominalUncapped}).Discount(rule, lines); got != 50_000 {
		t.Fatalf("expected uncapped 50000 discount, got %d", got)
	}
}

func TestPercentageRespectsMaxDiscount(t *testing.T) {
	rule := &Rule{Type: KindPercentage, Value: decimal.NewFromInt(20), MaxDiscount: 10_000}
	lines := cart.Cart{{Key: "1:", ItemID: 1, Quantity: 5, Price: 20_000}}
	if got := (Calculator{}).Discount(rule, lines); got != 10_000 {
		t.Fatalf("expected capped 10000 discount, got %d", got)
	}
}

func TestPercentageWithoutCap(t *testing.T) {
	rule := &Rule{Type: KindPercentage, Value: decimal.NewFromInt(10)}
	if got := (Calculator{}).Discount(rule, sampleLines()); got != 5_500 {
		t.Fatalf("expected 5500 discount, got %d", got)
	}
}

func TestPercentageFloorsFractions(t *testing.T) {
	rule := &Rule{Type: KindPercentage, Value: decimal.RequireFromString("12.5")}
	lines := cart.Cart{{Key: "1:", ItemID: 1, Quantity: 1, Price: 10_001}}
	if got := (Calculator{}).Discount(rule, lines); got != 1_250 {
		t.Fatalf("expected floored 1250 discount, got %d", got)
	}
}

func TestCategoryRestriction(t *testing.T) {
	rule := &Rule{Type: KindPercentage, Value: decimal.NewFromInt(50), CategoryID: 20}
	if got := (Calculator{}).Discount(rule, sampleLines()); got != 7_500 {
		t.Fatalf("expected 7500 scoped discount, got %d", got)
	}

	missing := &Rule{Type: KindNominal, Value: decimal.NewFromInt(5_000), CategoryID: 99}
	if got := (Calculator{Nominal: NominalUncapped}).Discount(missing, sampleLines()); got != 0 {
		t.Fatalf("expected no discount outside category, got %d", got)
	}
}

func TestNominalScopedCap(t *testing.T) {
	rule := &Rule{Type: KindNominal, Value: decimal.NewFromInt(20_000), CategoryID: 20}
	if got := (Calculator{}).Discount(rule, sampleLines()); got != 15_000 {
		t.Fatalf("expected discount capped to category subtotal, got %d", got)
	}
}

func TestUnknownKindGrantsNothing(t *testing.T) {
	rule := &Rule{Type: Kind("bogo"), Value: decimal.NewFromInt(10)}
	if got := (Calculator{}).Discount(rule, sampleLines()); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestParseNominalPolicy(t *testing.T) {
	cases := map[string]NominalPolicy{"": NominalCapped, "capped": NominalCapped, " Uncapped ": NominalUncapped}
	for in, want := range cases {
		got, err := ParseNominalPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseNominalPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseNominalPolicy("sometimes"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
