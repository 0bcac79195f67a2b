package voucher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/koffiee-storefront/internal/cart"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
)

// Kind distinguishes fixed-amount from percentage discounts.
type Kind string

const (
	KindNominal    Kind = "nominal"
	KindPercentage Kind = "percentage"
)

// NominalPolicy controls whether a fixed-amount discount may exceed the
// applicable subtotal.
type NominalPolicy int

const (
	// NominalCapped limits a nominal discount to the applicable subtotal.
	NominalCapped NominalPolicy = iota
	// NominalUncapped applies the nominal value as-is; the payable total is
	// still floored at zero.
	NominalUncapped
)

// ErrUnknownPolicy is returned for unrecognised policy names.
var ErrUnknownPolicy = errors.New("unknown nominal policy")

// ParseNominalPolicy maps configuration values to a policy. Empty means capped.
func ParseNominalPolicy(value string) (NominalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "capped":
		return NominalCapped, nil
	case "uncapped":
		return NominalUncapped, nil
	default:
		return NominalCapped, fmt.Errorf("%w: %q", ErrUnknownPolicy, value)
	}
}

func (p NominalPolicy) String() string {
	if p == NominalUncapped {
		return "uncapped"
	}
	return "capped"
}

// Rule is a discount definition. Rules without a code are offered for
// direct selection. Zero MaxDiscount and CategoryID mean "no cap" and
// "whole cart".
type Rule struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code,omitempty"`
	Type        Kind            `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MaxDiscount pricing.Money   `json:"max_discount,omitempty"`
	CategoryID  int64           `json:"category_id,omitempty"`
	MinPurchase pricing.Money   `json:"min_purchase"`
}

// Listed reports whether the rule is offered without a code.
func (r Rule) Listed() bool {
	return strings.TrimSpace(r.Code) == ""
}

// Calculator computes the discount granted by the active rule.
type Calculator struct {
	Nominal NominalPolicy
}

// ApplicableSubtotal returns the part of the cart the rule may discount.
func ApplicableSubtotal(r Rule, lines cart.Cart) pricing.Money {
	if r.CategoryID == 0 {
		return lines.Subtotal()
	}
	var total pricing.Money
	for _, l := range lines {
		if l.CategoryID == r.CategoryID {
			total += l.Total()
		}
	}
	return total
}

// Discount returns the amount taken off the cart by rule. A nil rule grants
// nothing.
func (c Calculator) Discount(r *Rule, lines cart.Cart) pricing.Money {
	if r == nil {
		return 0
	}
	applicable := ApplicableSubtotal(*r, lines)
	if applicable <= 0 {
		return 0
	}
	var discount pricing.Money
	switch r.Type {
	case KindNominal:
		discount = r.Value.Floor().IntPart()
		if c.Nominal == NominalCapped && discount > applicable {
			discount = applicable
		}
	case KindPercentage:
		discount = decimal.NewFromInt(applicable).
			Mul(r.Value).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if r.MaxDiscount > 0 && discount > r.MaxDiscount {
			discount = r.MaxDiscount
		}
		if discount > applicable {
			discount = applicable
		}
	default:
		return 0
	}
	if discount < 0 {
		return 0
	}
	return discount
}
