package session

import (
	"github.com/noah-isme/koffiee-storefront/internal/cart"
	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// Lookup resolves menu items by id.
type Lookup interface {
	Lookup(id int64) (catalog.MenuItem, bool)
}

// Env carries the read-only inputs a transition is evaluated against.
type Env struct {
	Catalog    Lookup
	Promoter   cart.Promoter
	Resolver   voucher.Resolver
	Calculator voucher.Calculator
}

// State is the complete storefront state of one shopper.
type State struct {
	Cart           cart.Cart     `json:"cart"`
	PromoCode      string        `json:"promo_code,omitempty"`
	ActiveDiscount *voucher.Rule `json:"active_discount,omitempty"`
	DiscountError  string        `json:"discount_error,omitempty"`
}

// Discount returns the amount granted by the active discount.
func (s State) Discount(calc voucher.Calculator) pricing.Money {
	return calc.Discount(s.ActiveDiscount, s.Cart)
}

// Summary prices the cart with the active discount applied.
func (s State) Summary(calc voucher.Calculator) pricing.Summary {
	return pricing.Summarize(s.Cart.PricingItems(), s.Discount(calc))
}

// Empty reports whether the cart has no lines.
func (s State) Empty() bool {
	return len(s.Cart) == 0
}

func (s State) clone() State {
	out := s
	out.Cart = append(cart.Cart(nil), s.Cart...)
	if s.ActiveDiscount != nil {
		rule := *s.ActiveDiscount
		out.ActiveDiscount = &rule
	}
	return out
}
