package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// Action is a user intent applied to a State.
type Action interface {
	apply(env Env, s State) (State, error)
}

// AddItem adds Quantity units of a menu item with the given extras.
type AddItem struct {
	ItemID   int64
	Quantity int
	ExtraIDs []int64
}

// RemoveLine removes a user line.
type RemoveLine struct {
	Key string
}

// SetQuantity changes the quantity of a user line.
type SetQuantity struct {
	Key      string
	Quantity int
}

// ApplyCode activates the discount carrying Code. An empty code clears it.
type ApplyCode struct {
	Code string
}

// SelectDiscount activates a listed discount and forgets any entered code.
type SelectDiscount struct {
	ID int64
}

// ClearDiscount drops the active discount.
type ClearDiscount struct{}

// Reset empties the cart and discount, e.g. after an order was accepted.
type Reset struct{}

// Refresh re-evaluates the free lines and the active discount against the
// current environment. A discount that disappeared is dropped; one whose
// minimum is no longer met is dropped with DiscountError set.
type Refresh struct{}

// DiscountError reports a rejected discount. The state returned alongside it
// records the rejection and must be kept.
type DiscountError struct {
	Message string
	Err     error
}

func (e *DiscountError) Error() string {
	return e.Message
}

// Unwrap exposes the resolver error.
func (e *DiscountError) Unwrap() error {
	return e.Err
}

// Apply evaluates action against state. The input state is never modified.
// Except for *DiscountError, a non-nil error means the returned state equals
// the input.
func Apply(env Env, s State, action Action) (State, error) {
	if action == nil {
		return s.clone(), errors.New("session: nil action")
	}
	return action.apply(env, s.clone())
}

func (a AddItem) apply(env Env, s State) (State, error) {
	if env.Catalog == nil {
		return s, fmt.Errorf("%w: %d", catalog.ErrItemNotFound, a.ItemID)
	}
	item, ok := env.Catalog.Lookup(a.ItemID)
	if !ok {
		return s, fmt.Errorf("%w: %d", catalog.ErrItemNotFound, a.ItemID)
	}
	extras, err := catalog.ResolveExtras(item, a.ExtraIDs)
	if err != nil {
		return s, err
	}
	next, err := s.Cart.Add(item, a.Quantity, extras, env.Promoter)
	if err != nil {
		return s, err
	}
	s.Cart = next
	return s, nil
}

func (a RemoveLine) apply(env Env, s State) (State, error) {
	next, err := s.Cart.Remove(a.Key, env.Promoter)
	if err != nil {
		return s, err
	}
	s.Cart = next
	return s, nil
}

func (a SetQuantity) apply(env Env, s State) (State, error) {
	next, err := s.Cart.SetQuantity(a.Key, a.Quantity, env.Promoter)
	if err != nil {
		return s, err
	}
	s.Cart = next
	return s, nil
}

func (a ApplyCode) apply(env Env, s State) (State, error) {
	code := strings.TrimSpace(a.Code)
	s.PromoCode = code
	s.DiscountError = ""
	rule, err := env.Resolver.ApplyCode(code, s.Cart.Subtotal())
	if err != nil {
		s.ActiveDiscount = nil
		s.DiscountError = discountMessage(err)
		return s, &DiscountError{Message: s.DiscountError, Err: err}
	}
	s.ActiveDiscount = rule
	return s, nil
}

func (a SelectDiscount) apply(env Env, s State) (State, error) {
	rule, err := env.Resolver.SelectListed(a.ID, s.Cart.Subtotal())
	if errors.Is(err, voucher.ErrDiscountNotFound) {
		return s, err
	}
	s.PromoCode = ""
	s.DiscountError = ""
	if err != nil {
		s.ActiveDiscount = nil
		s.DiscountError = discountMessage(err)
		return s, &DiscountError{Message: s.DiscountError, Err: err}
	}
	s.ActiveDiscount = rule
	return s, nil
}

func (ClearDiscount) apply(_ Env, s State) (State, error) {
	s.ActiveDiscount = nil
	s.PromoCode = ""
	s.DiscountError = ""
	return s, nil
}

func (Refresh) apply(env Env, s State) (State, error) {
	s.Cart = s.Cart.Recompute(env.Promoter)
	if s.ActiveDiscount == nil {
		return s, nil
	}
	rule, err := env.Resolver.Revalidate(*s.ActiveDiscount, s.Cart.Subtotal())
	switch {
	case errors.Is(err, voucher.ErrDiscountNotFound):
		s.ActiveDiscount = nil
		s.PromoCode = ""
	case err != nil:
		s.ActiveDiscount = nil
		s.DiscountError = discountMessage(err)
	default:
		s.ActiveDiscount = rule
	}
	return s, nil
}

func (Reset) apply(_ Env, _ State) (State, error) {
	return State{}, nil
}

func discountMessage(err error) string {
	var minErr *voucher.MinimumPurchaseError
	switch {
	case errors.As(err, &minErr):
		return fmt.Sprintf("Minimal belanja %s untuk voucher ini.", pricing.FormatRupiah(minErr.Required))
	case errors.Is(err, voucher.ErrInvalidCode):
		return "Kode voucher tidak valid atau sudah kadaluarsa."
	default:
		return "Voucher tidak dapat digunakan."
	}
}
