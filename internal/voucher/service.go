package voucher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/koffiee-storefront/internal/pricing"
)

var (
	// ErrInvalidCode indicates no rule carries the entered code.
	ErrInvalidCode = errors.New("voucher code invalid or expired")
	// ErrDiscountNotFound indicates the selected listed discount does not exist.
	ErrDiscountNotFound = errors.New("discount not found")
	// ErrMinimumPurchase is wrapped by MinimumPurchaseError.
	ErrMinimumPurchase = errors.New("minimum purchase not met")
)

// MinimumPurchaseError reports the subtotal required by a rule.
type MinimumPurchaseError struct {
	Required pricing.Money
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase %s not met", pricing.FormatRupiah(e.Required))
}

// Unwrap exposes ErrMinimumPurchase to errors.Is.
func (e *MinimumPurchaseError) Unwrap() error {
	return ErrMinimumPurchase
}

// Resolver validates code and listed-discount selections.
type Resolver struct {
	Rules []Rule
}

// ApplyCode looks up code case-insensitively. An empty code returns a nil
// rule and no error, which clears the active discount.
func (r Resolver) ApplyCode(code string, subtotal pricing.Money) (*Rule, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	for _, rule := range r.Rules {
		if rule.Listed() || !strings.EqualFold(strings.TrimSpace(rule.Code), code) {
			continue
		}
		return checkMinimum(rule, subtotal)
	}
	return nil, ErrInvalidCode
}

// SelectListed activates the listed discount with id.
func (r Resolver) SelectListed(id int64, subtotal pricing.Money) (*Rule, error) {
	for _, rule := range r.Rules {
		if rule.ID != id || !rule.Listed() {
			continue
		}
		return checkMinimum(rule, subtotal)
	}
	return nil, fmt.Errorf("%w: %d", ErrDiscountNotFound, id)
}

// Revalidate re-reads active from the current rules and checks its minimum
// against subtotal. A code rule only matches while it still carries the same
// code.
func (r Resolver) Revalidate(active Rule, subtotal pricing.Money) (*Rule, error) {
	for _, rule := range r.Rules {
		if rule.ID != active.ID || rule.Listed() != active.Listed() {
			continue
		}
		if !rule.Listed() && !strings.EqualFold(strings.TrimSpace(rule.Code), strings.TrimSpace(active.Code)) {
			continue
		}
		return checkMinimum(rule, subtotal)
	}
	return nil, fmt.Errorf("%w: %d", ErrDiscountNotFound, active.ID)
}

// Listed returns the discounts offered without a code.
func (r Resolver) Listed() []Rule {
	out := make([]Rule, 0, len(r.Rules))
	for _, rule := range r.Rules {
		if rule.Listed() {
			out = append(out, rule)
		}
	}
	return out
}

func checkMinimum(rule Rule, subtotal pricing.Money) (*Rule, error) {
	if subtotal < rule.MinPurchase {
		return nil, &MinimumPurchaseError{Required: rule.MinPurchase}
	}
	matched := rule
	return &matched, nil
}
