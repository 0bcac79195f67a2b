package cart

import (
	"errors"
	"fmt"

	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
)

var (
	// ErrInvalidQuantity is returned when a non-positive quantity is added.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrLineNotFound indicates no user line carries the requested key.
	ErrLineNotFound = errors.New("cart line not found")
)

// MaxLineQuantity caps the units held on a single user line.
const MaxLineQuantity = 99

// Line is one entry in the working cart.
type Line struct {
	Key        string          `json:"key"`
	ItemID     int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Emoji      string          `json:"emoji,omitempty"`
	CategoryID int64           `json:"category_id"`
	Quantity   int             `json:"quantity"`
	Price      pricing.Money   `json:"price"`
	Extras     []catalog.Extra `json:"extras,omitempty"`
	IsFree     bool            `json:"is_free"`
	PromoName  string          `json:"promo_name,omitempty"`
}

// Total returns price times quantity for the line.
func (l Line) Total() pricing.Money {
	return pricing.LineTotal(l.Price, l.Quantity)
}

// Promoter derives promotional free lines from the user lines of a cart.
// Implementations must discard free lines already present in the input.
type Promoter interface {
	Recompute(c Cart) Cart
}

// Cart is an ordered list of lines. Operations never mutate the receiver;
// they return a new cart.
type Cart []Line

// Add puts qty units of item with the selected extras into the cart. A user
// line with the same configuration is incremented, up to MaxLineQuantity, and
// keeps its stored price.
func (c Cart) Add(item catalog.MenuItem, qty int, extras []catalog.Extra, p Promoter) (Cart, error) {
	if qty <= 0 {
		return c.clone(), fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}
	extraIDs := make([]int64, 0, len(extras))
	extraPrices := make([]pricing.Money, 0, len(extras))
	for _, e := range extras {
		extraIDs = append(extraIDs, e.ID)
		extraPrices = append(extraPrices, e.Price)
	}
	key := pricing.CartKey(item.ID, extraIDs)

	next := c.clone()
	for i := range next {
		if next[i].Key == key && !next[i].IsFree {
			next[i].Quantity = clampQuantity(next[i].Quantity + qty)
			return recompute(next, p), nil
		}
	}
	next = append(next, Line{
		Key:        key,
		ItemID:     item.ID,
		Name:       item.Name,
		Emoji:      item.Emoji,
		CategoryID: item.CategoryID,
		Quantity:   clampQuantity(qty),
		Price:      pricing.UnitPrice(item.Price, extraPrices),
		Extras:     append([]catalog.Extra(nil), extras...),
	})
	return recompute(next, p), nil
}

// Remove deletes the user line with key.
func (c Cart) Remove(key string, p Promoter) (Cart, error) {
	idx := c.userLine(key)
	if idx < 0 {
		return c.clone(), fmt.Errorf("%w: %s", ErrLineNotFound, key)
	}
	next := make(Cart, 0, len(c))
	next = append(next, c[:idx]...)
	next = append(next, c[idx+1:]...)
	return recompute(next.clone(), p), nil
}

// SetQuantity replaces the quantity of the user line with key. Values are
// clamped to [1, MaxLineQuantity].
func (c Cart) SetQuantity(key string, qty int, p Promoter) (Cart, error) {
	idx := c.userLine(key)
	if idx < 0 {
		return c.clone(), fmt.Errorf("%w: %s", ErrLineNotFound, key)
	}
	next := c.clone()
	next[idx].Quantity = clampQuantity(qty)
	return recompute(next, p), nil
}

// Recompute rebuilds the promotional lines from the user lines.
func (c Cart) Recompute(p Promoter) Cart {
	return recompute(c.clone(), p)
}

// Line returns the user line stored under key.
func (c Cart) Line(key string) (Line, bool) {
	idx := c.userLine(key)
	if idx < 0 {
		return Line{}, false
	}
	return c[idx], true
}

// PaidLines returns the user lines, dropping promotional grants.
func (c Cart) PaidLines() Cart {
	out := make(Cart, 0, len(c))
	for _, l := range c {
		if !l.IsFree {
			out = append(out, cloneLine(l))
		}
	}
	return out
}

// FreeLines returns only promotional grants.
func (c Cart) FreeLines() Cart {
	out := make(Cart, 0)
	for _, l := range c {
		if l.IsFree {
			out = append(out, cloneLine(l))
		}
	}
	return out
}

// PricingItems converts lines into pricing input.
func (c Cart) PricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(c))
	for _, l := range c {
		items = append(items, pricing.Item{Qty: l.Quantity, UnitPrice: l.Price})
	}
	return items
}

// Subtotal sums every line. Free lines contribute zero.
func (c Cart) Subtotal() pricing.Money {
	return pricing.Subtotal(c.PricingItems())
}

// Quantity returns the number of units across all lines.
func (c Cart) Quantity() int {
	n := 0
	for _, l := range c {
		n += l.Quantity
	}
	return n
}

func clampQuantity(qty int) int {
	switch {
	case qty < 1:
		return 1
	case qty > MaxLineQuantity:
		return MaxLineQuantity
	}
	return qty
}

func (c Cart) userLine(key string) int {
	for i, l := range c {
		if l.Key == key && !l.IsFree {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	out := make(Cart, len(c))
	for i, l := range c {
		out[i] = cloneLine(l)
	}
	return out
}

func cloneLine(l Line) Line {
	if l.Extras != nil {
		l.Extras = append([]catalog.Extra(nil), l.Extras...)
	}
	return l
}

func recompute(c Cart, p Promoter) Cart {
	if p == nil {
		return c.PaidLines()
	}
	return p.Recompute(c)
}
