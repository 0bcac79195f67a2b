package promo

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/cart"
	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
)

// TypeBuyXGetY is the only automated promotion kind currently published.
const TypeBuyXGetY = "buy_x_get_y"

// Rule is an automated promotion. GetItemID zero means the reward is the
// trigger item itself.
type Rule struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	BuyItemID   int64         `json:"buy_item_id"`
	BuyQty      int           `json:"buy_qty"`
	GetItemID   int64         `json:"get_item_id,omitempty"`
	GetQty      int           `json:"get_qty"`
	MinPurchase pricing.Money `json:"min_purchase"`
}

// RewardItemID resolves the item granted by the rule.
func (r Rule) RewardItemID() int64 {
	if r.GetItemID != 0 {
		return r.GetItemID
	}
	return r.BuyItemID
}

// Lookup resolves menu items by id.
type Lookup interface {
	Lookup(id int64) (catalog.MenuItem, bool)
}

// Engine derives free lines from the configured rules. It satisfies
// cart.Promoter.
type Engine struct {
	Rules   []Rule
	Catalog Lookup
	Logger  zerolog.Logger
}

// NewEngine constructs an engine with a no-op logger.
func NewEngine(rules []Rule, lookup Lookup) *Engine {
	return &Engine{Rules: append([]Rule(nil), rules...), Catalog: lookup, Logger: zerolog.Nop()}
}

// Recompute strips previously granted lines and appends one free line per
// satisfied rule, in rule order.
func (e *Engine) Recompute(c cart.Cart) cart.Cart {
	out := c.PaidLines()
	if e == nil || len(e.Rules) == 0 {
		return out
	}
	paid := out
	subtotal := paid.Subtotal()
	for idx, rule := range e.Rules {
		line, ok := e.grant(idx, rule, paid, subtotal)
		if ok {
			out = append(out, line)
		}
	}
	return out
}

func (e *Engine) grant(idx int, rule Rule, paid cart.Cart, subtotal pricing.Money) (cart.Line, bool) {
	if rule.Type != TypeBuyXGetY || rule.BuyQty <= 0 {
		return cart.Line{}, false
	}
	trigger, ok := firstLineFor(paid, rule.BuyItemID)
	if !ok || trigger.Quantity < rule.BuyQty || subtotal < rule.MinPurchase {
		return cart.Line{}, false
	}
	freeQty := (trigger.Quantity / rule.BuyQty) * rule.GetQty
	if freeQty <= 0 {
		return cart.Line{}, false
	}
	var (
		reward catalog.MenuItem
		found  bool
	)
	if e.Catalog != nil {
		reward, found = e.Catalog.Lookup(rule.RewardItemID())
	}
	if !found {
		e.Logger.Debug().
			Str("promo", rule.Name).
			Int64("reward_item_id", rule.RewardItemID()).
			Msg("promo_reward_unresolved")
		return cart.Line{}, false
	}
	return cart.Line{
		Key:        "free:" + strconv.Itoa(idx) + ":" + strconv.FormatInt(reward.ID, 10),
		ItemID:     reward.ID,
		Name:       reward.Name,
		Emoji:      reward.Emoji,
		CategoryID: reward.CategoryID,
		Quantity:   freeQty,
		Price:      0,
		IsFree:     true,
		PromoName:  rule.Name,
	}, true
}

// firstLineFor returns the first user line for itemID. Lines of the same item
// with different extras are not aggregated.
func firstLineFor(c cart.Cart, itemID int64) (cart.Line, bool) {
	for _, l := range c {
		if l.ItemID == itemID && !l.IsFree {
			return l, true
		}
	}
	return cart.Line{}, false
}
