package pricing

import (
	"sort"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units (rupiah).
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}

// LineTotal returns price multiplied by quantity.
func LineTotal(price Money, qty int) Money {
	return price * Money(qty)
}

// UnitPrice returns the base price plus every selected extra.
func UnitPrice(base Money, extras []Money) Money {
	price := base
	for _, e := range extras {
		price += e
	}
	return price
}

// CartKey builds the identity of a cart configuration from the item and the
// set of selected extras. Selection order does not matter.
func CartKey(itemID int64, extraIDs []int64) string {
	ids := append([]int64(nil), extraIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strconv.FormatInt(itemID, 10) + ":" + strings.Join(parts, ",")
}

// Subtotal sums every line, including zero priced ones.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += LineTotal(it.UnitPrice, it.Qty)
	}
	return subtotal
}

// Summarize composes subtotal and discount into the payable total. The total
// never drops below zero.
func Summarize(items []Item, discount Money) Summary {
	subtotal := Subtotal(items)
	if discount < 0 {
		discount = 0
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}
