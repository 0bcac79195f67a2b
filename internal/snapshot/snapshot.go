package snapshot

import (
	"time"

	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/promo"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// Snapshot is the read-only data a storefront session is evaluated against.
type Snapshot struct {
	Menu       []catalog.MenuItem `json:"menu"`
	Categories []catalog.Category `json:"categories"`
	Promotions []promo.Rule       `json:"promotions"`
	Discounts  []voucher.Rule     `json:"discounts"`
	FetchedAt  time.Time          `json:"fetched_at"`
}

// Empty returns a snapshot with empty, non-nil lists.
func Empty() Snapshot {
	return Snapshot{
		Menu:       []catalog.MenuItem{},
		Categories: []catalog.Category{},
		Promotions: []promo.Rule{},
		Discounts:  []voucher.Rule{},
	}
}

// Catalog indexes the menu.
func (s Snapshot) Catalog() *catalog.Catalog {
	return catalog.New(s.Menu)
}

// Resolver wraps the discounts.
func (s Snapshot) Resolver() voucher.Resolver {
	return voucher.Resolver{Rules: s.Discounts}
}
