package catalog

import "github.com/noah-isme/koffiee-storefront/internal/pricing"

// Extra is an add-on that can be selected together with a menu item.
type Extra struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Price pricing.Money `json:"price"`
}

// MenuItem mirrors a catalog entry published by the shop backend.
type MenuItem struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Price        pricing.Money `json:"price"`
	CategoryID   int64         `json:"category_id"`
	CategorySlug string        `json:"category_slug"`
	CategoryName string        `json:"category_name"`
	Emoji        string        `json:"emoji,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	Extras       []Extra       `json:"extras,omitempty"`
}

// Category groups menu items for browsing.
type Category struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}
