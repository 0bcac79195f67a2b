package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
	"github.com/noah-isme/koffiee-storefront/internal/promo"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// flexID accepts ids encoded either as JSON numbers or strings.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*f = flexID(v)
	return nil
}

// money reads amounts that may arrive as "25000.00" and keeps whole rupiah.
func money(d decimal.Decimal) pricing.Money {
	return d.Floor().IntPart()
}

type wireExtra struct {
	ID    flexID          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type wireMenuItem struct {
	ID           flexID          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   flexID          `json:"category_id"`
	CategorySlug string          `json:"category_slug"`
	CategoryName string          `json:"category_name"`
	Emoji        string          `json:"emoji"`
	ImageURL     string          `json:"image_url"`
	Extras       []wireExtra     `json:"extras"`
}

func (w wireMenuItem) model() catalog.MenuItem {
	item := catalog.MenuItem{
		ID:           int64(w.ID),
		Name:         w.Name,
		Description:  w.Description,
		Price:        money(w.Price),
		CategoryID:   int64(w.CategoryID),
		CategorySlug: w.CategorySlug,
		CategoryName: w.CategoryName,
		Emoji:        w.Emoji,
		ImageURL:     w.ImageURL,
	}
	for _, e := range w.Extras {
		item.Extras = append(item.Extras, catalog.Extra{ID: int64(e.ID), Name: e.Name, Price: money(e.Price)})
	}
	return item
}

type wireCategory struct {
	ID    flexID `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

func (w wireCategory) model() catalog.Category {
	return catalog.Category{ID: int64(w.ID), Slug: w.Slug, Name: w.Name, Emoji: w.Emoji}
}

type wirePromotion struct {
	ID          flexID          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	BuyItemID   flexID          `json:"buy_item_id"`
	BuyQty      int             `json:"buy_qty"`
	GetItemID   flexID          `json:"get_item_id"`
	GetQty      int             `json:"get_qty"`
	MinPurchase decimal.Decimal `json:"min_purchase"`
}

func (w wirePromotion) model() promo.Rule {
	return promo.Rule{
		ID:          int64(w.ID),
		Name:        w.Name,
		Type:        w.Type,
		BuyItemID:   int64(w.BuyItemID),
		BuyQty:      w.BuyQty,
		GetItemID:   int64(w.GetItemID),
		GetQty:      w.GetQty,
		MinPurchase: money(w.MinPurchase),
	}
}

type wireDiscount struct {
	ID          flexID          `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MaxDiscount decimal.Decimal `json:"max_discount"`
	CategoryID  flexID          `json:"category_id"`
	MinPurchase decimal.Decimal `json:"min_purchase"`
}

func (w wireDiscount) model() voucher.Rule {
	return voucher.Rule{
		ID:          int64(w.ID),
		Name:        w.Name,
		Code:        strings.TrimSpace(w.Code),
		Type:        voucher.Kind(strings.ToLower(strings.TrimSpace(w.Type))),
		Value:       w.Value,
		MaxDiscount: money(w.MaxDiscount),
		CategoryID:  int64(w.CategoryID),
		MinPurchase: money(w.MinPurchase),
	}
}

var _ json.Unmarshaler = (*flexID)(nil)
