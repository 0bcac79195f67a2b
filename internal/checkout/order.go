package checkout

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/session"
	"github.com/noah-isme/koffiee-storefront/internal/shop"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// notesPrefix is the order-type marker the POS reads from the notes field.
const notesPrefix = "Tipper: "

// PickupAddress is sent in place of an address for pickup orders.
const PickupAddress = "PICKUP AT STORE"

// BuildOrder flattens the session into the backend order payload. Promotion
// lines are sent with a null extras field.
func BuildOrder(form Form, state session.State, calc voucher.Calculator) (backend.OrderRequest, error) {
	items := make([]backend.OrderItem, 0, len(state.Cart))
	for _, line := range state.Cart {
		item := backend.OrderItem{
			MenuItemID: line.ItemID,
			Quantity:   line.Quantity,
			Price:      line.Price,
		}
		if !line.IsFree {
			extras := line.Extras
			if extras == nil {
				extras = []catalog.Extra{}
			}
			raw, err := json.Marshal(extras)
			if err != nil {
				return backend.OrderRequest{}, err
			}
			encoded := string(raw)
			item.Extras = &encoded
		}
		items = append(items, item)
	}

	address := form.Address
	if form.OrderType != shop.OrderDelivery {
		address = PickupAddress
	}
	return backend.OrderRequest{
		CustomerName:  form.CustomerName,
		CustomerPhone: form.CustomerPhone,
		Address:       address,
		PaymentMethod: form.PaymentMethod,
		OrderType:     form.OrderType,
		Notes:         orderNotes(form),
		Items:         items,
		Discount:      state.Discount(calc),
	}, nil
}

func orderNotes(form Form) string {
	notes := notesPrefix + strings.ToUpper(form.OrderType)
	if form.Notes != "" {
		notes += "; " + form.Notes
	}
	return notes
}
