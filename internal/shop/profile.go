package shop

import "time"

const (
	PaymentCash     = "cash"
	PaymentQRIS     = "qris"
	PaymentTransfer = "transfer"
	PaymentEWallet  = "ewallet"

	OrderDelivery = "delivery"
	OrderPickup   = "pickup"
)

// Profile is the public storefront identity.
type Profile struct {
	Name        string            `json:"name"`
	Tagline     string            `json:"tagline"`
	Description string            `json:"description,omitempty"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	Address     string            `json:"address"`
	Social      map[string]string `json:"social,omitempty"`
}

// Features toggles payment methods and order types.
type Features struct {
	QRIS     bool
	Cash     bool
	Transfer bool
	EWallet  bool
	Delivery bool
	Takeaway bool
}

// PaymentMethods lists enabled methods in display order.
func (f Features) PaymentMethods() []string {
	out := make([]string, 0, 4)
	if f.Cash {
		out = append(out, PaymentCash)
	}
	if f.QRIS {
		out = append(out, PaymentQRIS)
	}
	if f.Transfer {
		out = append(out, PaymentTransfer)
	}
	if f.EWallet {
		out = append(out, PaymentEWallet)
	}
	return out
}

// OrderTypes lists enabled fulfilment types.
func (f Features) OrderTypes() []string {
	out := make([]string, 0, 2)
	if f.Delivery {
		out = append(out, OrderDelivery)
	}
	if f.Takeaway {
		out = append(out, OrderPickup)
	}
	return out
}

// AllowsPayment reports whether method is enabled.
func (f Features) AllowsPayment(method string) bool {
	for _, m := range f.PaymentMethods() {
		if m == method {
			return true
		}
	}
	return false
}

// AllowsOrderType reports whether orderType is enabled.
func (f Features) AllowsOrderType(orderType string) bool {
	for _, t := range f.OrderTypes() {
		if t == orderType {
			return true
		}
	}
	return false
}

// Shop bundles everything GET /shop returns.
type Shop struct {
	Profile  Profile
	Features Features
	Hours    Hours
}

// View is the JSON shape of the shop endpoint.
type View struct {
	Profile        Profile   `json:"profile"`
	PaymentMethods []string  `json:"payment_methods"`
	OrderTypes     []string  `json:"order_types"`
	Hours          HoursView `json:"hours"`
	OpenNow        bool      `json:"open_now"`
}

// HoursView renders both windows as "HH:MM-HH:MM".
type HoursView struct {
	Weekday string `json:"weekday"`
	Weekend string `json:"weekend"`
}

// View renders the shop at the given instant.
func (s Shop) View(now time.Time) View {
	return View{
		Profile:        s.Profile,
		PaymentMethods: s.Features.PaymentMethods(),
		OrderTypes:     s.Features.OrderTypes(),
		Hours:          HoursView{Weekday: s.Hours.Weekday.String(), Weekend: s.Hours.Weekend.String()},
		OpenNow:        s.Hours.IsOpen(now),
	}
}
