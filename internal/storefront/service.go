package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/cart"
	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/checkout"
	"github.com/noah-isme/koffiee-storefront/internal/obs"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
	"github.com/noah-isme/koffiee-storefront/internal/promo"
	"github.com/noah-isme/koffiee-storefront/internal/session"
	"github.com/noah-isme/koffiee-storefront/internal/shop"
	"github.com/noah-isme/koffiee-storefront/internal/snapshot"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// SnapshotSource yields the catalog snapshot sessions are evaluated against.
type SnapshotSource interface {
	Current(ctx context.Context) snapshot.Snapshot
}

// Service composes the catalog snapshot, session store and checkout.
type Service struct {
	Snapshots  SnapshotSource
	Sessions   *session.Store
	Orders     *checkout.Service
	Shop       shop.Shop
	Calculator voucher.Calculator
	Logger     zerolog.Logger
	Now        func() time.Time
}

// DiscountView is a discount rule as shown to shoppers. Voucher codes are
// never included.
type DiscountView struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Type        voucher.Kind  `json:"type"`
	Value       string        `json:"value"`
	MaxDiscount pricing.Money `json:"max_discount,omitempty"`
	CategoryID  int64         `json:"category_id,omitempty"`
	MinPurchase pricing.Money `json:"min_purchase"`
	MinLabel    string        `json:"min_purchase_label"`
}

func discountView(r voucher.Rule) DiscountView {
	return DiscountView{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Value:       r.Value.String(),
		MaxDiscount: r.MaxDiscount,
		CategoryID:  r.CategoryID,
		MinPurchase: r.MinPurchase,
		MinLabel:    pricing.FormatRupiah(r.MinPurchase),
	}
}

// PromosView lists the public promotions.
type PromosView struct {
	Promotions []promo.Rule   `json:"promotions"`
	Discounts  []DiscountView `json:"discounts"`
}

// SessionView is the JSON shape of a shopper session.
type SessionView struct {
	ID             string          `json:"id"`
	Lines          cart.Cart       `json:"lines"`
	ItemCount      int             `json:"item_count"`
	Summary        pricing.Summary `json:"summary"`
	Formatted      FormattedTotals `json:"formatted"`
	PromoCode      string          `json:"promo_code,omitempty"`
	ActiveDiscount *DiscountView   `json:"active_discount,omitempty"`
	DiscountError  string          `json:"discount_error,omitempty"`
}

// FormattedTotals carries display strings such as "Rp 49.500".
type FormattedTotals struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

func (s *Service) view(id string, st session.State) SessionView {
	summary := st.Summary(s.Calculator)
	lines := st.Cart
	if lines == nil {
		lines = cart.Cart{}
	}
	v := SessionView{
		ID:        id,
		Lines:     lines,
		ItemCount: st.Cart.Quantity(),
		Summary:   summary,
		Formatted: FormattedTotals{
			Subtotal: pricing.FormatRupiah(summary.Subtotal),
			Discount: pricing.FormatRupiah(summary.Discount),
			Total:    pricing.FormatRupiah(summary.Total),
		},
		PromoCode:     st.PromoCode,
		DiscountError: st.DiscountError,
	}
	if st.ActiveDiscount != nil {
		dv := discountView(*st.ActiveDiscount)
		v.ActiveDiscount = &dv
	}
	return v
}

func (s *Service) snapshot(ctx context.Context) snapshot.Snapshot {
	if s.Snapshots == nil {
		return snapshot.Empty()
	}
	return s.Snapshots.Current(ctx)
}

func (s *Service) env(snap snapshot.Snapshot) session.Env {
	menu := snap.Catalog()
	engine := promo.NewEngine(snap.Promotions, menu)
	engine.Logger = s.Logger
	return session.Env{
		Catalog:    menu,
		Promoter:   engine,
		Resolver:   snap.Resolver(),
		Calculator: s.Calculator,
	}
}

// Menu lists menu items, optionally restricted to a category slug.
func (s *Service) Menu(ctx context.Context, category string) []catalog.MenuItem {
	return s.snapshot(ctx).Catalog().Items(category)
}

// MenuItem returns one menu item.
func (s *Service) MenuItem(ctx context.Context, id int64) (catalog.MenuItem, error) {
	item, ok := s.snapshot(ctx).Catalog().Lookup(id)
	if !ok {
		return catalog.MenuItem{}, catalog.ErrItemNotFound
	}
	return item, nil
}

// Categories lists menu categories.
func (s *Service) Categories(ctx context.Context) []catalog.Category {
	return s.snapshot(ctx).Categories
}

// Promos lists the automated promotions and the discounts offered without a
// code.
func (s *Service) Promos(ctx context.Context) PromosView {
	snap := s.snapshot(ctx)
	out := PromosView{Promotions: snap.Promotions, Discounts: []DiscountView{}}
	for _, r := range snap.Resolver().Listed() {
		out.Discounts = append(out.Discounts, discountView(r))
	}
	return out
}

// ShopView renders the shop profile at the current time.
func (s *Service) ShopView() shop.View {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return s.Shop.View(now)
}

// CreateSession opens an empty session.
func (s *Service) CreateSession(ctx context.Context) (SessionView, error) {
	id, st, err := s.Sessions.Create(ctx)
	if err != nil {
		return SessionView{}, err
	}
	if obs.SessionsCreatedTotal != nil {
		obs.SessionsCreatedTotal.Inc()
	}
	s.Logger.Debug().Str("session_id", id).Msg("session_created")
	return s.view(id, st), nil
}

// Session returns the current session state.
func (s *Service) Session(ctx context.Context, id string) (SessionView, error) {
	st, err := s.Sessions.Load(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(id, st), nil
}

// Apply runs action against the session. A *session.DiscountError comes back
// together with the saved state.
func (s *Service) Apply(ctx context.Context, id string, action session.Action) (SessionView, error) {
	env := s.env(s.snapshot(ctx))
	st, err := s.Sessions.Apply(ctx, id, env, action)
	observeAction(action, err)
	if err != nil {
		var discountErr *session.DiscountError
		if errors.As(err, &discountErr) {
			return s.view(id, st), err
		}
		return SessionView{}, err
	}
	return s.view(id, st), nil
}

// Checkout submits the session as an order. Free lines and the active
// discount are re-evaluated against the current snapshot first. The session
// is only cleared when the backend accepted the order.
func (s *Service) Checkout(ctx context.Context, id string, form checkout.Form) (checkout.Result, error) {
	if s.Orders == nil {
		return checkout.Result{}, errors.New("checkout not configured")
	}
	env := s.env(s.snapshot(ctx))
	var result checkout.Result
	_, err := s.Sessions.Mutate(ctx, id, func(st session.State) (session.State, error) {
		current, err := session.Apply(env, st, session.Refresh{})
		if err != nil {
			return st, err
		}
		res, next, err := s.Orders.Submit(ctx, form, current)
		if err != nil {
			return st, err
		}
		result = res
		return next, nil
	})
	if err != nil {
		return checkout.Result{}, err
	}
	return result, nil
}

func observeAction(action session.Action, err error) {
	result := "ok"
	var discountErr *session.DiscountError
	switch {
	case errors.As(err, &discountErr):
		result = "rejected"
		if errors.Is(err, voucher.ErrMinimumPurchase) {
			result = "min_purchase"
		}
	case err != nil:
		result = "error"
	}
	switch action.(type) {
	case session.ApplyCode:
		observeVoucher("code", result)
	case session.SelectDiscount:
		observeVoucher("listed", result)
	case session.ClearDiscount:
		observeVoucher("clear", result)
	default:
		if obs.CartMutationsTotal != nil {
			obs.CartMutationsTotal.WithLabelValues(actionName(action), result).Inc()
		}
	}
}

func observeVoucher(source, result string) {
	if obs.VoucherAttemptsTotal != nil {
		obs.VoucherAttemptsTotal.WithLabelValues(source, result).Inc()
	}
}

func actionName(action session.Action) string {
	switch action.(type) {
	case session.AddItem:
		return "add"
	case session.RemoveLine:
		return "remove"
	case session.SetQuantity:
		return "set_quantity"
	case session.Reset:
		return "reset"
	default:
		return "other"
	}
}
