package session_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koffiee-storefront/internal/cart"
	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
	"github.com/noah-isme/koffiee-storefront/internal/promo"
	"github.com/noah-isme/koffiee-storefront/internal/session"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

func testEnv() session.Env {
	menu := catalog.New([]catalog.MenuItem{
		{ID: 1, Name: "Kopi A", Price: 20_000, CategoryID: 10, Extras: []catalog.Extra{{ID: 100, Name: "Shot", Price: 5_000}}},
		{ID: 2, Name: "Roti B", Price: 15_000, CategoryID: 20},
	})
	return session.Env{
		Catalog:  menu,
		Promoter: promo.NewEngine([]promo.Rule{{Name: "Beli 3 Gratis 1", Type: promo.TypeBuyXGetY, BuyItemID: 1, BuyQty: 3, GetQty: 1}}, menu),
		Resolver: voucher.Resolver{Rules: []voucher.Rule{
			{ID: 1, Name: "Sepuluh", Code: "KOPI10", Type: voucher.KindPercentage, Value: decimal.NewFromInt(10)},
			{ID: 2, Name: "Besar", Code: "BESAR", Type: voucher.KindNominal, Value: decimal.NewFromInt(20_000), MinPurchase: 100_000},
			{ID: 3, Name: "Roti Hemat", Type: voucher.KindNominal, Value: decimal.NewFromInt(3_000), CategoryID: 20},
		}},
	}
}

func mustApply(t *testing.T, env session.Env, s session.State, a session.Action) session.State {
	t.Helper()
	next, err := session.Apply(env, s, a)
	require.NoError(t, err)
	return next
}

func TestScenarioTotals(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 2})
	s = mustApply(t, env, s, session.AddItem{ItemID: 2, Quantity: 1})

	require.Equal(t, pricing.Summary{Subtotal: 55_000, Discount: 0, Total: 55_000}, s.Summary(env.Calculator))

	s = mustApply(t, env, s, session.ApplyCode{Code: "kopi10"})
	require.Equal(t, "kopi10", s.PromoCode)
	summary := s.Summary(env.Calculator)
	require.Equal(t, pricing.Money(5_500), summary.Discount)
	require.Equal(t, pricing.Money(49_500), summary.Total)
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	env := testEnv()
	start := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 1})
	before := start.Cart[0]

	_ = mustApply(t, env, start, session.AddItem{ItemID: 1, Quantity: 5})
	require.Equal(t, before, start.Cart[0])
	require.Len(t, start.Cart, 1)
}

func TestAddItemErrorsKeepState(t *testing.T) {
	env := testEnv()
	start := mustApply(t, env, session.State{}, session.AddItem{ItemID: 2, Quantity: 1})

	next, err := session.Apply(env, start, session.AddItem{ItemID: 99, Quantity: 1})
	require.ErrorIs(t, err, catalog.ErrItemNotFound)
	require.Equal(t, start, next)

	_, err = session.Apply(env, start, session.AddItem{ItemID: 1, Quantity: 1, ExtraIDs: []int64{7}})
	require.ErrorIs(t, err, catalog.ErrUnknownExtra)

	_, err = session.Apply(env, start, session.AddItem{ItemID: 1, Quantity: 0})
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)
}

func TestPromotionFollowsMutations(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 3})
	require.Len(t, s.Cart.FreeLines(), 1)

	key := s.Cart.PaidLines()[0].Key
	s = mustApply(t, env, s, session.SetQuantity{Key: key, Quantity: 2})
	require.Empty(t, s.Cart.FreeLines())

	s = mustApply(t, env, s, session.SetQuantity{Key: key, Quantity: 6})
	require.Equal(t, 2, s.Cart.FreeLines()[0].Quantity)

	s = mustApply(t, env, s, session.RemoveLine{Key: key})
	require.Empty(t, s.Cart)
}

func TestInvalidCodeClearsDiscount(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 1})
	s = mustApply(t, env, s, session.ApplyCode{Code: "KOPI10"})
	require.NotNil(t, s.ActiveDiscount)

	next, err := session.Apply(env, s, session.ApplyCode{Code: "SALAH"})
	var discountErr *session.DiscountError
	require.True(t, errors.As(err, &discountErr))
	require.ErrorIs(t, err, voucher.ErrInvalidCode)
	require.Nil(t, next.ActiveDiscount)
	require.Equal(t, "Kode voucher tidak valid atau sudah kadaluarsa.", next.DiscountError)
	require.Equal(t, s.Cart, next.Cart)
}

func TestMinimumPurchaseMessage(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 1})
	next, err := session.Apply(env, s, session.ApplyCode{Code: "BESAR"})
	require.ErrorIs(t, err, voucher.ErrMinimumPurchase)
	require.Nil(t, next.ActiveDiscount)
	require.Equal(t, "Minimal belanja Rp 100.000 untuk voucher ini.", next.DiscountError)
}

func TestEmptyCodeClearsWithoutError(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 1})
	s = mustApply(t, env, s, session.ApplyCode{Code: "KOPI10"})
	s = mustApply(t, env, s, session.ApplyCode{Code: "  "})
	require.Nil(t, s.ActiveDiscount)
	require.Empty(t, s.DiscountError)
}

func TestSelectDiscountReplacesCode(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 2, Quantity: 1})
	s = mustApply(t, env, s, session.ApplyCode{Code: "KOPI10"})
	s = mustApply(t, env, s, session.SelectDiscount{ID: 3})
	require.Empty(t, s.PromoCode)
	require.Equal(t, int64(3), s.ActiveDiscount.ID)
	require.Equal(t, pricing.Money(3_000), s.Discount(env.Calculator))

	same, err := session.Apply(env, s, session.SelectDiscount{ID: 42})
	require.ErrorIs(t, err, voucher.ErrDiscountNotFound)
	require.Equal(t, s, same)
}

func TestClearAndReset(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 1})
	s = mustApply(t, env, s, session.ApplyCode{Code: "KOPI10"})

	cleared := mustApply(t, env, s, session.ClearDiscount{})
	require.Nil(t, cleared.ActiveDiscount)
	require.Len(t, cleared.Cart, 1)

	reset := mustApply(t, env, s, session.Reset{})
	require.True(t, reset.Empty())
	require.Nil(t, reset.ActiveDiscount)
}

func TestRefreshFollowsEnvironment(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 3})
	s = mustApply(t, env, s, session.ApplyCode{Code: "KOPI10"})
	require.Len(t, s.Cart, 2)

	changed := testEnv()
	changed.Promoter = promo.NewEngine(nil, changed.Catalog)
	changed.Resolver.Rules[0].Value = decimal.NewFromInt(20)

	next := mustApply(t, changed, s, session.Refresh{})
	require.Len(t, next.Cart, 1)
	require.Equal(t, pricing.Money(12_000), next.Discount(changed.Calculator))
	require.Equal(t, "KOPI10", next.PromoCode)
	require.Len(t, s.Cart, 2)

	changed.Resolver.Rules = changed.Resolver.Rules[1:]
	next = mustApply(t, changed, next, session.Refresh{})
	require.Nil(t, next.ActiveDiscount)
	require.Empty(t, next.PromoCode)
	require.Empty(t, next.DiscountError)
}

func TestRefreshDropsDiscountBelowMinimum(t *testing.T) {
	env := testEnv()
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 1, Quantity: 5})
	s = mustApply(t, env, s, session.ApplyCode{Code: "BESAR"})
	require.NotNil(t, s.ActiveDiscount)

	env.Resolver.Rules[1].MinPurchase = 200_000
	next := mustApply(t, env, s, session.Refresh{})
	require.Nil(t, next.ActiveDiscount)
	require.Equal(t, "Minimal belanja Rp 200.000 untuk voucher ini.", next.DiscountError)
}

func TestTotalNeverNegative(t *testing.T) {
	env := testEnv()
	env.Calculator = voucher.Calculator{Nominal: voucher.NominalUncapped}
	env.Resolver.Rules = append(env.Resolver.Rules, voucher.Rule{ID: 9, Name: "Raksasa", Code: "RAKSASA", Type: voucher.KindNominal, Value: decimal.NewFromInt(1_000_000)})
	s := mustApply(t, env, session.State{}, session.AddItem{ItemID: 2, Quantity: 1})
	s = mustApply(t, env, s, session.ApplyCode{Code: "RAKSASA"})
	summary := s.Summary(env.Calculator)
	require.Equal(t, pricing.Money(1_000_000), summary.Discount)
	require.Equal(t, pricing.Money(0), summary.Total)
}
