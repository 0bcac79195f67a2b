package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
	"github.com/noah-isme/koffiee-storefront/internal/obs"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
	"github.com/noah-isme/koffiee-storefront/internal/session"
	"github.com/noah-isme/koffiee-storefront/internal/shop"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// MsgBackendFailure is shown when the backend could not take the order.
const MsgBackendFailure = "Sepertinya ada gangguan koneksi ke server kasir."

// OrderSubmitter creates orders upstream. *backend.Client satisfies it.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, order backend.OrderRequest) (backend.Confirmation, error)
}

// Service validates and submits checkouts.
type Service struct {
	Backend    OrderSubmitter
	Features   shop.Features
	Calculator voucher.Calculator
	Logger     zerolog.Logger
}

// Result is returned to the shopper after a successful checkout.
type Result struct {
	Confirmation backend.Confirmation `json:"confirmation"`
	Summary      pricing.Summary      `json:"summary"`
}

// Submit validates form, sends the order and returns the reset session state.
// On any error the returned state is the input state.
func (s *Service) Submit(ctx context.Context, form Form, state session.State) (Result, session.State, error) {
	if s == nil || s.Backend == nil {
		return Result{}, state, errors.New("checkout service not configured")
	}
	form = form.Normalize()
	if err := Validate(form, s.Features); err != nil {
		observeOrder(form, "invalid")
		return Result{}, state, err
	}
	if state.Empty() {
		observeOrder(form, "invalid")
		return Result{}, state, &ValidationError{Fields: map[string]string{"cart": msgEmptyCart}}
	}

	order, err := BuildOrder(form, state, s.Calculator)
	if err != nil {
		return Result{}, state, err
	}
	summary := state.Summary(s.Calculator)

	start := time.Now()
	conf, err := s.Backend.CreateOrder(ctx, order)
	elapsed := obs.DurationMillis(time.Since(start))
	if err != nil {
		observeOrder(form, "failed")
		observeLatency("failed", elapsed)
		s.Logger.Error().Err(err).
			Str("order_type", form.OrderType).
			Str("payment_method", form.PaymentMethod).
			Int("lines", len(order.Items)).
			Msg("order_submit_failed")
		return Result{}, state, err
	}
	observeOrder(form, "accepted")
	observeLatency("accepted", elapsed)

	if conf.FinalAmount == nil {
		total := summary.Total
		conf.FinalAmount = &total
	}
	if conf.PaymentMethod == "" {
		conf.PaymentMethod = form.PaymentMethod
	}
	s.Logger.Info().
		Str("order_number", conf.OrderNumber).
		Str("order_type", form.OrderType).
		Int64("total", summary.Total).
		Msg("order_submitted")

	next, err := session.Apply(session.Env{}, state, session.Reset{})
	if err != nil {
		return Result{}, state, err
	}
	return Result{Confirmation: conf, Summary: summary}, next, nil
}

func observeOrder(form Form, result string) {
	if obs.OrdersSubmittedTotal != nil {
		obs.OrdersSubmittedTotal.WithLabelValues(form.OrderType, form.PaymentMethod, result).Inc()
	}
}

func observeLatency(result string, ms float64) {
	if obs.OrderSubmitLatency != nil {
		obs.OrderSubmitLatency.WithLabelValues(result).Observe(ms)
	}
}
