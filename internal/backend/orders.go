package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/koffiee-storefront/internal/obs"
	"github.com/noah-isme/koffiee-storefront/internal/pricing"
)

// ErrOrderSubmission marks any failure to create an order upstream.
var ErrOrderSubmission = errors.New("order submission failed")

// OrderItem is one flattened cart line. Extras holds a JSON-encoded array
// for customer lines and is null for promotion lines.
type OrderItem struct {
	MenuItemID int64         `json:"menu_item_id"`
	Quantity   int           `json:"quantity"`
	Price      pricing.Money `json:"price"`
	Extras     *string       `json:"extras"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	Address       string        `json:"address"`
	PaymentMethod string        `json:"payment_method"`
	OrderType     string        `json:"order_type"`
	Notes         string        `json:"notes,omitempty"`
	Items         []OrderItem   `json:"items"`
	Discount      pricing.Money `json:"discount"`
}

// Confirmation is the normalised order creation response.
type Confirmation struct {
	OrderNumber   string         `json:"order_number"`
	PaymentMethod string         `json:"payment_method"`
	QRISImage     string         `json:"qris_image,omitempty"`
	FinalAmount   *pricing.Money `json:"final_amount,omitempty"`
}

// OrderError describes a rejected or failed submission.
type OrderError struct {
	Status  int
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", ErrOrderSubmission, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrOrderSubmission, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", ErrOrderSubmission, e.Status)
	default:
		return ErrOrderSubmission.Error()
	}
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *OrderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrOrderSubmission, e.Err}
	}
	return []error{ErrOrderSubmission}
}

// CreateOrder submits order and returns the parsed confirmation.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (conf Confirmation, err error) {
	ctx, end := obs.StartSpan(ctx, "backend", "backend.create_order",
		attribute.String("order.type", order.OrderType),
		attribute.String("order.payment_method", order.PaymentMethod),
		attribute.Int("order.items", len(order.Items)),
	)
	defer func() { end(err) }()

	doer := c.Orders
	if doer == nil {
		doer = c.HTTP
	}
	if doer == nil {
		return Confirmation{}, &OrderError{Err: errors.New("backend: client not configured")}
	}
	body, err := json.Marshal(order)
	if err != nil {
		return Confirmation{}, &OrderError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(pathOrders, nil), bytes.NewReader(body))
	if err != nil {
		return Confirmation{}, &OrderError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := doer.Do(ctx, req)
	if err != nil {
		return Confirmation{}, &OrderError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Confirmation{}, &OrderError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Confirmation{}, &OrderError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	conf, err = ParseConfirmation(raw, c.BaseURL)
	if err != nil {
		return Confirmation{}, &OrderError{Status: resp.StatusCode, Err: err}
	}
	if conf.OrderNumber == "" {
		c.Logger.Warn().Int("status", resp.StatusCode).Msg("order_confirmation_without_number")
	}
	return conf, nil
}

// flexString accepts strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

type confirmationPayload struct {
	Order *struct {
		OrderNumber   flexString `json:"order_number"`
		PaymentMethod string     `json:"payment_method"`
	} `json:"order"`
	Payment *struct {
		QRISImage   string              `json:"qris_image"`
		FinalAmount decimal.NullDecimal `json:"final_amount"`
	} `json:"payment"`

	OrderNumber   flexString          `json:"order_number"`
	PaymentMethod string              `json:"payment_method"`
	QRIS          string              `json:"qris"`
	FinalAmount   decimal.NullDecimal `json:"final_amount"`
}

// ParseConfirmation accepts both the nested {order, payment} response and the
// flat {order_number, payment_method, qris} one. Nested QR image paths are
// resolved against baseURL.
func ParseConfirmation(raw []byte, baseURL string) (Confirmation, error) {
	var p confirmationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Confirmation{}, fmt.Errorf("decode confirmation: %w", err)
	}
	conf := Confirmation{
		OrderNumber:   string(p.OrderNumber),
		PaymentMethod: p.PaymentMethod,
		QRISImage:     p.QRIS,
	}
	if p.FinalAmount.Valid {
		amt := money(p.FinalAmount.Decimal)
		conf.FinalAmount = &amt
	}
	if p.Order != nil {
		if p.Order.OrderNumber != "" {
			conf.OrderNumber = string(p.Order.OrderNumber)
		}
		if p.Order.PaymentMethod != "" {
			conf.PaymentMethod = p.Order.PaymentMethod
		}
	}
	if p.Payment != nil {
		if img := strings.TrimSpace(p.Payment.QRISImage); img != "" {
			conf.QRISImage = ResolveAssetURL(baseURL, img)
		}
		if p.Payment.FinalAmount.Valid {
			amt := money(p.Payment.FinalAmount.Decimal)
			conf.FinalAmount = &amt
		}
	}
	return conf, nil
}

// ResolveAssetURL turns a backend-relative asset path into an absolute URL.
// Data URIs and absolute URLs pass through. Assets are served from the host
// root, so the first "/api" segment of baseURL is dropped.
func ResolveAssetURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "http") {
		return ref
	}
	origin := strings.TrimRight(strings.Replace(baseURL, "/api", "", 1), "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return origin + ref
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
