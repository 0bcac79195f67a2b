package checkout

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/koffiee-storefront/internal/shop"
)

// ErrValidation marks checkout input problems that never reach the backend.
var ErrValidation = errors.New("checkout validation failed")

const (
	msgContact     = "Mohon isi Nama dan No. WhatsApp."
	msgAddress     = "Mohon isi alamat pengiriman lengkap."
	msgOrderType   = "Tipe pesanan tidak tersedia."
	msgPayment     = "Metode pembayaran tidak tersedia."
	msgEmptyCart   = "Keranjang masih kosong."
	minAddressSize = 5
)

// Form is the customer-supplied checkout data.
type Form struct {
	CustomerName  string `json:"customer_name" validate:"required,max=120"`
	CustomerPhone string `json:"customer_phone" validate:"required,max=32"`
	Address       string `json:"address" validate:"max=500"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	OrderType     string `json:"order_type" validate:"required,oneof=delivery pickup"`
	Notes         string `json:"notes" validate:"max=500"`
}

// ValidationError lists the offending fields with user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ErrValidation.Error() + ": " + strings.Join(keys, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message returns the first message in field order.
func (e *ValidationError) Message() string {
	for _, field := range []string{"customer_name", "customer_phone", "order_type", "address", "payment_method", "cart"} {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	for _, msg := range e.Fields {
		return msg
	}
	return ErrValidation.Error()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	v.RegisterStructValidation(deliveryAddress, Form{})
	return v
}

func deliveryAddress(sl validator.StructLevel) {
	form := sl.Current().Interface().(Form)
	if form.OrderType == shop.OrderDelivery && len([]rune(form.Address)) < minAddressSize {
		sl.ReportError(form.Address, "address", "Address", "min", "5")
	}
}

// Normalize trims whitespace and lower-cases the enumerations.
func (f Form) Normalize() Form {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.CustomerPhone = strings.TrimSpace(f.CustomerPhone)
	f.Address = strings.TrimSpace(f.Address)
	f.PaymentMethod = strings.ToLower(strings.TrimSpace(f.PaymentMethod))
	f.OrderType = strings.ToLower(strings.TrimSpace(f.OrderType))
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// Validate checks f against the shop's enabled features. f should be
// normalised first.
func Validate(f Form, features shop.Features) error {
	fields := map[string]string{}
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	if _, bad := fields["order_type"]; !bad && !features.AllowsOrderType(f.OrderType) {
		fields["order_type"] = msgOrderType
	}
	if _, bad := fields["payment_method"]; !bad && !features.AllowsPayment(f.PaymentMethod) {
		fields["payment_method"] = msgPayment
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "customer_name", "customer_phone":
		return msgContact
	case "address":
		return msgAddress
	case "order_type":
		return msgOrderType
	case "payment_method":
		return msgPayment
	}
	if fe.Tag() == "max" {
		return "terlalu panjang (maks. " + fe.Param() + " karakter)"
	}
	return "tidak valid"
}
