package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ClientIP returns the caller address. It expects chi's RealIP middleware to
// have already folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
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
	return v
}

// ReadJSON decodes a JSON body into dest, rejecting unknown fields.
func ReadJSON(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return NewAppError(CodePayloadTooLarge, "payload too large", http.StatusRequestEntityTooLarge, err)
		}
		return NewAppError(CodeBadRequest, "invalid payload", http.StatusBadRequest, err)
	}
	return nil
}

// DecodeJSON is ReadJSON followed by struct validation. Failures are
// returned as *AppError ready for WriteError.
func DecodeJSON(r *http.Request, dest any) error {
	if err := ReadJSON(r, dest); err != nil {
		return err
	}
	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := map[string]string{}
			for _, fe := range verrs {
				details[fe.Field()] = validationMessage(fe)
			}
			return NewAppError(CodeValidationFailed, "validation failed", http.StatusUnprocessableEntity, err).WithDetails(details)
		}
		return NewAppError(CodeValidationFailed, "validation failed", http.StatusUnprocessableEntity, err)
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}
