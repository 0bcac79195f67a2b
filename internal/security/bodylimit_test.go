package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koffiee-storefront/internal/common"
)

type voucherBody struct {
	Code string `json:"code"`
}

func decodeVoucher(w http.ResponseWriter, r *http.Request) {
	var body voucherBody
	if err := common.ReadJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, body)
}

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	handler := BodyLimit{Max: 64}.Middleware(http.HandlerFunc(decodeVoucher))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/voucher", strings.NewReader(`{"code":"KOPI10"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "KOPI10")
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	called := false
	handler := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/voucher", strings.NewReader(`{"code":"KOPI10"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), common.CodePayloadTooLarge)
	require.False(t, called)
}

func TestBodyLimitRejectsUndeclaredOversizedBody(t *testing.T) {
	handler := BodyLimit{Max: 8}.Middleware(http.HandlerFunc(decodeVoucher))

	req := httptest.NewRequest(http.MethodPost, "/voucher", io.NopCloser(strings.NewReader(`{"code":"`+strings.Repeat("A", 64)+`"}`)))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), common.CodePayloadTooLarge)
}

func TestBodyLimitIgnoresReads(t *testing.T) {
	handler := BodyLimit{Max: 1}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/menu", nil)
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}
