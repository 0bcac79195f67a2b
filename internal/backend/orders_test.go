package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
)

func TestParseConfirmationFlatShape(t *testing.T) {
	conf, err := backend.ParseConfirmation([]byte(`{"order_number":1042,"payment_method":"cash","qris":"data:image/png;base64,AAA"}`), "https://pos.example/api")
	require.NoError(t, err)
	require.Equal(t, "1042", conf.OrderNumber)
	require.Equal(t, "cash", conf.PaymentMethod)
	require.Equal(t, "data:image/png;base64,AAA", conf.QRISImage)
	require.Nil(t, conf.FinalAmount)
}

func TestParseConfirmationNestedWins(t *testing.T) {
	conf, err := backend.ParseConfirmation([]byte(`{"order_number":"flat","order":{"order_number":"PK-1","payment_method":"qris"},"payment":{"qris_image":"qris/1.png","final_amount":12000}}`), "https://pos.example/api")
	require.NoError(t, err)
	require.Equal(t, "PK-1", conf.OrderNumber)
	require.Equal(t, "https://pos.example/qris/1.png", conf.QRISImage)
	require.EqualValues(t, 12000, *conf.FinalAmount)
}

func TestParseConfirmationInvalidJSON(t *testing.T) {
	_, err := backend.ParseConfirmation([]byte(`<html>`), "")
	require.Error(t, err)
}

func TestResolveAssetURL(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example/q.png": "https://cdn.example/q.png",
		"http://cdn.example/q.png":  "http://cdn.example/q.png",
		"data:image/png;base64,xx":  "data:image/png;base64,xx",
		"/storage/q.png":            "https://pos.example/storage/q.png",
		"storage/q.png":             "https://pos.example/storage/q.png",
	}
	for ref, want := range cases {
		require.Equal(t, want, backend.ResolveAssetURL("https://pos.example/api", ref), ref)
	}
}
