package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
	"github.com/noah-isme/koffiee-storefront/internal/resilience"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

func newClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &backend.Client{
		BaseURL: srv.URL + "/api",
		HTTP: resilience.HTTPClient{
			Client:      srv.Client(),
			Breaker:     resilience.NewBreaker(10, 0.5, time.Second),
			MaxAttempts: 1,
			Target:      "backend-test",
		},
		Logger: zerolog.Nop(),
	}
}

func TestFetchSnapshotDecodesEveryEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/menu", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[{"id":1,"name":"Americano","price":"25000.00","category_id":"3","category_slug":"coffee","category_name":"Coffee","emoji":"☕","extras":[{"id":9,"name":"Extra Shot","price":5000}]}]}`)
	})
	mux.HandleFunc("/api/menu/categories/all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"categories":[{"id":3,"slug":"coffee","name":"Coffee","emoji":"☕"}]}`)
	})
	mux.HandleFunc("/api/promos/public/active", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"promotions":[{"id":1,"name":"B2G1","type":"buy_x_get_y","buy_item_id":1,"buy_qty":2,"get_item_id":null,"get_qty":1,"min_purchase":0}],
			"discounts":[{"id":5,"name":"Hemat","code":"HEMAT10","type":"percentage","value":"10","max_discount":"15000","category_id":null,"min_purchase":50000}]}`)
	})
	client := newClient(t, mux)

	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Menu, 1)
	require.EqualValues(t, 25000, snap.Menu[0].Price)
	require.EqualValues(t, 3, snap.Menu[0].CategoryID)
	require.EqualValues(t, 5000, snap.Menu[0].Extras[0].Price)
	require.Len(t, snap.Categories, 1)
	require.Len(t, snap.Promotions, 1)
	require.EqualValues(t, 1, snap.Promotions[0].RewardItemID())
	require.Len(t, snap.Discounts, 1)
	require.Equal(t, voucher.KindPercentage, snap.Discounts[0].Type)
	require.EqualValues(t, 15000, snap.Discounts[0].MaxDiscount)
	require.Zero(t, snap.Discounts[0].CategoryID)
}

func TestFetchSnapshotDegradesToEmptyLists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/menu", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[{"id":1,"name":"Latte","price":30000}]}`)
	})
	mux.HandleFunc("/api/menu/categories/all", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/promos/public/active", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})
	client := newClient(t, mux)

	snap, err := client.FetchSnapshot(context.Background())
	require.Error(t, err)
	require.Len(t, snap.Menu, 1)
	require.NotNil(t, snap.Categories)
	require.Empty(t, snap.Categories)
	require.Empty(t, snap.Promotions)
	require.Empty(t, snap.Discounts)
}

func TestFetchMenuPassesCategory(t *testing.T) {
	var gotCategory string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCategory = r.URL.Query().Get("category")
		_, _ = io.WriteString(w, `{"items":[]}`)
	}))
	items, err := client.FetchMenu(context.Background(), "non-coffee")
	require.NoError(t, err)
	require.Empty(t, items)
	require.Equal(t, "non-coffee", gotCategory)
}

func TestCreateOrderNestedConfirmation(t *testing.T) {
	var (
		received     backend.OrderRequest
		method, path string
	)
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"order":{"order_number":"PK-0042","payment_method":"qris"},"payment":{"qris_image":"/storage/qris/42.png","final_amount":"49500.00"}}`)
	}))
	extras := `[]`
	conf, err := client.CreateOrder(context.Background(), backend.OrderRequest{
		CustomerName:  "Budi",
		CustomerPhone: "0812",
		Address:       "PICKUP AT STORE",
		PaymentMethod: "qris",
		OrderType:     "pickup",
		Items:         []backend.OrderItem{{MenuItemID: 1, Quantity: 2, Price: 25000, Extras: &extras}},
		Discount:      5500,
	})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "/api/orders", path)
	require.Equal(t, "PK-0042", conf.OrderNumber)
	require.Equal(t, "qris", conf.PaymentMethod)
	require.Equal(t, client.BaseURL[:len(client.BaseURL)-len("/api")]+"/storage/qris/42.png", conf.QRISImage)
	require.NotNil(t, conf.FinalAmount)
	require.EqualValues(t, 49500, *conf.FinalAmount)
	require.EqualValues(t, 5500, received.Discount)
	require.Equal(t, "[]", *received.Items[0].Extras)
}

func TestCreateOrderRejected(t *testing.T) {
	calls := 0
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"Menu tidak tersedia"}`)
	}))
	_, err := client.CreateOrder(context.Background(), backend.OrderRequest{})
	require.ErrorIs(t, err, backend.ErrOrderSubmission)
	var orderErr *backend.OrderError
	require.True(t, errors.As(err, &orderErr))
	require.Equal(t, http.StatusUnprocessableEntity, orderErr.Status)
	require.Equal(t, "Menu tidak tersedia", orderErr.Message)
	require.Equal(t, 1, calls)
}

func TestCreateOrderTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := &backend.Client{
		BaseURL: srv.URL,
		HTTP:    resilience.HTTPClient{Client: &http.Client{Timeout: time.Second}, MaxAttempts: 1},
		Logger:  zerolog.Nop(),
	}
	_, err := client.CreateOrder(context.Background(), backend.OrderRequest{})
	require.ErrorIs(t, err, backend.ErrOrderSubmission)
}

func TestPing(t *testing.T) {
	var path string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{}`)
	}))
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, "/api/settings/app/info", path)
}
