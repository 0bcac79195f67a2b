package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lim, err := NewRedisLimiter(client, "ratelimit", time.Minute, 1)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	limited := 0
	handler := Handler{
		Limiter:   lim,
		Key:       func(*http.Request) string { return "static" },
		Message:   "slow down",
		OnLimited: func(*http.Request) { limited++ },
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/voucher", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second request, got %d", rr2.Code)
	}
	if rr2.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header: %q", rr2.Header().Get("X-RateLimit-Limit"))
	}
	if !strings.Contains(rr2.Body.String(), "RATE_LIMITED") {
		t.Fatalf("expected RATE_LIMITED body, got %s", rr2.Body.String())
	}
	if limited != 1 {
		t.Fatalf("expected OnLimited once, got %d", limited)
	}
}

func TestHandlerMiddlewareKeysAreIndependent(t *testing.T) {
	lim := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 1})
	handler := Handler{
		Limiter: lim,
		Key:     func(r *http.Request) string { return r.Header.Get("X-Session") },
	}
	counted := handler.Middleware(okHandler())

	for _, session := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/voucher", nil)
		req.Header.Set("X-Session", session)
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("session %s: expected 200, got %d", session, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/voucher", nil)
	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("empty key should bypass the limiter, got %d", rr.Code)
	}
}

func TestClientKeyIgnoresSessionID(t *testing.T) {
	lim := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 1})
	handler := Handler{Limiter: lim, Key: ClientKey("voucher")}

	r := chi.NewRouter()
	r.With(handler.Middleware).Post("/sessions/{sessionID}/voucher", okHandler().ServeHTTP)

	post := func(session, remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+session+"/voucher", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := post("s1", "203.0.113.7:5000"); code != http.StatusOK {
		t.Fatalf("expected first attempt allowed, got %d", code)
	}
	if code := post("s2", "203.0.113.7:5001"); code != http.StatusTooManyRequests {
		t.Fatalf("fresh session from same client should share the budget, got %d", code)
	}
	if code := post("s2", "198.51.100.4:5000"); code != http.StatusOK {
		t.Fatalf("other client should have its own budget, got %d", code)
	}
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	lim, err := NewRedisLimiter(client, "ratelimit", time.Minute, 1)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	mr.Close()

	called := false
	handler := Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "err" },
		OnError: func(error) { called = true },
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected handler to proceed on error, got %d", rr.Code)
	}
	if !called {
		t.Fatal("expected OnError callback to be invoked")
	}
	_ = client.Close()
}
