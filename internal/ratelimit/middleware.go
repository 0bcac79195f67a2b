package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/noah-isme/koffiee-storefront/internal/common"
)

// Handler enforces a limiter keyed per request before delegating to the
// next handler. Store errors fail open.
type Handler struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	Message string
	OnError func(error)
	// OnLimited is called for every rejected request.
	OnLimited func(*http.Request)
}

// ClientKey returns a Key func that buckets requests by client address
// under prefix. Path parameters are ignored so a client cannot reset its
// budget by minting new sessions.
func ClientKey(prefix string) func(*http.Request) string {
	return func(r *http.Request) string {
		ip := common.ClientIP(r)
		if ip == "" {
			return ""
		}
		return prefix + ":" + ip
	}
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := h.Limiter.Get(r.Context(), key)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		resetAt := time.Unix(lctx.Reset, 0)
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if lctx.Reached {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			if h.OnLimited != nil {
				h.OnLimited(r)
			}
			msg := h.Message
			if msg == "" {
				msg = "rate limit exceeded"
			}
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", msg, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
