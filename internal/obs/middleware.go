package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StatusRecorder wraps ResponseWriter to capture status code and bytes written.
type StatusRecorder struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

// NewStatusRecorder constructs a status recorder with default 200 status.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *StatusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.bytesWritten += int64(n)
	return n, err
}

func (sr *StatusRecorder) Status() int { return sr.status }

func (sr *StatusRecorder) BytesWritten() int64 { return sr.bytesWritten }

// Request details are only known once chi has routed the request, so these
// helpers must run after next.ServeHTTP returns.

// routeOf returns the matched chi pattern, or "unmatched" for 404s.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// sessionOf returns the storefront session addressed by the request, if any.
func sessionOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.URLParam("sessionID")
	}
	return ""
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// opsRoute reports health, scrape and debug endpoints, which are kept out of the
// request metrics.
func opsRoute(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/health/") || strings.HasPrefix(route, "/debug/")
}

// HTTPObs records request metrics for the storefront API.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware counts requests by route and status class and times them.
// Requests addressing a session are also counted per route.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(recorder, r)
		o.Metrics.InFlight.Dec()

		route := routeOf(r)
		if opsRoute(route) {
			return
		}
		class := statusClass(recorder.Status())
		o.Metrics.ReqTotal.WithLabelValues(r.Method, route, class).Inc()
		o.Metrics.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
		if sessionOf(r) != "" {
			o.Metrics.SessionRequests.WithLabelValues(route, class).Inc()
		}
	})
}

// TracingMiddleware opens a server span per request. The span is renamed to
// the route pattern and tagged with the session id once routing is done.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("storefront.http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		recorder := NewStatusRecorder(w)
		r = r.WithContext(ctx)
		next.ServeHTTP(recorder, r)

		route := routeOf(r)
		span.SetName(r.Method + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", recorder.Status()),
		}
		if id := middleware.GetReqID(ctx); id != "" {
			attrs = append(attrs, attribute.String("http.request_id", id))
		}
		if id := sessionOf(r); id != "" {
			attrs = append(attrs, attribute.String("storefront.session_id", id))
		}
		span.SetAttributes(attrs...)
		if recorder.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.Status()))
		}
	})
}
