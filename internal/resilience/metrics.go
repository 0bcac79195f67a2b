package resilience

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "storefront"

// Collectors for calls to the POS backend. Targets are the HTTPClient and
// Breaker target labels, e.g. "pos-backend" and "pos-backend-orders".
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "breaker_state",
		Help:      "Current breaker state: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "breaker_transition_total",
		Help:      "Breaker state transitions.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "breaker_open_total",
		Help:      "Times a breaker opened.",
	}, []string{"target"})
	OutboundAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "outbound_http_attempts_total",
		Help:      "Outbound attempts by target and outcome (success, failure, rejected).",
	}, []string{"target", "outcome"})
	OutboundLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "outbound_http_attempt_duration_ms",
		Help:      "Latency of single outbound attempts in milliseconds.",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"target", "outcome"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, OutboundAttempts, OutboundLatency)
}
