package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SessionsCreatedTotal counts storefront sessions opened.
	SessionsCreatedTotal prometheus.Counter
	// CartMutationsTotal counts cart actions by action and result.
	CartMutationsTotal *prometheus.CounterVec
	// VoucherAttemptsTotal counts voucher code and discount selection outcomes.
	VoucherAttemptsTotal *prometheus.CounterVec
	// OrdersSubmittedTotal counts checkout submissions by outcome.
	OrdersSubmittedTotal *prometheus.CounterVec
	// OrderSubmitLatency records backend order submission latency in milliseconds.
	OrderSubmitLatency *prometheus.HistogramVec
	// SnapshotRefreshTotal counts catalog snapshot refreshes by result.
	SnapshotRefreshTotal *prometheus.CounterVec
	// SnapshotCacheTotal counts snapshot cache lookups.
	SnapshotCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers storefront Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Number of storefront sessions created.",
		})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart actions by outcome.",
		}, []string{"action", "result"})
		VoucherAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_attempts_total",
			Help:      "Count of voucher code and discount selection outcomes.",
		}, []string{"source", "result"})
		OrdersSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of checkout submissions by outcome.",
		}, []string{"order_type", "payment_method", "result"})
		OrderSubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submit_duration_ms",
			Help:      "Latency of order submission to the POS backend in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"result"})
		SnapshotRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_refresh_total",
			Help:      "Count of catalog snapshot refreshes by result.",
		}, []string{"result"})
		SnapshotCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Count of snapshot cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, SessionsCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SessionsCreatedTotal = v
			}
		})
		for _, vec := range []**prometheus.CounterVec{
			&CartMutationsTotal,
			&VoucherAttemptsTotal,
			&OrdersSubmittedTotal,
			&SnapshotRefreshTotal,
			&SnapshotCacheTotal,
		} {
			target := vec
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
		mustRegisterCollector(reg, OrderSubmitLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				OrderSubmitLatency = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
