package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		duplicateResolutionsTotal,
		gatewayCallDuration,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Checkouts by status (initiated/success/failed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// Callbacks or polls that arrived after the checkout was already resolved.
	duplicateResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_duplicate_resolutions_total",
			Help: "Resolution attempts that found the checkout already resolved, by source.",
		},
		[]string{"source"}, // 'callback', 'poll', 'reconciler'
	)

	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_call_duration_seconds",
			Help:    "Latency of payment gateway calls by operation and outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"gateway", "op", "outcome"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncDuplicateResolution(source string) {
	duplicateResolutionsTotal.WithLabelValues(norm(source)).Inc()
}

func ObserveGatewayCall(gateway, op, outcome string, d time.Duration) {
	gatewayCallDuration.WithLabelValues(norm(gateway), norm(op), norm(outcome)).Observe(d.Seconds())
}
