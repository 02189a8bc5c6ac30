package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		requestsProcessedTotal,
		statusRefreshedTotal,
	)
}

var (
	requestsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_requests_processed_total",
			Help: "Subscription requests moved out of pending, by resulting status.",
		},
		[]string{"status"}, // 'approved', 'rejected'
	)

	statusRefreshedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_status_refreshed_total",
			Help: "Membership records whose cached status was recomputed by the refresher.",
		},
	)
)

func IncRequestProcessed(status string) {
	requestsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func AddStatusRefreshed(count int) {
	statusRefreshedTotal.Add(float64(count))
}
