package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label.
const (
	outcomePlaced       = "placed"
	outcomeRejected     = "rejected"
	outcomeNetwork      = "network_error"
	outcomeEmptyCart    = "empty_cart"
	outcomeUnauthorized = "unauthenticated"
	outcomeBusy         = "already_submitting"
)

var (
	// OrderSubmissions counts order submission attempts by outcome.
	OrderSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_submissions_total",
			Help: "Total number of order submission attempts by outcome",
		},
		[]string{"outcome"},
	)

	// OrderSubmitDuration observes the round trip to the order service.
	OrderSubmitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_order_submit_duration_seconds",
			Help:    "Duration of order submission requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CartMutations counts cart mutations by operation and result.
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

func mutationResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
