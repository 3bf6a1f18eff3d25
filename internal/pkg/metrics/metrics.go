package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	paymentNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuscircle_payment_notifications_total",
		Help: "Payment gateway notifications by outcome",
	}, []string{
		"outcome", // processed, duplicate, stale, invalid_signature, invalid_payload, not_found, error
		"status",  // mapped transaction status, empty when rejected early
	})

	paymentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuscircle_payment_transitions_total",
		Help: "Transactions moved out of PENDING",
	}, []string{"item_type", "status"})

	paymentAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuscircle_payment_amount_total",
		Help: "Completed payment volume in the smallest currency unit",
	}, []string{"item_type"})

	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campuscircle_payment_reconcile_duration_seconds",
		Help:    "Time spent reconciling one notification",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"outcome"})

	outboxRelayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuscircle_outbox_relayed_total",
		Help: "Outbox events handed to the job queue",
	}, []string{"kind", "result"})

	sideEffectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuscircle_side_effects_total",
		Help: "Dispatched side effects (realtime, email, archive) by result",
	}, []string{"kind", "result"})
)

// RecordNotification counts one handled notification.
func RecordNotification(outcome, status string, seconds float64) {
	paymentNotificationsTotal.WithLabelValues(outcome, status).Inc()
	reconcileDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordTransition counts a PENDING to terminal move. Only completed
// payments add to the volume counter.
func RecordTransition(itemType, status string, amount int64, completed bool) {
	paymentTransitionsTotal.WithLabelValues(itemType, status).Inc()
	if completed {
		paymentAmountTotal.WithLabelValues(itemType).Add(float64(amount))
	}
}

// RecordOutboxRelay counts outbox events relayed (result ok|error).
func RecordOutboxRelay(kind, result string) {
	outboxRelayedTotal.WithLabelValues(kind, result).Inc()
}

// RecordSideEffect counts a dispatched side effect (result ok|error|skipped).
func RecordSideEffect(kind, result string) {
	sideEffectsTotal.WithLabelValues(kind, result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
