package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turfbook",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turfbook",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turfbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	feedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "turfbook",
			Name:      "feed_subscribers",
			Help:      "Currently connected change-feed subscribers.",
		},
	)

	notifyDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turfbook",
			Name:      "notify_deliveries_total",
			Help:      "Operator notification deliveries by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservations, cancellations, httpRequests, feedSubscribers, notifyDeliveries)
	})
}

// IncReservation increments the reservation counter for an outcome label
// (accepted, conflict, invalid, error).
func IncReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

// IncCancellation increments the cancellation counter for an outcome label.
func IncCancellation(outcome string) {
	cancellations.WithLabelValues(outcome).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// FeedSubscriberGauge adjusts the connected-subscriber gauge.
func FeedSubscriberGauge(delta float64) {
	feedSubscribers.Add(delta)
}

// IncNotifyDelivery increments the notify counter for an outcome label.
func IncNotifyDelivery(outcome string) {
	notifyDeliveries.WithLabelValues(outcome).Inc()
}
