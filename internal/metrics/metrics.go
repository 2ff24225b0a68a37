package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "golf_booking",
			Name:      "booking_created_total",
			Help:      "Count of lessons booked by payment type.",
		},
		[]string{"payment_type"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "golf_booking",
			Name:      "booking_rejected_total",
			Help:      "Count of booking attempts rejected by reason.",
		},
		[]string{"reason"},
	)

	availabilityRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "golf_booking",
			Name:      "availability_requests_total",
			Help:      "Count of availability queries.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "golf_booking",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingRejected, availabilityRequests, httpRequests)
	})
}

func IncBookingCreated(paymentType string) {
	bookingCreated.WithLabelValues(paymentType).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncAvailabilityRequest() {
	availabilityRequests.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
