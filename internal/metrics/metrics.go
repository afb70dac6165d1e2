package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbot",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	chatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbot",
			Name:      "chat_messages_total",
			Help:      "Chat messages processed, by conversation stage.",
		},
		[]string{"stage"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbot",
			Name:      "bookings_created_total",
			Help:      "Bookings persisted through the chat flow.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbot",
			Name:      "notifications_total",
			Help:      "Booking notifications by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, chatMessages, bookingsCreated, notifications)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncChatMessage counts one processed chat message in the given stage.
func IncChatMessage(stage string) {
	chatMessages.WithLabelValues(stage).Inc()
}

// IncBookingCreated counts one persisted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncNotification counts one notification attempt ("sent" or "failed").
func IncNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}
