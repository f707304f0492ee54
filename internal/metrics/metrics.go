package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MembershipTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_membership_transitions_total",
			Help: "Membership state transitions by event",
		},
		[]string{"event"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_bookings_total",
			Help: "Bookings created by kind",
		},
		[]string{"kind"},
	)

	BookingRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_booking_rejections_total",
			Help: "Booking attempts rejected, by reason (overlap, capacity)",
		},
		[]string{"reason"},
	)

	ShiftExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_shift_exchanges_total",
			Help: "Resolved shift exchange requests by outcome",
		},
		[]string{"outcome"},
	)

	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_audit_entries_total",
			Help: "Audit entries written, by subject and action",
		},
		[]string{"subject", "action"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_notifications_total",
			Help: "Notification events by delivery status",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymdesk_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordMembershipTransition(event string) {
	MembershipTransitionsTotal.WithLabelValues(event).Inc()
}

func RecordBooking(kind string) {
	BookingsTotal.WithLabelValues(kind).Inc()
}

func RecordBookingRejection(reason string) {
	BookingRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordShiftExchange(outcome string) {
	ShiftExchangesTotal.WithLabelValues(outcome).Inc()
}

func RecordAuditEntry(subject, action string) {
	AuditEntriesTotal.WithLabelValues(subject, action).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}
