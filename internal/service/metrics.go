package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes booking engine counters on a Prometheus registry.
type BookingMetrics struct {
	Created             prometheus.Counter
	Conflicts           prometheus.Counter
	Busy                prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
}

// NewBookingMetrics registers the booking counters on reg.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_created_total",
			Help: "Appointments successfully booked.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_conflicts_total",
			Help: "Booking attempts rejected for slot conflicts or closed availability.",
		}),
		Busy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_busy_total",
			Help: "Booking attempts that timed out waiting for the slot lock.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications delivered by the dispatcher.",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Notifications the dispatcher gave up on.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Created, m.Conflicts, m.Busy, m.NotificationsSent, m.NotificationsFailed)
	}
	return m
}
