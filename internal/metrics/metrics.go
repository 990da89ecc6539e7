package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Technical metrics
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	ResponseTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_time_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"method", "path"})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "subscriptions_active",
		Help: "Number of open subscription handles",
	})

	// Business metrics
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_searches_total",
		Help: "Total number of parking searches by outcome",
	}, []string{"outcome"})

	GeocodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_failures_total",
		Help: "Geocoding failures, by city lookup or listing address",
	}, []string{"scope"})

	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_requests_total",
		Help: "Reservation requests entering each status",
	}, []string{"status"})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_reminders_total",
		Help: "Total number of pending-request reminders sent",
	})
)
