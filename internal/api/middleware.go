package api

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"rentmyparking/internal/metrics"
)

// PrometheusMiddleware records request counts and latency per route
// template. httpsnoop keeps the writer hijackable for WebSocket upgrades.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		metrics.RequestsTotal.With(prometheus.Labels{
			"method": r.Method,
			"path":   path,
			"status": strconv.Itoa(m.Code),
		}).Inc()

		metrics.ResponseTime.With(prometheus.Labels{
			"method": r.Method,
			"path":   path,
		}).Observe(m.Duration.Seconds())
	})
}
