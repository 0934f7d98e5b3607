// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ActivityRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_activity_recorded_total",
		Help: "Total number of activity rows written.",
	})

	ActivityFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_activity_failures_total",
			Help: "Total number of activity rows lost, by reason.",
		},
		[]string{"reason"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_image_uploads_total",
			Help: "Total number of image upload attempts by outcome.",
		},
		[]string{"outcome"},
	)
)
