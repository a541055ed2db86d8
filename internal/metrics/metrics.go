// Package metrics exposes Prometheus collectors for request and delivery
// instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videograb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videograb_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Delivery metrics
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videograb_deliveries_total",
			Help: "Total number of video deliveries by path and outcome",
		},
		[]string{"path", "status"},
	)

	DeliveryBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videograb_delivery_bytes_total",
			Help: "Total number of media bytes sent to callers",
		},
	)

	ProxyFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videograb_proxy_fallbacks_total",
			Help: "Direct-proxy attempts that fell back to fetch-transcode",
		},
	)

	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videograb_transcode_duration_seconds",
			Help:    "Fetch-transcode pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)
