// Package metrics holds the Prometheus collectors of the picture service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PictureUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "student_picture_uploads_total",
			Help: "Picture uploads by result",
		},
		[]string{"result"},
	)

	StaleCleanups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "student_picture_stale_cleanups_total",
			Help: "Deletions of replaced pictures by outcome",
		},
		[]string{"source", "outcome"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
