package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// metricRequests counts answered api requests, by kind of resource, operation and status code
	metricRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skosd_api_requests_total",
			Help: "Total number of answered api requests",
		},
		[]string{"kind", "operation", "code"},
	)

	metricRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skosd_api_request_duration_seconds",
			Help:    "Duration of api requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(metricRequests)
	prometheus.MustRegister(metricRequestDuration)
}
