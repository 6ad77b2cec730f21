package manager

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// metricQueries counts queries sent to the store, by query form
	metricQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skosd_store_queries_total",
			Help: "Total number of queries sent to the triple store",
		},
		[]string{"form"},
	)

	// metricUpdates counts writes sent to the store, by kind of write
	metricUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skosd_store_updates_total",
			Help: "Total number of updates sent to the triple store",
		},
		[]string{"kind"},
	)

	metricTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skosd_store_timeouts_total",
			Help: "Total number of timeouts reported by the triple store",
		},
	)

	metricRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skosd_store_retries_total",
			Help: "Total number of retried store requests",
		},
	)
)

func init() {
	prometheus.MustRegister(metricQueries)
	prometheus.MustRegister(metricUpdates)
	prometheus.MustRegister(metricTimeouts)
	prometheus.MustRegister(metricRetries)
}
