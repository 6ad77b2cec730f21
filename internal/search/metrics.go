package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricCommits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skosd_search_commits_total",
			Help: "Total number of buffered commits to the search index",
		},
	)

	// metricSearches counts queries against the index, by kind of query
	metricSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skosd_search_queries_total",
			Help: "Total number of queries against the search index",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(metricCommits)
	prometheus.MustRegister(metricSearches)
}
