package conesearch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// newLatencyHistogram creates the query latency histogram on reg. A nil
// reg leaves it unregistered.
func newLatencyHistogram(reg prometheus.Registerer) prometheus.Histogram {
	return promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Name:    "gaiaoffline_query_duration_seconds",
		Help:    "Time taken to execute a cone search",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
}
