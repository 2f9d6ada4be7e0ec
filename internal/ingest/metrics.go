package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	sources  prometheus.Counter
	rowsRead prometheus.Counter
	rowsKept prometheus.Counter
}

// newMetrics creates the ingestion counters on reg. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		sources: factory.NewCounter(prometheus.CounterOpts{
			Name: "gaiaoffline_ingest_sources_total",
			Help: "Total number of archive sources ingested",
		}),
		rowsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "gaiaoffline_ingest_rows_read_total",
			Help: "Total number of chunk rows decoded",
		}),
		rowsKept: factory.NewCounter(prometheus.CounterOpts{
			Name: "gaiaoffline_ingest_rows_kept_total",
			Help: "Total number of rows passing the magnitude limit",
		}),
	}
}
