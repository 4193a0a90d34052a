package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AddressesProcessed *prometheus.CounterVec
	AddressesTotal     prometheus.Gauge
	ResolveSeconds     prometheus.Histogram
	FallbackLookups    *prometheus.CounterVec
	StoreErrors        prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		AddressesProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_addresses_processed_total",
			Help: "Total number of processed addresses by outcome.",
		}, []string{"status"}),
		AddressesTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geocoding_addresses_in_run",
			Help: "Number of addresses loaded for the current run.",
		}),
		ResolveSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "geocoding_browser_search_duration_seconds",
			Help:    "Duration of a single map search in the browser.",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 20},
		}),
		FallbackLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_fallback_lookups_total",
			Help: "Lookups sent to the fallback provider by outcome.",
		}, []string{"status"}),
		StoreErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoding_store_errors_total",
			Help: "Total number of results that could not be mirrored to the database.",
		}),
	}
}
