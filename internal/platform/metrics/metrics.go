package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the resolution engine.
type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	PartialResults     prometheus.Counter
	StoreLookupErrors  *prometheus.CounterVec
	SummaryCacheHits   prometheus.Counter
	SummaryCacheMisses prometheus.Counter
}

// New creates and registers all instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseledger_resolutions_total",
			Help: "Identity resolutions performed, by match policy.",
		}, []string{"policy"}),
		ResolutionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseledger_resolution_duration_seconds",
			Help:    "Wall time of a single identity resolution.",
			Buckets: prometheus.DefBuckets,
		}),
		PartialResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseledger_partial_results_total",
			Help: "Resolutions that completed with one or more failed sub-lookups.",
		}),
		StoreLookupErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseledger_store_lookup_errors_total",
			Help: "Store sub-lookup failures, by lookup kind.",
		}, []string{"lookup"}),
		SummaryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseledger_summary_cache_hits_total",
			Help: "Case summary reads served from the Redis cache.",
		}),
		SummaryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseledger_summary_cache_misses_total",
			Help: "Case summary reads that fell through to the store.",
		}),
	}
}

func (m *Metrics) ObserveResolution(policy string, d time.Duration, partial bool) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(policy).Inc()
	m.ResolutionDuration.Observe(d.Seconds())
	if partial {
		m.PartialResults.Inc()
	}
}

func (m *Metrics) IncLookupError(lookup string) {
	if m == nil {
		return
	}
	m.StoreLookupErrors.WithLabelValues(lookup).Inc()
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.SummaryCacheHits.Inc()
}

func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.SummaryCacheMisses.Inc()
}
