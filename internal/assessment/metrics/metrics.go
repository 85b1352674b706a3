package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment pipeline.
type Metrics struct {
	// Search latency by hierarchy ("1", "2", "all")
	SearchLatency *prometheus.HistogramVec

	// Search failures by category
	SearchFailures *prometheus.CounterVec

	// Records evaluated by overall outcome
	RecordOutcomes *prometheus.CounterVec

	// Cache lookups by result ("hit", "miss")
	CacheLookups *prometheus.CounterVec

	// Full assessment latency including retrieval
	AssessLatency prometheus.Histogram
}

// New registers the assessment metrics with reg, or with the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SearchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dqa_search_duration_seconds",
			Help:    "Duration of activity searches by hierarchy",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"hierarchy"}),

		SearchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_search_failures_total",
			Help: "Total failed activity searches by category",
		}, []string{"category"}),

		RecordOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_records_evaluated_total",
			Help: "Total activity records evaluated by overall status",
		}, []string{"status"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_cache_lookups_total",
			Help: "Total report cache lookups by result",
		}, []string{"result"}),

		AssessLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dqa_assess_duration_seconds",
			Help:    "Duration of a full organisation assessment",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveSearchLatency records the duration of one search.
func (m *Metrics) ObserveSearchLatency(hierarchy string, d time.Duration) {
	if m != nil {
		m.SearchLatency.WithLabelValues(hierarchy).Observe(d.Seconds())
	}
}

// IncrementSearchFailure records a failed search.
func (m *Metrics) IncrementSearchFailure(category string) {
	if m != nil {
		m.SearchFailures.WithLabelValues(category).Inc()
	}
}

// AddRecordOutcomes records evaluated records.
func (m *Metrics) AddRecordOutcomes(passed, failed int) {
	if m != nil {
		m.RecordOutcomes.WithLabelValues("pass").Add(float64(passed))
		m.RecordOutcomes.WithLabelValues("fail").Add(float64(failed))
	}
}

// IncrementCacheLookup records a cache hit or miss.
func (m *Metrics) IncrementCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveAssessLatency records the total assessment duration.
func (m *Metrics) ObserveAssessLatency(d time.Duration) {
	if m != nil {
		m.AssessLatency.Observe(d.Seconds())
	}
}
