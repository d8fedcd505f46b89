package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	limiterWait     *prometheus.HistogramVec
	periodDuration  *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockprob_provider_calls_total",
				Help: "Total number of market data provider calls",
			},
			[]string{"api", "result"},
		),
		providerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockprob_provider_call_duration_seconds",
				Help:    "Duration of market data provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),
		limiterWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockprob_limiter_wait_seconds",
				Help:    "Time spent waiting for a rate limiter slot",
				Buckets: []float64{0, .01, .1, .5, 1, 5, 15, 30, 60},
			},
			[]string{"limiter"},
		),
		periodDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockprob_period_analysis_duration_seconds",
				Help:    "Duration of one instrument/period analysis",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"period"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockprob_cache_lookups_total",
				Help: "Cache lookups by layer and outcome",
			},
			[]string{"layer", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockprob_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordProviderCall records one provider call and its latency.
func (r *Recorder) RecordProviderCall(api, result string, seconds float64) {
	r.providerCalls.WithLabelValues(api, result).Inc()
	r.providerLatency.WithLabelValues(api).Observe(seconds)
}

// RecordLimiterWait records time spent blocked in a limiter.
func (r *Recorder) RecordLimiterWait(limiter string, seconds float64) {
	r.limiterWait.WithLabelValues(limiter).Observe(seconds)
}

// RecordPeriodDuration records how long one period analysis took.
func (r *Recorder) RecordPeriodDuration(period string, seconds float64) {
	r.periodDuration.WithLabelValues(period).Observe(seconds)
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(layer string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(layer, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordProviderCall(string, string, float64) {}
func (Nop) RecordLimiterWait(string, float64)          {}
func (Nop) RecordPeriodDuration(string, float64)       {}
func (Nop) RecordCache(string, bool)                   {}
func (Nop) RecordError(string)                         {}
