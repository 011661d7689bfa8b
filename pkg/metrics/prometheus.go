package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"EquityLens/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerRequests   *prometheus.CounterVec
	retryWaitSeconds   *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	pipelineDuration   prometheus.Histogram
	compositeScore     *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		providerRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitylens_provider_requests_total",
				Help: "Total provider requests by outcome",
			},
			[]string{"provider", "category", "outcome"},
		),
		retryWaitSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "equitylens_retry_wait_seconds",
				Help:    "Seconds spent waiting between retry attempts",
				Buckets: []float64{1, 2, 5, 10, 15, 30},
			},
			[]string{"provider"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitylens_cache_lookups_total",
				Help: "Snapshot cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		validationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitylens_validation_failures_total",
				Help: "Records dropped during normalization",
			},
			[]string{"provider"},
		),
		pipelineDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "equitylens_pipeline_duration_seconds",
				Help:    "Duration of full symbol aggregation runs",
				Buckets: prometheus.DefBuckets,
			},
		),
		compositeScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "equitylens_composite_score",
				Help: "Latest composite investment score per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordProviderRequest records one provider request outcome.
func (r *Recorder) RecordProviderRequest(provider string, category models.Category, outcome string) {
	r.providerRequests.WithLabelValues(provider, string(category), outcome).Inc()
}

// RecordRetryWait records seconds spent waiting before a retry.
func (r *Recorder) RecordRetryWait(provider string, seconds float64) {
	r.retryWaitSeconds.WithLabelValues(provider).Observe(seconds)
}

// RecordCacheLookup records a snapshot cache hit or miss.
func (r *Recorder) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordValidationFailure records one dropped record.
func (r *Recorder) RecordValidationFailure(provider string) {
	r.validationFailures.WithLabelValues(provider).Inc()
}

// RecordPipelineDuration records one aggregation run's duration in seconds.
func (r *Recorder) RecordPipelineDuration(seconds float64) {
	r.pipelineDuration.Observe(seconds)
}

// RecordCompositeScore records the latest composite score for a symbol.
func (r *Recorder) RecordCompositeScore(symbol string, value float64) {
	r.compositeScore.WithLabelValues(symbol).Set(value)
}
