package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bandview"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	bandsComputed *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastClose     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	cacheRequests *prometheus.CounterVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers on reg. A nil reg creates unregistered collectors.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		bandsComputed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bands_computed_total",
				Help:      "Total number of band series computed",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_close",
				Help:      "Close of the latest bar seen for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Band cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
	}
}

// RecordBandsComputed counts one computation for source.
func (r *Recorder) RecordBandsComputed(source string) {
	r.bandsComputed.WithLabelValues(source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordCache(result string) {
	r.cacheRequests.WithLabelValues(result).Inc()
}
