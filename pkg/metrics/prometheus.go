package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	valAccuracy *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courtcast_predictions_total",
				Help: "Total number of predictions served, by mode",
			},
			[]string{"mode"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courtcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		valAccuracy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "courtcast_validation_accuracy",
				Help: "Held-out accuracy of the latest training run per model family",
			},
			[]string{"family"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courtcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPrediction records a served prediction by mode (model or heuristic).
func (r *Recorder) RecordPrediction(mode string) {
	r.predictions.WithLabelValues(mode).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordValidationAccuracy records held-out accuracy for a model family.
func (r *Recorder) RecordValidationAccuracy(family string, acc float64) {
	r.valAccuracy.WithLabelValues(family).Set(acc)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
