package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	abstentions   *prometheus.CounterVec
	evaluations   *prometheus.CounterVec
	unresolved    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	hitRate       *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_predictions_total",
				Help: "Total number of published predictions",
			},
			[]string{"strategy", "symbol"},
		),
		abstentions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_abstentions_total",
				Help: "Total number of strategy abstentions",
			},
			[]string{"strategy", "symbol"},
		),
		evaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_evaluations_total",
				Help: "Total number of evaluated predictions",
			},
			[]string{"strategy", "outcome"},
		),
		unresolved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_unresolved_total",
				Help: "Evaluations deferred for missing realized prices",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalengine_cycle_duration_seconds",
				Help:    "Duration of engine cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"cycle"},
		),
		hitRate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalengine_strategy_hit_rate",
				Help: "Rolling hit rate per strategy and scope",
			},
			[]string{"strategy", "scope"},
		),
	}
}

// RecordPrediction records a published prediction.
func (r *Recorder) RecordPrediction(strategy, symbol string) {
	r.predictions.WithLabelValues(strategy, symbol).Inc()
}

// RecordAbstention records a strategy abstaining for an instrument.
func (r *Recorder) RecordAbstention(strategy, symbol string) {
	r.abstentions.WithLabelValues(strategy, symbol).Inc()
}

// RecordEvaluation records one reconciled prediction.
func (r *Recorder) RecordEvaluation(strategy string, correct bool) {
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	r.evaluations.WithLabelValues(strategy, outcome).Inc()
}

// RecordUnresolved records an evaluation deferred to the next pass.
func (r *Recorder) RecordUnresolved(symbol string) {
	r.unresolved.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCycleDuration records the wall time of one engine cycle.
func (r *Recorder) RecordCycleDuration(cycle string, seconds float64) {
	r.cycleDuration.WithLabelValues(cycle).Observe(seconds)
}

// RecordHitRate records the rolling hit rate for a bucket.
func (r *Recorder) RecordHitRate(strategy, scope string, rate float64) {
	r.hitRate.WithLabelValues(strategy, scope).Set(rate)
}
