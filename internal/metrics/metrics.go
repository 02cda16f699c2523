// Package metrics exposes Prometheus counters and histograms for inference.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inference kinds used as the "kind" label.
const (
	KindImage         = "image"
	KindQuestionnaire = "questionnaire"
)

// Recorder records inference outcomes. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	errors      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New creates a Recorder backed by its own registry, with Go runtime and
// process collectors registered alongside.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osteo",
			Name:      "predictions_total",
			Help:      "Completed predictions by kind and resulting label.",
		}, []string{"kind", "label"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osteo",
			Name:      "prediction_errors_total",
			Help:      "Failed predictions by kind and failure reason.",
		}, []string{"kind", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "osteo",
			Name:      "inference_duration_seconds",
			Help:      "Classifier call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
	}
	reg.MustRegister(
		r.predictions,
		r.errors,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Prediction counts a successful prediction.
func (r *Recorder) Prediction(kind, label string) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(kind, label).Inc()
}

// Failure counts a failed prediction.
func (r *Recorder) Failure(kind, reason string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(kind, reason).Inc()
}

// ObserveInference records how long a classifier call took.
func (r *Recorder) ObserveInference(kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(kind).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
