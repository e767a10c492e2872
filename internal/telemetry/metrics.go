package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	NarrationsCompleted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "narrations_completed_total", Help: "Narrations processed successfully"})
	NarrationsFailed     = prometheus.NewCounter(prometheus.CounterOpts{Name: "narrations_failed_total", Help: "Narrations abandoned after a handled error"})
	NarrationsUnexpected = prometheus.NewCounter(prometheus.CounterOpts{Name: "narrations_unexpected_total", Help: "Narrations abandoned after an unmodeled error"})
	NoWorkTotal          = prometheus.NewCounter(prometheus.CounterOpts{Name: "narrations_no_work_total", Help: "Polls that found the queue empty"})
	ActiveWorkersGauge   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "narration_workers_active", Help: "Pipeline executions currently running"})
	BackoffGauge         = prometheus.NewGauge(prometheus.GaugeOpts{Name: "narration_backoff_seconds", Help: "Current empty-queue backoff duration"})
	SynthesisSeconds     = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "narration_synthesis_seconds",
		Help:    "Wall-clock time spent in TTS synthesis",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			NarrationsCompleted,
			NarrationsFailed,
			NarrationsUnexpected,
			NoWorkTotal,
			ActiveWorkersGauge,
			BackoffGauge,
			SynthesisSeconds,
		)
	})
	return promhttp.Handler()
}
