// Package metrics exposes Prometheus collectors for extraction jobs, file
// pipelines, previews and the daemon API.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "svoextract"

// Metrics groups every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	jobsFinished     *prometheus.CounterVec
	jobDuration      prometheus.Histogram
	filesFinished    *prometheus.CounterVec
	framesExtracted  prometheus.Counter
	artifactsWritten *prometheus.CounterVec
	jobsByStatus     *prometheus.GaugeVec
	activeFiles      prometheus.Gauge
	previewRequests  *prometheus.CounterVec
	apiRequests      *prometheus.CounterVec
}

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Extraction jobs that reached a terminal status, by status.",
		}, []string{"status"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time from job start to terminal status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		filesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_finished_total",
			Help:      "Recording pipelines that finished, by status.",
		}, []string{"status"}),
		framesExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_extracted_total",
			Help:      "Frames extracted across all jobs.",
		}),
		artifactsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Artifacts persisted, by category.",
		}, []string{"category"}),
		jobsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Jobs currently stored, by status.",
		}, []string{"status"}),
		activeFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_file_pipelines",
			Help:      "Recording pipelines currently running.",
		}),
		previewRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preview_requests_total",
			Help:      "Preview requests, by view and result.",
		}, []string{"view", "result"}),
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Daemon API requests, by route and status code.",
		}, []string{"route", "code"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobFinished records a terminal job.
func (m *Metrics) JobFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

// FileStarted marks a recording pipeline as running.
func (m *Metrics) FileStarted() {
	if m == nil {
		return
	}
	m.activeFiles.Inc()
}

// FileFinished records the end of a recording pipeline.
func (m *Metrics) FileFinished(status string, frames int) {
	if m == nil {
		return
	}
	m.activeFiles.Dec()
	m.filesFinished.WithLabelValues(status).Inc()
	if frames > 0 {
		m.framesExtracted.Add(float64(frames))
	}
}

// ArtifactsWritten counts persisted artifacts for a category.
func (m *Metrics) ArtifactsWritten(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.artifactsWritten.WithLabelValues(category).Add(float64(n))
}

// SetJobCounts replaces the per-status job gauge.
func (m *Metrics) SetJobCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.jobsByStatus.Reset()
	for status, n := range counts {
		m.jobsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// PreviewServed records one preview request.
func (m *Metrics) PreviewServed(view string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.previewRequests.WithLabelValues(view, result).Inc()
}

// APIRequest records one API response.
func (m *Metrics) APIRequest(route string, code int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
