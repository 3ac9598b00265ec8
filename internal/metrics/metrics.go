// Package metrics exposes scan measurements in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/buemura/zapscan/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zapscan"

// Recorder collects scan metrics on its own registry, so several
// recorders can coexist in one process (and in tests).
type Recorder struct {
	registry *prometheus.Registry

	scans           *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	phaseDuration   *prometheus.HistogramVec
	phaseFailures   *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	cleanupFailures *prometheus.CounterVec
	jobsRunning     prometheus.Gauge
}

// New creates a recorder. When withRuntime is set, Go runtime and process
// collectors are registered as well.
func New(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Finished scans by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of whole scans.",
			Buckets:   []float64{30, 60, 300, 600, 1800, 3600, 7200},
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each scan phase.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 3, 9),
		}, []string{"phase"}),
		phaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Failed scan phases by error kind.",
		}, []string{"phase", "kind"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts collected from the engine by severity.",
		}, []string{"severity"}),
		cleanupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Suppressed failures while stopping phases or releasing resources.",
		}, []string{"resource"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Scan jobs currently running in the server.",
		}),
	}

	r.registry.MustRegister(r.scans, r.scanDuration, r.phaseDuration, r.phaseFailures,
		r.alerts, r.cleanupFailures, r.jobsRunning)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObservePhase(phase string, d time.Duration, err error) {
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	if err != nil {
		r.phaseFailures.WithLabelValues(phase, scanerr.Kind(err)).Inc()
	}
}

func (r *Recorder) ObserveScan(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = scanerr.Kind(err)
	}
	r.scans.WithLabelValues(outcome).Inc()
	r.scanDuration.Observe(d.Seconds())
}

func (r *Recorder) ObserveAlert(severity types.Severity) {
	r.alerts.WithLabelValues(string(severity)).Inc()
}

func (r *Recorder) ObserveCleanupFailure(resource string) {
	r.cleanupFailures.WithLabelValues(resource).Inc()
}

// SetJobsRunning reports the number of in-flight server jobs.
func (r *Recorder) SetJobsRunning(n int) {
	r.jobsRunning.Set(float64(n))
}
