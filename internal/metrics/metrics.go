// Package metrics provides the Prometheus collectors of the attendance pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all attendance pipeline collectors. A nil *Metrics is
// valid and records nothing, so tests and the CLI can skip instrumentation.
type Metrics struct {
	ScanDuration     prometheus.Histogram
	SubScans         prometheus.Counter
	DetectedBoxes    prometheus.Counter
	DetectionErrors  prometheus.Counter
	BoxFailures      *prometheus.CounterVec
	Sessions         *prometheus.CounterVec
	ClassifierCache  *prometheus.CounterVec
	TrainingDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register attendance metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "classroll_scan_duration_seconds",
		Help:    "Wall-clock time of one region scan over a classroom photo.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	})
	m.SubScans = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classroll_subscans_total",
		Help: "Total number of quadrant detector calls.",
	})
	m.DetectedBoxes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classroll_detected_boxes_total",
		Help: "Total number of face boxes returned by region scans, duplicates included.",
	})
	m.DetectionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classroll_quadrant_failures_total",
		Help: "Total number of quadrant detector calls that failed and were skipped.",
	})
	m.BoxFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classroll_box_failures_total",
		Help: "Face boxes dropped before classification, partitioned by stage.",
	}, []string{"stage"})
	m.Sessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classroll_attendance_sessions_total",
		Help: "Attendance-taking sessions partitioned by outcome.",
	}, []string{"result"})
	m.ClassifierCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classroll_classifier_cache_total",
		Help: "Classifier cache lookups partitioned by hit or miss.",
	}, []string{"outcome"})
	m.TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "classroll_training_duration_seconds",
		Help:    "Time taken to fit a section classifier.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ScanDuration.Describe(ch)
	m.SubScans.Describe(ch)
	m.DetectedBoxes.Describe(ch)
	m.DetectionErrors.Describe(ch)
	m.BoxFailures.Describe(ch)
	m.Sessions.Describe(ch)
	m.ClassifierCache.Describe(ch)
	m.TrainingDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.ScanDuration.Collect(ch)
	m.SubScans.Collect(ch)
	m.DetectedBoxes.Collect(ch)
	m.DetectionErrors.Collect(ch)
	m.BoxFailures.Collect(ch)
	m.Sessions.Collect(ch)
	m.ClassifierCache.Collect(ch)
	m.TrainingDuration.Collect(ch)
}

// ObserveScan records the outcome of one region scan.
func (m *Metrics) ObserveScan(d time.Duration, subScans, boxes, failures int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(d.Seconds())
	m.SubScans.Add(float64(subScans))
	m.DetectedBoxes.Add(float64(boxes))
	m.DetectionErrors.Add(float64(failures))
}

// BoxFailed records a box dropped at stage (crop, embed, classify).
func (m *Metrics) BoxFailed(stage string) {
	if m == nil {
		return
	}
	m.BoxFailures.WithLabelValues(stage).Inc()
}

// SessionFinished records an attendance session outcome.
func (m *Metrics) SessionFinished(result string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(result).Inc()
}

// CacheLookup records a classifier cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.ClassifierCache.WithLabelValues(outcome).Inc()
}

// ObserveTraining records how long a classifier took to fit.
func (m *Metrics) ObserveTraining(d time.Duration) {
	if m == nil {
		return
	}
	m.TrainingDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
