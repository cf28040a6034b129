// Package metrics counts run statistics and exports them for the Prometheus
// node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ludo-technologies/covscan/domain"
)

const namespace = "covscan"

// Recorder holds the counters of one run on a private registry
type Recorder struct {
	registry *prometheus.Registry

	reportsProcessed *prometheus.CounterVec
	recordsParsed    prometheus.Counter
	admissible       prometheus.Counter
	malformed        prometheus.Counter
	violations       prometheus.Counter
	lastRun          prometheus.Gauge
	duration         prometheus.Gauge
}

// NewRecorder creates a recorder with its counters registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		reportsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_processed_total",
			Help:      "Coverage reports processed, by outcome.",
		}, []string{"outcome"}),
		recordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "class_records_total",
			Help:      "Class coverage records extracted from reports.",
		}),
		admissible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissible_records_total",
			Help:      "Class records whose coverage fell inside the threshold band.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Summary elements skipped because of an invalid coverage value.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Poor coverage violations emitted.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	r.registry.MustRegister(
		r.reportsProcessed,
		r.recordsParsed,
		r.admissible,
		r.malformed,
		r.violations,
		r.lastRun,
		r.duration,
	)
	return r
}

// Observe adds the counters of a finished run
func (r *Recorder) Observe(resp *domain.CoverageResponse) {
	if resp == nil {
		return
	}
	s := resp.Summary
	r.reportsProcessed.WithLabelValues("parsed").Add(float64(s.ReportsParsed))
	r.reportsProcessed.WithLabelValues("failed").Add(float64(s.ReportsFailed))
	r.recordsParsed.Add(float64(s.RecordsParsed))
	r.admissible.Add(float64(s.AdmissibleRecords))
	r.malformed.Add(float64(s.MalformedRecords))
	r.violations.Add(float64(s.TotalViolations))
	r.duration.Set(float64(resp.DurationMs) / 1000)
	r.lastRun.SetToCurrentTime()
}

// Registry exposes the underlying registry (used by tests)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics in exposition format, atomically
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
