// Package metrics records run results as Prometheus metrics and writes them
// in the node_exporter textfile format, so a scheduled run can be scraped
// after it exits.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/EcMarius/secprobe/pkg/probe"
	"github.com/EcMarius/secprobe/pkg/report"
)

// Verdict label values.
const (
	VerdictVulnerable = "vulnerable"
	VerdictSecure     = "secure"
)

// Recorder collects run metrics on a private registry. A nil *Recorder
// ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	probesTotal     *prometheus.CounterVec
	suiteErrors     *prometheus.CounterVec
	suiteDuration   *prometheus.GaugeVec
	vulnerabilities *prometheus.GaugeVec
	runDuration     prometheus.Gauge
	lastRun         prometheus.Gauge
}

// New creates a recorder whose metrics carry target as a constant label.
func New(target string) (*Recorder, error) {
	labels := prometheus.Labels{"target": target}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "secprobe_probes_total",
			Help:        "Probes executed, by suite and verdict",
			ConstLabels: labels,
		}, []string{"suite", "verdict"}),
		suiteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "secprobe_suite_errors_total",
			Help:        "Suites that failed setup or were aborted",
			ConstLabels: labels,
		}, []string{"suite"}),
		suiteDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "secprobe_suite_duration_seconds",
			Help:        "Wall time of the last run of each suite",
			ConstLabels: labels,
		}, []string{"suite"}),
		vulnerabilities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "secprobe_vulnerabilities",
			Help:        "Vulnerable records in the last run of each suite",
			ConstLabels: labels,
		}, []string{"suite"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "secprobe_run_duration_seconds",
			Help:        "Wall time of the whole run",
			ConstLabels: labels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "secprobe_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: labels,
		}),
	}

	collectors := []prometheus.Collector{
		r.probesTotal,
		r.suiteErrors,
		r.suiteDuration,
		r.vulnerabilities,
		r.runDuration,
		r.lastRun,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRecord counts one probe verdict.
func (r *Recorder) ObserveRecord(suite string, rec probe.Record) {
	if r == nil {
		return
	}
	verdict := VerdictSecure
	if rec.Success {
		verdict = VerdictVulnerable
	}
	r.probesTotal.WithLabelValues(suite, verdict).Inc()
}

// ObserveSuite records a finished suite.
func (r *Recorder) ObserveSuite(run report.SuiteRun) {
	if r == nil {
		return
	}
	r.suiteDuration.WithLabelValues(run.Name).Set(run.Duration.Seconds())
	r.vulnerabilities.WithLabelValues(run.Name).Set(float64(run.VulnerableCount()))
	if run.Error != "" {
		r.suiteErrors.WithLabelValues(run.Name).Inc()
	}
}

// ObserveReport records the sealed run.
func (r *Recorder) ObserveReport(rep report.RunReport) {
	if r == nil {
		return
	}
	r.runDuration.Set(rep.Duration().Seconds())
	r.lastRun.Set(float64(rep.FinishedAt.Unix()))
}

// WriteTextfile writes the current metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
