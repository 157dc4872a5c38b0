package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/ports"
)

const namespace = "threatingest"

// Recorder counts delivery outcomes in its own registry so a run can dump
// them to a node-exporter textfile.
type Recorder struct {
	registry  *prometheus.Registry
	attempted *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	skipped   *prometheus.CounterVec
}

var _ ports.MetricsRecorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attempted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_attempted_total",
			Help:      "Records handed to a sink.",
		}, []string{"target"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_delivered_total",
			Help:      "Records accepted by a sink.",
		}, []string{"target"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_failed_total",
			Help:      "Records that could not be encoded or delivered.",
		}, []string{"target"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_skipped_total",
			Help:      "Sources skipped because their input was missing.",
		}, []string{"source"}),
	}
	r.registry.MustRegister(r.attempted, r.delivered, r.failed, r.skipped)
	return r
}

// Registry exposes the underlying registry (e.g. for promhttp).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveBatch(result domain.BatchResult) {
	r.attempted.WithLabelValues(result.Target).Add(float64(result.Attempted))
	r.delivered.WithLabelValues(result.Target).Add(float64(result.Succeeded))
	r.failed.WithLabelValues(result.Target).Add(float64(len(result.Failures)))
}

func (r *Recorder) ObserveSkipped(source string) {
	r.skipped.WithLabelValues(source).Inc()
}

// WriteTextfile stores the current values in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
