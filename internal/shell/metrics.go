package shell

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "dong"

// Metrics counts attempts and runs. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates the runner collectors and registers them on reg.
// Passing nil creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "shell",
			Name:      "attempts_total",
			Help:      "Process invocations by outcome (success, failure, error).",
		}, []string{"outcome"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "shell",
			Name:      "runs_total",
			Help:      "Run calls by outcome (success, exhausted, cancelled).",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "shell",
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of a single process invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Attempts, m.Runs, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register shell metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeAttempt(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(outcome).Inc()
	m.Duration.Observe(seconds)
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps everything gathered by g in the Prometheus text format,
// for pickup by a node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
