// Package metrics records download outcomes as Prometheus metrics. A
// Metrics value is an engine.Observer; its registry backs the /metrics
// endpoint of the status server and the textfile export.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adamwoolhether/bookfetch/engine"
)

const namespace = "bookfetch"

// OK labels a successful attempt in bookfetch_attempts_total.
const OK = "ok"

// Metrics holds the Prometheus collectors of one run. It implements
// engine.Observer, so the engine feeds it directly.
type Metrics struct {
	registry *prometheus.Registry

	tasks    *prometheus.CounterVec
	bytes    prometheus.Counter
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
}

// New registers the bookfetch collectors on a fresh registry. With
// runtime set the Go runtime and process collectors are added too.
func New(runtime bool) *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Finished tasks by final status.",
		}, []string{"status"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes written by completed downloads.",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Fetch attempts by outcome, either ok or the failure kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time from dispatch to a final status.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	m.registry.MustRegister(m.tasks, m.bytes, m.attempts, m.duration)
	if runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// Expose every label value from the start so rates work on the
	// first scrape.
	for _, s := range []engine.Status{engine.Completed, engine.Skipped, engine.Failed} {
		m.tasks.WithLabelValues(s.String())
	}

	return &m
}

// Attempt counts one fetch attempt.
func (m *Metrics) Attempt(err *engine.TaskError) {
	kind := OK
	if err != nil {
		kind = err.Kind.String()
	}
	m.attempts.WithLabelValues(kind).Inc()
}

// Finished counts a task that reached its final status. Tasks cancelled
// before dispatch have no duration and are left out of the histogram.
func (m *Metrics) Finished(t engine.Task, elapsed time.Duration) {
	m.tasks.WithLabelValues(t.Status.String()).Inc()

	if t.Status == engine.Completed {
		m.bytes.Add(float64(t.BytesTransferred))
	}
	if elapsed > 0 {
		m.duration.Observe(elapsed.Seconds())
	}
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteFile writes the current values to path in the text format read by
// the node exporter's textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
