// Package telemetry exposes scheduler activity as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loadwatch"

// Host collection results, used as the result label.
const (
	ResultOK      = "ok"
	ResultConnect = "connect"
	ResultCommand = "command"
	ResultParse   = "parse"
	ResultStore   = "store"
	ResultPanic   = "panic"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cycles          prometheus.Counter
	cyclesSkipped   prometheus.Counter
	cycleDuration   prometheus.Histogram
	lastCycle       prometheus.Gauge
	hosts           prometheus.Gauge
	hostCollections *prometheus.CounterVec
	samplesWritten  prometheus.Counter
	samplesPruned   prometheus.Counter
	pruneFailures   prometheus.Counter
}

// New creates the metrics on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Collection cycles run to completion.",
		}),
		cyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Ticks skipped because the previous cycle was still running.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a collection cycle, retention included.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle finished.",
		}),
		hosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hosts",
			Help:      "Hosts in the registry at the start of the last cycle.",
		}),
		hostCollections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_collections_total",
			Help:      "Per-host collection attempts by result.",
		}, []string{"result"}),
		samplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_written_total",
			Help:      "Samples appended to the store.",
		}),
		samplesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_pruned_total",
			Help:      "Samples deleted by retention.",
		}),
		pruneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prune_failures_total",
			Help:      "Retention sweeps that failed.",
		}),
	}

	m.registry.MustRegister(
		m.cycles, m.cyclesSkipped, m.cycleDuration, m.lastCycle, m.hosts,
		m.hostCollections, m.samplesWritten, m.samplesPruned, m.pruneFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create result series so they read 0 rather than being absent.
	for _, r := range []string{ResultOK, ResultConnect, ResultCommand, ResultParse, ResultStore, ResultPanic} {
		m.hostCollections.WithLabelValues(r)
	}
	return m
}

// Registry returns the registry the metrics live on.
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
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CycleFinished records a completed cycle.
func (m *Metrics) CycleFinished(took time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.cycleDuration.Observe(took.Seconds())
	m.lastCycle.Set(float64(at.UnixNano()) / 1e9)
}

// CycleSkipped records a tick dropped by the overlap guard.
func (m *Metrics) CycleSkipped() {
	if m == nil {
		return
	}
	m.cyclesSkipped.Inc()
}

// HostsListed records the registry size seen by a cycle.
func (m *Metrics) HostsListed(n int) {
	if m == nil {
		return
	}
	m.hosts.Set(float64(n))
}

// HostCollected records one host's outcome. A result of ResultOK also
// counts a written sample.
func (m *Metrics) HostCollected(result string) {
	if m == nil {
		return
	}
	m.hostCollections.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.samplesWritten.Inc()
	}
}

// Pruned records a retention sweep. A non-nil err counts a failure.
func (m *Metrics) Pruned(n int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.pruneFailures.Inc()
		return
	}
	m.samplesPruned.Add(float64(n))
}
