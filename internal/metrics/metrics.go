// Package metrics holds the Prometheus collectors of a sweepgrid process.
//
// Collectors live on their own registry so tests and embedded engines do not
// collide on the global one. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sweepgrid"

// Lookup outcomes used as the "result" label of the lookup counter.
const (
	LookupHit      = "hit"
	LookupReserved = "reserved"
	LookupInFlight = "in_flight"
	LookupError    = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec
	cacheReclaims    prometheus.Counter
	cacheStoreErrors *prometheus.CounterVec
	instances        *prometheus.CounterVec
	instanceDuration *prometheus.HistogramVec
	runs             *prometheus.CounterVec
	busyWorkers      prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by outcome.",
		}, []string{"result"}),
		cacheReclaims: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "reclaims_total",
			Help:      "Reservations reclaimed after the holder exceeded the reservation timeout.",
		}),
		cacheStoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "store_errors_total",
			Help:      "Failed cache store operations by operation.",
		}, []string{"op"}),
		instances: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "instances_total",
			Help:      "Instances reaching a terminal state, by state.",
		}, []string{"state"}),
		instanceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "instance_duration_seconds",
			Help:      "Wall time of executed instances, by node.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		}, []string{"node"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by status.",
		}, []string{"status"}),
		busyWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "busy_workers",
			Help:      "Workers currently processing an instance.",
		}),
	}
}

// Registry exposes the underlying registry.
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

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheReclaim() {
	if m == nil {
		return
	}
	m.cacheReclaims.Inc()
}

func (m *Metrics) CacheStoreError(op string) {
	if m == nil {
		return
	}
	m.cacheStoreErrors.WithLabelValues(op).Inc()
}

// InstanceFinished counts a terminal transition. A zero duration is not
// observed, so cache hits and blocked instances stay out of the histogram.
func (m *Metrics) InstanceFinished(node, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.instances.WithLabelValues(state).Inc()
	if d > 0 {
		m.instanceDuration.WithLabelValues(node).Observe(d.Seconds())
	}
}

func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) WorkerBusy() {
	if m == nil {
		return
	}
	m.busyWorkers.Inc()
}

func (m *Metrics) WorkerIdle() {
	if m == nil {
		return
	}
	m.busyWorkers.Dec()
}
