package metric

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crudkv"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageOps      *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StorageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage operations by operation and result.",
		}, []string{"op", "result"}),
		StorageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"op"}),
	}

	reg.MustRegister(r.RequestsTotal, r.RequestDuration, r.StorageOps, r.StorageDuration)
	return r
}

// Registerer exposes the underlying registry for components that register
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, route string, status int) {
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveRequestDuration records HTTP request latency.
func (r *Registry) ObserveRequestDuration(method, route string, elapsed time.Duration) {
	r.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveHTTP records both request metrics in one call.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.RecordRequest(method, route, status)
	r.ObserveRequestDuration(method, route, elapsed)
}

// ObserveStorage records one storage operation. It satisfies
// storage.Observer.
func (r *Registry) ObserveStorage(op, result string, elapsed time.Duration) {
	r.StorageOps.WithLabelValues(op, result).Inc()
	r.StorageDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:          r.registry,
		EnableOpenMetrics: true,
	})
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}
