// Package metrics exposes Prometheus collectors for loan operations, store
// retries, the stats cache and the transport layers. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"library-backend/internal/domain"
)

const namespace = "library"

const (
	resultSuccess = "success"
	resultError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	cacheLookup *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	grpcReqs    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome and error kind.",
		}, []string{"operation", "result", "error_kind"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retries_total",
			Help:      "Transactions retried after a transient store conflict.",
		}, []string{"operation"}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_cache_lookups_total",
			Help:      "Stats cache lookups by result.",
		}, []string{"result"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		grpcReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC calls by full method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.operations, m.durations, m.retries, m.cacheLookup, m.httpReqs, m.grpcReqs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation records one finished service call started at start.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.operations.WithLabelValues(operation, resultError, string(domain.KindOf(err))).Inc()
		return
	}
	m.operations.WithLabelValues(operation, resultSuccess, "").Inc()
}

func (m *Metrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookup.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookup.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) ObserveHTTP(method, route string, code int) {
	if m == nil {
		return
	}
	m.httpReqs.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveGRPC(fullMethod, code string) {
	if m == nil {
		return
	}
	m.grpcReqs.WithLabelValues(fullMethod, code).Inc()
}
