// Package metrics exposes Prometheus metrics for the gateway.
//
// Setup builds the collectors and feeds them from the event bus, so the
// server, executor and REST client stay free of metrics code.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/taskgraph/internal/eventbus"
	events "github.com/hanpama/taskgraph/internal/events"
)

const namespace = "taskgraph"

// Metrics holds the gateway collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	BackendCalls      *prometheus.CounterVec
	BackendDuration   *prometheus.HistogramVec
}

// Setup registers the gateway collectors with reg, along with the Go runtime
// and process collectors, and subscribes them to the event bus. A nil reg
// gets a fresh registry.
func Setup(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operations_total",
				Help:      "Total number of GraphQL operations executed",
			},
			[]string{"type", "name"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operation_duration_seconds",
				Help:      "GraphQL operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		OperationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "errors_total",
				Help:      "Total number of errors returned by GraphQL operations",
			},
			[]string{"type", "name"},
		),
		BackendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "calls_total",
				Help:      "Total number of task service calls",
			},
			[]string{"method", "status"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "call_duration_seconds",
				Help:      "Task service call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Operations,
		m.OperationDuration,
		m.OperationErrors,
		m.BackendCalls,
		m.BackendDuration,
	)
	m.register()
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		m.HTTPRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
		m.HTTPDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		name := e.OperationName
		if name == "" {
			name = "anonymous"
		}
		m.Operations.WithLabelValues(e.OperationType, name).Inc()
		m.OperationDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		if len(e.Errors) > 0 {
			m.OperationErrors.WithLabelValues(e.OperationType, name).Add(float64(len(e.Errors)))
		}
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RESTCallFinish) {
		// Transport failures never produced a status code.
		status := "error"
		if e.Err == nil {
			status = strconv.Itoa(e.Status)
		}
		m.BackendCalls.WithLabelValues(e.Method, status).Inc()
		m.BackendDuration.WithLabelValues(e.Method).Observe(e.Duration.Seconds())
	})
}
