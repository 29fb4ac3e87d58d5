// Package metrics exposes Prometheus counters and histograms for HTTP traffic
// and the order lifecycle, scraped from /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flipflop"

// Saga run outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
)

// Registry owns every collector of the process. Each Registry has its own
// prometheus.Registry, so tests can create as many as they like.
type Registry struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	sagaRuns          *prometheus.CounterVec
	sagaDuration      *prometheus.HistogramVec
	sagaCompensations *prometheus.CounterVec
	sagaRetries       *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	orderValue        prometheus.Counter

	webhooks      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	outboxBatch   *prometheus.CounterVec
}

// New creates a registry with Go runtime and process collectors attached
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by method, route template and status code",
	}, []string{"method", "route", "status"})
	r.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.sagaRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "saga", Name: "runs_total",
		Help: "Order saga runs by saga and outcome",
	}, []string{"saga", "outcome"})
	r.sagaDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "saga", Name: "duration_seconds",
		Help:    "Order saga run latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"saga"})
	r.sagaCompensations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "saga", Name: "compensations_total",
		Help: "Compensating actions by saga, step and result",
	}, []string{"saga", "step", "result"})
	r.sagaRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "saga", Name: "conflict_retries_total",
		Help: "Reload-and-retry cycles caused by optimistic lock conflicts",
	}, []string{"saga"})
	r.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "order", Name: "transitions_total",
		Help: "Order status transitions",
	}, []string{"from", "to"})
	r.orderValue = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "order", Name: "placed_value_czk_total",
		Help: "Sum of placed order totals",
	})

	r.webhooks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "payment", Name: "webhooks_total",
		Help: "Payment notifications by provider and status",
	}, []string{"provider", "status"})
	r.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "notification", Name: "sent_total",
		Help: "Notification deliveries by type and result",
	}, []string{"type", "result"})
	r.cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cache", Name: "requests_total",
		Help: "Product cache lookups by tier and result",
	}, []string{"tier", "result"})
	r.outboxBatch = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "outbox", Name: "entries_total",
		Help: "Outbox entries processed by result",
	}, []string{"result"})

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpDuration,
		r.sagaRuns, r.sagaDuration, r.sagaCompensations, r.sagaRetries,
		r.transitions, r.orderValue,
		r.webhooks, r.notifications, r.cacheRequests, r.outboxBatch,
	)
	return r
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveHTTP records one served request. route must be the route template,
// never the raw path.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SagaRun records the outcome and latency of one saga run
func (r *Registry) SagaRun(saga, outcome string, elapsed time.Duration) {
	r.sagaRuns.WithLabelValues(saga, outcome).Inc()
	r.sagaDuration.WithLabelValues(saga).Observe(elapsed.Seconds())
}

// Compensation records one compensating action
func (r *Registry) Compensation(saga, step string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.sagaCompensations.WithLabelValues(saga, step, result).Inc()
}

// ConflictRetry records a reload after an optimistic lock conflict
func (r *Registry) ConflictRetry(saga string) {
	r.sagaRetries.WithLabelValues(saga).Inc()
}

// Transition records an order status change
func (r *Registry) Transition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// OrderPlaced adds a placed order's total
func (r *Registry) OrderPlaced(total float64) {
	r.orderValue.Add(total)
}

// Webhook records a received payment notification
func (r *Registry) Webhook(provider, status string) {
	r.webhooks.WithLabelValues(provider, status).Inc()
}

// Notification records a notification delivery attempt
func (r *Registry) Notification(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	r.notifications.WithLabelValues(kind, result).Inc()
}

// CacheLookup records a product cache hit or miss on one tier
func (r *Registry) CacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(tier, result).Inc()
}

// OutboxProcessed records processed outbox entries by result
// (published, retried, dead)
func (r *Registry) OutboxProcessed(result string, n int) {
	if n <= 0 {
		return
	}
	r.outboxBatch.WithLabelValues(result).Add(float64(n))
}
