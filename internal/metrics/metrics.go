// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	Registry *prometheus.Registry

	commits         *prometheus.CounterVec
	conflictRetries prometheus.Counter
	dispatches      *prometheus.CounterVec
	commissions     *prometheus.CounterVec
	idempotency     *prometheus.CounterVec
	workerDropped   prometheus.Counter
}

// New creates the collectors on a fresh registry, with Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commits_total",
			Help: "Ledger commits by entry type and result.",
		}, []string{"type", "result"}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "conflict_retries_total",
			Help: "Commit attempts retried after a concurrent modification.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notification_dispatches_total",
			Help: "Notification delivery attempts by channel and resulting status.",
		}, []string{"channel", "status"}),
		commissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commissions_total",
			Help: "Commission routing outcomes.",
		}, []string{"result"}),
		idempotency: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "idempotency_admissions_total",
			Help: "Idempotency guard decisions.",
		}, []string{"decision"}),
		workerDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "worker_jobs_dropped_total",
			Help: "Background jobs dropped because the queue was full.",
		}),
	}
	reg.MustRegister(m.commits, m.conflictRetries, m.dispatches, m.commissions, m.idempotency, m.workerDropped)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) Commit(txType, result string) {
	if m != nil {
		m.commits.WithLabelValues(txType, result).Inc()
	}
}

func (m *Metrics) ConflictRetry() {
	if m != nil {
		m.conflictRetries.Inc()
	}
}

func (m *Metrics) Dispatch(channel, status string) {
	if m != nil {
		m.dispatches.WithLabelValues(channel, status).Inc()
	}
}

func (m *Metrics) Commission(result string) {
	if m != nil {
		m.commissions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Admission(decision string) {
	if m != nil {
		m.idempotency.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) WorkerDropped() {
	if m != nil {
		m.workerDropped.Inc()
	}
}
