// Package metrics holds the Prometheus collectors for the engine and its
// background jobs. Every recorder is nil-safe so components can run without
// a registry in tests.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dispatchiq"

// EngineMetrics records decision outcomes.
type EngineMetrics struct {
	decisions        *prometheus.CounterVec
	deadlineExceeded *prometheus.CounterVec
	auditDropped     prometheus.Counter
	auditFailed      prometheus.Counter
	gateDenied       *prometheus.CounterVec
}

// NewEngineMetrics registers the engine collectors on reg. A nil registerer
// yields a recorder that discards everything.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Decisions produced by the engine.",
	}, []string{"type", "fallback"})
	deadline := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deadline_exceeded_total",
		Help:      "Scorer or optimizer calls abandoned at the deadline.",
	}, []string{"operation"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Audit records dropped because the queue was full.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_append_failures_total",
		Help:      "Audit records the store rejected.",
	})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_denied_total",
		Help:      "Feature checks that denied a tenant.",
	}, []string{"feature"})
	reg.MustRegister(decisions, deadline, dropped, failed, denied)
	return &EngineMetrics{
		decisions:        decisions,
		deadlineExceeded: deadline,
		auditDropped:     dropped,
		auditFailed:      failed,
		gateDenied:       denied,
	}
}

// IncDecision counts one decision of the given type.
func (m *EngineMetrics) IncDecision(decisionType string, fallback bool) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decisionType), strconv.FormatBool(fallback)).Inc()
}

// IncDeadlineExceeded counts an abandoned operation.
func (m *EngineMetrics) IncDeadlineExceeded(operation string) {
	if m == nil || m.deadlineExceeded == nil {
		return
	}
	m.deadlineExceeded.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncAuditDropped counts an audit record lost to a full queue.
func (m *EngineMetrics) IncAuditDropped() {
	if m == nil || m.auditDropped == nil {
		return
	}
	m.auditDropped.Inc()
}

// IncAuditFailed counts an audit record the store rejected.
func (m *EngineMetrics) IncAuditFailed() {
	if m == nil || m.auditFailed == nil {
		return
	}
	m.auditFailed.Inc()
}

// IncGateDenied counts a denied feature check.
func (m *EngineMetrics) IncGateDenied(feature string) {
	if m == nil || m.gateDenied == nil {
		return
	}
	m.gateDenied.WithLabelValues(normalizeLabel(feature)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
