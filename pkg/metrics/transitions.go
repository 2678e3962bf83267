package metrics

import "github.com/prometheus/client_golang/prometheus"

// TransitionMetrics counts status transitions of indents and trips.
type TransitionMetrics struct {
	applied  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

func NewTransitionMetrics(reg prometheus.Registerer) *TransitionMetrics {
	if reg == nil {
		return &TransitionMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Committed status transitions.",
	}, []string{"entity", "from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_rejected_total",
		Help:      "Transitions refused by the lifecycle policy.",
	}, []string{"entity", "from", "to"})
	reg.MustRegister(applied, rejected)
	return &TransitionMetrics{applied: applied, rejected: rejected}
}

// ObserveTransition records a committed from -> to move.
func (m *TransitionMetrics) ObserveTransition(entity, from, to string) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(label(entity), label(from), label(to)).Inc()
}

// ObserveRejected records a move the policy refused.
func (m *TransitionMetrics) ObserveRejected(entity, from, to string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(label(entity), label(from), label(to)).Inc()
}
